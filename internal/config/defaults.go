package config

// Defaults returns the baseline configuration. Load overlays the config
// file on top of these values.
func Defaults() *Config {
	return &Config{
		General: GeneralConfig{
			LogLevel: "info",
		},
		Identity: IdentityConfig{
			Provider:       "privy",
			BaseURL:        "https://auth.privy.io",
			TimeoutSeconds: 30,
		},
		Store: StoreConfig{
			Driver: "sqlite",
			DBPath: "~/.paybot/intents.db",
		},
		Wallet: WalletConfig{
			PreferredChainID:   "eip155:11155111",
			DefaultChainFamily: "ethereum",
		},
		Notify: NotifyConfig{
			Telegram: TelegramConfig{ParseMode: "Markdown"},
		},
		API: APIConfig{
			Host:             "127.0.0.1",
			Port:             8090,
			FoldUnauthorized: true,
		},
	}
}
