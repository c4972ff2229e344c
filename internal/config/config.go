package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Config is the root configuration for PayBot.
type Config struct {
	General  GeneralConfig  `json:"general"`
	Identity IdentityConfig `json:"identity"`
	Store    StoreConfig    `json:"store"`
	Wallet   WalletConfig   `json:"wallet"`
	Notify   NotifyConfig   `json:"notify"`
	API      APIConfig      `json:"api"`
}

type GeneralConfig struct {
	LogLevel string `json:"logLevel"`          // debug | info | warn | error
	LogFile  string `json:"logFile,omitempty"` // optional log file path
}

// IdentityConfig configures the custodial identity provider.
type IdentityConfig struct {
	Provider       string `json:"provider"` // "privy" | "static"
	BaseURL        string `json:"baseUrl,omitempty"`
	AppID          string `json:"appId,omitempty"`
	AppSecret      string `json:"appSecret,omitempty"`
	TimeoutSeconds int    `json:"timeoutSeconds,omitempty"`

	// StaticUsers backs the "static" provider, for development and tests.
	// Keyed by platform-prefixed chat identity.
	StaticUsers map[string]StaticUser `json:"staticUsers,omitempty"`
}

// StaticUser is a fixture entry for the static identity provider.
type StaticUser struct {
	DisplayName string         `json:"displayName"`
	Wallets     []StaticWallet `json:"wallets,omitempty"`
}

type StaticWallet struct {
	Address     string `json:"address"`
	ChainFamily string `json:"chainFamily"`
	ChainID     string `json:"chainId"`
	WalletKind  string `json:"walletKind,omitempty"`
}

type StoreConfig struct {
	Driver string `json:"driver"` // "sqlite" | "memory"
	DBPath string `json:"dbPath,omitempty"`
}

// WalletConfig configures the wallet selection policy and chain labels.
type WalletConfig struct {
	PreferredChainID   string `json:"preferredChainId"`   // exact chain id picked first
	DefaultChainFamily string `json:"defaultChainFamily"` // fallback family
	ChainsFile         string `json:"chainsFile,omitempty"`
}

type NotifyConfig struct {
	Discord  DiscordConfig  `json:"discord"`
	Telegram TelegramConfig `json:"telegram"`
	Slack    SlackConfig    `json:"slack"`
}

type DiscordConfig struct {
	Enabled bool   `json:"enabled"`
	Token   string `json:"token,omitempty"`
}

type TelegramConfig struct {
	Enabled   bool   `json:"enabled"`
	Token     string `json:"token,omitempty"`
	ParseMode string `json:"parseMode,omitempty"`
}

type SlackConfig struct {
	Enabled  bool   `json:"enabled"`
	BotToken string `json:"botToken,omitempty"`
}

// APIConfig configures the HTTP entry points.
type APIConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`

	// Operators are the chat identities allowed to call the reconciliation
	// entry point. Empty means nobody can confirm.
	Operators []string `json:"operators,omitempty"`

	// FoldUnauthorized makes unauthorized reads indistinguishable from
	// not-found on the HTTP surface, so intent ids cannot be enumerated.
	FoldUnauthorized bool `json:"foldUnauthorized"`
}

// DefaultConfigDir returns the default config directory (~/.paybot).
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".paybot"
	}
	return filepath.Join(home, ".paybot")
}

func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.json")
}

func Load(path string) (*Config, error) {
	path = expandPath(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
	}

	// Substitute environment variables: ${VAR} and ${VAR:-default}
	data = []byte(ExpandEnvVars(string(data)))

	cfg := Defaults()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
	}

	cfg.Store.DBPath = expandPath(cfg.Store.DBPath)
	cfg.Wallet.ChainsFile = expandPath(cfg.Wallet.ChainsFile)
	cfg.General.LogFile = expandPath(cfg.General.LogFile)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns in config strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-(.*?))?\}`)

// ExpandEnvVars replaces ${VAR} with the environment variable value.
// Supports default values: ${VAR:-default} uses "default" when VAR is unset or empty.
func ExpandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		varName := groups[1]
		defaultVal := ""
		hasDefault := len(groups) >= 3 && groups[2] != ""
		if hasDefault {
			defaultVal = groups[2]
		}

		val, exists := os.LookupEnv(varName)
		if !exists || val == "" {
			if hasDefault {
				return defaultVal
			}
			return match // Keep original if no env var and no default
		}
		return val
	})
}

func Save(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0o644)
}

// Validate checks that the config has valid values.
func Validate(cfg *Config) error {
	var errs []string

	switch cfg.General.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("general.logLevel %q is not one of debug, info, warn, error", cfg.General.LogLevel))
	}

	switch cfg.Identity.Provider {
	case "privy":
		if cfg.Identity.AppID == "" || cfg.Identity.AppSecret == "" {
			errs = append(errs, "identity.appId and identity.appSecret are required for the privy provider")
		}
	case "static":
	default:
		errs = append(errs, fmt.Sprintf("identity.provider %q is not one of privy, static", cfg.Identity.Provider))
	}

	switch cfg.Store.Driver {
	case "sqlite":
		if cfg.Store.DBPath == "" {
			errs = append(errs, "store.dbPath is required for the sqlite driver")
		}
	case "memory":
	default:
		errs = append(errs, fmt.Sprintf("store.driver %q is not one of sqlite, memory", cfg.Store.Driver))
	}

	if cfg.API.Port < 1 || cfg.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}
	if cfg.Wallet.DefaultChainFamily == "" {
		errs = append(errs, "wallet.defaultChainFamily must not be empty")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// expandPath resolves a leading ~/ against the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
