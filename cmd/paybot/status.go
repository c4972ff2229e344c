package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"paybot/internal/config"

	"github.com/spf13/cobra"
)

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status [intent-id]",
		Short: "Show system status, or look up a payment intent by id",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.Load(cfgPath)
			if err != nil {
				logger.Info("config", "path", cfgPath, "loaded", false)
				cfg = config.Defaults()
			} else {
				logger.Info("config", "path", cfgPath, "loaded", true)
			}

			if len(args) == 0 {
				logger.Info("store", "driver", cfg.Store.Driver, "dbPath", cfg.Store.DBPath)
				logger.Info("identity", "provider", cfg.Identity.Provider)
				logger.Info("api", "addr", fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port), "operators", len(cfg.API.Operators))
				return nil
			}

			// Direct store lookup. This path is for operators with access to
			// the database file, so no party check applies.
			st, err := buildStore(cfg.Store)
			if err != nil {
				return fmt.Errorf("intent store: %w", err)
			}
			defer st.Close()

			it, err := st.Get(context.Background(), args[0])
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(it, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(os.Stdout, string(out))
			return nil
		},
	}
}
