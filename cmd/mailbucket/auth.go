package main

import (
	"fmt"

	"mailbucket/internal/gmail"

	"github.com/spf13/cobra"
)

func newAuthCmd() *cobra.Command {
	var revoke bool
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authorize read-only access to a Gmail account",
		Long: "Runs the OAuth consent flow using client_secret.json from the config directory\n" +
			"and stores the token in the configured token store (file or keyring).",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger, closeLog, err := newLogger(cfg, cmd.ErrOrStderr(), false)
			if err != nil {
				return err
			}
			defer closeLog()
			store := tokenStore(cfg)
			out := cmd.OutOrStdout()
			if revoke {
				if err := store.Delete(); err != nil {
					return fmt.Errorf("delete token: %w", err)
				}
				fmt.Fprintln(out, "Stored token removed.")
				return nil
			}

			ctx, stop := signalContext(cmd.Context())
			defer stop()

			oauthCfg, err := gmail.OAuthConfig(cfg.ConfigDir)
			if err != nil {
				return err
			}
			if err := gmail.Authorize(ctx, oauthCfg, store, cmd.InOrStdin(), out); err != nil {
				return err
			}
			_, account, err := gmail.NewService(ctx, oauthCfg, store, logger)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Authorized as %s (token kept in %s store).\n", account, cfg.TokenStore)
			return nil
		},
	}
	cmd.Flags().BoolVar(&revoke, "revoke", false, "Remove the stored token instead of authorizing")
	return cmd
}
