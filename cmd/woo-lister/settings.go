package main

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/ArtemZhigarev/woo-lister/pkg/credentials"
	"github.com/spf13/cobra"
)

func newSettingsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Manage the store endpoint and API keys",
		Long: `Manage the WooCommerce endpoint URL, consumer key and consumer secret.

With the default env backend the values are read from WOO_ENDPOINT_URL,
WOO_API_KEY and WOO_API_SECRET and cannot be changed here. With
settings.backend=redis they are stored in Redis, sealed with
settings.secret_key (create one with "settings keygen").`,
	}

	cmd.AddCommand(
		newSettingsSetCmd(a),
		newSettingsShowCmd(a),
		newSettingsClearCmd(a),
		newSettingsTestCmd(a),
		newSettingsKeygenCmd(a),
	)
	return cmd
}

func newSettingsSetCmd(a *app) *cobra.Command {
	var endpoint, key, secret string

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Store endpoint URL, consumer key and consumer secret",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			endpoint = strings.TrimSpace(endpoint)
			if err := validateEndpoint(endpoint); err != nil {
				return err
			}

			store, release, err := a.newStore(cmd.Context())
			if err != nil {
				return err
			}
			defer release()

			err = store.Set(cmd.Context(), map[string]string{
				credentials.KeyEndpointURL: strings.TrimRight(endpoint, "/"),
				credentials.KeyAPIKey:      strings.TrimSpace(key),
				credentials.KeyAPISecret:   strings.TrimSpace(secret),
			})
			if errors.Is(err, credentials.ErrReadOnly) {
				return fmt.Errorf("the env settings backend is read-only: export WOO_ENDPOINT_URL, WOO_API_KEY and WOO_API_SECRET, or set settings.backend=redis")
			}
			if err != nil {
				return fmt.Errorf("save settings: %w", err)
			}

			fmt.Fprintln(a.out, "Settings saved.")
			return nil
		},
	}

	cmd.Flags().StringVar(&endpoint, "url", "", "Store URL, e.g. https://shop.example.com")
	cmd.Flags().StringVar(&key, "key", "", "Consumer key (ck_...)")
	cmd.Flags().StringVar(&secret, "secret", "", "Consumer secret (cs_...)")
	_ = cmd.MarkFlagRequired("url")
	_ = cmd.MarkFlagRequired("key")
	_ = cmd.MarkFlagRequired("secret")

	return cmd
}

func newSettingsShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the current settings with the secret redacted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			provider, release, err := a.provider(cmd.Context())
			if err != nil {
				return err
			}
			defer release()

			creds, err := provider.Credentials(cmd.Context())
			var notConfigured *credentials.NotConfiguredError
			if errors.As(err, &notConfigured) {
				fmt.Fprintf(a.out, "Not configured (missing: %s)\n", strings.Join(notConfigured.Missing, ", "))
				return nil
			}
			if err != nil {
				return err
			}
			defer creds.Wipe()

			fmt.Fprintln(a.out, creds.String())
			return nil
		},
	}
}

func newSettingsClearCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove stored settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, release, err := a.newStore(cmd.Context())
			if err != nil {
				return err
			}
			defer release()

			if err := store.Clear(cmd.Context()); err != nil {
				if errors.Is(err, credentials.ErrReadOnly) {
					return fmt.Errorf("the env settings backend is read-only: unset the WOO_* variables instead")
				}
				return fmt.Errorf("clear settings: %w", err)
			}

			fmt.Fprintln(a.out, "Settings cleared.")
			return nil
		},
	}
}

func newSettingsTestCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "test",
		Short: "Check that the store accepts the configured keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			provider, release, err := a.provider(ctx)
			if err != nil {
				return err
			}
			defer release()

			c, err := a.newClient()
			if err != nil {
				return err
			}
			defer c.Close()

			err = credentials.Use(ctx, provider, func(creds credentials.Credentials) error {
				return c.Ping(ctx, creds)
			})
			if err != nil {
				return fmt.Errorf("connection test failed: %w", err)
			}

			fmt.Fprintln(a.out, "Connection OK.")
			return nil
		},
	}
}

func newSettingsKeygenCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Print a new random settings.secret_key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := credentials.GenerateSealKey()
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, key)
			return nil
		},
	}
}

func validateEndpoint(endpoint string) error {
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("invalid --url %q: expected http(s)://host[/path]", endpoint)
	}
	return nil
}
