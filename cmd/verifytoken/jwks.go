package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sessionkit/verifytoken/jwks"
)

func newJWKSCmd(ro *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "jwks",
		Short: "Fetch and print the signing keys served by the backend API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ro.load(cmd)
			if err != nil {
				return err
			}
			logger := cfg.Logger()

			opts, err := cfg.VerifyOptions()
			if err != nil {
				return err
			}

			provider, err := jwks.NewRemoteProvider(jwks.WithFetchTimeout(cfg.FetchTimeout))
			if err != nil {
				return err
			}

			ep := jwks.EndpointFor(opts)
			set, ttl, err := provider.Fetch(cmd.Context(), ep)
			if err != nil {
				return err
			}
			logger.Info("Fetched JWKS", "url", ep.URL, "keys", set.Len(), "max_age", ttl)

			out, err := json.MarshalIndent(set, "", "  ")
			if err != nil {
				return fmt.Errorf("encode jwks: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return err
		},
	}
}
