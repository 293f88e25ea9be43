package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/sessionkit/verifytoken/core"
	"github.com/sessionkit/verifytoken/internal/config"
)

type rootOptions struct {
	configFile string
}

func newRootCmd() *cobra.Command {
	ro := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "verifytoken",
		Short:         "Verify Clerk session tokens",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&ro.configFile, "config", "", "config file (default: ./verifytoken.yaml if present)")
	flags.String("secret-key", "", "backend API secret key ($VERIFYTOKEN_SECRET_KEY)")
	flags.String("jwt-key", "", "PEM public key for networkless verification ($VERIFYTOKEN_JWT_KEY)")
	flags.String("audience", "", "required audience")
	flags.StringSlice("authorized-parties", nil, "allowed azp values")
	flags.Int64("clock-skew-ms", 0, "allowed clock skew in milliseconds (default 5000)")
	flags.String("api-url", "", "backend API base URL (default https://api.clerk.com)")
	flags.String("api-version", "", "backend API version (default v1)")
	flags.Duration("fetch-timeout", 0, "JWKS fetch timeout (default 5s)")
	flags.String("redis-url", "", "share the key cache through Redis")
	flags.String("log-level", "", "DEBUG, INFO, WARN or ERROR")

	cmd.AddCommand(newVerifyCmd(ro), newJWKSCmd(ro))
	return cmd
}

func (ro *rootOptions) load(cmd *cobra.Command) (*config.Config, error) {
	return config.Load(cmd.Flags(), ro.configFile)
}

// exitCode maps failures to distinct exit statuses so scripts can tell a
// rejected token from an outage.
func exitCode(err error) int {
	switch {
	case errors.Is(err, core.ErrToken):
		return 1
	case errors.Is(err, core.ErrTransport):
		return 3
	case errors.Is(err, core.ErrConfig):
		return 4
	}
	return 2
}
