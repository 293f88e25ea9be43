package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sessionkit/verifytoken/core"
	"github.com/sessionkit/verifytoken/internal/config"
	"github.com/sessionkit/verifytoken/jwks"
	"github.com/sessionkit/verifytoken/validator"
)

func newVerifyCmd(ro *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "verify [token|-]",
		Short: "Verify a session token and print its claims",
		Long: `Verify a session token and print its claims as JSON.

The token is read from the first argument, or from stdin when the argument
is "-" or missing. Exit status: 0 valid, 1 rejected token, 3 backend API
unavailable, 4 configuration error, 2 anything else.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ro.load(cmd)
			if err != nil {
				return err
			}
			logger := cfg.Logger()
			logger.Debug("Loaded config", "config", cfg.String())

			token, err := readToken(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}

			opts, err := cfg.VerifyOptions()
			if err != nil {
				return err
			}

			v, err := newValidator(cfg, logger)
			if err != nil {
				return err
			}

			claims, err := v.Verify(cmd.Context(), token, opts)
			if err != nil {
				code, _ := core.CodeOf(err)
				logger.Warn("Token rejected", "code", code, "error", err)
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(claimsOutput(claims))
		},
	}
}

func newValidator(cfg *config.Config, logger core.Logger) (*validator.Validator, error) {
	cache, err := cfg.KeyCache()
	if err != nil {
		return nil, err
	}
	provider, err := jwks.NewRemoteProvider(jwks.WithFetchTimeout(cfg.FetchTimeout))
	if err != nil {
		return nil, err
	}
	resolver, err := jwks.NewResolver(
		jwks.WithFetcher(provider),
		jwks.WithCache(cache),
		jwks.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}
	return validator.New(validator.WithResolver(resolver), validator.WithLogger(logger))
}

func readToken(stdin io.Reader, args []string) (string, error) {
	if len(args) == 1 && args[0] != "-" {
		return strings.TrimSpace(args[0]), nil
	}
	line, err := bufio.NewReader(stdin).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("read token from stdin: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// claimsOutput flattens Claims and its extra claims into one object.
func claimsOutput(c *validator.Claims) map[string]any {
	out := make(map[string]any, len(c.Extra)+8)
	for k, v := range c.Extra {
		out[k] = v
	}
	out["sub"] = c.Subject
	set := func(k, v string) {
		if v != "" {
			out[k] = v
		}
	}
	set("iss", c.Issuer)
	set("azp", c.AuthorizedParty)
	set("sid", c.SessionID)
	set("jti", c.ID)
	if len(c.Audience) > 0 {
		out["aud"] = c.Audience
	}
	unix := func(k string, t time.Time) {
		if !t.IsZero() {
			out[k] = t.Unix()
		}
	}
	unix("iat", c.IssuedAt)
	unix("exp", c.ExpiresAt)
	unix("nbf", c.NotBefore)
	return out
}
