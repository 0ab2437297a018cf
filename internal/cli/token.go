// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-passkey.
//
// go-passkey is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-passkey/internal/config"
	"github.com/jeremyhahn/go-passkey/pkg/passkey"
)

// tokenCmd represents the token command
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue and validate session tokens",
	Long: `Commands for working with bearer session tokens outside of an
authentication ceremony. Useful for service bootstrap and for
debugging token validation failures.

The signing secret is read from the configuration file or the
PASSKEY_TOKEN_SECRET environment variable.`,
}

// tokenIssueCmd issues a session token for an existing user
var tokenIssueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Issue a session token for a registered user",
	Long: `Issue a signed bearer token for an existing user, bypassing the
authentication ceremony. Intended for administrative use only.

Example:
  passkey-admin token issue --username alice@example.com`,
	Run: func(cmd *cobra.Command, args []string) {
		username, _ := cmd.Flags().GetString("username")
		if username == "" {
			handleError(fmt.Errorf("--username is required"))
			return
		}

		cfg, err := loadConfig()
		if err != nil {
			handleError(err)
			return
		}

		store, err := openStore(cfg)
		if err != nil {
			handleError(err)
			return
		}
		defer func() { _ = store.Close() }()

		ctx := context.Background()
		user, err := store.GetByUsername(ctx, username)
		if err != nil {
			handleError(err)
			return
		}

		issuer, err := newIssuer(cfg)
		if err != nil {
			handleError(err)
			return
		}

		token, err := issuer.Issue(ctx, user)
		if err != nil {
			handleError(err)
			return
		}

		printer := NewPrinter(outputFormat, os.Stdout)
		if err := printer.PrintToken(token); err != nil {
			handleError(err)
		}
	},
}

// tokenValidateCmd validates a session token
var tokenValidateCmd = &cobra.Command{
	Use:   "validate <token>",
	Short: "Validate a session token",
	Long: `Validate a bearer token's signature and claims and print the user
it was issued to.

Example:
  passkey-admin token validate eyJhbGciOiJIUzI1NiIs...`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		rawToken := args[0]

		cfg, err := loadConfig()
		if err != nil {
			handleError(err)
			return
		}

		issuer, err := newIssuer(cfg)
		if err != nil {
			handleError(err)
			return
		}

		ctx := context.Background()
		userID, err := issuer.Validate(ctx, rawToken)
		if err != nil {
			handleError(err)
			return
		}

		store, err := openStore(cfg)
		if err != nil {
			handleError(err)
			return
		}
		defer func() { _ = store.Close() }()

		user, err := store.GetByID(ctx, userID)
		if err != nil {
			handleError(err)
			return
		}

		printer := NewPrinter(outputFormat, os.Stdout)
		if err := printer.PrintTokenSubject(user); err != nil {
			handleError(err)
		}
	},
}

// newIssuer builds a JWT issuer from the application configuration
func newIssuer(cfg *config.Config) (*passkey.JWTIssuer, error) {
	if cfg.Token.Secret == "" {
		return nil, fmt.Errorf("token secret is not configured " +
			"(set token.secret or PASSKEY_TOKEN_SECRET)")
	}
	return passkey.NewJWTIssuer(&passkey.JWTIssuerConfig{
		Secret:    []byte(cfg.Token.Secret),
		Issuer:    cfg.Token.Issuer,
		Audience:  cfg.Token.Audience,
		ExpiresIn: cfg.Token.TTL,
	})
}

func init() {
	tokenIssueCmd.Flags().String("username", "", "username to issue the token for")

	tokenCmd.AddCommand(tokenIssueCmd)
	tokenCmd.AddCommand(tokenValidateCmd)
}
