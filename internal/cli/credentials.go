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
)

// credentialsCmd represents the credentials command
var credentialsCmd = &cobra.Command{
	Use:   "credentials",
	Short: "Inspect registered passkey credentials",
	Long: `Commands for inspecting passkey credentials stored in the
credential database.`,
}

// credentialsListCmd lists a user's credentials
var credentialsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List a user's registered credentials",
	Long: `List the passkey credentials registered for a user, including
sign counters and clone warnings.

Example:
  passkey-admin credentials list --username alice@example.com`,
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

		creds, err := store.GetByUserID(ctx, user.ID)
		if err != nil {
			handleError(err)
			return
		}

		printer := NewPrinter(outputFormat, os.Stdout)
		if err := printer.PrintCredentialList(user, creds); err != nil {
			handleError(err)
		}
	},
}

func init() {
	credentialsListCmd.Flags().String("username", "", "username whose credentials to list")

	credentialsCmd.AddCommand(credentialsListCmd)
}
