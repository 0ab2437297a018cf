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
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/jeremyhahn/go-passkey/pkg/passkey"
)

// OutputFormat defines the output format type
type OutputFormat string

const (
	OutputFormatText OutputFormat = "text"
	OutputFormatJSON OutputFormat = "json"
)

// Printer handles formatted output
type Printer struct {
	format OutputFormat
	writer io.Writer
}

// NewPrinter creates a new Printer
func NewPrinter(format string, writer io.Writer) *Printer {
	return &Printer{
		format: OutputFormat(format),
		writer: writer,
	}
}

// PrintMessage prints an informational message
func (p *Printer) PrintMessage(msg string) error {
	if p.format == OutputFormatJSON {
		return p.printJSON(map[string]interface{}{"message": msg})
	}
	_, err := fmt.Fprintln(p.writer, msg)
	return err
}

// PrintToken prints an issued session token
func (p *Printer) PrintToken(token *passkey.SessionToken) error {
	if p.format == OutputFormatJSON {
		return p.printJSON(token)
	}
	fmt.Fprintf(p.writer, "Token Type: %s\n", token.TokenType)
	fmt.Fprintf(p.writer, "Expires At: %s\n", token.ExpiresAt.Format(time.RFC3339))
	fmt.Fprintf(p.writer, "Access Token:\n%s\n", token.AccessToken)
	return nil
}

// PrintTokenSubject prints the result of a token validation
func (p *Printer) PrintTokenSubject(user *passkey.User) error {
	if p.format == OutputFormatJSON {
		return p.printJSON(map[string]interface{}{
			"valid":    true,
			"userId":   user.ID.String(),
			"username": user.Username,
		})
	}
	fmt.Fprintln(p.writer, "Token is valid")
	fmt.Fprintf(p.writer, "  User ID:  %s\n", user.ID)
	fmt.Fprintf(p.writer, "  Username: %s\n", user.Username)
	return nil
}

// PrintCredentialList prints a user's registered credentials
func (p *Printer) PrintCredentialList(user *passkey.User, creds []*passkey.Credential) error {
	if p.format == OutputFormatJSON {
		type jsonCred struct {
			CredentialID string    `json:"credentialId"`
			SignCount    uint32    `json:"signCount"`
			BackedUp     bool      `json:"backedUp"`
			CloneWarning bool      `json:"cloneWarning"`
			CreatedAt    time.Time `json:"createdAt"`
			LastUsedAt   time.Time `json:"lastUsedAt"`
		}
		out := struct {
			UserID      string     `json:"userId"`
			Username    string     `json:"username"`
			Credentials []jsonCred `json:"credentials"`
		}{
			UserID:   user.ID.String(),
			Username: user.Username,
		}
		for _, c := range creds {
			out.Credentials = append(out.Credentials, jsonCred{
				CredentialID: base64.RawURLEncoding.EncodeToString(c.ID),
				SignCount:    c.SignCount,
				BackedUp:     c.Flags.BackupState,
				CloneWarning: c.CloneWarning,
				CreatedAt:    c.CreatedAt,
				LastUsedAt:   c.LastUsedAt,
			})
		}
		return p.printJSON(out)
	}

	fmt.Fprintf(p.writer, "Credentials for %s (%s):\n", user.Username, user.ID)
	if len(creds) == 0 {
		fmt.Fprintln(p.writer, "  (none)")
		return nil
	}
	for _, c := range creds {
		fmt.Fprintf(p.writer, "  - ID:           %s\n",
			base64.RawURLEncoding.EncodeToString(c.ID))
		fmt.Fprintf(p.writer, "    Sign Count:   %d\n", c.SignCount)
		fmt.Fprintf(p.writer, "    Backed Up:    %t\n", c.Flags.BackupState)
		fmt.Fprintf(p.writer, "    Clone Warn:   %t\n", c.CloneWarning)
		fmt.Fprintf(p.writer, "    Created:      %s\n", c.CreatedAt.Format(time.RFC3339))
		if !c.LastUsedAt.IsZero() {
			fmt.Fprintf(p.writer, "    Last Used:    %s\n", c.LastUsedAt.Format(time.RFC3339))
		}
	}
	return nil
}

// printJSON prints data as indented JSON
func (p *Printer) printJSON(data interface{}) error {
	encoder := json.NewEncoder(p.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
