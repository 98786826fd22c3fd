// Package cli implements taxctl, the off-chain operator tool for the
// confidential tax ledger: key generation, encrypting and proving amounts
// for a submitting principal, and decrypting ledger ciphertexts.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	Keys    string // Path of the YAML key file
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for taxctl.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "taxctl",
		Short: "Operator tool for the confidential tax ledger",
		Long: `taxctl manages the off-chain key material of the confidential tax ledger.

It generates the Paillier key pair and the input-verifier signing key,
prints the InitLedger arguments, encrypts amounts with an input proof bound
to a submitting client ID, and decrypts ciphertexts read from the ledger.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVarP(&opts.Keys, "keys", "k", "taxledger-keys.yaml", "key file")

	cmd.AddCommand(NewKeygenCommand(opts))
	cmd.AddCommand(NewPublicCommand(opts))
	cmd.AddCommand(NewEncryptCommand(opts))
	cmd.AddCommand(NewDecryptCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
