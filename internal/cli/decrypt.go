package cli

import (
	"github.com/spf13/cobra"

	"github.com/Gere321123/FHETaxSystem/internal/paillier"
)

// NewDecryptCommand creates the decrypt command.
func NewDecryptCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "decrypt <ciphertext>",
		Short: "Decrypt a ledger ciphertext",
		Long: `Decrypt a hex ciphertext, such as the value field returned by the
GetCiphertext transaction, with the key file's Paillier private key.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := newFormatter(rootOpts, cmd.OutOrStdout(), cmd.ErrOrStderr())
			keys, err := loadKeys(out, rootOpts.Keys)
			if err != nil {
				return err
			}
			c, err := paillier.ParseInt(args[0])
			if err != nil {
				return out.Fail(ExitCommandError, ErrCodeInput, "invalid ciphertext", err)
			}
			m, err := keys.Paillier.Decrypt(c)
			if err != nil {
				return out.Fail(ExitFailure, ErrCodeCrypto, "decryption failed", err)
			}
			return out.Success(map[string]string{"amount": m.String()})
		},
	}
}

