package cli

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Gere321123/FHETaxSystem/internal/inputproof"
	"github.com/Gere321123/FHETaxSystem/internal/paillier"
)

// EncryptOptions holds flags for the encrypt command.
type EncryptOptions struct {
	Channel  string
	Contract string
	User     string
}

// NewEncryptCommand creates the encrypt command.
func NewEncryptCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EncryptOptions{}

	cmd := &cobra.Command{
		Use:   "encrypt <amount>",
		Short: "Encrypt an amount and issue its input proof",
		Long: `Encrypt an unsigned 32-bit amount under the ledger's Paillier key and
sign an input proof binding the ciphertext to --user on --channel.

--user is the client ID of the principal that will submit the transaction
(as returned by the WhoAmI transaction): the authority for RegisterPayer and
SetLiability, the payer for PayTax.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEncrypt(rootOpts, opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Channel, "channel", "", "channel the ledger is deployed on (required)")
	cmd.Flags().StringVar(&opts.Contract, "contract", "taxledger", "contract name")
	cmd.Flags().StringVar(&opts.User, "user", "", "client ID of the submitter (required)")
	_ = cmd.MarkFlagRequired("channel")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func runEncrypt(rootOpts *RootOptions, opts *EncryptOptions, amountArg string, cmd *cobra.Command) error {
	out := newFormatter(rootOpts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	amount, err := strconv.ParseUint(amountArg, 10, 32)
	if err != nil {
		return out.Fail(ExitCommandError, ErrCodeInput, fmt.Sprintf("invalid amount %q", amountArg), err)
	}
	keys, err := loadKeys(out, rootOpts.Keys)
	if err != nil {
		return err
	}

	c, err := keys.Paillier.Encrypt(rand.Reader, new(big.Int).SetUint64(amount))
	if err != nil {
		return out.Fail(ExitFailure, ErrCodeCrypto, "encryption failed", err)
	}
	ct := paillier.FormatInt(c)
	domain := inputproof.Domain(opts.Channel, opts.Contract)
	proof, err := keys.Signer.Sign(domain, opts.User, ct)
	if err != nil {
		return out.Fail(ExitFailure, ErrCodeCrypto, "signing input proof failed", err)
	}
	out.Log.Debug().Str("domain", domain).Msg("input proof issued")

	return out.Success(map[string]string{
		"ciphertext": ct,
		"proof":      proof,
		"domain":     domain,
	})
}
