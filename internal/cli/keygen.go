package cli

import (
	"crypto/rand"
	"errors"
	"io/fs"

	"github.com/spf13/cobra"

	"github.com/Gere321123/FHETaxSystem/internal/inputproof"
	"github.com/Gere321123/FHETaxSystem/internal/paillier"
)

// KeygenOptions holds flags for the keygen command.
type KeygenOptions struct {
	Bits int
}

// NewKeygenCommand creates the keygen command.
func NewKeygenCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &KeygenOptions{}

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate the Paillier key pair and input-verifier key",
		Long: `Generate a fresh Paillier key pair and an EdDSA input-verifier key and
write them to the key file (--keys). Prints the InitLedger arguments.

An existing key file is never overwritten.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeygen(rootOpts, opts, cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Bits, "bits", 2048, "Paillier modulus size in bits")

	return cmd
}

func runKeygen(rootOpts *RootOptions, opts *KeygenOptions, cmd *cobra.Command) error {
	out := newFormatter(rootOpts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	out.Log.Debug().Int("bits", opts.Bits).Msg("generating paillier key")
	sk, err := paillier.GenerateKey(rand.Reader, opts.Bits)
	if err != nil {
		return out.Fail(ExitCommandError, ErrCodeInput, "paillier key generation failed", err)
	}
	signer, err := inputproof.GenerateSigner(rand.Reader)
	if err != nil {
		return out.Fail(ExitFailure, ErrCodeCrypto, "verifier key generation failed", err)
	}

	if err := SaveKeys(rootOpts.Keys, newKeyFile(sk, signer)); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return out.Fail(ExitCommandError, ErrCodeKeyFile, "key file already exists", err)
		}
		return out.Fail(ExitCommandError, ErrCodeKeyFile, "cannot write key file", err)
	}
	out.Log.Debug().Str("path", rootOpts.Keys).Msg("key file written")

	keys := &Keys{Paillier: sk, Signer: signer}
	return printInitArgs(out, rootOpts.Keys, keys)
}

func printInitArgs(out *OutputFormatter, path string, keys *Keys) error {
	pk, verifier, err := keys.InitArgs()
	if err != nil {
		return out.Fail(ExitFailure, ErrCodeGeneric, "cannot encode public key", err)
	}
	return out.Success(map[string]string{
		"keyFile":     path,
		"publicKey":   pk,
		"verifierKey": verifier,
	})
}
