package cli

import (
	"github.com/spf13/cobra"
)

// NewPublicCommand creates the public command, which prints the InitLedger
// arguments of an existing key file.
func NewPublicCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "public",
		Short:         "Print the InitLedger arguments of the key file",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := newFormatter(rootOpts, cmd.OutOrStdout(), cmd.ErrOrStderr())
			keys, err := loadKeys(out, rootOpts.Keys)
			if err != nil {
				return err
			}
			return printInitArgs(out, rootOpts.Keys, keys)
		},
	}
}
