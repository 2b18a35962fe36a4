package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"vapi/internal/app"
)

func newReconcileCmd() *cobra.Command {
	var flags storeFlags
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Align the document store with the configuration once",
		Long: `Runs a single reconciliation pass against the configured document store.

Pending renames interrupted by a crash are completed first. Then every
collection that no configured service and entity owns is dropped. Collections
of services whose record cannot be read are kept.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return flags.withApplication(cmd, func(ctx context.Context, a *app.Application) error {
				result, err := a.ReconcileOnce(ctx)
				if err != nil {
					return err
				}
				printPassResult(cmd.OutOrStdout(), result)
				return passError(result)
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func init() {
	rootCmd.AddCommand(newReconcileCmd())
}
