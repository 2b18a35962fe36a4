package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"vapi/internal/app"
	"vapi/internal/catalog"
	"vapi/internal/reconciler"
	vstrings "vapi/pkg/strings"
)

// storeFlags are shared by every command that opens the configuration and
// the document store directly instead of going through a running server.
type storeFlags struct {
	configPath string
	driver     string
	uri        string
	debug      bool
}

func (f *storeFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.configPath, "config-path", "", "Configuration directory (default ~/.config/vapi)")
	cmd.Flags().StringVar(&f.driver, "store", "", "Document store driver: memory or mongo (overrides settings.yaml)")
	cmd.Flags().StringVar(&f.uri, "store-uri", "", "MongoDB connection URI (overrides settings.yaml)")
	cmd.Flags().BoolVar(&f.debug, "debug", false, "Print debug logs")
}

// open bootstraps the application without serving. Logs are suppressed
// unless --debug is given so command output stays readable.
func (f *storeFlags) open(ctx context.Context) (*app.Application, error) {
	cfg := app.NewConfig(f.debug, f.configPath)
	cfg.Silent = !f.debug
	cfg.StoreDriver = f.driver
	cfg.StoreURI = f.uri
	return app.NewApplication(ctx, cfg)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// withApplication opens the application, runs fn and closes it again.
func (f *storeFlags) withApplication(cmd *cobra.Command, fn func(context.Context, *app.Application) error) error {
	ctx := commandContext(cmd)
	application, err := f.open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := application.Close(context.WithoutCancel(ctx)); cerr != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", cerr)
		}
	}()
	return fn(ctx, application)
}

func newServicesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "services",
		Aliases: []string{"service", "svc"},
		Short:   "Administer service records without a running server",
		Long: `Reads and changes service records in the configuration directory directly.

Renames move the backing collections in the configured document store along
with the record, and delete removes the collections the service owned. A
running server notices these changes through its file watcher.`,
	}
	cmd.AddCommand(newServicesListCmd(), newServicesShowCmd(), newServicesRenameCmd(),
		newServicesRenameEntityCmd(), newServicesDeleteCmd())
	return cmd
}

func newServicesListCmd() *cobra.Command {
	var flags storeFlags
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List configured services",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return flags.withApplication(cmd, func(ctx context.Context, a *app.Application) error {
				return listServices(ctx, cmd.OutOrStdout(), a.Services().Configs)
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func newServicesShowCmd() *cobra.Command {
	var flags storeFlags
	cmd := &cobra.Command{
		Use:   "show NAME",
		Short: "Show the entities and endpoints of a service",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return flags.withApplication(cmd, func(ctx context.Context, a *app.Application) error {
				svc, err := a.Services().Configs.Get(ctx, args[0])
				if err != nil {
					return err
				}
				if svc == nil {
					return fmt.Errorf("service %s: %w", args[0], catalog.ErrNotFound)
				}
				showService(cmd.OutOrStdout(), svc)
				return nil
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func newServicesRenameCmd() *cobra.Command {
	var flags storeFlags
	cmd := &cobra.Command{
		Use:   "rename OLD NEW",
		Short: "Rename a service and move its collections",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return flags.withApplication(cmd, func(ctx context.Context, a *app.Application) error {
				if err := a.Services().Reconciler.RenameService(ctx, args[0], args[1]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Renamed service %s to %s\n", args[0], args[1])
				return nil
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func newServicesRenameEntityCmd() *cobra.Command {
	var flags storeFlags
	cmd := &cobra.Command{
		Use:   "rename-entity SERVICE OLD NEW",
		Short: "Rename an entity of a service and move its collection",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return flags.withApplication(cmd, func(ctx context.Context, a *app.Application) error {
				if err := a.Services().Reconciler.RenameEntity(ctx, args[0], args[1], args[2]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Renamed entity %s/%s to %s\n", args[0], args[1], args[2])
				return nil
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func newServicesDeleteCmd() *cobra.Command {
	var flags storeFlags
	var keepData bool
	cmd := &cobra.Command{
		Use:   "delete NAME",
		Short: "Delete a service record and drop its collections",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return flags.withApplication(cmd, func(ctx context.Context, a *app.Application) error {
				deleted, err := a.Services().Configs.Delete(ctx, args[0])
				if err != nil {
					return err
				}
				if !deleted {
					return fmt.Errorf("service %s: %w", args[0], catalog.ErrNotFound)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted service %s\n", args[0])
				if keepData {
					return nil
				}
				result, err := a.ReconcileOnce(ctx)
				if err != nil {
					return fmt.Errorf("service deleted but its collections were not dropped: %w", err)
				}
				printPassResult(cmd.OutOrStdout(), result)
				return passError(result)
			})
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&keepData, "keep-data", false, "Leave the collections for the next reconciliation pass")
	return cmd
}

func newTable(out io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleRounded)
	return t
}

func header(cols ...string) table.Row {
	row := make(table.Row, len(cols))
	for i, c := range cols {
		row[i] = text.FgHiCyan.Sprint(c)
	}
	return row
}

func activeMark(active bool) string {
	if active {
		return text.FgGreen.Sprint("yes")
	}
	return text.FgYellow.Sprint("no")
}

func listServices(ctx context.Context, out io.Writer, configs *catalog.ConfigStore) error {
	names, err := configs.ListNames(ctx)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		fmt.Fprintln(out, "No services configured")
		return nil
	}

	t := newTable(out)
	t.AppendHeader(header("NAME", "ACTIVE", "ENTITIES", "ENDPOINTS", "DESCRIPTION"))
	for _, name := range names {
		svc, err := configs.Get(ctx, name)
		switch {
		case errors.Is(err, catalog.ErrConfigCorrupt):
			t.AppendRow(table.Row{name, "-", "-", "-", text.FgRed.Sprint("unreadable: " + vstrings.Cell(err.Error(), vstrings.DefaultCellWidth))})
			continue
		case err != nil:
			return err
		case svc == nil:
			continue
		}
		endpoints := 0
		for _, e := range svc.Entities {
			endpoints += len(e.Endpoints)
		}
		t.AppendRow(table.Row{name, activeMark(svc.IsActive), len(svc.Entities), endpoints, vstrings.Cell(svc.Description, vstrings.DefaultCellWidth)})
	}
	t.Render()
	return nil
}

func showService(out io.Writer, svc *catalog.ServiceConfig) {
	fmt.Fprintf(out, "Service %s (active: %t)\n", svc.Name, svc.IsActive)
	if svc.Description != "" {
		fmt.Fprintln(out, svc.Description)
	}
	for _, warning := range catalog.Lint(svc) {
		fmt.Fprintf(out, "%s %s\n", text.FgYellow.Sprint("warning:"), warning)
	}
	if len(svc.Entities) == 0 {
		fmt.Fprintln(out, "No entities")
		return
	}

	t := newTable(out)
	t.AppendHeader(header("ENTITY", "ACTIVE", "COLLECTION", "ROUTE", "VERB", "ENDPOINT ACTIVE"))
	for _, e := range svc.Entities {
		collection := catalog.ResourceID(svc.Name, e.Name)
		if len(e.Endpoints) == 0 {
			t.AppendRow(table.Row{e.Name, activeMark(e.IsActive), collection, "-", "-", "-"})
			continue
		}
		for _, ep := range e.Endpoints {
			t.AppendRow(table.Row{e.Name, activeMark(e.IsActive), collection, ep.Route, strings.ToUpper(string(ep.Verb)), activeMark(ep.IsActive)})
		}
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, AutoMerge: true},
		{Number: 2, AutoMerge: true},
		{Number: 3, AutoMerge: true},
	})
	t.Render()
}

func printPassResult(out io.Writer, result reconciler.PassResult) {
	for _, m := range result.Moved {
		fmt.Fprintf(out, "Moved collection %s to %s\n", m.From, m.To)
	}
	for _, name := range result.Dropped {
		fmt.Fprintf(out, "Dropped collection %s\n", name)
	}
	for _, name := range result.Protected {
		fmt.Fprintf(out, "Kept collection %s (owner unreadable or rename pending)\n", name)
	}
	for _, f := range result.Failures {
		fmt.Fprintf(out, "%s %s %s: %s\n", text.FgRed.Sprint("failed:"), f.Operation, f.Collection, f.Error)
	}
	if !result.Changed() && !result.Failed() {
		fmt.Fprintln(out, "Collections already match the configuration")
	}
}

// passError turns individual failures of a completed pass into an error.
func passError(result reconciler.PassResult) error {
	if result.Failed() {
		return fmt.Errorf("%d collection operations failed", len(result.Failures))
	}
	return nil
}

func init() {
	rootCmd.AddCommand(newServicesCmd())
}
