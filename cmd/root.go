package cmd

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"vapi/internal/catalog"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (command failed, invalid arguments).
	ExitCodeError = 1
	// ExitCodeNotFound indicates the named service or entity does not exist.
	ExitCodeNotFound = 2
	// ExitCodeConflict indicates the target name is already taken.
	ExitCodeConflict = 3
)

// rootCmd represents the base command for the vapi application.
// It is the entry point when the application is called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "vapi",
	Short: "Serve virtual REST APIs declared as configuration",
	Long: `vapi serves CRUD traffic for REST APIs that are declared as data:
services, their entities and the endpoints each entity exposes. Submitted
documents are checked against the entity structure and stored in collections
that follow the configuration as it is created, renamed and removed.`,
	// SilenceUsage prevents Cobra from printing the usage message on errors that are handled by the application.
	SilenceUsage: true,
}

// SetVersion sets the version for the root command.
// This function is typically called from the main package to inject the application version at build time.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute is the main entry point for the CLI application.
// This function is called by main.main().
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "vapi version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(getExitCode(err))
	}
}

// getExitCode determines the appropriate exit code based on the error type.
// This provides semantic exit codes for scripting and automation.
func getExitCode(err error) int {
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		return ExitCodeNotFound
	case errors.Is(err, catalog.ErrNameConflict):
		return ExitCodeConflict
	default:
		return ExitCodeError
	}
}

func init() {
	rootCmd.AddCommand(newVersionCmd())
}
