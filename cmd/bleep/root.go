// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/bleepbuild/bleep/internal/issue"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// rootFlagValues holds the persistent flags shared by every command.
type rootFlagValues struct {
	configPath string
	root       string
	verbose    bool
}

// NewRootCommand builds the command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	rootCmd, _ := newRootCommand(app)
	return rootCmd
}

func newRootCommand(app *App) (*cobra.Command, *rootFlagValues) {
	flags := &rootFlagValues{}

	rootCmd := &cobra.Command{
		Use:   "bleep",
		Short: "Watch, type-check and bundle a TypeScript monorepo",
		Long: TitleStyle.Render("bleep") + SubtitleStyle.Render(" - watch, type-check and bundle a TypeScript monorepo") + `

bleep finds every module under the UI directory, generates project
descriptors for the type-checker, waits for its first clean build and
then bundles every module in dependency order, running each module's
build hooks around its main bundle.

` + SubtitleStyle.Render("Examples:") + `
  bleep watch               Watch and bundle every module
  bleep watch site admin    Bundle only 'site', 'admin' and their dependencies
  bleep modules             List discovered modules
  bleep graph               Show the dependency graph
  bleep config show         Show the effective configuration`,
	}
	rootCmd.SetOut(app.stdout)
	rootCmd.SetErr(app.stderr)

	rootCmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "config file (default is <root>/bleep.cue)")
	rootCmd.PersistentFlags().StringVar(&flags.root, "root", "", "monorepo root (default is the working directory)")
	rootCmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "show error chains and issue guides")

	rootCmd.AddCommand(
		newWatchCommand(app, flags),
		newModulesCommand(app, flags),
		newGraphCommand(app, flags),
		newTSConfigCommand(app, flags),
		newConfigCommand(app, flags),
		newVersionCommand(app),
	)
	return rootCmd, flags
}

// Execute runs the CLI and exits with the code of the failure, if any.
// This is called by main.main().
func Execute() {
	os.Exit(Run(context.Background(), os.Args[1:], Dependencies{}))
}

// Run executes the command line args and returns the process exit code.
func Run(ctx context.Context, args []string, deps Dependencies) int {
	app := NewApp(deps)
	rootCmd, flags := newRootCommand(app)
	rootCmd.SetArgs(args)

	if err := fang.Execute(
		ctx,
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
		fang.WithErrorHandler(errorHandler(flags)),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			return exitErr.Code
		}
		return ExitFailure
	}
	return 0
}

// getVersionString returns the version line shown by --version.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// errorHandler prints failures the way the rest of the CLI styles output.
// In verbose mode the issue guide linked to the error is rendered too.
func errorHandler(flags *rootFlagValues) fang.ErrorHandler {
	return func(w io.Writer, _ fang.Styles, err error) {
		verbose := flags.verbose
		fmt.Fprintln(w, ErrorStyle.Render("Error: ")+formatErrorForDisplay(err, verbose))
		if !verbose {
			return
		}
		if id, ok := issue.IssueOf(err); ok {
			if guide := issue.Get(id); guide != nil {
				if rendered, renderErr := guide.Render("notty"); renderErr == nil {
					fmt.Fprint(w, rendered)
				}
			}
		}
	}
}

// formatErrorForDisplay formats an error for the user. ActionableErrors use
// their Format method; verbose mode shows the whole chain.
func formatErrorForDisplay(err error, verbose bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verbose)
	}
	return err.Error()
}
