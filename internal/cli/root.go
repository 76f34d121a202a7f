// Package cli wires the packforge commands together.
//
// Commands receive their collaborators through an [App] so tests can swap
// in stubs and capture output. [Execute] is the process entry point; it
// loads configuration, builds the command tree and converts an [ExitError]
// into the process exit code.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"packforge/internal/config"
	"packforge/internal/gen"
	"packforge/internal/output"
)

// App bundles the dependencies shared by all commands.
type App struct {
	Config  *config.Config
	Printer *output.Printer
	Logger  *slog.Logger
}

// NewApp loads the application configuration and builds the default
// dependency set.
func NewApp() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return &App{
		Config:  cfg,
		Printer: output.NewPrinter(),
		Logger:  NewLogger(false),
	}, nil
}

// NewLogger builds the process logger. Verbose enables debug records.
func NewLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// NewRootCommand builds the packforge command tree.
func NewRootCommand(app *App) *cobra.Command {
	var verbose bool

	rootCmd := &cobra.Command{
		Use:          "packforge",
		Short:        "Produce and publish AI-generated stream overlay packs",
		Long: `packforge builds themed stream overlay packs: it generates image
variants per screen type, refines them over multiple AI-reviewed rounds,
and packages the result for marketplace publishing.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				app.Logger = NewLogger(true)
			}
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(
		newBuildCommand(app),
		newPostprocessCommand(app),
		newCheckCommand(app),
		newRunCommand(app),
		newStatusCommand(app),
	)
	return rootCmd
}

// ExecuteResult carries the outcome of one command invocation.
type ExecuteResult struct {
	ExitCode int
	Err      error
}

// RunWithConfig executes the command tree with explicit args, returning the
// exit code instead of terminating the process.
func RunWithConfig(app *App, args []string) ExecuteResult {
	rootCmd := NewRootCommand(app)
	rootCmd.SetArgs(args)

	if err := rootCmd.Execute(); err != nil {
		if code, ok := IsExitError(err); ok {
			return ExecuteResult{ExitCode: code, Err: err}
		}
		return ExecuteResult{ExitCode: 1, Err: err}
	}
	return ExecuteResult{}
}

// Execute is the process entry point used by main.
func Execute() {
	app, err := NewApp()
	if err != nil {
		fmt.Fprintf(os.Stderr, "packforge: %v\n", err)
		os.Exit(1)
	}

	result := RunWithConfig(app, os.Args[1:])
	if result.ExitCode != 0 {
		os.Exit(result.ExitCode)
	}
}

// imageGenerator picks the generation backend: the API-backed client when
// credentials exist and the run is live, a deterministic placeholder
// otherwise.
func (app *App) imageGenerator(dryRun bool) gen.ImageGenerator {
	client := gen.NewClient(app.Config.Images.BaseURL, app.Config.Images.APIKey,
		app.Config.Images.Models, app.Logger)
	if dryRun || !client.Available() {
		if !dryRun {
			app.Printer.Warnf("no image API key configured, using placeholder images")
		}
		return gen.PlaceholderGenerator{}
	}
	return client
}
