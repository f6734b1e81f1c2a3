package commands

import (
	"errors"
	"os"
	"runtime"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/conduit-lang/livepatch/internal/cli/config"
	"github.com/conduit-lang/livepatch/internal/cli/ui"
)

var (
	// Version information - set at build time
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
	GoVersion = "unknown"
)

// globalFlags are the persistent flags shared by every command
type globalFlags struct {
	configPath string
	verbose    bool
	noColor    bool
	format     string
}

// settings is the resolved configuration of one command invocation
type settings struct {
	config  *config.Config
	logger  *zap.Logger
	noColor bool
	format  string
}

// errReported marks an error whose message has already been written to the
// user, so Execute does not print it again.
type errReported struct{ error }

func (e errReported) Unwrap() error { return e.error }

// NewRootCommand creates the root command
func NewRootCommand() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "livepatch",
		Short: "Edit-and-continue symbol matching and delta generation",
		Long: color.CyanString(`livepatch - edit-and-continue delta tooling

livepatch replays edit sessions described as scenario files. Each generation
is compiled, matched against the previous one and committed as a new
baseline, showing which definitions keep their metadata rows, which are
emitted again and which are added.

Features:
  • Cross-generation symbol matching
  • Stable anonymous type and delegate indices
  • State machine slot reuse
  • Edit-and-continue diagnostics`),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "Config file (default: nearest livepatch.yml)")
	rootCmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Log session activity at debug level")
	rootCmd.PersistentFlags().BoolVar(&flags.noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().StringVar(&flags.format, "format", "", "Output format: table or json (default from config)")

	// Add subcommands
	rootCmd.AddCommand(NewVersionCommand())
	rootCmd.AddCommand(NewApplyCommand(flags))
	rootCmd.AddCommand(NewInspectCommand(flags))

	return rootCmd
}

// resolve loads the configuration and applies the persistent flags on top.
// The config file is the --config flag, else the nearest livepatch.yml.
func (f *globalFlags) resolve(cmd *cobra.Command) (*settings, error) {
	path := f.configPath
	if path == "" {
		if wd, err := os.Getwd(); err == nil {
			if found, err := config.FindConfigFile(wd); err == nil {
				path = found
			}
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		cmd.PrintErr(ui.ConfigError(err.Error(), nil, f.noColor))
		return nil, errReported{err}
	}

	if f.verbose {
		cfg.Log.Level = "debug"
	}
	logger, err := cfg.Log.NewLogger()
	if err != nil {
		return nil, err
	}

	s := &settings{
		config:  cfg,
		logger:  logger,
		noColor: f.noColor || !cfg.Output.Color,
		format:  cfg.Output.Format,
	}
	if f.format != "" {
		if f.format != config.FormatTable && f.format != config.FormatJSON {
			return nil, errors.New("--format must be 'table' or 'json'")
		}
		s.format = f.format
	}
	if s.noColor {
		color.NoColor = true
	}
	return s, nil
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  "Display the livepatch version, Git commit, build date, and Go version",
		Run: func(cmd *cobra.Command, args []string) {
			// Set GoVersion to actual runtime if not set at build time
			goVer := GoVersion
			if goVer == "unknown" {
				goVer = runtime.Version()
			}

			titleColor := color.New(color.FgCyan, color.Bold)
			valueColor := color.New(color.FgWhite)
			w := cmd.OutOrStdout()

			titleColor.Fprint(w, "livepatch version: ")
			valueColor.Fprintln(w, Version)

			titleColor.Fprint(w, "Git commit: ")
			valueColor.Fprintln(w, GitCommit)

			titleColor.Fprint(w, "Build date: ")
			valueColor.Fprintln(w, BuildDate)

			titleColor.Fprint(w, "Go version: ")
			valueColor.Fprintln(w, goVer)
		},
	}
}

// Execute runs the root command
func Execute() error {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		var reported errReported
		if !errors.As(err, &reported) {
			errorColor := color.New(color.FgRed, color.Bold)
			errorColor.Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", err)
		}
		return err
	}
	return nil
}
