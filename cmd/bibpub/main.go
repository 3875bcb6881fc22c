// Package main provides the bibpub CLI entry point.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/matsen/bibpub/internal/config"
	"github.com/matsen/bibpub/internal/pipeline"
	"github.com/matsen/bibpub/internal/publication"
	"github.com/matsen/bibpub/internal/splice"
)

// Version is set at build time via ldflags
var Version = "dev"

var (
	// humanOutput controls whether to use human-readable output
	humanOutput bool
	verbose     bool

	rootDir    string
	configFile string
	bibFile    string
	htmlFile   string

	logger = zap.NewNop()
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(reportError(err))
	}
}

var rootCmd = &cobra.Command{
	Use:   "bibpub",
	Short: "Regenerate publication lists from a BibTeX file",
	Long: `bibpub regenerates the journal and conference publication lists of a
static HTML page from a BibTeX bibliography.

The page must contain each of these comment markers exactly once:

  <!-- BIBTEX_JOURNALS_START -->    <!-- BIBTEX_JOURNALS_END -->
  <!-- BIBTEX_CONFERENCE_START -->  <!-- BIBTEX_CONFERENCE_END -->

Everything between a pair of markers is replaced on every run.
Run without arguments to update the page (same as "bibpub update").`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
		if verbose {
			cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		l, err := cfg.Build()
		if err != nil {
			return fmt.Errorf("initializing logger: %w", err)
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
	RunE: runUpdate,
}

func init() {
	// Load .env file if present (for BIBPUB_ROOT)
	_ = godotenv.Load()

	pf := rootCmd.PersistentFlags()
	pf.BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	pf.BoolVarP(&verbose, "verbose", "v", false, "Log pipeline details to stderr")
	pf.StringVar(&rootDir, "root", "", "Site root directory (default: $"+config.RootEnv+" or current directory)")
	pf.StringVar(&configFile, "config", "", "Config file (default: <root>/"+config.ConfigFile+")")
	pf.StringVar(&bibFile, "bib", "", "Bibliography file, relative to the site root")
	pf.StringVar(&htmlFile, "html", "", "HTML page to update, relative to the site root")

	addUpdateFlags(rootCmd)
	rootCmd.Version = Version
}

// configError marks failures to load or validate configuration.
type configError struct{ err error }

func (e *configError) Error() string { return e.err.Error() }
func (e *configError) Unwrap() error { return e.err }

// errCheckFailed is returned by check after its report has been printed.
var errCheckFailed = errors.New("check found problems")

// getSiteRoot returns the site root: --root, then $BIBPUB_ROOT, then the
// current directory.
func getSiteRoot() (string, error) {
	if rootDir != "" {
		return config.ExpandPath(rootDir), nil
	}
	if root := os.Getenv(config.RootEnv); root != "" {
		return config.ExpandPath(root), nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting current directory: %w", err)
	}
	return cwd, nil
}

// loadConfig reads the site config and applies command-line overrides.
func loadConfig() (*config.Config, string, error) {
	root, err := getSiteRoot()
	if err != nil {
		return nil, "", err
	}

	path := configFile
	if path == "" {
		path = config.ConfigPath(root)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", &configError{err}
	}

	if bibFile != "" {
		cfg.BibFile = bibFile
	}
	if htmlFile != "" {
		cfg.HTMLFile = htmlFile
	}

	logger.Debug("configuration loaded",
		zap.String("root", root),
		zap.String("config", path),
		zap.String("bib_file", cfg.BibFile),
		zap.String("html_file", cfg.HTMLFile))
	return cfg, root, nil
}

// loadOptions resolves the pipeline options for the current invocation.
func loadOptions() (pipeline.Options, *config.Config, error) {
	cfg, root, err := loadConfig()
	if err != nil {
		return pipeline.Options{}, nil, err
	}
	return pipeline.NewOptions(cfg, root), cfg, nil
}

// exitCode maps an error to the process exit code.
func exitCode(err error) int {
	var (
		parseErr  *publication.ParseError
		markerErr *splice.MarkerError
		cfgErr    *configError
	)
	switch {
	case errors.Is(err, errCheckFailed):
		return ExitCheckFailed
	case errors.As(err, &cfgErr):
		return ExitConfigError
	case errors.As(err, &parseErr), errors.As(err, &markerErr):
		return ExitDataError
	default:
		return ExitError
	}
}

// reportError prints err (unless already reported) and returns the exit code.
func reportError(err error) int {
	code := exitCode(err)
	if code == ExitCheckFailed {
		return code
	}
	if humanOutput {
		outputError(code, "%v", err)
	} else {
		outputJSON(ErrorResponse{Error: err.Error()})
	}
	return code
}
