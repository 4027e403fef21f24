// Package cli provides the replica command line interface.
//
// Commands run against an App built once per invocation from the resolved
// configuration. The composition root in cmd/replica supplies the Builder.
package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/replica/internal/core/domain"
	"github.com/custodia-labs/replica/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// annotationNoApp marks commands that run without building the App.
const annotationNoApp = "replica.no-app"

var (
	configPath string
	verbose    bool
	jsonOutput bool

	builder Builder
	app     *App
	cfg     domain.Config
)

var rootCmd = &cobra.Command{
	Use:   "replica",
	Short: "Replicate a headless CMS space locally",
	Long: `replica keeps a local copy of a content space in sync with its delivery API
and serves reads from it.

Documents are stored in memory or SQLite, or read through from the remote
API. Sync runs on a schedule, on demand, or when a webhook arrives.`,
	SilenceUsage:       true,
	PersistentPreRunE:  setup,
	PersistentPostRunE: teardown,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "config file (default ~/.replica/config.toml)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	flags.BoolVar(&jsonOutput, "json", false, "print JSON output")
	flags.String("space", "", "space id")
	flags.String("backend", "", "storage backend (memory, sqlite, remote, lazy)")
	flags.String("data-dir", "", "directory of the SQLite database")
	flags.String("export-dir", "", "read documents from an export directory instead of the API")
}

// SetBuilder sets the function that builds the App for each command.
func SetBuilder(b Builder) {
	builder = b
}

// SetVersion sets the version printed by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command. The App is closed even when the command fails.
func Execute() error {
	err := rootCmd.Execute()
	if closeErr := teardown(nil, nil); err == nil {
		err = closeErr
	}
	return err
}

func setup(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)

	loaded, err := loadConfig(cmd)
	if skipsApp(cmd) {
		if err != nil {
			// config init --force must still be able to replace a broken file
			logger.Error("%v", err)
			loaded = domain.DefaultConfig()
		}
		cfg = loaded
		return nil
	}
	if err != nil {
		return err
	}
	cfg = loaded

	if builder == nil {
		return errors.New("application not configured")
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	built, err := builder(cfg)
	if err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}
	app = built
	logger.Debug("backend %s, space %q", cfg.Backend, cfg.Space)
	return nil
}

func teardown(_ *cobra.Command, _ []string) error {
	if app == nil {
		return nil
	}
	err := app.Close()
	app = nil
	return err
}

// skipsApp reports whether cmd runs without the App: cobra's own commands
// and those marked annotationNoApp, directly or through a parent.
func skipsApp(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Name() == "help" || c.Name() == "completion" {
			return true
		}
		if _, ok := c.Annotations[annotationNoApp]; ok {
			return true
		}
	}
	return false
}
