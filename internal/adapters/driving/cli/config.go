package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/replica/internal/adapters/driven/config/file"
	"github.com/custodia-labs/replica/internal/core/domain"
	"github.com/custodia-labs/replica/internal/core/ports/driven"
)

var configCmd = &cobra.Command{
	Use:         "config",
	Short:       "Manage configuration",
	Long:        `Create, show and edit the replica configuration file.`,
	Annotations: map[string]string{annotationNoApp: "true"},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file with default values",
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Shows the configuration after applying the file, REPLICA_* environment
variables and flags.`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

var configGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Print a value from the configuration file",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Set a value in the configuration file",
	Long: `Sets a value in the configuration file. Keys are dotted paths:

  replica config set space abc123
  replica config set remote.access_token <token>
  replica config set sync.interval 5m
  replica config set locale.fallbacks.de-AT de-DE`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file path",
	Args:  cobra.NoArgs,
	RunE:  runConfigPath,
}

var configForce bool

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "overwrite an existing file")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	path, err := resolveConfigPath()
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil && !configForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("checking %s: %w", path, err)
	}

	if err := file.Save(path, domain.DefaultConfig()); err != nil {
		return err
	}
	cmd.Printf("Wrote %s\n", path)
	return nil
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	if jsonOutput {
		return printJSON(cmd, cfg)
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	cmd.Print(string(data))
	return nil
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	store, _, err := openConfigStore()
	if err != nil {
		return err
	}
	value, ok := store.Get(args[0])
	if !ok {
		return fmt.Errorf("%s is not set", args[0])
	}
	cmd.Println(value)
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	store, path, err := openConfigStore()
	if err != nil {
		return err
	}
	key, raw := args[0], args[1]
	if err := setConfigValue(store, path, key, raw); err != nil {
		return err
	}
	cmd.Printf("Set %s\n", key)
	return nil
}

func runConfigPath(cmd *cobra.Command, _ []string) error {
	path, err := resolveConfigPath()
	if err != nil {
		return err
	}
	cmd.Println(path)
	return nil
}

// openConfigStore opens the key/value view of the configuration file.
func openConfigStore() (driven.ConfigStore, string, error) {
	path, err := resolveConfigPath()
	if err != nil {
		return nil, "", err
	}
	if filepath.Base(path) != file.FileName {
		return nil, "", fmt.Errorf("config get/set need a file named %s, got %s", file.FileName, path)
	}
	store, err := file.NewConfigStore(filepath.Dir(path))
	if err != nil {
		return nil, "", fmt.Errorf("opening config: %w", err)
	}
	return store, path, nil
}

// setConfigValue stores raw under key, typed if the configuration accepts
// the typed value and as a string otherwise. The previous value is restored
// when neither form yields a valid configuration.
func setConfigValue(store driven.ConfigStore, path, key, raw string) error {
	prev, had := store.Get(key)

	var lastErr error
	for _, v := range candidates(raw) {
		if err := store.Set(key, v); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}
		loaded, err := file.Load(path)
		if err == nil {
			err = loaded.Validate()
		}
		if err == nil {
			return nil
		}
		lastErr = err
	}

	var restoreErr error
	if had {
		restoreErr = store.Set(key, prev)
	} else {
		restoreErr = store.Unset(key)
	}
	if restoreErr != nil {
		return fmt.Errorf("restoring %s: %w", key, restoreErr)
	}
	return fmt.Errorf("invalid value for %s: %w", key, lastErr)
}

// candidates lists the typed readings of raw, most specific first.
func candidates(raw string) []any {
	var out []any
	if b, err := strconv.ParseBool(raw); err == nil {
		out = append(out, b)
	}
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		out = append(out, i)
	} else if f, err := strconv.ParseFloat(raw, 64); err == nil {
		out = append(out, f)
	}
	return append(out, raw)
}
