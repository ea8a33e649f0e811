package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/cobra"
)

func NewConfigSetCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Args:  cobra.ExactArgs(2),
		Short: "Set a config value in the TOML file given by --config",
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], args[1]
			if app.ConfigPath == "" {
				return errors.New("config set needs --config <file>")
			}
			if !app.K.Exists(key) {
				return fmt.Errorf("unknown config key %q", key)
			}
			if err := setConfigValue(app.ConfigPath, key, value); err != nil {
				return fmt.Errorf("failed to set config: %w", err)
			}
			fmt.Println("Updated:", key, "=", value)
			return nil
		},
	}
}

// setConfigValue rewrites path with key set to value. Other keys already
// in the file are preserved.
func setConfigValue(path, key, value string) error {
	k := koanf.New(".")
	parser := toml.Parser()
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), parser); err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if err := k.Set(key, value); err != nil {
		return err
	}
	out, err := k.Marshal(parser)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return os.WriteFile(path, out, 0o644)
}
