package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"sheetsync/config"
)

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open the active config in an editor.",
	Long: `Open the active sheetsync config file in your editor.

Editor selection order:
1) $VISUAL
2) $EDITOR
3) vi

If no config file exists yet, this command creates one with an example template first.
After the editor exits, the content is validated. An invalid edit is moved to
<config>.rejected and the previous file content is restored.`,
	Example: `
  # Edit active config
  sheetsync config edit

  # Edit with a specific editor
  EDITOR="code --wait" sheetsync config edit
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, err := resolveConfigEditPath(cfgFile, viper.ConfigFileUsed())
		if err != nil {
			return err
		}

		created, err := ensureConfigFileWithTemplate(configPath)
		if err != nil {
			return err
		}
		if created {
			fmt.Printf("No config file found. Created example config at: %s\n", configPath)
		}

		previous, err := os.ReadFile(configPath)
		if err != nil {
			return fmt.Errorf("reading config failed: %w", err)
		}

		editor := resolveEditorValue(os.Getenv("VISUAL"), os.Getenv("EDITOR"))
		editorCommand, err := buildEditorCommand(editor, configPath)
		if err != nil {
			return err
		}
		editorCommand.Stdin = os.Stdin
		editorCommand.Stdout = os.Stdout
		editorCommand.Stderr = os.Stderr
		if err := editorCommand.Run(); err != nil {
			return fmt.Errorf("opening editor failed: %w", err)
		}

		rejected, err := validateEditedConfig(configPath, previous)
		if err != nil {
			if rejected != "" {
				fmt.Printf("Invalid edit kept at: %s\n", rejected)
			}
			return err
		}

		fmt.Printf("Configuration saved and validated: %s\n", configPath)
		return nil
	},
}

// validateEditedConfig checks the file at path. When it is invalid the edit
// is moved to path+".rejected", previous is written back and the rejected
// path is returned with the validation error.
func validateEditedConfig(path string, previous []byte) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading edited config failed: %w", err)
	}
	_, validationErr := config.ValidateYAMLContent(content)
	if validationErr == nil {
		return "", nil
	}

	rejected := path + ".rejected"
	if err := os.WriteFile(rejected, content, 0o600); err != nil {
		return "", errors.Join(fmt.Errorf("config validation failed in %s: %w", path, validationErr), fmt.Errorf("saving rejected edit failed: %w", err))
	}
	if err := os.WriteFile(path, previous, 0o600); err != nil {
		return rejected, errors.Join(fmt.Errorf("config validation failed in %s: %w", path, validationErr), fmt.Errorf("restoring previous config failed: %w", err))
	}
	return rejected, fmt.Errorf("config validation failed in %s, previous version restored: %w", path, validationErr)
}

func resolveConfigEditPath(configFileFlag, configFileUsed string) (string, error) {
	if path := strings.TrimSpace(configFileFlag); path != "" {
		return path, nil
	}
	if path := strings.TrimSpace(configFileUsed); path != "" {
		return path, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".sheetsync.yaml"), nil
}

// ensureConfigFileWithTemplate writes the example template to path unless a
// file already exists there. The file holds an access token, so it is
// created owner-only.
func ensureConfigFileWithTemplate(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("checking config file failed: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("creating config directory failed: %w", err)
	}
	if err := os.WriteFile(path, []byte(config.ExampleYAML()), 0o600); err != nil {
		return false, fmt.Errorf("creating example config failed: %w", err)
	}
	return true, nil
}

func resolveEditorValue(visual, editor string) string {
	for _, candidate := range []string{visual, editor} {
		if strings.TrimSpace(candidate) != "" {
			return candidate
		}
	}
	return "vi"
}

func buildEditorCommand(editorValue, configPath string) (*exec.Cmd, error) {
	fields := strings.Fields(editorValue)
	if len(fields) == 0 {
		return nil, fmt.Errorf("editor command is empty")
	}
	return exec.Command(fields[0], append(fields[1:], configPath)...), nil
}

func init() {
	configCmd.AddCommand(configEditCmd)
}
