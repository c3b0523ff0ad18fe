package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/AdbAutoPlayer/shell/internal/client"
	"github.com/AdbAutoPlayer/shell/internal/config"
	"github.com/AdbAutoPlayer/shell/internal/models"
)

// settingField reads and writes one App.toml key as text.
type settingField struct {
	get func(s *models.AppSettings) string
	set func(s *models.AppSettings, value string) error
}

func boolField(ptr func(s *models.AppSettings) *bool) settingField {
	return settingField{
		get: func(s *models.AppSettings) string { return strconv.FormatBool(*ptr(s)) },
		set: func(s *models.AppSettings, value string) error {
			b, err := strconv.ParseBool(value)
			if err != nil {
				return fmt.Errorf("expected true or false, got %q", value)
			}
			*ptr(s) = b
			return nil
		},
	}
}

func enumField(ptr func(s *models.AppSettings) *string, allowed []string) settingField {
	return settingField{
		get: func(s *models.AppSettings) string { return *ptr(s) },
		set: func(s *models.AppSettings, value string) error {
			if !slices.Contains(allowed, value) {
				return fmt.Errorf("expected one of %s, got %q", strings.Join(allowed, ", "), value)
			}
			*ptr(s) = value
			return nil
		},
	}
}

var logLevels = []string{
	string(models.LogLevelDebug), string(models.LogLevelInfo), string(models.LogLevelWarning),
	string(models.LogLevelError), string(models.LogLevelFatal),
}

var settingFields = map[string]settingField{
	"profiles.profiles": {
		get: func(s *models.AppSettings) string { return strings.Join(s.Profiles.Profiles, ",") },
		set: func(s *models.AppSettings, value string) error {
			var names []string
			for _, name := range strings.Split(value, ",") {
				if name = strings.TrimSpace(name); name != "" {
					names = append(names, name)
				}
			}
			if len(names) == 0 {
				return errors.New("at least one profile is required")
			}
			s.Profiles.Profiles = names
			return nil
		},
	},
	"ui.theme":  enumField(func(s *models.AppSettings) *string { return &s.UI.Theme }, models.Themes),
	"ui.locale": enumField(func(s *models.AppSettings) *string { return &s.UI.Locale }, models.Locales),
	"ui.close_should_minimize": boolField(func(s *models.AppSettings) *bool {
		return &s.UI.CloseShouldMinimize
	}),
	"notifications.desktop_notifications": boolField(func(s *models.AppSettings) *bool {
		return &s.Notifications.DesktopNotifications
	}),
	"notifications.discord_webhook": {
		get: func(s *models.AppSettings) string { return s.Notifications.DiscordWebhook },
		set: func(s *models.AppSettings, value string) error {
			s.Notifications.DiscordWebhook = value
			return nil
		},
	},
	"logging.level": {
		get: func(s *models.AppSettings) string { return string(s.Logging.Level) },
		set: func(s *models.AppSettings, value string) error {
			value = strings.ToUpper(value)
			if !slices.Contains(logLevels, value) {
				return fmt.Errorf("expected one of %s, got %q", strings.Join(logLevels, ", "), value)
			}
			s.Logging.Level = models.LogLevel(value)
			return nil
		},
	},
	"logging.task_log_limit": {
		get: func(s *models.AppSettings) string { return strconv.Itoa(s.Logging.TaskLogLimit) },
		set: func(s *models.AppSettings, value string) error {
			n, err := strconv.Atoi(value)
			if err != nil || n < 0 {
				return fmt.Errorf("expected a non-negative number, got %q", value)
			}
			s.Logging.TaskLogLimit = n
			return nil
		},
	},
	"advanced.shutdown_after_tasks": boolField(func(s *models.AppSettings) *bool {
		return &s.Advanced.ShutdownAfterTasks
	}),
}

func settingKeys() []string {
	keys := make([]string, 0, len(settingFields))
	for k := range settingFields {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// applySetting sets key to value and validates the result.
func applySetting(s *models.AppSettings, key, value string) error {
	field, ok := settingFields[key]
	if !ok {
		return fmt.Errorf("unknown setting %q (known: %s)", key, strings.Join(settingKeys(), ", "))
	}
	if err := field.set(s, value); err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	return s.Validate()
}

var settingsCmd = &cobra.Command{
	Use:     "settings",
	Aliases: []string{"config"},
	Short:   "Show or change App.toml settings",
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the current settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, source, err := loadSettings()
		if err != nil {
			return err
		}

		fmt.Println(styleSection.Render("App Settings") + " " + styleHint.Render("("+source+")"))
		section := ""
		for _, key := range settingKeys() {
			prefix, name, _ := strings.Cut(key, ".")
			if prefix != section {
				section = prefix
				fmt.Printf("\n  %s\n", styleSection.Render("["+section+"]"))
			}
			fmt.Printf("    %s = %s\n", styleLabel.Render(name), styleValue.Render(settingFields[key].get(s)))
		}
		return nil
	},
}

var settingsPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the App.toml path",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.AppSettingsFile()
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change one setting",
	Long: `Change one setting. When the shell daemon is running the change goes
through it, so the running shell picks it up immediately.

Keys: ` + strings.Join(settingKeys(), ", "),
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, _, err := loadSettings()
		if err != nil {
			return err
		}
		if err := applySetting(s, args[0], args[1]); err != nil {
			return err
		}
		if err := saveSettings(s); err != nil {
			return err
		}
		fmt.Printf("%s %s = %s\n", styleSuccess.Render("Saved"), args[0], settingFields[args[0]].get(s))
		return nil
	},
}

var settingsSaveProfileCmd = &cobra.Command{
	Use:   "save-profile <profile-index> <file-name> [json|-]",
	Short: "Write a named settings document for a profile",
	Long: `Write a named settings document for a profile. The document is given
as JSON, either inline or on stdin ("-" or omitted), and stored as TOML
under <config dir>/<profile-index>/<file-name>.`,
	Args: cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		index, err := strconv.ParseUint(args[0], 10, 8)
		if err != nil {
			return fmt.Errorf("profile index must be between 0 and 255: %w", err)
		}

		var data []byte
		if len(args) == 3 && args[2] != "-" {
			data = []byte(args[2])
		} else {
			data, err = io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return err
			}
		}

		c, err := client.Connect()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		path, err := c.SaveDocument(ctx, uint8(index), args[1], data)
		if err != nil {
			return err
		}
		fmt.Printf("%s %s\n", styleSuccess.Render("Saved"), path)
		return nil
	},
}

func init() {
	settingsCmd.AddCommand(settingsPathCmd)
	settingsCmd.AddCommand(settingsSaveProfileCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsShowCmd)
}

// loadSettings reads the settings from the running daemon, or from App.toml
// when no daemon is running.
func loadSettings() (*models.AppSettings, string, error) {
	if c, err := client.Connect(); err == nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		form, err := c.SettingsForm(ctx)
		if err == nil {
			return &form.Settings, "daemon", nil
		}
		fmt.Fprintf(os.Stderr, "%s %v\n", styleWarning.Render("Warning:"), err)
	}

	path, err := config.AppSettingsFile()
	if err != nil {
		return nil, "", err
	}
	s, err := config.LoadAppSettings(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %v; showing defaults\n", styleWarning.Render("Warning:"), err)
	}
	return s, path, nil
}

func saveSettings(s *models.AppSettings) error {
	if c, err := client.Connect(); err == nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_, err := c.SaveAppSettings(ctx, *s)
		return err
	}

	path, err := config.AppSettingsFile()
	if err != nil {
		return err
	}
	return config.SaveAppSettings(path, s)
}
