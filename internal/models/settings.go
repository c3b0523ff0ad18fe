package models

import (
	_ "embed"
	"slices"

	"github.com/go-playground/validator/v10"
)

// AppName is the user-facing application name.
const AppName = "AdbAutoPlayer"

// AppSettingsFileName is the file name of the global settings document.
const AppSettingsFileName = "App.toml"

// Themes lists the accepted ui.theme values.
var Themes = []string{
	"catppuccin", "cerberus", "crimson", "fennec", "modern", "mona", "nosh",
	"nouveau", "pine", "rose", "seafoam", "terminus", "vintage", "vox", "wintry",
}

// Locales lists the accepted ui.locale values.
var Locales = []string{"en", "jp", "vn"}

//go:embed app_settings.schema.json
var appSettingsSchema string

// AppSettingsSchema returns the JSON schema describing AppSettings for the UI form generator.
func AppSettingsSchema() string {
	return appSettingsSchema
}

// ProfileSettings holds the ordered list of profile names.
type ProfileSettings struct {
	Profiles []string `toml:"profiles" json:"profiles" validate:"min=1,dive,required"`
}

// UISettings holds user interface preferences.
type UISettings struct {
	Theme               string `toml:"theme" json:"theme" validate:"oneof=catppuccin cerberus crimson fennec modern mona nosh nouveau pine rose seafoam terminus vintage vox wintry"`
	Locale              string `toml:"locale" json:"locale" validate:"oneof=en jp vn"`
	CloseShouldMinimize bool   `toml:"close_should_minimize" json:"close_should_minimize"`
}

// NotificationSettings holds the task-completed notification channels.
type NotificationSettings struct {
	DesktopNotifications bool   `toml:"desktop_notifications" json:"desktop_notifications"`
	DiscordWebhook       string `toml:"discord_webhook" json:"discord_webhook" validate:"omitempty,url"`
}

// LoggingSettings holds logging preferences.
type LoggingSettings struct {
	Level        LogLevel `toml:"level" json:"level" validate:"oneof=DEBUG INFO WARNING ERROR FATAL"`
	TaskLogLimit int      `toml:"task_log_limit" json:"task_log_limit" validate:"min=0"` // 0 keeps every task log
}

// AdvancedSettings holds options most users never touch.
type AdvancedSettings struct {
	ShutdownAfterTasks bool `toml:"shutdown_after_tasks" json:"shutdown_after_tasks"`
}

// AppSettings represents the global application settings.
// This corresponds to <config dir>/App.toml.
type AppSettings struct {
	Profiles      ProfileSettings      `toml:"profiles" json:"profiles"`
	UI            UISettings           `toml:"ui" json:"ui"`
	Notifications NotificationSettings `toml:"notifications" json:"notifications"`
	Logging       LoggingSettings      `toml:"logging" json:"logging"`
	Advanced      AdvancedSettings     `toml:"advanced" json:"advanced"`
}

// NewAppSettings creates settings with default values.
func NewAppSettings() *AppSettings {
	return &AppSettings{
		Profiles: ProfileSettings{
			Profiles: []string{"Default"},
		},
		UI: UISettings{
			Theme:               "cerberus",
			Locale:              "en",
			CloseShouldMinimize: false,
		},
		Notifications: NotificationSettings{
			DesktopNotifications: false,
			DiscordWebhook:       "",
		},
		Logging: LoggingSettings{
			Level:        LogLevelInfo,
			TaskLogLimit: 5,
		},
		Advanced: AdvancedSettings{
			ShutdownAfterTasks: false,
		},
	}
}

var validate = validator.New()

// Validate reports whether every enumerated field holds a documented value.
func (s *AppSettings) Validate() error {
	return validate.Struct(s)
}

// Clone returns a deep copy so callers can't alias the profile slice.
func (s AppSettings) Clone() AppSettings {
	s.Profiles.Profiles = slices.Clone(s.Profiles.Profiles)
	return s
}
