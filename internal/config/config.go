package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"ChannelBanner/internal/domain"
)

const (
	defaultTimezone   = "UTC"
	configPathEnv     = "BANNER_CONFIG"
	envFileEnv        = "ENV_FILE"
	apiKeyEnv         = "YOUTUBE_API_KEY"
	channelIDEnv      = "YOUTUBE_CHANNEL_ID"
	driveFolderEnv    = "DRIVE_FOLDER_ID"
	destinationEnv    = "BANNER_DESTINATION"
	goalEnv           = "BANNER_GOAL"
	scheduleEnv       = "BANNER_SCHEDULE"
	databaseDSNEnv    = "DATABASE_DSN"
	logLevelEnv       = "LOG_LEVEL"
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv = "TELEGRAM_CHAT_ID"
)

// Config holds every setting a run needs; nothing reads the environment after Load.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	YouTube       YouTubeConfig      `yaml:"youtube"`
	Goal          int                `yaml:"goal"`
	Banner        BannerConfig       `yaml:"banner"`
	Publish       PublishConfig      `yaml:"publish"`
	OAuth         OAuthConfig        `yaml:"oauth"`
	HTTP          HTTPConfig         `yaml:"http"`
	Database      DatabaseConfig     `yaml:"database"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Notifications NotificationConfig `yaml:"notifications"`
}

// LoggingConfig selects the slog level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// YouTubeConfig describes the metric source.
type YouTubeConfig struct {
	APIKey    string `yaml:"apiKey"`
	ChannelID string `yaml:"channelId"`
	Endpoint  string `yaml:"endpoint"`
}

// BannerConfig controls the rendered artifact.
type BannerConfig struct {
	Output        string `yaml:"output"`
	PreferredFont string `yaml:"preferredFont"`
	FallbackFont  string `yaml:"fallbackFont"`
}

// PublishConfig picks the destination variant. Endpoint overrides the Google API base URL.
type PublishConfig struct {
	Destination   domain.Destination `yaml:"destination"`
	DriveFolderID string             `yaml:"driveFolderId"`
	Endpoint      string             `yaml:"endpoint"`
	SkipUnchanged bool               `yaml:"skipUnchanged"`
}

// OAuthConfig locates the client secret and the token cache.
type OAuthConfig struct {
	CredentialsFile string        `yaml:"credentialsFile"`
	TokenFile       string        `yaml:"tokenFile"`
	ConsentTimeout  time.Duration `yaml:"consentTimeout"`
}

// HTTPConfig bounds every outbound call.
type HTTPConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}

// DatabaseConfig describes Postgres connection details. Empty DSN disables history.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// SchedulerConfig defines when the pipeline repeats. Empty expression means run once.
type SchedulerConfig struct {
	CronExpression string         `yaml:"cronExpression"`
	Timezone       string         `yaml:"timezone"`
	location       *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// NotificationConfig encapsulates outbound channels (Telegram, etc.).
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
	Endpoint string `yaml:"endpoint"`
}

// Load reads .env files, the YAML configuration (if present) and applies environment overrides.
func Load() Config {
	loadEnvFiles()

	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	return cfg
}

func loadEnvFiles() {
	if envFile := os.Getenv(envFileEnv); envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			log.Printf("config: cannot load %s: %v", envFile, err)
		}
		return
	}

	// godotenv.Load never overrides variables that are already set.
	for _, name := range []string{".env.local", ".env"} {
		if err := godotenv.Load(name); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Printf("config: cannot load %s: %v", name, err)
		}
	}
}

// Validate reports the first missing or malformed setting. It performs no network I/O.
func (c Config) Validate() error {
	var missing []string
	if c.YouTube.APIKey == "" {
		missing = append(missing, apiKeyEnv)
	}
	if c.YouTube.ChannelID == "" {
		missing = append(missing, channelIDEnv)
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: required environment variables %s", domain.ErrConfigMissing, strings.Join(missing, ", "))
	}

	if c.Goal <= 0 {
		return fmt.Errorf("%w: goal must be positive, got %d", domain.ErrInvalidArgument, c.Goal)
	}

	if !c.Publish.Destination.Valid() {
		return fmt.Errorf("%w: unknown destination %q", domain.ErrConfigMissing, c.Publish.Destination)
	}
	if c.Publish.Destination == domain.DestinationDrive && c.Publish.DriveFolderID == "" {
		return fmt.Errorf("%w: %s is required for the drive destination", domain.ErrConfigMissing, driveFolderEnv)
	}

	if _, err := os.Stat(c.OAuth.CredentialsFile); err != nil {
		return fmt.Errorf("%w: %s not found, download it from Google Cloud Console: %v",
			domain.ErrConfigMissing, c.OAuth.CredentialsFile, err)
	}

	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(apiKeyEnv); v != "" {
		c.YouTube.APIKey = v
	}

	if v := os.Getenv(channelIDEnv); v != "" {
		c.YouTube.ChannelID = v
	}

	if v := os.Getenv(driveFolderEnv); v != "" {
		c.Publish.DriveFolderID = v
	}

	if v := os.Getenv(destinationEnv); v != "" {
		c.Publish.Destination = domain.Destination(strings.ToLower(strings.TrimSpace(v)))
	}

	if v := os.Getenv(scheduleEnv); v != "" {
		c.Scheduler.CronExpression = v
	}

	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}

	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}

	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}

	if v := os.Getenv(goalEnv); v != "" {
		if goal, err := strconv.Atoi(v); err == nil {
			c.Goal = goal
		} else {
			log.Printf("config: ignoring %s=%q: %v", goalEnv, v, err)
		}
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}

	if override.YouTube.APIKey != "" {
		base.YouTube.APIKey = override.YouTube.APIKey
	}
	if override.YouTube.ChannelID != "" {
		base.YouTube.ChannelID = override.YouTube.ChannelID
	}
	if override.YouTube.Endpoint != "" {
		base.YouTube.Endpoint = override.YouTube.Endpoint
	}

	if override.Goal != 0 {
		base.Goal = override.Goal
	}

	if override.Banner.Output != "" {
		base.Banner.Output = override.Banner.Output
	}
	if override.Banner.PreferredFont != "" {
		base.Banner.PreferredFont = override.Banner.PreferredFont
	}
	if override.Banner.FallbackFont != "" {
		base.Banner.FallbackFont = override.Banner.FallbackFont
	}

	if override.Publish.Destination != "" {
		base.Publish.Destination = override.Publish.Destination
	}
	if override.Publish.DriveFolderID != "" {
		base.Publish.DriveFolderID = override.Publish.DriveFolderID
	}
	if override.Publish.Endpoint != "" {
		base.Publish.Endpoint = override.Publish.Endpoint
	}
	if override.Publish.SkipUnchanged {
		base.Publish.SkipUnchanged = true
	}

	if override.OAuth.CredentialsFile != "" {
		base.OAuth.CredentialsFile = override.OAuth.CredentialsFile
	}
	if override.OAuth.TokenFile != "" {
		base.OAuth.TokenFile = override.OAuth.TokenFile
	}
	if override.OAuth.ConsentTimeout > 0 {
		base.OAuth.ConsentTimeout = override.OAuth.ConsentTimeout
	}

	if override.HTTP.Timeout > 0 {
		base.HTTP.Timeout = override.HTTP.Timeout
	}

	if override.Database.DSN != "" {
		base.Database = override.Database
	}

	if override.Scheduler.CronExpression != "" {
		base.Scheduler.CronExpression = override.Scheduler.CronExpression
	}
	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}

	if override.Notifications.Telegram.BotToken != "" {
		base.Notifications.Telegram.BotToken = override.Notifications.Telegram.BotToken
	}
	if override.Notifications.Telegram.ChatID != "" {
		base.Notifications.Telegram.ChatID = override.Notifications.Telegram.ChatID
	}
	if override.Notifications.Telegram.Endpoint != "" {
		base.Notifications.Telegram.Endpoint = override.Notifications.Telegram.Endpoint
	}

	return base
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Logging: LoggingConfig{Level: "info"},
		YouTube: YouTubeConfig{Endpoint: "https://www.googleapis.com/youtube/v3"},
		Goal:    domain.DefaultGoal,
		Banner: BannerConfig{
			Output:        "youtube_banner_with_progress.png",
			PreferredFont: "roboto-bold.ttf",
			FallbackFont:  "arial.ttf",
		},
		Publish: PublishConfig{Destination: domain.DestinationBanner},
		OAuth: OAuthConfig{
			CredentialsFile: "credentials.json",
			TokenFile:       "token.json",
			ConsentTimeout:  5 * time.Minute,
		},
		HTTP:      HTTPConfig{Timeout: 30 * time.Second},
		Scheduler: SchedulerConfig{Timezone: defaultTimezone, location: tz},
		Notifications: NotificationConfig{
			Telegram: TelegramConfig{Endpoint: "https://api.telegram.org"},
		},
	}
}
