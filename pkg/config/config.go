package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// WorkShiftHours is the length of a realistic operating day. The hourly
// follow cap must be able to reach the daily cap within it.
const WorkShiftHours = 16

// Config holds all configuration options for the bot
type Config struct {
	// DryRun turns every live action into a no-op
	DryRun bool `yaml:"dry_run" json:"dry_run"`

	Instagram InstagramConfig `yaml:"instagram" json:"instagram"`
	Limits    LimitsConfig    `yaml:"limits" json:"limits"`
	Follow    FollowConfig    `yaml:"follow" json:"follow"`
	Unfollow  UnfollowConfig  `yaml:"unfollow" json:"unfollow"`
	Timing    TimingConfig    `yaml:"timing" json:"timing"`
	Retry     RetryConfig     `yaml:"retry" json:"retry"`
	Storage   StorageConfig   `yaml:"storage" json:"storage"`
	Metrics   MetricsConfig   `yaml:"metrics" json:"metrics"`
	Logging   LoggingConfig   `yaml:"logging" json:"logging"`
}

// InstagramConfig holds the account and transport settings
type InstagramConfig struct {
	Username          string        `yaml:"username" json:"username" validate:"required"`
	SessionID         string        `yaml:"session_id" json:"session_id"`
	CSRFToken         string        `yaml:"csrf_token" json:"csrf_token"`
	UserAgent         string        `yaml:"user_agent" json:"user_agent"`
	BaseURL           string        `yaml:"base_url" json:"base_url" validate:"required,url"`
	RequestsPerMinute int           `yaml:"requests_per_minute" json:"requests_per_minute" validate:"gt=0"`
	PageSize          int           `yaml:"page_size" json:"page_size" validate:"gt=0,lte=200"`
	Timeout           time.Duration `yaml:"timeout" json:"timeout" validate:"gt=0"`
}

// LimitsConfig holds the rolling-window action budgets
type LimitsConfig struct {
	MaxFollowsPerHour int `yaml:"max_follows_per_hour" json:"max_follows_per_hour" validate:"gt=0"`
	MaxFollowsPerDay  int `yaml:"max_follows_per_day" json:"max_follows_per_day" validate:"gt=0"`
	MaxLikesPerDay    int `yaml:"max_likes_per_day" json:"max_likes_per_day" validate:"gte=0"`
}

// FollowConfig holds the follow eligibility bounds. Nil bounds are unchecked.
type FollowConfig struct {
	RatioMin         *float64 `yaml:"ratio_min" json:"ratio_min,omitempty"`
	RatioMax         *float64 `yaml:"ratio_max" json:"ratio_max,omitempty"`
	MaxFollowers     *int     `yaml:"max_followers" json:"max_followers,omitempty"`
	MaxFollowing     *int     `yaml:"max_following" json:"max_following,omitempty"`
	MinFollowers     *int     `yaml:"min_followers" json:"min_followers,omitempty"`
	MinFollowing     *int     `yaml:"min_following" json:"min_following,omitempty"`
	SkipPrivate      bool     `yaml:"skip_private" json:"skip_private"`
	EnableLikeImages bool     `yaml:"enable_like_images" json:"enable_like_images"`
	LikeImagesMin    int      `yaml:"like_images_min" json:"like_images_min" validate:"gte=1"`
	LikeImagesMax    int      `yaml:"like_images_max" json:"like_images_max" validate:"gtefield=LikeImagesMin"`
}

// UnfollowConfig holds the unfollow protections
type UnfollowConfig struct {
	DontUnfollowUntil time.Duration `yaml:"dont_unfollow_until" json:"dont_unfollow_until" validate:"gte=0"`
	ExcludeUsers      []string      `yaml:"exclude_users" json:"exclude_users"`
}

// TimingConfig holds the pauses between actions
type TimingConfig struct {
	Cooldown        time.Duration `yaml:"cooldown" json:"cooldown" validate:"gt=0"`
	BlockedCooldown time.Duration `yaml:"blocked_cooldown" json:"blocked_cooldown" validate:"gte=0"`
}

// RetryConfig holds retry settings for transient failures
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts" json:"max_attempts" validate:"gte=1"`
	BaseDelay   time.Duration `yaml:"base_delay" json:"base_delay" validate:"gte=0"`
}

// StorageConfig selects the history backend
type StorageConfig struct {
	Backend string `yaml:"backend" json:"backend" validate:"oneof=memory json sqlite badger"`
	Path    string `yaml:"path" json:"path"`
}

// MetricsConfig holds the Prometheus listener settings
type MetricsConfig struct {
	Addr string `yaml:"addr" json:"addr"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level" validate:"oneof=debug info warn error"`
	File   string `yaml:"file" json:"file"`
	Pretty bool   `yaml:"pretty" json:"pretty"`
}

func float64Ptr(v float64) *float64 { return &v }
func intPtr(v int) *int             { return &v }

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Instagram: InstagramConfig{
			UserAgent:         "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
			BaseURL:           "https://www.instagram.com",
			RequestsPerMinute: 30,
			PageSize:          50,
			Timeout:           30 * time.Second,
		},
		Limits: LimitsConfig{
			MaxFollowsPerHour: 20,
			MaxFollowsPerDay:  150,
			MaxLikesPerDay:    50,
		},
		Follow: FollowConfig{
			RatioMin:      float64Ptr(0.2),
			RatioMax:      float64Ptr(4.0),
			MinFollowers:  intPtr(10),
			MinFollowing:  intPtr(10),
			LikeImagesMin: 1,
			LikeImagesMax: 2,
		},
		Unfollow: UnfollowConfig{
			DontUnfollowUntil: 3 * 24 * time.Hour,
		},
		Timing: TimingConfig{
			Cooldown:        10 * time.Minute,
			BlockedCooldown: 3 * time.Hour,
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   30 * time.Minute,
		},
		Storage: StorageConfig{
			Backend: "json",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Pretty: true,
		},
	}
}

// LoadFromEnv loads configuration from INSTABOT_* environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	setDuration := func(key string, dst *time.Duration) {
		if v := os.Getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}

	setString("INSTABOT_USERNAME", &c.Instagram.Username)
	setString("INSTABOT_SESSION_ID", &c.Instagram.SessionID)
	setString("INSTABOT_CSRF_TOKEN", &c.Instagram.CSRFToken)
	setString("INSTABOT_USER_AGENT", &c.Instagram.UserAgent)
	setString("INSTABOT_BASE_URL", &c.Instagram.BaseURL)
	setInt("INSTABOT_REQUESTS_PER_MINUTE", &c.Instagram.RequestsPerMinute)

	setInt("INSTABOT_MAX_FOLLOWS_PER_HOUR", &c.Limits.MaxFollowsPerHour)
	setInt("INSTABOT_MAX_FOLLOWS_PER_DAY", &c.Limits.MaxFollowsPerDay)
	setInt("INSTABOT_MAX_LIKES_PER_DAY", &c.Limits.MaxLikesPerDay)

	setDuration("INSTABOT_DONT_UNFOLLOW_UNTIL", &c.Unfollow.DontUnfollowUntil)
	if v := os.Getenv("INSTABOT_EXCLUDE_USERS"); v != "" {
		c.Unfollow.ExcludeUsers = splitList(v)
	}

	if v := os.Getenv("INSTABOT_DRY_RUN"); v != "" {
		c.DryRun = strings.ToLower(v) == "true" || v == "1"
	}

	setString("INSTABOT_STORAGE_BACKEND", &c.Storage.Backend)
	setString("INSTABOT_STORAGE_PATH", &c.Storage.Path)
	setString("INSTABOT_METRICS_ADDR", &c.Metrics.Addr)
	setString("INSTABOT_LOG_LEVEL", &c.Logging.Level)

	return errors.Join(errs...)
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = findConfigFile()
		if path == "" {
			return nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func findConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		".instabot.yaml",
		".instabot.yml",
		filepath.Join(home, ".config", "instabot", "config.yaml"),
		filepath.Join(home, ".config", "instabot", "config.yml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and the cross-field invariants the
// throttle relies on.
func (c *Config) Validate() error {
	var errs []error

	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				errs = append(errs, fmt.Errorf("%s: failed %q constraint", fe.Namespace(), fe.Tag()))
			}
		} else {
			errs = append(errs, err)
		}
	}

	if c.Limits.MaxFollowsPerHour*WorkShiftHours < c.Limits.MaxFollowsPerDay {
		errs = append(errs, fmt.Errorf("max_follows_per_hour (%d) x %dh work shift cannot reach max_follows_per_day (%d)",
			c.Limits.MaxFollowsPerHour, WorkShiftHours, c.Limits.MaxFollowsPerDay))
	}

	f := c.Follow
	if f.RatioMin != nil && f.RatioMax != nil && *f.RatioMin > *f.RatioMax {
		errs = append(errs, errors.New("follow.ratio_min must not exceed follow.ratio_max"))
	}
	if f.MinFollowers != nil && f.MaxFollowers != nil && *f.MinFollowers > *f.MaxFollowers {
		errs = append(errs, errors.New("follow.min_followers must not exceed follow.max_followers"))
	}
	if f.MinFollowing != nil && f.MaxFollowing != nil && *f.MinFollowing > *f.MaxFollowing {
		errs = append(errs, errors.New("follow.min_following must not exceed follow.max_following"))
	}

	return errors.Join(errs...)
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration.
// Only keys present in the map are applied.
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if v, ok := flags["username"].(string); ok && v != "" {
		c.Instagram.Username = v
	}
	if v, ok := flags["dry-run"].(bool); ok && v {
		c.DryRun = true
	}
	if v, ok := flags["storage"].(string); ok && v != "" {
		c.Storage.Backend = v
	}
	if v, ok := flags["data-dir"].(string); ok && v != "" {
		c.Storage.Path = v
	}
	if v, ok := flags["log-level"].(string); ok && v != "" {
		c.Logging.Level = v
	}
	if v, ok := flags["metrics-addr"].(string); ok && v != "" {
		c.Metrics.Addr = v
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".instabot.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
