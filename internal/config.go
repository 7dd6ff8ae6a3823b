package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/indexsync/internal/algolia"
	"github.com/starford/indexsync/internal/models"
	"github.com/starford/indexsync/internal/target"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Content ContentConfig     `yaml:"content"`
	Algolia AlgoliaConfig     `yaml:"algolia"`
	Journal JournalConfig     `yaml:"journal"`
	Watch   WatchConfig       `yaml:"watch"`
	Auth    AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Content.Validate(); err != nil {
		return err
	}
	if err := c.Algolia.Validate(); err != nil {
		return err
	}
	if err := c.Watch.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// ContentConfig describes the local content tree.
type ContentConfig struct {
	Path           string   `yaml:"path"`
	MarkdownFields []string `yaml:"markdown_fields"`
}

// Validate validates the content configuration.
func (c *ContentConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.MarkdownFields, validation.Each(validation.Required)),
	)
}

// AlgoliaConfig holds the search service connection settings. Missing
// credentials are allowed here; a publish run reports them instead.
type AlgoliaConfig struct {
	AppID             string        `yaml:"app_id"`
	APIKey            string        `yaml:"api_key"`
	BaseURL           string        `yaml:"base_url"`
	HitsPerPage       int           `yaml:"hits_per_page"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
	Timeout           time.Duration `yaml:"timeout"`
}

// Validate validates the Algolia configuration.
func (c *AlgoliaConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.BaseURL, validation.By(absoluteURL)),
		validation.Field(&c.HitsPerPage, validation.Required, validation.Min(1), validation.Max(1000)),
		validation.Field(&c.RequestsPerSecond, validation.Min(0.0)),
		validation.Field(&c.Burst, validation.Min(0)),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
	)
}

// Credentials returns the configured credentials.
func (c *AlgoliaConfig) Credentials() models.Credentials {
	return models.Credentials{AppID: c.AppID, APIKey: c.APIKey}
}

// ClientOptions converts the settings into client options.
func (c *AlgoliaConfig) ClientOptions() []algolia.Option {
	var opts []algolia.Option
	if c.BaseURL != "" {
		opts = append(opts, algolia.WithBaseURL(c.BaseURL))
	}
	if c.Timeout > 0 {
		opts = append(opts, algolia.WithTimeout(c.Timeout))
	}
	if c.RequestsPerSecond > 0 {
		opts = append(opts, algolia.WithRateLimit(c.RequestsPerSecond, c.Burst))
	}
	return opts
}

func absoluteURL(v any) error {
	s, _ := v.(string)
	if s == "" {
		return nil
	}
	u, err := url.Parse(s)
	if err != nil {
		return err
	}
	if u.Scheme == "" || u.Host == "" {
		return errors.New("must be an absolute URL")
	}
	return nil
}

// JournalConfig holds the run journal location. An empty path disables it.
type JournalConfig struct {
	Path string `yaml:"path"`
}

// Enabled reports whether runs are journaled.
func (c *JournalConfig) Enabled() bool {
	return c.Path != ""
}

// WatchConfig holds content watcher settings. In serve mode a non-empty
// Target is republished after every change.
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce"`
	Target   string        `yaml:"target"`
}

// Validate validates the watch configuration.
func (c *WatchConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Debounce, validation.Min(time.Duration(0))),
		validation.Field(&c.Target, validation.By(validTarget)),
	)
}

func validTarget(v any) error {
	s, _ := v.(string)
	if s == "" {
		return nil
	}
	_, err := target.Parse(s)
	return err
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Content: ContentConfig{
			Path: "./content",
		},
		Algolia: AlgoliaConfig{
			HitsPerPage: 100,
			Timeout:     30 * time.Second,
		},
		Journal: JournalConfig{
			Path: "./indexsync.db",
		},
		Watch: WatchConfig{
			Debounce: 500 * time.Millisecond,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
