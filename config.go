package lighthouse

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so yaml values like "10s" decode cleanly.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	d.Duration = v
	return nil
}

// Environment variable overrides. Secrets never live in the yaml file.
const (
	configPathEnv        = "LIGHTHOUSE_CONFIG"
	dashboardPasswordEnv = "DASHBOARD_PASSWORD"
	clipServiceURLEnv    = "CLIP_SERVICE_URL"
	clipAPIKeyEnv        = "CLIP_API_KEY"
	databasePathEnv      = "DATABASE_PATH"
)

// DefaultPrompts is the candidate prompt set scored against every
// submission. Deployments targeting a different collection task replace
// this in the config file.
var DefaultPrompts = []string{
	"a person performing a household cleaning activity",
	"a person cooking a meal in a kitchen",
	"a person washing or folding laundry",
	"an unrelated scene with no household activity",
}

// Config holds the settings required across the application.
type Config struct {
	Server    ServerConfig   `yaml:"server"`
	Database  DatabaseConfig `yaml:"database"`
	Clip      ClipConfig     `yaml:"clip"`
	Pipeline  PipelineConfig `yaml:"pipeline"`
	Geo       GeoConfig      `yaml:"geo"`
	LogLevel  string         `yaml:"logLevel"`
	Dashboard DashConfig     `yaml:"dashboard"`
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// DatabaseConfig describes the sqlite decision log.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// ClipConfig wires the embedding service.
type ClipConfig struct {
	BaseURL string   `yaml:"baseUrl"`
	APIKey  string   `yaml:"apiKey"`
	Model   string   `yaml:"model"`
	Timeout Duration `yaml:"timeout"`
}

// PipelineConfig groups the validation thresholds and the prompt set.
type PipelineConfig struct {
	Prompts       []string `yaml:"prompts"`
	MinConfidence float64  `yaml:"minConfidence"`
	BlurThreshold float64  `yaml:"blurThreshold"`
	FetchTimeout  Duration `yaml:"fetchTimeout"`
	UserAgent     string   `yaml:"userAgent"`
}

// GeoConfig describes the IP lookup service.
type GeoConfig struct {
	Endpoint string   `yaml:"endpoint"`
	Timeout  Duration `yaml:"timeout"`
}

// DashConfig holds dashboard access settings. The password is normally
// supplied via DASHBOARD_PASSWORD rather than the file.
type DashConfig struct {
	Password string `yaml:"password"`
}

// LoadConfig reads the yaml file at path (or $LIGHTHOUSE_CONFIG when path
// is empty), applies environment overrides and fills defaults. A missing
// file is not an error; the defaults plus environment are a complete
// configuration.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(configPathEnv)
	}

	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(dashboardPasswordEnv); v != "" {
		c.Dashboard.Password = v
	}
	if v := os.Getenv(clipServiceURLEnv); v != "" {
		c.Clip.BaseURL = v
	}
	if v := os.Getenv(clipAPIKeyEnv); v != "" {
		c.Clip.APIKey = v
	}
	if v := os.Getenv(databasePathEnv); v != "" {
		c.Database.Path = v
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Database.Path == "" {
		c.Database.Path = "logs.db"
	}
	if c.Clip.Model == "" {
		c.Clip.Model = "clip-vit-base-patch32"
	}
	if len(c.Pipeline.Prompts) == 0 {
		c.Pipeline.Prompts = append([]string(nil), DefaultPrompts...)
	}
	if c.Pipeline.MinConfidence <= 0 {
		c.Pipeline.MinConfidence = DefaultMinConfidence
	}
	if c.Pipeline.BlurThreshold <= 0 {
		c.Pipeline.BlurThreshold = DefaultBlurThreshold
	}
	if c.Pipeline.FetchTimeout.Duration <= 0 {
		c.Pipeline.FetchTimeout.Duration = defaultFetchTimeout
	}
	if c.Geo.Endpoint == "" {
		c.Geo.Endpoint = DefaultGeoEndpoint
	}
	if c.Geo.Timeout.Duration <= 0 {
		c.Geo.Timeout.Duration = defaultGeoTimeout
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}
