package config

import (
	"fmt"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultTimeout         = 30 * time.Second
	defaultWindowMinutes   = 10
	defaultHistoricalDays  = 7
	defaultLookbackDays    = 7
	defaultRecentHours     = 24
	defaultZScoreThreshold = 2.0
)

var (
	instance *Config
	once     sync.Once
)

// Config holds the pipeline settings shared by the cmd/ binaries
type Config struct {
	Service struct {
		BaseURL string   `yaml:"base_url"`
		Timeout Duration `yaml:"timeout"`
	} `yaml:"service"`
	Collector struct {
		Locations      []string `yaml:"locations"`
		WindowMinutes  int      `yaml:"window_minutes"`
		HistoricalDays int      `yaml:"historical_days"`
	} `yaml:"collector"`
	Detector struct {
		LookbackDays    int     `yaml:"lookback_days"`
		RecentHours     int     `yaml:"recent_hours"`
		ZScoreThreshold float64 `yaml:"z_score_threshold"`
	} `yaml:"detector"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Stream   string `yaml:"stream"`
	} `yaml:"redis"`
}

// Duration lets YAML carry Go duration strings such as "30s".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	if s == "" {
		*d = 0
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

func Load(configPath string) (*Config, error) {
	var err error
	once.Do(func() {
		instance = &Config{}

		data, readErr := os.ReadFile(configPath)
		if readErr != nil {
			err = fmt.Errorf("failed to read config file %s: %w", configPath, readErr)
			return
		}

		if parseErr := yaml.Unmarshal(data, instance); parseErr != nil {
			err = fmt.Errorf("failed to parse config: %w", parseErr)
			return
		}

		if url := os.Getenv("CARBONAWARE_BASE_URL"); url != "" {
			instance.Service.BaseURL = url
		}
		instance.applyDefaults()

		if validateErr := instance.validate(); validateErr != nil {
			err = validateErr
			return
		}
	})

	return instance, err
}

func Get() *Config {
	if instance == nil {
		panic("config not loaded - call config.Load() first")
	}
	return instance
}

// Timeout returns the HTTP timeout for calls to the Web API.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Service.Timeout)
}

func (c *Config) applyDefaults() {
	if c.Service.Timeout <= 0 {
		c.Service.Timeout = Duration(defaultTimeout)
	}
	if c.Collector.WindowMinutes <= 0 {
		c.Collector.WindowMinutes = defaultWindowMinutes
	}
	if c.Collector.HistoricalDays <= 0 {
		c.Collector.HistoricalDays = defaultHistoricalDays
	}
	if c.Detector.LookbackDays <= 0 {
		c.Detector.LookbackDays = defaultLookbackDays
	}
	if c.Detector.RecentHours <= 0 {
		c.Detector.RecentHours = defaultRecentHours
	}
	if c.Detector.ZScoreThreshold <= 0 {
		c.Detector.ZScoreThreshold = defaultZScoreThreshold
	}
}

func (c *Config) validate() error {
	if c.Service.BaseURL == "" {
		return fmt.Errorf("service.base_url cannot be empty")
	}
	if len(c.Collector.Locations) == 0 {
		return fmt.Errorf("collector.locations cannot be empty")
	}
	return nil
}
