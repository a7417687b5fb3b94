package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Workflow WorkflowConfig `mapstructure:"workflow"`
	Sla      SlaConfig      `mapstructure:"sla"`
	Logger   LoggerConfig   `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// WorkflowConfig holds the value thresholds that drive chain escalation and
// payload validation. Both thresholds are inclusive boundaries.
type WorkflowConfig struct {
	HighValueThreshold     float64 `mapstructure:"high_value_threshold"`
	VeryHighValueThreshold float64 `mapstructure:"very_high_value_threshold"`
	MinProofLength         int     `mapstructure:"min_proof_length"`
}

// SlaConfig holds SLA windows and sweep settings
type SlaConfig struct {
	UrgentWindow        time.Duration `mapstructure:"urgent_window"`
	HighWindow          time.Duration `mapstructure:"high_window"`
	NormalWindow        time.Duration `mapstructure:"normal_window"`
	LowWindow           time.Duration `mapstructure:"low_window"`
	ApproachingFraction float64       `mapstructure:"approaching_fraction"`
	SweepInterval       time.Duration `mapstructure:"sweep_interval"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		// Defaults and env are enough to run; a missing file is not fatal
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.write_timeout", 30*time.Second)

	viper.SetDefault("database.path", "data/custody.db")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	viper.SetDefault("workflow.high_value_threshold", 500.0)
	viper.SetDefault("workflow.very_high_value_threshold", 2000.0)
	viper.SetDefault("workflow.min_proof_length", 40)

	viper.SetDefault("sla.urgent_window", 4*time.Hour)
	viper.SetDefault("sla.high_window", 24*time.Hour)
	viper.SetDefault("sla.normal_window", 48*time.Hour)
	viper.SetDefault("sla.low_window", 72*time.Hour)
	viper.SetDefault("sla.approaching_fraction", 0.25)
	viper.SetDefault("sla.sweep_interval", 5*time.Minute)

	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.output_path", "stdout")
	viper.SetDefault("logger.format", "json")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Workflow.HighValueThreshold <= 0 {
		return fmt.Errorf("workflow.high_value_threshold must be positive")
	}
	if c.Workflow.VeryHighValueThreshold < c.Workflow.HighValueThreshold {
		return fmt.Errorf("workflow.very_high_value_threshold must not be below the high-value threshold")
	}
	if c.Sla.ApproachingFraction <= 0 || c.Sla.ApproachingFraction >= 1 {
		return fmt.Errorf("sla.approaching_fraction must be between 0 and 1")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	return nil
}
