package config

import "time"

// Config contains all application settings
type Config struct {
	BindPort           int           `mapstructure:"PORT" yaml:"port"`
	BindHost           string        `mapstructure:"HOST" yaml:"host"`
	DatabaseDriver     string        `mapstructure:"DATABASE_DRIVER" yaml:"database_driver"`
	DatabaseURL        string        `mapstructure:"DATABASE_URL" yaml:"database_url"`
	AutoMigrate        bool          `mapstructure:"AUTO_MIGRATE" yaml:"auto_migrate"`
	CORSAllowedOrigins []string      `mapstructure:"CORS_ALLOWED_ORIGINS" yaml:"cors_allowed_origins"`
	NATSServerURL      string        `mapstructure:"NATS_URL" yaml:"nats_url"`
	NATSSubjectPrefix  string        `mapstructure:"NATS_SUBJECT_PREFIX" yaml:"nats_subject_prefix"`
	InfluxURL          string        `mapstructure:"INFLUX_URL" yaml:"influx_url"`
	InfluxToken        string        `mapstructure:"INFLUX_TOKEN" yaml:"influx_token"`
	InfluxOrg          string        `mapstructure:"INFLUX_ORG" yaml:"influx_org"`
	InfluxBucket       string        `mapstructure:"INFLUX_BUCKET" yaml:"influx_bucket"`
	LogLevel           string        `mapstructure:"LOG_LEVEL" yaml:"log_level"`
	ShutdownTimeout    time.Duration `mapstructure:"SHUTDOWN_TIMEOUT" yaml:"shutdown_timeout"`

	// Version
	BuildVersion string `yaml:"-"`
	BuildHash    string `yaml:"-"`
	BuildTime    string `yaml:"-"`
}

// NATSEnabled reports whether events are relayed to NATS.
func (c *Config) NATSEnabled() bool {
	return c.NATSServerURL != ""
}

// InfluxEnabled reports whether readings are mirrored to InfluxDB.
func (c *Config) InfluxEnabled() bool {
	return c.InfluxURL != ""
}
