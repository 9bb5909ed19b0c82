package config

import (
	"time"
)

// Path is the location of the optional YAML config file.
type Path string

const DefaultPath Path = "config/config.yaml"

type Config struct {
	Web         Web         `yaml:"web"`
	API         API         `yaml:"api"`
	Session     Session     `yaml:"session"`
	Log         Log         `yaml:"log"`
	Credentials Credentials `yaml:"credentials"`
	Tracing     Tracing     `yaml:"tracing"`
}

type Web struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type API struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

type Session struct {
	CookieName string        `yaml:"cookie_name"`
	Lifetime   time.Duration `yaml:"lifetime"`
	Secure     bool          `yaml:"secure"`
}

type Log struct {
	Level string `yaml:"level"`
}

// Tracing configures span export. With no endpoint, spans are still
// created and propagated but not exported.
type Tracing struct {
	Endpoint    string `yaml:"endpoint"`
	ServiceName string `yaml:"service_name"`
}

// Credentials configures where the CLI keeps its bearer token.
type Credentials struct {
	Path string `yaml:"path"`
}

func defaults() *Config {
	return &Config{
		Web: Web{
			Host: "localhost",
			Port: 8123,
		},
		API: API{
			BaseURL: "http://localhost:8000",
			Timeout: 10 * time.Second,
		},
		Session: Session{
			CookieName: "courseweb_session",
			Lifetime:   24 * time.Hour,
		},
		Log: Log{
			Level: "info",
		},
		Credentials: Credentials{
			Path: defaultCredentialsPath(),
		},
		Tracing: Tracing{
			ServiceName: "courseweb",
		},
	}
}

// New builds the config from defaults, the YAML file at p (if present), a
// .env file (if present) and COURSEWEB_* environment variables, in that
// order of precedence.
func New(p Path) (*Config, error) {
	cfg := defaults()

	if err := readYAML(string(p), cfg); err != nil {
		return nil, err
	}

	if err := loadDotEnv(); err != nil {
		return nil, err
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
