package config

import (
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const envPrefix = "COURSEWEB_"

var (
	errMissingBaseURL = errors.New("api base url is required")
	errInvalidPort    = errors.New("web port must be between 1 and 65535")
)

func readYAML(path string, cfg *Config) error {
	if path == "" {
		return nil
	}

	filename, err := filepath.Abs(path)
	if err != nil {
		return errors.Wrap(err, "resolving config path")
	}

	b, err := os.ReadFile(filename)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "reading config file %s", filename)
	}

	if err := yaml.Unmarshal(b, cfg); err != nil {
		return errors.Wrapf(err, "parsing config file %s", filename)
	}
	return nil
}

// loadDotEnv populates the environment from ./.env. Variables already set in
// the environment are left alone. A missing file is not an error.
func loadDotEnv() error {
	err := godotenv.Load()
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return errors.Wrap(err, "loading .env")
}

func applyEnv(cfg *Config) error {
	if v, ok := lookup("WEB_HOST"); ok {
		cfg.Web.Host = v
	}
	if v, ok := lookup("WEB_PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrap(err, envPrefix+"WEB_PORT")
		}
		cfg.Web.Port = port
	}
	if v, ok := lookup("API_BASE_URL"); ok {
		cfg.API.BaseURL = v
	}
	if v, ok := lookup("API_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return errors.Wrap(err, envPrefix+"API_TIMEOUT")
		}
		cfg.API.Timeout = d
	}
	if v, ok := lookup("SESSION_LIFETIME"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return errors.Wrap(err, envPrefix+"SESSION_LIFETIME")
		}
		cfg.Session.Lifetime = d
	}
	if v, ok := lookup("SESSION_SECURE"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return errors.Wrap(err, envPrefix+"SESSION_SECURE")
		}
		cfg.Session.Secure = b
	}
	if v, ok := lookup("LOG_LEVEL"); ok {
		cfg.Log.Level = v
	}
	if v, ok := lookup("CREDENTIALS_PATH"); ok {
		cfg.Credentials.Path = v
	}
	if v, ok := lookup("TRACING_ENDPOINT"); ok {
		cfg.Tracing.Endpoint = v
	}
	return nil
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(envPrefix + key)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func (c *Config) validate() error {
	if c.API.BaseURL == "" {
		return errMissingBaseURL
	}
	if _, err := url.ParseRequestURI(c.API.BaseURL); err != nil {
		return errors.Wrap(err, "api base url")
	}
	if c.Web.Port <= 0 || c.Web.Port > 65535 {
		return errInvalidPort
	}
	return nil
}

func defaultCredentialsPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".courseweb-credentials.json"
	}
	return filepath.Join(dir, "courseweb", "credentials.json")
}
