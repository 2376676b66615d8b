// Package cmd holds the configuration and logging setup shared by the newsroom commands.
package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/jhchabran/newsroom/sqlstore"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Config struct {
	LogLevel           string `json:"log_level"`
	LogFormat          string `json:"log_format"`
	DatabaseDriver     string `json:"database_driver"`
	DatabaseName       string `json:"database_name"`
	DatabaseUser       string `json:"database_user"`
	DatabaseHost       string `json:"database_host"`
	DatabasePassword   string `json:"database_password"`
	DatabaseURL        string `json:"database_url"`
	GithubClientID     string `json:"github_client_id"`
	GithubClientSecret string `json:"github_client_secret"`
	GithubRedirectURL  string `json:"github_redirect_url"`
	SlackWebhookURL    string `json:"slack_webhook_url"`
	ServerSecret       string `json:"server_secret"`
	NewsPerPage        int    `json:"news_per_page"`
	Addr               string `json:"addr"`
	// BaseURL is the public URL of the site, used to link back from notifications.
	BaseURL string `json:"base_url"`
}

func DefaultConfig() *Config {
	return &Config{
		LogLevel:         "info",
		LogFormat:        "json",
		DatabaseDriver:   sqlstore.Postgres,
		DatabaseName:     "newsroom",
		DatabaseUser:     "postgres",
		DatabasePassword: "postgres",
		DatabaseHost:     "127.0.0.1",
		NewsPerPage:      10,
		Addr:             "localhost:8080",
	}
}

// Load reads config.json from the working directory if it exists, then overrides its
// values with environment variables. A .env file, if any, is loaded in the environment first.
func (c *Config) Load() error {
	return c.LoadFile("config.json")
}

func (c *Config) LoadFile(path string) error {
	_ = godotenv.Load()

	f, err := os.Open(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	if err == nil {
		defer f.Close()
		err = json.NewDecoder(f).Decode(c)
		if err != nil {
			return fmt.Errorf("cannot decode %s: %w", path, err)
		}
	}

	strs := map[string]*string{
		"LOG_LEVEL":            &c.LogLevel,
		"LOG_FORMAT":           &c.LogFormat,
		"DATABASE_DRIVER":      &c.DatabaseDriver,
		"DATABASE_NAME":        &c.DatabaseName,
		"DATABASE_USER":        &c.DatabaseUser,
		"DATABASE_HOST":        &c.DatabaseHost,
		"DATABASE_PASSWORD":    &c.DatabasePassword,
		"DATABASE_URL":         &c.DatabaseURL,
		"GITHUB_CLIENT_ID":     &c.GithubClientID,
		"GITHUB_CLIENT_SECRET": &c.GithubClientSecret,
		"GITHUB_REDIRECT_URL":  &c.GithubRedirectURL,
		"SLACK_WEBHOOK_URL":    &c.SlackWebhookURL,
		"SERVER_SECRET":        &c.ServerSecret,
		"ADDR":                 &c.Addr,
		"BASE_URL":             &c.BaseURL,
	}
	for k, dst := range strs {
		if v := os.Getenv(k); v != "" {
			*dst = v
		}
	}

	v := os.Getenv("NEWS_PER_PAGE")
	if v != "" {
		vi, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid NEWS_PER_PAGE %q: %w", v, err)
		}

		c.NewsPerPage = vi
	}

	return c.validate()
}

func (c *Config) validate() error {
	if c.ServerSecret == "" {
		return fmt.Errorf("missing config 'server secret'")
	}

	if c.DatabaseDriver != sqlstore.Postgres && c.DatabaseDriver != sqlstore.SQLite {
		return fmt.Errorf("unsupported database driver %q", c.DatabaseDriver)
	}

	if (c.GithubClientID == "") != (c.GithubClientSecret == "") {
		return fmt.Errorf("github client id and secret must be set together")
	}

	return nil
}

// GithubEnabled reports whether signing in through GitHub is configured.
func (c *Config) GithubEnabled() bool {
	return c.GithubClientID != "" && c.GithubClientSecret != ""
}

// DSN returns the address to give to sqlstore.New. DatabaseURL wins when set,
// otherwise it is built from the individual database settings.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}

	if c.DatabaseDriver == sqlstore.SQLite {
		return fmt.Sprintf("file:%v.db?_fk=on", c.DatabaseName)
	}

	return fmt.Sprintf(
		"user=%v dbname=%v sslmode=disable password=%v host=%v",
		c.DatabaseUser,
		c.DatabaseName,
		c.DatabasePassword,
		c.DatabaseHost,
	)
}

// NewStore returns a store for the configured database. It isn't connected yet.
func (c *Config) NewStore() *sqlstore.SQLStore {
	return sqlstore.New(c.DatabaseDriver, c.DSN())
}

func SetupLogger(cfg *Config) zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatal().Err(err).Str("input", cfg.LogLevel).Msg("Cannot parse log level")
	}
	zerolog.SetGlobalLevel(level)

	if cfg.LogFormat == "" || cfg.LogFormat == "json" {
		return zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	return zerolog.New(output).With().Timestamp().Logger()
}
