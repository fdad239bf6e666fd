package storage

import (
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// Config defines database connection parameters parsed from environment variables
type Config struct {
	User     string `env:"DB_USER" envDefault:"postgres"`
	Password string `env:"DB_PASSWORD"`
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     uint16 `env:"DB_PORT" envDefault:"5432"`
	DBName   string `env:"DB_NAME" envDefault:"chat"`
}

// DSN returns keyword/value connection string for Config
func (c Config) DSN() string {
	return fmt.Sprintf("user=%s password=%s host=%s port=%d dbname=%s sslmode=disable",
		c.User, c.Password, c.Host, c.Port, c.DBName)
}

// Option alters the default configuration of the pgxpool.Config used during new Store construction
type Option interface {
	apply(*pgxpool.Config)
}

type optionFunc func(c *pgxpool.Config)

func (f optionFunc) apply(c *pgxpool.Config) { f(c) }

// ConnectionTimeout sets timeout for connection to be established
func ConnectionTimeout(d time.Duration) Option {
	return optionFunc(func(c *pgxpool.Config) {
		c.ConnConfig.ConnectTimeout = d
	})
}

// MaxConns limits the number of pooled connections.
// It should not be lower than the number of storage workers.
func MaxConns(n int32) Option {
	return optionFunc(func(c *pgxpool.Config) {
		if n > 0 {
			c.MaxConns = n
		}
	})
}

// LogLevel sets the level of pgx query logging
func LogLevel(level pgx.LogLevel) Option {
	return optionFunc(func(c *pgxpool.Config) {
		c.ConnConfig.LogLevel = level
	})
}
