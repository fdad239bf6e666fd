package server

import (
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
)

type Option interface {
	apply(*config)
}

type optionFunc func(c *config)

func (f optionFunc) apply(c *config) { f(c) }

// config defines fields used for configuring Server instance
type config struct {
	httpServer      *http.Server
	handlers        map[string]http.Handler
	afterShutdown   []func()
	shutdownTimeout time.Duration
	writeTimeout    time.Duration
	maxFrameBytes   int64
}

// EnvConfig defines fields used for parsing from environment variables
type EnvConfig struct {
	Host            string        `env:"HOST" envDefault:"0.0.0.0"`
	Port            uint16        `env:"PORT" envDefault:"9000"`
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"10s"`
	MaxFrameBytes   int64         `env:"MAX_FRAME_BYTES" envDefault:"1048576"`
}

// WithEnvConfig enables processing exported EnvConfig struct to acts as a source of config parameters for http.Server
// and websocket connections
func WithEnvConfig(cfg EnvConfig) Option {
	return optionFunc(func(c *config) {
		c.httpServer.Addr = cfg.Host + ":" + strconv.FormatUint(uint64(cfg.Port), 10)
		c.httpServer.ReadTimeout = cfg.ReadTimeout
		c.shutdownTimeout = cfg.ShutdownTimeout
		c.writeTimeout = cfg.WriteTimeout
		c.maxFrameBytes = cfg.MaxFrameBytes
	})
}

// ReadTimeout sets read timeout for http.Server, websocket connections are not affected after upgrade
func ReadTimeout(d time.Duration) Option {
	return optionFunc(func(c *config) {
		c.httpServer.ReadTimeout = d
	})
}

// WriteTimeout limits writing of a single websocket frame
func WriteTimeout(d time.Duration) Option {
	return optionFunc(func(c *config) {
		c.writeTimeout = d
	})
}

// MaxFrameBytes sets the maximum size of an inbound websocket frame
func MaxFrameBytes(n int64) Option {
	return optionFunc(func(c *config) {
		c.maxFrameBytes = n
	})
}

// ShutdownTimeout limits waiting for requests and sessions to finish on shutdown
func ShutdownTimeout(d time.Duration) Option {
	return optionFunc(func(c *config) {
		c.shutdownTimeout = d
	})
}

// RegisterAfterShutdown registers a function to call after http.Server shutdown
// f will not be called in separated goroutine
func RegisterAfterShutdown(f func()) Option {
	return optionFunc(func(c *config) {
		c.afterShutdown = append(c.afterShutdown, f)
	})
}

// Handle registers additional handler for pattern
func Handle(pattern string, h http.Handler) Option {
	return optionFunc(func(c *config) {
		c.handlers[pattern] = h
	})
}

// registerHandlers iterates over a handlers map and registers each handler for newly initialized http.ServeMux
// that http.ServeMux is used as a http.Handler for http.Server in config struct
func registerHandlers() Option {
	return optionFunc(func(c *config) {
		mux := http.NewServeMux()
		for pattern, h := range c.handlers {
			mux.Handle(pattern, h)
		}
		c.httpServer.Handler = mux
	})
}

// applyLog wraps each http.Handler in handlers map with log middleware
func applyLog(logger *zap.Logger) Option {
	return optionFunc(func(c *config) {
		for pattern, h := range c.handlers {
			c.handlers[pattern] = log(h, logger)
		}
	})
}
