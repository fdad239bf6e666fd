package session

import (
	"time"

	"private-chat/internal/protocol"
)

type Option interface {
	apply(*config)
}

type optionFunc func(c *config)

func (f optionFunc) apply(c *config) { f(c) }

// config defines fields used for configuring Handler instance
type config struct {
	maxTextLength   int
	unauthCloseCode int
	queueSize       int
	storageWorkers  int
	storageTimeout  time.Duration
	mediaURL        string
}

func defaultConfig() config {
	return config{
		maxTextLength:   protocol.DefaultMaxTextLength,
		unauthCloseCode: 4001,
		queueSize:       256,
		storageWorkers:  16,
		storageTimeout:  5 * time.Second,
		mediaURL:        "/media/",
	}
}

// EnvConfig defines fields used for parsing from environment variables
type EnvConfig struct {
	TextMaxLength     int           `env:"TEXT_MAX_LENGTH" envDefault:"65535"`
	UnauthCloseCode   int           `env:"UNAUTH_CLOSE_CODE" envDefault:"4001"`
	OutboundQueueSize int           `env:"OUTBOUND_QUEUE_SIZE" envDefault:"256"`
	StorageWorkers    int           `env:"STORAGE_WORKERS" envDefault:"16"`
	StorageTimeout    time.Duration `env:"STORAGE_TIMEOUT" envDefault:"5s"`
	MediaURL          string        `env:"MEDIA_URL" envDefault:"/media/"`
}

// WithEnvConfig applies every field of EnvConfig
func WithEnvConfig(cfg EnvConfig) Option {
	return optionFunc(func(c *config) {
		c.maxTextLength = cfg.TextMaxLength
		c.unauthCloseCode = cfg.UnauthCloseCode
		c.queueSize = cfg.OutboundQueueSize
		c.storageWorkers = cfg.StorageWorkers
		c.storageTimeout = cfg.StorageTimeout
		c.mediaURL = cfg.MediaURL
	})
}

// MaxTextLength sets the maximum number of characters of a text message
func MaxTextLength(n int) Option {
	return optionFunc(func(c *config) {
		c.maxTextLength = n
	})
}

// UnauthCloseCode sets the close code used to reject connections without identity
func UnauthCloseCode(code int) Option {
	return optionFunc(func(c *config) {
		c.unauthCloseCode = code
	})
}

// OutboundQueueSize sets the number of frames buffered for a slow connection before frames are dropped
func OutboundQueueSize(n int) Option {
	return optionFunc(func(c *config) {
		c.queueSize = n
	})
}

// StorageWorkers sets the number of storage calls running at once across all sessions
func StorageWorkers(n int) Option {
	return optionFunc(func(c *config) {
		c.storageWorkers = n
	})
}

// StorageTimeout limits the duration of a single storage call
func StorageTimeout(d time.Duration) Option {
	return optionFunc(func(c *config) {
		c.storageTimeout = d
	})
}

// MediaURL sets the prefix prepended to stored file paths in file urls
func MediaURL(prefix string) Option {
	return optionFunc(func(c *config) {
		c.mediaURL = prefix
	})
}
