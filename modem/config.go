package modem

import (
	"io"
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"
)

// Config holds the session configuration. Build one with
// NewConfigBuilder.
type Config struct {
	dialer Dialer
	clock  clock.Clock
	logger *slog.Logger

	// tick is the duration of one poll tick; command timeouts are
	// budgets of these ticks.
	tick time.Duration
	// initRetries bounds the identity-probe attempts during Initialize.
	initRetries int
	// initBackoff is the sleep between failed identity probes.
	initBackoff time.Duration
	// ipRetries bounds the bearer IP polls during ConnectBearer.
	ipRetries int
	// verboseErrors requests +CME error reports during Initialize.
	verboseErrors bool
}

func (c *Config) validate() error {
	if c.dialer == nil {
		return ErrNoDialer
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.clock == nil {
		c.clock = clock.New()
	}
	if c.logger == nil {
		c.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if c.tick == 0 {
		c.tick = time.Second
	}
	if c.initRetries == 0 {
		c.initRetries = 3
	}
	if c.initBackoff == 0 {
		c.initBackoff = 3 * time.Second
	}
	if c.ipRetries == 0 {
		c.ipRetries = 5
	}
}

// ConfigBuilder assembles a Config.
type ConfigBuilder struct {
	config Config
}

// NewConfigBuilder returns a builder with no options set; Build fills
// in defaults.
func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{}
}

// WithDialer sets the Dialer used to open the transport. Required.
func (b *ConfigBuilder) WithDialer(d Dialer) *ConfigBuilder {
	b.config.dialer = d
	return b
}

// WithClock sets the clock used for tick sleeps and retry backoffs.
// Tests inject a fast clock here.
func (b *ConfigBuilder) WithClock(clk clock.Clock) *ConfigBuilder {
	b.config.clock = clk
	return b
}

// WithLogger sets the logger for session diagnostics.
func (b *ConfigBuilder) WithLogger(logger *slog.Logger) *ConfigBuilder {
	b.config.logger = logger
	return b
}

// WithTick sets the poll tick duration.
func (b *ConfigBuilder) WithTick(tick time.Duration) *ConfigBuilder {
	b.config.tick = tick
	return b
}

// WithInitRetries sets the identity-probe attempt bound.
func (b *ConfigBuilder) WithInitRetries(n int) *ConfigBuilder {
	b.config.initRetries = n
	return b
}

// WithInitBackoff sets the sleep between failed identity probes.
func (b *ConfigBuilder) WithInitBackoff(d time.Duration) *ConfigBuilder {
	b.config.initBackoff = d
	return b
}

// WithIPRetries sets the bearer IP poll bound.
func (b *ConfigBuilder) WithIPRetries(n int) *ConfigBuilder {
	b.config.ipRetries = n
	return b
}

// WithVerboseErrors requests +CME error reporting from the device.
func (b *ConfigBuilder) WithVerboseErrors(enabled bool) *ConfigBuilder {
	b.config.verboseErrors = enabled
	return b
}

// Build validates the configuration and fills in defaults.
func (b *ConfigBuilder) Build() (Config, error) {
	if err := b.config.validate(); err != nil {
		return Config{}, err
	}
	b.config.setDefaults()
	return b.config, nil
}
