package duplex

import (
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vnykmshr/objstream/pkg/metrics"
	"github.com/vnykmshr/objstream/pkg/streaming/buffer"
)

// Config holds construction options for a Duplex. Non-positive sizes are
// replaced by defaults; a Config never causes construction to fail.
type Config struct {
	// Name identifies the stream in logs and metrics.
	// Default: "stream-" followed by a random suffix.
	Name string

	// HighWaterMark sizes both buffers unless a side-specific value is set.
	// Default: 16 items
	HighWaterMark int

	// ReadableHighWaterMark sizes the output buffer.
	ReadableHighWaterMark int

	// WritableHighWaterMark sizes the input buffer.
	WritableHighWaterMark int

	// Strategy controls writes that arrive while the input buffer is full.
	// The output side always blocks.
	// Default: buffer.Block
	Strategy buffer.Strategy

	// Logger receives lifecycle events. Default: disabled.
	Logger *zerolog.Logger

	// Metrics enables Prometheus instrumentation when non-nil.
	Metrics *metrics.Registry
}

// DefaultConfig returns a default configuration.
func DefaultConfig() Config {
	return Config{
		HighWaterMark: buffer.DefaultHighWaterMark,
		Strategy:      buffer.Block,
	}
}

// normalize fills in defaults for unset or invalid fields.
func (c Config) normalize() Config {
	if c.HighWaterMark <= 0 {
		c.HighWaterMark = buffer.DefaultHighWaterMark
	}
	if c.ReadableHighWaterMark <= 0 {
		c.ReadableHighWaterMark = c.HighWaterMark
	}
	if c.WritableHighWaterMark <= 0 {
		c.WritableHighWaterMark = c.HighWaterMark
	}
	if c.Name == "" {
		c.Name = "stream-" + uuid.NewString()[:8]
	}
	return c
}
