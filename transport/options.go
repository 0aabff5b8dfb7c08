package transport

import (
	"time"

	"go.uber.org/zap"
)

type Options struct {
	// Host the varnishd admin console listens on
	Host string

	// Port of the admin console
	Port int

	// Timeout bounds the dial and, independently, every individual read
	// and write. It does not bound a whole multi-read response.
	Timeout time.Duration

	Log *zap.Logger
}
