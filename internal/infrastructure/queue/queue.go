// Package queue provides at-least-once message transports for invoice ingestion.
package queue

import "errors"

// ErrClosed is returned by Receive after the source has been closed
var ErrClosed = errors.New("queue: source closed")

// Driver names accepted by configuration
const (
	DriverMemory = "memory"
	DriverRedis  = "redis"
	DriverPubSub = "pubsub"
)
