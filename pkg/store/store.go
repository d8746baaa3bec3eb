// Package store holds the connection adapters. Each subpackage owns one
// backend; this package only defines what they share.
package store

import "context"

// Adapter is the lifecycle and health contract every connection adapter
// satisfies.
type Adapter interface {
	HealthCheck(ctx context.Context) error
	Close() error
}
