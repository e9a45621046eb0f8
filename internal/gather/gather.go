// Package gather defines the interface for historical data gathering
// processes that populate the bar store.
package gather

import "context"

// Gatherer is the interface for all data gathering processes.
type Gatherer interface {
	// Name returns the gatherer identifier.
	Name() string
	// Run starts the data gathering process. It blocks until the work is
	// done or ctx is cancelled.
	Run(ctx context.Context) error
}
