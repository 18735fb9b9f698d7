package health

import "context"

// IndexPinger checks index backend availability.
type IndexPinger interface {
	Ping(ctx context.Context) error
}
