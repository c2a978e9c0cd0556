package event

import "context"

// Repository provides persistence operations for events.
type Repository interface {
	Log(ctx context.Context, evt *Event) error
	List(ctx context.Context, opts ListOptions) ([]Event, error)
}
