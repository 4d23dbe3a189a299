package notifiers

import "context"

// Notifier delivers invocation events to a downstream sink (HTTP, SQS, SNS, Pub/Sub).
type Notifier interface {
	ID() string
	Type() string
	Notify(ctx context.Context, evt Event) error
}

// ToolFilter is implemented by notifiers that only care about some tools.
type ToolFilter interface {
	Accepts(tool string) bool
}
