package notify

import (
	"context"

	"github.com/yanun0323/logs"
)

// Notifier is the notification collaborator contract. Deliveries are
// informational; a failed send never blocks trading decisions.
type Notifier interface {
	Notify(ctx context.Context, title, message string) error
}

// Log writes notifications to the log only. Used when no channel is
// configured and in tests.
type Log struct{}

// Notify implements Notifier.
func (Log) Notify(_ context.Context, title, message string) error {
	logs.Infof("notify: %s - %s", title, message)
	return nil
}
