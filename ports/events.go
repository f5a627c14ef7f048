package ports

import (
	"context"

	"github.com/ensgate/ensgate/core"
)

// EventPublisher notifies other instances about authentication events
type EventPublisher interface {
	// PublishLogin announces a successful login; rebound is true when
	// the name's owning address changed
	PublishLogin(ctx context.Context, user *core.User, rebound bool) error
}
