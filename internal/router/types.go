package router

import (
	"context"
	"fmt"

	"github.com/rickgao/chatlink/internal/model"
)

// Sender is the send surface of a live session.
type Sender interface {
	SendDirect(ctx context.Context, user model.UserID, messages []string) error
	SendGroup(ctx context.Context, room model.RoomID, messages []string) error
}

// RouterStats contains runtime statistics.
type RouterStats struct {
	BatchesRouted  int64 // Batches delegated successfully
	DirectBatches  int64 // Batches sent on the direct path
	GroupBatches   int64 // Batches sent on the group path
	MessagesRouted int64 // Individual messages across successful batches
	SendErrors     int64 // Batches the session rejected
}

// SendError reports that the session failed to deliver a batch.
type SendError struct {
	Target model.Target
	Err    error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("send to %s: %v", e.Target, e.Err)
}

func (e *SendError) Unwrap() error { return e.Err }

// InvalidTargetError reports an operation given a target kind it cannot serve.
type InvalidTargetError struct {
	Op     string
	Target model.Target
}

func (e *InvalidTargetError) Error() string {
	return fmt.Sprintf("%s: invalid %s target %s", e.Op, e.Target.Kind(), e.Target)
}
