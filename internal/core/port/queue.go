package port

import (
	"context"

	"github.com/google/uuid"
)

// JobDispatchPort publishes scrape-job dispatch messages to the queue.
type JobDispatchPort interface {
	Dispatch(ctx context.Context, jobID uuid.UUID, source string) error
}
