package services

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/yigit/coursereg/internal/app/models"
)

// RepairQueue receives pairs left inconsistent by a partial enrollment failure
type RepairQueue interface {
	Enqueue(ctx context.Context, req models.RepairRequest) error
}

// logRepairQueue only records the request; the periodic reconciler sweep picks the pair up.
type logRepairQueue struct {
	logger zerolog.Logger
}

// NewLoggingRepairQueue returns a RepairQueue used when no broker is configured
func NewLoggingRepairQueue(logger zerolog.Logger) RepairQueue {
	return &logRepairQueue{logger: logger}
}

func (q *logRepairQueue) Enqueue(_ context.Context, req models.RepairRequest) error {
	q.logger.Warn().
		Str("studentId", req.StudentID).
		Str("courseId", req.CourseID).
		Str("op", req.Op).
		Str("side", req.InconsistentSide).
		Msg("Repair deferred to the next reconcile sweep")
	return nil
}
