package rent

import (
	"context"
	"log/slog"
)

// txn collects compensations for external effects of a single transition.
// Rolling back runs them newest first.
type txn struct {
	logger *slog.Logger
	steps  []undoStep
}

type undoStep struct {
	label string
	fn    func(context.Context) error
}

func (t *txn) onRollback(label string, fn func(context.Context) error) {
	t.steps = append(t.steps, undoStep{label: label, fn: fn})
}

func (t *txn) rollback(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	for i := len(t.steps) - 1; i >= 0; i-- {
		step := t.steps[i]
		if err := step.fn(ctx); err != nil {
			t.logger.Error("rollback step failed", "step", step.label, "error", err)
		}
	}
	t.steps = nil
}

func (t *txn) commit() {
	t.steps = nil
}
