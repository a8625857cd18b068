// Package control applies administrative actions to queued messages
// through postsuper.
package control

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/foxzi/postq/internal/postfix"
	"github.com/foxzi/postq/internal/queue"
)

// Operation is an administrative queue action.
type Operation string

const (
	OpHold    Operation = "hold"
	OpRelease Operation = "release"
	OpRequeue Operation = "requeue"
	OpDelete  Operation = "delete"
)

// operationFlags maps operations to postsuper arguments.
var operationFlags = map[Operation]string{
	OpHold:    "-h",
	OpRelease: "-H",
	OpRequeue: "-r",
	OpDelete:  "-d",
}

// Outcome is the per-message result of a batch action.
type Outcome struct {
	ID  string
	Err error
}

// BatchResult collects the outcomes of one Apply call. A failing
// message does not abort the rest of the batch.
type BatchResult struct {
	Batch    string
	Op       Operation
	Outcomes []Outcome
}

// Failed returns the outcomes that did not succeed.
func (r *BatchResult) Failed() []Outcome {
	var failed []Outcome
	for _, o := range r.Outcomes {
		if o.Err != nil {
			failed = append(failed, o)
		}
	}
	return failed
}

// OK reports whether every message in the batch succeeded.
func (r *BatchResult) OK() bool {
	return len(r.Failed()) == 0
}

// Dispatcher issues postsuper commands.
type Dispatcher struct {
	postsuper string
	run       postfix.Runner
	logger    *slog.Logger
}

// NewDispatcher creates a dispatcher. An empty path falls back to the
// default postsuper name.
func NewDispatcher(postsuper string, run postfix.Runner, logger *slog.Logger) *Dispatcher {
	if postsuper == "" {
		postsuper = postfix.DefaultCommands().Postsuper
	}
	if run == nil {
		run = postfix.ExecRunner{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{postsuper: postsuper, run: run, logger: logger}
}

// Apply runs op for each queue ID, one postsuper invocation per
// message so that partial failures stay individually reportable. The
// batch is tagged with a correlation ID for the logs.
func (d *Dispatcher) Apply(ctx context.Context, op Operation, ids []string) (*BatchResult, error) {
	flag, ok := operationFlags[op]
	if !ok {
		return nil, fmt.Errorf("unknown operation %q", op)
	}

	result := &BatchResult{
		Batch: uuid.New().String(),
		Op:    op,
	}

	for _, id := range ids {
		outcome := Outcome{ID: id}
		if !queue.IsQueueID(id) {
			outcome.Err = fmt.Errorf("invalid queue ID %q", id)
		} else if _, err := d.run.Run(ctx, "", d.postsuper, flag, id); err != nil {
			outcome.Err = err
		}

		if outcome.Err != nil {
			d.logger.Warn("queue action failed",
				"batch", result.Batch, "op", op, "id", id, "error", outcome.Err)
		} else {
			d.logger.Info("queue action applied",
				"batch", result.Batch, "op", op, "id", id)
		}
		result.Outcomes = append(result.Outcomes, outcome)
	}

	return result, nil
}

// ApplyAll runs op against the whole queue in a single postsuper
// invocation (the ALL keyword).
func (d *Dispatcher) ApplyAll(ctx context.Context, op Operation) error {
	flag, ok := operationFlags[op]
	if !ok {
		return fmt.Errorf("unknown operation %q", op)
	}
	if _, err := d.run.Run(ctx, "", d.postsuper, flag, "ALL"); err != nil {
		return fmt.Errorf("failed to %s all messages: %w", op, err)
	}
	d.logger.Info("queue action applied to all messages", "op", op)
	return nil
}
