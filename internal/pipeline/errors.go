package pipeline

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/kiranshivaraju/hireflow/internal/engine"
	"github.com/kiranshivaraju/hireflow/internal/store"
)

// ErrApplyFailed reports that a transition was rejected by the store after the
// decision was made. Nothing from the attempt was persisted.
var ErrApplyFailed = errors.New("pipeline apply failed")

// storeErr maps store sentinels to business outcomes. Anything else is a fault.
func storeErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return fmt.Errorf("%w: %w", engine.ErrNotFound, err)
	case errors.Is(err, store.ErrDuplicateKey):
		return fmt.Errorf("%w: %w", engine.ErrConflict, err)
	}
	return err
}

// result passes business outcomes through unchanged and wraps faults in
// ErrApplyFailed.
func result(op string, err error, attrs ...any) error {
	if err == nil || engine.IsExpected(err) {
		return err
	}
	slog.Error("pipeline operation failed", append([]any{"operation", op, "error", err}, attrs...)...)
	return fmt.Errorf("%w: %s: %w", ErrApplyFailed, op, err)
}
