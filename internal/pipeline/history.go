package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/hireflow/internal/store"
	"github.com/kiranshivaraju/hireflow/pkg/models"
)

// HistoryRecorder appends one entry per interview status change. It has no
// update or delete path.
type HistoryRecorder struct{}

// Record appends the interview's current status with an optional message. The
// entry is stamped with the interview's UpdatedAt so it matches the
// transition that produced it.
func (HistoryRecorder) Record(ctx context.Context, tx store.Tx, iv *models.Interview, message *string) (*models.InterviewHistoryEntry, error) {
	entry := &models.InterviewHistoryEntry{
		ID:           uuid.New(),
		InterviewID:  iv.ID,
		StatusAtTime: iv.Status,
		Message:      cleanMessage(message),
		CreatedAt:    iv.UpdatedAt,
	}
	if err := tx.AppendHistory(ctx, entry); err != nil {
		return nil, fmt.Errorf("appending history for interview %s: %w", iv.ID, err)
	}
	return entry, nil
}

// cleanMessage trims m and treats blank messages as absent.
func cleanMessage(m *string) *string {
	if m == nil {
		return nil
	}
	s := strings.TrimSpace(*m)
	if s == "" {
		return nil
	}
	return &s
}
