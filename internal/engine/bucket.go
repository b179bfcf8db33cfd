package engine

import (
	"fmt"

	"github.com/kiranshivaraju/hireflow/pkg/models"
)

// Bucket is a derived grouping of records for list views. It is computed from
// the status on every read and never stored.
type Bucket string

const (
	BucketUpcoming Bucket = "upcoming"
	BucketHistory  Bucket = "history"
	BucketActive   Bucket = "active"
	BucketArchived Bucket = "archived"
)

func InterviewBucket(s models.InterviewStatus) Bucket {
	if s.Terminal() {
		return BucketHistory
	}
	return BucketUpcoming
}

func ApplicationBucket(s models.ApplicationStatus) Bucket {
	if s.Terminal() {
		return BucketArchived
	}
	return BucketActive
}

// ParseBucket validates a bucket name from a list query. The empty string
// means no bucket.
func ParseBucket(s string, allowed ...Bucket) (Bucket, error) {
	if s == "" {
		return "", nil
	}
	for _, b := range allowed {
		if Bucket(s) == b {
			return b, nil
		}
	}
	return "", fmt.Errorf("%w: unknown bucket %q", ErrInvalidInput, s)
}

// ApplicationStatusesIn returns the statuses classified into b, or nil for
// the empty bucket.
func ApplicationStatusesIn(b Bucket) []models.ApplicationStatus {
	if b == "" {
		return nil
	}
	var out []models.ApplicationStatus
	for _, s := range models.ApplicationStatuses {
		if ApplicationBucket(s) == b {
			out = append(out, s)
		}
	}
	return out
}

// InterviewStatusesIn returns the statuses classified into b, or nil for the
// empty bucket.
func InterviewStatusesIn(b Bucket) []models.InterviewStatus {
	if b == "" {
		return nil
	}
	var out []models.InterviewStatus
	for _, s := range models.InterviewStatuses {
		if InterviewBucket(s) == b {
			out = append(out, s)
		}
	}
	return out
}
