package store

import (
	"context"
	"fmt"

	"github.com/gramseva/apiserver/types"
)

// BulkWorkerRecord is one entry of a bulk Ground Worker registration,
// carried through the transaction with its original position. Records that
// already failed validation upstream arrive with SkipReason set and are
// never inserted.
type BulkWorkerRecord struct {
	Index      int
	User       types.User
	Profile    types.Profile
	SkipReason string
}

// BulkSuccess describes one worker the batch inserted. The rows only
// persist when the whole batch commits.
type BulkSuccess struct {
	Index    int    `json:"index"`
	UserID   int    `json:"userId"`
	WorkerID int    `json:"workerId"`
	Name     string `json:"name"`
	Email    string `json:"email"`
}

// BulkFailure describes one worker the batch rejected.
type BulkFailure struct {
	Index  int    `json:"index"`
	Email  string `json:"email,omitempty"`
	Reason string `json:"reason"`
}

// BulkOutcome reports the per-record results of a bulk registration.
// Committed is true only when every record succeeded; otherwise the whole
// batch was rolled back and the successes describe rows that no longer
// exist.
type BulkOutcome struct {
	Successful []BulkSuccess `json:"successful"`
	Failed     []BulkFailure `json:"failed"`
	Committed  bool          `json:"-"`
}

// BulkCreateWorkers inserts the batch inside one transaction. Each record
// runs under a savepoint so a failed insert rejects that record without
// aborting the scan of the rest. The batch commits only when every record
// succeeds; any failure rolls back the entire transaction.
func (r *ProfileRepository) BulkCreateWorkers(ctx context.Context, records []BulkWorkerRecord) (outcome BulkOutcome, err error) {
	outcome.Successful = make([]BulkSuccess, 0, len(records))
	outcome.Failed = make([]BulkFailure, 0)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return BulkOutcome{}, err
	}
	defer func() {
		if err != nil || !outcome.Committed {
			_ = tx.Rollback()
		}
	}()

	for i, record := range records {
		if record.SkipReason != "" {
			outcome.Failed = append(outcome.Failed, BulkFailure{
				Index:  record.Index,
				Email:  record.User.Email,
				Reason: record.SkipReason,
			})
			continue
		}

		// Pre-check inside the transaction catches duplicates both against
		// existing rows and earlier records of this batch.
		var exists bool
		if err = tx.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`,
			record.User.Email).Scan(&exists); err != nil {
			return BulkOutcome{}, err
		}
		if exists {
			outcome.Failed = append(outcome.Failed, BulkFailure{
				Index:  record.Index,
				Email:  record.User.Email,
				Reason: ErrDuplicateEmail.Error(),
			})
			continue
		}

		savepoint := fmt.Sprintf("bulk_worker_%d", i)
		if _, err = tx.ExecContext(ctx, "SAVEPOINT "+savepoint); err != nil {
			return BulkOutcome{}, err
		}

		userID, insertErr := insertIdentityTx(ctx, tx, record.User)
		var workerID int
		if insertErr == nil {
			workerID, insertErr = r.insertProfileTx(ctx, tx, userID, record.Profile)
		}
		if insertErr != nil {
			if _, err = tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+savepoint); err != nil {
				return BulkOutcome{}, err
			}
			outcome.Failed = append(outcome.Failed, BulkFailure{
				Index:  record.Index,
				Email:  record.User.Email,
				Reason: insertErr.Error(),
			})
			continue
		}

		outcome.Successful = append(outcome.Successful, BulkSuccess{
			Index:    record.Index,
			UserID:   userID,
			WorkerID: workerID,
			Name:     record.User.Name,
			Email:    record.User.Email,
		})
	}

	if len(outcome.Failed) > 0 {
		return outcome, nil
	}

	if err = tx.Commit(); err != nil {
		return BulkOutcome{}, err
	}
	outcome.Committed = true
	return outcome, nil
}
