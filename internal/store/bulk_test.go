package store

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gramseva/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bulkRecord(index int, email string) BulkWorkerRecord {
	user := sampleVillager(email)
	user.Role = types.RoleGroundWorker
	return BulkWorkerRecord{Index: index, User: user}
}

func expectEmailFree(mock sqlmock.Sqlmock, email string) {
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs(email).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
}

func expectWorkerInsert(mock sqlmock.Sqlmock, savepoint string, userID, workerID int) {
	mock.ExpectExec(`SAVEPOINT ` + savepoint).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`INSERT INTO users`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(userID))
	mock.ExpectQuery(`INSERT INTO ground_workers`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(workerID))
}

func TestBulkCreateWorkers_AllSucceedCommits(t *testing.T) {
	db, mock, repo := setupWorkerRepo(t)
	defer db.Close()

	mock.ExpectBegin()
	expectEmailFree(mock, "a@example.com")
	expectWorkerInsert(mock, "bulk_worker_0", 10, 1)
	expectEmailFree(mock, "b@example.com")
	expectWorkerInsert(mock, "bulk_worker_1", 11, 2)
	mock.ExpectCommit()

	outcome, err := repo.BulkCreateWorkers(context.Background(), []BulkWorkerRecord{
		bulkRecord(0, "a@example.com"),
		bulkRecord(1, "b@example.com"),
	})

	require.NoError(t, err)
	assert.True(t, outcome.Committed)
	assert.Len(t, outcome.Successful, 2)
	assert.Empty(t, outcome.Failed)
	assert.Equal(t, 11, outcome.Successful[1].UserID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkCreateWorkers_DuplicateRollsBackBatch(t *testing.T) {
	db, mock, repo := setupWorkerRepo(t)
	defer db.Close()

	mock.ExpectBegin()
	expectEmailFree(mock, "a@example.com")
	expectWorkerInsert(mock, "bulk_worker_0", 10, 1)
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("taken@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	outcome, err := repo.BulkCreateWorkers(context.Background(), []BulkWorkerRecord{
		bulkRecord(0, "a@example.com"),
		bulkRecord(1, "taken@example.com"),
	})

	require.NoError(t, err)
	assert.False(t, outcome.Committed)
	assert.Len(t, outcome.Successful, 1)
	require.Len(t, outcome.Failed, 1)
	assert.Equal(t, 1, outcome.Failed[0].Index)
	assert.Equal(t, ErrDuplicateEmail.Error(), outcome.Failed[0].Reason)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkCreateWorkers_SkipReasonNeverInserts(t *testing.T) {
	db, mock, repo := setupWorkerRepo(t)
	defer db.Close()

	record := bulkRecord(0, "")
	record.SkipReason = "Name, email, phone, and password are required fields"

	mock.ExpectBegin()
	mock.ExpectRollback()

	outcome, err := repo.BulkCreateWorkers(context.Background(), []BulkWorkerRecord{record})

	require.NoError(t, err)
	assert.False(t, outcome.Committed)
	assert.Empty(t, outcome.Successful)
	require.Len(t, outcome.Failed, 1)
	assert.Equal(t, record.SkipReason, outcome.Failed[0].Reason)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkCreateWorkers_InsertFailureRollsBackToSavepoint(t *testing.T) {
	db, mock, repo := setupWorkerRepo(t)
	defer db.Close()

	mock.ExpectBegin()
	expectEmailFree(mock, "a@example.com")
	mock.ExpectExec(`SAVEPOINT bulk_worker_0`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`INSERT INTO users`).
		WillReturnError(assert.AnError)
	mock.ExpectExec(`ROLLBACK TO SAVEPOINT bulk_worker_0`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	outcome, err := repo.BulkCreateWorkers(context.Background(), []BulkWorkerRecord{
		bulkRecord(0, "a@example.com"),
	})

	require.NoError(t, err)
	assert.False(t, outcome.Committed)
	require.Len(t, outcome.Failed, 1)
	assert.Equal(t, "a@example.com", outcome.Failed[0].Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}
