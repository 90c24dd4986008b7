package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gramseva/apiserver/types"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleVillager(email string) types.User {
	return types.User{
		Name:         "Asha Patil",
		Phone:        "9876543210",
		Email:        email,
		PasswordHash: "$2a$10$hash",
		Role:         types.RoleVillager,
		RegisteredBy: "self",
	}
}

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return db, mock
}

var userRowColumns = []string{
	"id", "name", "phone", "email", "password", "role", "hospital_name",
	"registered_by", "registered_at", "is_active", "district", "state",
	"created_at", "updated_at",
}

func sampleUserRow(id int, email string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(userRowColumns).
		AddRow(id, "Asha Patil", "9876543210", email, "$2a$10$hash", "Villager",
			nil, "self", now, true, nil, nil, now, now)
}

func TestIdentityGetByEmail_Success(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()
	repo := NewIdentityRepository(db)

	mock.ExpectQuery(`SELECT id, name, phone, email`).
		WithArgs("asha@example.com").
		WillReturnRows(sampleUserRow(7, "asha@example.com"))

	user, err := repo.GetByEmail(context.Background(), "asha@example.com")

	require.NoError(t, err)
	assert.Equal(t, 7, user.ID)
	assert.Equal(t, "asha@example.com", user.Email)
	assert.True(t, user.IsActive)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdentityGetByEmail_NotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()
	repo := NewIdentityRepository(db)

	mock.ExpectQuery(`SELECT id, name, phone, email`).
		WithArgs("nobody@example.com").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByEmail(context.Background(), "nobody@example.com")

	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdentityEmailExists(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()
	repo := NewIdentityRepository(db)

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("taken@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.EmailExists(context.Background(), "taken@example.com")

	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdentityCreate_ReturnsID(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()
	repo := NewIdentityRepository(db)

	mock.ExpectQuery(`INSERT INTO users`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))

	user, err := repo.Create(context.Background(), sampleVillager("new@example.com"))

	require.NoError(t, err)
	assert.Equal(t, 42, user.ID)
	assert.True(t, user.IsActive)
	assert.False(t, user.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdentityCreate_DuplicateEmail(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()
	repo := NewIdentityRepository(db)

	mock.ExpectQuery(`INSERT INTO users`).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "users_email_key"})

	_, err := repo.Create(context.Background(), sampleVillager("taken@example.com"))

	assert.ErrorIs(t, err, ErrDuplicateEmail)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdentityCreate_DuplicateCollector(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()
	repo := NewIdentityRepository(db)

	mock.ExpectQuery(`INSERT INTO users`).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "users_collector_district_key"})

	_, err := repo.Create(context.Background(), sampleVillager("dc@example.com"))

	assert.ErrorIs(t, err, ErrDuplicateCollector)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdentityUpdateContact_NotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()
	repo := NewIdentityRepository(db)

	mock.ExpectExec(`UPDATE users`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateContact(context.Background(), 999, "Name", "mail@example.com", "123")

	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdentityUpdatePassword_Success(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()
	repo := NewIdentityRepository(db)

	mock.ExpectExec(`UPDATE users`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdatePassword(context.Background(), 7, "$2a$10$newhash")

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
