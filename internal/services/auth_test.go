package services

import (
	"context"
	"testing"

	"github.com/gramseva/apiserver/internal/store"
	"github.com/gramseva/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fakeIdentityReader struct {
	users        map[string]types.User
	updatedID    int
	updatedHash  string
	updateCalled bool
}

func (f *fakeIdentityReader) GetByEmail(_ context.Context, email string) (types.User, error) {
	user, ok := f.users[email]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (f *fakeIdentityReader) GetByID(_ context.Context, id int) (types.User, error) {
	for _, user := range f.users {
		if user.ID == id {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (f *fakeIdentityReader) UpdatePassword(_ context.Context, id int, hash string) error {
	f.updateCalled = true
	f.updatedID = id
	f.updatedHash = hash
	return nil
}

func newAuthFixture(t *testing.T, password string) (*AuthService, *fakeIdentityReader) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	identities := &fakeIdentityReader{users: map[string]types.User{
		"asha@example.com": {
			ID:           7,
			Name:         "Asha Patil",
			Email:        "asha@example.com",
			PasswordHash: string(hash),
			Role:         types.RoleVillager,
			IsActive:     true,
		},
	}}
	return NewAuthService(identities), identities
}

func TestLogin_Success(t *testing.T) {
	svc, _ := newAuthFixture(t, "secret123")

	user, err := svc.Login(context.Background(), "asha@example.com", "secret123")

	require.NoError(t, err)
	assert.Equal(t, 7, user.ID)
}

func TestLogin_WrongPasswordAndUnknownEmailIndistinguishable(t *testing.T) {
	svc, _ := newAuthFixture(t, "secret123")

	_, wrongPassword := svc.Login(context.Background(), "asha@example.com", "wrong")
	_, unknownEmail := svc.Login(context.Background(), "nobody@example.com", "secret123")

	assert.ErrorIs(t, wrongPassword, ErrInvalidCredentials)
	assert.ErrorIs(t, unknownEmail, ErrInvalidCredentials)
	assert.Equal(t, wrongPassword, unknownEmail)
}

func TestLogin_MissingInput(t *testing.T) {
	svc, _ := newAuthFixture(t, "secret123")

	_, err := svc.Login(context.Background(), "", "secret123")

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestChangePassword_VerifiesCurrentFirst(t *testing.T) {
	svc, identities := newAuthFixture(t, "secret123")

	err := svc.ChangePassword(context.Background(), 7, "wrong", "newpass456")

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Current password is incorrect", verr.Message)
	assert.False(t, identities.updateCalled)
}

func TestChangePassword_StoresNewHash(t *testing.T) {
	svc, identities := newAuthFixture(t, "secret123")

	err := svc.ChangePassword(context.Background(), 7, "secret123", "newpass456")

	require.NoError(t, err)
	assert.True(t, identities.updateCalled)
	assert.Equal(t, 7, identities.updatedID)
	assert.NotEqual(t, "newpass456", identities.updatedHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword(
		[]byte(identities.updatedHash), []byte("newpass456")))
}
