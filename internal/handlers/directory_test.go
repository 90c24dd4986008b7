package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/gramseva/apiserver/internal/services"
	"github.com/gramseva/apiserver/internal/store"
	"github.com/gramseva/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeRoster serves one role's directory reads with a fixed profile set.
type fakeRoster struct {
	role     types.Role
	profiles map[int]types.Profile
}

func (f *fakeRoster) Role() types.Role { return f.role }

func (f *fakeRoster) List(_ context.Context) ([]types.Profile, error) {
	out := make([]types.Profile, 0, len(f.profiles))
	for _, profile := range f.profiles {
		out = append(out, profile)
	}
	return out, nil
}

func (f *fakeRoster) GetByID(_ context.Context, id int) (types.Profile, error) {
	profile, ok := f.profiles[id]
	if !ok {
		return types.Profile{}, store.ErrNotFound
	}
	return profile, nil
}

func (f *fakeRoster) GetByUserID(_ context.Context, userID int) (types.Profile, error) {
	for _, profile := range f.profiles {
		if profile.UserID == userID {
			return profile, nil
		}
	}
	return types.Profile{}, store.ErrNotFound
}

func (f *fakeRoster) ListByDistrict(_ context.Context, district string) ([]types.Profile, error) {
	return nil, nil
}

func (f *fakeRoster) ListByTaluka(_ context.Context, taluka string) ([]types.Profile, error) {
	return nil, nil
}

func (f *fakeRoster) ListByVillage(_ context.Context, village string) ([]types.Profile, error) {
	return nil, nil
}

func (f *fakeRoster) ListByAssignedArea(_ context.Context, area string) ([]types.Profile, error) {
	return nil, nil
}

func (f *fakeRoster) ListByRegisteredBy(_ context.Context, registeredBy string) ([]types.Profile, error) {
	return nil, nil
}

func (f *fakeRoster) Search(_ context.Context, query string) ([]types.Profile, error) {
	return nil, nil
}

func (f *fakeRoster) Stats(_ context.Context) (types.ProfileStats, error) {
	return types.ProfileStats{Total: len(f.profiles)}, nil
}

func (f *fakeRoster) CountByTaluka(_ context.Context) ([]types.FieldCount, error) {
	return nil, nil
}

func (f *fakeRoster) CountByVillage(_ context.Context) ([]types.FieldCount, error) {
	return nil, nil
}

func (f *fakeRoster) UpdateWithIdentity(_ context.Context, profileID int, contact store.ContactPatch, profile store.ProfilePatch) error {
	if _, ok := f.profiles[profileID]; !ok {
		return store.ErrNotFound
	}
	return nil
}

func (f *fakeRoster) SoftDeleteByID(_ context.Context, profileID int) error {
	if _, ok := f.profiles[profileID]; !ok {
		return store.ErrNotFound
	}
	delete(f.profiles, profileID)
	return nil
}

func newDirectoryTestRouter(t *testing.T, role types.Role, pattern string) *chi.Mux {
	t.Helper()
	roster := &fakeRoster{
		role:     role,
		profiles: map[int]types.Profile{3: {ID: 3, UserID: 10, Name: "Ravi Jadhav"}},
	}
	directory := services.NewDirectoryService(roster)
	registration := services.NewRegistrationService(newMemoryIdentityStore(), "")
	handler := NewDirectoryHandler(directory, registration, nil, zap.NewNop(), false)

	router := chi.NewRouter()
	router.NotFound(NotFound)
	router.Route(pattern, func(r chi.Router) {
		DirectoryRouter(r, handler)
	})
	return router
}

func getStatus(t *testing.T, router http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestDirectoryRouter_AssociateRouteSet(t *testing.T) {
	router := newDirectoryTestRouter(t, types.RoleAssociate, "/associates")

	rec := getStatus(t, router, "/associates/3")
	assert.Equal(t, http.StatusOK, rec.Code)

	// Associates expose only the base set; stats and search paths do not
	// resolve to the id wildcard, they 404 like any unknown route.
	for _, path := range []string{
		"/associates/stats/count",
		"/associates/stats/count-by-taluka",
		"/associates/search/ravi",
		"/associates/district/Pune",
		"/associates/not-a-number",
	} {
		rec := getStatus(t, router, path)
		require.Equal(t, http.StatusNotFound, rec.Code, path)
		resp := decodeResponse(t, rec)
		assert.Equal(t, "Route not found", resp.Message, path)
	}
}

func TestDirectoryRouter_GroundWorkerRouteSet(t *testing.T) {
	router := newDirectoryTestRouter(t, types.RoleGroundWorker, "/ground-workers")

	for _, path := range []string{
		"/ground-workers/3",
		"/ground-workers/user/10",
		"/ground-workers/stats/count",
		"/ground-workers/stats/count-by-taluka",
		"/ground-workers/stats/count-by-village",
		"/ground-workers/district/Pune",
		"/ground-workers/village/Wagholi",
	} {
		rec := getStatus(t, router, path)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}

	rec := getStatus(t, router, "/ground-workers/999")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Equal(t, "Ground Worker not found", resp.Message)
}
