package users

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Pechenuxa1/EffectiveMobileTestTask/internal/credential"
	"github.com/Pechenuxa1/EffectiveMobileTestTask/internal/rbac"
	"github.com/Pechenuxa1/EffectiveMobileTestTask/internal/roles"
	"github.com/Pechenuxa1/EffectiveMobileTestTask/internal/shared"
)

type memoryRepo struct {
	users map[int64]User
}

func newMemoryRepo(list ...User) *memoryRepo {
	m := &memoryRepo{users: make(map[int64]User)}
	for _, u := range list {
		m.users[u.ID] = u
	}
	return m
}

func (m *memoryRepo) FindUserByID(ctx context.Context, id int64) (User, error) {
	u, ok := m.users[id]
	if !ok {
		return User{}, shared.ErrNotFound
	}
	return u, nil
}

func (m *memoryRepo) UpdateUser(ctx context.Context, id int64, c Changes) (User, error) {
	u, ok := m.users[id]
	if !ok {
		return User{}, shared.ErrNotFound
	}
	if c.Firstname != nil {
		u.Firstname = *c.Firstname
	}
	if c.Surname != nil {
		u.Surname = *c.Surname
	}
	if c.MiddleName != nil {
		u.MiddleName = c.MiddleName
	}
	if c.Email != nil {
		u.Email = NormalizeEmail(*c.Email)
	}
	if c.PasswordHash != nil {
		u.PasswordHash = *c.PasswordHash
	}
	m.users[id] = u
	return u, nil
}

func (m *memoryRepo) Deactivate(ctx context.Context, id int64) (User, error) {
	u, ok := m.users[id]
	if !ok {
		return User{}, shared.ErrNotFound
	}
	u.IsActive = false
	m.users[id] = u
	return u, nil
}

func (m *memoryRepo) ListUsers(ctx context.Context, limit, offset int) ([]User, int, error) {
	out := make([]User, 0)
	for id := int64(1); id <= int64(len(m.users)); id++ {
		if u, ok := m.users[id]; ok {
			out = append(out, u)
		}
	}
	total := len(out)
	if offset >= len(out) {
		return []User{}, total, nil
	}
	end := offset + limit
	if end > len(out) {
		end = len(out)
	}
	return out[offset:end], total, nil
}

type fakeHasher struct{}

func (fakeHasher) Hash(plaintext string) (string, error) { return "hashed:" + plaintext, nil }

type stubRevoker struct {
	revoked []string
	err     error
}

func (s *stubRevoker) Logout(ctx context.Context, p *shared.Principal) error {
	if s.err != nil {
		return s.err
	}
	s.revoked = append(s.revoked, p.Token)
	return nil
}

type stubAudit struct {
	entries []shared.AuditLog
}

func (s *stubAudit) EnqueueAudit(ctx context.Context, entry shared.AuditLog) error {
	s.entries = append(s.entries, entry)
	return nil
}

type staticResolver map[int64]rbac.Grant

func (s staticResolver) FindGrant(ctx context.Context, roleID int64, resource string) (rbac.Grant, error) {
	g, ok := s[roleID]
	if !ok || resource != rbac.ResourceProfiles {
		return rbac.Grant{}, rbac.ErrGrantNotFound
	}
	return g, nil
}

const (
	userRole  int64 = 1
	adminRole int64 = 3
)

func testUser(id int64) User {
	return User{
		ID:           id,
		Firstname:    "Ivan",
		Surname:      "Petrov",
		Email:        "ivan@example.com",
		PasswordHash: "secret-hash",
		IsActive:     true,
		Role:         &roles.Role{ID: userRole, Name: roles.NameUser},
	}
}

func newProfileRouter(repo *memoryRepo, revoker *stubRevoker, audit *stubAudit) http.Handler {
	resolver := staticResolver{
		userRole:  {RoleID: userRole, Resource: rbac.ResourceProfiles, Create: true, Read: true, Update: true, Delete: true},
		adminRole: {RoleID: adminRole, Resource: rbac.ResourceProfiles, Create: true, Read: true, ReadAll: true, Update: true, UpdateAll: true, Delete: true, DeleteAll: true},
	}
	mw := rbac.Middleware{Authorizer: rbac.NewEngine(resolver, time.Second, nil)}
	h := NewHandler(nil, NewService(repo, fakeHasher{}), mw, revoker, audit)
	r := chi.NewRouter()
	r.Route("/profile", h.MountRoutes)
	return r
}

func asPrincipal(r *http.Request, userID, roleID int64) *http.Request {
	p := &shared.Principal{UserID: userID, RoleID: roleID, Token: "tok-" + string(rune('0'+userID))}
	return r.WithContext(shared.ContextWithPrincipal(r.Context(), p))
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "ivan@example.com", NormalizeEmail("  Ivan@Example.COM "))
	assert.Equal(t, NormalizeEmail("STRASSE@x.de"), NormalizeEmail("strasse@X.DE"))
}

func TestNormalizeEmailConcurrent(t *testing.T) {
	var wg sync.WaitGroup
	results := make([]string, 32)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = NormalizeEmail(" User@Example.COM ")
		}(i)
	}
	wg.Wait()
	for _, got := range results {
		assert.Equal(t, "user@example.com", got)
	}
}

func TestUserJSONHidesPassword(t *testing.T) {
	data, err := json.Marshal(testUser(1))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "secret-hash")
	assert.Contains(t, string(data), `"role":{"id":1,"name":"USER"}`)
}

func TestUpdateProfile(t *testing.T) {
	repo := newMemoryRepo(testUser(1))
	svc := NewService(repo, fakeHasher{})
	ctx := context.Background()

	weak := "abcdefgh"
	_, err := svc.UpdateProfile(ctx, 1, ProfilePatch{Password: &weak})
	var weakErr *credential.WeakPasswordError
	require.ErrorAs(t, err, &weakErr)
	assert.Equal(t, "secret-hash", repo.users[1].PasswordHash)

	strong := "N3w!passw0rd"
	name := "  Pyotr "
	user, err := svc.UpdateProfile(ctx, 1, ProfilePatch{Password: &strong, Firstname: &name})
	require.NoError(t, err)
	assert.Equal(t, "Pyotr", user.Firstname)
	assert.Equal(t, "hashed:"+strong, repo.users[1].PasswordHash)

	blank := "   "
	_, err = svc.UpdateProfile(ctx, 1, ProfilePatch{Surname: &blank})
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestProfileRoutes(t *testing.T) {
	repo := newMemoryRepo(testUser(1), testUser(2))
	revoker := &stubRevoker{}
	audit := &stubAudit{}
	router := newProfileRouter(repo, revoker, audit)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, asPrincipal(httptest.NewRequest(http.MethodGet, "/profile/my", nil), 1, userRole))
	require.Equal(t, http.StatusOK, rr.Code)
	var got User
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, int64(1), got.ID)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, asPrincipal(httptest.NewRequest(http.MethodPatch, "/profile/my", strings.NewReader(`{"surname":"Sidorov"}`)), 1, userRole))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Sidorov", repo.users[1].Surname)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, asPrincipal(httptest.NewRequest(http.MethodPatch, "/profile/my", strings.NewReader(`{"password":"abcdefgh"}`)), 1, userRole))
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "one uppercase letter")

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, asPrincipal(httptest.NewRequest(http.MethodGet, "/profile", nil), 1, userRole))
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, asPrincipal(httptest.NewRequest(http.MethodGet, "/profile?per_page=1&page=2", nil), 2, adminRole))
	require.Equal(t, http.StatusOK, rr.Code)
	var page struct {
		Items      []User            `json:"items"`
		Pagination shared.Pagination `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &page))
	require.Len(t, page.Items, 1)
	assert.Equal(t, int64(2), page.Items[0].ID)
	assert.Equal(t, 2, page.Pagination.Total)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, asPrincipal(httptest.NewRequest(http.MethodDelete, "/profile/my", nil), 1, userRole))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.False(t, repo.users[1].IsActive)
	assert.Equal(t, []string{"tok-1"}, revoker.revoked)

	actions := make([]string, 0, len(audit.entries))
	for _, e := range audit.entries {
		actions = append(actions, e.Action)
	}
	assert.Equal(t, []string{"profile_update", "deactivate"}, actions)
}

func TestDeleteProfileFailsWhenRevocationFails(t *testing.T) {
	repo := newMemoryRepo(testUser(1))
	router := newProfileRouter(repo, &stubRevoker{err: errors.New("redis down")}, &stubAudit{})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, asPrincipal(httptest.NewRequest(http.MethodDelete, "/profile/my", nil), 1, userRole))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}
