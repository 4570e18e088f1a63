package auth

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

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Pechenuxa1/EffectiveMobileTestTask/internal/credential"
	"github.com/Pechenuxa1/EffectiveMobileTestTask/internal/rbac"
	"github.com/Pechenuxa1/EffectiveMobileTestTask/internal/revocation"
	"github.com/Pechenuxa1/EffectiveMobileTestTask/internal/roles"
	"github.com/Pechenuxa1/EffectiveMobileTestTask/internal/shared"
	"github.com/Pechenuxa1/EffectiveMobileTestTask/internal/token"
	"github.com/Pechenuxa1/EffectiveMobileTestTask/internal/users"
)

const (
	testSecret   = "0123456789abcdef0123456789abcdef"
	testPassword = "Str0ng!Pass"
)

var (
	roleUser  = roles.Role{ID: 1, Name: roles.NameUser}
	roleAdmin = roles.Role{ID: 3, Name: roles.NameAdmin}
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type memoryUsers struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]users.User
	roles  map[int64]roles.Role
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{
		byID:  make(map[int64]users.User),
		roles: map[int64]roles.Role{roleUser.ID: roleUser, roleAdmin.ID: roleAdmin},
	}
}

func (m *memoryUsers) FindUserByID(ctx context.Context, id int64) (users.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return users.User{}, shared.ErrNotFound
	}
	return u, nil
}

func (m *memoryUsers) FindUserByEmail(ctx context.Context, email string) (users.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return users.User{}, shared.ErrNotFound
}

func (m *memoryUsers) CreateUser(ctx context.Context, in users.CreateInput) (users.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	u := users.User{
		ID:           m.nextID,
		Firstname:    in.Firstname,
		Surname:      in.Surname,
		MiddleName:   in.MiddleName,
		Email:        in.Email,
		PasswordHash: in.PasswordHash,
		IsActive:     true,
	}
	if role, ok := m.roles[in.RoleID]; ok {
		u.Role = &role
	}
	m.byID[u.ID] = u
	return u, nil
}

func (m *memoryUsers) FindRoleByID(ctx context.Context, id int64) (roles.Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.roles[id]
	if !ok {
		return roles.Role{}, shared.ErrNotFound
	}
	return r, nil
}

func (m *memoryUsers) put(u users.User) {
	m.mu.Lock()
	m.byID[u.ID] = u
	if u.ID > m.nextID {
		m.nextID = u.ID
	}
	m.mu.Unlock()
}

type recordingAudit struct {
	mu      sync.Mutex
	actions []string
	err     error
}

func (r *recordingAudit) EnqueueAudit(ctx context.Context, entry shared.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions = append(r.actions, entry.Action)
	return r.err
}

type failureCounter struct {
	mu      sync.Mutex
	reasons []string
}

func (f *failureCounter) ObserveAuthFailure(reason string) {
	f.mu.Lock()
	f.reasons = append(f.reasons, reason)
	f.mu.Unlock()
}

type grantTable map[int64]rbac.Grant

func (g grantTable) FindGrant(ctx context.Context, roleID int64, resource string) (rbac.Grant, error) {
	grant, ok := g[roleID]
	if !ok || grant.Resource != resource {
		return rbac.Grant{}, rbac.ErrGrantNotFound
	}
	return grant, nil
}

type fixture struct {
	mr       *miniredis.Miniredis
	clock    *fakeClock
	tokens   *token.Service
	store    *memoryUsers
	audit    *recordingAudit
	failures *failureCounter
	authn    *Authenticator
	service  *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	tokens, err := token.NewService(token.Config{
		Secret:    []byte(testSecret),
		Algorithm: "HS256",
		TTL:       time.Hour,
		Clock:     clock.Now,
	})
	require.NoError(t, err)
	hasher, err := credential.NewHasher(4)
	require.NoError(t, err)

	store := newMemoryUsers()
	audit := &recordingAudit{}
	failures := &failureCounter{}
	revoked := revocation.NewRedisStore(client)
	engine := rbac.NewEngine(grantTable{
		roleUser.ID: {RoleID: roleUser.ID, Resource: rbac.ResourceProducts, Read: true, Create: true},
	}, time.Second, nil)

	return &fixture{
		mr:       mr,
		clock:    clock,
		tokens:   tokens,
		store:    store,
		audit:    audit,
		failures: failures,
		authn: NewAuthenticator(AuthenticatorConfig{
			Tokens:      tokens,
			Revocations: revoked,
			Users:       store,
			Roles:       store,
			Authorizer:  engine,
			Observer:    failures,
		}),
		service: NewService(ServiceConfig{
			Users:       store,
			Roles:       store,
			Hasher:      hasher,
			Tokens:      tokens,
			Revocations: revoked,
			Audit:       audit,
			Clock:       clock.Now,
		}),
	}
}

func (f *fixture) signUp(t *testing.T, email string) string {
	t.Helper()
	raw, err := f.service.SignUp(context.Background(), SignUpInput{
		Firstname: "Ivan",
		Surname:   "Petrov",
		Email:     email,
		Password:  testPassword,
		RoleID:    roleUser.ID,
	})
	require.NoError(t, err)
	return raw
}

func TestParseBearer(t *testing.T) {
	cases := map[string]struct {
		header string
		token  string
		ok     bool
	}{
		"valid":        {header: "Bearer abc.def.ghi", token: "abc.def.ghi", ok: true},
		"lowercase":    {header: "bearer abc", token: "abc", ok: true},
		"empty":        {header: "", ok: false},
		"basic scheme": {header: "Basic dXNlcjpwYXNz", ok: false},
		"no token":     {header: "Bearer ", ok: false},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			got, ok := ParseBearer(tc.header)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.token, got)
		})
	}
}

func TestSignUpThenAuthenticate(t *testing.T) {
	f := newFixture(t)
	raw := f.signUp(t, "Ivan@Example.com")

	principal, err := f.authn.AuthenticateRequest(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, roleUser.ID, principal.RoleID)
	assert.Equal(t, roles.NameUser, principal.RoleName)
	assert.Equal(t, raw, principal.Token)
	assert.Equal(t, f.clock.Now().Add(time.Hour), principal.ExpiresAt)

	stored, err := f.store.FindUserByID(context.Background(), principal.UserID)
	require.NoError(t, err)
	assert.Equal(t, "ivan@example.com", stored.Email)
	assert.NotEqual(t, testPassword, stored.PasswordHash)
	assert.Equal(t, []string{ActionSignUp}, f.audit.actions)
}

func TestLogoutRevokesForRemainingLifetime(t *testing.T) {
	f := newFixture(t)
	raw := f.signUp(t, "user@example.com")
	principal, err := f.authn.AuthenticateRequest(context.Background(), raw)
	require.NoError(t, err)

	f.clock.Advance(20 * time.Minute)
	require.NoError(t, f.service.Logout(context.Background(), principal))

	assert.Equal(t, 40*time.Minute, f.mr.TTL(revocation.Key(raw)))
	_, err = f.authn.AuthenticateRequest(context.Background(), raw)
	require.ErrorIs(t, err, shared.ErrUnauthorized)
	assert.Contains(t, f.failures.reasons, FailureRevoked)
}

func TestLogoutOfExpiredTokenStoresNothing(t *testing.T) {
	f := newFixture(t)
	principal := &shared.Principal{UserID: 1, Token: "whatever", ExpiresAt: f.clock.Now().Add(-time.Second)}

	require.NoError(t, f.service.Logout(context.Background(), principal))
	assert.False(t, f.mr.Exists(revocation.Key("whatever")))
}

func TestLogoutWithoutPrincipal(t *testing.T) {
	f := newFixture(t)
	require.ErrorIs(t, f.service.Logout(context.Background(), nil), shared.ErrUnauthorized)
}

func TestLogoutFailsWhenStoreUnavailable(t *testing.T) {
	f := newFixture(t)
	raw := f.signUp(t, "user@example.com")
	principal, err := f.authn.AuthenticateRequest(context.Background(), raw)
	require.NoError(t, err)

	f.mr.Close()
	assert.Error(t, f.service.Logout(context.Background(), principal))
}

func TestAuthenticateRejections(t *testing.T) {
	f := newFixture(t)
	raw := f.signUp(t, "user@example.com")

	other, err := token.NewService(token.Config{Secret: []byte(strings.Repeat("x", 32)), Algorithm: "HS256", TTL: time.Hour})
	require.NoError(t, err)
	forged, _, err := other.Issue(1)
	require.NoError(t, err)
	ghost, _, err := f.tokens.Issue(999)
	require.NoError(t, err)

	cases := map[string]struct {
		bearer string
		reason string
	}{
		"empty":          {bearer: "", reason: FailureMissingToken},
		"garbage":        {bearer: "not-a-token", reason: FailureInvalid},
		"wrong secret":   {bearer: forged, reason: FailureInvalid},
		"unknown user":   {bearer: ghost, reason: FailureUnknownSubject},
		"tampered token": {bearer: raw + "x", reason: FailureInvalid},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.authn.AuthenticateRequest(context.Background(), tc.bearer)
			require.ErrorIs(t, err, shared.ErrUnauthorized)
			assert.Equal(t, tc.reason, f.failures.reasons[len(f.failures.reasons)-1])
		})
	}
}

func TestAuthenticateExpiredToken(t *testing.T) {
	f := newFixture(t)
	raw := f.signUp(t, "user@example.com")

	f.clock.Advance(time.Hour)
	_, err := f.authn.AuthenticateRequest(context.Background(), raw)
	require.ErrorIs(t, err, shared.ErrUnauthorized)

	var tokErr *token.Error
	require.True(t, errors.As(err, &tokErr))
	assert.Equal(t, token.KindExpired, tokErr.Kind)
	assert.Equal(t, []string{FailureExpired}, f.failures.reasons)
}

func TestAuthenticateFailsClosedWithoutRevocationStore(t *testing.T) {
	f := newFixture(t)
	raw := f.signUp(t, "user@example.com")

	f.mr.Close()
	_, err := f.authn.AuthenticateRequest(context.Background(), raw)
	require.ErrorIs(t, err, shared.ErrUnauthorized)
	assert.Equal(t, []string{FailureRevocationUnavailable}, f.failures.reasons)
}

type blockingRevocations struct{}

func (blockingRevocations) Revoke(ctx context.Context, token string, ttl time.Duration) error {
	<-ctx.Done()
	return ctx.Err()
}

func (blockingRevocations) IsRevoked(ctx context.Context, token string) (bool, error) {
	<-ctx.Done()
	return false, ctx.Err()
}

func TestAuthenticateFailsClosedOnRevocationTimeout(t *testing.T) {
	f := newFixture(t)
	raw := f.signUp(t, "user@example.com")

	failures := &failureCounter{}
	authn := NewAuthenticator(AuthenticatorConfig{
		Tokens:        f.tokens,
		Revocations:   blockingRevocations{},
		Users:         f.store,
		Roles:         f.store,
		LookupTimeout: 20 * time.Millisecond,
		Observer:      failures,
	})

	start := time.Now()
	_, err := authn.AuthenticateRequest(context.Background(), raw)
	elapsed := time.Since(start)

	require.ErrorIs(t, err, shared.ErrUnauthorized)
	assert.Equal(t, []string{FailureRevocationUnavailable}, failures.reasons)
	assert.Less(t, elapsed, time.Second)
}

func TestSignUpOverlongPasswordOverHTTP(t *testing.T) {
	f := newFixture(t)
	router := newTestRouter(f)

	body := `{"firstname":"A","surname":"B","email":"long@example.com","password":"Aa1!` + strings.Repeat("x", 80) + `","role_id":1}`
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/auth/sign-up", strings.NewReader(body)))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "at most 72 bytes")
}

func TestAuthenticateInactiveAndRoleless(t *testing.T) {
	f := newFixture(t)
	f.store.put(users.User{ID: 10, Email: "gone@example.com", IsActive: false, Role: &roleUser})
	f.store.put(users.User{ID: 11, Email: "norole@example.com", IsActive: true})
	f.store.put(users.User{ID: 12, Email: "stale@example.com", IsActive: true, Role: &roles.Role{ID: 42, Name: "GHOST"}})

	inactive, _, err := f.tokens.Issue(10)
	require.NoError(t, err)
	_, err = f.authn.AuthenticateRequest(context.Background(), inactive)
	require.ErrorIs(t, err, shared.ErrUnauthorized)

	roleless, _, err := f.tokens.Issue(11)
	require.NoError(t, err)
	_, err = f.authn.AuthenticateRequest(context.Background(), roleless)
	require.ErrorIs(t, err, shared.ErrForbidden)

	stale, _, err := f.tokens.Issue(12)
	require.NoError(t, err)
	_, err = f.authn.AuthenticateRequest(context.Background(), stale)
	require.ErrorIs(t, err, shared.ErrForbidden)
}

func TestAuthorizeRequest(t *testing.T) {
	f := newFixture(t)
	principal := &shared.Principal{UserID: 1, RoleID: roleUser.ID}
	ctx := context.Background()

	assert.NoError(t, f.authn.AuthorizeRequest(ctx, principal, http.MethodGet, rbac.ResourceProducts, rbac.ScopeOwn))
	assert.NoError(t, f.authn.AuthorizeRequest(ctx, principal, http.MethodPost, rbac.ResourceProducts, rbac.ScopeOwn))
	assert.ErrorIs(t, f.authn.AuthorizeRequest(ctx, principal, http.MethodGet, rbac.ResourceProducts, rbac.ScopeAll), shared.ErrForbidden)
	assert.ErrorIs(t, f.authn.AuthorizeRequest(ctx, principal, http.MethodDelete, rbac.ResourceProducts, rbac.ScopeOwn), shared.ErrForbidden)
	assert.ErrorIs(t, f.authn.AuthorizeRequest(ctx, principal, http.MethodGet, rbac.ResourceOrders, rbac.ScopeOwn), shared.ErrForbidden)
	assert.ErrorIs(t, f.authn.AuthorizeRequest(ctx, nil, http.MethodGet, rbac.ResourceProducts, rbac.ScopeOwn), shared.ErrUnauthorized)
}

func TestSignUpRejections(t *testing.T) {
	f := newFixture(t)
	f.signUp(t, "taken@example.com")

	base := SignUpInput{Firstname: "A", Surname: "B", Email: "new@example.com", Password: testPassword, RoleID: roleUser.ID}
	cases := map[string]struct {
		mutate func(*SignUpInput)
		want   error
	}{
		"weak password":   {mutate: func(in *SignUpInput) { in.Password = "abcdefgh" }, want: shared.ErrValidation},
		"overlong":        {mutate: func(in *SignUpInput) { in.Password = "Aa1!" + strings.Repeat("x", 80) }, want: shared.ErrValidation},
		"admin role":      {mutate: func(in *SignUpInput) { in.RoleID = roleAdmin.ID }, want: shared.ErrValidation},
		"unknown role":    {mutate: func(in *SignUpInput) { in.RoleID = 77 }, want: shared.ErrValidation},
		"duplicate email": {mutate: func(in *SignUpInput) { in.Email = "TAKEN@example.com" }, want: shared.ErrConflict},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			in := base
			tc.mutate(&in)
			_, err := f.service.SignUp(context.Background(), in)
			require.ErrorIs(t, err, tc.want)
		})
	}

	var weak *credential.WeakPasswordError
	_, err := f.service.SignUp(context.Background(), SignUpInput{Firstname: "A", Surname: "B", Email: "x@example.com", Password: "short", RoleID: 1})
	require.True(t, errors.As(err, &weak))
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	f.signUp(t, "user@example.com")
	ctx := context.Background()

	raw, err := f.service.Login(ctx, LoginInput{Email: "USER@example.com", Password: testPassword})
	require.NoError(t, err)
	_, err = f.authn.AuthenticateRequest(ctx, raw)
	require.NoError(t, err)

	_, err = f.service.Login(ctx, LoginInput{Email: "user@example.com", Password: "Wr0ng!Pass"})
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)

	_, err = f.service.Login(ctx, LoginInput{Email: "nobody@example.com", Password: testPassword})
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)

	user, err := f.store.FindUserByEmail(ctx, "user@example.com")
	require.NoError(t, err)
	user.IsActive = false
	f.store.put(user)
	_, err = f.service.Login(ctx, LoginInput{Email: "user@example.com", Password: testPassword})
	require.ErrorIs(t, err, shared.ErrInactiveUser)

	_, err = f.service.Login(ctx, LoginInput{Email: "user@example.com", Password: "Wr0ng!Pass"})
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)

	assert.Equal(t, []string{ActionSignUp, ActionLogin}, f.audit.actions)
}

func TestAuditFailureDoesNotFailFlow(t *testing.T) {
	f := newFixture(t)
	f.audit.err = errors.New("queue down")
	f.signUp(t, "user@example.com")
	assert.Equal(t, []string{ActionSignUp}, f.audit.actions)
}

func newTestRouter(f *fixture) http.Handler {
	h := NewHandler(nil, f.service, Middleware{Authenticator: f.authn}, nil)
	r := chi.NewRouter()
	r.Route("/auth", h.MountRoutes)
	return r
}

func TestHandlerFlow(t *testing.T) {
	f := newFixture(t)
	router := newTestRouter(f)

	body := `{"firstname":"Ivan","surname":"Petrov","email":"ivan@example.com","password":"Str0ng!Pass","role_id":1}`
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/auth/sign-up", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rr.Code)
	var signed TokenResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &signed))
	require.NotEmpty(t, signed.Token)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"ivan@example.com","password":"Str0ng!Pass"}`)))
	require.Equal(t, http.StatusOK, rr.Code)
	var logged TokenResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &logged))

	logout := func() int {
		req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
		req.Header.Set("Authorization", "Bearer "+logged.Token)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		return rr.Code
	}
	assert.Equal(t, http.StatusNoContent, logout())
	assert.Equal(t, http.StatusUnauthorized, logout())
}

func TestHandlerErrors(t *testing.T) {
	f := newFixture(t)
	router := newTestRouter(f)
	f.signUp(t, "taken@example.com")

	cases := map[string]struct {
		path   string
		body   string
		status int
	}{
		"sign-up missing fields": {path: "/auth/sign-up", body: `{"email":"a@b.c"}`, status: http.StatusBadRequest},
		"sign-up duplicate":      {path: "/auth/sign-up", body: `{"firstname":"A","surname":"B","email":"taken@example.com","password":"Str0ng!Pass","role_id":1}`, status: http.StatusConflict},
		"sign-up admin":          {path: "/auth/sign-up", body: `{"firstname":"A","surname":"B","email":"x@example.com","password":"Str0ng!Pass","role_id":3}`, status: http.StatusBadRequest},
		"login bad password":     {path: "/auth/login", body: `{"email":"taken@example.com","password":"nope"}`, status: http.StatusBadRequest},
		"login malformed":        {path: "/auth/login", body: `{`, status: http.StatusBadRequest},
		"logout without token":   {path: "/auth/logout", body: ``, status: http.StatusUnauthorized},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, tc.path, strings.NewReader(tc.body)))
			assert.Equal(t, tc.status, rr.Code)
		})
	}
}
