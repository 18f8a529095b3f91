package service

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/arthurnacious/school-manager-api/internal/models"
	appErrors "github.com/arthurnacious/school-manager-api/pkg/errors"
	"github.com/arthurnacious/school-manager-api/pkg/password"
)

type mockAuthUsers struct {
	byEmail          map[string]*models.User
	byID             map[string]*models.User
	rolePerms        map[models.UserRole][]models.Permission
	userPerms        map[string][]models.Permission
	auditLogs        []*models.AuditLog
	lastLoginUpdated bool
}

func (m *mockAuthUsers) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if u, ok := m.byEmail[email]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthUsers) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.byID[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthUsers) RolePermissions(ctx context.Context, role models.UserRole) ([]models.Permission, error) {
	return m.rolePerms[role], nil
}

func (m *mockAuthUsers) UserPermissions(ctx context.Context, userID string) ([]models.Permission, error) {
	return m.userPerms[userID], nil
}

func (m *mockAuthUsers) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	m.lastLoginUpdated = true
	return nil
}

func (m *mockAuthUsers) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.auditLogs = append(m.auditLogs, log)
	return nil
}

// mockAuthTokens mimics the transactional store: Rotate is a conditional
// delete + insert under one lock, so racing rotations have a single winner.
type mockAuthTokens struct {
	mu     sync.Mutex
	tokens map[string]*models.RefreshToken
}

func newMockAuthTokens() *mockAuthTokens {
	return &mockAuthTokens{tokens: make(map[string]*models.RefreshToken)}
}

func (m *mockAuthTokens) Create(ctx context.Context, token *models.RefreshToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[token.Token] = token
	return nil
}

func (m *mockAuthTokens) FindByTokenAndUser(ctx context.Context, userID, token string) (*models.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rt, ok := m.tokens[token]
	if !ok || rt.UserID != userID {
		return nil, sql.ErrNoRows
	}
	copied := *rt
	return &copied, nil
}

func (m *mockAuthTokens) Rotate(ctx context.Context, userID, oldToken string, next *models.RefreshToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rt, ok := m.tokens[oldToken]
	if !ok || rt.UserID != userID || !rt.ExpiresAt.After(time.Now().UTC()) {
		return sql.ErrNoRows
	}
	delete(m.tokens, oldToken)
	m.tokens[next.Token] = next
	return nil
}

func (m *mockAuthTokens) DeleteByToken(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tokens, token)
	return nil
}

func (m *mockAuthTokens) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var removed int64
	for value, rt := range m.tokens {
		if !rt.ExpiresAt.After(now) {
			delete(m.tokens, value)
			removed++
		}
	}
	return removed, nil
}

func (m *mockAuthTokens) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tokens)
}

func testAuthConfig() AuthConfig {
	return AuthConfig{
		Secret:             "test_secret",
		AccessTokenExpiry:  10 * time.Minute,
		RefreshTokenExpiry: 7 * 24 * time.Hour,
		Issuer:             "school-manager-api",
	}
}

func seedUser(t *testing.T) (*mockAuthUsers, *models.User) {
	t.Helper()
	hash, err := password.Hash("secret123")
	require.NoError(t, err)
	user := &models.User{
		ID:           "u1",
		Email:        "a@x.com",
		Name:         "Arthur",
		Role:         models.RoleAdmin,
		PasswordHash: hash,
		Active:       true,
	}
	users := &mockAuthUsers{
		byEmail: map[string]*models.User{user.Email: user},
		byID:    map[string]*models.User{user.ID: user},
		rolePerms: map[models.UserRole][]models.Permission{
			models.RoleAdmin: {"create_users", "edit_users", "view_reports"},
		},
		userPerms: map[string][]models.Permission{
			user.ID: {"view_payments", "view_reports"},
		},
	}
	return users, user
}

func TestLoginSuccess(t *testing.T) {
	users, user := seedUser(t)
	tokens := newMockAuthTokens()
	svc := NewAuthService(users, tokens, nil, nil, validator.New(), zap.NewNop(), testAuthConfig())

	res, err := svc.Login(context.Background(), models.LoginRequest{Email: "a@x.com", Password: "secret123"})
	require.NoError(t, err)

	assert.NotEmpty(t, res.AccessToken)
	assert.NotEmpty(t, res.RefreshToken)
	assert.Equal(t, user.ID, res.User.ID)
	assert.Equal(t, []models.Permission{"create_users", "edit_users", "view_payments", "view_reports"}, res.User.Permissions)
	assert.Equal(t, 1, tokens.count())
	assert.True(t, users.lastLoginUpdated)
}

func TestLoginCredentialOpacity(t *testing.T) {
	users, _ := seedUser(t)
	svc := NewAuthService(users, newMockAuthTokens(), nil, nil, validator.New(), zap.NewNop(), testAuthConfig())

	_, unknownErr := svc.Login(context.Background(), models.LoginRequest{Email: "nonexistent@x.com", Password: "anything"})
	_, wrongErr := svc.Login(context.Background(), models.LoginRequest{Email: "a@x.com", Password: "wrongpassword"})

	require.Error(t, unknownErr)
	require.Error(t, wrongErr)
	unknown := appErrors.FromError(unknownErr)
	wrong := appErrors.FromError(wrongErr)
	assert.Equal(t, unknown.Code, wrong.Code)
	assert.Equal(t, unknown.Status, wrong.Status)
	assert.Equal(t, unknown.Message, wrong.Message)
}

func TestLoginValidation(t *testing.T) {
	users, _ := seedUser(t)
	svc := NewAuthService(users, newMockAuthTokens(), nil, nil, validator.New(), zap.NewNop(), testAuthConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "", Password: "secret123"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.Login(context.Background(), models.LoginRequest{Email: "not-an-email", Password: "secret123"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestRefreshRotatesAndInvalidatesOldToken(t *testing.T) {
	users, _ := seedUser(t)
	tokens := newMockAuthTokens()
	svc := NewAuthService(users, tokens, nil, nil, validator.New(), zap.NewNop(), testAuthConfig())

	login, err := svc.Login(context.Background(), models.LoginRequest{Email: "a@x.com", Password: "secret123"})
	require.NoError(t, err)

	first, err := svc.Refresh(context.Background(), models.RefreshRequest{RefreshToken: login.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, first.RefreshToken)
	assert.Equal(t, 1, tokens.count())

	// The superseded token must never be honored again.
	_, err = svc.Refresh(context.Background(), models.RefreshRequest{RefreshToken: login.RefreshToken})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidToken.Code, appErrors.FromError(err).Code)

	// The successor still works.
	_, err = svc.Refresh(context.Background(), models.RefreshRequest{RefreshToken: first.RefreshToken})
	require.NoError(t, err)
	assert.Equal(t, 1, tokens.count())
}

func TestRefreshConcurrentSingleWinner(t *testing.T) {
	users, _ := seedUser(t)
	tokens := newMockAuthTokens()
	svc := NewAuthService(users, tokens, nil, nil, validator.New(), zap.NewNop(), testAuthConfig())

	login, err := svc.Login(context.Background(), models.LoginRequest{Email: "a@x.com", Password: "secret123"})
	require.NoError(t, err)

	const racers = 2
	errs := make([]error, racers)
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Refresh(context.Background(), models.RefreshRequest{RefreshToken: login.RefreshToken})
		}(i)
	}
	wg.Wait()

	var wins, losses int
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		losses++
		assert.Equal(t, appErrors.ErrInvalidToken.Code, appErrors.FromError(err).Code)
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, racers-1, losses)
	assert.Equal(t, 1, tokens.count())
}

func TestRefreshExpiredRecord(t *testing.T) {
	users, _ := seedUser(t)
	tokens := newMockAuthTokens()
	svc := NewAuthService(users, tokens, nil, nil, validator.New(), zap.NewNop(), testAuthConfig())

	login, err := svc.Login(context.Background(), models.LoginRequest{Email: "a@x.com", Password: "secret123"})
	require.NoError(t, err)

	// Row still present and token cryptographically well-formed, but the
	// record expiry has passed.
	tokens.mu.Lock()
	tokens.tokens[login.RefreshToken].ExpiresAt = time.Now().UTC().Add(-time.Minute)
	tokens.mu.Unlock()

	_, err = svc.Refresh(context.Background(), models.RefreshRequest{RefreshToken: login.RefreshToken})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidToken.Code, appErrors.FromError(err).Code)
	assert.Equal(t, 1, tokens.count())
}

func TestRefreshUnknownToken(t *testing.T) {
	users, _ := seedUser(t)
	svc := NewAuthService(users, newMockAuthTokens(), nil, nil, validator.New(), zap.NewNop(), testAuthConfig())

	// Well-signed token that was never persisted: signature validity alone
	// must not be enough.
	forged, _, err := svc.generateRefreshToken("u1")
	require.NoError(t, err)

	_, err = svc.Refresh(context.Background(), models.RefreshRequest{RefreshToken: forged})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidToken.Code, appErrors.FromError(err).Code)
}

func TestRefreshBadSignature(t *testing.T) {
	users, _ := seedUser(t)
	svc := NewAuthService(users, newMockAuthTokens(), nil, nil, validator.New(), zap.NewNop(), testAuthConfig())

	other := NewAuthService(users, newMockAuthTokens(), nil, nil, validator.New(), zap.NewNop(), AuthConfig{
		Secret:             "other_secret",
		AccessTokenExpiry:  10 * time.Minute,
		RefreshTokenExpiry: 7 * 24 * time.Hour,
	})
	token, _, err := other.generateRefreshToken("u1")
	require.NoError(t, err)

	_, err = svc.Refresh(context.Background(), models.RefreshRequest{RefreshToken: token})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidToken.Code, appErrors.FromError(err).Code)
}

func TestRefreshDeletedUser(t *testing.T) {
	users, user := seedUser(t)
	tokens := newMockAuthTokens()
	svc := NewAuthService(users, tokens, nil, nil, validator.New(), zap.NewNop(), testAuthConfig())

	login, err := svc.Login(context.Background(), models.LoginRequest{Email: "a@x.com", Password: "secret123"})
	require.NoError(t, err)

	delete(users.byID, user.ID)

	_, err = svc.Refresh(context.Background(), models.RefreshRequest{RefreshToken: login.RefreshToken})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrUserNotFound.Code, appErr.Code)
	assert.Equal(t, 404, appErr.Status)
}

func TestLogoutIdempotent(t *testing.T) {
	users, _ := seedUser(t)
	tokens := newMockAuthTokens()
	svc := NewAuthService(users, tokens, nil, nil, validator.New(), zap.NewNop(), testAuthConfig())

	login, err := svc.Login(context.Background(), models.LoginRequest{Email: "a@x.com", Password: "secret123"})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), models.LogoutRequest{RefreshToken: login.RefreshToken}))
	require.NoError(t, svc.Logout(context.Background(), models.LogoutRequest{RefreshToken: login.RefreshToken}))
	assert.Equal(t, 0, tokens.count())

	_, err = svc.Refresh(context.Background(), models.RefreshRequest{RefreshToken: login.RefreshToken})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidToken.Code, appErrors.FromError(err).Code)
}

func TestLogoutValidation(t *testing.T) {
	users, _ := seedUser(t)
	svc := NewAuthService(users, newMockAuthTokens(), nil, nil, validator.New(), zap.NewNop(), testAuthConfig())

	err := svc.Logout(context.Background(), models.LogoutRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestValidateToken(t *testing.T) {
	users, user := seedUser(t)
	svc := NewAuthService(users, newMockAuthTokens(), nil, nil, validator.New(), zap.NewNop(), testAuthConfig())

	token, _, err := svc.generateAccessToken(user)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, user.Role, claims.Role)

	_, err = svc.ValidateToken("garbage")
	require.Error(t, err)
}

func TestPurgeExpired(t *testing.T) {
	users, _ := seedUser(t)
	tokens := newMockAuthTokens()
	svc := NewAuthService(users, tokens, nil, nil, validator.New(), zap.NewNop(), testAuthConfig())

	now := time.Now().UTC()
	require.NoError(t, tokens.Create(context.Background(), &models.RefreshToken{ID: "1", UserID: "u1", Token: "stale", ExpiresAt: now.Add(-time.Hour)}))
	require.NoError(t, tokens.Create(context.Background(), &models.RefreshToken{ID: "2", UserID: "u1", Token: "live", ExpiresAt: now.Add(time.Hour)}))

	removed, err := svc.PurgeExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
	assert.Equal(t, 1, tokens.count())
}

// memPermCache keeps permission sets in memory so cache hits are observable.
type memPermCache struct {
	mu    sync.Mutex
	perms map[string][]models.Permission
}

func newMemPermCache() *memPermCache {
	return &memPermCache{perms: make(map[string][]models.Permission)}
}

func (m *memPermCache) Get(ctx context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cached, ok := m.perms[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	out, ok := dest.(*[]models.Permission)
	if !ok {
		return appErrors.ErrCacheMiss
	}
	*out = cached
	return nil
}

func (m *memPermCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if perms, ok := value.([]models.Permission); ok {
		m.perms[key] = perms
	}
	return nil
}

func (m *memPermCache) Delete(ctx context.Context, keys ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.perms, key)
	}
}

func TestUserInfoRecordsCacheMetrics(t *testing.T) {
	users, user := seedUser(t)
	metrics := NewMetricsService()
	svc := NewAuthService(users, newMockAuthTokens(), newMemPermCache(), metrics, validator.New(), zap.NewNop(), testAuthConfig())

	// First lookup misses and fills the cache, second one hits.
	_, err := svc.UserInfo(context.Background(), user.ID)
	require.NoError(t, err)
	_, err = svc.UserInfo(context.Background(), user.ID)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	assert.Contains(t, body, "cache_misses_total 1")
	assert.Contains(t, body, "cache_hits_total 1")
}

func TestAggregatePermissions(t *testing.T) {
	merged := AggregatePermissions(
		[]models.Permission{"edit_users", "create_users", "edit_users"},
		[]models.Permission{"create_users", "view_reports"},
	)
	assert.Equal(t, []models.Permission{"create_users", "edit_users", "view_reports"}, merged)

	assert.Empty(t, AggregatePermissions(nil, nil))
	assert.Equal(t, []models.Permission{"a"}, AggregatePermissions(nil, []models.Permission{"a"}))
}
