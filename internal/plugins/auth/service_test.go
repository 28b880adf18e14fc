package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/keyxmakerx/radio/internal/apperror"
)

// --- Mock Repository ---

// mockUserRepo implements UserRepository for testing.
type mockUserRepo struct {
	createFn          func(ctx context.Context, user *User) error
	findByIDFn        func(ctx context.Context, id string) (*User, error)
	findByUsernameFn  func(ctx context.Context, username string) (*User, error)
	updateLastLoginFn func(ctx context.Context, id string) error
	countUsersFn      func(ctx context.Context) (int, error)
}

func (m *mockUserRepo) Create(ctx context.Context, user *User) error {
	if m.createFn != nil {
		return m.createFn(ctx, user)
	}
	return nil
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, apperror.NewNotFound("user not found")
}

func (m *mockUserRepo) FindByUsername(ctx context.Context, username string) (*User, error) {
	if m.findByUsernameFn != nil {
		return m.findByUsernameFn(ctx, username)
	}
	return nil, apperror.NewNotFound("user not found")
}

func (m *mockUserRepo) UpdateLastLogin(ctx context.Context, id string) error {
	if m.updateLastLoginFn != nil {
		return m.updateLastLoginFn(ctx, id)
	}
	return nil
}

func (m *mockUserRepo) CountUsers(ctx context.Context) (int, error) {
	if m.countUsersFn != nil {
		return m.countUsersFn(ctx)
	}
	return 1, nil
}

// --- Test Helpers ---

// newTestAuthService wires the service to a mock repo and an in-memory
// Redis.
func newTestAuthService(t *testing.T, repo *mockUserRepo) (*authService, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return &authService{repo: repo, redis: rdb, sessionTTL: time.Hour}, mr
}

// assertAppError checks that err is an *apperror.AppError with the expected code.
func assertAppError(t *testing.T, err error, expectedCode int) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with code %d, got nil", expectedCode)
	}
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *apperror.AppError, got %T: %v", err, err)
	}
	if appErr.Code != expectedCode {
		t.Errorf("expected status %d, got %d (message: %s)", expectedCode, appErr.Code, appErr.Message)
	}
}

// userWithPassword returns a stored user whose hash matches password.
func userWithPassword(t *testing.T, password string) *User {
	t.Helper()
	hash, err := hashPassword(password)
	if err != nil {
		t.Fatalf("hashing: %v", err)
	}
	return &User{ID: "u-1", Username: "alice", PasswordHash: hash}
}

// --- CreateUser Tests ---

func TestCreateUser_Success(t *testing.T) {
	var stored *User
	repo := &mockUserRepo{
		createFn: func(ctx context.Context, user *User) error {
			stored = user
			return nil
		},
	}

	svc, _ := newTestAuthService(t, repo)
	user, err := svc.CreateUser(context.Background(), CreateUserInput{
		Username: "  alice ",
		Password: "correct horse",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.Username != "alice" {
		t.Errorf("expected trimmed username, got %q", user.Username)
	}
	if user.IsAdmin {
		t.Error("expected non-admin user")
	}
	if stored == nil || stored.ID == "" {
		t.Fatal("expected user to be stored with an ID")
	}
	if !strings.HasPrefix(stored.PasswordHash, "$argon2id$") {
		t.Errorf("expected argon2id hash, got %q", stored.PasswordHash)
	}
}

func TestCreateUser_FirstUserBecomesAdmin(t *testing.T) {
	repo := &mockUserRepo{
		countUsersFn: func(ctx context.Context) (int, error) { return 0, nil },
	}
	svc, _ := newTestAuthService(t, repo)

	user, err := svc.CreateUser(context.Background(), CreateUserInput{Username: "root", Password: "12345678"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !user.IsAdmin {
		t.Error("expected first user to be admin")
	}
}

func TestCreateUser_Validation(t *testing.T) {
	svc, _ := newTestAuthService(t, &mockUserRepo{})

	tests := []CreateUserInput{
		{Username: "", Password: "12345678"},
		{Username: "has space", Password: "12345678"},
		{Username: "bob", Password: "short"},
	}
	for _, in := range tests {
		_, err := svc.CreateUser(context.Background(), in)
		assertAppError(t, err, 422)
	}
}

func TestCreateUser_Duplicate(t *testing.T) {
	repo := &mockUserRepo{
		createFn: func(ctx context.Context, user *User) error {
			return apperror.NewConflict("a user with this name already exists")
		},
	}
	svc, _ := newTestAuthService(t, repo)

	_, err := svc.CreateUser(context.Background(), CreateUserInput{Username: "alice", Password: "12345678"})
	assertAppError(t, err, 409)
}

func TestCreateUser_RepoError(t *testing.T) {
	repo := &mockUserRepo{
		countUsersFn: func(ctx context.Context) (int, error) { return 0, errors.New("db down") },
	}
	svc, _ := newTestAuthService(t, repo)

	_, err := svc.CreateUser(context.Background(), CreateUserInput{Username: "alice", Password: "12345678"})
	assertAppError(t, err, 500)
}

// --- Login Tests ---

func TestLogin_Success(t *testing.T) {
	user := userWithPassword(t, "hunter22")
	var lastLogin string
	repo := &mockUserRepo{
		findByUsernameFn: func(ctx context.Context, username string) (*User, error) {
			if username != "alice" {
				t.Errorf("expected username alice, got %q", username)
			}
			return user, nil
		},
		updateLastLoginFn: func(ctx context.Context, id string) error {
			lastLogin = id
			return nil
		},
	}
	svc, mr := newTestAuthService(t, repo)

	token, got, err := svc.Login(context.Background(), LoginInput{Username: "alice", Password: "hunter22"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(token) != sessionTokenBytes*2 {
		t.Errorf("expected %d char token, got %d", sessionTokenBytes*2, len(token))
	}
	if got.ID != "u-1" {
		t.Errorf("expected user u-1, got %s", got.ID)
	}
	if lastLogin != "u-1" {
		t.Error("expected last login to be updated")
	}
	if !mr.Exists(sessionKeyPrefix + token) {
		t.Error("expected session in redis")
	}
	if ttl := mr.TTL(sessionKeyPrefix + token); ttl != time.Hour {
		t.Errorf("expected 1h TTL, got %s", ttl)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	user := userWithPassword(t, "hunter22")
	repo := &mockUserRepo{
		findByUsernameFn: func(ctx context.Context, username string) (*User, error) { return user, nil },
	}
	svc, _ := newTestAuthService(t, repo)

	_, _, err := svc.Login(context.Background(), LoginInput{Username: "alice", Password: "wrong"})
	if !errors.Is(err, ErrBadCredentials) {
		t.Fatalf("expected ErrBadCredentials, got %v", err)
	}
	assertAppError(t, err, 403)
}

func TestLogin_UnknownUser(t *testing.T) {
	svc, _ := newTestAuthService(t, &mockUserRepo{})

	_, _, err := svc.Login(context.Background(), LoginInput{Username: "nobody", Password: "x"})
	if !errors.Is(err, ErrBadCredentials) {
		t.Fatalf("expected ErrBadCredentials, got %v", err)
	}
}

func TestLogin_RepoError(t *testing.T) {
	repo := &mockUserRepo{
		findByUsernameFn: func(ctx context.Context, username string) (*User, error) {
			return nil, errors.New("connection refused")
		},
	}
	svc, _ := newTestAuthService(t, repo)

	_, _, err := svc.Login(context.Background(), LoginInput{Username: "alice", Password: "x"})
	assertAppError(t, err, 500)
}

// --- Session Tests ---

func TestSessionLifecycle(t *testing.T) {
	user := userWithPassword(t, "hunter22")
	user.IsAdmin = true
	repo := &mockUserRepo{
		findByUsernameFn: func(ctx context.Context, username string) (*User, error) { return user, nil },
	}
	svc, mr := newTestAuthService(t, repo)
	ctx := context.Background()

	token, _, err := svc.Login(ctx, LoginInput{Username: "alice", Password: "hunter22"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	session, err := svc.ValidateSession(ctx, token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if session.Username != "alice" || !session.IsAdmin {
		t.Errorf("unexpected session %+v", session)
	}

	if err := svc.DestroySession(ctx, token); err != nil {
		t.Fatalf("destroy: %v", err)
	}
	_, err = svc.ValidateSession(ctx, token)
	assertAppError(t, err, 401)

	// Expired sessions behave like missing ones.
	token, _, _ = svc.Login(ctx, LoginInput{Username: "alice", Password: "hunter22"})
	mr.FastForward(2 * time.Hour)
	_, err = svc.ValidateSession(ctx, token)
	assertAppError(t, err, 401)
}

// --- Password Tests ---

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := hashPassword("s3cret!")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !verifyPassword("s3cret!", hash) {
		t.Error("expected password to verify")
	}
	if verifyPassword("s3cret", hash) {
		t.Error("expected wrong password to fail")
	}

	other, _ := hashPassword("s3cret!")
	if other == hash {
		t.Error("expected distinct salts")
	}
}

func TestVerifyPassword_Malformed(t *testing.T) {
	for _, h := range []string{"", "plain", "$argon2i$v=19$m=1,t=1,p=1$AA$AA", "$argon2id$v=19$bogus$AA$AA"} {
		if verifyPassword("x", h) {
			t.Errorf("malformed hash %q verified", h)
		}
	}
}
