package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/tokoanjar/pos-api/internal/common"
)

// Roles understood by the API.
const (
	RoleAdmin   = "admin"
	RoleCashier = "kasir"
)

// User is an API-facing account representation.
type User struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

// Service issues and validates access tokens for shop staff.
type Service struct {
	pool      *pgxpool.Pool
	secret    []byte
	signer    jwa.SignatureAlgorithm
	issuer    string
	accessTTL time.Duration
	clockSkew time.Duration
	nowFn     func() time.Time
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Pool      *pgxpool.Pool
	Secret    string
	Issuer    string
	AccessTTL time.Duration
	Now       func() time.Time
}

// NewService constructs an auth Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if strings.TrimSpace(cfg.Secret) == "" {
		return nil, errors.New("auth: secret is required")
	}
	s := &Service{
		pool:      cfg.Pool,
		secret:    []byte(cfg.Secret),
		signer:    jwa.HS256,
		issuer:    cfg.Issuer,
		accessTTL: cfg.AccessTTL,
		clockSkew: 30 * time.Second,
		nowFn:     cfg.Now,
	}
	if s.issuer == "" {
		s.issuer = "pos-api"
	}
	if s.accessTTL <= 0 {
		s.accessTTL = 12 * time.Hour
	}
	return s, nil
}

func (s *Service) now() time.Time {
	if s.nowFn != nil {
		return s.nowFn()
	}
	return time.Now()
}

// LoginResult carries a signed token and the authenticated user.
type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      User      `json:"user"`
}

// Login verifies credentials and issues an access token.
func (s *Service) Login(ctx context.Context, username, password string) (LoginResult, error) {
	username = strings.TrimSpace(strings.ToLower(username))
	if username == "" || password == "" {
		return LoginResult{}, common.NewAppError("VALIDATION", "username and password are required", http.StatusBadRequest, nil)
	}

	var u User
	var hash string
	err := s.pool.QueryRow(ctx,
		"SELECT id, username, password_hash, role, created_at FROM users WHERE username = $1", username).
		Scan(&u.ID, &u.Username, &hash, &u.Role, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return LoginResult{}, errInvalidCredentials()
		}
		return LoginResult{}, err
	}
	ok, err := argon2id.ComparePasswordAndHash(password, hash)
	if err != nil {
		return LoginResult{}, err
	}
	if !ok {
		return LoginResult{}, errInvalidCredentials()
	}

	token, expiresAt, err := s.signAccessToken(u.ID.String(), u.Role)
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{Token: token, ExpiresAt: expiresAt, User: u}, nil
}

// CreateUser registers a staff account. Only admins may call this.
func (s *Service) CreateUser(ctx context.Context, username, password, role string) (User, error) {
	username = strings.TrimSpace(strings.ToLower(username))
	if len(username) < 3 {
		return User{}, common.NewAppError("VALIDATION", "username must be at least 3 characters", http.StatusBadRequest, nil)
	}
	if len(password) < 8 {
		return User{}, common.NewAppError("VALIDATION", "password must be at least 8 characters", http.StatusBadRequest, nil)
	}
	if role != RoleAdmin && role != RoleCashier {
		return User{}, common.NewAppError("VALIDATION", "role must be admin or kasir", http.StatusBadRequest, nil)
	}
	hash, err := argon2id.CreateHash(password, argon2id.DefaultParams)
	if err != nil {
		return User{}, err
	}
	var u User
	err = s.pool.QueryRow(ctx, `
INSERT INTO users (username, password_hash, role)
VALUES ($1, $2, $3)
ON CONFLICT (username) DO NOTHING
RETURNING id, username, role, created_at`,
		username, hash, role).
		Scan(&u.ID, &u.Username, &u.Role, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, common.NewAppError("CONFLICT", "username already taken", http.StatusConflict, nil)
		}
		return User{}, err
	}
	return u, nil
}

// GetUser loads an account by id.
func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (User, error) {
	var u User
	err := s.pool.QueryRow(ctx,
		"SELECT id, username, role, created_at FROM users WHERE id = $1", id).
		Scan(&u.ID, &u.Username, &u.Role, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, common.NewAppError("NOT_FOUND", "user not found", http.StatusNotFound, err)
		}
		return User{}, err
	}
	return u, nil
}

// ParseAccessToken validates a token and returns the subject and role claim.
func (s *Service) ParseAccessToken(token string) (string, string, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return "", "", common.NewAppError("UNAUTHORIZED", "missing token", http.StatusUnauthorized, nil)
	}
	algorithm, err := extractTokenAlgorithm(trimmed)
	if err != nil {
		return "", "", common.NewAppError("UNAUTHORIZED", "invalid token", http.StatusUnauthorized, err)
	}
	if algorithm != s.signer {
		return "", "", common.NewAppError("UNAUTHORIZED", "invalid token", http.StatusUnauthorized,
			fmt.Errorf("unexpected token algorithm %s", algorithm))
	}
	parsed, err := jwt.ParseString(trimmed, jwt.WithKey(algorithm, s.secret), jwt.WithValidate(false))
	if err != nil {
		return "", "", common.NewAppError("UNAUTHORIZED", "invalid token", http.StatusUnauthorized, err)
	}
	now := s.now()
	if err := jwt.Validate(parsed,
		jwt.WithClock(jwt.ClockFunc(func() time.Time { return now })),
		jwt.WithAcceptableSkew(s.clockSkew),
		jwt.WithIssuer(s.issuer),
	); err != nil {
		return "", "", common.NewAppError("UNAUTHORIZED", "invalid token", http.StatusUnauthorized, err)
	}
	role := ""
	if raw, ok := parsed.Get("role"); ok {
		role, _ = raw.(string)
	}
	return parsed.Subject(), role, nil
}

func (s *Service) signAccessToken(userID, role string) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.accessTTL)
	token, err := jwt.NewBuilder().
		Subject(userID).
		Issuer(s.issuer).
		IssuedAt(now).
		NotBefore(now.Add(-s.clockSkew)).
		Expiration(expiresAt).
		Claim("role", role).
		Build()
	if err != nil {
		return "", time.Time{}, err
	}
	signed, err := jwt.Sign(token, jwt.WithKey(s.signer, s.secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return string(signed), expiresAt, nil
}

func extractTokenAlgorithm(token string) (jwa.SignatureAlgorithm, error) {
	message, err := jws.ParseString(token)
	if err != nil {
		return "", err
	}
	signatures := message.Signatures()
	if len(signatures) == 0 {
		return "", errors.New("auth: token contains no signatures")
	}
	var algorithm jwa.SignatureAlgorithm
	for _, sig := range signatures {
		headers := sig.ProtectedHeaders()
		if headers == nil {
			return "", errors.New("auth: token missing protected headers")
		}
		alg := headers.Algorithm()
		if alg == "" {
			return "", errors.New("auth: token missing algorithm")
		}
		if alg == jwa.NoSignature {
			return "", errors.New("auth: token uses none algorithm")
		}
		if algorithm == "" {
			algorithm = alg
		} else if algorithm != alg {
			return "", errors.New("auth: mixed token algorithms detected")
		}
	}
	return algorithm, nil
}

func errInvalidCredentials() error {
	return common.NewAppError("UNAUTHORIZED", "invalid username or password", http.StatusUnauthorized, nil)
}
