package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/lethanhdat107/govivu/internal/models"
)

var (
	ErrSecretRequired     = errors.New("auth: jwt secret required")
	ErrUserExists         = errors.New("auth: user already exists")
	ErrEmailExists        = errors.New("auth: email already registered")
	ErrUsernameRequired   = errors.New("auth: username is required")
	ErrPasswordTooWeak    = errors.New("auth: password must be at least 6 characters")
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrInvalidToken       = errors.New("auth: invalid token")
)

// UserStore is the persistence boundary for user records. Absent users are
// reported as (nil, nil).
type UserStore interface {
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Insert(ctx context.Context, user *models.User) error
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
}

type LoginInput struct {
	Identifier string
	Password   string
}

type AuthResult struct {
	Token     string
	ExpiresAt time.Time
	User      models.User
}

type Service struct {
	secret []byte
	ttl    time.Duration
	users  UserStore
}

func NewService(secret string, ttl time.Duration, users UserStore) (*Service, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, ErrSecretRequired
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	return &Service{secret: []byte(secret), ttl: ttl, users: users}, nil
}

func (s *Service) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	username := strings.TrimSpace(input.Username)
	if username == "" {
		return nil, ErrUsernameRequired
	}
	if len(strings.TrimSpace(input.Password)) < 6 {
		return nil, ErrPasswordTooWeak
	}

	if existing, err := s.users.FindByUsername(ctx, strings.ToLower(username)); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, ErrUserExists
	}

	email := strings.TrimSpace(input.Email)
	if email != "" {
		if existing, err := s.users.FindByEmail(ctx, normalizeEmail(email)); err != nil {
			return nil, err
		} else if existing != nil {
			return nil, ErrEmailExists
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	user := &models.User{
		ID:           uuid.NewString(),
		Username:     strings.ToLower(username),
		Email:        normalizeEmail(email),
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Insert(ctx, user); err != nil {
		return nil, err
	}

	token, expiresAt, err := s.generateToken(user)
	if err != nil {
		return nil, err
	}

	return &AuthResult{Token: token, ExpiresAt: expiresAt, User: user.Sanitize()}, nil
}

func (s *Service) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	identifier := strings.TrimSpace(input.Identifier)
	if identifier == "" || strings.TrimSpace(input.Password) == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.users.FindByUsername(ctx, strings.ToLower(identifier))
	if err != nil {
		return nil, err
	}
	if user == nil {
		user, err = s.users.FindByEmail(ctx, normalizeEmail(identifier))
		if err != nil {
			return nil, err
		}
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, expiresAt, err := s.generateToken(user)
	if err != nil {
		return nil, err
	}

	return &AuthResult{Token: token, ExpiresAt: expiresAt, User: user.Sanitize()}, nil
}

// VerifyToken validates a bearer token and returns its claims.
func (s *Service) VerifyToken(token string) (*jwt.RegisteredClaims, error) {
	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

func (s *Service) generateToken(user *models.User) (string, time.Time, error) {
	expiresAt := time.Now().UTC().Add(s.ttl)
	claims := jwt.RegisteredClaims{
		Subject:   user.ID,
		IssuedAt:  jwt.NewNumericDate(time.Now().UTC()),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}

	return signed, expiresAt, nil
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}
