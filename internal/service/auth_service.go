package service

import (
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"github.com/goog1e-app/line-notify/internal/config"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	sessionTTL = 12 * time.Hour
	issuer     = "line-notify-relay"
)

var (
	// ErrBadCredentials is returned for a failed admin login.
	ErrBadCredentials = errors.New("invalid username or password")
	// ErrInvalidSession is returned for an unusable admin JWT.
	ErrInvalidSession = errors.New("invalid session token")
)

// AuthService guards the relay's admin API with HS256 session tokens.
type AuthService struct {
	enabled  bool
	username string
	password string
	secret   []byte
	now      func() time.Time
}

// Claims is the admin session JWT payload.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// NewAuthService builds AuthService from config.
func NewAuthService(cfg *config.Config) *AuthService {
	return &AuthService{
		enabled:  cfg.Auth.Enabled,
		username: firstNonEmpty(strings.TrimSpace(cfg.Auth.Username), "admin"),
		password: firstNonEmpty(strings.TrimSpace(cfg.Auth.Password), "admin123"),
		secret:   []byte(firstNonEmpty(strings.TrimSpace(cfg.Auth.JWTSecret), "line-notify-default-secret")),
		now:      time.Now,
	}
}

// Enabled reports whether authentication is enforced.
func (a *AuthService) Enabled() bool {
	return a != nil && a.enabled
}

// Username returns configured admin username.
func (a *AuthService) Username() string {
	if a == nil {
		return ""
	}
	return a.username
}

// Authenticate checks admin credentials and issues a session token.
// Passwords may be configured as bcrypt hashes.
func (a *AuthService) Authenticate(username, password string) (string, error) {
	if !a.Enabled() {
		return "", nil
	}
	if !a.matchUsername(username) || !a.matchPassword(password) {
		return "", ErrBadCredentials
	}
	now := a.now()
	claims := Claims{
		Username: a.username,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   a.username,
			ExpiresAt: jwt.NewNumericDate(now.Add(sessionTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// Validate parses a session token and returns its claims.
func (a *AuthService) Validate(token string) (*Claims, error) {
	if !a.Enabled() {
		return &Claims{Username: "anonymous"}, nil
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(*jwt.Token) (any, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return nil, errors.Join(ErrInvalidSession, err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidSession
	}
	return claims, nil
}

func (a *AuthService) matchUsername(input string) bool {
	return subtle.ConstantTimeCompare([]byte(strings.TrimSpace(input)), []byte(a.username)) == 1
}

func (a *AuthService) matchPassword(input string) bool {
	for _, prefix := range []string{"$2a$", "$2b$", "$2y$"} {
		if strings.HasPrefix(a.password, prefix) {
			return bcrypt.CompareHashAndPassword([]byte(a.password), []byte(input)) == nil
		}
	}
	return subtle.ConstantTimeCompare([]byte(input), []byte(a.password)) == 1
}
