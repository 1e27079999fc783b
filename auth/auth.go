// Package auth holds the process-wide session registry that gates every
// facade operation, plus the credential helpers used at signup and login.
package auth

import (
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/wisentbank/wisent/errs"
)

// Role of a subject within the system.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Subject is the identity a session is bound to. bank.User implements it.
type Subject interface {
	SubjectID() int
	SubjectEmail() string
	SubjectPasswordHash() string
	SubjectRole() Role
}

// Claims is the payload of a session token.
type Claims struct {
	UserID int    `json:"userId"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// Auth maps logged-in subject ids to their subjects. Sessions have no
// expiry; they live until Logout. The session map is the authority — tokens
// are a convenience issued alongside it.
type Auth struct {
	mu       sync.Mutex
	sessions map[int]Subject

	secret     []byte
	sessionTTL time.Duration
}

// New creates an empty session registry. secret signs session tokens
// (HS256); ttl bounds token validity, not session lifetime.
func New(secret []byte, ttl time.Duration) *Auth {
	return &Auth{
		sessions:   make(map[int]Subject),
		secret:     secret,
		sessionTTL: ttl,
	}
}

// Login verifies credentials against the subject, registers the session and
// returns a signed session token. A subject with an active session cannot
// log in again.
func (a *Auth) Login(subject Subject, email, password string) (string, error) {
	if email == "" || password == "" {
		return "", fmt.Errorf("%w: email and password are required", errs.ErrValidation)
	}
	if email != subject.SubjectEmail() || !CheckPassword(password, subject.SubjectPasswordHash()) {
		return "", fmt.Errorf("%w: invalid credentials", errs.ErrAuthentication)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.sessions[subject.SubjectID()]; ok {
		return "", fmt.Errorf("%w: user %d already logged in", errs.ErrAuthentication, subject.SubjectID())
	}
	token, err := a.generateToken(subject)
	if err != nil {
		return "", err
	}
	a.sessions[subject.SubjectID()] = subject
	return token, nil
}

// Logout removes the subject's session.
func (a *Auth) Logout(subject Subject) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.sessions[subject.SubjectID()]; !ok {
		return fmt.Errorf("%w: user %d not logged in", errs.ErrAuthentication, subject.SubjectID())
	}
	delete(a.sessions, subject.SubjectID())
	return nil
}

// IsLoggedIn reports whether the subject has an active session.
func (a *Auth) IsLoggedIn(subject Subject) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.sessions[subject.SubjectID()]
	return ok
}

// IsAdmin reports whether the subject carries the admin role.
func (a *Auth) IsAdmin(subject Subject) bool {
	return subject.SubjectRole() == RoleAdmin
}

// ParseToken validates a session token and returns its claims.
func (a *Auth) ParseToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return a.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: invalid token", errs.ErrAuthentication)
	}
	return claims, nil
}

func (a *Auth) generateToken(subject Subject) (string, error) {
	claims := Claims{
		UserID: subject.SubjectID(),
		Email:  subject.SubjectEmail(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(a.sessionTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// HashPassword hashes a password using bcrypt.
func HashPassword(password string, cost int) (string, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	return string(bytes), err
}

// CheckPassword checks if a password matches a hash.
func CheckPassword(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
