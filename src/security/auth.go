package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	bcryptCost = 12

	// AdminSubject is the only principal that can be issued a token.
	AdminSubject = "admin"
	tokenIssuer  = "secid"
)

var (
	ErrAuthDisabled       = errors.New("authentication is not configured")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// AuthService issues and checks the bearer tokens that gate the ad-hoc query
// and export endpoints. Tokens are minted in exchange for the admin passphrase.
type AuthService struct {
	JWTSecret         string
	AdminPasswordHash string
	TokenExpiry       time.Duration
	now               func() time.Time
}

func NewAuthService(secret, adminPasswordHash string, expiry time.Duration) *AuthService {
	return &AuthService{
		JWTSecret:         secret,
		AdminPasswordHash: adminPasswordHash,
		TokenExpiry:       expiry,
		now:               time.Now,
	}
}

// Enabled reports whether a passphrase hash and signing secret are configured.
func (a *AuthService) Enabled() bool {
	return a.AdminPasswordHash != "" && a.JWTSecret != ""
}

func (a *AuthService) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Login checks password against the admin hash and returns a signed token with its expiry.
func (a *AuthService) Login(password string) (string, time.Time, error) {
	if !a.Enabled() {
		return "", time.Time{}, ErrAuthDisabled
	}
	if err := bcrypt.CompareHashAndPassword([]byte(a.AdminPasswordHash), []byte(password)); err != nil {
		return "", time.Time{}, ErrInvalidCredentials
	}
	return a.GenerateToken(AdminSubject)
}

func (a *AuthService) GenerateToken(subject string) (string, time.Time, error) {
	if a.JWTSecret == "" {
		return "", time.Time{}, ErrAuthDisabled
	}
	now := a.now()
	expiresAt := now.Add(a.TokenExpiry)
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    tokenIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(a.JWTSecret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ValidateToken returns the subject of a valid, unexpired token.
func (a *AuthService) ValidateToken(tokenString string) (string, error) {
	if !a.Enabled() {
		return "", ErrAuthDisabled
	}
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(a.JWTSecret), nil
	}, jwt.WithIssuer(tokenIssuer), jwt.WithTimeFunc(a.now))
	if err != nil {
		return "", err
	}
	if !token.Valid || claims.Subject == "" {
		return "", errors.New("invalid token")
	}
	return claims.Subject, nil
}
