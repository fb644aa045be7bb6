package projects

import (
	"fmt"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/devfolio/internal/config"
	"github.com/ZanzyTHEbar/devfolio/internal/errors"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const adminSubject = "admin"

// Auth issues and verifies admin session tokens
type Auth struct {
	passwordHash []byte
	jwtSecret    []byte
	ttl          time.Duration
	now          func() time.Time
}

// NewAuth creates an authenticator from the admin configuration
func NewAuth(cfg config.AdminConfig) *Auth {
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	return &Auth{
		passwordHash: []byte(cfg.PasswordHash),
		jwtSecret:    []byte(cfg.JWTSecret),
		ttl:          ttl,
		now:          time.Now,
	}
}

// Enabled reports whether both the password hash and signing secret are set
func (a *Auth) Enabled() bool {
	return len(a.passwordHash) > 0 && len(a.jwtSecret) > 0
}

func (a *Auth) checkConfigured() error {
	if !a.Enabled() {
		return errors.NewConfigurationError("Admin credentials not configured")
	}
	return nil
}

// Login compares password against the configured bcrypt hash and returns a signed token
func (a *Auth) Login(password string) (string, time.Time, error) {
	if err := a.checkConfigured(); err != nil {
		return "", time.Time{}, err
	}

	if err := bcrypt.CompareHashAndPassword(a.passwordHash, []byte(password)); err != nil {
		return "", time.Time{}, errors.NewUnauthorizedError("Invalid credentials")
	}

	now := a.now()
	expiresAt := now.Add(a.ttl)
	claims := jwt.RegisteredClaims{
		Subject:   adminSubject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(a.jwtSecret)
	if err != nil {
		return "", time.Time{}, errors.NewInternalError("failed to sign token", err)
	}

	return tokenString, expiresAt, nil
}

// Validate verifies a token issued by Login
func (a *Auth) Validate(tokenString string) error {
	if err := a.checkConfigured(); err != nil {
		return err
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.jwtSecret, nil
	}, jwt.WithTimeFunc(a.now), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return errors.NewUnauthorizedError("Invalid or expired token")
	}

	if claims.Subject != adminSubject {
		return errors.NewUnauthorizedError("Invalid or expired token")
	}

	return nil
}

// RequireAdmin rejects requests without a valid bearer token
func (a *Auth) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		tokenString, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(tokenString) == "" {
			if err := a.checkConfigured(); err != nil {
				errors.Respond(c, err)
				return
			}
			errors.Respond(c, errors.NewUnauthorizedError("Missing bearer token"))
			return
		}

		if err := a.Validate(strings.TrimSpace(tokenString)); err != nil {
			errors.Respond(c, err)
			return
		}

		c.Next()
	}
}
