package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Mode selects how a request is authenticated. A request may override the
// default mode per call; the model's auth rules decide whether the resolved
// mode is acceptable for the operation.
type Mode string

const (
	ModeAPIKey   Mode = "apiKey"
	ModeUserPool Mode = "userPool"
)

// ErrUnauthorized is returned for missing or invalid credentials and for
// requests whose auth mode is not allowed by the model's rules.
var ErrUnauthorized = errors.New("unauthorized")

// Context is the resolved identity of a request. Subject is set only for
// userPool requests and carries the token subject used for owner checks.
type Context struct {
	Mode    Mode
	Subject string
}

// Credentials are the raw values extracted from a request before resolution.
type Credentials struct {
	APIKey string
	Bearer string
}

// Authenticator validates request credentials against the configured API key
// and user-pool signing secret.
type Authenticator struct {
	apiKey    []byte
	jwtSecret []byte
}

// New builds an Authenticator. Either credential source may be empty, which
// disables the corresponding mode.
func New(apiKey, jwtSecret string) *Authenticator {
	return &Authenticator{apiKey: []byte(apiKey), jwtSecret: []byte(jwtSecret)}
}

// Resolve authenticates the request. When requested is empty the mode is
// inferred: a bearer token selects userPool, otherwise apiKey.
func (a *Authenticator) Resolve(requested Mode, creds Credentials) (Context, error) {
	mode := requested
	if mode == "" {
		if creds.Bearer != "" {
			mode = ModeUserPool
		} else {
			mode = ModeAPIKey
		}
	}

	switch mode {
	case ModeAPIKey:
		if len(a.apiKey) == 0 {
			return Context{}, fmt.Errorf("%w: apiKey mode is not configured", ErrUnauthorized)
		}
		if subtle.ConstantTimeCompare(a.apiKey, []byte(creds.APIKey)) != 1 {
			return Context{}, fmt.Errorf("%w: invalid api key", ErrUnauthorized)
		}
		return Context{Mode: ModeAPIKey}, nil

	case ModeUserPool:
		if len(a.jwtSecret) == 0 {
			return Context{}, fmt.Errorf("%w: userPool mode is not configured", ErrUnauthorized)
		}
		sub, err := a.verifyToken(creds.Bearer)
		if err != nil {
			return Context{}, fmt.Errorf("%w: %v", ErrUnauthorized, err)
		}
		return Context{Mode: ModeUserPool, Subject: sub}, nil

	default:
		return Context{}, fmt.Errorf("%w: unknown auth mode %q", ErrUnauthorized, mode)
	}
}

func (a *Authenticator) verifyToken(bearer string) (string, error) {
	if bearer == "" {
		return "", errors.New("missing bearer token")
	}
	tok, err := jwt.Parse(bearer, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", err
	}
	sub, err := tok.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", errors.New("token has no subject")
	}
	return sub, nil
}

// SignToken issues an HS256 token for the given subject. Used by the dev
// token flow and tests.
func SignToken(secret, subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
