// Package token mints and verifies the signed access/refresh token pair.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

func init() {
	// iat is compared with PasswordChangedAt at millisecond resolution
	jwt.TimePrecision = time.Millisecond
}

// ErrInvalidToken covers every verification failure: bad signature, wrong
// secret or algorithm, expiry and malformed input.
var ErrInvalidToken = errors.New("invalid token")

// Kind selects the secret and lifetime a token is signed with.
type Kind int

const (
	Access Kind = iota
	Refresh
)

func (k Kind) String() string {
	switch k {
	case Access:
		return "access"
	case Refresh:
		return "refresh"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Claims is the token payload.
type Claims struct {
	UserID string `json:"id"`
	jwt.RegisteredClaims
}

// Config содержит секреты и время жизни токенов
type Config struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// Pair is a freshly minted access/refresh token pair.
type Pair struct {
	AccessToken      string    `json:"accessToken"`
	RefreshToken     string    `json:"refreshToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}

// Issuer signs and verifies tokens with HS256.
type Issuer struct {
	cfg Config
	now func() time.Time
}

// Option configures an Issuer.
type Option func(*Issuer)

// WithClock overrides the time source, used by tests.
func WithClock(now func() time.Time) Option {
	return func(i *Issuer) {
		i.now = now
	}
}

// NewIssuer validates cfg and returns an Issuer.
func NewIssuer(cfg Config, opts ...Option) (*Issuer, error) {
	if len(cfg.AccessSecret) == 0 || len(cfg.RefreshSecret) == 0 {
		return nil, errors.New("token secrets cannot be empty")
	}
	if string(cfg.AccessSecret) == string(cfg.RefreshSecret) {
		return nil, errors.New("access and refresh secrets must differ")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("token TTLs must be positive")
	}

	i := &Issuer{cfg: cfg, now: time.Now}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

// Issue mints a new token pair for userID.
func (i *Issuer) Issue(userID string) (Pair, error) {
	if userID == "" {
		return Pair{}, errors.New("user id cannot be empty")
	}

	now := i.now()

	access, accessExp, err := i.sign(userID, Access, now)
	if err != nil {
		return Pair{}, err
	}
	refresh, refreshExp, err := i.sign(userID, Refresh, now)
	if err != nil {
		return Pair{}, err
	}

	return Pair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// Verify checks the signature and expiry of tok against the secret for kind.
func (i *Issuer) Verify(tok string, kind Kind) (*Claims, error) {
	if tok == "" {
		return nil, ErrInvalidToken
	}

	secret, _ := i.params(kind)
	claims := &Claims{}

	parsed, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %s token: %v", ErrInvalidToken, kind, err)
	}
	if !parsed.Valid || claims.UserID == "" || claims.IssuedAt == nil {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// AccessTTL returns the access token lifetime.
func (i *Issuer) AccessTTL() time.Duration { return i.cfg.AccessTTL }

// RefreshTTL returns the refresh token lifetime.
func (i *Issuer) RefreshTTL() time.Duration { return i.cfg.RefreshTTL }

func (i *Issuer) params(kind Kind) ([]byte, time.Duration) {
	if kind == Refresh {
		return i.cfg.RefreshSecret, i.cfg.RefreshTTL
	}
	return i.cfg.AccessSecret, i.cfg.AccessTTL
}

func (i *Issuer) sign(userID string, kind Kind, now time.Time) (string, time.Time, error) {
	secret, ttl := i.params(kind)
	expiresAt := now.Add(ttl)

	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}

	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign %s token: %w", kind, err)
	}

	// NumericDate truncates to seconds
	return s, claims.ExpiresAt.Time, nil
}
