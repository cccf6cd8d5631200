package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Kind distinguishes the two credential classes issued by the codec.
type Kind string

const (
	// KindAccess marks a short-lived credential proving identity for a
	// single request window.
	KindAccess Kind = "access"
	// KindRefresh marks a longer-lived credential used solely to obtain a
	// new access/refresh pair.
	KindRefresh Kind = "refresh"
)

// MinSecretLength is the minimum accepted HMAC signing secret size in bytes.
const MinSecretLength = 32

var (
	// ErrMalformed is returned when a credential cannot be parsed into the
	// expected structure at all.
	ErrMalformed = errors.New("credential malformed")
	// ErrSignature is returned when the credential parses but its signature
	// does not verify against the configured secret.
	ErrSignature = errors.New("credential signature mismatch")
	// ErrExpired is returned when the signature verifies but the clock is
	// past the embedded expiry. Verify still returns the decoded claims in
	// this case so callers can inspect the original expiry.
	ErrExpired = errors.New("credential expired")
	// ErrInvalid covers the remaining validation failures (issuer mismatch,
	// not-yet-valid, truncated claims).
	ErrInvalid = errors.New("credential invalid")

	errSecretMissing  = errors.New("signing secret required")
	errSecretTooShort = errors.New("signing secret too short")
)

// Claims is the decoded payload of a credential. RefreshID is populated only
// for KindRefresh credentials and is the join key into the refresh state
// store.
type Claims struct {
	Subject   string `json:"sub"`
	Kind      Kind   `json:"knd"`
	RefreshID string `json:"rti,omitempty"`
	jwt.RegisteredClaims
}

// Issued carries the signed credential string together with its absolute
// expiry and, for refresh credentials, the allocated refresh identifier.
type Issued struct {
	Credential string
	ExpiresAt  time.Time
	RefreshID  string
}

// Config holds the immutable signing parameters of a Codec.
type Config struct {
	Secret []byte
	Issuer string
	Leeway time.Duration
}

// Codec signs and parses bearer credentials with a single process-wide HMAC
// secret. It holds no mutable state and is safe for concurrent use.
type Codec struct {
	config Config
	now    func() time.Time
}

// NewCodec validates cfg and returns a ready Codec. The secret must be at
// least MinSecretLength bytes; there is no usable default.
func NewCodec(cfg Config) (*Codec, error) {
	if len(cfg.Secret) == 0 {
		return nil, errSecretMissing
	}
	if len(cfg.Secret) < MinSecretLength {
		return nil, errSecretTooShort
	}
	if cfg.Leeway < 0 {
		return nil, errors.New("negative leeway")
	}

	return &Codec{
		config: cfg,
		now:    time.Now,
	}, nil
}

// Issue signs a credential of the given kind for subject, valid for ttl from
// now. Refresh credentials embed a freshly generated UUIDv4 refresh
// identifier; the caller is responsible for persisting the matching record
// before handing the credential out.
func (c *Codec) Issue(subject string, kind Kind, ttl time.Duration) (Issued, error) {
	if subject == "" {
		return Issued{}, errors.New("empty subject")
	}
	if ttl <= 0 {
		return Issued{}, errors.New("non-positive ttl")
	}

	now := c.now()
	expiresAt := now.Add(ttl)

	claims := Claims{
		Subject: subject,
		Kind:    kind,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	if c.config.Issuer != "" {
		claims.Issuer = c.config.Issuer
	}

	var refreshID string
	if kind == KindRefresh {
		refreshID = uuid.NewString()
		claims.RefreshID = refreshID
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).
		SignedString(c.config.Secret)
	if err != nil {
		return Issued{}, err
	}

	return Issued{
		Credential: signed,
		ExpiresAt:  expiresAt,
		RefreshID:  refreshID,
	}, nil
}

// Verify checks signature and expiry and returns the decoded claims.
// Failures collapse into the closed sentinel set ErrMalformed, ErrSignature,
// ErrExpired, ErrInvalid. On ErrExpired the claims are still returned so a
// revocation path can read the original expiry.
func (c *Codec) Verify(credential string) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	}
	if c.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(c.config.Leeway))
	}
	if c.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(c.config.Issuer))
	}

	claims := &Claims{}
	t, err := jwt.NewParser(options...).ParseWithClaims(credential, claims, func(*jwt.Token) (interface{}, error) {
		return c.config.Secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, ErrMalformed
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrSignature
		case errors.Is(err, jwt.ErrTokenExpired):
			return claims, ErrExpired
		default:
			return nil, ErrInvalid
		}
	}
	if !t.Valid {
		return nil, ErrInvalid
	}

	if claims.Subject == "" {
		return nil, ErrMalformed
	}
	switch claims.Kind {
	case KindAccess:
	case KindRefresh:
		if claims.RefreshID == "" {
			return nil, ErrMalformed
		}
	default:
		return nil, ErrMalformed
	}

	return claims, nil
}
