// Package session owns the bearer credential: its storage on disk and its
// client-side decoding into a user identity. Decoding never contacts the
// network and never verifies the signature — the backend is the only party
// holding the verification key, and every authenticated call is re-checked
// server-side anyway.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token decode errors. Callers are responsible for clearing the Store when
// either is returned.
var (
	ErrMalformedToken = errors.New("malformed token")
	ErrTokenExpired   = errors.New("token expired")
)

// Role is the platform role carried in the token's groups claim.
type Role string

const (
	RoleParticipant    Role = "PARTICIPANT"
	RoleOrganisateur   Role = "ORGANISATEUR"
	RoleAdministrateur Role = "ADMINISTRATEUR"
)

// Session is the identity derived from a decoded token. It is rebuilt from
// the raw token on every command activation, never cached across them.
type Session struct {
	Email     string
	Pseudo    string
	Role      Role
	ExpiresAt *time.Time
}

// Decoder parses raw tokens into Sessions.
type Decoder struct {
	now func() time.Time // injectable clock for testing
}

// NewDecoder creates a Decoder using the system clock.
func NewDecoder() *Decoder {
	return &Decoder{now: time.Now}
}

// Decode parses the raw token. It returns ErrMalformedToken when the string
// is not a JWT or lacks a subject, and ErrTokenExpired when a numeric exp
// claim is strictly in the past (seconds since epoch).
func (d *Decoder) Decode(raw string) (*Session, error) {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(raw, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, fmt.Errorf("%w: missing subject claim", ErrMalformedToken)
	}

	if exp, ok := numericClaim(claims["exp"]); ok {
		expiresAt := time.Unix(int64(exp), 0)
		if exp < float64(d.now().Unix()) {
			return nil, fmt.Errorf("%w: expired at %s", ErrTokenExpired, expiresAt.UTC().Format(time.RFC3339))
		}
		s := &Session{
			Email:     sub,
			Pseudo:    pseudoClaim(claims, sub),
			Role:      roleClaim(claims),
			ExpiresAt: &expiresAt,
		}
		return s, nil
	}

	return &Session{
		Email:  sub,
		Pseudo: pseudoClaim(claims, sub),
		Role:   roleClaim(claims),
	}, nil
}

// pseudoClaim returns the display name, falling back to the subject email
// when the pseudo claim is absent.
func pseudoClaim(claims jwt.MapClaims, fallback string) string {
	if p, _ := claims["pseudo"].(string); p != "" {
		return p
	}
	return fallback
}

// roleClaim normalizes the groups claim, which the backend emits either as a
// single string or as an array of strings. The first element wins.
func roleClaim(claims jwt.MapClaims) Role {
	switch g := claims["groups"].(type) {
	case string:
		return Role(g)
	case []interface{}:
		if len(g) > 0 {
			if s, ok := g[0].(string); ok {
				return Role(s)
			}
		}
	case []string:
		if len(g) > 0 {
			return Role(g[0])
		}
	}
	return ""
}

// numericClaim coerces a JSON number claim. encoding/json decodes numbers as
// float64, but tokens built in tests may carry ints.
func numericClaim(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
