// Package access decides what an authenticated session may do. The decision
// is recomputed on every command activation; nothing here caches or watches
// for role changes between activations.
package access

import "github.com/rootyou/rootyou/internal/session"

// Decision is the outcome of an authorization check.
type Decision int

const (
	// Allow lets the activation proceed.
	Allow Decision = iota
	// RedirectLogin means no usable session exists.
	RedirectLogin
	// RedirectForbidden means the session is valid but the role is not in
	// the required set.
	RedirectForbidden
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case RedirectLogin:
		return "redirect_login"
	case RedirectForbidden:
		return "redirect_forbidden"
	}
	return "unknown"
}

// Authorize gates an activation. A nil session always yields RedirectLogin.
// A nil or empty required set admits any authenticated session.
func Authorize(sess *session.Session, required []session.Role) Decision {
	if sess == nil {
		return RedirectLogin
	}
	if len(required) == 0 {
		return Allow
	}
	for _, r := range required {
		if sess.Role == r {
			return Allow
		}
	}
	return RedirectForbidden
}
