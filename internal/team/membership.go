// Package team derives membership facts from fetched team data and handles
// the candidature (join request) workflow on the chief's side.
package team

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rootyou/rootyou/internal/api"
	"github.com/rootyou/rootyou/internal/participation"
)

// ErrAlreadyResolved is returned when a candidature has already been
// accepted or rejected, either in this process or by the backend.
var ErrAlreadyResolved = errors.New("candidature already resolved")

// MemberRole is a user's position inside one team.
type MemberRole int

const (
	NotMember MemberRole = iota
	Member
	Chief
)

func (r MemberRole) String() string {
	switch r {
	case NotMember:
		return "not_member"
	case Member:
		return "member"
	case Chief:
		return "chief"
	default:
		return "unknown"
	}
}

// RoleIn reports the user's role inside the team. The chief is always also
// listed among participants; chief wins.
func RoleIn(team *api.TeamDetails, email string) MemberRole {
	if team == nil {
		return NotMember
	}
	if team.ChefEquipeEmail == email {
		return Chief
	}
	for _, m := range team.Participants {
		if m.Email == email {
			return Member
		}
	}
	return NotMember
}

// MembershipRecords flattens team rosters into participation records, one
// per (team, member) pair. Rosters carry no join timestamps, so JoinedAt
// stays zero and deduplication collapses a multi-roster member to one team.
func MembershipRecords(teams []*api.TeamDetails) []participation.Record {
	var out []participation.Record
	for _, t := range teams {
		if t == nil {
			continue
		}
		for _, m := range t.Participants {
			out = append(out, participation.Record{
				TargetID:   t.ID,
				SubjectKey: m.Email,
			})
		}
	}
	return out
}

// CurrentTeam reports the team whose roster lists the user, if any. The
// backend allows one team per participant; if rosters disagree, the record
// kept per subject wins.
func CurrentTeam(teams []*api.TeamDetails, email string) (*api.TeamDetails, bool) {
	records := participation.DeduplicateBySubject(MembershipRecords(teams))
	for _, r := range records {
		if r.SubjectKey != email {
			continue
		}
		for _, t := range teams {
			if t != nil && t.ID == r.TargetID {
				return t, true
			}
		}
	}
	return nil, false
}

// PendingOnly filters candidatures down to the unresolved ones.
func PendingOnly(cands []api.Candidature) []api.Candidature {
	out := make([]api.Candidature, 0, len(cands))
	for _, c := range cands {
		if c.Statut == "EN_ATTENTE" {
			out = append(out, c)
		}
	}
	return out
}

// RespondBackend is the backend surface Responder drives. api.Client
// satisfies it.
type RespondBackend interface {
	RespondToRequest(ctx context.Context, candidatureID int64, accept bool) error
}

// Responder resolves candidatures exactly once each. A second response to
// the same candidature fails with ErrAlreadyResolved without reaching the
// backend; a backend conflict (someone else resolved it first) is mapped to
// the same error.
type Responder struct {
	mu       sync.Mutex
	backend  RespondBackend
	resolved map[int64]bool
}

// NewResponder creates a Responder.
func NewResponder(backend RespondBackend) *Responder {
	return &Responder{
		backend:  backend,
		resolved: make(map[int64]bool),
	}
}

// Respond accepts or rejects one candidature.
func (r *Responder) Respond(ctx context.Context, candidatureID int64, accept bool) error {
	r.mu.Lock()
	if r.resolved[candidatureID] {
		r.mu.Unlock()
		return ErrAlreadyResolved
	}
	r.mu.Unlock()

	if err := r.backend.RespondToRequest(ctx, candidatureID, accept); err != nil {
		if api.IsConflict(err) {
			r.mu.Lock()
			r.resolved[candidatureID] = true
			r.mu.Unlock()
			return ErrAlreadyResolved
		}
		return fmt.Errorf("responding to candidature %d: %w", candidatureID, err)
	}

	r.mu.Lock()
	r.resolved[candidatureID] = true
	r.mu.Unlock()
	return nil
}
