package team

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rootyou/rootyou/internal/api"
)

func sampleTeam() *api.TeamDetails {
	return &api.TeamDetails{
		ID:              3,
		Nom:             "Les Rootards",
		ChefEquipeEmail: "chef@rootyou.fr",
		Participants: []api.TeamMember{
			{Email: "chef@rootyou.fr", Pseudo: "chef"},
			{Email: "bob@rootyou.fr", Pseudo: "bob"},
		},
	}
}

func TestRoleIn(t *testing.T) {
	tests := []struct {
		name  string
		team  *api.TeamDetails
		email string
		want  MemberRole
	}{
		{"chief", sampleTeam(), "chef@rootyou.fr", Chief},
		{"member", sampleTeam(), "bob@rootyou.fr", Member},
		{"outsider", sampleTeam(), "eve@rootyou.fr", NotMember},
		{"nil team", nil, "bob@rootyou.fr", NotMember},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RoleIn(tt.team, tt.email); got != tt.want {
				t.Errorf("RoleIn() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMembershipRecords(t *testing.T) {
	teams := []*api.TeamDetails{
		sampleTeam(),
		nil,
		{ID: 7, Nom: "Shellmates", Participants: []api.TeamMember{
			{Email: "eve@rootyou.fr", Pseudo: "eve"},
		}},
	}

	records := MembershipRecords(teams)
	if len(records) != 3 {
		t.Fatalf("records = %d, want 3 (nil team skipped)", len(records))
	}
	if records[0].TargetID != 3 || records[0].SubjectKey != "chef@rootyou.fr" {
		t.Errorf("first record = %+v", records[0])
	}
	if records[2].TargetID != 7 || records[2].SubjectKey != "eve@rootyou.fr" {
		t.Errorf("last record = %+v", records[2])
	}
}

func TestCurrentTeam(t *testing.T) {
	teams := []*api.TeamDetails{
		sampleTeam(),
		{ID: 7, Nom: "Shellmates", Participants: []api.TeamMember{
			{Email: "eve@rootyou.fr", Pseudo: "eve"},
		}},
	}

	tests := []struct {
		name   string
		email  string
		wantID int64
		wantOK bool
	}{
		{"member", "bob@rootyou.fr", 3, true},
		{"chief", "chef@rootyou.fr", 3, true},
		{"other team", "eve@rootyou.fr", 7, true},
		{"unaffiliated", "mallory@rootyou.fr", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := CurrentTeam(teams, tt.email)
			if ok != tt.wantOK {
				t.Fatalf("CurrentTeam() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && got.ID != tt.wantID {
				t.Errorf("CurrentTeam() = team %d, want %d", got.ID, tt.wantID)
			}
		})
	}
}

func TestPendingOnly(t *testing.T) {
	now := time.Now()
	cands := []api.Candidature{
		{CandidatureID: 1, Statut: "EN_ATTENTE", CreatedAt: now},
		{CandidatureID: 2, Statut: "ACCEPTED", CreatedAt: now},
		{CandidatureID: 3, Statut: "EN_ATTENTE", CreatedAt: now},
		{CandidatureID: 4, Statut: "REJECTED", CreatedAt: now},
	}
	out := PendingOnly(cands)
	if len(out) != 2 || out[0].CandidatureID != 1 || out[1].CandidatureID != 3 {
		t.Errorf("unexpected filter result: %+v", out)
	}
}

type fakeRespondBackend struct {
	calls []int64
	err   error
}

func (f *fakeRespondBackend) RespondToRequest(_ context.Context, id int64, _ bool) error {
	f.calls = append(f.calls, id)
	return f.err
}

func TestRespond(t *testing.T) {
	backend := &fakeRespondBackend{}
	r := NewResponder(backend)
	ctx := context.Background()

	if err := r.Respond(ctx, 10, true); err != nil {
		t.Fatalf("first Respond: %v", err)
	}
	if len(backend.calls) != 1 {
		t.Fatalf("backend calls = %d, want 1", len(backend.calls))
	}
}

// A second response to the same candidature must fail and must not reach the
// backend again.
func TestRespondTwice(t *testing.T) {
	backend := &fakeRespondBackend{}
	r := NewResponder(backend)
	ctx := context.Background()

	if err := r.Respond(ctx, 10, true); err != nil {
		t.Fatalf("first Respond: %v", err)
	}
	err := r.Respond(ctx, 10, false)
	if !errors.Is(err, ErrAlreadyResolved) {
		t.Fatalf("second Respond = %v, want ErrAlreadyResolved", err)
	}
	if len(backend.calls) != 1 {
		t.Errorf("backend calls = %d, want 1 (second call must not reach the backend)", len(backend.calls))
	}
}

func TestRespondBackendConflict(t *testing.T) {
	backend := &fakeRespondBackend{err: &api.Error{Status: 409, Code: api.CodeConflict, Message: "déjà traitée"}}
	r := NewResponder(backend)

	err := r.Respond(context.Background(), 10, true)
	if !errors.Is(err, ErrAlreadyResolved) {
		t.Fatalf("conflict should map to ErrAlreadyResolved, got %v", err)
	}

	// The conflict marked it resolved locally: no retry reaches the backend.
	backend.err = nil
	err = r.Respond(context.Background(), 10, true)
	if !errors.Is(err, ErrAlreadyResolved) {
		t.Fatalf("retry after conflict = %v, want ErrAlreadyResolved", err)
	}
	if len(backend.calls) != 1 {
		t.Errorf("backend calls = %d, want 1", len(backend.calls))
	}
}

func TestRespondOtherErrorRetryable(t *testing.T) {
	backend := &fakeRespondBackend{err: &api.Error{Code: api.CodeNetwork, Message: "down"}}
	r := NewResponder(backend)

	if err := r.Respond(context.Background(), 10, true); err == nil {
		t.Fatal("expected error")
	}

	// Network failures do not resolve the candidature; a retry goes through.
	backend.err = nil
	if err := r.Respond(context.Background(), 10, true); err != nil {
		t.Fatalf("retry after network error: %v", err)
	}
	if len(backend.calls) != 2 {
		t.Errorf("backend calls = %d, want 2", len(backend.calls))
	}
}
