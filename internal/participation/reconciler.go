// Package participation derives a current membership status from historical
// join/leave records and applies optimistic transitions after confirmed
// backend actions. The same machinery serves CTF participation and team
// membership: both are "join/leave against a fetched collection" workflows.
package participation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rootyou/rootyou/internal/api"
)

// Status is the derived relationship between a subject and a target.
type Status int

const (
	// StatusNone means no record exists for the pair.
	StatusNone Status = iota
	// StatusActive means the latest record has no terminal marker.
	StatusActive
	// StatusCompleted means the latest record carries completedAt.
	StatusCompleted
	// StatusLeft means the latest record carries leftAt.
	StatusLeft
)

func (s Status) String() string {
	switch s {
	case StatusNone:
		return "none"
	case StatusActive:
		return "active"
	case StatusCompleted:
		return "completed"
	case StatusLeft:
		return "left"
	default:
		return "unknown"
	}
}

// Record is one historical join for a (subject, target) pair. A subject who
// left and rejoined owns several records for the same target; only the one
// with the greatest JoinedAt is authoritative. CompletedAt and LeftAt are
// mutually exclusive terminal markers.
type Record struct {
	TargetID    int64
	SubjectKey  string
	JoinedAt    time.Time
	LeftAt      *time.Time
	CompletedAt *time.Time

	// Pending marks an optimistic local record synthesized after a confirmed
	// backend action but before the next authoritative list fetch. Pending
	// records never survive SetAuthoritative.
	Pending bool
}

// Classify maps one record's terminal markers to a status. CompletedAt wins
// if both are somehow set, which the backend does not produce.
func Classify(r Record) Status {
	switch {
	case r.CompletedAt != nil:
		return StatusCompleted
	case r.LeftAt != nil:
		return StatusLeft
	default:
		return StatusActive
	}
}

// Latest returns the record with the greatest JoinedAt among those matching
// targetID, or nil when none match. On equal JoinedAt the later record in
// input order wins; callers must not rely on that tie-break.
func Latest(records []Record, targetID int64) *Record {
	var best *Record
	for i := range records {
		if records[i].TargetID != targetID {
			continue
		}
		if best == nil || !records[i].JoinedAt.Before(best.JoinedAt) {
			best = &records[i]
		}
	}
	return best
}

// CurrentStatus derives the status for targetID from an arbitrarily ordered
// record list.
func CurrentStatus(records []Record, targetID int64) Status {
	latest := Latest(records, targetID)
	if latest == nil {
		return StatusNone
	}
	return Classify(*latest)
}

// Deduplicate keeps one record per (targetID, subjectKey) group, the one
// with the greatest JoinedAt. Output order follows each group's first
// appearance in the input.
func Deduplicate(records []Record) []Record {
	type key struct {
		target  int64
		subject string
	}
	return dedupe(records, func(r Record) key {
		return key{r.TargetID, r.SubjectKey}
	})
}

// DeduplicateBySubject keeps one record per subject regardless of target.
// Team views use it to answer "is this user in any team already".
func DeduplicateBySubject(records []Record) []Record {
	return dedupe(records, func(r Record) string { return r.SubjectKey })
}

func dedupe[K comparable](records []Record, keyOf func(Record) K) []Record {
	index := make(map[K]int, len(records))
	out := make([]Record, 0, len(records))
	for _, r := range records {
		k := keyOf(r)
		at, seen := index[k]
		if !seen {
			index[k] = len(out)
			out = append(out, r)
			continue
		}
		if !r.JoinedAt.Before(out[at].JoinedAt) {
			out[at] = r
		}
	}
	return out
}

// FromAPI converts backend participation rows into records.
func FromAPI(rows []api.Participation) []Record {
	out := make([]Record, 0, len(rows))
	for _, row := range rows {
		out = append(out, Record{
			TargetID:    row.CtfID,
			SubjectKey:  row.Email,
			JoinedAt:    row.JoinedAt,
			LeftAt:      row.LeftAt,
			CompletedAt: row.CompletedAt,
		})
	}
	return out
}

// Actions is the backend surface the reconciler drives. api.Client satisfies
// it for CTFs via a thin adapter; tests substitute fakes.
type Actions interface {
	Join(ctx context.Context, targetID int64) error
	Leave(ctx context.Context, targetID int64) error
}

// Reconciler holds the fetched record set for one subject and applies
// optimistic transitions. A confirmed join appends a fresh pending record;
// a confirmed leave stamps the latest record. The next SetAuthoritative
// replaces everything, so a late list fetch always wins.
type Reconciler struct {
	mu       sync.Mutex
	subject  string
	records  []Record
	backend  Actions
	now      func() time.Time
	fetchSeq uint64
}

// NewReconciler creates a reconciler for the given subject key.
func NewReconciler(subject string, backend Actions) *Reconciler {
	return &Reconciler{
		subject: subject,
		backend: backend,
		now:     time.Now,
	}
}

// SetAuthoritative replaces the record set with a freshly fetched list,
// discarding any pending optimistic records.
func (r *Reconciler) SetAuthoritative(records []Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fetchSeq++
	r.records = append([]Record(nil), records...)
}

// BeginFetch reserves a tag before issuing a list fetch. Only the most
// recently issued tag may apply its result, so a response that arrives after
// a newer fetch was started is discarded instead of clobbering fresher data.
func (r *Reconciler) BeginFetch() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fetchSeq++
	return r.fetchSeq
}

// SetAuthoritativeTagged applies records only when tag is still the latest
// issued one. Reports whether the list was applied.
func (r *Reconciler) SetAuthoritativeTagged(tag uint64, records []Record) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if tag != r.fetchSeq {
		return false
	}
	r.records = append([]Record(nil), records...)
	return true
}

// Records returns a deduplicated snapshot, one record per target.
func (r *Reconciler) Records() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Deduplicate(r.records)
}

// Status derives the current status for targetID.
func (r *Reconciler) Status(targetID int64) Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return CurrentStatus(r.records, targetID)
}

// ApplyJoin calls the backend join action and, on success, synthesizes a
// fresh active record instead of re-fetching the collection. A rejected join
// (already active, banned, target not joinable) surfaces the backend error
// unchanged; the local state is untouched.
func (r *Reconciler) ApplyJoin(ctx context.Context, targetID int64) error {
	if err := r.backend.Join(ctx, targetID); err != nil {
		return fmt.Errorf("join %d: %w", targetID, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, Record{
		TargetID:   targetID,
		SubjectKey: r.subject,
		JoinedAt:   r.now(),
		Pending:    true,
	})
	return nil
}

// ApplyLeave calls the backend leave action and, on success, stamps the
// latest local record as left. A rejoin after this creates a new record; the
// stamped one stays terminal.
func (r *Reconciler) ApplyLeave(ctx context.Context, targetID int64) error {
	if err := r.backend.Leave(ctx, targetID); err != nil {
		return fmt.Errorf("leave %d: %w", targetID, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	latest := Latest(r.records, targetID)
	if latest == nil {
		// Backend accepted a leave we have no record of. Synthesize a
		// terminal record so the displayed status is at least consistent.
		left := r.now()
		r.records = append(r.records, Record{
			TargetID:   targetID,
			SubjectKey: r.subject,
			JoinedAt:   left,
			LeftAt:     &left,
			Pending:    true,
		})
		return nil
	}
	left := r.now()
	latest.LeftAt = &left
	latest.CompletedAt = nil
	return nil
}
