package participation

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// genRecords produces a random record history for a handful of targets and
// subjects, with distinct joinedAt instants so the latest record is
// unambiguous.
func genRecords() gopter.Gen {
	return gen.SliceOf(gen.IntRange(0, 1<<20)).Map(func(seeds []int) []Record {
		targets := []int64{1, 2, 3}
		subjects := []string{"a@rootyou.fr", "b@rootyou.fr"}
		out := make([]Record, 0, len(seeds))
		for i, seed := range seeds {
			r := Record{
				TargetID:   targets[seed%len(targets)],
				SubjectKey: subjects[(seed/3)%len(subjects)],
				JoinedAt:   base.Add(time.Duration(i) * time.Second),
			}
			switch (seed / 7) % 3 {
			case 1:
				t := r.JoinedAt.Add(time.Minute)
				r.LeftAt = &t
			case 2:
				t := r.JoinedAt.Add(time.Minute)
				r.CompletedAt = &t
			}
			out = append(out, r)
		}
		return out
	})
}

// permute shuffles a copy of the records deterministically from a seed.
func permute(records []Record, seed int) []Record {
	out := append([]Record(nil), records...)
	for i := len(out) - 1; i > 0; i-- {
		j := seed % (i + 1)
		if j < 0 {
			j += i + 1
		}
		seed = seed*31 + 17
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// For any history, the derived status does not depend on input order.
func TestProperty_StatusOrderInsensitive(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("currentStatus is order-insensitive", prop.ForAll(
		func(records []Record, seed int) bool {
			shuffled := permute(records, seed)
			for _, target := range []int64{1, 2, 3, 99} {
				if CurrentStatus(records, target) != CurrentStatus(shuffled, target) {
					return false
				}
			}
			return true
		},
		genRecords(),
		gen.IntRange(0, 1<<30),
	))

	properties.TestingRun(t)
}

// For any history, deduplication keeps exactly one record per group, and
// that record carries the group's maximum joinedAt.
func TestProperty_DeduplicateKeepsLatest(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("deduplicate keeps the max-joinedAt record per group", prop.ForAll(
		func(records []Record) bool {
			type key struct {
				target  int64
				subject string
			}
			max := make(map[key]time.Time)
			for _, r := range records {
				k := key{r.TargetID, r.SubjectKey}
				if r.JoinedAt.After(max[k]) {
					max[k] = r.JoinedAt
				}
			}

			out := Deduplicate(records)
			if len(out) != len(max) {
				return false
			}
			seen := make(map[key]bool)
			for _, r := range out {
				k := key{r.TargetID, r.SubjectKey}
				if seen[k] || !r.JoinedAt.Equal(max[k]) {
					return false
				}
				seen[k] = true
			}
			return true
		},
		genRecords(),
	))

	properties.TestingRun(t)
}

// Deduplication is idempotent: applying it twice changes nothing.
func TestProperty_DeduplicateIdempotent(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("deduplicate(deduplicate(x)) == deduplicate(x)", prop.ForAll(
		func(records []Record) bool {
			once := Deduplicate(records)
			twice := Deduplicate(once)
			if len(once) != len(twice) {
				return false
			}
			for i := range once {
				if !once[i].JoinedAt.Equal(twice[i].JoinedAt) ||
					once[i].TargetID != twice[i].TargetID ||
					once[i].SubjectKey != twice[i].SubjectKey {
					return false
				}
			}
			return true
		},
		genRecords(),
	))

	properties.TestingRun(t)
}
