package recommend

import (
	"context"
	"errors"
	"slices"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/bookrec/internal/domain/candidate"
)

func TestCollect_DedupKeepsFirstSeen(t *testing.T) {
	got := Collect([]candidate.Hit{
		hit("7 A haunted house", 0.1),
		hit("7 A haunted house again", 0.05),
		hit("3 Ghosts", 0.2),
	}, 200)

	want := []candidate.Candidate{{ID: 7, Distance: 0.1}, {ID: 3, Distance: 0.2}}
	if !slices.Equal(got.Candidates, want) {
		t.Fatalf("candidates = %v, want %v", got.Candidates, want)
	}
	if got.Duplicates != 1 {
		t.Errorf("duplicates = %d, want 1", got.Duplicates)
	}
	if got.Outcome != OutcomeOK {
		t.Errorf("outcome = %s, want ok", got.Outcome)
	}
}

func TestCollect_SkipsMalformedPayloads(t *testing.T) {
	got := Collect([]candidate.Hit{
		hit(`"9780002005883 Gilead"`, 0.3),
		hit("no id here", 0.1),
		hit("", 0.2),
		hit("12abc title", 0.05),
	}, 200)

	if len(got.Candidates) != 1 || got.Candidates[0].ID != 9780002005883 {
		t.Fatalf("candidates = %v", got.Candidates)
	}
	if got.Skipped != 3 {
		t.Errorf("skipped = %d, want 3", got.Skipped)
	}
}

func TestCollect_SortsAndTruncates(t *testing.T) {
	got := Collect([]candidate.Hit{
		hit("1 a", 0.4),
		hit("2 b", 0.1),
		hit("3 c", 0.4),
		hit("4 d", 0.2),
	}, 3)

	want := []int64{2, 4, 1}
	var gotIDs []int64
	for _, c := range got.Candidates {
		gotIDs = append(gotIDs, c.ID)
	}
	if !slices.Equal(gotIDs, want) {
		t.Errorf("ids = %v, want %v (stable on ties, truncated)", gotIDs, want)
	}
}

func TestCollect_Empty(t *testing.T) {
	got := Collect(nil, 10)
	if got.Outcome != OutcomeEmpty || len(got.Candidates) != 0 {
		t.Fatalf("unexpected retrieval: %+v", got)
	}
	got = Collect([]candidate.Hit{hit("junk", 0.1)}, 10)
	if got.Outcome != OutcomeEmpty || got.Skipped != 1 {
		t.Fatalf("all-malformed hits should be empty with skips, got %+v", got)
	}
}

func TestRetriever_NeverPropagatesErrors(t *testing.T) {
	idx := &fakeIndex{err: errors.New("index exploded")}
	r := NewRetriever(idx, zap.NewNop())

	got := r.Retrieve(context.Background(), "haunted house", 200)

	if got.Outcome != OutcomeDegraded {
		t.Fatalf("outcome = %s, want degraded", got.Outcome)
	}
	if len(got.Candidates) != 0 {
		t.Errorf("degraded retrieval must be empty, got %v", got.Candidates)
	}
	if got.Reason == "" {
		t.Error("degraded retrieval should carry a reason")
	}
}

func TestRetriever_PassesPoolSize(t *testing.T) {
	idx := &fakeIndex{hits: []candidate.Hit{hit("1 a", 0.1)}}
	r := NewRetriever(idx, zap.NewNop())

	got := r.Retrieve(context.Background(), "haunted house", 200)
	if idx.lastK != 200 || idx.lastQry != "haunted house" {
		t.Errorf("index called with %q, k=%d", idx.lastQry, idx.lastK)
	}
	if got.Outcome != OutcomeOK || len(got.Candidates) != 1 {
		t.Errorf("unexpected retrieval: %+v", got)
	}
}

func TestRetriever_ZeroPoolSkipsIndex(t *testing.T) {
	idx := &fakeIndex{}
	got := NewRetriever(idx, zap.NewNop()).Retrieve(context.Background(), "q", 0)
	if idx.calls != 0 || got.Outcome != OutcomeEmpty {
		t.Fatalf("calls=%d outcome=%s", idx.calls, got.Outcome)
	}
}
