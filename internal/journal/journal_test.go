package journal

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/papapumpkin/lineage/internal/identity"
)

// testJournal opens a journal in a temporary directory.
func testJournal(t *testing.T, opts ...Option) *Journal {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "journal.db")
	j, err := Open(context.Background(), path, opts...)
	if err != nil {
		t.Fatalf("Open(%q): %v", path, err)
	}
	t.Cleanup(func() { j.Close() })
	return j
}

// recorder is an Applier that logs calls and can fail on demand.
type recorder struct {
	calls  []string
	failOn string
}

func (r *recorder) Register(address string) (identity.Identity, bool, error) {
	r.calls = append(r.calls, "register "+address)
	return identity.Identity(address), true, nil
}

func (r *recorder) CreateReferral(referrer, candidate string) error {
	if referrer == r.failOn {
		return errors.New("rejected")
	}
	r.calls = append(r.calls, "refer "+referrer+" "+candidate)
	return nil
}

func TestOpen_WAL(t *testing.T) {
	t.Parallel()
	j := testJournal(t)
	var mode string
	if err := j.db.QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatalf("query journal_mode: %v", err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode = %q, want wal", mode)
	}
}

func TestAppendAndEvents(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	j := testJournal(t, WithSession("s-1"))

	if err := j.RecordRegister(ctx, "a@x"); err != nil {
		t.Fatal(err)
	}
	if err := j.RecordRegister(ctx, "b@x"); err != nil {
		t.Fatal(err)
	}
	if err := j.RecordReferral(ctx, "a@x", "b@x"); err != nil {
		t.Fatal(err)
	}

	events, err := j.Events(ctx)
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("len(events) = %d, want 3", len(events))
	}
	for i := 1; i < len(events); i++ {
		if events[i].Seq <= events[i-1].Seq {
			t.Errorf("events out of sequence: %d after %d", events[i].Seq, events[i-1].Seq)
		}
	}
	last := events[2]
	if last.Kind != KindRefer || last.Subject != "a@x" || last.Object != "b@x" || last.Session != "s-1" {
		t.Errorf("last event = %+v", last)
	}
	if last.RecordedAt.IsZero() {
		t.Error("RecordedAt not populated")
	}

	n, err := j.Count(ctx)
	if err != nil || n != 3 {
		t.Errorf("Count() = %d, %v; want 3", n, err)
	}
}

func TestReplay(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	j := testJournal(t)
	for _, a := range []string{"a", "b", "c"} {
		if err := j.RecordRegister(ctx, a); err != nil {
			t.Fatal(err)
		}
	}
	if err := j.RecordReferral(ctx, "a", "b"); err != nil {
		t.Fatal(err)
	}
	if err := j.RecordReferral(ctx, "b", "c"); err != nil {
		t.Fatal(err)
	}

	var r recorder
	n, err := j.Replay(ctx, &r)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if n != 5 {
		t.Errorf("Replay applied %d events, want 5", n)
	}
	want := []string{"register a", "register b", "register c", "refer a b", "refer b c"}
	if diff := cmp.Diff(want, r.calls); diff != "" {
		t.Errorf("replay order mismatch (-want +got):\n%s", diff)
	}
}

func TestReplay_StopsOnError(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	j := testJournal(t)
	_ = j.RecordRegister(ctx, "a")
	_ = j.RecordReferral(ctx, "a", "b")
	_ = j.RecordRegister(ctx, "z")

	r := recorder{failOn: "a"}
	n, err := j.Replay(ctx, &r)
	if err == nil {
		t.Fatal("Replay succeeded, want error")
	}
	if n != 1 {
		t.Errorf("applied %d events before failure, want 1", n)
	}
}

func TestReplay_UnknownKind(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	j := testJournal(t)
	if _, err := j.Append(ctx, "unrefer", "a", "b"); err != nil {
		t.Fatal(err)
	}
	if _, err := j.Replay(ctx, &recorder{}); !errors.Is(err, ErrUnknownKind) {
		t.Errorf("Replay = %v, want ErrUnknownKind", err)
	}
}

func TestReplay_Cancelled(t *testing.T) {
	t.Parallel()
	j := testJournal(t)
	_ = j.RecordRegister(context.Background(), "a")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := j.Replay(ctx, &recorder{}); !errors.Is(err, context.Canceled) {
		t.Errorf("Replay on cancelled context = %v, want context.Canceled", err)
	}
}

func TestSession_DefaultsToUUID(t *testing.T) {
	t.Parallel()
	j := testJournal(t)
	if len(j.Session()) != 36 {
		t.Errorf("Session() = %q, want a UUID", j.Session())
	}
}
