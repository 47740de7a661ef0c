package referral

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"

	"github.com/papapumpkin/lineage/internal/identity"
)

// newTestForest registers addrs in order and applies each referral pair.
func newTestForest(t *testing.T, addrs []string, refs [][2]string) *Forest {
	t.Helper()
	f := NewForest()
	for _, a := range addrs {
		if _, _, err := f.Register(a); err != nil {
			t.Fatalf("Register(%s): %v", a, err)
		}
	}
	for _, r := range refs {
		if err := f.CreateReferral(r[0], r[1]); err != nil {
			t.Fatalf("CreateReferral(%s, %s): %v", r[0], r[1], err)
		}
	}
	return f
}

func mustCount(t *testing.T, f *Forest, addr string) int {
	t.Helper()
	n, err := f.DescendantCount(addr)
	if err != nil {
		t.Fatalf("DescendantCount(%s): %v", addr, err)
	}
	return n
}

func TestForest_Scenario(t *testing.T) {
	t.Parallel()

	f := newTestForest(t,
		[]string{"A", "B", "C", "D"},
		[][2]string{{"A", "D"}, {"B", "C"}, {"A", "B"}},
	)

	if diff := cmp.Diff([]string{"D", "B"}, f.DirectReferrals("A")); diff != "" {
		t.Errorf("DirectReferrals(A) mismatch (-want +got):\n%s", diff)
	}
	for addr, want := range map[string]int{"A": 3, "B": 1, "C": 0, "D": 0} {
		if got := mustCount(t, f, addr); got != want {
			t.Errorf("DescendantCount(%s) = %d, want %d", addr, got, want)
		}
	}

	res, err := f.IsOnShortestPath("A", "C", "B")
	if err != nil {
		t.Fatalf("IsOnShortestPath(A,C,B): %v", err)
	}
	if !res.OnPath || res.Fraction != 1.0 {
		t.Errorf("IsOnShortestPath(A,C,B) = (%v, %v), want (true, 1)", res.OnPath, res.Fraction)
	}
	res, err = f.IsOnShortestPath("A", "C", "D")
	if err != nil {
		t.Fatalf("IsOnShortestPath(A,C,D): %v", err)
	}
	if res.OnPath || res.Fraction != 0 {
		t.Errorf("IsOnShortestPath(A,C,D) = (%v, %v), want (false, 0)", res.OnPath, res.Fraction)
	}

	if err := f.Audit(); err != nil {
		t.Errorf("Audit: %v", err)
	}
}

func TestCreateReferral_Cycle(t *testing.T) {
	t.Parallel()

	f := newTestForest(t, []string{"X", "Y"}, [][2]string{{"X", "Y"}})
	err := f.CreateReferral("Y", "X")
	if !errors.Is(err, ErrInvalidOperation) {
		t.Fatalf("CreateReferral(Y, X) = %v, want ErrInvalidOperation", err)
	}
	if !errors.Is(err, ErrCycle) {
		t.Errorf("CreateReferral(Y, X) = %v, want ErrCycle", err)
	}
	if got := mustCount(t, f, "Y"); got != 0 {
		t.Errorf("DescendantCount(Y) = %d after rejected referral, want 0", got)
	}
	if err := f.Audit(); err != nil {
		t.Errorf("Audit: %v", err)
	}
}

func TestCreateReferral_Preconditions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		referrer  string
		candidate string
		wantErr   error
		wantClass bool
	}{
		{name: "unknown referrer", referrer: "ghost", candidate: "B", wantErr: ErrUnknownIdentity},
		{name: "unknown candidate", referrer: "A", candidate: "ghost", wantErr: ErrUnknownIdentity},
		{name: "self referral", referrer: "A", candidate: "A", wantErr: ErrSelfReferral, wantClass: true},
		{name: "already referred", referrer: "C", candidate: "B", wantErr: ErrAlreadyReferred, wantClass: true},
		{name: "deep cycle", referrer: "B", candidate: "A", wantErr: ErrCycle, wantClass: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newTestForest(t, []string{"A", "B", "C"}, [][2]string{{"A", "B"}})

			err := f.CreateReferral(tt.referrer, tt.candidate)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("got %v, want %v", err, tt.wantErr)
			}
			if got := errors.Is(err, ErrInvalidOperation); got != tt.wantClass {
				t.Errorf("errors.Is(err, ErrInvalidOperation) = %v, want %v", got, tt.wantClass)
			}
			if f.Edges() != 1 {
				t.Errorf("Edges() = %d, want 1", f.Edges())
			}
			if err := f.Audit(); err != nil {
				t.Errorf("Audit after rejection: %v", err)
			}
		})
	}
}

func TestCreateReferral_AttachesSubtree(t *testing.T) {
	t.Parallel()

	// R heads a chain of three before being referred by Top.
	f := newTestForest(t,
		[]string{"Top", "Mid", "R", "R1", "R2"},
		[][2]string{{"R", "R1"}, {"R1", "R2"}, {"Top", "Mid"}, {"Mid", "R"}},
	)
	for addr, want := range map[string]int{"Top": 4, "Mid": 3, "R": 2, "R1": 1, "R2": 0} {
		if got := mustCount(t, f, addr); got != want {
			t.Errorf("DescendantCount(%s) = %d, want %d", addr, got, want)
		}
	}
	size, err := f.ComponentSize("R2")
	if err != nil {
		t.Fatal(err)
	}
	if size != 5 {
		t.Errorf("ComponentSize(R2) = %d, want 5", size)
	}
}

func TestDirectReferrals_Unknown(t *testing.T) {
	t.Parallel()
	f := NewForest()
	got := f.DirectReferrals("nobody")
	if got == nil || len(got) != 0 {
		t.Errorf("DirectReferrals(unknown) = %#v, want empty slice", got)
	}
}

func TestReferrer(t *testing.T) {
	t.Parallel()
	f := newTestForest(t, []string{"A", "B"}, [][2]string{{"A", "B"}})

	ref, ok, err := f.Referrer("B")
	if err != nil || !ok || ref != "A" {
		t.Errorf("Referrer(B) = %q, %v, %v; want A, true, nil", ref, ok, err)
	}
	_, ok, err = f.Referrer("A")
	if err != nil || ok {
		t.Errorf("Referrer(A) ok = %v, err = %v; want false, nil", ok, err)
	}
	if _, _, err := f.Referrer("Z"); !errors.Is(err, ErrUnknownIdentity) {
		t.Errorf("Referrer(Z) = %v, want ErrUnknownIdentity", err)
	}
}

func TestRegister_Idempotent(t *testing.T) {
	t.Parallel()
	f := newTestForest(t, []string{"A", "B"}, [][2]string{{"A", "B"}})

	if _, created, err := f.Register("A"); err != nil || created {
		t.Fatalf("re-Register(A) = created %v, err %v", created, err)
	}
	if f.Len() != 2 {
		t.Errorf("Len() = %d, want 2", f.Len())
	}
	if got := mustCount(t, f, "A"); got != 1 {
		t.Errorf("re-registration reset count to %d", got)
	}
}

func TestForest_LogsRejections(t *testing.T) {
	t.Parallel()

	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	f := NewForest(WithLogger(logger))
	for _, a := range []string{"A", "B"} {
		if _, _, err := f.Register(a); err != nil {
			t.Fatal(err)
		}
	}
	hook.Reset()

	_ = f.CreateReferral("A", "A")
	e := hook.LastEntry()
	if e == nil || e.Message != "referral rejected" {
		t.Fatalf("last entry = %+v, want referral rejected", e)
	}
	if e.Data["referrer"] != "A" {
		t.Errorf("referrer field = %v, want A", e.Data["referrer"])
	}
}

func TestForest_RegistryOptions(t *testing.T) {
	t.Parallel()

	constant := func(string) identity.Identity { return "ref_same" }
	f := NewForest(WithRegistryOptions(identity.WithTokenizer(constant)))
	a, _, _ := f.Register("a")
	b, _, _ := f.Register("b")
	if a == b {
		t.Fatalf("colliding addresses share identity %s", a)
	}
	if err := f.CreateReferral("a", "b"); err != nil {
		t.Fatalf("CreateReferral across suffixed identities: %v", err)
	}
}
