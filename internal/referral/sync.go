package referral

import (
	"sync"

	"github.com/papapumpkin/lineage/internal/graph"
	"github.com/papapumpkin/lineage/internal/identity"
)

// SyncForest guards a Forest with a read/write mutex. Mutations take the
// write lock; queries share the read lock.
type SyncForest struct {
	mu sync.RWMutex
	f  *Forest
}

// NewSyncForest wraps f. The caller must not use f directly afterwards.
func NewSyncForest(f *Forest) *SyncForest {
	return &SyncForest{f: f}
}

// Register is Forest.Register under the write lock.
func (s *SyncForest) Register(address string) (identity.Identity, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.f.Register(address)
}

// CreateReferral is Forest.CreateReferral under the write lock.
func (s *SyncForest) CreateReferral(referrer, candidate string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.f.CreateReferral(referrer, candidate)
}

// DescendantCount is Forest.DescendantCount under the read lock.
func (s *SyncForest) DescendantCount(address string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.f.DescendantCount(address)
}

// DirectReferrals is Forest.DirectReferrals under the read lock.
func (s *SyncForest) DirectReferrals(address string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.f.DirectReferrals(address)
}

// TopReferrers is Forest.TopReferrers under the read lock.
func (s *SyncForest) TopReferrers(k int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.f.TopReferrers(k)
}

// IsOnShortestPath is Forest.IsOnShortestPath under the read lock.
func (s *SyncForest) IsOnShortestPath(source, target, candidate string) (graph.GeodesicResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.f.IsOnShortestPath(source, target, candidate)
}

// Audit is Forest.Audit under the read lock.
func (s *SyncForest) Audit() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.f.Audit()
}

// View runs fn with shared access to the underlying forest. fn must not
// mutate it.
func (s *SyncForest) View(fn func(*Forest)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.f)
}

// Update runs fn with exclusive access to the underlying forest.
func (s *SyncForest) Update(fn func(*Forest) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.f)
}
