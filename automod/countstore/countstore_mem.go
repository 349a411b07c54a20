package countstore

import (
	"context"

	"github.com/puzpuzpuz/xsync/v3"
)

type MemCountStore struct {
	Counts         *xsync.MapOf[string, int]
	DistinctCounts *xsync.MapOf[string, *xsync.MapOf[string, struct{}]]
}

var _ CountStore = (*MemCountStore)(nil)

func NewMemCountStore() *MemCountStore {
	return &MemCountStore{
		Counts:         xsync.NewMapOf[string, int](),
		DistinctCounts: xsync.NewMapOf[string, *xsync.MapOf[string, struct{}]](),
	}
}

func (s *MemCountStore) GetCount(ctx context.Context, name, val, period string) (int, error) {
	v, _ := s.Counts.Load(periodBucket(name, val, period))
	return v, nil
}

func (s *MemCountStore) Increment(ctx context.Context, name, val string) error {
	for _, p := range allPeriods {
		s.Counts.Compute(periodBucket(name, val, p), func(old int, loaded bool) (int, bool) {
			return old + 1, false
		})
	}
	return nil
}

func (s *MemCountStore) GetCountDistinct(ctx context.Context, name, bucket, period string) (int, error) {
	m, ok := s.DistinctCounts.Load(periodBucket(name, bucket, period))
	if !ok {
		return 0, nil
	}
	return m.Size(), nil
}

func (s *MemCountStore) IncrementDistinct(ctx context.Context, name, bucket, val string) error {
	for _, p := range allPeriods {
		m, _ := s.DistinctCounts.LoadOrCompute(periodBucket(name, bucket, p), func() *xsync.MapOf[string, struct{}] {
			return xsync.NewMapOf[string, struct{}]()
		})
		m.Store(val, struct{}{})
	}
	return nil
}
