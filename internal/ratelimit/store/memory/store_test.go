package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

const (
	testLimit  = 10
	testWindow = time.Minute
)

type StoreSuite struct {
	suite.Suite
	store *Store
	now   time.Time
	ctx   context.Context
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreSuite))
}

func (s *StoreSuite) SetupTest() {
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.store = New(WithClock(func() time.Time { return s.now }))
	s.ctx = context.Background()
}

func (s *StoreSuite) TestAllowN() {
	s.Run("first request allowed", func() {
		result, err := s.store.AllowN(s.ctx, "first", 1, testLimit, testWindow)
		s.Require().NoError(err)
		s.True(result.Allowed)
		s.Equal(testLimit, result.Limit)
		s.Equal(testLimit-1, result.Remaining)
		s.Equal(s.now.Add(testWindow), result.ResetAt)
	})

	s.Run("requests up to limit allowed", func() {
		for i := range testLimit {
			result, err := s.store.AllowN(s.ctx, "limit", 1, testLimit, testWindow)
			s.Require().NoError(err)
			s.True(result.Allowed)
			s.Equal(testLimit-i-1, result.Remaining)
		}
	})

	s.Run("request over limit denied", func() {
		for range testLimit {
			_, err := s.store.AllowN(s.ctx, "over", 1, testLimit, testWindow)
			s.Require().NoError(err)
		}
		result, err := s.store.AllowN(s.ctx, "over", 1, testLimit, testWindow)
		s.Require().NoError(err)
		s.False(result.Allowed)
		s.Equal(0, result.Remaining)
		s.Equal(60, result.RetryAfter)
	})

	s.Run("cost larger than room is denied without consuming", func() {
		_, err := s.store.AllowN(s.ctx, "cost", 8, testLimit, testWindow)
		s.Require().NoError(err)

		result, err := s.store.AllowN(s.ctx, "cost", 3, testLimit, testWindow)
		s.Require().NoError(err)
		s.False(result.Allowed)

		result, err = s.store.AllowN(s.ctx, "cost", 2, testLimit, testWindow)
		s.Require().NoError(err)
		s.True(result.Allowed)
		s.Equal(0, result.Remaining)
	})
}

func (s *StoreSuite) TestWindowSlides() {
	for range testLimit {
		_, err := s.store.AllowN(s.ctx, "slide", 1, testLimit, testWindow)
		s.Require().NoError(err)
	}

	s.now = s.now.Add(30 * time.Second)
	result, err := s.store.AllowN(s.ctx, "slide", 1, testLimit, testWindow)
	s.Require().NoError(err)
	s.False(result.Allowed)
	s.Equal(30, result.RetryAfter)

	s.now = s.now.Add(31 * time.Second)
	result, err = s.store.AllowN(s.ctx, "slide", 1, testLimit, testWindow)
	s.Require().NoError(err)
	s.True(result.Allowed)
	s.Equal(testLimit-1, result.Remaining)
}

func (s *StoreSuite) TestReset() {
	for range testLimit {
		_, err := s.store.AllowN(s.ctx, "reset", 1, testLimit, testWindow)
		s.Require().NoError(err)
	}
	s.Require().NoError(s.store.Reset(s.ctx, "reset"))
	s.Equal(0, s.store.Len())

	result, err := s.store.AllowN(s.ctx, "reset", 1, testLimit, testWindow)
	s.Require().NoError(err)
	s.True(result.Allowed)
}

func (s *StoreSuite) TestConcurrentAccess() {
	store := New()
	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := store.AllowN(s.ctx, "concurrent", 1, testLimit, testWindow)
			if err == nil && result.Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	s.Equal(testLimit, allowed)
}
