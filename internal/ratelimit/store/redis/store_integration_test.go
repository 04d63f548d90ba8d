//go:build integration

package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	ratelimitredis "claimledger/internal/ratelimit/store/redis"
	"claimledger/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *ratelimitredis.Store
	ctx   context.Context
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	s.ctx = context.Background()
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(s.ctx))
	s.store = ratelimitredis.New(s.redis.Client)
}

func (s *RedisStoreSuite) TestAdmitsUpToLimit() {
	for i := range 3 {
		result, err := s.store.AllowN(s.ctx, "ip:10.0.0.1", 1, 3, time.Minute)
		s.Require().NoError(err)
		s.True(result.Allowed)
		s.Equal(2-i, result.Remaining)
	}

	result, err := s.store.AllowN(s.ctx, "ip:10.0.0.1", 1, 3, time.Minute)
	s.Require().NoError(err)
	s.False(result.Allowed)
	s.Positive(result.RetryAfter)
}

func (s *RedisStoreSuite) TestWindowSlides() {
	now := time.Now()
	store := ratelimitredis.New(s.redis.Client, ratelimitredis.WithClock(func() time.Time { return now }))

	_, err := store.AllowN(s.ctx, "slide", 2, 2, time.Minute)
	s.Require().NoError(err)
	result, err := store.AllowN(s.ctx, "slide", 1, 2, time.Minute)
	s.Require().NoError(err)
	s.False(result.Allowed)

	now = now.Add(61 * time.Second)
	result, err = store.AllowN(s.ctx, "slide", 1, 2, time.Minute)
	s.Require().NoError(err)
	s.True(result.Allowed)
}

func (s *RedisStoreSuite) TestReset() {
	_, err := s.store.AllowN(s.ctx, "reset", 1, 1, time.Minute)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Reset(s.ctx, "reset"))

	result, err := s.store.AllowN(s.ctx, "reset", 1, 1, time.Minute)
	s.Require().NoError(err)
	s.True(result.Allowed)
}
