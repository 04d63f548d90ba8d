//go:build integration

package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"claimledger/internal/account"
	"claimledger/internal/index/memory"
	recordcache "claimledger/internal/index/redis"
	"claimledger/internal/ledger"
	"claimledger/internal/ledger/codec"
	"claimledger/internal/pointer"
	"claimledger/pkg/testutil/containers"
)

var alice = ledger.LegalIdentity{Name: "alice", Key: "key-alice"}

type CacheSuite struct {
	suite.Suite
	redis   *containers.RedisContainer
	backing *memory.Store
	metrics *recordcache.Metrics
	cache   *recordcache.Cache
}

func TestCacheSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(CacheSuite))
}

func (s *CacheSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
}

func (s *CacheSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
	registry := codec.NewRegistry()
	codec.RegisterJSON[account.Account](registry, account.DefaultType)

	s.backing = memory.New()
	s.metrics = recordcache.NewMetrics(prometheus.NewRegistry())
	s.cache = recordcache.New(s.redis.Client, s.backing, registry,
		recordcache.WithTTL(time.Minute),
		recordcache.WithKeyPrefix("test:record:"),
		recordcache.WithMetrics(s.metrics),
	)
}

func (s *CacheSuite) TestStaticLookupsAreCached() {
	ctx := context.Background()
	record := ledger.AnyStateAndRef{State: account.MustNew(alice, "savings"), Ref: ledger.StateRef{TxHash: "tx-1"}}
	s.Require().NoError(s.cache.Put(ctx, record))

	p := pointer.NewStatic(record)
	for range 3 {
		res, err := p.Resolve(ctx, pointer.FromIndex(s.cache))
		s.Require().NoError(err)
		s.Equal(record, res.Record)
	}

	s.Equal(1.0, testutil.ToFloat64(s.metrics.Lookups.WithLabelValues("miss")))
	s.Equal(2.0, testutil.ToFloat64(s.metrics.Lookups.WithLabelValues("hit")))

	exists, err := s.redis.Client.Exists(ctx, "test:record:tx-1:0").Result()
	s.Require().NoError(err)
	s.Equal(int64(1), exists)
}

func (s *CacheSuite) TestLinearLookupsBypass() {
	ctx := context.Background()
	acct := account.MustNew(alice, "savings")
	s.Require().NoError(s.cache.Apply(ctx, ledger.Transaction{
		ID: "tx-1", Kind: ledger.Issue,
		Created: []ledger.ContractState{acct},
	}))

	res, err := pointer.NewLinearTo(acct.ID, account.DefaultType).Resolve(ctx, pointer.FromIndex(s.cache))
	s.Require().NoError(err)
	s.True(res.Found())
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Lookups.WithLabelValues("bypass")))
}

func (s *CacheSuite) TestMissesAreNotCached() {
	ctx := context.Background()
	ref := ledger.StateRef{TxHash: "tx-missing"}
	got, err := s.cache.Find(ctx, pointer.Criteria{Ref: &ref})
	s.Require().NoError(err)
	s.Empty(got)

	record := ledger.AnyStateAndRef{State: account.MustNew(alice, "late"), Ref: ref}
	s.Require().NoError(s.cache.Put(ctx, record))
	got, err = s.cache.Find(ctx, pointer.Criteria{Ref: &ref})
	s.Require().NoError(err)
	s.Equal([]ledger.AnyStateAndRef{record}, got)
}
