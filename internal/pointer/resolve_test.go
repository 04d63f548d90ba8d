package pointer_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"claimledger/internal/ledger"
	"claimledger/internal/pointer"
	"claimledger/internal/pointer/mocks"
	"claimledger/internal/violation"
	"claimledger/pkg/domain"
)

// =============================================================================
// Resolver Test Suite
// =============================================================================
// Resolution must return exactly one record or a typed outcome. Backends are
// mocked so the suite can force zero, one and many matches.

type ResolverSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	querier  *mocks.MockQuerier
	index    *mocks.MockIndex
	registry *prometheus.Registry
	metrics  *pointer.Metrics
	resolver *pointer.Resolver
	id       domain.UniqueIdentifier
	v1       ledger.AnyStateAndRef
	v2       ledger.AnyStateAndRef
}

func TestResolverSuite(t *testing.T) {
	suite.Run(t, new(ResolverSuite))
}

func (s *ResolverSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.querier = mocks.NewMockQuerier(s.ctrl)
	s.index = mocks.NewMockIndex(s.ctrl)
	s.registry = prometheus.NewRegistry()
	s.metrics = pointer.NewMetrics(s.registry)
	s.resolver = pointer.NewResolver(
		pointer.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		pointer.WithMetrics(s.metrics),
		pointer.WithTimeout(time.Second),
	)
	s.id = domain.NewUniqueIdentifier("asset-1")
	s.v1 = assetAt(s.id, "tx-1", 0)
	s.v2 = assetAt(s.id, "tx-2", 0)
}

func (s *ResolverSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *ResolverSuite) TestResolveViaQuery() {
	ctx := context.Background()
	p := pointer.NewStatic(s.v1)

	s.Run("exactly one match resolves", func() {
		s.querier.EXPECT().
			Query(gomock.Any(), ledger.StateType("asset"), p.Criteria()).
			Return([]ledger.AnyStateAndRef{s.v1}, nil)

		res, err := s.resolver.Resolve(ctx, p, pointer.FromQuery(s.querier))
		s.Require().NoError(err)
		s.True(res.Found())
		s.Equal(s.v1, res.Record)
	})

	s.Run("zero matches is not found without error", func() {
		s.querier.EXPECT().Query(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil)

		res, err := s.resolver.Resolve(ctx, p, pointer.FromQuery(s.querier))
		s.Require().NoError(err)
		s.False(res.Found())
		s.Equal(pointer.NotFound, res.Outcome)
	})

	s.Run("two matches is ambiguous", func() {
		s.querier.EXPECT().
			Query(gomock.Any(), gomock.Any(), gomock.Any()).
			Return([]ledger.AnyStateAndRef{s.v1, s.v2}, nil)

		_, err := s.resolver.Resolve(ctx, p, pointer.FromQuery(s.querier))
		s.Require().Error(err)
		s.ErrorIs(err, violation.ErrAmbiguousResolution)
	})

	s.Run("match of another type is a type mismatch", func() {
		s.querier.EXPECT().
			Query(gomock.Any(), gomock.Any(), gomock.Any()).
			Return([]ledger.AnyStateAndRef{memoAt("tx-1")}, nil)

		_, err := s.resolver.Resolve(ctx, p, pointer.FromQuery(s.querier))
		s.Require().Error(err)
		s.True(errors.Is(err, violation.New(violation.PointerTypeMismatch)))
	})

	s.Run("backend errors are wrapped", func() {
		boom := errors.New("connection refused")
		s.querier.EXPECT().Query(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, boom)

		_, err := s.resolver.Resolve(ctx, p, pointer.FromQuery(s.querier))
		s.ErrorIs(err, boom)
		_, isViolation := violation.As(err)
		s.False(isViolation)
	})

	s.Equal(1.0, testutil.ToFloat64(s.metrics.Resolutions.WithLabelValues("query", "static", "resolved")))
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Resolutions.WithLabelValues("query", "static", "ambiguous")))
}

func (s *ResolverSuite) TestResolveViaIndex() {
	p, err := pointer.NewLinear(s.v1)
	s.Require().NoError(err)

	s.index.EXPECT().Find(gomock.Any(), p.Criteria()).Return([]ledger.AnyStateAndRef{s.v2}, nil)

	res, err := s.resolver.Resolve(context.Background(), p, pointer.FromIndex(s.index))
	s.Require().NoError(err)
	s.Equal(s.v2, res.Record)
}

func (s *ResolverSuite) TestTimeoutOnlyWithoutDeadline() {
	p := pointer.NewStatic(s.v1)

	s.Run("adds deadline when caller has none", func() {
		s.index.EXPECT().Find(gomock.Any(), gomock.Any()).
			DoAndReturn(func(ctx context.Context, _ pointer.Criteria) ([]ledger.AnyStateAndRef, error) {
				_, ok := ctx.Deadline()
				s.True(ok)
				return []ledger.AnyStateAndRef{s.v1}, nil
			})
		_, err := s.resolver.Resolve(context.Background(), p, pointer.FromIndex(s.index))
		s.NoError(err)
	})

	s.Run("keeps caller deadline", func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Hour)
		defer cancel()
		want, _ := ctx.Deadline()

		s.index.EXPECT().Find(gomock.Any(), gomock.Any()).
			DoAndReturn(func(ctx context.Context, _ pointer.Criteria) ([]ledger.AnyStateAndRef, error) {
				got, _ := ctx.Deadline()
				s.Equal(want, got)
				return []ledger.AnyStateAndRef{s.v1}, nil
			})
		_, err := s.resolver.Resolve(ctx, p, pointer.FromIndex(s.index))
		s.NoError(err)
	})
}

func (s *ResolverSuite) TestResolveRequired() {
	p := pointer.NewStatic(s.v1)
	s.index.EXPECT().Find(gomock.Any(), gomock.Any()).Return(nil, nil)

	_, err := s.resolver.ResolveRequired(context.Background(), p, pointer.FromIndex(s.index))
	s.ErrorIs(err, violation.ErrNotFound)
}

func (s *ResolverSuite) TestResolveAll() {
	other := assetAt(domain.NewUniqueIdentifier("asset-2"), "tx-9", 0)
	p1 := pointer.NewStatic(s.v1)
	p2 := pointer.NewStatic(other)

	s.Run("results keep input order", func() {
		s.index.EXPECT().Find(gomock.Any(), p1.Criteria()).Return([]ledger.AnyStateAndRef{s.v1}, nil)
		s.index.EXPECT().Find(gomock.Any(), p2.Criteria()).Return([]ledger.AnyStateAndRef{other}, nil)

		got, err := s.resolver.ResolveAll(context.Background(), pointer.FromIndex(s.index), p1, p2)
		s.Require().NoError(err)
		s.Require().Len(got, 2)
		s.Equal(s.v1, got[0].Record)
		s.Equal(other, got[1].Record)
	})

	s.Run("first violation fails the batch", func() {
		s.index.EXPECT().Find(gomock.Any(), p1.Criteria()).Return([]ledger.AnyStateAndRef{s.v1, s.v2}, nil)
		s.index.EXPECT().Find(gomock.Any(), p2.Criteria()).Return([]ledger.AnyStateAndRef{other}, nil).MaxTimes(1)

		_, err := s.resolver.ResolveAll(context.Background(), pointer.FromIndex(s.index), p1, p2)
		s.ErrorIs(err, violation.ErrAmbiguousResolution)
	})
}

func (s *ResolverSuite) TestResolveViaTransaction() {
	next := assetAt(s.id, "tx-2", 0)
	consumed := s.v1
	tx := ledger.Transaction{
		ID:       "tx-2",
		Kind:     ledger.Amend,
		Consumed: []ledger.AnyStateAndRef{consumed},
		Created:  []ledger.ContractState{next.State},
	}

	s.Run("static finds consumed version", func() {
		res, err := pointer.NewStatic(consumed).Resolve(context.Background(), pointer.FromTransaction(tx))
		s.Require().NoError(err)
		s.Equal(consumed, res.Record)
	})

	s.Run("linear skips consumed version", func() {
		p, err := pointer.NewLinear(consumed)
		s.Require().NoError(err)
		res, err := p.Resolve(context.Background(), pointer.FromTransaction(tx))
		s.Require().NoError(err)
		s.Equal(next, res.Record)
	})

	s.Run("reference outside the transaction is not found", func() {
		res, err := pointer.NewStatic(assetAt(s.id, "tx-0", 0)).Resolve(context.Background(), pointer.FromTransaction(tx))
		s.Require().NoError(err)
		s.False(res.Found())
	})
}

func (s *ResolverSuite) TestZeroPointer() {
	_, err := s.resolver.Resolve(context.Background(), pointer.Pointer{}, pointer.FromIndex(s.index))
	s.Error(err)
}
