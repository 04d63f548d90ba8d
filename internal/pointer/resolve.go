package pointer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"claimledger/internal/ledger"
	"claimledger/internal/violation"
)

const tracerName = "claimledger/internal/pointer"

// Outcome distinguishes a successful resolution from an absent target.
// Ambiguity and type mismatches are violations, not outcomes.
type Outcome int

const (
	NotFound Outcome = iota
	Resolved
)

func (o Outcome) String() string {
	if o == Resolved {
		return "resolved"
	}
	return "not_found"
}

// Resolution is the result of resolving a pointer.
type Resolution struct {
	Outcome Outcome
	Record  ledger.AnyStateAndRef
}

// Found reports whether the pointer resolved.
func (r Resolution) Found() bool {
	return r.Outcome == Resolved
}

// Resolver resolves pointers. It is synchronous from the caller's point of
// view and safe for concurrent use.
type Resolver struct {
	logger      *slog.Logger
	metrics     *Metrics
	tracer      trace.Tracer
	timeout     time.Duration
	concurrency int
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets a logger for resolution diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *Metrics) Option {
	return func(r *Resolver) {
		r.metrics = m
	}
}

// WithTracer overrides the global OpenTelemetry tracer.
func WithTracer(t trace.Tracer) Option {
	return func(r *Resolver) {
		if t != nil {
			r.tracer = t
		}
	}
}

// WithTimeout bounds each resolution when the caller's context carries no
// deadline of its own. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		r.timeout = d
	}
}

// WithConcurrency limits parallel lookups in ResolveAll. Zero means unlimited.
func WithConcurrency(n int) Option {
	return func(r *Resolver) {
		r.concurrency = n
	}
}

// NewResolver builds a resolver.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

var defaultResolver = NewResolver()

// Resolve resolves p against src with a resolver carrying no logger or metrics.
func (p Pointer) Resolve(ctx context.Context, src Source) (Resolution, error) {
	return defaultResolver.Resolve(ctx, p, src)
}

// Resolve returns the single record p denotes in src.
//
// Outcomes:
//   - exactly one match of the target type: Resolved, nil error
//   - no match: NotFound, nil error
//   - more than one match: AmbiguousResolution violation
//   - one match of another type: Pointer violation
//   - backend failure: the wrapped backend error
func (r *Resolver) Resolve(ctx context.Context, p Pointer, src Source) (res Resolution, err error) {
	if p.IsZero() {
		return Resolution{}, violation.Newf(violation.PointerNotFound, "zero pointer")
	}

	if r.timeout > 0 {
		if _, hasDeadline := ctx.Deadline(); !hasDeadline {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, r.timeout)
			defer cancel()
		}
	}

	ctx, span := r.tracer.Start(ctx, "pointer.Resolve", trace.WithAttributes(
		attribute.String("pointer.source", src.Name()),
		attribute.String("pointer.strategy", p.strategy.String()),
		attribute.String("pointer.target_type", string(p.targetType)),
	))
	start := time.Now()
	outcome := "error"
	defer func() {
		r.metrics.ObserveResolution(src.Name(), p.strategy, outcome, time.Since(start))
		span.SetAttributes(attribute.String("pointer.outcome", outcome))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, outcome)
		}
		span.End()
	}()

	candidates, err := src.candidates(ctx, p.targetType, p.Criteria())
	if err != nil {
		return Resolution{}, fmt.Errorf("resolve %s via %s: %w", p, src.Name(), err)
	}

	switch len(candidates) {
	case 0:
		outcome = NotFound.String()
		if r.logger != nil {
			r.logger.DebugContext(ctx, "pointer target not found",
				"pointer", p.String(),
				"source", src.Name(),
			)
		}
		return Resolution{Outcome: NotFound}, nil
	case 1:
	default:
		outcome = "ambiguous"
		if r.logger != nil {
			r.logger.WarnContext(ctx, "pointer resolved to multiple records",
				"pointer", p.String(),
				"source", src.Name(),
				"matches", len(candidates),
			)
		}
		return Resolution{}, violation.Newf(violation.PointerAmbiguous, "%d matches for %s", len(candidates), p)
	}

	match := candidates[0]
	if match.State == nil || match.State.StateType() != p.targetType {
		outcome = "type_mismatch"
		got := ledger.StateType("<nil>")
		if match.State != nil {
			got = match.State.StateType()
		}
		return Resolution{}, violation.Newf(violation.PointerTypeMismatch, "want %s, got %s", p.targetType, got)
	}

	outcome = Resolved.String()
	return Resolution{Outcome: Resolved, Record: match}, nil
}

// ResolveRequired is Resolve with NotFound turned into a NotFound violation,
// for callers that cannot proceed without the target.
func (r *Resolver) ResolveRequired(ctx context.Context, p Pointer, src Source) (ledger.AnyStateAndRef, error) {
	res, err := r.Resolve(ctx, p, src)
	if err != nil {
		return ledger.AnyStateAndRef{}, err
	}
	if !res.Found() {
		return ledger.AnyStateAndRef{}, violation.Newf(violation.PointerNotFound, "%s via %s", p, src.Name())
	}
	return res.Record, nil
}

// ResolveAll resolves pointers concurrently against src. Results are in input
// order. The first violation or backend error cancels the remaining lookups.
func (r *Resolver) ResolveAll(ctx context.Context, src Source, pointers ...Pointer) ([]Resolution, error) {
	results := make([]Resolution, len(pointers))
	g, ctx := errgroup.WithContext(ctx)
	if r.concurrency > 0 {
		g.SetLimit(r.concurrency)
	}
	for i, p := range pointers {
		g.Go(func() error {
			res, err := r.Resolve(ctx, p, src)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
