// Package handler serves the local record index as a remote query capability
// and exposes the verifier over HTTP.
package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"claimledger/internal/index"
	"claimledger/internal/ledger"
	"claimledger/internal/ledger/codec"
	"claimledger/internal/pointer"
	"claimledger/internal/query/models"
	"claimledger/internal/violation"
	dErrors "claimledger/pkg/domain-errors"
	"claimledger/pkg/platform/audit"
	"claimledger/pkg/platform/httputil"
	"claimledger/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Index,Verifier

// Index is the local record index served to remote callers.
type Index interface {
	Find(ctx context.Context, criteria pointer.Criteria) ([]ledger.AnyStateAndRef, error)
}

// Verifier validates proposals.
type Verifier interface {
	Validate(ctx context.Context, tx ledger.Transaction) error
}

// Handler wires the query and validation endpoints.
type Handler struct {
	index    Index
	verifier Verifier
	registry *codec.Registry
	logger   *slog.Logger

	resolver *pointer.Resolver
	source   pointer.Source
	auditor  audit.Emitter
}

type Option func(*Handler)

// WithResolution enables POST /v1/resolve against src.
func WithResolution(resolver *pointer.Resolver, src pointer.Source) Option {
	return func(h *Handler) {
		h.resolver = resolver
		h.source = src
	}
}

// WithAudit records every served query. Emission failures are logged and
// never fail the request.
func WithAudit(e audit.Emitter) Option {
	return func(h *Handler) {
		h.auditor = e
	}
}

// New constructs a handler. registry encodes and decodes records on the wire.
func New(index Index, verifier Verifier, registry *codec.Registry, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{
		index:    index,
		verifier: verifier,
		registry: registry,
		logger:   logger,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Register mounts the endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/v1/query", h.HandleQuery)
	r.Post("/v1/validate", h.HandleValidate)
	if h.source != nil {
		r.Post("/v1/resolve", h.HandleResolve)
	}
}

// HandleQuery handles POST /v1/query.
func (h *Handler) HandleQuery(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.QueryRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	found, err := h.index.Find(ctx, req.Criteria)
	if err != nil {
		h.logError(ctx, "record query failed", requestID, err)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "record query failed"))
		return
	}

	matches := make([]ledger.AnyStateAndRef, 0, len(found))
	for _, sr := range found {
		if sr.State != nil && sr.State.StateType() == req.StateType {
			matches = append(matches, sr)
		}
	}
	index.SortByRef(matches)

	records, err := h.registry.EncodeRecords(matches)
	if err != nil {
		h.logError(ctx, "failed to encode records", requestID, err)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode records"))
		return
	}

	if h.logger != nil {
		h.logger.InfoContext(ctx, "records queried",
			"request_id", requestID,
			"state_type", req.StateType,
			"matches", len(records),
		)
	}
	h.auditQuery(ctx, req.StateType, len(records))
	httputil.WriteJSON(w, http.StatusOK, models.QueryResponse{Records: records})
}

// HandleValidate handles POST /v1/validate. Accepted proposals answer 200;
// rejections answer 422 with the violated rule.
func (h *Handler) HandleValidate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[models.ValidateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	tx, err := req.Transaction(h.registry)
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid proposal records"))
		return
	}

	if err := h.verifier.Validate(ctx, tx); err != nil {
		if _, isViolation := violation.As(err); !isViolation {
			h.logError(ctx, "validation failed", requestID, err)
		}
		httputil.WriteError(w, err)
		return
	}

	if h.logger != nil {
		h.logger.InfoContext(ctx, "proposal accepted",
			"request_id", requestID,
			"tx_id", tx.ID,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
	httputil.WriteJSON(w, http.StatusOK, models.ValidateResponse{TxID: tx.ID, Accepted: true})
}

// HandleResolve handles POST /v1/resolve. A pointer with no match answers
// 200 with outcome not_found; ambiguity and type mismatches are violations.
func (h *Handler) HandleResolve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.ResolveRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	res, err := h.resolver.Resolve(ctx, req.Pointer, h.source)
	if err != nil {
		if _, isViolation := violation.As(err); !isViolation {
			h.logError(ctx, "pointer resolution failed", requestID, err)
			err = dErrors.Wrap(err, dErrors.CodeUnavailable, "pointer resolution failed")
		}
		httputil.WriteError(w, err)
		return
	}

	resp := models.ResolveResponse{Outcome: res.Outcome.String()}
	if res.Found() {
		record, err := h.registry.EncodeRecord(res.Record)
		if err != nil {
			h.logError(ctx, "failed to encode record", requestID, err)
			httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode record"))
			return
		}
		resp.Record = &record
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) auditQuery(ctx context.Context, stateType ledger.StateType, matches int) {
	if h.auditor == nil {
		return
	}
	err := h.auditor.Emit(ctx, audit.Event{
		Timestamp:  requestcontext.Now(ctx),
		Action:     audit.ActionQueryServed,
		StateTypes: []string{string(stateType)},
		Decision:   audit.DecisionAccepted,
		Message:    fmt.Sprintf("%d records", matches),
		RequestID:  requestcontext.RequestID(ctx),
		ClientIP:   requestcontext.ClientIP(ctx),
		Client:     requestcontext.Client(ctx),
	})
	if err != nil {
		h.logError(ctx, "failed to audit query", requestcontext.RequestID(ctx), err)
	}
}

func (h *Handler) logError(ctx context.Context, msg, requestID string, err error) {
	if h.logger != nil {
		h.logger.ErrorContext(ctx, msg,
			"request_id", requestID,
			"error", err,
		)
	}
}
