package testutil

import (
	"net/http"

	"claimledger/pkg/requestcontext"
)

// WithRequestMetadata attaches what the metadata middleware would set for a
// request arriving from clientIP.
func WithRequestMetadata(req *http.Request, requestID, clientIP string) *http.Request {
	ctx := requestcontext.WithRequestID(req.Context(), requestID)
	ctx = requestcontext.WithClientMetadata(ctx, clientIP, req.UserAgent())
	return req.WithContext(ctx)
}
