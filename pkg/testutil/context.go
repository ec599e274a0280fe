package testutil

import (
	"net/http"

	id "leadline/pkg/domain"
	"leadline/pkg/requestcontext"
)

// WithOwnerID adds an owner ID to the request context.
// This simulates what the auth middleware does for authenticated requests.
func WithOwnerID(req *http.Request, ownerID id.OwnerID) *http.Request {
	return req.WithContext(requestcontext.WithOwnerID(req.Context(), ownerID))
}

// WithRequestID tags the request the way the request ID middleware would.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), requestID))
}
