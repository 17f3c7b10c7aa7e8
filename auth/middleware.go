package auth

import (
	"bubble-relay/domain"
	"context"
	"net/http"
)

type contextKey string

const requesterKey contextKey = "requester"

// ErrorWriter renders an error response; the transport supplies it so
// the status mapping stays in one place.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, err error)

// Require wraps a handler that needs an authenticated user. It is the only
// place a Requester is put into a request context.
func (g *Gate) Require(next http.Handler, fail ErrorWriter) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requester, err := g.Resolve(r.Context(), r.Header.Get("Authorization"))
		if err != nil {
			fail(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requesterKey, requester)))
	})
}

// RequesterFrom returns the user resolved by Require.
func RequesterFrom(ctx context.Context) (domain.Requester, bool) {
	requester, ok := ctx.Value(requesterKey).(domain.Requester)
	return requester, ok
}
