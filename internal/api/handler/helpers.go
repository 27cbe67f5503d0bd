package handler

import (
	"net/http"
	"strconv"

	"github.com/mmiddlezong/problem-database/internal/api/middleware"
)

// callerEmail returns the authenticated caller's email, or "" when the
// request carries no principal.
func callerEmail(r *http.Request) string {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		return ""
	}
	return p.Email
}

// queryInt reads an integer query parameter, returning 0 when absent or malformed.
func queryInt(r *http.Request, key string) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return 0
	}
	return v
}
