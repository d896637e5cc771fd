package httpapi

import (
	"context"
	"eats/internal/core"
	"eats/pkg/domain"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

type contextKey struct{}

var userKey contextKey

func userFrom(ctx context.Context) domain.User {
	user, _ := ctx.Value(userKey).(domain.User)
	return user
}

// requireUser resolves the acting user named by UserHeader.
func (h *Handler) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		username := r.Header.Get(UserHeader)
		if username == "" {
			writeError(w, http.StatusUnauthorized, "missing "+UserHeader+" header")
			return
		}
		user, err := h.svc.FindUser(ctx, username)
		if err != nil {
			if errors.Is(err, core.ErrUnknownUser) {
				h.logger.WarnContext(ctx, "unknown user", "request_id", middleware.GetReqID(ctx), "user", username)
				writeError(w, http.StatusForbidden, "unknown user")
				return
			}
			h.writeCodecError(ctx, w, "resolve user failed", err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, userKey, user)))
	})
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		h.logger.DebugContext(r.Context(), "request",
			"request_id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
		)
	})
}
