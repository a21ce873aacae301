package handler

import (
	"net/http"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/auth"
)

// HeaderAPIKey carries the admin API key.
const HeaderAPIKey = "api_key"

// RequireAPIKey rejects requests without a valid admin API key. The key
// name is added to the request logger.
func (h *Handler) RequireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		info, err := h.auth.Authenticate(r.Context(), r.Header.Get(HeaderAPIKey))
		if err != nil {
			writeError(w, r, err)
			return
		}
		if !info.HasScope(h.cfg.AdminScope) {
			writeError(w, r, auth.ErrUnauthorized)
			return
		}
		lg := zctx.From(r.Context()).With(zap.String("api_key", info.Name))
		next.ServeHTTP(w, r.WithContext(zctx.Base(r.Context(), lg)))
	})
}
