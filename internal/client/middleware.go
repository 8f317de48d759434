package client

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
)

// Middleware creates HTTP middleware that identifies the calling client.
// Reads the Storefront-Client header, falling back to profile/tab query
// parameters for clients that cannot set headers (EventSource).
// Stores Identity in the request context for handlers.
//
// Requests without an identity are rejected with 400 Bad Request.
func Middleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isExemptPath(r.Method, r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			id, err := identify(r)
			if err != nil {
				logger.Warn("invalid client identity",
					slog.String("header", r.Header.Get(Header)),
					slog.String("error", err.Error()))
				writeIdentityError(w, http.StatusBadRequest, IdentityRequired, err.Error())
				return
			}

			if err := CheckVersion(id.Version); err != nil {
				var verErr *VersionError
				if errors.As(err, &verErr) {
					writeIdentityError(w, http.StatusBadRequest, verErr.Code, verErr.Message)
					return
				}
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

func identify(r *http.Request) (Identity, error) {
	if header := r.Header.Get(Header); header != "" {
		return ParseHeader(header)
	}

	q := r.URL.Query()
	if profile := strings.TrimSpace(q.Get("profile")); profile != "" {
		id := Identity{
			Profile: profile,
			Tab:     strings.TrimSpace(q.Get("tab")),
			Version: strings.TrimSpace(q.Get("version")),
		}
		return id, id.Validate()
	}

	return Identity{}, errors.New("missing Storefront-Client header")
}

// isExemptPath returns true for requests that don't act on a profile.
// Health checks are infrastructure, catalog reads are shared by everyone,
// profile creation mints the identity, and MCP tool calls carry the profile
// in their arguments.
func isExemptPath(method, path string) bool {
	switch {
	case path == "/health" || path == "/healthz":
		return true
	case path == "/profiles" && method == http.MethodPost:
		return true
	case method == http.MethodGet && (path == "/catalog" || strings.HasPrefix(path, "/catalog/")):
		return true
	case path == "/mcp" || strings.HasPrefix(path, "/mcp/"):
		return true
	default:
		return false
	}
}

// writeIdentityError writes an error using the standard error envelope format.
func writeIdentityError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}{}
	resp.Error.Code = code
	resp.Error.Message = message

	json.NewEncoder(w).Encode(resp)
}
