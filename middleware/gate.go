package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	crewauth "github.com/DEPthes/crewauth"
	"github.com/DEPthes/crewauth/exempt"
)

type principalContextKey struct{}

// PrincipalFromContext returns the authenticated principal attached by Gate.
func PrincipalFromContext(ctx context.Context) (*crewauth.Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(*crewauth.Principal)
	return p, ok
}

// ErrorBody is the structured rejection payload. It never carries internal
// error detail, only the stable code name and a short message.
type ErrorBody struct {
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
	CodeName   string `json:"code_name"`
}

// Gate returns middleware enforcing authentication on every request whose
// path the registry does not exempt. Accepted requests continue with the
// principal attached to the context; rejections are written as a 401 with an
// ErrorBody, and store outages as a 500.
func Gate(engine *crewauth.Engine, registry *exempt.Registry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if registry != nil && registry.IsExempt(r.Method, r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			if engine == nil {
				writeServerError(w)
				return
			}

			credential, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				writeTokenError(w, crewauth.ErrTokenMissing)
				return
			}

			principal, err := engine.Authenticate(r.Context(), credential)
			if err != nil {
				if te, isToken := crewauth.AsTokenError(err); isToken {
					writeTokenError(w, te)
					return
				}
				writeServerError(w)
				return
			}

			ctx := context.WithValue(r.Context(), principalContextKey{}, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	credential := value[len(bearer):]
	if credential == "" {
		return "", false
	}

	return credential, true
}

func writeTokenError(w http.ResponseWriter, te *crewauth.TokenError) {
	writeError(w, ErrorBody{
		StatusCode: te.HTTPStatus(),
		Message:    te.Error(),
		CodeName:   te.CodeName(),
	})
}

func writeServerError(w http.ResponseWriter) {
	writeError(w, ErrorBody{
		StatusCode: http.StatusInternalServerError,
		Message:    "internal server error",
		CodeName:   "SERVER_ERROR",
	})
}

func writeError(w http.ResponseWriter, body ErrorBody) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(body.StatusCode)
	_ = json.NewEncoder(w).Encode(body)
}
