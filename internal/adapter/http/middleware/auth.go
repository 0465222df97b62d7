package middleware

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/iho/ledgerbook/internal/adapter/http/handler"
	"github.com/iho/ledgerbook/internal/domain"
)

// TokenVerifier turns a signed token into a claim.
type TokenVerifier interface {
	Verify(token string) (*domain.Claim, error)
}

// Authorizer decides whether a claim satisfies a role requirement.
type Authorizer interface {
	Authorize(claim *domain.Claim, req domain.RoleRequirement) error
}

// Authenticate extracts the role claim from the auth cookie or an
// Authorization: Bearer header. Requests without a token pass through
// without a claim; a present but invalid token is rejected with 401.
func Authenticate(verifier TokenVerifier, cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := tokenFromRequest(r, cookieName)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			claim, err := verifier.Verify(token)
			if err != nil {
				handler.WriteDomainError(w, r, err)
				return
			}

			ctx := domain.ContextWithClaim(r.Context(), claim)
			reqLogger := zerolog.Ctx(ctx).With().
				Str("user_id", claim.UserID).
				Str("role", string(claim.Role)).
				Logger()
			next.ServeHTTP(w, r.WithContext(reqLogger.WithContext(ctx)))
		})
	}
}

// RequireRole rejects requests whose claim does not satisfy req.
// A missing claim is 401, a claim with the wrong role is 403.
func RequireRole(gate Authorizer, req domain.RoleRequirement) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claim, _ := domain.ClaimFromContext(r.Context())
			if err := gate.Authorize(claim, req); err != nil {
				handler.WriteDomainError(w, r, err)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func tokenFromRequest(r *http.Request, cookieName string) string {
	if cookieName != "" {
		if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
			return c.Value
		}
	}

	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}

	return ""
}
