package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/xelth-com/agrocampo/internal/access"
	"github.com/xelth-com/agrocampo/internal/apierror"
	"github.com/xelth-com/agrocampo/internal/utils"
)

type contextKey string

const IdentityContextKey contextKey = "identity"

// WithIdentity stores the authenticated caller in ctx
func WithIdentity(ctx context.Context, id access.Identity) context.Context {
	return context.WithValue(ctx, IdentityContextKey, id)
}

// IdentityFrom returns the authenticated caller stored by Auth
func IdentityFrom(ctx context.Context) (access.Identity, bool) {
	id, ok := ctx.Value(IdentityContextKey).(access.Identity)
	return id, ok
}

// Auth verifies the JWT and puts the caller's identity in the request context.
// The token is read from "Authorization: Bearer", then "x-auth-token", and
// for websocket upgrades from the "token" query parameter
func Auth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, aerr := tokenFrom(r)
			if aerr != nil {
				writeError(w, aerr)
				return
			}

			claims, err := utils.ValidateToken(tokenString, secret)
			if err != nil {
				writeError(w, apierror.Unauthorized("Token inválido o expirado"))
				return
			}
			id, err := utils.IdentityFromClaims(claims)
			if err != nil {
				writeError(w, apierror.Unauthorized("Token inválido"))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

func tokenFrom(r *http.Request) (string, *apierror.Error) {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			return "", apierror.Unauthorized("Formato de cabecera Authorization inválido")
		}
		return parts[1], nil
	}
	if token := r.Header.Get("x-auth-token"); token != "" {
		return token, nil
	}
	if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
		if token := r.URL.Query().Get("token"); token != "" {
			return token, nil
		}
	}
	return "", apierror.Unauthorized("No hay token, permiso no válido")
}

// RequireRole rejects callers whose role is not listed
func RequireRole(roles ...access.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFrom(r.Context())
			if !ok {
				writeError(w, apierror.Unauthorized("No autenticado"))
				return
			}
			if !id.Is(roles...) {
				writeError(w, apierror.Forbidden(apierror.ReasonRoleNotAllowed, "Acceso denegado para su rol"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeError(w http.ResponseWriter, err *apierror.Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.Status())
	_ = json.NewEncoder(w).Encode(err.ToBody())
}
