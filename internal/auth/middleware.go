package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/clinicbook/clinicbook/internal/model"
)

type actorCtxKey struct{}

func ActorFromContext(ctx context.Context) (model.Actor, bool) {
	a, ok := ctx.Value(actorCtxKey{}).(model.Actor)
	return a, ok
}

func contextWithActor(ctx context.Context, a model.Actor) context.Context {
	return context.WithValue(ctx, actorCtxKey{}, a)
}

// Require verifies the bearer token and, when roles are given, restricts
// the route to those roles. The actor lands in the request context.
func Require(secret string, roles ...model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				unauthorized(w)
				return
			}
			claims, err := ParseAndVerifyHS256(token, secret)
			if err != nil {
				unauthorized(w)
				return
			}
			role, err := model.ParseRole(claims.Role)
			if err != nil {
				unauthorized(w)
				return
			}
			if len(roles) > 0 && !roleAllowed(role, roles) {
				forbidden(w)
				return
			}
			actor := model.Actor{
				UserID:    claims.Sub,
				Role:      role,
				DoctorID:  claims.DoctorID,
				PatientID: claims.PatientID,
			}
			next.ServeHTTP(w, r.WithContext(contextWithActor(r.Context(), actor)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(h[len(prefix):]), true
}

func roleAllowed(role model.Role, allowed []model.Role) bool {
	for _, a := range allowed {
		if role == a {
			return true
		}
	}
	return false
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"authentication required"}`))
}

func forbidden(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	_, _ = w.Write([]byte(`{"error":"insufficient role"}`))
}
