package middleware

import (
	"net/http"
	"strings"

	pkgauth "github.com/shoptracker/shoptracker-backend/pkg/auth"
	"github.com/shoptracker/shoptracker-backend/pkg/config"
	"github.com/shoptracker/shoptracker-backend/pkg/db/models"
	"github.com/shoptracker/shoptracker-backend/pkg/logger"
)

// ActorLookup resolves a username to its current account.
type ActorLookup interface {
	Find(username string) (*models.Account, bool)
}

// Actor resolves the bearer token into an account and seeds the request
// context with it. A missing, malformed, or stale token leaves the actor
// absent rather than failing the request: the core operations treat an
// anonymous caller as unprivileged, which is the behaviour every
// permission check wants anyway.
func Actor(cfg config.JWTConfig, lookup ActorLookup, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := resolveActor(cfg, lookup, r)
			if actor == nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := WithActor(r.Context(), actor)
			if logg != nil {
				ctx = logg.WithActor(ctx, actor.Username)
				ctx = logg.WithActorRole(ctx, string(actor.Role))
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func resolveActor(cfg config.JWTConfig, lookup ActorLookup, r *http.Request) *models.Account {
	if lookup == nil {
		return nil
	}

	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if raw == "" {
		return nil
	}
	token := raw
	if strings.HasPrefix(strings.ToLower(token), "bearer ") {
		token = strings.TrimSpace(token[7:])
	}
	if token == "" {
		return nil
	}

	claims, err := pkgauth.ParseAccessToken(cfg, token)
	if err != nil {
		return nil
	}

	// The directory is authoritative: role changes and deactivations
	// apply to tokens minted before them.
	acct, ok := lookup.Find(claims.Username)
	if !ok || !acct.IsActive {
		return nil
	}
	return acct
}
