package controllers

import (
	"net/http"
	"time"

	"github.com/shoptracker/shoptracker-backend/api/middleware"
	"github.com/shoptracker/shoptracker-backend/api/responses"
	"github.com/shoptracker/shoptracker-backend/api/validators"
	"github.com/shoptracker/shoptracker-backend/internal/access"
	"github.com/shoptracker/shoptracker-backend/internal/audit"
	"github.com/shoptracker/shoptracker-backend/internal/inventory"
	pkgerrors "github.com/shoptracker/shoptracker-backend/pkg/errors"
	"github.com/shoptracker/shoptracker-backend/pkg/logger"
)

const maxTrailLimit = 1000

type HistoryEventPayload struct {
	ID          string `json:"id"`
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Username    string `json:"username"`
	Kind        string `json:"kind"`
	OldQuantity int    `json:"old_quantity"`
	NewQuantity int    `json:"new_quantity"`
	Delta       int    `json:"delta"`
	OccurredAt  string `json:"occurred_at"`
}

// InventoryHistory returns the mutation history in order. An optional
// limit query parameter trims the response to the most recent entries.
func InventoryHistory(svc *inventory.Service, policy *access.Policy, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor := middleware.ActorFromContext(r.Context())
		if !policy.CanManageStock(actor) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "not allowed to view history"))
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", 0, 0, maxTrailLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		history := svc.History()
		if limit > 0 && len(history) > limit {
			history = history[len(history)-limit:]
		}
		out := make([]HistoryEventPayload, 0, len(history))
		for _, ev := range history {
			out = append(out, HistoryEventPayload{
				ID:          ev.ID.String(),
				ProductID:   ev.ProductID,
				ProductName: ev.ProductName,
				Username:    ev.Username,
				Kind:        string(ev.Kind),
				OldQuantity: ev.OldQuantity,
				NewQuantity: ev.NewQuantity,
				Delta:       ev.Delta,
				OccurredAt:  ev.OccurredAt.Format(time.RFC3339),
			})
		}
		responses.WriteSuccess(w, out)
	}
}

// AuditEntries returns the audit trail as display lines, oldest first.
// An optional limit query parameter trims to the most recent lines.
func AuditEntries(log *audit.Log, policy *access.Policy, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor := middleware.ActorFromContext(r.Context())
		if !policy.CanManageStock(actor) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "not allowed to view the audit log"))
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", 0, 0, maxTrailLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		lines := log.Lines()
		if limit > 0 && len(lines) > limit {
			lines = lines[len(lines)-limit:]
		}
		responses.WriteSuccess(w, lines)
	}
}
