package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/shoptracker/shoptracker-backend/api/middleware"
	"github.com/shoptracker/shoptracker-backend/api/responses"
	"github.com/shoptracker/shoptracker-backend/api/validators"
	"github.com/shoptracker/shoptracker-backend/internal/access"
	"github.com/shoptracker/shoptracker-backend/internal/inventory"
	"github.com/shoptracker/shoptracker-backend/pkg/db/models"
	pkgerrors "github.com/shoptracker/shoptracker-backend/pkg/errors"
	"github.com/shoptracker/shoptracker-backend/pkg/logger"
)

type ProductPayload struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Price    string `json:"price"`
}

func toProductPayload(p models.Product) ProductPayload {
	return ProductPayload{
		ID:       p.ID,
		Name:     p.Name,
		Quantity: p.Quantity,
		Price:    p.Price.StringFixed(2),
	}
}

func toProductPayloads(list []models.Product) []ProductPayload {
	out := make([]ProductPayload, 0, len(list))
	for _, p := range list {
		out = append(out, toProductPayload(p))
	}
	return out
}

// ProductsList returns the catalog, filtered by the q parameter when
// present.
func ProductsList(svc *inventory.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := strings.TrimSpace(r.URL.Query().Get("q"))
		if q != "" {
			responses.WriteSuccess(w, toProductPayloads(svc.SearchByName(q)))
			return
		}
		responses.WriteSuccess(w, toProductPayloads(svc.GetAllProducts()))
	}
}

func ProductsGet(svc *inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		p, ok := svc.GetProduct(id)
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "product not found"))
			return
		}
		responses.WriteSuccess(w, toProductPayload(p))
	}
}

type CreateProductRequest struct {
	ID       string `json:"id" validate:"required"`
	Name     string `json:"name" validate:"required"`
	Quantity int    `json:"quantity" validate:"min=0"`
	Price    string `json:"price" validate:"required"`
}

func parsePrice(raw string) (decimal.Decimal, error) {
	price, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "price must be a decimal number")
	}
	if price.IsNegative() {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
	}
	return price, nil
}

// ProductsCreate adds or replaces a catalog entry.
func ProductsCreate(svc *inventory.Service, policy *access.Policy, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor := middleware.ActorFromContext(r.Context())
		if !policy.CanManageStock(actor) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "not allowed to manage stock"))
			return
		}

		var body CreateProductRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		price, err := parsePrice(body.Price)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		p := models.Product{ID: body.ID, Name: body.Name, Quantity: body.Quantity, Price: price}
		if !svc.AddProduct(r.Context(), actor, p) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeConflict, "product not added"))
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, toProductPayload(p))
	}
}

type UpdateProductRequest struct {
	Name     string `json:"name" validate:"required"`
	Quantity int    `json:"quantity" validate:"min=0"`
	Price    string `json:"price" validate:"required"`
}

// ProductsUpdate replaces name, quantity, and price of an existing entry.
func ProductsUpdate(svc *inventory.Service, policy *access.Policy, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor := middleware.ActorFromContext(r.Context())
		if !policy.CanManageStock(actor) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "not allowed to manage stock"))
			return
		}

		id := chi.URLParam(r, "id")
		if _, ok := svc.GetProduct(id); !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "product not found"))
			return
		}

		var body UpdateProductRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		price, err := parsePrice(body.Price)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		p := models.Product{ID: id, Name: body.Name, Quantity: body.Quantity, Price: price}
		if !svc.UpdateProduct(r.Context(), actor, p) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeConflict, "product not updated"))
			return
		}
		responses.WriteSuccess(w, toProductPayload(p))
	}
}

func ProductsDelete(svc *inventory.Service, policy *access.Policy, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor := middleware.ActorFromContext(r.Context())
		if !policy.CanManageStock(actor) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "not allowed to manage stock"))
			return
		}

		id := chi.URLParam(r, "id")
		if _, ok := svc.GetProduct(id); !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "product not found"))
			return
		}
		if !svc.RemoveProduct(r.Context(), actor, id) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeConflict, "product not removed"))
			return
		}
		responses.WriteSuccess(w, map[string]string{"id": id, "status": "removed"})
	}
}

type AdjustQuantityRequest struct {
	Delta int `json:"delta"`
}

// ProductsAdjust applies a signed delta to a product's quantity. Plain
// users may call it when the user-adjust policy knob is on.
func ProductsAdjust(svc *inventory.Service, policy *access.Policy, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor := middleware.ActorFromContext(r.Context())
		if !policy.CanAdjustQuantity(actor) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "not allowed to adjust quantity"))
			return
		}

		id := chi.URLParam(r, "id")
		existing, ok := svc.GetProduct(id)
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "product not found"))
			return
		}

		var body AdjustQuantityRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if existing.Quantity+body.Delta < 0 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "adjustment would make quantity negative"))
			return
		}

		if !svc.AdjustQuantity(r.Context(), actor, id, body.Delta) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeConflict, "quantity not adjusted"))
			return
		}
		updated, _ := svc.GetProduct(id)
		responses.WriteSuccess(w, toProductPayload(updated))
	}
}

// ProductsIncrease bumps the quantity by one. The mutation itself is
// attributed to the system identity, matching the one-click stock
// buttons.
func ProductsIncrease(svc *inventory.Service, policy *access.Policy, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor := middleware.ActorFromContext(r.Context())
		if !policy.CanManageStock(actor) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "not allowed to manage stock"))
			return
		}

		id := chi.URLParam(r, "id")
		if _, ok := svc.GetProduct(id); !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "product not found"))
			return
		}
		if !svc.IncreaseStock(r.Context(), id) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeConflict, "stock not increased"))
			return
		}
		updated, _ := svc.GetProduct(id)
		responses.WriteSuccess(w, toProductPayload(updated))
	}
}

// ProductsDecrease lowers the quantity by one, refusing at zero.
func ProductsDecrease(svc *inventory.Service, policy *access.Policy, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor := middleware.ActorFromContext(r.Context())
		if !policy.CanManageStock(actor) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "not allowed to manage stock"))
			return
		}

		id := chi.URLParam(r, "id")
		existing, ok := svc.GetProduct(id)
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "product not found"))
			return
		}
		if existing.Quantity == 0 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "quantity is already zero"))
			return
		}
		if !svc.DecreaseStock(r.Context(), id) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeConflict, "stock not decreased"))
			return
		}
		updated, _ := svc.GetProduct(id)
		responses.WriteSuccess(w, toProductPayload(updated))
	}
}

type SetThresholdRequest struct {
	Threshold int `json:"threshold" validate:"min=0"`
}

// ProductsSetThreshold installs a per-product restock threshold.
func ProductsSetThreshold(svc *inventory.Service, policy *access.Policy, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor := middleware.ActorFromContext(r.Context())
		if !policy.CanManageStock(actor) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "not allowed to manage stock"))
			return
		}

		id := chi.URLParam(r, "id")
		if _, ok := svc.GetProduct(id); !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "product not found"))
			return
		}

		var body SetThresholdRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		svc.SetRestockThreshold(r.Context(), actor, id, body.Threshold)
		responses.WriteSuccess(w, map[string]any{"id": id, "threshold": svc.GetRestockThreshold(id)})
	}
}

type LowStockItem struct {
	ProductPayload
	Threshold         int `json:"threshold"`
	SuggestedQuantity int `json:"suggested_quantity"`
}

// InventoryLowStock lists products at or below their restock threshold
// together with the suggested order size.
func InventoryLowStock(svc *inventory.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		low := svc.GetLowStockProducts()
		out := make([]LowStockItem, 0, len(low))
		for _, p := range low {
			out = append(out, LowStockItem{
				ProductPayload:    toProductPayload(p),
				Threshold:         svc.GetRestockThreshold(p.ID),
				SuggestedQuantity: svc.GetSuggestedRestockQuantity(p.ID),
			})
		}
		responses.WriteSuccess(w, out)
	}
}
