package inventory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shoptracker/shoptracker-backend/internal/access"
	"github.com/shoptracker/shoptracker-backend/internal/audit"
	"github.com/shoptracker/shoptracker-backend/pkg/db/models"
	"github.com/shoptracker/shoptracker-backend/pkg/enums"
	"github.com/shoptracker/shoptracker-backend/pkg/logger"
	"github.com/shoptracker/shoptracker-backend/pkg/metrics"
)

// systemActor attributes machine-initiated mutations (seeding, the
// single-step stock buttons) in history and audit entries.
const systemActor = "system"

// EventSink receives every recorded inventory event. Implementations must
// not block; the engine calls them while holding its mutex.
type EventSink interface {
	EnqueueEvent(event models.InventoryEvent)
}

// Service is the inventory engine. One mutex guards the catalog, the
// history, and the thresholds together, so a permission check, its
// mutation, and the matching audit entry land as one atomic step and
// history order always matches mutation order.
type Service struct {
	mu         sync.Mutex
	products   map[string]models.Product
	history    []models.InventoryEvent
	thresholds map[string]int

	defaultThreshold int
	policy           *access.Policy
	auditor          *audit.Log
	sink             EventSink
	logg             *logger.Logger
	metrics          *metrics.MutationMetrics
}

// NewService constructs the engine. sink, logg, and mutationMetrics may
// be nil; defaultThreshold below zero is clamped to zero.
func NewService(policy *access.Policy, auditor *audit.Log, defaultThreshold int, sink EventSink, logg *logger.Logger, mutationMetrics *metrics.MutationMetrics) (*Service, error) {
	if policy == nil {
		return nil, fmt.Errorf("access policy required")
	}
	if auditor == nil {
		return nil, fmt.Errorf("audit log required")
	}
	if defaultThreshold < 0 {
		defaultThreshold = 0
	}
	return &Service{
		products:         make(map[string]models.Product),
		history:          make([]models.InventoryEvent, 0),
		thresholds:       make(map[string]int),
		defaultThreshold: defaultThreshold,
		policy:           policy,
		auditor:          auditor,
		sink:             sink,
		logg:             logg,
		metrics:          mutationMetrics,
	}, nil
}

// record appends one history event and forwards it to the archive sink.
// Callers hold s.mu.
func (s *Service) record(kind enums.EventKind, p models.Product, username string, oldQty, newQty int) {
	event := models.InventoryEvent{
		ID:          uuid.New(),
		ProductID:   p.ID,
		ProductName: p.Name,
		Username:    username,
		Kind:        kind,
		OldQuantity: oldQty,
		NewQuantity: newQty,
		Delta:       newQty - oldQty,
		OccurredAt:  time.Now().UTC(),
	}
	s.history = append(s.history, event)
	if s.sink != nil {
		s.sink.EnqueueEvent(event)
	}
}

// AddProduct inserts or replaces a catalog entry. Adding an existing ID
// overwrites name, quantity, and price; the recorded old quantity is the
// pre-overwrite value for existing products and zero for new ones.
func (s *Service) AddProduct(ctx context.Context, actor *models.Account, p models.Product) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.policy.CanManageStock(actor) {
		s.auditor.Append(fmt.Sprintf("ACCESS DENIED: %s tried to add product %s", actorName(actor), p.ID))
		s.metrics.IncDenied("add_product")
		return false
	}
	if err := p.Validate(); err != nil {
		s.auditor.Append(fmt.Sprintf("Add product FAILED (%v) by %s", err, actorName(actor)))
		s.metrics.IncFailed("add_product")
		return false
	}

	oldQty := 0
	if existing, ok := s.products[p.ID]; ok {
		oldQty = existing.Quantity
	}
	s.products[p.ID] = p
	s.record(enums.EventKindAdd, p, actorName(actor), oldQty, p.Quantity)
	s.auditor.Append(fmt.Sprintf("Product added: %s (%s) qty=%d by %s", p.Name, p.ID, p.Quantity, actorName(actor)))
	s.metrics.IncApplied("add_product")
	return true
}

// RemoveProduct deletes a catalog entry. The recorded event carries the
// final quantity as zero.
func (s *Service) RemoveProduct(ctx context.Context, actor *models.Account, productID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.policy.CanManageStock(actor) {
		s.auditor.Append(fmt.Sprintf("ACCESS DENIED: %s tried to remove product %s", actorName(actor), productID))
		s.metrics.IncDenied("remove_product")
		return false
	}
	existing, ok := s.products[productID]
	if !ok {
		s.auditor.Append(fmt.Sprintf("Remove product FAILED (not found): %s", productID))
		s.metrics.IncFailed("remove_product")
		return false
	}

	delete(s.products, productID)
	s.record(enums.EventKindRemove, existing, actorName(actor), existing.Quantity, 0)
	s.auditor.Append(fmt.Sprintf("Product removed: %s (%s) by %s", existing.Name, existing.ID, actorName(actor)))
	s.metrics.IncApplied("remove_product")
	return true
}

// UpdateProduct replaces name, quantity, and price of an existing entry.
// Unlike AddProduct it refuses to create the product.
func (s *Service) UpdateProduct(ctx context.Context, actor *models.Account, p models.Product) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.policy.CanManageStock(actor) {
		s.auditor.Append(fmt.Sprintf("ACCESS DENIED: %s tried to update product %s", actorName(actor), p.ID))
		s.metrics.IncDenied("update_product")
		return false
	}
	existing, ok := s.products[p.ID]
	if !ok {
		s.auditor.Append(fmt.Sprintf("Update product FAILED (not found): %s", p.ID))
		s.metrics.IncFailed("update_product")
		return false
	}
	if err := p.Validate(); err != nil {
		s.auditor.Append(fmt.Sprintf("Update product FAILED (%v) by %s", err, actorName(actor)))
		s.metrics.IncFailed("update_product")
		return false
	}

	s.products[p.ID] = p
	s.record(enums.EventKindSet, p, actorName(actor), existing.Quantity, p.Quantity)
	s.auditor.Append(fmt.Sprintf("Product updated: %s (%s) qty=%d by %s", p.Name, p.ID, p.Quantity, actorName(actor)))
	s.metrics.IncApplied("update_product")
	return true
}

// AdjustQuantity applies a signed delta to an existing product. Any
// authenticated role may call it when the user-adjust knob is on;
// otherwise only elevated roles. A delta that would push the quantity
// negative is rejected without mutating anything.
func (s *Service) AdjustQuantity(ctx context.Context, actor *models.Account, productID string, delta int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.policy.CanAdjustQuantity(actor) {
		s.auditor.Append(fmt.Sprintf("ACCESS DENIED: %s tried to adjust quantity for %s", actorName(actor), productID))
		s.metrics.IncDenied("adjust_quantity")
		return false
	}
	existing, ok := s.products[productID]
	if !ok {
		s.auditor.Append(fmt.Sprintf("Adjust quantity FAILED (not found): %s", productID))
		s.metrics.IncFailed("adjust_quantity")
		return false
	}
	newQty := existing.Quantity + delta
	if newQty < 0 {
		s.auditor.Append(fmt.Sprintf("Adjust quantity FAILED (would go negative): %s by %s", productID, actorName(actor)))
		s.metrics.IncFailed("adjust_quantity")
		return false
	}

	oldQty := existing.Quantity
	existing.Quantity = newQty
	s.products[productID] = existing

	kind := enums.EventKindSet
	switch {
	case delta > 0:
		kind = enums.EventKindIncrease
	case delta < 0:
		kind = enums.EventKindDecrease
	}
	s.record(kind, existing, actorName(actor), oldQty, newQty)
	s.auditor.Append(fmt.Sprintf("Quantity adjusted for %s: %d -> %d by %s", productID, oldQty, newQty, actorName(actor)))
	s.metrics.IncApplied("adjust_quantity")
	return true
}

// IncreaseStock bumps the quantity by one on behalf of the system
// identity.
func (s *Service) IncreaseStock(ctx context.Context, productID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.products[productID]
	if !ok {
		s.auditor.Append(fmt.Sprintf("Increase stock FAILED (not found): %s", productID))
		s.metrics.IncFailed("increase_stock")
		return false
	}

	oldQty := existing.Quantity
	existing.Quantity++
	s.products[productID] = existing
	s.record(enums.EventKindIncrease, existing, systemActor, oldQty, existing.Quantity)
	s.auditor.Append(fmt.Sprintf("Stock increased for %s: %d -> %d", productID, oldQty, existing.Quantity))
	s.metrics.IncApplied("increase_stock")
	return true
}

// DecreaseStock lowers the quantity by one on behalf of the system
// identity. It refuses to cross zero.
func (s *Service) DecreaseStock(ctx context.Context, productID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.products[productID]
	if !ok {
		s.auditor.Append(fmt.Sprintf("Decrease stock FAILED (not found): %s", productID))
		s.metrics.IncFailed("decrease_stock")
		return false
	}
	if existing.Quantity == 0 {
		s.auditor.Append(fmt.Sprintf("Decrease stock FAILED (already zero): %s", productID))
		s.metrics.IncFailed("decrease_stock")
		return false
	}

	oldQty := existing.Quantity
	existing.Quantity--
	s.products[productID] = existing
	s.record(enums.EventKindDecrease, existing, systemActor, oldQty, existing.Quantity)
	s.auditor.Append(fmt.Sprintf("Stock decreased for %s: %d -> %d", productID, oldQty, existing.Quantity))
	s.metrics.IncApplied("decrease_stock")
	return true
}

// GetProduct returns a snapshot of one catalog entry.
func (s *Service) GetProduct(productID string) (models.Product, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[productID]
	return p, ok
}

// GetAllProducts returns the catalog sorted by product ID. The slice and
// its entries are independent of internal state.
func (s *Service) GetAllProducts() []models.Product {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// SearchByName matches the query case-insensitively against product
// names. A blank query matches nothing.
func (s *Service) SearchByName(query string) []models.Product {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return []models.Product{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Product, 0)
	for _, p := range s.products {
		if strings.Contains(strings.ToLower(p.Name), q) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// GetLowStockProducts returns the products at or below their restock
// threshold, sorted by ID.
func (s *Service) GetLowStockProducts() []models.Product {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Product, 0)
	for _, p := range s.products {
		if p.Quantity <= s.thresholdLocked(p.ID) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Service) thresholdLocked(productID string) int {
	if th, ok := s.thresholds[productID]; ok {
		return th
	}
	return s.defaultThreshold
}

// GetRestockThreshold returns the per-product threshold, falling back to
// the configured default for products without an override.
func (s *Service) GetRestockThreshold(productID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.thresholdLocked(productID)
}

// SetRestockThreshold installs a per-product override. Unauthorized
// callers and unknown products are silently ignored; negative values are
// clamped to zero.
func (s *Service) SetRestockThreshold(ctx context.Context, actor *models.Account, productID string, threshold int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.policy.CanManageStock(actor) {
		return
	}
	if _, ok := s.products[productID]; !ok {
		return
	}
	if threshold < 0 {
		threshold = 0
	}
	s.thresholds[productID] = threshold
	s.auditor.Append(fmt.Sprintf("Restock threshold for %s set to %d by %s", productID, threshold, actorName(actor)))
}

// GetSuggestedRestockQuantity proposes an order size of twice the
// threshold minus current stock, floored at zero. Unknown products
// suggest zero.
func (s *Service) GetSuggestedRestockQuantity(productID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[productID]
	if !ok {
		return 0
	}
	suggested := 2*s.thresholdLocked(productID) - p.Quantity
	if suggested < 0 {
		return 0
	}
	return suggested
}

// ClearInventory wipes the catalog and the history but keeps threshold
// overrides, so a re-imported product retains its configured level.
// It performs no permission check of its own; the caller gates access.
func (s *Service) ClearInventory(ctx context.Context, actor *models.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.products = make(map[string]models.Product)
	s.history = make([]models.InventoryEvent, 0)
	s.auditor.Append(fmt.Sprintf("Inventory cleared by %s", actorName(actor)))
	s.metrics.IncApplied("clear_inventory")
	if s.logg != nil {
		s.logg.Warn(s.logg.WithActor(ctx, actorName(actor)), "inventory cleared")
	}
}

// History returns a copy of the full event history in mutation order.
func (s *Service) History() []models.InventoryEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.InventoryEvent, len(s.history))
	copy(out, s.history)
	return out
}

// Count returns the number of catalog entries.
func (s *Service) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.products)
}

func actorName(actor *models.Account) string {
	if actor == nil {
		return "<anonymous>"
	}
	return actor.Username
}

// mustDecimal converts seed price literals; it is only used with known
// good constants.
func mustDecimal(raw string) decimal.Decimal {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		panic(err)
	}
	return d
}
