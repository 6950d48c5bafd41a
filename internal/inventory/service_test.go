package inventory

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/shoptracker/shoptracker-backend/internal/access"
	"github.com/shoptracker/shoptracker-backend/internal/audit"
	"github.com/shoptracker/shoptracker-backend/pkg/db/models"
	"github.com/shoptracker/shoptracker-backend/pkg/enums"
)

type captureSink struct {
	events []models.InventoryEvent
}

func (c *captureSink) EnqueueEvent(event models.InventoryEvent) {
	c.events = append(c.events, event)
}

func newTestEngine(t *testing.T, allowUserAdjust bool) (*Service, *audit.Log, *captureSink) {
	t.Helper()
	log := audit.NewLog(nil)
	sink := &captureSink{}
	svc, err := NewService(access.NewPolicy(allowUserAdjust), log, 5, sink, nil, nil)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc, log, sink
}

func manager() *models.Account {
	return &models.Account{Username: "mark", Role: enums.RoleManager, IsActive: true}
}

func plainUser() *models.Account {
	return &models.Account{Username: "uma", Role: enums.RoleUser, IsActive: true}
}

func apples(qty int) models.Product {
	return models.Product{ID: "A01", Name: "Apples", Quantity: qty, Price: decimal.NewFromFloat(0.50)}
}

func TestAddProductRecordsHistory(t *testing.T) {
	svc, log, sink := newTestEngine(t, true)
	ctx := context.Background()

	if !svc.AddProduct(ctx, manager(), apples(20)) {
		t.Fatal("manager add should succeed")
	}

	got, ok := svc.GetProduct("A01")
	if !ok || got.Quantity != 20 {
		t.Fatalf("unexpected product state: %+v ok=%v", got, ok)
	}
	history := svc.History()
	if len(history) != 1 {
		t.Fatalf("expected 1 event, got %d", len(history))
	}
	ev := history[0]
	if ev.Kind != enums.EventKindAdd || ev.OldQuantity != 0 || ev.NewQuantity != 20 || ev.Username != "mark" {
		t.Fatalf("unexpected event %+v", ev)
	}
	if len(sink.events) != 1 {
		t.Fatalf("sink missed the event, got %d", len(sink.events))
	}
	if log.Size() != 1 {
		t.Fatalf("expected 1 audit entry, got %d", log.Size())
	}
}

func TestAddProductDeniedLeavesStateUntouched(t *testing.T) {
	svc, log, _ := newTestEngine(t, true)
	ctx := context.Background()

	if svc.AddProduct(ctx, plainUser(), apples(20)) {
		t.Fatal("plain user must not add products")
	}
	if svc.AddProduct(ctx, nil, apples(20)) {
		t.Fatal("anonymous caller must not add products")
	}
	if svc.Count() != 0 || len(svc.History()) != 0 {
		t.Fatal("denied adds must not mutate catalog or history")
	}
	if log.Size() != 2 {
		t.Fatalf("expected 2 denial entries, got %d", log.Size())
	}
}

func TestAddProductOverwriteKeepsOldQuantityInEvent(t *testing.T) {
	svc, _, _ := newTestEngine(t, true)
	ctx := context.Background()

	svc.AddProduct(ctx, manager(), apples(20))
	svc.AddProduct(ctx, manager(), apples(7))

	history := svc.History()
	if len(history) != 2 {
		t.Fatalf("expected 2 events, got %d", len(history))
	}
	if history[1].OldQuantity != 20 || history[1].NewQuantity != 7 {
		t.Fatalf("overwrite event wrong: %+v", history[1])
	}
}

func TestRemoveProduct(t *testing.T) {
	svc, _, _ := newTestEngine(t, true)
	ctx := context.Background()

	svc.AddProduct(ctx, manager(), apples(20))

	if svc.RemoveProduct(ctx, manager(), "ghost") {
		t.Fatal("removing an unknown product must fail")
	}
	if !svc.RemoveProduct(ctx, manager(), "A01") {
		t.Fatal("remove should succeed")
	}
	if _, ok := svc.GetProduct("A01"); ok {
		t.Fatal("product still present after remove")
	}
	history := svc.History()
	last := history[len(history)-1]
	if last.Kind != enums.EventKindRemove || last.OldQuantity != 20 || last.NewQuantity != 0 {
		t.Fatalf("unexpected remove event %+v", last)
	}
}

func TestUpdateProductRefusesToCreate(t *testing.T) {
	svc, _, _ := newTestEngine(t, true)
	ctx := context.Background()

	if svc.UpdateProduct(ctx, manager(), apples(10)) {
		t.Fatal("update must not create a missing product")
	}
	svc.AddProduct(ctx, manager(), apples(20))
	if !svc.UpdateProduct(ctx, manager(), models.Product{ID: "A01", Name: "Green Apples", Quantity: 12, Price: decimal.NewFromFloat(0.55)}) {
		t.Fatal("update should succeed")
	}
	got, _ := svc.GetProduct("A01")
	if got.Name != "Green Apples" || got.Quantity != 12 {
		t.Fatalf("update not applied: %+v", got)
	}
	history := svc.History()
	if history[len(history)-1].Kind != enums.EventKindSet {
		t.Fatalf("expected set event, got %+v", history[len(history)-1])
	}
}

func TestAdjustQuantity(t *testing.T) {
	svc, _, _ := newTestEngine(t, true)
	ctx := context.Background()
	svc.AddProduct(ctx, manager(), apples(10))

	if !svc.AdjustQuantity(ctx, plainUser(), "A01", 3) {
		t.Fatal("user adjust should succeed with the knob on")
	}
	if !svc.AdjustQuantity(ctx, plainUser(), "A01", -13) {
		t.Fatal("adjust to exactly zero should succeed")
	}
	if svc.AdjustQuantity(ctx, plainUser(), "A01", -1) {
		t.Fatal("adjust below zero must fail")
	}
	got, _ := svc.GetProduct("A01")
	if got.Quantity != 0 {
		t.Fatalf("expected quantity 0, got %d", got.Quantity)
	}

	history := svc.History()
	if len(history) != 3 {
		t.Fatalf("expected 3 events (add + 2 adjusts), got %d", len(history))
	}
	if history[1].Kind != enums.EventKindIncrease || history[2].Kind != enums.EventKindDecrease {
		t.Fatalf("unexpected adjust kinds: %+v %+v", history[1], history[2])
	}
}

func TestAdjustQuantityKnobOff(t *testing.T) {
	svc, _, _ := newTestEngine(t, false)
	ctx := context.Background()
	svc.AddProduct(ctx, manager(), apples(10))

	if svc.AdjustQuantity(ctx, plainUser(), "A01", 1) {
		t.Fatal("user adjust must fail with the knob off")
	}
	if !svc.AdjustQuantity(ctx, manager(), "A01", 1) {
		t.Fatal("manager adjust should still succeed")
	}
}

func TestSingleStepStockButtons(t *testing.T) {
	svc, _, _ := newTestEngine(t, true)
	ctx := context.Background()
	svc.AddProduct(ctx, manager(), apples(1))

	if !svc.IncreaseStock(ctx, "A01") {
		t.Fatal("increase should succeed")
	}
	if !svc.DecreaseStock(ctx, "A01") || !svc.DecreaseStock(ctx, "A01") {
		t.Fatal("decrease should succeed down to zero")
	}
	if svc.DecreaseStock(ctx, "A01") {
		t.Fatal("decrease at zero must fail")
	}
	if svc.IncreaseStock(ctx, "ghost") {
		t.Fatal("increase on unknown product must fail")
	}

	history := svc.History()
	for _, ev := range history[1:] {
		if ev.Username != "system" {
			t.Fatalf("stock buttons must be attributed to system, got %q", ev.Username)
		}
	}
}

func TestSnapshotsDoNotAliasState(t *testing.T) {
	svc, _, _ := newTestEngine(t, true)
	ctx := context.Background()
	svc.AddProduct(ctx, manager(), apples(10))

	all := svc.GetAllProducts()
	all[0].Quantity = 999
	got, _ := svc.GetProduct("A01")
	if got.Quantity != 10 {
		t.Fatal("mutating a snapshot leaked into the catalog")
	}

	history := svc.History()
	history[0].Username = "mallory"
	if svc.History()[0].Username != "mark" {
		t.Fatal("mutating a history copy leaked into the log")
	}
}

func TestSearchByName(t *testing.T) {
	svc, _, _ := newTestEngine(t, true)
	ctx := context.Background()
	svc.AddProduct(ctx, manager(), apples(10))
	svc.AddProduct(ctx, manager(), models.Product{ID: "B01", Name: "Bananas", Quantity: 5, Price: decimal.NewFromFloat(0.40)})

	if got := svc.SearchByName("AppLe"); len(got) != 1 || got[0].ID != "A01" {
		t.Fatalf("case-insensitive search failed: %v", got)
	}
	if got := svc.SearchByName("  "); len(got) != 0 {
		t.Fatalf("blank query must match nothing, got %v", got)
	}
	if got := svc.SearchByName("an"); len(got) != 1 || got[0].ID != "B01" {
		t.Fatalf("substring search failed: %v", got)
	}
}

func TestRestockThresholds(t *testing.T) {
	svc, _, _ := newTestEngine(t, true)
	ctx := context.Background()
	svc.AddProduct(ctx, manager(), apples(10))

	if th := svc.GetRestockThreshold("A01"); th != 5 {
		t.Fatalf("expected default threshold 5, got %d", th)
	}

	svc.SetRestockThreshold(ctx, plainUser(), "A01", 50)
	if th := svc.GetRestockThreshold("A01"); th != 5 {
		t.Fatal("unauthorized threshold write must be ignored")
	}

	svc.SetRestockThreshold(ctx, manager(), "A01", -3)
	if th := svc.GetRestockThreshold("A01"); th != 0 {
		t.Fatalf("negative threshold should clamp to 0, got %d", th)
	}

	svc.SetRestockThreshold(ctx, manager(), "A01", 12)
	if th := svc.GetRestockThreshold("A01"); th != 12 {
		t.Fatalf("expected threshold 12, got %d", th)
	}

	low := svc.GetLowStockProducts()
	if len(low) != 1 || low[0].ID != "A01" {
		t.Fatalf("expected A01 below threshold, got %v", low)
	}

	// 2*12 - 10
	if got := svc.GetSuggestedRestockQuantity("A01"); got != 14 {
		t.Fatalf("expected suggestion 14, got %d", got)
	}
	if got := svc.GetSuggestedRestockQuantity("ghost"); got != 0 {
		t.Fatalf("unknown product must suggest 0, got %d", got)
	}

	svc.AdjustQuantity(ctx, manager(), "A01", 90)
	if got := svc.GetSuggestedRestockQuantity("A01"); got != 0 {
		t.Fatalf("overstocked product must suggest 0, got %d", got)
	}
}

func TestClearInventoryKeepsThresholds(t *testing.T) {
	svc, _, _ := newTestEngine(t, true)
	ctx := context.Background()
	admin := &models.Account{Username: "alice", Role: enums.RoleAdmin, IsActive: true}

	svc.AddProduct(ctx, admin, apples(10))
	svc.SetRestockThreshold(ctx, admin, "A01", 9)

	svc.ClearInventory(ctx, admin)
	if svc.Count() != 0 || len(svc.History()) != 0 {
		t.Fatal("clear must wipe catalog and history")
	}
	if th := svc.GetRestockThreshold("A01"); th != 9 {
		t.Fatalf("threshold override lost on clear, got %d", th)
	}
}

func TestAdjustQuantityConcurrentNeverGoesNegative(t *testing.T) {
	svc, _, _ := newTestEngine(t, true)
	ctx := context.Background()

	svc.AddProduct(ctx, manager(), apples(5))

	const workers = 20
	var applied int64
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			if svc.AdjustQuantity(ctx, manager(), "A01", -1) {
				atomic.AddInt64(&applied, 1)
			}
		}()
	}
	wg.Wait()

	got, _ := svc.GetProduct("A01")
	if got.Quantity < 0 {
		t.Fatalf("quantity went negative: %d", got.Quantity)
	}
	if applied != 5 {
		t.Fatalf("expected exactly 5 applied decrements, got %d", applied)
	}
	if got.Quantity != 0 {
		t.Fatalf("expected quantity 0 after draining, got %d", got.Quantity)
	}
	// one ADD plus one event per applied decrement, failures record nothing
	if events := len(svc.History()); events != int(applied)+1 {
		t.Fatalf("history has %d events, expected %d", events, applied+1)
	}
}

func TestClearInventoryIsCallerGated(t *testing.T) {
	svc, _, _ := newTestEngine(t, true)
	ctx := context.Background()

	svc.AddProduct(ctx, manager(), apples(10))

	svc.ClearInventory(ctx, nil)
	if svc.Count() != 0 {
		t.Fatalf("clear without an actor must still wipe, catalog size=%d", svc.Count())
	}
	if len(svc.History()) != 0 {
		t.Fatal("clear without an actor must still wipe the history")
	}
}

func TestSeedDefaultStockIfEmpty(t *testing.T) {
	svc, _, sink := newTestEngine(t, true)
	ctx := context.Background()

	if !svc.SeedDefaultStockIfEmpty(ctx) {
		t.Fatal("first seed should populate the catalog")
	}
	if svc.SeedDefaultStockIfEmpty(ctx) {
		t.Fatal("second seed must be a no-op")
	}

	all := svc.GetAllProducts()
	if len(all) != 3 {
		t.Fatalf("expected 3 seeded products, got %d", len(all))
	}
	if all[0].ID != "A01" || all[1].ID != "B01" || all[2].ID != "O01" {
		t.Fatalf("unexpected seed order: %v", all)
	}
	history := svc.History()
	if len(history) != 3 {
		t.Fatalf("expected 3 seed events, got %d", len(history))
	}
	for _, ev := range history {
		if ev.Username != "system" || ev.Kind != enums.EventKindAdd {
			t.Fatalf("unexpected seed event %+v", ev)
		}
	}
	if len(sink.events) != 3 {
		t.Fatalf("sink missed seed events, got %d", len(sink.events))
	}
}
