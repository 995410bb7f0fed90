package venue

import (
	"testing"

	"github.com/shopspring/decimal"

	"gridbot/pkg/types"
)

func TestNormalizeDerivesPartiallyFilledFromOpenWithFill(t *testing.T) {
	n := NewNormalizer("c1", types.Sell)

	update, ok := n.Normalize(RawOrderEvent{
		ContractID: "c1",
		OrderID:    "o1",
		Side:       types.Buy,
		Status:     types.StatusOpen,
		Size:       decimal.NewFromInt(1),
		FilledSize: decimal.NewFromFloat(0.3),
	})
	if !ok {
		t.Fatal("Normalize() returned ok=false, want true")
	}
	if update.Status != types.StatusPartiallyFilled {
		t.Errorf("Status = %q, want %q", update.Status, types.StatusPartiallyFilled)
	}
}

func TestNormalizeLeavesOpenStatusWhenUnfilled(t *testing.T) {
	n := NewNormalizer("c1", types.Sell)

	update, ok := n.Normalize(RawOrderEvent{
		ContractID: "c1",
		OrderID:    "o1",
		Side:       types.Buy,
		Status:     types.StatusOpen,
		Size:       decimal.NewFromInt(1),
		FilledSize: decimal.Zero,
	})
	if !ok {
		t.Fatal("Normalize() returned ok=false, want true")
	}
	if update.Status != types.StatusOpen {
		t.Errorf("Status = %q, want %q", update.Status, types.StatusOpen)
	}
}

func TestNormalizeLeavesTerminalStatusesUnchanged(t *testing.T) {
	n := NewNormalizer("c1", types.Sell)

	update, ok := n.Normalize(RawOrderEvent{
		ContractID: "c1",
		OrderID:    "o1",
		Side:       types.Buy,
		Status:     types.StatusFilled,
		Size:       decimal.NewFromInt(1),
		FilledSize: decimal.NewFromInt(1),
	})
	if !ok {
		t.Fatal("Normalize() returned ok=false, want true")
	}
	if update.Status != types.StatusFilled {
		t.Errorf("Status = %q, want %q (FILLED must not be remapped)", update.Status, types.StatusFilled)
	}
}

func TestNormalizeDropsEventsForOtherContracts(t *testing.T) {
	n := NewNormalizer("c1", types.Sell)

	_, ok := n.Normalize(RawOrderEvent{ContractID: "other", OrderID: "o1", Status: types.StatusOpen})
	if ok {
		t.Error("Normalize() returned ok=true for a different contract id, want false")
	}
}

func TestNormalizeSuppressesDuplicateOpenReports(t *testing.T) {
	n := NewNormalizer("c1", types.Sell)
	raw := RawOrderEvent{ContractID: "c1", OrderID: "o1", Side: types.Buy, Status: types.StatusOpen}

	_, ok := n.Normalize(raw)
	if !ok {
		t.Fatal("first OPEN report: ok = false, want true")
	}

	_, ok = n.Normalize(raw)
	if ok {
		t.Error("duplicate OPEN report: ok = true, want false")
	}
}

func TestNormalizeReopensOrderIDAfterTerminalStatus(t *testing.T) {
	n := NewNormalizer("c1", types.Sell)
	orderID := "o1"

	if _, ok := n.Normalize(RawOrderEvent{ContractID: "c1", OrderID: orderID, Side: types.Buy, Status: types.StatusOpen}); !ok {
		t.Fatal("first OPEN report: ok = false, want true")
	}
	if _, ok := n.Normalize(RawOrderEvent{ContractID: "c1", OrderID: orderID, Side: types.Buy, Status: types.StatusCanceled}); !ok {
		t.Fatal("CANCELED report: ok = false, want true")
	}
	if _, ok := n.Normalize(RawOrderEvent{ContractID: "c1", OrderID: orderID, Side: types.Buy, Status: types.StatusOpen}); !ok {
		t.Error("OPEN report after a terminal status freed the order id: ok = false, want true")
	}
}
