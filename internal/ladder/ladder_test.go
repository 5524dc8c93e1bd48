package ladder

import (
	"testing"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func lvl(price, qty string) Level {
	return Level{Price: d(price), Quantity: d(qty)}
}

func intPtr(v int) *int {
	return &v
}

func TestToLadder_FullDepthIsVerbatim(t *testing.T) {
	n := New(DefaultConfig())
	snap := &Snapshot{
		Bids: []Level{lvl("0.55", "10"), lvl("0.54", "20"), lvl("0.53", "5"), lvl("0.50", "1")},
		Asks: []Level{lvl("0.57", "8"), lvl("0.58", "3"), lvl("0.60", "9")},
	}

	got := n.ToLadder(snap, 3, Anchor{})

	if len(got.Bids) != 3 || len(got.Asks) != 3 {
		t.Fatalf("depth = (%d, %d), want (3, 3)", len(got.Bids), len(got.Asks))
	}
	for i := 0; i < 3; i++ {
		if got.Bids[i] != snap.Bids[i] {
			t.Errorf("Bids[%d] = %+v, want %+v", i, got.Bids[i], snap.Bids[i])
		}
		if got.Asks[i] != snap.Asks[i] {
			t.Errorf("Asks[%d] = %+v, want %+v", i, got.Asks[i], snap.Asks[i])
		}
	}
	if got.Synthetic() != 0 {
		t.Errorf("Synthetic() = %d, want 0", got.Synthetic())
	}
}

func TestToLadder_EmptySideIsFullySynthetic(t *testing.T) {
	n := New(DefaultConfig())
	anchor := Anchor{BestBid: d("0.45"), BestAsk: d("0.55"), Quantity: d("10")}

	for _, depth := range []int{10, 20, 40} {
		got := n.ToLadder(&Snapshot{}, depth, anchor)

		if len(got.Bids) != depth || len(got.Asks) != depth {
			t.Fatalf("depth %d: got (%d, %d) levels", depth, len(got.Bids), len(got.Asks))
		}
		if !got.Bids[0].Price.Equal(d("0.45")) || !got.Asks[0].Price.Equal(d("0.55")) {
			t.Errorf("depth %d: first levels = (%s, %s), want anchor (0.45, 0.55)",
				depth, got.Bids[0].Price, got.Asks[0].Price)
		}

		for i := 1; i < depth; i++ {
			if !got.Bids[i].Price.LessThan(got.Bids[i-1].Price) {
				t.Errorf("depth %d: bid prices not strictly descending at %d: %s then %s",
					depth, i, got.Bids[i-1].Price, got.Bids[i].Price)
			}
			if !got.Asks[i].Price.GreaterThan(got.Asks[i-1].Price) {
				t.Errorf("depth %d: ask prices not strictly ascending at %d: %s then %s",
					depth, i, got.Asks[i-1].Price, got.Asks[i].Price)
			}
			if got.Bids[i].Quantity.LessThan(got.Bids[i-1].Quantity) {
				t.Errorf("depth %d: bid quantity decreased at %d", depth, i)
			}
			if got.Asks[i].Quantity.LessThan(got.Asks[i-1].Quantity) {
				t.Errorf("depth %d: ask quantity decreased at %d", depth, i)
			}
		}

		if got.Synthetic() != 2*depth {
			t.Errorf("depth %d: Synthetic() = %d, want %d", depth, got.Synthetic(), 2*depth)
		}
	}
}

func TestToLadder_ExtendsFromLastRealLevel(t *testing.T) {
	n := New(DefaultConfig())
	snap := &Snapshot{
		Bids: []Level{lvl("0.50", "100"), lvl("0.48", "50")},
		Asks: []Level{lvl("0.52", "10")},
	}

	got := n.ToLadder(snap, 4, Anchor{})

	wantBids := []Level{
		lvl("0.50", "100"),
		lvl("0.48", "50"),
		{Price: d("0.47"), Quantity: d("60"), Synthetic: true},
		{Price: d("0.46"), Quantity: d("72"), Synthetic: true},
	}
	wantAsks := []Level{
		lvl("0.52", "10"),
		{Price: d("0.53"), Quantity: d("12"), Synthetic: true},
		{Price: d("0.54"), Quantity: d("14.4"), Synthetic: true},
		{Price: d("0.55"), Quantity: d("17.28"), Synthetic: true},
	}

	assertLevels(t, "bids", got.Bids, wantBids)
	assertLevels(t, "asks", got.Asks, wantAsks)
}

func TestToLadder_NilSnapshot(t *testing.T) {
	n := New(DefaultConfig())
	got := n.ToLadder(nil, 5, AnchorFromCents(intPtr(40), nil))

	if len(got.Bids) != 5 || len(got.Asks) != 5 {
		t.Fatalf("depth = (%d, %d), want (5, 5)", len(got.Bids), len(got.Asks))
	}
	if !got.Bids[0].Price.Equal(d("0.4")) {
		t.Errorf("best bid = %s, want 0.4", got.Bids[0].Price)
	}
	if !got.Asks[0].Price.Equal(d("0.5")) {
		t.Errorf("best ask = %s, want 0.5 (missing price default)", got.Asks[0].Price)
	}
	if !got.Bids[0].Quantity.Equal(d("100")) {
		t.Errorf("base quantity = %s, want 100", got.Bids[0].Quantity)
	}
}

func TestToLadder_ClampsPrices(t *testing.T) {
	n := New(DefaultConfig())
	snap := &Snapshot{
		Bids: []Level{lvl("0.02", "1")},
		Asks: []Level{lvl("0.99", "1")},
	}

	got := n.ToLadder(snap, 5, Anchor{})

	for _, l := range append(got.Bids, got.Asks...) {
		if l.Price.LessThan(decimal.Zero) || l.Price.GreaterThan(decimal.NewFromInt(1)) {
			t.Errorf("price %s outside [0,1]", l.Price)
		}
	}
	if !got.Bids[4].Price.Equal(decimal.Zero) {
		t.Errorf("deepest bid = %s, want 0", got.Bids[4].Price)
	}
	if !got.Asks[4].Price.Equal(decimal.NewFromInt(1)) {
		t.Errorf("deepest ask = %s, want 1", got.Asks[4].Price)
	}
}

func TestToLadder_ResortsAndDedupes(t *testing.T) {
	n := New(DefaultConfig())
	snap := &Snapshot{
		Bids: []Level{lvl("0.40", "1"), lvl("0.45", "2"), lvl("0.45", "9"), lvl("0.42", "3")},
		Asks: []Level{lvl("0.60", "1"), lvl("0.55", "2")},
	}

	got := n.ToLadder(snap, 2, Anchor{})

	assertLevels(t, "bids", got.Bids, []Level{lvl("0.45", "2"), lvl("0.42", "3")})
	assertLevels(t, "asks", got.Asks, []Level{lvl("0.55", "2"), lvl("0.60", "1")})

	if !snap.Bids[0].Price.Equal(d("0.40")) {
		t.Error("input snapshot was mutated")
	}
}

func TestToLadder_NonPositiveDepth(t *testing.T) {
	n := New(DefaultConfig())
	got := n.ToLadder(&Snapshot{Bids: []Level{lvl("0.5", "1")}}, 0, Anchor{})
	if len(got.Bids) != 0 || len(got.Asks) != 0 {
		t.Errorf("depth 0 ladder = %+v, want empty", got)
	}
}

func TestNew_FillsZeroConfig(t *testing.T) {
	n := New(Config{})
	def := DefaultConfig()
	if !n.cfg.Tick.Equal(def.Tick) || !n.cfg.Growth.Equal(def.Growth) {
		t.Errorf("New(Config{}) = %+v, want defaults", n.cfg)
	}
}

func TestProbabilityFromCents(t *testing.T) {
	tests := []struct {
		name  string
		cents *int
		want  string
	}{
		{"midpoint", intPtr(50), "0.5"},
		{"missing", nil, "0.5"},
		{"above range", intPtr(150), "1"},
		{"below range", intPtr(-5), "0"},
		{"zero", intPtr(0), "0"},
		{"full", intPtr(100), "1"},
		{"cent", intPtr(37), "0.37"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ProbabilityFromCents(tt.cents)
			if !got.Equal(d(tt.want)) {
				t.Errorf("ProbabilityFromCents() = %s, want %s", got, tt.want)
			}
		})
	}
}

func assertLevels(t *testing.T, name string, got, want []Level) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("%s: len = %d, want %d", name, len(got), len(want))
	}
	for i := range want {
		if !got[i].Price.Equal(want[i].Price) || !got[i].Quantity.Equal(want[i].Quantity) || got[i].Synthetic != want[i].Synthetic {
			t.Errorf("%s[%d] = {%s %s %v}, want {%s %s %v}", name, i,
				got[i].Price, got[i].Quantity, got[i].Synthetic,
				want[i].Price, want[i].Quantity, want[i].Synthetic)
		}
	}
}
