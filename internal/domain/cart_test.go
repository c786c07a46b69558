package domain

import "testing"

func TestCartSubtotalRecomputesFromLines(t *testing.T) {
	cart := Cart{
		Lines: []CartLine{
			{ProductID: 42, UnitPrice: 8_999_000, Quantity: 2},
			{ProductID: 7, UnitPrice: 120_000, Quantity: 3},
			{ProductID: 9, UnitPrice: -10, Quantity: 1},
			{ProductID: 11, UnitPrice: 500, Quantity: 0},
		},
	}

	if got := cart.Subtotal(); got != 18_358_000 {
		t.Fatalf("expected subtotal 18358000, got %d", got)
	}
	if got := cart.ItemCount(); got != 6 {
		t.Fatalf("expected item count 6, got %d", got)
	}
}

func TestCartFindLine(t *testing.T) {
	cart := Cart{Lines: []CartLine{{ProductID: 42}, {ProductID: 7}}}

	if idx := cart.FindLine(7); idx != 1 {
		t.Fatalf("expected index 1, got %d", idx)
	}
	if idx := cart.FindLine(999); idx != -1 {
		t.Fatalf("expected -1 for absent product, got %d", idx)
	}
}

func TestCartCloneLinesIsDefensive(t *testing.T) {
	cart := Cart{Lines: []CartLine{{ProductID: 42, Quantity: 1}}}

	clone := cart.CloneLines()
	clone[0].Quantity = 99

	if cart.Lines[0].Quantity != 1 {
		t.Fatalf("expected original untouched, got %d", cart.Lines[0].Quantity)
	}

	empty := Cart{}
	if got := empty.CloneLines(); got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil clone, got %v", got)
	}
}

func TestParseMergeStrategy(t *testing.T) {
	cases := map[string]MergeStrategy{
		"server": MergeServerWins,
		"LOCAL":  MergeLocalWins,
		" sum ":  MergeSum,
	}
	for input, want := range cases {
		got, err := ParseMergeStrategy(input)
		if err != nil {
			t.Fatalf("ParseMergeStrategy(%q) returned error: %v", input, err)
		}
		if got != want {
			t.Fatalf("ParseMergeStrategy(%q) = %q, want %q", input, got, want)
		}
	}

	if _, err := ParseMergeStrategy("newest"); err == nil {
		t.Fatalf("expected error for unknown strategy")
	}
}

func TestLocalizedTextIsEmpty(t *testing.T) {
	if !(LocalizedText{}).IsEmpty() {
		t.Fatalf("expected empty text")
	}
	if (LocalizedText{Uz: "Smartfon"}).IsEmpty() {
		t.Fatalf("expected non-empty text")
	}
}
