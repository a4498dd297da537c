package labels

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault_Lookup(t *testing.T) {
	r := Default()

	tests := []struct {
		name     string
		address  string
		found    bool
		category Category
	}{
		{"binance lowercase", "0x28c6c06298d514db089934071355e5743bf21d60", true, CategoryExchange},
		{"binance checksummed", "0x28C6c06298d514Db089934071355E5743bf21d60", true, CategoryExchange},
		{"uniswap router", "0x7a250d5630b4cf539739df2c5dacb4c659f2488d", true, CategoryDeFi},
		{"unknown", "0x1111111111111111111111111111111111111111", false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, ok := r.Lookup(tt.address)
			if ok != tt.found {
				t.Fatalf("expected found=%v, got %v", tt.found, ok)
			}
			if ok && l.Category != tt.category {
				t.Errorf("expected category %s, got %s", tt.category, l.Category)
			}
		})
	}
}

func TestRegistry_IsExchange(t *testing.T) {
	r := Default()
	if !r.IsExchange("0x71660c4005ba85c37ccec55d0c4493e66fe775d3") {
		t.Error("expected coinbase to be an exchange")
	}
	if r.IsExchange("0xe592427a0aece92de3edee1f18e0157c05861564") {
		t.Error("expected uniswap not to be an exchange")
	}
}

func TestRegistry_WithDoesNotMutateBase(t *testing.T) {
	base := Default()
	before := base.Len()

	extended := base.With(map[string]Label{
		"0xABCDEFabcdefABCDEFabcdefABCDEFabcdefABCD": {Name: "Desk", Category: CategoryExchange},
	})

	if base.Len() != before {
		t.Errorf("base registry changed: %d -> %d", before, base.Len())
	}
	if extended.Len() != before+1 {
		t.Errorf("expected %d entries, got %d", before+1, extended.Len())
	}
	if _, ok := extended.Lookup("0xabcdefabcdefabcdefabcdefabcdefabcdefabcd"); !ok {
		t.Error("expected overlay entry to be found case-insensitively")
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "labels.yaml")
	content := `labels:
  - address: "0x9999999999999999999999999999999999999999"
    name: "OTC Desk"
    category: exchange
  - address: "0x7a250d5630b4cf539739df2c5dacb4c659f2488d"
    name: "Uniswap Renamed"
    category: defi
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write labels file: %v", err)
	}

	r, err := LoadFile(path, Default())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	l, ok := r.Lookup("0x9999999999999999999999999999999999999999")
	if !ok || l.Name != "OTC Desk" || l.Category != CategoryExchange {
		t.Errorf("unexpected overlay label: %+v (found=%v)", l, ok)
	}
	l, _ = r.Lookup("0x7a250d5630b4cf539739df2c5dacb4c659f2488d")
	if l.Name != "Uniswap Renamed" {
		t.Errorf("expected overlay to replace default name, got %s", l.Name)
	}
}

func TestLoadFile_InvalidCategory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "labels.yaml")
	content := `labels:
  - address: "0x9999999999999999999999999999999999999999"
    name: "Mystery"
    category: mixer
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write labels file: %v", err)
	}

	if _, err := LoadFile(path, Default()); err == nil {
		t.Error("expected error for unknown category")
	}
}

func TestLoadFile_Missing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"), Default()); err == nil {
		t.Error("expected error for missing file")
	}
}
