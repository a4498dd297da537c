package bootstrap

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/bimakw/chain-analytics/internal/config"
	"github.com/bimakw/chain-analytics/internal/domain/labels"
)

func testConfig() *config.Config {
	return &config.Config{
		Ethereum: config.EthereumConfig{
			ChainID:          1,
			ChainName:        "Ethereum",
			NativeSymbol:     "ETH",
			APIURL:           "http://127.0.0.1:0/api",
			PageSize:         10000,
			BlockTimeSeconds: 12.05,
		},
		Search: config.SearchConfig{
			DefaultTimeframeDays:     180,
			SelfWhaleThresholdUSD:    10000,
			DefaultWhaleThresholdUSD: 50000,
			TopCounterparties:        10,
			CounterpartyRatio:        2,
		},
	}
}

func TestNewEngine_MemoryOnly(t *testing.T) {
	engine, err := NewEngine(testConfig(), zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer engine.Close()

	if engine.Search == nil || engine.Client == nil {
		t.Fatal("expected a wired search service and client")
	}
	if engine.Redis != nil {
		t.Error("expected no redis client when the shared tier is disabled")
	}
	if engine.Labels.Len() != labels.Default().Len() {
		t.Errorf("expected the default labels, got %d entries", engine.Labels.Len())
	}
	if engine.Client.DataSource() != "Ethereum (http://127.0.0.1:0/api)" {
		t.Errorf("unexpected data source %s", engine.Client.DataSource())
	}
}

func TestNewEngine_LabelsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "labels.yaml")
	content := `labels:
  - address: "0x9999999999999999999999999999999999999999"
    name: "OTC Desk"
    category: exchange
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write labels file: %v", err)
	}

	cfg := testConfig()
	cfg.Search.LabelsFile = path

	engine, err := NewEngine(cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer engine.Close()

	if !engine.Labels.IsExchange("0x9999999999999999999999999999999999999999") {
		t.Error("expected the overlay label to be loaded")
	}
}

func TestNewEngine_MissingLabelsFile(t *testing.T) {
	cfg := testConfig()
	cfg.Search.LabelsFile = filepath.Join(t.TempDir(), "missing.yaml")

	if _, err := NewEngine(cfg, zap.NewNop()); err == nil {
		t.Error("expected an error for a missing labels file")
	}
}
