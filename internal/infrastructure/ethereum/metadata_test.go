/*
 * Copyright (c) 2024 Bima Kharisma Wicaksana
 * GitHub: https://github.com/bimakw
 *
 * Licensed under MIT License with Attribution Requirement.
 * See LICENSE file for details.
 */

package ethereum

import (
	"context"
	"encoding/hex"
	"math/big"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/bimakw/chain-analytics/internal/config"
	"github.com/bimakw/chain-analytics/internal/domain/entities"
)

// abiString encodes s the way a string-returning view function does
func abiString(s string) []byte {
	out := common.LeftPadBytes(big.NewInt(32).Bytes(), 32)
	out = append(out, common.LeftPadBytes(big.NewInt(int64(len(s))).Bytes(), 32)...)
	if len(s) > 0 {
		padded := (len(s) + 31) / 32 * 32
		out = append(out, common.RightPadBytes([]byte(s), padded)...)
	}
	return out
}

// bytes32 encodes s the way MKR-era tokens return their symbol
func bytes32(s string) []byte {
	return common.RightPadBytes([]byte(s), 32)
}

func TestDecodeStringOrBytes32(t *testing.T) {
	binary := bytes32("\x01\x02\xfe")

	tests := []struct {
		name     string
		input    []byte
		expected string
		wantErr  bool
	}{
		{name: "abi string", input: abiString("Wrapped Ether"), expected: "Wrapped Ether"},
		{name: "abi string longer than one word", input: abiString("Liquid staked Ether 2.0 (Lido Finance)"), expected: "Liquid staked Ether 2.0 (Lido Finance)"},
		{name: "abi empty string", input: abiString(""), expected: ""},
		{name: "bytes32 symbol", input: bytes32("MKR"), expected: "MKR"},
		{name: "bytes32 name", input: bytes32("Maker"), expected: "Maker"},
		{name: "bytes32 binary falls back to hex", input: binary, expected: "0x" + hex.EncodeToString(binary)},
		{name: "empty input", input: nil, wantErr: true},
		{name: "shorter than a word", input: []byte{0x01, 0x02, 0x03}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := decodeStringOrBytes32(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error but got %q", result)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, result)
			}
		})
	}
}

func TestIsPrintableASCII(t *testing.T) {
	tests := map[string]bool{
		"PEPE":       true,
		"USD-T_v2 ~": true,
		"":           false,
		"MKR\x00":    false,
		"tab\there":  false,
		"del\x7f":    false,
		"\x80\x81":   false,
	}

	for input, expected := range tests {
		if got := isPrintableASCII([]byte(input)); got != expected {
			t.Errorf("isPrintableASCII(%q) = %v, expected %v", input, got, expected)
		}
	}
}

func TestFunctionSelectors(t *testing.T) {
	selectors := map[string]struct {
		selector []byte
		expected string
	}{
		"name()":     {nameSig, "06fdde03"},
		"symbol()":   {symbolSig, "95d89b41"},
		"decimals()": {decimalsSig, "313ce567"},
	}

	for signature, tt := range selectors {
		if got := hex.EncodeToString(tt.selector); got != tt.expected {
			t.Errorf("%s: expected selector %s, got %s", signature, tt.expected, got)
		}
	}
}

func TestGetTokenMetadata_KnownTokenSkipsProviders(t *testing.T) {
	upstream := &fakeUpstream{}
	client := newTestClient(t, upstream, func(_ *config.EthereumConfig, p *config.PricesConfig) {
		p.MoralisKey = "key"
		p.OnChainMetadata = true
	})

	info := client.GetTokenMetadata(context.Background(), "0xdAC17F958D2ee523a2206206994597C13D831ec7")
	if info.Symbol != "USDT" || info.Decimals != 6 {
		t.Errorf("unexpected info %+v", info)
	}
	if upstream.calls.Load() != 0 {
		t.Errorf("expected no upstream calls, got %d", upstream.calls.Load())
	}
}

func TestGetTokenMetadata_Moralis(t *testing.T) {
	var moralisCalls atomic.Int64
	upstream := &fakeUpstream{prices: func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/erc20/metadata" || r.Header.Get("X-API-Key") != "key" {
			http.Error(w, "unexpected", http.StatusBadRequest)
			return
		}
		moralisCalls.Add(1)
		_, _ = w.Write([]byte(`[{"address":"` + r.URL.Query().Get("addresses") + `","name":"Foo Token","symbol":"foo","decimals":"8"}]`))
	}}
	client := newTestClient(t, upstream, func(_ *config.EthereumConfig, p *config.PricesConfig) {
		p.MoralisKey = "key"
	})
	ctx := context.Background()

	info := client.GetTokenMetadata(ctx, tokenA)
	if info.Symbol != "FOO" || info.Decimals != 8 || info.Name != "Foo Token" || info.Address != tokenA {
		t.Errorf("unexpected info %+v", info)
	}

	client.GetTokenMetadata(ctx, "0x"+strings.ToUpper(tokenA[2:]))
	client.GetTokenMetadata(ctx, tokenA)
	if moralisCalls.Load() != 1 {
		t.Errorf("expected metadata to be cached, got %d calls", moralisCalls.Load())
	}
}

func TestGetTokenMetadata_RateLimitedProviderIsSkipped(t *testing.T) {
	var moralisCalls atomic.Int64
	upstream := &fakeUpstream{prices: func(w http.ResponseWriter, r *http.Request) {
		moralisCalls.Add(1)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}}
	client := newTestClient(t, upstream, func(_ *config.EthereumConfig, p *config.PricesConfig) {
		p.MoralisKey = "key"
	})
	ctx, rec := withRecorder()

	first := client.GetTokenMetadata(ctx, tokenA)
	second := client.GetTokenMetadata(ctx, tokenB)

	if !first.IsUnknown() || !second.IsUnknown() {
		t.Errorf("expected fallbacks, got %+v and %+v", first, second)
	}
	if second.Decimals != entities.DefaultTokenDecimals {
		t.Errorf("expected default decimals, got %d", second.Decimals)
	}
	if moralisCalls.Load() != 1 {
		t.Errorf("provider should be skipped after a 401, got %d calls", moralisCalls.Load())
	}
	if len(rec.Snapshot().Warnings) != 2 {
		t.Errorf("expected one warning per unresolved token, got %v", rec.Snapshot().Warnings)
	}
}

func TestGetTokenMetadata_OnChain(t *testing.T) {
	const (
		abcString = "0000000000000000000000000000000000000000000000000000000000000020" +
			"0000000000000000000000000000000000000000000000000000000000000003" +
			"4142430000000000000000000000000000000000000000000000000000000000"
		sixDecimals = "0000000000000000000000000000000000000000000000000000000000000006"
		nameBytes32 = "4162632070726f746f636f6c0000000000000000000000000000000000000000"
	)

	var calls atomic.Int64
	upstream := &fakeUpstream{ledger: func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		var result string
		switch r.URL.Query().Get("data") {
		case "0x95d89b41":
			result = abcString
		case "0x313ce567":
			result = sixDecimals
		case "0x06fdde03":
			result = nameBytes32
		}
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":"0x` + result + `"}`))
	}}
	client := newTestClient(t, upstream, func(_ *config.EthereumConfig, p *config.PricesConfig) {
		p.OnChainMetadata = true
	})

	info := client.GetTokenMetadata(context.Background(), tokenA)
	if info.Symbol != "ABC" || info.Decimals != 6 || info.Name != "Abc protocol" {
		t.Errorf("unexpected info %+v", info)
	}
	if calls.Load() != 3 {
		t.Errorf("expected symbol, decimals and name calls, got %d", calls.Load())
	}
}

func TestDecodeDecimals(t *testing.T) {
	six := common.LeftPadBytes([]byte{6}, 32)
	huge := append([]byte{0xff}, six[1:]...)

	if d, err := decodeDecimals(six); err != nil || d != 6 {
		t.Errorf("expected 6, got %d (%v)", d, err)
	}
	if _, err := decodeDecimals(huge); err == nil {
		t.Error("expected implausible decimals to fail")
	}
	if _, err := decodeDecimals(nil); err == nil {
		t.Error("expected empty result to fail")
	}
}
