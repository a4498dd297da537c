/*
 * Copyright (c) 2024 Bima Kharisma Wicaksana
 * GitHub: https://github.com/bimakw
 *
 * Licensed under MIT License with Attribution Requirement.
 * See LICENSE file for details.
 */

package ethereum

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/bimakw/chain-analytics/internal/domain/diagnostics"
	"github.com/bimakw/chain-analytics/internal/domain/entities"
	"github.com/bimakw/chain-analytics/internal/infrastructure/httpclient"
	"github.com/bimakw/chain-analytics/internal/infrastructure/metrics"
)

// moralisBackoffKey marks the metadata provider as rate limited in the failed store
const moralisBackoffKey = "moralis_metadata_rate_limit"

func tokenInfoKey(address string) string {
	return "token_info:" + address
}

// metadataResolver is one step of the token metadata waterfall
type metadataResolver interface {
	Name() string
	ResolveMetadata(ctx context.Context, tokenAddress string) (entities.TokenInfo, bool)
}

// GetTokenMetadata resolves a token's identity: cache, known tokens, metadata resolvers, then UNKNOWN/18.
// Every outcome, the fallback included, is cached for the token info TTL.
func (c *Client) GetTokenMetadata(ctx context.Context, tokenAddress string) entities.TokenInfo {
	address := strings.ToLower(tokenAddress)
	key := tokenInfoKey(address)

	if info, ok := c.stores.TokenInfo.Get(ctx, key); ok {
		return info
	}

	if known, ok := c.tokens.Lookup(address); ok {
		c.stores.TokenInfo.Set(ctx, key, known.Info, c.stores.TokenInfoTTL)
		return known.Info
	}

	for _, r := range c.metadataResolvers {
		if info, ok := r.ResolveMetadata(ctx, address); ok {
			info.Address = address
			c.stores.TokenInfo.Set(ctx, key, info, c.stores.TokenInfoTTL)
			return info
		}
	}

	c.logger.Debug("Token metadata unresolved, using fallback", zap.String("token", address))
	diagnostics.Warn(ctx, fmt.Sprintf("metadata for token %s unresolved; treated as %s with %d decimals",
		address, entities.UnknownSymbol, entities.DefaultTokenDecimals))

	fallback := entities.FallbackTokenInfo(address)
	c.stores.TokenInfo.Set(ctx, key, fallback, c.stores.TokenInfoTTL)
	return fallback
}

type moralisMetadata struct {
	Address  string `json:"address"`
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals string `json:"decimals"`
}

// moralisResolver queries the Moralis ERC-20 metadata endpoint.
// Once Moralis reports rate limiting it is skipped for the configured backoff window.
type moralisResolver struct {
	client *Client
}

func (r *moralisResolver) Name() string { return providerMoralis }

func (r *moralisResolver) ResolveMetadata(ctx context.Context, tokenAddress string) (entities.TokenInfo, bool) {
	c := r.client
	if _, limited := c.stores.Failed.Get(ctx, moralisBackoffKey); limited {
		return entities.TokenInfo{}, false
	}

	var resp []moralisMetadata
	err := c.http.GetJSON(ctx, strings.TrimRight(c.prices.MoralisURL, "/")+"/erc20/metadata",
		map[string]string{
			"chain":     c.prices.MoralisChain,
			"addresses": tokenAddress,
		},
		map[string]string{
			"accept":    "application/json",
			"X-API-Key": c.prices.MoralisKey,
		},
		&resp,
	)
	if err != nil {
		c.track(ctx, providerMoralis, metrics.OutcomeError)
		if status := httpclient.StatusCode(err); status == 401 || status == 429 {
			c.logger.Warn("Metadata provider rate limited, skipping it for a while",
				zap.Int("status", status),
				zap.Duration("backoff", c.prices.MetadataBackoff),
			)
			c.stores.Failed.Set(ctx, moralisBackoffKey, true, c.prices.MetadataBackoff)
		}
		return entities.TokenInfo{}, false
	}

	if len(resp) == 0 || resp[0].Symbol == "" {
		c.track(ctx, providerMoralis, metrics.OutcomeEmpty)
		return entities.TokenInfo{}, false
	}
	c.track(ctx, providerMoralis, metrics.OutcomeSuccess)

	decimals, err := strconv.Atoi(resp[0].Decimals)
	if err != nil || decimals < 0 {
		decimals = entities.DefaultTokenDecimals
	}

	return entities.TokenInfo{
		Symbol:   strings.ToUpper(resp[0].Symbol),
		Decimals: decimals,
		Name:     resp[0].Name,
	}, true
}

// ERC-20 function selectors (first 4 bytes of keccak256 hash)
var (
	// name() -> 0x06fdde03
	nameSig = common.FromHex("0x06fdde03")
	// symbol() -> 0x95d89b41
	symbolSig = common.FromHex("0x95d89b41")
	// decimals() -> 0x313ce567
	decimalsSig = common.FromHex("0x313ce567")
)

// onChainResolver reads symbol(), decimals() and name() via eth_call through the ledger proxy
type onChainResolver struct {
	client *Client
}

func (r *onChainResolver) Name() string { return "eth_call" }

func (r *onChainResolver) ResolveMetadata(ctx context.Context, tokenAddress string) (entities.TokenInfo, bool) {
	c := r.client

	symbol, err := r.fetchString(ctx, tokenAddress, symbolSig)
	if err != nil || symbol == "" || strings.HasPrefix(symbol, "0x") {
		c.logger.Debug("Failed to fetch token symbol",
			zap.String("token", tokenAddress),
			zap.Error(err),
		)
		return entities.TokenInfo{}, false
	}

	decimals, err := r.fetchDecimals(ctx, tokenAddress)
	if err != nil {
		c.logger.Debug("Failed to fetch token decimals, using fallback",
			zap.String("token", tokenAddress),
			zap.Error(err),
		)
		decimals = entities.DefaultTokenDecimals
	}

	name, err := r.fetchString(ctx, tokenAddress, nameSig)
	if err != nil {
		name = ""
	}

	return entities.TokenInfo{
		Symbol:   strings.ToUpper(symbol),
		Decimals: decimals,
		Name:     name,
	}, true
}

func (r *onChainResolver) fetchString(ctx context.Context, tokenAddress string, sig []byte) (string, error) {
	result, err := r.client.ethCall(ctx, tokenAddress, sig)
	if err != nil {
		return "", err
	}
	return decodeStringOrBytes32(result)
}

func (r *onChainResolver) fetchDecimals(ctx context.Context, tokenAddress string) (int, error) {
	result, err := r.client.ethCall(ctx, tokenAddress, decimalsSig)
	if err != nil {
		return 0, err
	}
	return decodeDecimals(result)
}

// decodeDecimals reads a uint8 padded to 32 bytes
func decodeDecimals(result []byte) (int, error) {
	if len(result) == 0 {
		return 0, fmt.Errorf("empty result for decimals")
	}
	if len(result) < 32 {
		return 0, fmt.Errorf("invalid decimals response length: %d", len(result))
	}
	v := new(big.Int).SetBytes(result[:32])
	if !v.IsUint64() || v.Uint64() > 77 {
		return 0, fmt.Errorf("implausible decimals: %s", v.String())
	}
	return int(v.Uint64()), nil
}

// decodeStringOrBytes32 decodes a response that could be either:
// 1. ABI-encoded string: offset (32 bytes) + length (32 bytes) + data (padded to 32 bytes)
// 2. bytes32: raw 32 bytes (e.g., MKR token)
func decodeStringOrBytes32(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("empty data")
	}

	if len(data) < 32 {
		return "", fmt.Errorf("data too short: %d bytes", len(data))
	}

	if len(data) >= 64 {
		offset := new(big.Int).SetBytes(data[:32])
		if offset.Uint64() == 32 {
			length := new(big.Int).SetBytes(data[32:64])
			strLen := int(length.Uint64())

			if strLen == 0 {
				return "", nil
			}

			if len(data) >= 64+strLen {
				strData := data[64 : 64+strLen]
				return strings.TrimRight(string(strData), "\x00"), nil
			}
		}
	}

	// bytes32 with trailing null padding
	result := bytes.TrimRight(data[:32], "\x00")

	if isPrintableASCII(result) {
		return string(result), nil
	}

	return "0x" + hex.EncodeToString(data[:32]), nil
}

// isPrintableASCII checks if all bytes are printable ASCII characters
func isPrintableASCII(data []byte) bool {
	for _, b := range data {
		if b < 32 || b > 126 {
			return false
		}
	}
	return len(data) > 0
}
