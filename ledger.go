package main

import (
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrAssetExists  error = errors.New("asset already exists")
	ErrUnknownAsset error = errors.New("unknown asset")
	ErrNotOwner     error = errors.New("transfer from non-owner")
)

// AssetRecord is one minted token: identifier, current owner, and the metadata URI
// fixed at creation.
type AssetRecord struct {
	TokenID *big.Int       `json:"tokenId"`
	Owner   common.Address `json:"owner"`
	URI     string         `json:"uri"`
}

// AssetLedger stores asset records and enforces per-token uniqueness. Create is the
// single serialization point that makes a voucher single-use: the first redemption
// consumes the token ID, every later attempt hits ErrAssetExists.
type AssetLedger struct {
	mu      sync.RWMutex
	records map[string]*AssetRecord
}

func NewAssetLedger() *AssetLedger {
	return &AssetLedger{records: make(map[string]*AssetRecord)}
}

// Create materializes an asset with its initial owner. Fails if a record for
// tokenID already exists. The existence check and the insert happen under one
// lock so concurrent creates of the same token cannot both pass.
func (ledger *AssetLedger) Create(tokenID *big.Int, initialOwner common.Address, uri string) error {
	key := tokenID.String()

	ledger.mu.Lock()
	defer ledger.mu.Unlock()

	if _, ok := ledger.records[key]; ok {
		return fmt.Errorf("%w: token %s", ErrAssetExists, key)
	}

	ledger.records[key] = &AssetRecord{
		TokenID: new(big.Int).Set(tokenID),
		Owner:   initialOwner,
		URI:     uri,
	}
	return nil
}

// Transfer moves ownership of tokenID from from to to. Fails unless from is the
// current owner.
func (ledger *AssetLedger) Transfer(tokenID *big.Int, from, to common.Address) error {
	key := tokenID.String()

	ledger.mu.Lock()
	defer ledger.mu.Unlock()

	record, ok := ledger.records[key]
	if !ok {
		return fmt.Errorf("%w: token %s", ErrUnknownAsset, key)
	}
	if record.Owner != from {
		return fmt.Errorf("%w: token %s is not owned by %s", ErrNotOwner, key, from.Hex())
	}

	record.Owner = to
	return nil
}

func (ledger *AssetLedger) OwnerOf(tokenID *big.Int) (common.Address, error) {
	ledger.mu.RLock()
	defer ledger.mu.RUnlock()

	record, ok := ledger.records[tokenID.String()]
	if !ok {
		return common.Address{}, fmt.Errorf("%w: token %s", ErrUnknownAsset, tokenID.String())
	}
	return record.Owner, nil
}

func (ledger *AssetLedger) MetadataOf(tokenID *big.Int) (string, error) {
	ledger.mu.RLock()
	defer ledger.mu.RUnlock()

	record, ok := ledger.records[tokenID.String()]
	if !ok {
		return "", fmt.Errorf("%w: token %s", ErrUnknownAsset, tokenID.String())
	}
	return record.URI, nil
}
