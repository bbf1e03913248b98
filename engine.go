package main

import (
	"errors"
	"fmt"
	"math/big"
	"os"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
)

var (
	ErrUnauthorizedCreator error = errors.New("voucher signer does not hold the creator capability")
	ErrInsufficientFunds   error = errors.New("payment is below the voucher minimum price")
)

// RedemptionEngine drives the lazy-minting protocol: verify a voucher, check the
// signer's capability and the payment, then create, transfer, and credit as one
// observable step.
//
// A forged signature, a tampered voucher, and a voucher from a legitimately
// unauthorized signer all surface as ErrUnauthorizedCreator. Tampering changes the
// digest, the digest changes the recovered signer, and the recovered signer is not
// in the registry. Collapsing the three cases is intentional: a rejected caller
// learns nothing about which check failed.
type RedemptionEngine struct {
	Name   string
	Symbol string
	Domain SigningDomain

	Creators *CreatorRegistry
	Assets   *AssetLedger
	Balances *BalanceLedger
	Events   EventSink

	issuer *VoucherIssuer

	locksMu    sync.Mutex
	tokenLocks map[string]*sync.Mutex
}

func NewRedemptionEngine(name, symbol string, domain SigningDomain, initialCreator common.Address, sink EventSink) *RedemptionEngine {
	return &RedemptionEngine{
		Name:       name,
		Symbol:     symbol,
		Domain:     domain,
		Creators:   NewCreatorRegistry(initialCreator),
		Assets:     NewAssetLedger(),
		Balances:   NewBalanceLedger(),
		Events:     sink,
		tokenLocks: make(map[string]*sync.Mutex),
	}
}

// ConfigureFromEnv builds the engine, its signing domain, and its in-process
// voucher issuer from LAZYMINT_* environment variables. The issuer's address
// becomes the initial creator.
func (engine *RedemptionEngine) ConfigureFromEnv() error {
	engine.Name = os.Getenv("LAZYMINT_COLLECTION_NAME")
	if engine.Name == "" {
		return errors.New("LAZYMINT_COLLECTION_NAME must be set")
	}

	engine.Symbol = os.Getenv("LAZYMINT_COLLECTION_SYMBOL")
	if engine.Symbol == "" {
		return errors.New("LAZYMINT_COLLECTION_SYMBOL must be set")
	}

	chainIDRaw := os.Getenv("LAZYMINT_CHAIN_ID")
	if chainIDRaw == "" {
		return errors.New("LAZYMINT_CHAIN_ID must be set")
	}
	chainID, chainIDParsed := new(big.Int).SetString(chainIDRaw, 0)
	if !chainIDParsed {
		return fmt.Errorf("LAZYMINT_CHAIN_ID must be a valid integer, got %s", chainIDRaw)
	}

	var zeroAddress common.Address

	verifyingContractRaw := os.Getenv("LAZYMINT_VERIFYING_CONTRACT")
	verifyingContract := common.HexToAddress(verifyingContractRaw)
	if verifyingContract.Hex() == zeroAddress.Hex() {
		return errors.New("LAZYMINT_VERIFYING_CONTRACT must be set to a non-zero Ethereum address")
	}

	engine.Domain = SigningDomain{
		Name:              EIP712DomainName,
		Version:           EIP712DomainVersion,
		ChainID:           chainID,
		VerifyingContract: verifyingContract,
	}

	privateKey, keyErr := SigningKeyFromEnv()
	if keyErr != nil {
		return keyErr
	}

	issuer, issuerErr := NewVoucherIssuer(privateKey, engine.Domain)
	if issuerErr != nil {
		return issuerErr
	}
	engine.issuer = issuer

	engine.Creators = NewCreatorRegistry(crypto.PubkeyToAddress(privateKey.PublicKey))
	engine.Assets = NewAssetLedger()
	engine.Balances = NewBalanceLedger()
	if engine.Events == nil {
		engine.Events = NewLogSink(zlog)
	}
	engine.tokenLocks = make(map[string]*sync.Mutex)

	return nil
}

// Redeem validates a signed voucher and, if every check passes, mints the asset
// to the signer, transfers it to the redeemer, and credits the signer's pending
// balance with the payment. Returns the token ID of the minted asset.
//
// The mutation steps run under a per-token lock, so two redemptions of the same
// voucher serialize and exactly one wins; redemptions of distinct tokens do not
// contend. On any failure no partial state remains.
func (engine *RedemptionEngine) Redeem(redeemer common.Address, voucher *Voucher, payment *big.Int) (*big.Int, error) {
	digest, digestErr := VoucherDigest(voucher, engine.Domain)
	if digestErr != nil {
		return nil, digestErr
	}

	signer, recoverErr := RecoverSigner(digest, voucher.Signature)
	if recoverErr != nil {
		return nil, recoverErr
	}

	if !engine.Creators.IsCreator(signer) {
		return nil, ErrUnauthorizedCreator
	}

	if payment == nil || payment.Cmp(voucher.MinPrice) < 0 {
		return nil, ErrInsufficientFunds
	}

	unlock := engine.lockToken(voucher.TokenID)
	defer unlock()

	// First owner on record is the signer, so provenance starts with the creator.
	if createErr := engine.Assets.Create(voucher.TokenID, signer, voucher.URI); createErr != nil {
		return nil, createErr
	}

	if transferErr := engine.Assets.Transfer(voucher.TokenID, signer, redeemer); transferErr != nil {
		return nil, transferErr
	}

	if creditErr := engine.Balances.Credit(signer, payment); creditErr != nil {
		return nil, creditErr
	}

	engine.Events.EmitMint(MintEvent{
		ID:       uuid.New(),
		Redeemer: redeemer,
		TokenID:  new(big.Int).Set(voucher.TokenID),
		URI:      voucher.URI,
		MintedAt: time.Now().UTC(),
	})

	return new(big.Int).Set(voucher.TokenID), nil
}

func (engine *RedemptionEngine) Issuer() *VoucherIssuer {
	return engine.issuer
}

func (engine *RedemptionEngine) lockToken(tokenID *big.Int) func() {
	key := tokenID.String()

	engine.locksMu.Lock()
	lock, ok := engine.tokenLocks[key]
	if !ok {
		lock = &sync.Mutex{}
		engine.tokenLocks[key] = lock
	}
	engine.locksMu.Unlock()

	lock.Lock()
	return lock.Unlock
}
