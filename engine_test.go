package main

import (
	"crypto/ecdsa"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type engineFixture struct {
	engine  *RedemptionEngine
	issuer  *VoucherIssuer
	creator common.Address
	sink    *ChannelSink
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	return newEngineFixtureWithKey(t, key)
}

func newEngineFixtureWithKey(t *testing.T, key *ecdsa.PrivateKey) *engineFixture {
	t.Helper()

	domain := testSigningDomain()
	issuer, err := NewVoucherIssuer(key, domain)
	require.NoError(t, err)

	sink := NewChannelSink(16)
	engine := NewRedemptionEngine("Example Collection", "EXC", domain, issuer.Address(), sink)

	return &engineFixture{
		engine:  engine,
		issuer:  issuer,
		creator: issuer.Address(),
		sink:    sink,
	}
}

func TestRedeemHappyPath(t *testing.T) {
	fixture := newEngineFixture(t)

	voucher, err := fixture.issuer.IssueVoucher(big.NewInt(1), big.NewInt(1), "https://example/1.json")
	require.NoError(t, err)

	tokenID, err := fixture.engine.Redeem(addrRedeemer, voucher, big.NewInt(1))
	require.NoError(t, err)
	assert.Equal(t, "1", tokenID.String())

	owner, err := fixture.engine.Assets.OwnerOf(big.NewInt(1))
	require.NoError(t, err)
	assert.Equal(t, addrRedeemer, owner)

	uri, err := fixture.engine.Assets.MetadataOf(big.NewInt(1))
	require.NoError(t, err)
	assert.Equal(t, "https://example/1.json", uri)

	assert.Equal(t, "1", fixture.engine.Balances.BalanceOf(fixture.creator).String())

	select {
	case event := <-fixture.sink.Events:
		assert.Equal(t, addrRedeemer, event.Redeemer)
		assert.Equal(t, "1", event.TokenID.String())
		assert.Equal(t, "https://example/1.json", event.URI)
	default:
		t.Fatal("expected a mint event")
	}
}

func TestRedeemSameVoucherTwice(t *testing.T) {
	fixture := newEngineFixture(t)

	voucher, err := fixture.issuer.IssueVoucher(big.NewInt(1), big.NewInt(1), "https://example/1.json")
	require.NoError(t, err)

	_, err = fixture.engine.Redeem(addrRedeemer, voucher, big.NewInt(1))
	require.NoError(t, err)

	_, err = fixture.engine.Redeem(addrStranger, voucher, big.NewInt(1))
	assert.ErrorIs(t, err, ErrAssetExists)

	// Ownership must remain with the first redeemer, and the creator must not be
	// credited twice.
	owner, err := fixture.engine.Assets.OwnerOf(big.NewInt(1))
	require.NoError(t, err)
	assert.Equal(t, addrRedeemer, owner)
	assert.Equal(t, "1", fixture.engine.Balances.BalanceOf(fixture.creator).String())
}

func TestRedeemTamperedVoucher(t *testing.T) {
	fixture := newEngineFixture(t)

	voucher, err := fixture.issuer.IssueVoucher(big.NewInt(1), big.NewInt(100), "https://example/1.json")
	require.NoError(t, err)

	// Lowering the price after signing changes the digest and therefore the
	// recovered signer.
	tampered := &Voucher{
		TokenID:   voucher.TokenID,
		MinPrice:  big.NewInt(1),
		URI:       voucher.URI,
		Signature: voucher.Signature,
	}

	_, err = fixture.engine.Redeem(addrRedeemer, tampered, big.NewInt(1000))
	assert.ErrorIs(t, err, ErrUnauthorizedCreator)

	tampered = &Voucher{
		TokenID:   voucher.TokenID,
		MinPrice:  voucher.MinPrice,
		URI:       "https://example/evil.json",
		Signature: voucher.Signature,
	}

	_, err = fixture.engine.Redeem(addrRedeemer, tampered, big.NewInt(1000))
	assert.ErrorIs(t, err, ErrUnauthorizedCreator)

	// No state must remain from rejected redemptions.
	_, err = fixture.engine.Assets.OwnerOf(big.NewInt(1))
	assert.ErrorIs(t, err, ErrUnknownAsset)
	assert.Equal(t, "0", fixture.engine.Balances.BalanceOf(fixture.creator).String())
}

func TestRedeemUnauthorizedSigner(t *testing.T) {
	fixture := newEngineFixture(t)

	strangerKey, err := crypto.GenerateKey()
	require.NoError(t, err)

	strangerIssuer, err := NewVoucherIssuer(strangerKey, fixture.engine.Domain)
	require.NoError(t, err)

	voucher, err := strangerIssuer.IssueVoucher(big.NewInt(1), big.NewInt(1), "https://example/1.json")
	require.NoError(t, err)

	_, err = fixture.engine.Redeem(addrRedeemer, voucher, big.NewInt(1000))
	assert.ErrorIs(t, err, ErrUnauthorizedCreator)
}

func TestRedeemGrantedSignerAccepted(t *testing.T) {
	fixture := newEngineFixture(t)

	secondKey, err := crypto.GenerateKey()
	require.NoError(t, err)

	secondIssuer, err := NewVoucherIssuer(secondKey, fixture.engine.Domain)
	require.NoError(t, err)

	voucher, err := secondIssuer.IssueVoucher(big.NewInt(2), big.NewInt(1), "https://example/2.json")
	require.NoError(t, err)

	_, err = fixture.engine.Redeem(addrRedeemer, voucher, big.NewInt(1))
	assert.ErrorIs(t, err, ErrUnauthorizedCreator)

	require.NoError(t, fixture.engine.Creators.Grant(fixture.creator, secondIssuer.Address()))

	_, err = fixture.engine.Redeem(addrRedeemer, voucher, big.NewInt(1))
	require.NoError(t, err)
	assert.Equal(t, "1", fixture.engine.Balances.BalanceOf(secondIssuer.Address()).String())
}

func TestRedeemPaymentBoundaries(t *testing.T) {
	fixture := newEngineFixture(t)

	voucher, err := fixture.issuer.IssueVoucher(big.NewInt(1), big.NewInt(10), "https://example/1.json")
	require.NoError(t, err)

	_, err = fixture.engine.Redeem(addrRedeemer, voucher, big.NewInt(9))
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	// Payment exactly equal to the minimum succeeds.
	_, err = fixture.engine.Redeem(addrRedeemer, voucher, big.NewInt(10))
	require.NoError(t, err)
	assert.Equal(t, "10", fixture.engine.Balances.BalanceOf(fixture.creator).String())

	// minPrice of zero is always satisfied.
	free, err := fixture.issuer.IssueVoucher(big.NewInt(2), big.NewInt(0), "https://example/2.json")
	require.NoError(t, err)

	_, err = fixture.engine.Redeem(addrRedeemer, free, big.NewInt(0))
	require.NoError(t, err)
}

func TestRedeemMalformedSignature(t *testing.T) {
	fixture := newEngineFixture(t)

	voucher := &Voucher{
		TokenID:   big.NewInt(1),
		MinPrice:  big.NewInt(1),
		URI:       "https://example/1.json",
		Signature: []byte{0xde, 0xad, 0xbe, 0xef},
	}

	_, err := fixture.engine.Redeem(addrRedeemer, voucher, big.NewInt(1))
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestRedeemWrongDomain(t *testing.T) {
	fixture := newEngineFixture(t)

	otherDomain := testSigningDomain()
	otherDomain.ChainID = big.NewInt(1)

	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	// Signer holds the capability, but signed for a different network.
	otherIssuer, err := NewVoucherIssuer(key, otherDomain)
	require.NoError(t, err)
	require.NoError(t, fixture.engine.Creators.Grant(fixture.creator, otherIssuer.Address()))

	voucher, err := otherIssuer.IssueVoucher(big.NewInt(1), big.NewInt(1), "https://example/1.json")
	require.NoError(t, err)

	_, err = fixture.engine.Redeem(addrRedeemer, voucher, big.NewInt(1))
	assert.ErrorIs(t, err, ErrUnauthorizedCreator)
}

func TestConcurrentRedemptionsOfSameVoucher(t *testing.T) {
	fixture := newEngineFixture(t)

	voucher, err := fixture.issuer.IssueVoucher(big.NewInt(1), big.NewInt(1), "https://example/1.json")
	require.NoError(t, err)

	const attempts = 16
	errs := make([]error, attempts)

	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			redeemer := common.BigToAddress(big.NewInt(int64(slot + 1)))
			_, errs[slot] = fixture.engine.Redeem(redeemer, voucher, big.NewInt(1))
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, redeemErr := range errs {
		if redeemErr == nil {
			successes++
		} else {
			assert.ErrorIs(t, redeemErr, ErrAssetExists)
		}
	}
	assert.Equal(t, 1, successes, "exactly one concurrent redemption must win")
	assert.Equal(t, "1", fixture.engine.Balances.BalanceOf(fixture.creator).String())
}

func TestConcurrentRedemptionsOfDistinctVouchers(t *testing.T) {
	fixture := newEngineFixture(t)

	const count = 16
	vouchers := make([]*Voucher, count)
	for i := 0; i < count; i++ {
		voucher, err := fixture.issuer.IssueVoucher(big.NewInt(int64(i+1)), big.NewInt(1), "https://example/token.json")
		require.NoError(t, err)
		vouchers[i] = voucher
	}

	var wg sync.WaitGroup
	errs := make([]error, count)
	for i := 0; i < count; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			_, errs[slot] = fixture.engine.Redeem(addrRedeemer, vouchers[slot], big.NewInt(1))
		}(i)
	}
	wg.Wait()

	for _, redeemErr := range errs {
		assert.NoError(t, redeemErr)
	}

	// All payments credit the same signer; no update may be lost.
	assert.Equal(t, big.NewInt(count).String(), fixture.engine.Balances.BalanceOf(fixture.creator).String())
}
