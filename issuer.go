package main

import (
	"crypto/ecdsa"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// VoucherIssuer is the off-chain half of the protocol: it holds a creator's signing
// key and produces vouchers whose digests the redemption engine will re-derive
// independently. Issuer and engine must agree on the signing domain byte for byte.
type VoucherIssuer struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
	Domain     SigningDomain
}

func NewVoucherIssuer(privateKey *ecdsa.PrivateKey, domain SigningDomain) (*VoucherIssuer, error) {
	if privateKey == nil {
		return nil, errors.New("voucher issuer requires a signing key")
	}

	return &VoucherIssuer{
		privateKey: privateKey,
		address:    crypto.PubkeyToAddress(privateKey.PublicKey),
		Domain:     domain,
	}, nil
}

func (issuer *VoucherIssuer) Address() common.Address {
	return issuer.address
}

// IssueVoucher builds a voucher for a not-yet-existing token and signs its
// structured-data digest under the issuer's domain.
func (issuer *VoucherIssuer) IssueVoucher(tokenID, minPrice *big.Int, uri string) (*Voucher, error) {
	if tokenID == nil || tokenID.Sign() <= 0 {
		return nil, errors.New("tokenID must be greater than zero")
	}
	if minPrice == nil || minPrice.Sign() < 0 {
		return nil, errors.New("minPrice must not be negative")
	}

	voucher := &Voucher{
		TokenID:  new(big.Int).Set(tokenID),
		MinPrice: new(big.Int).Set(minPrice),
		URI:      uri,
	}

	digest, digestErr := VoucherDigest(voucher, issuer.Domain)
	if digestErr != nil {
		return nil, digestErr
	}

	signature, signErr := SignRawMessage(digest, issuer.privateKey, false)
	if signErr != nil {
		return nil, signErr
	}

	voucher.Signature = signature
	return voucher, nil
}
