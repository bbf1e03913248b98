package main

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

var EIP712Domain []apitypes.Type = []apitypes.Type{
	{Name: "name", Type: "string"},
	{Name: "version", Type: "string"},
	{Name: "chainId", Type: "uint256"},
	{Name: "verifyingContract", Type: "address"},
}

var NFTVoucherPayload []apitypes.Type = []apitypes.Type{
	{Name: "tokenId", Type: "uint256"},
	{Name: "minPrice", Type: "uint256"},
	{Name: "uri", Type: "string"},
}

// These are meant to match the EIP712 domain the minting contract registers in its
// constructor. A signature produced under one domain is worthless under any other.
var EIP712DomainName = "LazyNFT-Voucher"
var EIP712DomainVersion = "1"

var ErrInvalidSignature error = errors.New("invalid signature")

// SigningDomain pins vouchers to one deployment: collection domain name and version,
// the chain the contract lives on, and the contract address itself.
type SigningDomain struct {
	Name              string         `json:"name"`
	Version           string         `json:"version"`
	ChainID           *big.Int       `json:"chainId"`
	VerifyingContract common.Address `json:"verifyingContract"`
}

// Voucher is the off-chain claim a creator signs: "token tokenId with metadata uri
// may be minted by anyone paying at least minPrice". It is never mutated after
// signing; changing any field changes the digest and orphans the signature.
type Voucher struct {
	TokenID   *big.Int `json:"tokenId"`
	MinPrice  *big.Int `json:"minPrice"`
	URI       string   `json:"uri"`
	Signature []byte   `json:"signature"`
}

func VoucherDigest(voucher *Voucher, domain SigningDomain) ([]byte, error) {
	// NFTVoucher(uint256 tokenId,uint256 minPrice,string uri)

	// Inspired by: https://medium.com/alpineintel/issuing-and-verifying-eip-712-challenges-with-go-32635ca78aaf
	data := apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": EIP712Domain,
			"NFTVoucher":   NFTVoucherPayload,
		},
		PrimaryType: "NFTVoucher",
		Domain: apitypes.TypedDataDomain{
			Name:              domain.Name,
			Version:           domain.Version,
			ChainId:           (*math.HexOrDecimal256)(domain.ChainID),
			VerifyingContract: domain.VerifyingContract.Hex(),
		},
		Message: apitypes.TypedDataMessage{
			"tokenId":  voucher.TokenID.String(),
			"minPrice": voucher.MinPrice.String(),
			"uri":      voucher.URI,
		},
	}

	digest, _, err := apitypes.TypedDataAndHash(data)
	return digest, err
}

// RecoverSigner answers "who produced this signature" and nothing more. Whether
// that identity is trusted is the CreatorRegistry's call.
func RecoverSigner(digest []byte, signature []byte) (common.Address, error) {
	if len(signature) != crypto.SignatureLength {
		return common.Address{}, ErrInvalidSignature
	}

	sig := make([]byte, crypto.SignatureLength)
	copy(sig, signature)

	// Normalize signature so that 27 -> 0, 28 -> 1.
	// For more context: https://github.com/ethereum/go-ethereum/issues/2053
	if sig[64] == 27 || sig[64] == 28 {
		sig[64] -= 27
	}
	if sig[64] > 1 {
		return common.Address{}, ErrInvalidSignature
	}

	signerPubkey, recoverErr := crypto.SigToPub(digest, sig)
	if recoverErr != nil {
		return common.Address{}, ErrInvalidSignature
	}

	return crypto.PubkeyToAddress(*signerPubkey), nil
}
