package main

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

type PingResponse struct {
	Status string `json:"status"`
}

type AddressResponse struct {
	Address string `json:"address"`
}

type StatusResponse struct {
	Name              string `json:"name"`
	Symbol            string `json:"symbol"`
	DomainName        string `json:"domainName"`
	DomainVersion     string `json:"domainVersion"`
	ChainID           string `json:"chainID"`
	VerifyingContract string `json:"verifyingContract"`
}

type IssueVoucherRequest struct {
	TokenID  string `json:"tokenID"`
	MinPrice string `json:"minPrice"`
	URI      string `json:"uri"`
}

type VoucherResponse struct {
	TokenID   string `json:"tokenID"`
	MinPrice  string `json:"minPrice"`
	URI       string `json:"uri"`
	Signer    string `json:"signer"`
	Signature string `json:"signature"`
}

type RedeemRequest struct {
	Redeemer  string `json:"redeemer"`
	TokenID   string `json:"tokenID"`
	MinPrice  string `json:"minPrice"`
	URI       string `json:"uri"`
	Signature string `json:"signature"`
	Payment   string `json:"payment"`
}

type RedeemResponse struct {
	TokenID string `json:"tokenID"`
	Owner   string `json:"owner"`
}

type OwnerResponse struct {
	TokenID string `json:"tokenID"`
	Owner   string `json:"owner"`
}

type MetadataResponse struct {
	TokenID string `json:"tokenID"`
	URI     string `json:"uri"`
}

type BalanceResponse struct {
	Address string `json:"address"`
	Balance string `json:"balance"`
}

type CreatorResponse struct {
	Address string `json:"address"`
	Creator bool   `json:"creator"`
}

type IssueParameters struct {
	TokenID  *big.Int
	MinPrice *big.Int
	URI      string
}

func (p *IssueParameters) ParseIssueVoucherRequest(request *IssueVoucherRequest) error {
	tokenID, parseOK := new(big.Int).SetString(request.TokenID, 0)
	if !parseOK {
		return fmt.Errorf("Error parsing tokenID: %s", request.TokenID)
	}

	minPrice, parseOK := new(big.Int).SetString(request.MinPrice, 0)
	if !parseOK {
		return fmt.Errorf("Error parsing minPrice: %s", request.MinPrice)
	}

	p.TokenID = tokenID
	p.MinPrice = minPrice
	p.URI = request.URI

	return nil
}

type RedeemParameters struct {
	Redeemer common.Address
	Voucher  *Voucher
	Payment  *big.Int
}

func (p *RedeemParameters) ParseRedeemRequest(request *RedeemRequest) error {
	redeemer := common.HexToAddress(request.Redeemer)

	tokenID, parseOK := new(big.Int).SetString(request.TokenID, 0)
	if !parseOK {
		return fmt.Errorf("Error parsing tokenID: %s", request.TokenID)
	}

	minPrice, parseOK := new(big.Int).SetString(request.MinPrice, 0)
	if !parseOK {
		return fmt.Errorf("Error parsing minPrice: %s", request.MinPrice)
	}

	payment, parseOK := new(big.Int).SetString(request.Payment, 0)
	if !parseOK {
		return fmt.Errorf("Error parsing payment: %s", request.Payment)
	}

	signature, decodeErr := hex.DecodeString(strings.TrimPrefix(request.Signature, "0x"))
	if decodeErr != nil {
		return fmt.Errorf("Error decoding signature: %s", decodeErr.Error())
	}

	p.Redeemer = redeemer
	p.Voucher = &Voucher{
		TokenID:   tokenID,
		MinPrice:  minPrice,
		URI:       request.URI,
		Signature: signature,
	}
	p.Payment = payment

	return nil
}
