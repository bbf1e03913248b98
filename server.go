package main

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

var LAZYMINT_CORS_ALLOWED_ORIGINS = os.Getenv("LAZYMINT_CORS_ALLOWED_ORIGINS")

// corsMiddleware handles CORS origin check
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if LAZYMINT_CORS_ALLOWED_ORIGINS == "" {
			zlog.Warn("missed CORS origins environment variable")
		}
		if r.Method == http.MethodOptions {
			for _, allowedOrigin := range strings.Split(LAZYMINT_CORS_ALLOWED_ORIGINS, ",") {
				if r.Header.Get("Origin") == allowedOrigin {
					w.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
					w.Header().Set("Access-Control-Allow-Methods", "GET,POST")
					// Credentials are cookies, authorization headers, or TLS client certificates
					w.Header().Set("Access-Control-Allow-Credentials", "true")
					w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
				}
			}
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// logMiddleware logs access requests in proper format
func logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r)

		var ip string
		realIp := r.Header["X-Real-Ip"]
		if len(realIp) == 0 {
			var err error
			ip, _, err = net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				zlog.Warn("unable to parse client IP", zap.String("remote_addr", r.RemoteAddr))
				return
			}
		} else {
			ip = realIp[0]
		}

		zlog.Info("access",
			zap.String("ip", ip),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
		)
	})
}

// panicMiddleware handles panic errors to prevent server shutdown
func panicMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				zlog.Error("recovered panic error", zap.Any("panic", err))
				http.Error(w, "Internal server error", 500)
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// PingHandler responds with status of the server itself
func PingHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	response := PingResponse{Status: "ok"}
	json.NewEncoder(w).Encode(response)
}

// StatusHandler reports the collection identity and the live signing domain. The
// issuer collaborator reads this to build digests matching this deployment.
func (engine *RedemptionEngine) StatusHandler(w http.ResponseWriter, r *http.Request) {
	response := StatusResponse{
		Name:              engine.Name,
		Symbol:            engine.Symbol,
		DomainName:        engine.Domain.Name,
		DomainVersion:     engine.Domain.Version,
		ChainID:           engine.Domain.ChainID.String(),
		VerifyingContract: engine.Domain.VerifyingContract.Hex(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

func (engine *RedemptionEngine) AddressHandler(w http.ResponseWriter, r *http.Request) {
	response := AddressResponse{
		Address: engine.issuer.Address().Hex(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

func (engine *RedemptionEngine) IssueVoucherHandler(w http.ResponseWriter, r *http.Request) {
	var requestParameters IssueVoucherRequest

	bodyDecoder := json.NewDecoder(r.Body)
	decodeErr := bodyDecoder.Decode(&requestParameters)
	if decodeErr != nil {
		http.Error(w, "Error decoding request", http.StatusBadRequest)
		return
	}

	parameters := &IssueParameters{}
	parseErr := parameters.ParseIssueVoucherRequest(&requestParameters)
	if parseErr != nil {
		http.Error(w, parseErr.Error(), http.StatusBadRequest)
		return
	}

	voucher, issueErr := engine.issuer.IssueVoucher(parameters.TokenID, parameters.MinPrice, parameters.URI)
	if issueErr != nil {
		zlog.Error("failed to issue voucher", zap.Error(issueErr))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	response := VoucherResponse{
		TokenID:   voucher.TokenID.String(),
		MinPrice:  voucher.MinPrice.String(),
		URI:       voucher.URI,
		Signer:    engine.issuer.Address().Hex(),
		Signature: hex.EncodeToString(voucher.Signature),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// RedeemHandler runs the redemption protocol for a submitted voucher and payment.
// Important! All errors going to client response, do not pass signatures and valuable information.
func (engine *RedemptionEngine) RedeemHandler(w http.ResponseWriter, r *http.Request) {
	var requestParameters RedeemRequest

	bodyDecoder := json.NewDecoder(r.Body)
	decodeErr := bodyDecoder.Decode(&requestParameters)
	if decodeErr != nil {
		http.Error(w, "Error decoding request", http.StatusBadRequest)
		return
	}

	parameters := &RedeemParameters{}
	parseErr := parameters.ParseRedeemRequest(&requestParameters)
	if parseErr != nil {
		http.Error(w, parseErr.Error(), http.StatusBadRequest)
		return
	}

	tokenID, redeemErr := engine.Redeem(parameters.Redeemer, parameters.Voucher, parameters.Payment)
	if redeemErr != nil {
		http.Error(w, redeemErr.Error(), redemptionStatusCode(redeemErr))
		return
	}

	response := RedeemResponse{
		TokenID: tokenID.String(),
		Owner:   parameters.Redeemer.Hex(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

func redemptionStatusCode(err error) int {
	switch {
	case errors.Is(err, ErrUnauthorizedCreator), errors.Is(err, ErrInvalidSignature):
		return http.StatusForbidden
	case errors.Is(err, ErrInsufficientFunds):
		return http.StatusPaymentRequired
	case errors.Is(err, ErrAssetExists):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (engine *RedemptionEngine) OwnerOfHandler(w http.ResponseWriter, r *http.Request) {
	tokenID, parseOK := new(big.Int).SetString(r.URL.Query().Get("tokenID"), 0)
	if !parseOK {
		http.Error(w, "Error parsing tokenID query parameter", http.StatusBadRequest)
		return
	}

	owner, ownerErr := engine.Assets.OwnerOf(tokenID)
	if ownerErr != nil {
		http.Error(w, ownerErr.Error(), http.StatusNotFound)
		return
	}

	response := OwnerResponse{TokenID: tokenID.String(), Owner: owner.Hex()}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

func (engine *RedemptionEngine) MetadataOfHandler(w http.ResponseWriter, r *http.Request) {
	tokenID, parseOK := new(big.Int).SetString(r.URL.Query().Get("tokenID"), 0)
	if !parseOK {
		http.Error(w, "Error parsing tokenID query parameter", http.StatusBadRequest)
		return
	}

	uri, metadataErr := engine.Assets.MetadataOf(tokenID)
	if metadataErr != nil {
		http.Error(w, metadataErr.Error(), http.StatusNotFound)
		return
	}

	response := MetadataResponse{TokenID: tokenID.String(), URI: uri}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

func (engine *RedemptionEngine) BalanceOfHandler(w http.ResponseWriter, r *http.Request) {
	address := common.HexToAddress(r.URL.Query().Get("address"))

	response := BalanceResponse{
		Address: address.Hex(),
		Balance: engine.Balances.BalanceOf(address).String(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

func (engine *RedemptionEngine) IsCreatorHandler(w http.ResponseWriter, r *http.Request) {
	address := common.HexToAddress(r.URL.Query().Get("address"))

	response := CreatorResponse{
		Address: address.Hex(),
		Creator: engine.Creators.IsCreator(address),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

func RunServer(serverHost string, serverPort int) error {
	engine := &RedemptionEngine{}

	engineConfigurationErr := engine.ConfigureFromEnv()
	if engineConfigurationErr != nil {
		return fmt.Errorf("failed to configure redemption engine, err: %v", engineConfigurationErr)
	}

	mux := http.NewServeMux()

	mux.HandleFunc("/ping", PingHandler)
	mux.HandleFunc("/status", engine.StatusHandler)
	mux.HandleFunc("/address", engine.AddressHandler)
	mux.HandleFunc("/voucher", engine.IssueVoucherHandler)
	mux.HandleFunc("/redeem", engine.RedeemHandler)
	mux.HandleFunc("/owner_of", engine.OwnerOfHandler)
	mux.HandleFunc("/metadata_of", engine.MetadataOfHandler)
	mux.HandleFunc("/balance_of", engine.BalanceOfHandler)
	mux.HandleFunc("/is_creator", engine.IsCreatorHandler)

	// Set middleware, from bottom to top
	commonHandler := corsMiddleware(mux)
	commonHandler = logMiddleware(commonHandler)
	commonHandler = panicMiddleware(commonHandler)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", serverHost, serverPort),
		Handler:      commonHandler,
		ReadTimeout:  40 * time.Second,
		WriteTimeout: 40 * time.Second,
	}

	zlog.Info("starting lazy minting server",
		zap.String("host", serverHost),
		zap.Int("port", serverPort),
		zap.String("collection", engine.Name),
	)

	err := server.ListenAndServe()
	if err != nil {
		return fmt.Errorf("failed to start server listener, err: %v", err)
	}

	return nil
}
