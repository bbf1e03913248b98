package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func CreateRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "lazymint",
		Short: "Lazy minting voucher server and tooling",
		Long: `lazymint issues and redeems signed NFT vouchers.

A creator signs an EIP-712 voucher off-chain authorizing a future token. Anyone
holding the voucher can later redeem it with a sufficient payment; the token is
then minted exactly once and transferred to the redeemer.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Missing .env is fine; environment variables win anyway.
			_ = godotenv.Load()
			InitLogger(os.Getenv("LAZYMINT_STAGE"), os.Getenv("LOG_LEVEL"))
		},
	}

	rootCmd.AddCommand(CreateServeCommand())
	rootCmd.AddCommand(CreateSignCommand())
	rootCmd.AddCommand(CreateVersionCommand())

	return rootCmd
}

func CreateServeCommand() *cobra.Command {
	var host string
	var port int

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the lazy minting API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return RunServer(host, port)
		},
	}

	serveCmd.Flags().StringVar(&host, "host", "127.0.0.1", "Host on which to serve the API")
	serveCmd.Flags().IntVar(&port, "port", 8080, "Port on which to serve the API")

	return serveCmd
}

func CreateSignCommand() *cobra.Command {
	var tokenIDRaw, minPriceRaw, uri string

	signCmd := &cobra.Command{
		Use:   "sign",
		Short: "Issue a signed voucher from the command line",
		Long: `Issue a signed voucher using the signing key and domain parameters from the
environment (LAZYMINT_PRIVATE_KEY or LAZYMINT_KEYSTORE, LAZYMINT_CHAIN_ID,
LAZYMINT_VERIFYING_CONTRACT). The voucher is printed to stdout as JSON.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine := &RedemptionEngine{}
			if configureErr := engine.ConfigureFromEnv(); configureErr != nil {
				return configureErr
			}

			parameters := &IssueParameters{}
			parseErr := parameters.ParseIssueVoucherRequest(&IssueVoucherRequest{
				TokenID:  tokenIDRaw,
				MinPrice: minPriceRaw,
				URI:      uri,
			})
			if parseErr != nil {
				return parseErr
			}

			voucher, issueErr := engine.Issuer().IssueVoucher(parameters.TokenID, parameters.MinPrice, parameters.URI)
			if issueErr != nil {
				return issueErr
			}

			response := VoucherResponse{
				TokenID:   voucher.TokenID.String(),
				MinPrice:  voucher.MinPrice.String(),
				URI:       voucher.URI,
				Signer:    engine.Issuer().Address().Hex(),
				Signature: fmt.Sprintf("%x", voucher.Signature),
			}

			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			return encoder.Encode(response)
		},
	}

	signCmd.Flags().StringVar(&tokenIDRaw, "token-id", "", "ID of the token the voucher authorizes")
	signCmd.Flags().StringVar(&minPriceRaw, "min-price", "0", "Minimum payment (in wei) required to redeem")
	signCmd.Flags().StringVar(&uri, "uri", "", "Metadata URI of the token")
	_ = signCmd.MarkFlagRequired("token-id")
	_ = signCmd.MarkFlagRequired("uri")

	return signCmd
}

func CreateVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version of lazymint",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), LazymintVersion)
		},
	}
}
