// Lazy minting API server and command-line interface.
//
// The github.com/nagaraj19/LAZY-Minting-backend package implements the lazy minting
// protocol: creators sign EIP-712 vouchers off-chain, and the redemption engine
// verifies them, mints each token exactly once, and credits the creator with the
// payment. This package defines the structure of the API and the command-line
// interface used to configure and start it.

package main

import (
	"fmt"
	"os"
)

func main() {
	if err := CreateRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
