// Small helper to generate a dev treasury key (secp256k1) and print
// - private key (hex), for payout.treasury_pk_hex / TREASURY_PRIVATE_KEY
// - Ethereum address to fund with the payout token
package main

import (
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
)

func main() {
	key, err := crypto.GenerateKey()
	if err != nil {
		panic(err)
	}
	fmt.Printf("TREASURY_PRIVATE_KEY=%x\n", crypto.FromECDSA(key))
	fmt.Printf("TREASURY_ADDR=%s\n", crypto.PubkeyToAddress(key.PublicKey).Hex())
}
