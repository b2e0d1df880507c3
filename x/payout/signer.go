package payout

import (
	"crypto/ecdsa"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// LocalECDSASigner signs transactions with an in-process treasury key.
type LocalECDSASigner struct {
	chainID *big.Int
	key     *ecdsa.PrivateKey
}

func NewLocalECDSASigner(chainID *big.Int, key *ecdsa.PrivateKey) *LocalECDSASigner {
	return &LocalECDSASigner{chainID: chainID, key: key}
}

// Address returns the treasury account address.
func (s *LocalECDSASigner) Address() common.Address {
	return crypto.PubkeyToAddress(s.key.PublicKey)
}

// SignTx signs with the latest signer for the configured chain.
func (s *LocalECDSASigner) SignTx(tx *types.Transaction) (*types.Transaction, error) {
	return types.SignTx(tx, types.LatestSignerForChainID(s.chainID), s.key)
}
