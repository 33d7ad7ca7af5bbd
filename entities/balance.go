package entities

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// DecryptedBalance is the cleartext balance of one account as observed by a
// completed decryption workflow. Re-decryption overwrites the previous entry.
type DecryptedBalance struct {
	Account    common.Address
	Value      *big.Int
	ObservedAt int64 // unix milliseconds
}
