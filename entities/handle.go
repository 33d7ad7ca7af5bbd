package entities

import (
	"github.com/ethereum/go-ethereum/common"
)

// EncryptedHandle is an opaque 32 byte reference to a ciphertext held by the
// FHE runtime. Equality is by bit pattern. The all-zero handle is a sentinel
// for "zero value, no real ciphertext" and must never be sent for decryption.
type EncryptedHandle [32]byte

func (h EncryptedHandle) IsZero() bool {
	return h == EncryptedHandle{}
}

func (h EncryptedHandle) Hex() string {
	return common.Hash(h).Hex()
}

// HandleFromBytes truncates or left-pads the input to 32 bytes.
func HandleFromBytes(b []byte) EncryptedHandle {
	return EncryptedHandle(common.BytesToHash(b))
}

func HandleFromHex(s string) EncryptedHandle {
	return EncryptedHandle(common.HexToHash(s))
}
