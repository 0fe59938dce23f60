package deedledger

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// DeriveAddress produces the deterministic address for a record from its seed
// parts. The same seeds always yield the same address, which is how records
// (properties, escrows, proposals) are located without a separate registry.
func DeriveAddress(seeds ...[]byte) string {
	var buf []byte
	for _, seed := range seeds {
		var length [2]byte
		binary.BigEndian.PutUint16(length[:], uint16(len(seed)))
		buf = append(buf, length[:]...)
		buf = append(buf, seed...)
	}
	hash := crypto.Keccak256(buf)
	return common.BytesToAddress(hash[12:]).Hex()
}

// DeriveAddressWithBump derives an address together with its bump, the salt
// byte folded into the final derivation. The bump is stored on the record and
// treated as opaque by all business logic.
func DeriveAddressWithBump(seeds ...[]byte) (string, uint8) {
	var buf []byte
	for _, seed := range seeds {
		var length [2]byte
		binary.BigEndian.PutUint16(length[:], uint16(len(seed)))
		buf = append(buf, length[:]...)
		buf = append(buf, seed...)
	}
	preimage := crypto.Keccak256(buf)
	bump := preimage[0]
	hash := crypto.Keccak256(preimage, []byte{bump})
	return common.BytesToAddress(hash[12:]).Hex(), bump
}

// DeriveAddressN is DeriveAddress with a trailing numeric seed, used where
// multiple records share the same base seeds (e.g. escrows per seller).
func DeriveAddressN(n uint64, seeds ...[]byte) string {
	var nonce [8]byte
	binary.BigEndian.PutUint64(nonce[:], n)
	return DeriveAddress(append(seeds, nonce[:])...)
}

func IsAddress(s string) bool {
	return common.IsHexAddress(s)
}
