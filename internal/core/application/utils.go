package application

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

func keccak(buf []byte) []byte {
	return crypto.Keccak256(buf)
}

func balanceKey(token, depositor common.Address) string {
	return fmt.Sprintf("%s:%s", token.Hex(), depositor.Hex())
}
