package indexer

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

const objectIDLength = 32

// ParseObjectID validates a Sui object or package id and returns it in
// canonical 0x-prefixed, zero-padded lowercase form.
func ParseObjectID(input string) (string, error) {
	input = strings.ToLower(strings.TrimSpace(input))
	if input == "" {
		return "", fmt.Errorf("object id is empty")
	}
	if !strings.HasPrefix(input, "0x") {
		input = "0x" + input
	}
	digits := strings.TrimPrefix(input, "0x")
	if len(digits) > objectIDLength*2 {
		return "", fmt.Errorf("object id too long: %s", input)
	}
	padded := "0x" + strings.Repeat("0", objectIDLength*2-len(digits)) + digits

	data, err := hexutil.Decode(padded)
	if err != nil {
		return "", fmt.Errorf("invalid object id: %s", input)
	}
	if len(data) != objectIDLength {
		return "", fmt.Errorf("invalid object id length: %s", input)
	}
	return padded, nil
}
