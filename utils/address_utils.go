package utils

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

// HexStringToAddress converts a hex string (with or without the "0x" prefix) to a common.Address. Returns the parsed
// address, or an error if the string is not a well-formed 20-byte address.
func HexStringToAddress(s string) (*common.Address, error) {
	if !common.IsHexAddress(s) {
		return nil, errors.Errorf("'%s' is not a valid hex-encoded address", s)
	}
	address := common.HexToAddress(s)
	return &address, nil
}
