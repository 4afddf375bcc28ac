// Package validation provides input validation for deployctl.
package validation

import (
	"errors"
	"regexp"
	"strings"

	"golang.org/x/mod/semver"
)

// solc long versions look like 0.8.20+commit.a1b2c3d4
var solcLongVersionRegex = regexp.MustCompile(`^v?(\d+\.\d+\.\d+)(-[0-9A-Za-z.]+)?\+commit\.[0-9a-f]{8}$`)

// contract names are Solidity identifiers
var contractNameRegex = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

// ValidateAddress validates an Ethereum address
func ValidateAddress(addr string) error {
	if len(addr) != 42 {
		return errors.New("invalid address length: must be 42 characters (0x + 40 hex)")
	}
	if !strings.HasPrefix(addr, "0x") {
		return errors.New("invalid address: must start with 0x")
	}
	for _, c := range addr[2:] {
		isDigit := c >= '0' && c <= '9'
		isLowerHex := c >= 'a' && c <= 'f'
		isUpperHex := c >= 'A' && c <= 'F'
		if !isDigit && !isLowerHex && !isUpperHex {
			return errors.New("invalid address: contains non-hex characters")
		}
	}
	return nil
}

// ValidateChainID validates a chain ID
func ValidateChainID(chainID int64) error {
	if chainID <= 0 {
		return errors.New("chain ID must be positive")
	}
	return nil
}

// ValidateContractName validates a Solidity contract identifier
func ValidateContractName(name string) error {
	if name == "" {
		return errors.New("contract name cannot be empty")
	}
	if !contractNameRegex.MatchString(name) {
		return errors.New("invalid contract name: must be a Solidity identifier")
	}
	return nil
}

// ValidateCompilerVersion validates a solc long version string such as
// "0.8.20+commit.a1b2c3d4" (a leading "v" is accepted).
func ValidateCompilerVersion(v string) error {
	m := solcLongVersionRegex.FindStringSubmatch(v)
	if m == nil {
		return errors.New("invalid compiler version: expected X.Y.Z+commit.<8 hex>")
	}
	if !semver.IsValid("v" + m[1] + m[2]) {
		return errors.New("invalid compiler version: not a semantic version")
	}
	return nil
}

// ExplorerCompilerVersion returns the compiler version in the form explorers
// expect ("v0.8.20+commit.a1b2c3d4").
func ExplorerCompilerVersion(v string) string {
	return "v" + strings.TrimPrefix(v, "v")
}

