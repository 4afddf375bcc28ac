package evm

import (
	"bytes"
	"encoding/hex"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/pendergraft/deployctl/internal/chains"
)

// CBOR metadata marker (Solidity >=0.6.0) - "ipfs" in CBOR
var metadataMarker = []byte{0xa2, 0x64, 0x69, 0x70, 0x66, 0x73}

// Library placeholder pattern: __$<34 hex chars>$__
var libraryPlaceholder = regexp.MustCompile(`__\$[a-f0-9]{34}\$__`)

// StripMetadata removes the CBOR metadata appended to bytecode
func StripMetadata(bytecode []byte) []byte {
	idx := bytes.LastIndex(bytecode, metadataMarker)
	if idx == -1 {
		return bytecode
	}
	return bytecode[:idx]
}

// CompareBytecode compares deployed bytecode to artifact bytecode. The
// artifact may be raw or 0x-prefixed hex; libraries maps fully qualified
// library names ("contracts/Lib.sol:Lib") to addresses.
func CompareBytecode(deployed, artifact []byte, libraries map[string]string) *chains.VerifyResult {
	if len(artifact) > 2 && artifact[0] == '0' && artifact[1] == 'x' {
		artifactHex := string(artifact[2:])
		if len(libraries) > 0 {
			artifactHex = LinkLibraries(artifactHex, libraries)
		}
		decoded, err := hex.DecodeString(artifactHex)
		if err == nil {
			artifact = decoded
		}
	}

	if bytes.Equal(deployed, artifact) {
		return &chains.VerifyResult{
			Match:     true,
			MatchType: "full",
			Message:   "Bytecode matches exactly including metadata",
		}
	}

	if bytes.Equal(StripMetadata(deployed), StripMetadata(artifact)) {
		return &chains.VerifyResult{
			Match:     true,
			MatchType: "partial",
			Message:   "Executable code matches, metadata differs (different source paths, comments, or build environment)",
		}
	}

	return &chains.VerifyResult{
		Match:     false,
		MatchType: "none",
		Message:   "Bytecode does not match",
	}
}

// LibraryPlaceholder returns the solc link placeholder for a fully qualified
// library name: "__$" + first 17 bytes of keccak256(name) + "$__".
func LibraryPlaceholder(fullyQualifiedName string) string {
	h := crypto.Keccak256([]byte(fullyQualifiedName))
	return "__$" + hex.EncodeToString(h)[:34] + "$__"
}

// LinkLibraries replaces library placeholders in hex bytecode with addresses.
func LinkLibraries(bytecodeHex string, libraries map[string]string) string {
	for name, addr := range libraries {
		addr = strings.ToLower(strings.TrimPrefix(addr, "0x"))
		bytecodeHex = strings.ReplaceAll(bytecodeHex, LibraryPlaceholder(name), addr)
	}
	return bytecodeHex
}

// HasLibraryPlaceholders checks if bytecode contains library placeholders
func HasLibraryPlaceholders(bytecode []byte) bool {
	return libraryPlaceholder.Match(bytecode)
}
