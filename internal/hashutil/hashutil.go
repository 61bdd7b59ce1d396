// Package hashutil centralizes the BLAKE3 hashing used for file hashes,
// content hashes, stable result IDs, and cache fingerprints throughout the
// engine (spec §3, §4.14).
package hashutil

import (
	"encoding/hex"
	"strconv"

	"lukechampine.com/blake3"
)

// Hex returns the full lowercase-hex BLAKE3 digest of data.
func Hex(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// HexString is a convenience wrapper over Hex for string input.
func HexString(s string) string { return Hex([]byte(s)) }

// Truncated returns the first n hex characters of the BLAKE3 digest of data.
func Truncated(data []byte, n int) string {
	full := Hex(data)
	if n >= len(full) {
		return full
	}
	return full[:n]
}

// TruncatedString is a convenience wrapper over Truncated for string input.
func TruncatedString(s string, n int) string { return Truncated([]byte(s), n) }

// ResultID is the stable result-identifier scheme shared by the retrieval
// engine and the agent protocol: the 16-hex prefix of
// BLAKE3(path:line:snippet). line <= 0 (no specific line) encodes as an
// empty segment.
func ResultID(path string, line int, snippet string) string {
	lineStr := ""
	if line > 0 {
		lineStr = strconv.Itoa(line)
	}
	return TruncatedString(path+":"+lineStr+":"+snippet, 16)
}
