// Package hexcodec converts between fixed-size byte arrays and lowercase
// hexadecimal, the representation used for content hashes on disk and in
// the SHA256-Checksum header.
package hexcodec

import "encoding/hex"

// Encode returns the lowercase hex rendering of data, two characters per byte.
func Encode(data []byte) string {
	return hex.EncodeToString(data)
}

// Decode32 decodes a 64-character hex string into a 32-byte array. It
// reports false on wrong length or any non-hex character, never panicking
// on malformed caller input.
func Decode32(s string) (out [32]byte, ok bool) {
	if len(s) != 64 {
		return out, false
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return out, false
	}
	copy(out[:], raw)
	return out, true
}
