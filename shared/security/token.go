package security

import (
	"crypto/rand"
	"encoding/hex"
)

const opaqueTokenBytes = 32

// GenerateOpaqueToken returns 256 bits of randomness, hex encoded.
func GenerateOpaqueToken() (string, error) {
	bytes := make([]byte, opaqueTokenBytes)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
