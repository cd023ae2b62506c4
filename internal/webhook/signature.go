package webhook

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// ComputeHMAC returns the signature header value for payload.
func ComputeHMAC(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature reports whether signature was produced by ComputeHMAC
// with the same payload and secret.
func VerifySignature(payload []byte, signature string, secret string) bool {
	return hmac.Equal([]byte(signature), []byte(ComputeHMAC(payload, secret)))
}

// GenerateSecret returns a random signing secret with a "whsec_" prefix.
func GenerateSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate random secret: %w", err)
	}
	return "whsec_" + base64.URLEncoding.EncodeToString(buf), nil
}
