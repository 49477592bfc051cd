package account

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

const accessKeyPrefix = "ak_"

// AccessKeyGenerator produces the secondary lookup key stored with an account.
type AccessKeyGenerator interface {
	Generate(seed string) (string, error)
}

// HMACKeyGenerator mixes the seed with a random nonce under a private secret,
// so the key cannot be derived from the username.
type HMACKeyGenerator struct {
	secret []byte
}

// NewHMACKeyGenerator uses secret when set, otherwise a random per-process secret.
func NewHMACKeyGenerator(secret string) (*HMACKeyGenerator, error) {
	if secret != "" {
		return &HMACKeyGenerator{secret: []byte(secret)}, nil
	}
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("generate access key secret: %w", err)
	}
	return &HMACKeyGenerator{secret: b}, nil
}

func (g *HMACKeyGenerator) Generate(seed string) (string, error) {
	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate access key nonce: %w", err)
	}
	mac := hmac.New(sha256.New, g.secret)
	mac.Write([]byte(seed))
	mac.Write([]byte{0})
	mac.Write(nonce)
	return accessKeyPrefix + hex.EncodeToString(mac.Sum(nil)), nil
}
