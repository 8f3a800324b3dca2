package crypto

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
)

const devPrefix = "dev:"

// DevEncryptor implements Encryptor for local development (no KMS required).
// It only base64-encodes; it offers no secrecy.
type DevEncryptor struct{}

func NewDevEncryptor() *DevEncryptor {
	return &DevEncryptor{}
}

func (DevEncryptor) Encrypt(_ context.Context, plaintext string) (string, error) {
	return devPrefix + base64.StdEncoding.EncodeToString([]byte(plaintext)), nil
}

func (DevEncryptor) Decrypt(_ context.Context, ciphertext string) (string, error) {
	if !strings.HasPrefix(ciphertext, devPrefix) {
		return "", fmt.Errorf("not a dev ciphertext")
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(ciphertext, devPrefix))
	if err != nil {
		return "", fmt.Errorf("decode ciphertext: %w", err)
	}
	return string(raw), nil
}
