package utils

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
)

// MinSecretBytes is the smallest secret GenerateSecret will produce
const MinSecretBytes = 32

// GenerateSecret returns n random bytes, base64url encoded without padding
func GenerateSecret(n int) (string, error) {
	if n < MinSecretBytes {
		return "", fmt.Errorf("secret must be at least %d bytes, got %d", MinSecretBytes, n)
	}
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// GenerateJWTSecrets returns distinct access and refresh signing secrets
func GenerateJWTSecrets() (accessSecret, refreshSecret string, err error) {
	if accessSecret, err = GenerateSecret(MinSecretBytes); err != nil {
		return "", "", fmt.Errorf("failed to generate access secret: %w", err)
	}
	if refreshSecret, err = GenerateSecret(MinSecretBytes); err != nil {
		return "", "", fmt.Errorf("failed to generate refresh secret: %w", err)
	}
	if accessSecret == refreshSecret {
		return "", "", errors.New("generated identical secrets")
	}
	return accessSecret, refreshSecret, nil
}
