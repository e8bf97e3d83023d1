package crypto

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	tokenAlphabet = "0123456789abcdef"
	tokenLength   = 64
)

// NanoidTokenGenerator issues opaque API tokens.
type NanoidTokenGenerator struct{}

func NewTokenGenerator() *NanoidTokenGenerator {
	return &NanoidTokenGenerator{}
}

// Generate returns a 64 character hex token with 256 bits of entropy.
func (g *NanoidTokenGenerator) Generate() (string, error) {
	token, err := gonanoid.Generate(tokenAlphabet, tokenLength)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return token, nil
}
