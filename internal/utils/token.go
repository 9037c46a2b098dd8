package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	tokenAlphabet     = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
	TokenSecretLength = 48
)

// ErrMalformedToken is returned when a bearer token is not of the form "<id>|<secret>".
var ErrMalformedToken = errors.New("malformed token")

// GenerateTokenSecret returns a random alphanumeric secret of TokenSecretLength characters.
func GenerateTokenSecret() (string, error) {
	return gonanoid.Generate(tokenAlphabet, TokenSecretLength)
}

// HashToken returns the hex sha256 of a token secret. Only this form is stored.
func HashToken(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

// FormatToken joins a token row id and its secret into the plaintext handed to the client.
func FormatToken(id int64, secret string) string {
	return strconv.FormatInt(id, 10) + "|" + secret
}

// ParseToken splits a plaintext token into its row id and secret.
func ParseToken(plain string) (int64, string, error) {
	idPart, secret, ok := strings.Cut(plain, "|")
	if !ok || secret == "" {
		return 0, "", ErrMalformedToken
	}
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil || id <= 0 {
		return 0, "", ErrMalformedToken
	}
	return id, secret, nil
}
