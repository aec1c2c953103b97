package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"

	"github.com/pkg/errors"
)

const secretTokenBytes = 32

// newSecretToken returns a random token for an email link and the hash that is stored.
func newSecretToken() (raw string, hash string, err error) {
	b := make([]byte, secretTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", "", errors.Wrap(err, "newSecretToken rand.Read")
	}
	raw = hex.EncodeToString(b)
	return raw, hashSecretToken(raw), nil
}

func hashSecretToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
