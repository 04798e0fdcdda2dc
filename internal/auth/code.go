package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// CodeLength is the number of characters in a confirmation code.
const CodeLength = 32

const defaultCost = 12

// ErrCodeMismatch is returned by Verify when the code does not match the hash.
var ErrCodeMismatch = errors.New("auth: confirmation code mismatch")

// CodeService generates confirmation codes and stores them as bcrypt hashes.
//
// The plaintext code only ever exists in the outgoing email. The database
// keeps the hash, so a leaked users table does not let anyone sign in.
type CodeService struct {
	cost int
}

func NewCodeService() *CodeService {
	return &CodeService{cost: defaultCost}
}

// NewCodeServiceForTest uses a low bcrypt cost so tests stay fast.
func NewCodeServiceForTest() *CodeService {
	return &CodeService{cost: bcrypt.MinCost}
}

// Generate returns a new random code and its hash.
//
// 24 random bytes encode to exactly 32 url-safe base64 characters, giving 192
// bits of entropy.
func (c *CodeService) Generate() (code, hash string, err error) {
	buf := make([]byte, CodeLength*3/4)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("auth: reading random bytes: %w", err)
	}
	code = base64.RawURLEncoding.EncodeToString(buf)

	hashed, err := bcrypt.GenerateFromPassword([]byte(code), c.cost)
	if err != nil {
		return "", "", fmt.Errorf("auth: hashing code: %w", err)
	}

	return code, string(hashed), nil
}

// Verify checks a submitted code against the stored hash.
func (c *CodeService) Verify(hash, code string) error {
	// Codes have a fixed length, so anything else is rejected without hashing.
	if hash == "" || len(code) != CodeLength {
		return ErrCodeMismatch
	}
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(code))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrCodeMismatch
		}
		return fmt.Errorf("auth: comparing code hash: %w", err)
	}
	return nil
}
