// internal/app/system/passwords/passwords.go
package passwords

import (
	"crypto/rand"
	"math/big"

	"golang.org/x/crypto/bcrypt"
)

// BcryptCost for credential hashes.
const BcryptCost = 10

// MinLength is the minimum accepted password length.
const MinLength = 8

// tempAlphabet deliberately omits look-alike characters (0/O, 1/l/I) since
// temporary passwords are read out of an email and typed once.
const tempAlphabet = "abcdefghjkmnpqrstuvwxyzABCDEFGHJKMNPQRSTUVWXYZ23456789"

// Hash returns the bcrypt hash of a plaintext password.
func Hash(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), BcryptCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Compare reports whether plain matches the stored hash.
func Compare(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// Temporary generates a random temporary password of n characters.
// Panics if the system's cryptographic random number generator fails.
func Temporary(n int) string {
	if n <= 0 {
		n = 12
	}
	out := make([]byte, n)
	max := big.NewInt(int64(len(tempAlphabet)))
	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic("crypto/rand failed: " + err.Error())
		}
		out[i] = tempAlphabet[idx.Int64()]
	}
	return string(out)
}
