package password

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	// DefaultCost is the bcrypt cost for new hashes.
	DefaultCost        = 12
	errPasswordEmpty   = "password cannot be empty"
	errHashPasswordFmt = "failed to hash password: %w"
	errGetHashCostFmt  = "failed to get hash cost: %w"
)

// dummyHash is compared against when no user matches, so unknown emails
// take as long as wrong passwords.
const dummyHash = "$2a$12$dWR5CQpS4zNHLavLSIr4o.P6QDQEUJKv7mJ7WekUHHqyRSRMJzH0S"

var cost = DefaultCost

func Hash(password string) (string, error) {
	if len(password) == 0 {
		return "", fmt.Errorf(errPasswordEmpty)
	}

	bytes, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf(errHashPasswordFmt, err)
	}

	return string(bytes), nil
}

func Verify(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// Equalize burns one bcrypt comparison and always returns false.
func Equalize(password string) bool {
	Verify(password, dummyHash)
	return false
}

func NeedsRehash(hash string, cost int) (bool, error) {
	hashCost, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		return false, fmt.Errorf(errGetHashCostFmt, err)
	}

	return hashCost < cost, nil
}

// SetCostForTesting lowers the bcrypt cost; tests only.
func SetCostForTesting(c int) func() {
	prev := cost
	cost = c
	return func() { cost = prev }
}
