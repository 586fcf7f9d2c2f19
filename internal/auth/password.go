package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is the bcrypt work factor used in production. Each +1 doubles
// the hashing time.
//
// COST TUNING:
// Cost 12 takes roughly 250ms per hash on a current server. Login and
// registration pay that once per request; an attacker pays it once per
// guess. Raise it when hardware gets faster, keeping login under ~300ms.
const DefaultCost = 12

// ErrPasswordMismatch is returned by Verify when the password is wrong.
var ErrPasswordMismatch = errors.New("auth: invalid password")

// PasswordService hashes and verifies account passwords with bcrypt.
//
// WHY BCRYPT?
// bcrypt is deliberately slow and salts every hash, so two users with the
// same password get different hashes and a leaked table cannot be attacked
// with precomputed lookups. The hash string is self-describing:
//
//	$2a$12$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy
//	 |  |  |                     |
//	 |  |  salt (22 chars)       hash (31 chars)
//	 |  cost
//	 version
//
// so it is stored as-is in users.password_hash and Verify needs nothing else.
// Accounts created through GitHub have an empty hash and cannot log in with
// a password until they set one.
type PasswordService struct {
	cost int
}

// NewPasswordService returns a PasswordService with the given bcrypt cost.
// A cost outside bcrypt's accepted range falls back to DefaultCost; tests
// pass bcrypt.MinCost to stay fast.
func NewPasswordService(cost int) *PasswordService {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	return &PasswordService{cost: cost}
}

// Hash returns the bcrypt hash of plaintext. bcrypt ignores everything
// past 72 bytes, so longer passwords are rejected instead of truncated.
func (p *PasswordService) Hash(plaintext string) (string, error) {
	if len(plaintext) > 72 {
		return "", fmt.Errorf("auth: password must be 72 bytes or fewer")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), p.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing password: %w", err)
	}
	return string(hashed), nil
}

// Verify compares plaintext against hash. It returns ErrPasswordMismatch
// for a wrong password and a wrapped error for a malformed hash.
//
// TIMING SAFETY:
// bcrypt.CompareHashAndPassword re-hashes plaintext with the stored salt
// and compares in constant time, so response timing does not reveal how
// much of the password matched. The login service still returns the same
// error for an unknown email and a wrong password, so the endpoint cannot
// be used to discover which emails are registered.
func (p *PasswordService) Verify(hash, plaintext string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrPasswordMismatch
		}
		return fmt.Errorf("auth: comparing password hash: %w", err)
	}
	return nil
}
