// Password hashing for local accounts.
//
// WHY BCRYPT?
// Stored passwords must survive a leaked database. bcrypt is deliberately
// slow and salts every hash, so two users who pick the same password end
// up with unrelated hashes and each guess costs an attacker real time.
//
// The salt and the cost live inside the hash string itself:
//
//	$2a$12$<22-char salt><31-char hash>
//	 ^   ^
//	 |   cost (2^12 rounds)
//	 version
//
// so the users table needs just one password_hash column, and raising the
// cost later only affects hashes written after the change.
//
// Accounts created through Google have no password hash at all; the
// service layer refuses local login for them before Verify is reached.
package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// defaultCost is the bcrypt work factor for stored passwords.
//
// COST TUNING:
// Each step doubles the hashing time. Pick the highest cost that keeps a
// login at a few hundred milliseconds on production hardware. Tests use
// bcrypt.MinCost through NewPasswordServiceWithCost so suites stay fast.
const defaultCost = 12

// ErrInvalidPassword is returned by Verify when the password does not match.
var ErrInvalidPassword = errors.New("auth: invalid password")

// PasswordService hashes and checks passwords. It is a struct rather than
// a pair of functions so the cost can be injected.
type PasswordService struct {
	cost int
}

// NewPasswordService uses defaultCost.
func NewPasswordService() *PasswordService {
	return &PasswordService{cost: defaultCost}
}

func NewPasswordServiceWithCost(cost int) *PasswordService {
	return &PasswordService{cost: cost}
}

// Hash returns the bcrypt hash of plaintext. bcrypt ignores input past 72
// bytes, so longer passwords are refused instead of silently truncated.
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

// Verify checks plaintext against a hash produced by Hash. A mismatch is
// reported as ErrInvalidPassword so callers can tell a wrong password
// apart from a corrupt hash:
//
//	if errors.Is(err, auth.ErrInvalidPassword) {
//	    // bad credentials, not a server error
//	}
//
// CompareHashAndPassword runs in constant time for a given cost.
func (p *PasswordService) Verify(hash, plaintext string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrInvalidPassword
		}
		return fmt.Errorf("auth: comparing password hash: %w", err)
	}
	return nil
}
