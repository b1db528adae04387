package solana

import (
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	solanago "github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
)

// ErrOffCurve is returned for addresses that cannot sign, such as program derived addresses.
var ErrOffCurve = errors.New("address is off the ed25519 curve")

// ValidateAddress checks that s is a base58 encoded 32-byte public key.
func ValidateAddress(s string) error {
	if _, err := solanago.PublicKeyFromBase58(s); err != nil {
		return fmt.Errorf("invalid address %q: %w", s, err)
	}
	return nil
}

// ValidateSignature checks that s is a base58 encoded 64-byte transaction signature.
func ValidateSignature(s string) error {
	if _, err := solanago.SignatureFromBase58(s); err != nil {
		return fmt.Errorf("invalid signature %q: %w", s, err)
	}
	return nil
}

// ValidateWallet checks that s is an address able to pay fees and sign.
func ValidateWallet(s string) error {
	if err := ValidateAddress(s); err != nil {
		return err
	}
	if !IsOnCurve(s) {
		return fmt.Errorf("invalid wallet %q: %w", s, ErrOffCurve)
	}
	return nil
}

// IsOnCurve reports whether the base58 address decodes to a valid ed25519 point.
func IsOnCurve(address string) bool {
	point, err := base58.Decode(address)
	if err != nil || len(point) != 32 {
		return false
	}
	_, err = new(edwards25519.Point).SetBytes(point)
	return err == nil
}
