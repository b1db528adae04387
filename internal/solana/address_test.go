package solana

import (
	"errors"
	"testing"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAddress(t *testing.T) {
	assert.NoError(t, ValidateAddress("JUP6LkbZbjS1jKKwapdHNy74zcZ3tLUZoi5QNyVTaV4"))
	assert.Error(t, ValidateAddress("not-base58-0OIl"))
	assert.Error(t, ValidateAddress("abc"))
}

func TestValidateSignature(t *testing.T) {
	var sig solanago.Signature
	for i := range sig {
		sig[i] = byte(i + 1)
	}
	assert.NoError(t, ValidateSignature(sig.String()))
	assert.Error(t, ValidateSignature("JUP6LkbZbjS1jKKwapdHNy74zcZ3tLUZoi5QNyVTaV4"))
	assert.Error(t, ValidateSignature(""))
}

func TestValidateWallet(t *testing.T) {
	key, err := solanago.NewRandomPrivateKey()
	require.NoError(t, err)
	wallet := key.PublicKey().String()

	assert.True(t, IsOnCurve(wallet))
	assert.NoError(t, ValidateWallet(wallet))

	program := solanago.MustPublicKeyFromBase58("JUP6LkbZbjS1jKKwapdHNy74zcZ3tLUZoi5QNyVTaV4")
	pda, _, err := solanago.FindProgramAddress([][]byte{[]byte("authority")}, program)
	require.NoError(t, err)

	assert.False(t, IsOnCurve(pda.String()))
	err = ValidateWallet(pda.String())
	assert.True(t, errors.Is(err, ErrOffCurve))
}
