package auth

import (
	"crypto/ecdsa"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/defistate/position-ledger-go/ledger"
)

func signPermit(t *testing.T, key *ecdsa.PrivateKey, positionID uint64, operator common.Address, nonce, deadline uint64) []byte {
	t.Helper()
	sig, err := crypto.Sign(PermitDigest(positionID, operator, nonce, deadline).Bytes(), key)
	require.NoError(t, err)
	return sig
}

func TestGuardVerifyPermit(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	owner := crypto.PubkeyToAddress(key.PublicKey)

	setup := func(t *testing.T) (*Guard, *ledger.PositionLedger) {
		t.Helper()
		g, owners, l := setupGuard(t)
		owners.owners[1] = owner
		return g, l
	}

	t.Run("OwnerSignatureConsumesNonce", func(t *testing.T) {
		g, l := setup(t)
		sig := signPermit(t, key, 1, addr(0x02), 0, 100)

		require.NoError(t, g.VerifyPermit(1, addr(0x02), 100, sig))

		pos, err := l.Get(1)
		require.NoError(t, err)
		assert.Equal(t, uint64(1), pos.Nonce)
	})

	t.Run("ReplayFails", func(t *testing.T) {
		g, _ := setup(t)
		sig := signPermit(t, key, 1, addr(0x02), 0, 100)

		require.NoError(t, g.VerifyPermit(1, addr(0x02), 100, sig))
		// The nonce advanced, so the same signature no longer matches.
		assert.ErrorIs(t, g.VerifyPermit(1, addr(0x02), 100, sig), ErrUnauthorized)
	})

	t.Run("StrangerSignature", func(t *testing.T) {
		g, _ := setup(t)
		strangerKey, err := crypto.GenerateKey()
		require.NoError(t, err)
		sig := signPermit(t, strangerKey, 1, addr(0x02), 0, 100)

		assert.ErrorIs(t, g.VerifyPermit(1, addr(0x02), 100, sig), ErrUnauthorized)
	})

	t.Run("TamperedOperator", func(t *testing.T) {
		g, _ := setup(t)
		sig := signPermit(t, key, 1, addr(0x02), 0, 100)

		assert.ErrorIs(t, g.VerifyPermit(1, addr(0x05), 100, sig), ErrUnauthorized)
	})

	t.Run("FailedVerificationLeavesNonceIntact", func(t *testing.T) {
		g, l := setup(t)
		strangerKey, err := crypto.GenerateKey()
		require.NoError(t, err)
		sig := signPermit(t, strangerKey, 1, addr(0x02), 0, 100)

		require.Error(t, g.VerifyPermit(1, addr(0x02), 100, sig))

		pos, err := l.Get(1)
		require.NoError(t, err)
		assert.Equal(t, uint64(0), pos.Nonce)
	})

	t.Run("EthereumRecoveryIDOffset", func(t *testing.T) {
		g, _ := setup(t)
		sig := signPermit(t, key, 1, addr(0x02), 0, 100)
		sig[crypto.RecoveryIDOffset] += 27

		assert.NoError(t, g.VerifyPermit(1, addr(0x02), 100, sig))
	})

	t.Run("MalformedSignature", func(t *testing.T) {
		g, _ := setup(t)
		assert.ErrorIs(t, g.VerifyPermit(1, addr(0x02), 100, []byte{0x01}), ErrInvalidSignature)
	})

	t.Run("UnknownPosition", func(t *testing.T) {
		g, _ := setup(t)
		sig := signPermit(t, key, 42, addr(0x02), 0, 100)

		assert.ErrorIs(t, g.VerifyPermit(42, addr(0x02), 100, sig), ledger.ErrNotFound)
	})
}
