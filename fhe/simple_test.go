package fhe

import (
	"context"
	"crypto/rand"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/certvault/certificate-registry-backend/interfaces"
)

func newEngine(t *testing.T) *SimpleFHE {
	t.Helper()
	seed := make([]byte, 32)
	_, err := rand.Read(seed)
	require.NoError(t, err)

	engine, err := NewSimpleFHE(seed)
	require.NoError(t, err)
	return engine
}

func testAddr(b byte) interfaces.AccountAddress {
	var a interfaces.AccountAddress
	a[19] = b
	return a
}

// grantFor builds a currently valid spec over the given handles.
func grantFor(requester, scope interfaces.AccountAddress, handles []interfaces.CiphertextHandle) interfaces.AccessGrantSpec {
	return interfaces.AccessGrantSpec{
		Requester:    requester,
		Scope:        scope,
		Handles:      handles,
		StartTime:    time.Now().Unix() - 60,
		DurationDays: 1,
	}
}

func TestNewSimpleFHESeedTooShort(t *testing.T) {
	_, err := NewSimpleFHE(make([]byte, 16))
	require.Error(t, err)
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	engine := newEngine(t)
	scope := testAddr(0xAA)
	owner := testAddr(0x10)

	input, err := engine.NewEncryptedInput(scope, owner).Add32(85).Add32(90).Encrypt(context.Background())
	require.NoError(t, err)
	require.Len(t, input.Handles, 2)
	assert.NotEqual(t, input.Handles[0], input.Handles[1])

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	requester, err := interfaces.NewAccountAddressFromBytes(crypto.PubkeyToAddress(key.PublicKey).Bytes())
	require.NoError(t, err)

	grant, err := engine.CreateAccessGrant(grantFor(requester, scope, input.Handles))
	require.NoError(t, err)

	sig, err := SignGrant(grant, key)
	require.NoError(t, err)

	values, err := engine.Decrypt(context.Background(), grant, sig)
	require.NoError(t, err)
	assert.Equal(t, uint32(85), values[input.Handles[0]])
	assert.Equal(t, uint32(90), values[input.Handles[1]])
}

func TestEncryptEmptyBatch(t *testing.T) {
	engine := newEngine(t)
	_, err := engine.NewEncryptedInput(testAddr(0xAA), testAddr(0x10)).Encrypt(context.Background())
	require.Error(t, err)
}

func TestVerifyInputProof(t *testing.T) {
	engine := newEngine(t)
	scope := testAddr(0xAA)
	owner := testAddr(0x10)

	input, err := engine.NewEncryptedInput(scope, owner).Add32(1).Add32(2).Encrypt(context.Background())
	require.NoError(t, err)

	assert.True(t, engine.VerifyInputProof(input.Handles, input.Proof, owner))

	// Wrong owner.
	assert.False(t, engine.VerifyInputProof(input.Handles, input.Proof, testAddr(0x11)))

	// Reordered handles.
	swapped := []interfaces.CiphertextHandle{input.Handles[1], input.Handles[0]}
	assert.False(t, engine.VerifyInputProof(swapped, input.Proof, owner))

	// Tampered proof bytes.
	tampered := append([]byte{}, input.Proof...)
	tampered[len(tampered)-1] ^= 0xFF
	assert.False(t, engine.VerifyInputProof(input.Handles, tampered, owner))

	// Truncated proof.
	assert.False(t, engine.VerifyInputProof(input.Handles, input.Proof[:20], owner))

	// A different engine has a different MAC key.
	other := newEngine(t)
	assert.False(t, other.VerifyInputProof(input.Handles, input.Proof, owner))
}

func TestCreateAccessGrantValidation(t *testing.T) {
	engine := newEngine(t)
	scope := testAddr(0xAA)

	input, err := engine.NewEncryptedInput(scope, testAddr(0x10)).Add32(1).Encrypt(context.Background())
	require.NoError(t, err)

	// Zero requester.
	_, err = engine.CreateAccessGrant(grantFor(interfaces.AccountAddress{}, scope, input.Handles))
	require.Error(t, err)

	// No handles.
	_, err = engine.CreateAccessGrant(grantFor(testAddr(0x20), scope, nil))
	require.Error(t, err)

	// Unknown handle.
	var bogus interfaces.CiphertextHandle
	bogus[0] = 0xFF
	_, err = engine.CreateAccessGrant(grantFor(testAddr(0x20), scope, []interfaces.CiphertextHandle{bogus}))
	require.ErrorIs(t, err, interfaces.ErrDecryptionFailed)
}

func TestDecryptWrongSigner(t *testing.T) {
	engine := newEngine(t)
	scope := testAddr(0xAA)

	input, err := engine.NewEncryptedInput(scope, testAddr(0x10)).Add32(7).Encrypt(context.Background())
	require.NoError(t, err)

	requesterKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	requester, err := interfaces.NewAccountAddressFromBytes(crypto.PubkeyToAddress(requesterKey.PublicKey).Bytes())
	require.NoError(t, err)

	grant, err := engine.CreateAccessGrant(grantFor(requester, scope, input.Handles))
	require.NoError(t, err)

	otherKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	sig, err := SignGrant(grant, otherKey)
	require.NoError(t, err)

	_, err = engine.Decrypt(context.Background(), grant, sig)
	require.ErrorIs(t, err, interfaces.ErrInvalidSignature)
}

func TestDecryptTamperedGrant(t *testing.T) {
	engine := newEngine(t)
	scope := testAddr(0xAA)

	input, err := engine.NewEncryptedInput(scope, testAddr(0x10)).Add32(7).Encrypt(context.Background())
	require.NoError(t, err)

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	requester, err := interfaces.NewAccountAddressFromBytes(crypto.PubkeyToAddress(key.PublicKey).Bytes())
	require.NoError(t, err)

	grant, err := engine.CreateAccessGrant(grantFor(requester, scope, input.Handles))
	require.NoError(t, err)
	sig, err := SignGrant(grant, key)
	require.NoError(t, err)

	// Widening the window after signing invalidates the digest.
	grant.Spec.DurationDays = 9999
	_, err = engine.Decrypt(context.Background(), grant, sig)
	require.ErrorIs(t, err, interfaces.ErrDecryptionFailed)
}

func TestDecryptValidityWindow(t *testing.T) {
	engine := newEngine(t)
	scope := testAddr(0xAA)
	start := time.Now()

	input, err := engine.NewEncryptedInput(scope, testAddr(0x10)).Add32(7).Encrypt(context.Background())
	require.NoError(t, err)

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	requester, err := interfaces.NewAccountAddressFromBytes(crypto.PubkeyToAddress(key.PublicKey).Bytes())
	require.NoError(t, err)

	spec := interfaces.AccessGrantSpec{
		Requester:    requester,
		Scope:        scope,
		Handles:      input.Handles,
		StartTime:    start.Unix(),
		DurationDays: 1,
	}
	grant, err := engine.CreateAccessGrant(spec)
	require.NoError(t, err)
	sig, err := SignGrant(grant, key)
	require.NoError(t, err)

	// Before the window opens.
	engine.WithClock(func() time.Time { return start.Add(-time.Hour) })
	_, err = engine.Decrypt(context.Background(), grant, sig)
	require.ErrorIs(t, err, interfaces.ErrGrantExpired)

	// Inside the window.
	engine.WithClock(func() time.Time { return start.Add(12 * time.Hour) })
	_, err = engine.Decrypt(context.Background(), grant, sig)
	require.NoError(t, err)

	// After expiry.
	engine.WithClock(func() time.Time { return start.Add(48 * time.Hour) })
	_, err = engine.Decrypt(context.Background(), grant, sig)
	require.ErrorIs(t, err, interfaces.ErrGrantExpired)
}

func TestDecryptScopeMismatch(t *testing.T) {
	engine := newEngine(t)

	input, err := engine.NewEncryptedInput(testAddr(0xAA), testAddr(0x10)).Add32(7).Encrypt(context.Background())
	require.NoError(t, err)

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	requester, err := interfaces.NewAccountAddressFromBytes(crypto.PubkeyToAddress(key.PublicKey).Bytes())
	require.NoError(t, err)

	// Grant names a scope the handles were not sealed under.
	grant, err := engine.CreateAccessGrant(grantFor(requester, testAddr(0xBB), input.Handles))
	require.NoError(t, err)
	sig, err := SignGrant(grant, key)
	require.NoError(t, err)

	_, err = engine.Decrypt(context.Background(), grant, sig)
	require.ErrorIs(t, err, interfaces.ErrDecryptionFailed)
}
