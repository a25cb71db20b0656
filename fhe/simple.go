package fhe

import (
	"context"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/hkdf"

	"github.com/certvault/certificate-registry-backend/interfaces"
)

// SimpleFHE provides a deterministic confidential-compute implementation.
// All key material derives from a master seed, suitable for development and
// testing. Ciphertexts live inside the engine; callers hold handles only.
type SimpleFHE struct {
	masterSeed []byte
	mu         sync.RWMutex
	sealed     map[interfaces.CiphertextHandle]sealedValue
	now        func() time.Time
}

type sealedValue struct {
	scope      interfaces.AccountAddress
	owner      interfaces.AccountAddress
	ciphertext [4]byte
}

// NewSimpleFHE creates a new engine with the provided master seed.
// The seed must be at least 32 bytes long.
func NewSimpleFHE(masterSeed []byte) (*SimpleFHE, error) {
	if len(masterSeed) < 32 {
		return nil, errors.New("master seed must be at least 32 bytes")
	}

	return &SimpleFHE{
		masterSeed: masterSeed,
		sealed:     make(map[interfaces.CiphertextHandle]sealedValue),
		now:        time.Now,
	}, nil
}

// WithClock returns the same engine with a replaced time source.
// Used by tests to exercise grant validity windows.
func (f *SimpleFHE) WithClock(now func() time.Time) *SimpleFHE {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = now
	return f
}

// inputBuilder accumulates 32-bit values for batch encryption.
type inputBuilder struct {
	engine *SimpleFHE
	scope  interfaces.AccountAddress
	owner  interfaces.AccountAddress
	values []uint32
}

// NewEncryptedInput starts a batch encryption bound to (scope, owner).
func (f *SimpleFHE) NewEncryptedInput(scope, owner interfaces.AccountAddress) interfaces.EncryptedInputBuilder {
	return &inputBuilder{engine: f, scope: scope, owner: owner}
}

// Add32 appends a 32-bit value to the batch.
func (b *inputBuilder) Add32(value uint32) interfaces.EncryptedInputBuilder {
	b.values = append(b.values, value)
	return b
}

// Encrypt seals every value in the batch and returns one handle per value
// plus the input proof covering the whole batch.
func (b *inputBuilder) Encrypt(ctx context.Context) (interfaces.EncryptedInput, error) {
	if len(b.values) == 0 {
		return interfaces.EncryptedInput{}, errors.New("empty encrypted input batch")
	}

	handles := make([]interfaces.CiphertextHandle, 0, len(b.values))

	b.engine.mu.Lock()
	for _, value := range b.values {
		handle, sealed, err := b.engine.seal(b.scope, b.owner, value)
		if err != nil {
			b.engine.mu.Unlock()
			return interfaces.EncryptedInput{}, err
		}
		b.engine.sealed[handle] = sealed
		handles = append(handles, handle)
	}
	b.engine.mu.Unlock()

	proof, err := b.engine.inputProof(handles, b.scope, b.owner)
	if err != nil {
		return interfaces.EncryptedInput{}, err
	}

	return interfaces.EncryptedInput{Handles: handles, Proof: proof}, nil
}

// seal encrypts one value under a fresh handle. Caller holds the lock.
func (f *SimpleFHE) seal(scope, owner interfaces.AccountAddress, value uint32) (interfaces.CiphertextHandle, sealedValue, error) {
	var nonce [16]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return interfaces.CiphertextHandle{}, sealedValue{}, fmt.Errorf("nonce generation failed: %w", err)
	}

	handle := interfaces.CiphertextHandle(crypto.Keccak256Hash(scope[:], owner[:], nonce[:]))

	keystream, err := f.fieldKeystream(handle)
	if err != nil {
		return interfaces.CiphertextHandle{}, sealedValue{}, err
	}

	var plain [4]byte
	binary.BigEndian.PutUint32(plain[:], value)

	var ct [4]byte
	for i := range ct {
		ct[i] = plain[i] ^ keystream[i]
	}

	return handle, sealedValue{scope: scope, owner: owner, ciphertext: ct}, nil
}

// fieldKeystream derives the 4-byte keystream for a handle from the master
// seed.
func (f *SimpleFHE) fieldKeystream(handle interfaces.CiphertextHandle) ([4]byte, error) {
	var keystream [4]byte
	kdf := hkdf.New(sha256.New, f.masterSeed, handle[:], []byte("field-key"))
	if _, err := io.ReadFull(kdf, keystream[:]); err != nil {
		return keystream, fmt.Errorf("keystream derivation failed: %w", err)
	}
	return keystream, nil
}

// macKey derives the proof MAC key from the master seed.
func (f *SimpleFHE) macKey() ([]byte, error) {
	key := make([]byte, 32)
	kdf := hkdf.New(sha256.New, f.masterSeed, nil, []byte("input-proof"))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("mac key derivation failed: %w", err)
	}
	return key, nil
}

// inputProof binds a batch of handles to its (scope, owner) pair. The proof
// carries the scope in the clear followed by a keyed digest, so verification
// needs only the handles and the owner.
func (f *SimpleFHE) inputProof(handles []interfaces.CiphertextHandle, scope, owner interfaces.AccountAddress) ([]byte, error) {
	mac, err := f.proofMAC(handles, scope, owner)
	if err != nil {
		return nil, err
	}

	proof := make([]byte, 0, 20+32)
	proof = append(proof, scope[:]...)
	proof = append(proof, mac[:]...)
	return proof, nil
}

func (f *SimpleFHE) proofMAC(handles []interfaces.CiphertextHandle, scope, owner interfaces.AccountAddress) ([32]byte, error) {
	packed, err := packGrantMaterial(scope, owner, handles, 0, 0)
	if err != nil {
		return [32]byte{}, err
	}

	key, err := f.macKey()
	if err != nil {
		return [32]byte{}, err
	}

	return crypto.Keccak256Hash(key, packed), nil
}

// VerifyInputProof checks that the handles were honestly constructed for the
// (scope, owner) pair embedded in the proof. Pass/fail only.
func (f *SimpleFHE) VerifyInputProof(handles []interfaces.CiphertextHandle, proof []byte, owner interfaces.AccountAddress) bool {
	if len(proof) != 20+32 {
		return false
	}

	var scope interfaces.AccountAddress
	copy(scope[:], proof[:20])

	expected, err := f.proofMAC(handles, scope, owner)
	if err != nil {
		return false
	}

	var got [32]byte
	copy(got[:], proof[20:])
	return got == expected
}

// CreateAccessGrant turns an authorized spec into a grant the requester can
// sign. Every handle must be known to the engine.
func (f *SimpleFHE) CreateAccessGrant(spec interfaces.AccessGrantSpec) (interfaces.SignableGrant, error) {
	if spec.Requester.IsZero() {
		return interfaces.SignableGrant{}, errors.New("grant requester must not be the zero address")
	}
	if len(spec.Handles) == 0 {
		return interfaces.SignableGrant{}, errors.New("grant must cover at least one handle")
	}

	f.mu.RLock()
	for _, handle := range spec.Handles {
		if _, ok := f.sealed[handle]; !ok {
			f.mu.RUnlock()
			return interfaces.SignableGrant{}, fmt.Errorf("%w: unknown handle %s", interfaces.ErrDecryptionFailed, handle)
		}
	}
	f.mu.RUnlock()

	digest, err := grantDigest(spec)
	if err != nil {
		return interfaces.SignableGrant{}, err
	}

	return interfaces.SignableGrant{Spec: spec, Digest: digest}, nil
}

// Decrypt verifies the requester's signature over the grant digest and the
// validity window, then returns plaintexts keyed by handle.
func (f *SimpleFHE) Decrypt(ctx context.Context, grant interfaces.SignableGrant, signature []byte) (map[interfaces.CiphertextHandle]uint32, error) {
	expected, err := grantDigest(grant.Spec)
	if err != nil {
		return nil, err
	}
	if expected != grant.Digest {
		return nil, fmt.Errorf("%w: grant digest mismatch", interfaces.ErrDecryptionFailed)
	}

	pub, err := crypto.SigToPub(grant.Digest[:], signature)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrInvalidSignature, err)
	}
	signer := crypto.PubkeyToAddress(*pub)
	if signer != common.Address(grant.Spec.Requester) {
		return nil, interfaces.ErrInvalidSignature
	}

	now := f.now().Unix()
	expiry := grant.Spec.StartTime + int64(grant.Spec.DurationDays)*24*60*60
	if now < grant.Spec.StartTime || now > expiry {
		return nil, interfaces.ErrGrantExpired
	}

	result := make(map[interfaces.CiphertextHandle]uint32, len(grant.Spec.Handles))

	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, handle := range grant.Spec.Handles {
		sealed, ok := f.sealed[handle]
		if !ok {
			return nil, fmt.Errorf("%w: unknown handle %s", interfaces.ErrDecryptionFailed, handle)
		}
		if sealed.scope != grant.Spec.Scope {
			return nil, fmt.Errorf("%w: handle %s outside grant scope", interfaces.ErrDecryptionFailed, handle)
		}

		keystream, err := f.fieldKeystream(handle)
		if err != nil {
			return nil, err
		}

		var plain [4]byte
		for i := range plain {
			plain[i] = sealed.ciphertext[i] ^ keystream[i]
		}
		result[handle] = binary.BigEndian.Uint32(plain[:])
	}

	return result, nil
}

// SignGrant signs a grant digest with the requester's key. Provided for
// clients and tests; a production requester signs in its own wallet.
func SignGrant(grant interfaces.SignableGrant, key *ecdsa.PrivateKey) ([]byte, error) {
	return crypto.Sign(grant.Digest[:], key)
}

// grantDigest computes the EIP-191 style digest a requester signs:
// keccak over the ABI-packed grant fields, wrapped in the signed-message
// envelope so wallet signatures can produce it.
func grantDigest(spec interfaces.AccessGrantSpec) ([32]byte, error) {
	packed, err := packGrantMaterial(spec.Scope, spec.Requester, spec.Handles, spec.StartTime, spec.DurationDays)
	if err != nil {
		return [32]byte{}, err
	}

	inner := crypto.Keccak256(packed)
	var digest [32]byte
	copy(digest[:], accounts.TextHash(inner))
	return digest, nil
}

// packGrantMaterial ABI-packs the fields shared by input proofs and grant
// digests.
func packGrantMaterial(scope, account interfaces.AccountAddress, handles []interfaces.CiphertextHandle, startTime int64, durationDays uint32) ([]byte, error) {
	addressTy, _ := abi.NewType("address", "", nil)
	bytes32ArrTy, _ := abi.NewType("bytes32[]", "", nil)
	uint64Ty, _ := abi.NewType("uint64", "", nil)
	uint32Ty, _ := abi.NewType("uint32", "", nil)

	arguments := abi.Arguments{
		{Type: addressTy},
		{Type: addressTy},
		{Type: bytes32ArrTy},
		{Type: uint64Ty},
		{Type: uint32Ty},
	}

	rawHandles := make([][32]byte, len(handles))
	for i, h := range handles {
		rawHandles[i] = h
	}

	return arguments.Pack(common.Address(scope), common.Address(account), rawHandles, uint64(startTime), durationDays)
}
