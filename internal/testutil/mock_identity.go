// Package testutil provides deterministic fixtures shared by this
// module's tests: a mock decentralized identity provider and small party
// ID helpers, mirroring the role of the teacher's internal/test package.
package testutil

import (
	"crypto/sha256"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"

	"github.com/luxfi/wamu/pkg/crypto"
	"github.com/luxfi/wamu/pkg/party"
)

// MockIdentityProvider is a secp256k1-backed identity.Provider used by
// tests and simulations. Signing is deterministic (RFC 6979), satisfying
// the reproducibility the share algebra depends on.
type MockIdentityProvider struct {
	priv *secp256k1.PrivateKey
}

// NewMockIdentityProvider generates a fresh random identity.
func NewMockIdentityProvider() *MockIdentityProvider {
	priv, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		panic(err)
	}
	return &MockIdentityProvider{priv: priv}
}

// VerifyingKey implements identity.Provider.
func (m *MockIdentityProvider) VerifyingKey() crypto.VerifyingKey {
	return crypto.NewSecp256k1VerifyingKey(m.priv.PubKey().SerializeCompressed())
}

// Sign implements identity.Provider.
func (m *MockIdentityProvider) Sign(msg []byte) crypto.Signature {
	digest := sha256.Sum256(msg)
	sig := ecdsa.Sign(m.priv, digest[:])
	return crypto.NewSecp256k1Signature(sig.Serialize())
}

// SignMessageShare implements identity.Provider using the compact
// recoverable signature format to recover the raw (r, s) scalars
// without going through DER.
func (m *MockIdentityProvider) SignMessageShare(msg []byte) (r [32]byte, s [32]byte) {
	digest := sha256.Sum256(msg)
	compact := ecdsa.SignCompact(m.priv, digest[:], true)
	// compact = [recovery_id(1) || r(32) || s(32)]
	copy(r[:], compact[1:33])
	copy(s[:], compact[33:65])
	return r, s
}

// PartyIDs returns n sequential party IDs starting at 1, mirroring the
// teacher's test.PartyIDs helper.
func PartyIDs(n int) []party.ID {
	ids := make([]party.ID, n)
	for i := 0; i < n; i++ {
		ids[i] = party.ID(i + 1)
	}
	return ids
}
