// Package identity defines the capability every party must provide to
// participate in the identity-bound share protocols: a decentralized
// signing identity, e.g. a hardware wallet or OS keystore backed
// ECDSA/secp256k1 key pair.
package identity

import "github.com/luxfi/wamu/pkg/crypto"

// Provider is the abstract capability set a party's decentralized
// identity must expose.
//
// Sign and SignMessageShare must be deterministic given the same input:
// share reconstruction depends on SignMessageShare reproducing the exact
// same (r, s) pair every time it is called with the same message, so a
// non-deterministic ECDSA signer (one that doesn't derive its nonce per
// RFC 6979) must be wrapped to inject a deterministic nonce, or
// reconstruction will silently produce the wrong secret.
type Provider interface {
	// VerifyingKey returns the identity's public key. It must be stable
	// for the lifetime of the provider.
	VerifyingKey() crypto.VerifyingKey

	// Sign returns a verifiable signature over msg.
	Sign(msg []byte) crypto.Signature

	// SignMessageShare returns the raw ECDSA scalar components (r, s) of
	// a signature over msg, without ASN.1/DER encoding. Share algebra
	// derives a sub-share from (r, s) treated as field elements, so both
	// must be strictly less than the curve order.
	SignMessageShare(msg []byte) (r [32]byte, s [32]byte)
}
