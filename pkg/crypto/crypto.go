// Package crypto provides the cryptographic primitives shared across the
// identity-bound share protocols: the tagged verifying-key/signature
// records, signature verification dispatch, and uniform sampling modulo
// the secp256k1 curve order.
//
// The cryptographic profile is fixed: ECDSA over secp256k1, SEC1 public
// key encoding, DER signature encoding, SHA-256.
package crypto

import (
	"crypto/sha256"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"

	"github.com/luxfi/wamu/pkg/field"
	"github.com/luxfi/wamu/pkg/werror"
)

// SignatureAlgorithm tags the algorithm family a Signature/VerifyingKey
// pair was produced with.
type SignatureAlgorithm int

const (
	ECDSA SignatureAlgorithm = iota
	EdDSA
)

// EllipticCurve tags the curve a VerifyingKey/Signature pair lives on.
type EllipticCurve int

const (
	Secp256k1 EllipticCurve = iota
	Curve25519
)

// HashFunction tags the hash used to produce a Signature.
type HashFunction int

const (
	SHA256 HashFunction = iota
	Keccak256
)

// KeyEncoding tags the wire encoding of a VerifyingKey.
type KeyEncoding int

const (
	SEC1 KeyEncoding = iota
	EIP55
)

// SignatureEncoding tags the wire encoding of a Signature.
type SignatureEncoding int

const (
	DER SignatureEncoding = iota
	RLP
)

// VerifyingKey is a tagged public key. Two verifying keys are only
// comparable when every tag matches.
type VerifyingKey struct {
	Key       []byte
	Algorithm SignatureAlgorithm
	Curve     EllipticCurve
	Encoding  KeyEncoding
}

// Equal reports whether vk and other refer to the same key under the same
// tags.
func (vk VerifyingKey) Equal(other VerifyingKey) bool {
	return vk.Algorithm == other.Algorithm &&
		vk.Curve == other.Curve &&
		vk.Encoding == other.Encoding &&
		bytesEqual(vk.Key, other.Key)
}

// Signature is a tagged signature.
type Signature struct {
	Sig       []byte
	Algorithm SignatureAlgorithm
	Curve     EllipticCurve
	Hash      HashFunction
	Encoding  SignatureEncoding
}

// NewSecp256k1VerifyingKey wraps a SEC1-compressed public key in the
// profile's tags.
func NewSecp256k1VerifyingKey(sec1 []byte) VerifyingKey {
	return VerifyingKey{
		Key:       sec1,
		Algorithm: ECDSA,
		Curve:     Secp256k1,
		Encoding:  SEC1,
	}
}

// NewSecp256k1Signature wraps a DER-encoded ECDSA/SHA-256 signature in the
// profile's tags.
func NewSecp256k1Signature(der []byte) Signature {
	return Signature{
		Sig:       der,
		Algorithm: ECDSA,
		Curve:     Secp256k1,
		Hash:      SHA256,
		Encoding:  DER,
	}
}

// RandomMod returns a cryptographically secure, uniformly random value
// less than the order of the secp256k1 curve.
func RandomMod() [32]byte {
	return field.Random().Bytes()
}

// VerifySignature checks signature against msg under verifyingKey,
// dispatching on the declared tags. Only the ECDSA/secp256k1/SEC1/DER/
// SHA-256 combination is currently supported; every other combination of
// tags fails with a specific mismatch or unsupported-combination error.
//
// Verification is side-channel tolerant but is not performed in constant
// time.
func VerifySignature(verifyingKey VerifyingKey, msg []byte, signature Signature) error {
	if verifyingKey.Algorithm != signature.Algorithm {
		return werror.New(werror.SignatureAlgorithmMismatch)
	}
	if verifyingKey.Curve != signature.Curve {
		return werror.New(werror.EllipticCurveMismatch)
	}

	if verifyingKey.Algorithm != ECDSA {
		return werror.New(werror.UnsupportedSignatureAlgorithm)
	}
	if verifyingKey.Curve != Secp256k1 {
		return werror.New(werror.UnsupportedEllipticCurve)
	}
	if verifyingKey.Encoding != SEC1 {
		return werror.New(werror.UnsupportedKeyEncoding)
	}
	if signature.Encoding != DER {
		return werror.New(werror.UnsupportedSignatureEncoding)
	}
	if signature.Hash != SHA256 {
		return werror.New(werror.UnsupportedHashFunction)
	}

	pub, err := secp256k1.ParsePubKey(verifyingKey.Key)
	if err != nil {
		return werror.New(werror.InvalidVerifyingKey)
	}
	sig, err := ecdsa.ParseDERSignature(signature.Sig)
	if err != nil {
		return werror.New(werror.InvalidSignature)
	}

	digest := sha256.Sum256(msg)
	if !sig.Verify(digest[:], pub) {
		return werror.New(werror.InvalidSignature)
	}
	return nil
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
