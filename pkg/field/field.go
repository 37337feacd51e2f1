// Package field implements modular arithmetic over the order of the
// secp256k1 elliptic curve, the prime field the sub-share interpolator
// operates over.
package field

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"

	"github.com/cronokirby/saferith"
)

// secp256k1OrderHex is the order of the secp256k1 curve's base point.
//
// Ref: https://www.secg.org/sec2-v2.pdf
const secp256k1OrderHex = "FFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFEBAAEDCE6AF48A03BBFD25E8CD0364141"

var (
	order    *saferith.Modulus
	orderBig *big.Int
)

func init() {
	raw, err := hex.DecodeString(secp256k1OrderHex)
	if err != nil {
		panic(fmt.Sprintf("field: bad order constant: %v", err))
	}
	orderBig = new(big.Int).SetBytes(raw)
	order = saferith.ModulusFromBytes(raw)
}

// Order returns the modulus shared by all elements of this field.
func Order() *saferith.Modulus {
	return order
}

// OrderBig returns the curve order as a big.Int, for callers that need to
// compare against it directly (e.g. sub-share index validation).
func OrderBig() *big.Int {
	return new(big.Int).Set(orderBig)
}

// Element is a value modulo the secp256k1 curve order.
type Element struct {
	n *saferith.Nat
}

// Zero returns the additive identity.
func Zero() Element {
	return Element{n: new(saferith.Nat).SetUint64(0)}
}

// FromBytes decodes a big-endian 32-byte value, rejecting values that are
// not strictly less than the curve order.
func FromBytes(b []byte) (Element, error) {
	n := new(saferith.Nat).SetBytes(b)
	e := Element{n: n}
	if !e.lessThanOrder() {
		return Element{}, fmt.Errorf("field: value is not less than the curve order")
	}
	return e, nil
}

// Random draws a uniformly random element via rejection sampling.
//
// Ref: crypto.rs random_mod, which performs the equivalent rejection
// sampling against the curve order using the platform CSPRNG.
func Random() Element {
	for {
		b := make([]byte, 32)
		if _, err := rand.Read(b); err != nil {
			panic(fmt.Sprintf("field: failed to read randomness: %v", err))
		}
		candidate := new(big.Int).SetBytes(b)
		if candidate.Cmp(orderBig) < 0 {
			n := new(saferith.Nat).SetBytes(b)
			return Element{n: n}
		}
	}
}

// FromUint64 builds a small element, mainly useful for indices.
func FromUint64(v uint64) Element {
	return Element{n: new(saferith.Nat).SetUint64(v)}
}

// Bytes returns the big-endian, 32-byte encoding of e.
func (e Element) Bytes() [32]byte {
	var out [32]byte
	raw := e.n.Bytes()
	copy(out[32-len(raw):], raw)
	return out
}

// IsZero reports whether e is the additive identity.
func (e Element) IsZero() bool {
	return new(big.Int).SetBytes(e.n.Bytes()).Sign() == 0
}

// Equal reports whether e and other represent the same residue.
func (e Element) Equal(other Element) bool {
	return new(big.Int).SetBytes(e.n.Bytes()).Cmp(new(big.Int).SetBytes(other.n.Bytes())) == 0
}

// Add returns e + other (mod q).
func (e Element) Add(other Element) Element {
	return Element{n: new(saferith.Nat).ModAdd(e.n, other.n, order)}
}

// Sub returns e - other (mod q).
func (e Element) Sub(other Element) Element {
	return Element{n: new(saferith.Nat).ModSub(e.n, other.n, order)}
}

// Mul returns e * other (mod q).
func (e Element) Mul(other Element) Element {
	return Element{n: new(saferith.Nat).ModMul(e.n, other.n, order)}
}

// Inverse returns the modular multiplicative inverse of e.
//
// Ref: http://en.wikipedia.org/wiki/Modular_multiplicative_inverse#Computation
func (e Element) Inverse() Element {
	return Element{n: new(saferith.Nat).ModInverse(e.n, order)}
}

func (e Element) lessThanOrder() bool {
	return new(big.Int).SetBytes(e.n.Bytes()).Cmp(orderBig) < 0
}
