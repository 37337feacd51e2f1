// Package share implements the identity-bound share algebra at the heart
// of the protocol: splitting a threshold secret share into a persistable
// "signing share" plus "sub-share" pair, and reconstructing it given the
// same identity provider that produced the split.
//
// This is not Shamir secret sharing over peers. It is a two-point
// Lagrange line over the prime field of order q (the secp256k1 curve
// order), where one point is derived deterministically from the party's
// decentralized identity.
package share

import (
	"crypto/rand"

	"github.com/luxfi/wamu/pkg/field"
	"github.com/luxfi/wamu/pkg/identity"
	"github.com/luxfi/wamu/pkg/werror"
)

// SigningShare is a uniformly random 32-byte value, persisted by its
// owning party and combined with an identity provider to derive one of
// the two points on the sub-share interpolator line.
type SigningShare struct {
	b [32]byte
}

// NewSigningShare samples a fresh random signing share.
func NewSigningShare() SigningShare {
	var b [32]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err)
	}
	return SigningShare{b: b}
}

// SigningShareFromBytes wraps a 32-byte slice as a SigningShare.
func SigningShareFromBytes(b []byte) (SigningShare, error) {
	if len(b) != 32 {
		return SigningShare{}, werror.New(werror.InvalidInput)
	}
	var s SigningShare
	copy(s.b[:], b)
	return s, nil
}

// Bytes returns the underlying 32 bytes.
func (s SigningShare) Bytes() [32]byte {
	return s.b
}

// Scrub overwrites the signing share's memory with zeroes. Callers should
// invoke this when the share's owner is destroyed.
func (s *SigningShare) Scrub() {
	for i := range s.b {
		s.b[i] = 0
	}
}

// SubShare is a point (x, y) on the interpolator line. x = 0 denotes the
// secret point and must never be transmitted; both coordinates must be
// strictly less than the curve order.
type SubShare struct {
	x, y field.Element
}

// NewSubShare builds a sub-share point. It performs no range check of its
// own: both coordinates are already strictly less than the curve order,
// since field.Element can only be constructed from in-range bytes or
// field arithmetic.
func NewSubShare(x, y field.Element) SubShare {
	return SubShare{x: x, y: y}
}

// X returns the x-coordinate.
func (s SubShare) X() field.Element { return s.x }

// Y returns the y-coordinate.
func (s SubShare) Y() field.Element { return s.y }

// Scrub overwrites the sub-share's coordinates with zero elements.
func (s *SubShare) Scrub() {
	s.x = field.Zero()
	s.y = field.Zero()
}

// Interpolator is the line y = gradient*x + intercept (mod q) determined
// by any two distinct points.
type Interpolator struct {
	gradient, intercept field.Element
}

// NewInterpolator builds the unique line through a and b.
//
// The gradient is dy/dx (mod q), computed via the modular multiplicative
// inverse of dx; since q is prime, gcd(dx, q) = 1 whenever dx != 0, so
// the inverse always exists when the two x-coordinates differ.
func NewInterpolator(a, b SubShare) (*Interpolator, error) {
	if a.x.Equal(b.x) {
		return nil, werror.New(werror.InvalidInput)
	}
	dy := a.y.Sub(b.y)
	dx := a.x.Sub(b.x)
	gradient := dy.Mul(dx.Inverse())
	intercept := a.y.Sub(gradient.Mul(a.x))
	return &Interpolator{gradient: gradient, intercept: intercept}, nil
}

// Secret returns the line's value at x = 0, i.e. its intercept.
func (in *Interpolator) Secret() field.Element {
	return in.intercept
}

// SubShare returns the unique point on the line at the given index. The
// index must not be zero (that point is the secret, not a transmissible
// sub-share).
func (in *Interpolator) SubShare(idx field.Element) (SubShare, error) {
	if idx.IsZero() {
		return SubShare{}, werror.New(werror.InvalidInput)
	}
	y := in.gradient.Mul(idx).Add(in.intercept)
	return SubShare{x: idx, y: y}, nil
}

// Scrub overwrites the interpolator's coefficients with zero elements.
func (in *Interpolator) Scrub() {
	in.gradient = field.Zero()
	in.intercept = field.Zero()
}

// Split derives a (SigningShare, SubShare) pair for secret using idp.
//
// The flow: sample a fresh signing share, derive sub-share A from it via
// the identity provider's deterministic signature side-channel, build the
// line through (0, secret) and A, and return sub-share B at index 1.
func Split(secret field.Element, idp identity.Provider) (SigningShare, SubShare) {
	signingShare := NewSigningShare()
	b := signingShare.Bytes()
	r, s := idp.SignMessageShare(b[:])
	xA, err := field.FromBytes(r[:])
	if err != nil {
		panic(err)
	}
	yA, err := field.FromBytes(s[:])
	if err != nil {
		panic(err)
	}
	subShareA := NewSubShare(xA, yA)

	interpolator, err := NewInterpolator(NewSubShare(field.Zero(), secret), subShareA)
	if err != nil {
		panic(err)
	}
	subShareB, err := interpolator.SubShare(field.FromUint64(1))
	if err != nil {
		panic(err)
	}
	return signingShare, subShareB
}

// Reconstruct recovers the secret share associated with signingShare,
// subShareB and idp. The secret never escapes this function except as
// the returned value; intermediate state is not retained.
func Reconstruct(signingShare SigningShare, subShareB SubShare, idp identity.Provider) (field.Element, error) {
	b := signingShare.Bytes()
	r, s := idp.SignMessageShare(b[:])
	xA, err := field.FromBytes(r[:])
	if err != nil {
		return field.Element{}, werror.Wrap(werror.Core, err)
	}
	yA, err := field.FromBytes(s[:])
	if err != nil {
		return field.Element{}, werror.Wrap(werror.Core, err)
	}
	subShareA := NewSubShare(xA, yA)

	interpolator, err := NewInterpolator(subShareA, subShareB)
	if err != nil {
		return field.Element{}, err
	}
	return interpolator.Secret(), nil
}
