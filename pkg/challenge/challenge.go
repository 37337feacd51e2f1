// Package challenge implements the identity challenge: a lightweight
// proof-of-possession round used to gate identity rotation, quorum
// approval and share recovery before any key material changes hands.
//
// Each verifier independently samples a random fragment; the initiator
// aggregates every fragment it received (sum mod q, so the aggregation
// is commutative and order-independent) and signs the aggregate with
// the identity under challenge. A verifier accepts only if the response
// signs an aggregate that actually includes the fragment it emitted,
// which defeats an initiator that tries to omit a verifier's fragment
// to narrow the set of values it must account for.
package challenge

import (
	"github.com/luxfi/wamu/pkg/crypto"
	"github.com/luxfi/wamu/pkg/field"
	"github.com/luxfi/wamu/pkg/identity"
	"github.com/luxfi/wamu/pkg/werror"
)

// Fragment is a single verifier's contribution to the challenge
// aggregate.
type Fragment = field.Element

// domainSeparator tags the aggregate before it is signed, so a
// challenge-response signature can't be replayed as a signature over
// unrelated protocol data that happens to hash to the same aggregate.
const domainSeparator = "wamu-identity-challenge:"

// Initiate samples a fresh random fragment. Called once per verifier.
func Initiate() Fragment {
	return field.Random()
}

// FragmentFromBytes decodes a wire-transmitted fragment.
func FragmentFromBytes(b [32]byte) (Fragment, error) {
	return field.FromBytes(b[:])
}

// aggregate sums fragments mod q.
func aggregate(fragments []Fragment) field.Element {
	sum := field.Zero()
	for _, f := range fragments {
		sum = sum.Add(f)
	}
	return sum
}

func signedMessage(fragments []Fragment) []byte {
	sum := aggregate(fragments)
	b := sum.Bytes()
	msg := make([]byte, 0, len(domainSeparator)+len(b))
	msg = append(msg, domainSeparator...)
	msg = append(msg, b[:]...)
	return msg
}

// Respond signs the aggregate of fragments with idp, proving possession
// of the identity without revealing any secret share material.
func Respond(fragments []Fragment, idp identity.Provider) crypto.Signature {
	return idp.Sign(signedMessage(fragments))
}

// Verify checks that signature is a valid response to fragments under
// verifyingKey.
func Verify(signature crypto.Signature, fragments []Fragment, verifyingKey crypto.VerifyingKey) error {
	if err := crypto.VerifySignature(verifyingKey, signedMessage(fragments), signature); err != nil {
		return werror.New(werror.InvalidSignature)
	}
	return nil
}
