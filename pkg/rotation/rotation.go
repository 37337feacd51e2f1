// Package rotation implements identity rotation: replacing a party's
// decentralized identity while keeping the secret share it authorizes
// stable, via a local reconstruct-then-split (no multi-party key
// refresh is required).
package rotation

import (
	"github.com/luxfi/wamu/pkg/challenge"
	"github.com/luxfi/wamu/pkg/crypto"
	"github.com/luxfi/wamu/pkg/identity"
	"github.com/luxfi/wamu/pkg/request"
	"github.com/luxfi/wamu/pkg/share"
)

const tag = request.TagIdentityRotation

// Initiate returns the request payload the current identity broadcasts
// to begin a rotation.
func Initiate(currentIdp identity.Provider) request.IdentityAuthedRequestPayload {
	return request.Initiate(tag, currentIdp)
}

// VerifyRequestAndInitiateChallenge is the verifier-side entry point:
// one call per verifying party.
func VerifyRequestAndInitiateChallenge(req request.IdentityAuthedRequestPayload, verifiedParties []crypto.VerifyingKey) (challenge.Fragment, error) {
	return request.VerifyAndInitiateChallenge(tag, req, verifiedParties)
}

// ChallengeResponsePayload carries the new verifying key plus two
// signatures over the same challenge-fragment aggregate: one from the
// current identity, one from the new identity. Verifiers must check
// both before accepting the rotation.
type ChallengeResponsePayload struct {
	NewVerifyingKey  crypto.VerifyingKey
	CurrentSignature crypto.Signature
	NewSignature     crypto.Signature
}

// ChallengeResponse builds the dual-signature response to
// challengeFragments, proving control of both the outgoing and
// incoming identity.
func ChallengeResponse(challengeFragments []challenge.Fragment, currentIdp, newIdp identity.Provider) ChallengeResponsePayload {
	return ChallengeResponsePayload{
		NewVerifyingKey:  newIdp.VerifyingKey(),
		CurrentSignature: challenge.Respond(challengeFragments, currentIdp),
		NewSignature:     challenge.Respond(challengeFragments, newIdp),
	}
}

// VerifyChallengeResponse checks both signatures in response: the
// current-identity signature against currentVerifyingKey, and the
// new-identity signature against response.NewVerifyingKey.
func VerifyChallengeResponse(response ChallengeResponsePayload, challengeFragments []challenge.Fragment, currentVerifyingKey crypto.VerifyingKey) error {
	if err := challenge.Verify(response.CurrentSignature, challengeFragments, currentVerifyingKey); err != nil {
		return err
	}
	return challenge.Verify(response.NewSignature, challengeFragments, response.NewVerifyingKey)
}

// RotateSigningAndSubShare reconstructs the secret share under
// currentIdp and re-splits it under newIdp, producing the signing share
// and sub-share the party will persist going forward. The intermediate
// secret never leaves this function.
func RotateSigningAndSubShare(signingShare share.SigningShare, subShareB share.SubShare, currentIdp, newIdp identity.Provider) (share.SigningShare, share.SubShare, error) {
	secret, err := share.Reconstruct(signingShare, subShareB, currentIdp)
	if err != nil {
		return share.SigningShare{}, share.SubShare{}, err
	}
	newSigningShare, newSubShareB := share.Split(secret, newIdp)
	return newSigningShare, newSubShareB, nil
}
