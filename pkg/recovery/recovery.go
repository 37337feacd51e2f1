// Package recovery implements share recovery with quorum: a party that
// has lost its local signing-share/sub-share material proves possession
// of its identity via a single-signature challenge, and a peer holding
// an encrypted backup of that material releases it.
package recovery

import (
	"github.com/luxfi/wamu/pkg/challenge"
	"github.com/luxfi/wamu/pkg/crypto"
	"github.com/luxfi/wamu/pkg/identity"
	"github.com/luxfi/wamu/pkg/request"
)

const tag = request.TagShareRecovery

// Initiate returns the request payload a party broadcasts to begin
// recovering its share.
func Initiate(idp identity.Provider) request.IdentityAuthedRequestPayload {
	return request.Initiate(tag, idp)
}

// VerifyRequestAndInitiateChallenge is the verifier-side entry point:
// one call per verifying party.
func VerifyRequestAndInitiateChallenge(req request.IdentityAuthedRequestPayload, verifiedParties []crypto.VerifyingKey) (challenge.Fragment, error) {
	return request.VerifyAndInitiateChallenge(tag, req, verifiedParties)
}

// ChallengeResponse signs the challenge-fragment aggregate with idp,
// unlike rotation there is only one identity involved.
func ChallengeResponse(challengeFragments []challenge.Fragment, idp identity.Provider) crypto.Signature {
	return challenge.Respond(challengeFragments, idp)
}

// VerifyChallengeResponse checks signature against challengeFragments
// under verifyingKey.
func VerifyChallengeResponse(signature crypto.Signature, challengeFragments []challenge.Fragment, verifyingKey crypto.VerifyingKey) error {
	return challenge.Verify(signature, challengeFragments, verifyingKey)
}
