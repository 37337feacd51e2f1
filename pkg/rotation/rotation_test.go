package rotation_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/wamu/internal/testutil"
	"github.com/luxfi/wamu/pkg/challenge"
	"github.com/luxfi/wamu/pkg/crypto"
	"github.com/luxfi/wamu/pkg/field"
	"github.com/luxfi/wamu/pkg/rotation"
	"github.com/luxfi/wamu/pkg/share"
)

func TestIdentityRotationWorks(t *testing.T) {
	currentIdp := testutil.NewMockIdentityProvider()
	secret := field.Random()
	signingShare, subShareB := share.Split(secret, currentIdp)

	newIdp := testutil.NewMockIdentityProvider()

	initPayload := rotation.Initiate(currentIdp)

	fragments := make([]challenge.Fragment, 5)
	for i := range fragments {
		f, err := rotation.VerifyRequestAndInitiateChallenge(initPayload, []crypto.VerifyingKey{currentIdp.VerifyingKey()})
		require.NoError(t, err)
		fragments[i] = f
	}

	valid := rotation.ChallengeResponse(fragments, currentIdp, newIdp)
	require.NoError(t, rotation.VerifyChallengeResponse(valid, fragments, currentIdp.VerifyingKey()))

	wrongSigner := rotation.ChallengeResponse(fragments, testutil.NewMockIdentityProvider(), newIdp)
	assert.Error(t, rotation.VerifyChallengeResponse(wrongSigner, fragments, currentIdp.VerifyingKey()))

	wrongFragments := rotation.ChallengeResponse(fragments[:2], currentIdp, newIdp)
	assert.Error(t, rotation.VerifyChallengeResponse(wrongFragments, fragments, currentIdp.VerifyingKey()))

	newSigningShare, newSubShareB, err := rotation.RotateSigningAndSubShare(signingShare, subShareB, currentIdp, newIdp)
	require.NoError(t, err)

	reconstructed, err := share.Reconstruct(newSigningShare, newSubShareB, newIdp)
	require.NoError(t, err)
	assert.True(t, reconstructed.Equal(secret))
}
