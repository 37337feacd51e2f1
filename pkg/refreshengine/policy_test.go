package refreshengine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/wamu/internal/round"
	"github.com/luxfi/wamu/internal/testutil"
	"github.com/luxfi/wamu/pkg/augmented"
	"github.com/luxfi/wamu/pkg/crypto"
	"github.com/luxfi/wamu/pkg/party"
	"github.com/luxfi/wamu/pkg/refreshengine"
)

func TestRefreshPolicyRejectsBadThreshold(t *testing.T) {
	parties := party.IDSlice{1, 2, 3}
	_, err := refreshengine.NewRefreshPolicy(parties, party.IDSlice{}, 2)
	assert.Error(t, err)
}

func TestAugmentedRefreshTwoPartyRoundTrip(t *testing.T) {
	parties := party.IDSlice{1, 2}
	newParties := party.IDSlice{}

	idp1 := testutil.NewMockIdentityProvider()
	idp2 := testutil.NewMockIdentityProvider()
	verifiedParties := map[party.ID]crypto.VerifyingKey{
		1: idp1.VerifyingKey(),
		2: idp2.VerifyingKey(),
	}

	policy1, err := refreshengine.NewRefreshPolicy(parties, newParties, 1)
	require.NoError(t, err)
	policy2, err := refreshengine.NewRefreshPolicy(parties, newParties, 1)
	require.NoError(t, err)

	m1 := augmented.New(round.NewMockFSDKREngine(1, parties, newParties, nil), idp1, policy1, verifiedParties)
	m2 := augmented.New(round.NewMockFSDKREngine(2, parties, newParties, nil), idp2, policy2, verifiedParties)

	// Round 0 -> 1: no new parties, so no join messages are produced.
	require.NoError(t, m1.Proceed())
	require.NoError(t, m2.Proceed())
	assert.Empty(t, m1.DrainMessages())
	assert.Empty(t, m2.DrainMessages())

	// Round 1 -> 2: both parties are "existing", so both broadcast
	// attested refresh messages.
	require.True(t, m1.WantsToProceed())
	require.NoError(t, m1.Proceed())
	require.NoError(t, m2.Proceed())

	msgsFrom1 := m1.DrainMessages()
	msgsFrom2 := m2.DrainMessages()
	require.Len(t, msgsFrom1, 1)
	require.Len(t, msgsFrom2, 1)
	assert.NotNil(t, msgsFrom1[0].Extra)
	assert.NotNil(t, msgsFrom2[0].Extra)

	require.NoError(t, m1.HandleIncoming(msgsFrom2[0]))
	require.NoError(t, m2.HandleIncoming(msgsFrom1[0]))

	// Round 2 -> 3: finalize.
	require.NoError(t, m1.Proceed())
	require.NoError(t, m2.Proceed())

	require.True(t, m1.IsFinished())
	out1, err := m1.PickOutput()
	require.NoError(t, err)
	require.NotNil(t, out1.SigningShare)

	base, ok := out1.Base.(round.MockFSDKROutput)
	require.True(t, ok)
	var zero [32]byte
	assert.Equal(t, zero, base.Scalar)
}

func TestAugmentedRefreshRejectsForgedAttestation(t *testing.T) {
	parties := party.IDSlice{1, 2}
	newParties := party.IDSlice{}

	idp1 := testutil.NewMockIdentityProvider()
	idp2 := testutil.NewMockIdentityProvider()
	forger := testutil.NewMockIdentityProvider()
	verifiedParties := map[party.ID]crypto.VerifyingKey{
		1: idp1.VerifyingKey(),
		2: idp2.VerifyingKey(),
	}

	policy1, err := refreshengine.NewRefreshPolicy(parties, newParties, 1)
	require.NoError(t, err)
	policy2, err := refreshengine.NewRefreshPolicy(parties, newParties, 1)
	require.NoError(t, err)

	m1 := augmented.New(round.NewMockFSDKREngine(1, parties, newParties, nil), idp1, policy1, verifiedParties)
	m2 := augmented.New(round.NewMockFSDKREngine(2, parties, newParties, nil), idp2, policy2, verifiedParties)

	require.NoError(t, m1.Proceed())
	require.NoError(t, m2.Proceed())
	m1.DrainMessages()
	m2.DrainMessages()

	require.NoError(t, m1.Proceed())
	require.NoError(t, m2.Proceed())
	msgsFrom2 := m2.DrainMessages()
	require.Len(t, msgsFrom2, 1)

	forged := *msgsFrom2[0]
	forged.Extra = &augmented.Attestation{Signature: forger.Sign([]byte("whatever"))}

	err = m1.HandleIncoming(&forged)
	assert.Error(t, err)
}
