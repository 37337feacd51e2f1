package round_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/wamu/internal/round"
	"github.com/luxfi/wamu/pkg/party"
)

func TestMockFSDKREngineTwoPartyRefresh(t *testing.T) {
	parties := party.IDSlice{1, 2}
	newParties := party.IDSlice{}

	e1 := round.NewMockFSDKREngine(1, parties, newParties, nil)
	e2 := round.NewMockFSDKREngine(2, parties, newParties, nil)

	require.True(t, e1.WantsToProceed())
	require.NoError(t, e1.Proceed())
	require.NoError(t, e2.Proceed())

	msgs1 := e1.DrainMessages()
	msgs2 := e2.DrainMessages()
	assert.Empty(t, msgs1)
	assert.Empty(t, msgs2)

	for _, m := range msgs2 {
		require.NoError(t, e1.HandleIncoming(m))
	}
	for _, m := range msgs1 {
		require.NoError(t, e2.HandleIncoming(m))
	}

	require.True(t, e1.WantsToProceed())
	require.NoError(t, e1.Proceed())
	require.NoError(t, e2.Proceed())

	round2From1 := e1.DrainMessages()
	round2From2 := e2.DrainMessages()
	require.Len(t, round2From1, 1)
	require.Len(t, round2From2, 1)

	require.NoError(t, e1.HandleIncoming(round2From2[0]))
	require.NoError(t, e2.HandleIncoming(round2From1[0]))

	require.True(t, e1.WantsToProceed())
	require.NoError(t, e1.Proceed())
	require.NoError(t, e2.Proceed())

	assert.True(t, e1.IsFinished())
	assert.True(t, e2.IsFinished())

	out1, err := e1.PickOutput()
	require.NoError(t, err)
	assert.IsType(t, round.MockFSDKROutput{}, out1)
}
