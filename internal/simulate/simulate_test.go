package simulate_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/wamu/internal/round"
	"github.com/luxfi/wamu/internal/simulate"
	"github.com/luxfi/wamu/internal/testutil"
	"github.com/luxfi/wamu/pkg/crypto"
	"github.com/luxfi/wamu/pkg/initphase"
	"github.com/luxfi/wamu/pkg/orchestrator"
	"github.com/luxfi/wamu/pkg/party"
	"github.com/luxfi/wamu/pkg/request"
)

func TestNetworkDrivesOrchestratorToCompletion(t *testing.T) {
	idps := map[party.ID]*testutil.MockIdentityProvider{
		1: testutil.NewMockIdentityProvider(),
		2: testutil.NewMockIdentityProvider(),
		3: testutil.NewMockIdentityProvider(),
	}
	parties := party.IDSlice{1, 2, 3}
	newParties := party.IDSlice{}
	var verifiedPartiesList []crypto.VerifyingKey
	verifiedParties := map[party.ID]crypto.VerifyingKey{}
	for id, idp := range idps {
		verifiedPartiesList = append(verifiedPartiesList, idp.VerifyingKey())
		verifiedParties[id] = idp.VerifyingKey()
	}

	machines := map[party.ID]simulate.Party[*orchestrator.CompositeMessage]{}
	for id, idp := range idps {
		initMachine := initphase.New(initphase.ModeIdentityAuthentication, request.TagShareRecovery, id, 1, parties, verifiedPartiesList, 0, idp)
		selfID := id
		machines[id] = orchestrator.New(initMachine, id, parties, newParties, 1, idp, verifiedParties, func(existingXi *[32]byte) round.Engine {
			return round.NewMockFSDKREngine(selfID, parties, newParties, existingXi)
		}, nil)
	}

	err := simulate.Network(context.Background(), machines, 20)
	require.NoError(t, err)

	for id, m := range machines {
		orch := m.(*orchestrator.Machine)
		assert.Truef(t, orch.IsFinished(), "party %d", id)
	}
}
