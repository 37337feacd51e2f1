package request_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/wamu/internal/testutil"
	"github.com/luxfi/wamu/pkg/crypto"
	"github.com/luxfi/wamu/pkg/request"
)

func TestInitiateVerifyRoundTrip(t *testing.T) {
	idp := testutil.NewMockIdentityProvider()
	payload := request.Initiate(request.TagShareRecovery, idp)

	err := request.Verify(request.TagShareRecovery, payload, []crypto.VerifyingKey{idp.VerifyingKey()})
	assert.NoError(t, err)
}

func TestVerifyRejectsTagMismatch(t *testing.T) {
	idp := testutil.NewMockIdentityProvider()
	payload := request.Initiate(request.TagShareRecovery, idp)

	err := request.Verify(request.TagIdentityRotation, payload, []crypto.VerifyingKey{idp.VerifyingKey()})
	assert.Error(t, err)
}

func TestVerifyRejectsUnauthorizedParty(t *testing.T) {
	idp := testutil.NewMockIdentityProvider()
	other := testutil.NewMockIdentityProvider()
	payload := request.Initiate(request.TagShareRecovery, idp)

	err := request.Verify(request.TagShareRecovery, payload, []crypto.VerifyingKey{other.VerifyingKey()})
	assert.Error(t, err)
}

func TestVerifyRejectsStaleTimestamp(t *testing.T) {
	idp := testutil.NewMockIdentityProvider()
	payload := request.Initiate(request.TagShareRecovery, idp)
	payload.TimestampSecs -= uint64(2 * request.FreshnessWindow / time.Second)

	err := request.Verify(request.TagShareRecovery, payload, []crypto.VerifyingKey{idp.VerifyingKey()})
	assert.Error(t, err)
}

func TestVerifyRejectsTamperedSignature(t *testing.T) {
	idp := testutil.NewMockIdentityProvider()
	payload := request.Initiate(request.TagShareRecovery, idp)
	payload.Signature.Sig[0] ^= 0xFF

	err := request.Verify(request.TagShareRecovery, payload, []crypto.VerifyingKey{idp.VerifyingKey()})
	assert.Error(t, err)
}

func TestVerifyAndInitiateChallenge(t *testing.T) {
	idp := testutil.NewMockIdentityProvider()
	payload := request.Initiate(request.TagIdentityRotation, idp)

	fragmentA, err := request.VerifyAndInitiateChallenge(request.TagIdentityRotation, payload, []crypto.VerifyingKey{idp.VerifyingKey()})
	require.NoError(t, err)
	fragmentB, err := request.VerifyAndInitiateChallenge(request.TagIdentityRotation, payload, []crypto.VerifyingKey{idp.VerifyingKey()})
	require.NoError(t, err)
	assert.False(t, fragmentA.Equal(fragmentB))
}

func TestQuorumApprovalsFlow(t *testing.T) {
	initiator := testutil.NewMockIdentityProvider()
	payload := request.Initiate(request.TagShareAddition, initiator)
	fingerprint := request.Fingerprint(payload)

	approverA := testutil.NewMockIdentityProvider()
	approverB := testutil.NewMockIdentityProvider()
	approverC := testutil.NewMockIdentityProvider()
	verifiedParties := []crypto.VerifyingKey{
		approverA.VerifyingKey(), approverB.VerifyingKey(), approverC.VerifyingKey(),
	}

	approvals := []request.CommandApprovalPayload{
		request.Approve(fingerprint, approverA),
		request.Approve(fingerprint, approverB),
	}

	require.NoError(t, request.VerifyApprovals(approvals, fingerprint, verifiedParties, 2))
	assert.Error(t, request.VerifyApprovals(approvals, fingerprint, verifiedParties, 3))
}

func TestVerifyApprovalsRejectsDuplicateApprover(t *testing.T) {
	initiator := testutil.NewMockIdentityProvider()
	payload := request.Initiate(request.TagShareRemoval, initiator)
	fingerprint := request.Fingerprint(payload)

	approver := testutil.NewMockIdentityProvider()
	approvals := []request.CommandApprovalPayload{
		request.Approve(fingerprint, approver),
		request.Approve(fingerprint, approver),
	}

	err := request.VerifyApprovals(approvals, fingerprint, []crypto.VerifyingKey{approver.VerifyingKey()}, 1)
	assert.Error(t, err)
}

func TestVerifyApprovalsRejectsUnauthorizedApprover(t *testing.T) {
	initiator := testutil.NewMockIdentityProvider()
	payload := request.Initiate(request.TagThresholdModification, initiator)
	fingerprint := request.Fingerprint(payload)

	approver := testutil.NewMockIdentityProvider()
	stranger := testutil.NewMockIdentityProvider()
	approvals := []request.CommandApprovalPayload{request.Approve(fingerprint, stranger)}

	err := request.VerifyApprovals(approvals, fingerprint, []crypto.VerifyingKey{approver.VerifyingKey()}, 1)
	assert.Error(t, err)
}
