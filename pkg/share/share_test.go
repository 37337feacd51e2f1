package share_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/wamu/internal/testutil"
	"github.com/luxfi/wamu/pkg/field"
	"github.com/luxfi/wamu/pkg/share"
)

func TestSplitReconstructRoundTrip(t *testing.T) {
	secret := field.FromUint64(1)
	idpA := testutil.NewMockIdentityProvider()

	signingShare, subShareB := share.Split(secret, idpA)

	reconstructed, err := share.Reconstruct(signingShare, subShareB, idpA)
	require.NoError(t, err)
	assert.True(t, reconstructed.Equal(secret))

	idpB := testutil.NewMockIdentityProvider()
	wrong, err := share.Reconstruct(signingShare, subShareB, idpB)
	require.NoError(t, err)
	assert.False(t, wrong.Equal(secret))
}

func TestSplitReconstructRandomSecret(t *testing.T) {
	secret := field.Random()
	idp := testutil.NewMockIdentityProvider()

	signingShare, subShareB := share.Split(secret, idp)
	reconstructed, err := share.Reconstruct(signingShare, subShareB, idp)
	require.NoError(t, err)
	assert.True(t, reconstructed.Equal(secret))
}

// TestInterpolatorThreeCollinearPoints is scenario S2: sub-shares
// (0,1), (1,2), (2,3) lie on y = x + 1.
func TestInterpolatorThreeCollinearPoints(t *testing.T) {
	p0 := share.NewSubShare(field.FromUint64(0), field.FromUint64(1))
	p1 := share.NewSubShare(field.FromUint64(1), field.FromUint64(2))
	p2 := share.NewSubShare(field.FromUint64(2), field.FromUint64(3))

	splitInterpolator, err := share.NewInterpolator(p0, p1)
	require.NoError(t, err)
	got, err := splitInterpolator.SubShare(field.FromUint64(2))
	require.NoError(t, err)
	assert.True(t, got.X().Equal(p2.X()))
	assert.True(t, got.Y().Equal(p2.Y()))

	reconstructInterpolator, err := share.NewInterpolator(p1, p2)
	require.NoError(t, err)
	assert.True(t, reconstructInterpolator.Secret().Equal(field.FromUint64(1)))
}

func TestInterpolatorRejectsSameXCoordinate(t *testing.T) {
	p := share.NewSubShare(field.FromUint64(5), field.FromUint64(7))
	q := share.NewSubShare(field.FromUint64(5), field.FromUint64(9))
	_, err := share.NewInterpolator(p, q)
	assert.Error(t, err)
}

func TestInterpolatorRejectsZeroIndex(t *testing.T) {
	p := share.NewSubShare(field.FromUint64(1), field.FromUint64(2))
	q := share.NewSubShare(field.FromUint64(2), field.FromUint64(3))
	in, err := share.NewInterpolator(p, q)
	require.NoError(t, err)
	_, err = in.SubShare(field.FromUint64(0))
	assert.Error(t, err)
}
