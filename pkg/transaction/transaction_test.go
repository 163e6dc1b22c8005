package transaction

import (
	"testing"

	"github.com/Layr-Labs/eigenx-cosigner-go/pkg/keyMaterial"
	"github.com/Layr-Labs/eigenx-cosigner-go/pkg/testutil"
	"github.com/Layr-Labs/eigenx-cosigner-go/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func signWith(t *testing.T, s *Skeleton, km *keyMaterial.KeyMaterial) types.Signature {
	msg, err := s.Message()
	require.NoError(t, err)
	raw, err := km.Sign(msg)
	require.NoError(t, err)
	sig, err := types.NewSignature(km.Identity(), raw)
	require.NoError(t, err)
	return *sig
}

func Test_Builder(t *testing.T) {
	logger := zaptest.NewLogger(t)
	b := NewBuilder(logger)

	local := testutil.CreateTestKeyMaterial(t, 1)
	remote := testutil.CreateTestKeyMaterial(t, 2)
	dest := testutil.CreateTestKeyMaterial(t, 3)
	tok := testutil.CreateTestFreshnessToken(7)

	t.Run("required signers are fee payer then senders", func(t *testing.T) {
		s, err := b.Build([]types.TransferInstruction{
			types.NewTransfer(local.Identity(), dest.Identity(), 1000),
		}, remote.Identity(), tok)
		require.NoError(t, err)
		assert.Equal(t, []types.PublicIdentity{remote.Identity(), local.Identity()}, s.RequiredSigners())
		assert.False(t, s.IsComplete())
	})

	t.Run("fee payer who is also the sender signs once", func(t *testing.T) {
		s, err := b.Build([]types.TransferInstruction{
			types.NewTransfer(local.Identity(), dest.Identity(), 1000),
		}, local.Identity(), tok)
		require.NoError(t, err)
		assert.Equal(t, []types.PublicIdentity{local.Identity()}, s.RequiredSigners())
	})

	t.Run("builder copies instructions", func(t *testing.T) {
		ixs := []types.TransferInstruction{types.NewTransfer(local.Identity(), dest.Identity(), 5)}
		s, err := b.Build(ixs, remote.Identity(), tok)
		require.NoError(t, err)
		ixs[0].Amount = 6
		assert.Equal(t, uint64(5), s.Instructions[0].Amount)
	})

	t.Run("rejects bad input", func(t *testing.T) {
		_, err := b.Build(nil, remote.Identity(), tok)
		assert.ErrorIs(t, err, types.ErrInvalidInstruction)

		_, err = b.Build([]types.TransferInstruction{
			types.NewTransfer(local.Identity(), dest.Identity(), 0),
		}, remote.Identity(), tok)
		assert.ErrorIs(t, err, types.ErrInvalidInstruction)

		_, err = b.Build([]types.TransferInstruction{
			types.NewTransfer(local.Identity(), dest.Identity(), 1),
		}, types.PublicIdentity{}, tok)
		assert.ErrorIs(t, err, types.ErrInvalidInstruction)

		_, err = b.Build([]types.TransferInstruction{
			types.NewTransfer(local.Identity(), dest.Identity(), 1),
		}, remote.Identity(), types.FreshnessToken{})
		assert.ErrorIs(t, err, types.ErrStaleFreshnessToken)
	})

	t.Run("rejects transactions over the wire size limit", func(t *testing.T) {
		var ixs []types.TransferInstruction
		for i := 0; i < 40; i++ {
			to := testutil.CreateTestKeyMaterial(t, byte(10+i)).Identity()
			ixs = append(ixs, types.NewTransfer(local.Identity(), to, 1))
		}
		_, err := b.Build(ixs, remote.Identity(), tok)
		assert.ErrorIs(t, err, types.ErrInvalidInstruction)
	})
}

func Test_SkeletonSignatures(t *testing.T) {
	b := NewBuilder(zaptest.NewLogger(t))
	local := testutil.CreateTestKeyMaterial(t, 1)
	remote := testutil.CreateTestKeyMaterial(t, 2)
	dest := testutil.CreateTestKeyMaterial(t, 3)
	outsider := testutil.CreateTestKeyMaterial(t, 4)

	build := func(t *testing.T) *Skeleton {
		s, err := b.Build([]types.TransferInstruction{
			types.NewTransfer(local.Identity(), dest.Identity(), 1000),
		}, remote.Identity(), testutil.CreateTestFreshnessToken(7))
		require.NoError(t, err)
		return s
	}

	t.Run("verification is idempotent and has no side effects", func(t *testing.T) {
		s := build(t)
		sig := signWith(t, s, local)
		require.NoError(t, s.VerifySignature(sig))
		require.NoError(t, s.VerifySignature(sig))
		assert.Equal(t, 0, s.SignatureCount())
	})

	t.Run("signatures from non-signers are rejected", func(t *testing.T) {
		s := build(t)
		err := s.AddSignature(signWith(t, s, outsider))
		assert.ErrorIs(t, err, types.ErrInvalidSignature)
	})

	t.Run("tampered signature is rejected", func(t *testing.T) {
		s := build(t)
		sig := signWith(t, s, local)
		sig.Bytes[0] ^= 0xff
		assert.ErrorIs(t, s.AddSignature(sig), types.ErrInvalidSignature)
	})

	t.Run("changing the freshness token invalidates collected signatures", func(t *testing.T) {
		s := build(t)
		require.NoError(t, s.AddSignature(signWith(t, s, remote)))
		require.NoError(t, s.AddSignature(signWith(t, s, local)))
		require.NoError(t, s.VerifyAll())

		s.FreshnessToken = testutil.CreateTestFreshnessToken(8)
		assert.ErrorIs(t, s.VerifyAll(), types.ErrInvalidSignature)
	})

	t.Run("changing an amount invalidates collected signatures", func(t *testing.T) {
		s := build(t)
		require.NoError(t, s.AddSignature(signWith(t, s, remote)))
		require.NoError(t, s.AddSignature(signWith(t, s, local)))

		s.Instructions[0].Amount = 1001
		assert.ErrorIs(t, s.VerifyAll(), types.ErrInvalidSignature)
	})

	t.Run("wire requires every signature", func(t *testing.T) {
		s := build(t)
		require.NoError(t, s.AddSignature(signWith(t, s, local)))
		assert.Equal(t, []types.PublicIdentity{remote.Identity()}, s.MissingSigners())

		_, err := s.Wire()
		assert.ErrorIs(t, err, types.ErrInvalidSignature)
		_, err = s.TransactionId()
		assert.Error(t, err)
	})

	t.Run("clear signatures", func(t *testing.T) {
		s := build(t)
		require.NoError(t, s.AddSignature(signWith(t, s, local)))
		s.ClearSignatures()
		assert.Equal(t, 0, s.SignatureCount())
		_, ok := s.Signature(local.Identity())
		assert.False(t, ok)
	})
}

func Test_WireRoundTrip(t *testing.T) {
	b := NewBuilder(zaptest.NewLogger(t))
	local := testutil.CreateTestKeyMaterial(t, 1)
	remote := testutil.CreateTestKeyMaterial(t, 2)
	destA := testutil.CreateTestKeyMaterial(t, 3)
	destB := testutil.CreateTestKeyMaterial(t, 4)
	tok := testutil.CreateTestFreshnessToken(9)

	s, err := b.Build([]types.TransferInstruction{
		types.NewTransfer(local.Identity(), destA.Identity(), 1000),
		types.NewTransfer(remote.Identity(), destB.Identity(), 2500),
		types.NewTransfer(local.Identity(), destB.Identity(), 1),
	}, remote.Identity(), tok)
	require.NoError(t, err)

	require.NoError(t, s.AddSignature(signWith(t, s, local)))
	require.NoError(t, s.AddSignature(signWith(t, s, remote)))
	require.True(t, s.IsComplete())

	wire, err := s.Wire()
	require.NoError(t, err)
	assert.LessOrEqual(t, len(wire), MaxWireSize)
	assert.Equal(t, byte(2), wire[0])
	assert.Equal(t, []types.PublicIdentity{remote.Identity(), local.Identity()}, s.RequiredSigners())

	id, err := s.TransactionId()
	require.NoError(t, err)
	wireId, err := testutil.TransactionIdFromWire(wire)
	require.NoError(t, err)
	assert.Equal(t, id, wireId)

	parsed, err := ParseWire(wire)
	require.NoError(t, err)
	assert.Equal(t, s.FeePayer, parsed.FeePayer)
	assert.Equal(t, s.Instructions, parsed.Instructions)
	assert.Equal(t, s.FreshnessToken.Value, parsed.FreshnessToken.Value)
	assert.Equal(t, 2, parsed.SignatureCount())
	require.NoError(t, parsed.VerifyAll())

	reencoded, err := parsed.Wire()
	require.NoError(t, err)
	assert.Equal(t, wire, reencoded)

	t.Run("trailing bytes are rejected", func(t *testing.T) {
		_, err := ParseWire(append(append([]byte(nil), wire...), 0x00))
		assert.Error(t, err)
	})

	t.Run("truncated data is rejected", func(t *testing.T) {
		_, err := ParseWire(wire[:len(wire)-3])
		assert.Error(t, err)
	})
}

func Test_MessageLayout(t *testing.T) {
	b := NewBuilder(zaptest.NewLogger(t))
	local := testutil.CreateTestKeyMaterial(t, 1)
	remote := testutil.CreateTestKeyMaterial(t, 2)
	tok := testutil.CreateTestFreshnessToken(3)

	// opposite transfers between the same two parties, remote paying fees
	s, err := b.Build([]types.TransferInstruction{
		types.NewTransfer(local.Identity(), remote.Identity(), 10_000_000),
		types.NewTransfer(remote.Identity(), local.Identity(), 20_000_000),
	}, remote.Identity(), tok)
	require.NoError(t, err)

	msg, err := s.Message()
	require.NoError(t, err)
	// header: required signatures, read-only signed, read-only unsigned
	assert.Equal(t, []byte{2, 0, 1}, msg[:3])
	// three account keys: fee payer, the other signer, the system program
	assert.Equal(t, byte(3), msg[3])
	assert.Equal(t, remote.Identity().Bytes(), msg[4:36])
	assert.Equal(t, local.Identity().Bytes(), msg[36:68])
	assert.Equal(t, SystemProgramID.Bytes(), msg[68:100])
	assert.Equal(t, tok.Value[:], msg[100:132])
}
