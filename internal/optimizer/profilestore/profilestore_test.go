package profilestore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/jitcore/internal/ir"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Config{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestLookup_UnknownMethodReturnsNotOK(t *testing.T) {
	s := openTestStore(t)

	_, ok, err := s.Lookup(context.Background(), "Foo.bar()V")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRecordHotness_FirstObservationStartsSampleCountAtOne(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.RecordHotness(context.Background(), "Foo.bar()V", ir.HotnessWarm))

	snap, ok, err := s.Lookup(context.Background(), "Foo.bar()V")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, ir.HotnessWarm, snap.Hotness)
	assert.Equal(t, uint64(1), snap.SampleCount)
}

func TestRecordHotness_SubsequentObservationsAccumulateSampleCount(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.RecordHotness(ctx, "Foo.bar()V", ir.HotnessWarm))
	require.NoError(t, s.RecordHotness(ctx, "Foo.bar()V", ir.HotnessHot))
	require.NoError(t, s.RecordHotness(ctx, "Foo.bar()V", ir.HotnessVeryHot))

	snap, ok, err := s.Lookup(ctx, "Foo.bar()V")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, ir.HotnessVeryHot, snap.Hotness, "latest observation wins")
	assert.Equal(t, uint64(3), snap.SampleCount)
}

func TestRecordHotness_RejectsEmptyMethodID(t *testing.T) {
	s := openTestStore(t)
	err := s.RecordHotness(context.Background(), "", ir.HotnessCold)
	assert.Error(t, err)
}

func TestRecordHotness_DistinctMethodsAreIndependent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.RecordHotness(ctx, "Foo.bar()V", ir.HotnessScorching))
	require.NoError(t, s.RecordHotness(ctx, "Baz.qux()I", ir.HotnessCold))

	foo, ok, err := s.Lookup(ctx, "Foo.bar()V")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, ir.HotnessScorching, foo.Hotness)

	baz, ok, err := s.Lookup(ctx, "Baz.qux()I")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, ir.HotnessCold, baz.Hotness)
}
