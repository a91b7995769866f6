package optimizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDefs() []*Definition {
	return []*Definition{
		{Name: "treeSimplification"},
		{Name: "localCSE"},
		{Name: "deadCodeElimination"},
	}
}

func TestNewRegistry_AssignsDenseIDs(t *testing.T) {
	reg := NewRegistry(sampleDefs())
	assert.Equal(t, 3, reg.NumOpts())

	def, ok := reg.Optimization(0)
	require.True(t, ok)
	assert.Equal(t, "treeSimplification", def.Name)
	assert.Equal(t, OptID(0), def.ID)

	def, ok = reg.Optimization(2)
	require.True(t, ok)
	assert.Equal(t, "deadCodeElimination", def.Name)
	assert.Equal(t, OptID(2), def.ID)
}

func TestRegistry_AddGroup(t *testing.T) {
	reg := NewRegistry(sampleDefs())
	groupID := reg.AddGroup("localOpts", Strategy{{OptID: 0}, {OptID: 1}}, false)

	assert.Equal(t, OptID(3), groupID)
	assert.True(t, reg.IsGroup(groupID))
	assert.False(t, reg.IsGroup(OptID(0)))

	grp, ok := reg.Group(groupID)
	require.True(t, ok)
	assert.Equal(t, "localOpts", grp.Name)
	assert.Len(t, grp.Body, 2)
}

func TestRegistry_Name(t *testing.T) {
	reg := NewRegistry(sampleDefs())
	groupID := reg.AddGroup("localOpts", nil, false)

	assert.Equal(t, "localCSE", reg.Name(OptID(1)))
	assert.Equal(t, "localOpts", reg.Name(groupID))
	assert.Equal(t, "?", reg.Name(OptID(99)))
}

func TestRegistry_OutOfRangeLookups(t *testing.T) {
	reg := NewRegistry(sampleDefs())

	_, ok := reg.Optimization(OptID(-1))
	assert.False(t, ok)

	_, ok = reg.Optimization(OptID(3))
	assert.False(t, ok)

	_, ok = reg.Group(OptID(0))
	assert.False(t, ok)
}

func TestDecodeStrategy_Simple(t *testing.T) {
	reg := NewRegistry(sampleDefs())
	raw := []int32{0, 1, int32(EndOpts)}

	strat, err := DecodeStrategy(reg, raw)
	require.NoError(t, err)
	require.Len(t, strat, 2)
	assert.Equal(t, OptID(0), strat[0].OptID)
	assert.Equal(t, OptID(1), strat[1].OptID)
	assert.Equal(t, GuardAlways, strat[0].Guard)
	assert.Equal(t, PostNone, strat[0].Post)
}

func TestDecodeStrategy_MustBeDoneBit(t *testing.T) {
	reg := NewRegistry(sampleDefs())
	raw := []int32{2 | mustBeDoneBit, int32(EndOpts)}

	strat, err := DecodeStrategy(reg, raw)
	require.NoError(t, err)
	require.Len(t, strat, 1)
	assert.Equal(t, OptID(2), strat[0].OptID)
	assert.True(t, strat[0].Post&MustBeDone != 0)
}

func TestDecodeStrategy_MissingSentinel(t *testing.T) {
	reg := NewRegistry(sampleDefs())
	_, err := DecodeStrategy(reg, []int32{0, 1})
	assert.Error(t, err)
}

func TestDecodeStrategy_UnknownID(t *testing.T) {
	reg := NewRegistry(sampleDefs())
	_, err := DecodeStrategy(reg, []int32{42, int32(EndOpts)})
	assert.Error(t, err)
}

func TestDecodeStrategy_GroupID(t *testing.T) {
	reg := NewRegistry(sampleDefs())
	groupID := reg.AddGroup("localOpts", nil, false)

	strat, err := DecodeStrategy(reg, []int32{int32(groupID), int32(EndOpts)})
	require.NoError(t, err)
	require.Len(t, strat, 1)
	assert.Equal(t, groupID, strat[0].OptID)
}
