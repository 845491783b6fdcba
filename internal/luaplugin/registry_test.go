package luaplugin

import (
	"testing"

	"github.com/sled-run/sleddbg/internal/sled/errs"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(cfg Config) *registry {
	return newRegistry(cfg, make([]registeredState, cfg.MaxLuaStates), make([]bool, cfg.MaxLuaStates))
}

func TestRegistryRegisterAssignsDistinctIDs(t *testing.T) {
	r := newTestRegistry(Config{MaxLuaStates: 4, MaxLuaStateNameLen: 32})
	id1, err := r.register("main", &fakeInterpreter{})
	require.NoError(t, err)
	id2, err := r.register("coroutine-1", &fakeInterpreter{})
	require.NoError(t, err)
	require.NotEqual(t, id1, id2)
}

func TestRegistryRejectsDuplicateState(t *testing.T) {
	r := newTestRegistry(Config{MaxLuaStates: 4, MaxLuaStateNameLen: 32})
	L := &fakeInterpreter{}
	_, err := r.register("main", L)
	require.NoError(t, err)
	_, err = r.register("main2", L)
	require.ErrorIs(t, err, errs.ErrLuaStateAlreadyRegist)
}

func TestRegistryRejectsOverCapacity(t *testing.T) {
	r := newTestRegistry(Config{MaxLuaStates: 1, MaxLuaStateNameLen: 32})
	_, err := r.register("main", &fakeInterpreter{})
	require.NoError(t, err)
	_, err = r.register("other", &fakeInterpreter{})
	require.ErrorIs(t, err, errs.ErrOverLuaStateLimit)
}

func TestRegistryUnregisterRemovesFromOrder(t *testing.T) {
	r := newTestRegistry(Config{MaxLuaStates: 4, MaxLuaStateNameLen: 32})
	id, err := r.register("main", &fakeInterpreter{})
	require.NoError(t, err)
	require.True(t, r.unregister(id))
	_, ok := r.get(id)
	require.False(t, ok)
	require.Empty(t, r.order)
}

func TestRegistryEachVisitsInsertionOrder(t *testing.T) {
	r := newTestRegistry(Config{MaxLuaStates: 4, MaxLuaStateNameLen: 32})
	_, _ = r.register("a", &fakeInterpreter{})
	_, _ = r.register("b", &fakeInterpreter{})
	_, _ = r.register("c", &fakeInterpreter{})

	var names []string
	r.each(func(st *registeredState) { names = append(names, st.name) })
	require.Equal(t, []string{"a", "b", "c"}, names)
}
