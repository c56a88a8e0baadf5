package session

import (
	"fmt"
	"sync"
	"testing"

	"github.com/hupe1980/deepresearch/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ core.SessionStore = (*InMemoryStore)(nil)

func TestInMemoryStore_GetCreatesLazily(t *testing.T) {
	store := NewInMemoryStore()

	sess, err := store.Get("s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", sess.ID)
	assert.Equal(t, []string{"s1"}, store.List())

	_, err = store.Get("")
	assert.Error(t, err)
}

func TestInMemoryStore_AppendAndDelta(t *testing.T) {
	store := NewInMemoryStore()

	require.NoError(t, store.AppendEvent("s1", core.NewUserMessageEvent("r1", "hello")))
	require.NoError(t, store.ApplyDelta("s1", map[string]any{"plan": "1. Search"}))

	sess, err := store.Get("s1")
	require.NoError(t, err)
	assert.Len(t, sess.GetEvents(), 1)

	v, ok := sess.GetState("plan")
	require.True(t, ok)
	assert.Equal(t, "1. Search", v)
}

func TestInMemoryStore_ReturnsClones(t *testing.T) {
	store := NewInMemoryStore()
	_, err := store.Create("s1")
	require.NoError(t, err)

	sess, _ := store.Get("s1")
	sess.SetState("k", "mutated")
	sess.AddEvent(core.NewMessageEvent("a", "x"))

	fresh, _ := store.Get("s1")
	_, ok := fresh.GetState("k")
	assert.False(t, ok)
	assert.Empty(t, fresh.GetEvents())
}

func TestInMemoryStore_CreateOverwrites(t *testing.T) {
	store := NewInMemoryStore()
	require.NoError(t, store.AppendEvent("s1", core.NewMessageEvent("a", "x")))

	sess, err := store.Create("s1")
	require.NoError(t, err)
	assert.Empty(t, sess.GetEvents())

	store.Delete("s1")
	assert.Empty(t, store.List())
}

func TestInMemoryStore_Concurrent(t *testing.T) {
	store := NewInMemoryStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = store.AppendEvent("shared", core.NewMessageEvent("a", fmt.Sprint(i)))
			_, _ = store.Get("shared")
		}(i)
	}
	wg.Wait()

	sess, _ := store.Get("shared")
	assert.Len(t, sess.GetEvents(), 50)
}
