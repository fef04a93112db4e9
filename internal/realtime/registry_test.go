package realtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistryRegisterReplacesSameUser(t *testing.T) {
	r := NewRegistry()
	first := NewClient("alice")
	second := NewClient("alice")

	r.Register(first)
	r.Register(second)

	assert.Same(t, second, r.Lookup("alice"))
	assert.Equal(t, []string{"alice"}, r.Roster())
}

func TestRegistryUnregisterOnlyRemovesOwnConnection(t *testing.T) {
	r := NewRegistry()
	stale := NewClient("alice")
	fresh := NewClient("alice")

	r.Register(stale)
	r.Register(fresh)

	// The replaced connection disconnecting must not evict the new one.
	assert.False(t, r.Unregister(stale))
	assert.Same(t, fresh, r.Lookup("alice"))

	assert.True(t, r.Unregister(fresh))
	assert.Nil(t, r.Lookup("alice"))
}

func TestRegistryUnregisterUnknownClient(t *testing.T) {
	r := NewRegistry()
	assert.False(t, r.Unregister(NewClient("ghost")))
}

func TestRegistryIgnoresEmptyUserID(t *testing.T) {
	r := NewRegistry()
	r.Register(NewClient(""))
	assert.Empty(t, r.Roster())
}

func TestRegistryRosterSorted(t *testing.T) {
	r := NewRegistry()
	r.Register(NewClient("carol"))
	r.Register(NewClient("alice"))
	r.Register(NewClient("bob"))

	assert.Equal(t, []string{"alice", "bob", "carol"}, r.Roster())
}

func TestClientPushDropsWhenFull(t *testing.T) {
	c := NewClient("alice")
	for i := 0; i < 200; i++ {
		c.push([]byte("frame"))
	}
	// Buffer is 64; the rest must have been dropped without blocking.
	assert.Equal(t, 64, len(c.send))
}
