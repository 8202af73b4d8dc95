package roomlog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoomKeySymmetric(t *testing.T) {
	pairs := [][2]string{
		{"u1", "u2"},
		{"65f1c0de", "65a0beef"},
		{"b", "a"},
		{"same", "same"},
	}
	for _, p := range pairs {
		assert.Equal(t, RoomKey(p[0], p[1]), RoomKey(p[1], p[0]))
	}
	assert.Equal(t, "u1_u2", RoomKey("u2", "u1"))
}

func TestParticipants(t *testing.T) {
	a, b, ok := Participants(RoomKey("zed", "amy"))
	assert.True(t, ok)
	assert.Equal(t, "amy", a)
	assert.Equal(t, "zed", b)

	for _, bad := range []string{"", "nounderscore", "_x", "x_", "b_a", "a_b_c", "a_a"} {
		_, _, ok := Participants(bad)
		assert.False(t, ok, bad)
	}

	assert.True(t, IsParticipant("a_b", "b"))
	assert.False(t, IsParticipant("a_b", "c"))
}
