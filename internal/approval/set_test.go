package approval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewApproverSet(t *testing.T) {
	s := NewApproverSet(7, 7, 3, 9)
	assert.Equal(t, []uint{7, 3}, s.IDs())
	assert.True(t, s.Full())

	var empty ApproverSet
	assert.Equal(t, 0, empty.Len())
	assert.Empty(t, empty.IDs())
	assert.False(t, empty.Full())
}

func TestApproverSet_Add(t *testing.T) {
	var s ApproverSet

	s, size, err := s.Add(1)
	require.NoError(t, err)
	assert.Equal(t, 1, size)

	again, size, err := s.Add(1)
	require.NoError(t, err)
	assert.Equal(t, 1, size, "adding a member must not grow the set")
	assert.True(t, again.Equal(s))

	s, size, err = s.Add(2)
	require.NoError(t, err)
	assert.Equal(t, 2, size)
	assert.Equal(t, []uint{1, 2}, s.IDs())

	_, size, err = s.Add(3)
	assert.ErrorIs(t, err, ErrSetFull)
	assert.Equal(t, 2, size)
}

func TestApproverSet_AddDoesNotAlias(t *testing.T) {
	base := NewApproverSet(1)
	a, _, err := base.Add(2)
	require.NoError(t, err)
	b, _, err := base.Add(3)
	require.NoError(t, err)

	assert.Equal(t, []uint{1}, base.IDs())
	assert.Equal(t, []uint{1, 2}, a.IDs())
	assert.Equal(t, []uint{1, 3}, b.IDs())
}

func TestApproverSet_IDsIsACopy(t *testing.T) {
	s := NewApproverSet(4, 5)
	ids := s.IDs()
	ids[0] = 99
	assert.True(t, s.Contains(4))
	assert.False(t, s.Contains(99))
}
