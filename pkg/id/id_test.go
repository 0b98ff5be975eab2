package id

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewULIDIsOrdered(t *testing.T) {
	prev := NewULID()
	for i := 0; i < 100; i++ {
		next := NewULID()
		require.Len(t, next, 26)
		assert.Less(t, prev, next)
		prev = next
	}
}

func TestIsValidUUID(t *testing.T) {
	_, err := IsValidUUID(Generate().String())
	assert.NoError(t, err)

	_, err = IsValidUUID("not-a-uuid")
	assert.Error(t, err)
}
