package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMerge(t *testing.T) {
	merged := Merge(Fields{"a": 1, "b": 2}, Fields{"b": 3}, WithError(errors.New("boom")))

	assert.Equal(t, Fields{"a": 1, "b": 3, ErrorKey: "boom"}, merged)
}

func TestFlattenEmpty(t *testing.T) {
	assert.Nil(t, flatten(nil))
	assert.Len(t, flatten([]Fields{{"a": 1}, {"c": 2}}), 2)
}
