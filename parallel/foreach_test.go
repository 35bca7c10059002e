package parallel

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestForEach_VisitsAll(t *testing.T) {
	var seen [100]atomic.Int32
	ForEach(len(seen), 7, func(i int) {
		seen[i].Add(1)
	})
	for i := range seen {
		assert.Equal(t, int32(1), seen[i].Load(), "index %d", i)
	}
}

func TestForEach_ZeroLimit(t *testing.T) {
	var n atomic.Int32
	ForEach(5, 0, func(int) { n.Add(1) })
	assert.Equal(t, int32(5), n.Load())
}

func TestForEachErr_ReturnsError(t *testing.T) {
	boom := errors.New("boom")
	err := ForEachErr(50, 4, func(i int) error {
		if i == 10 {
			return boom
		}
		return nil
	})
	assert.ErrorIs(t, err, boom)

	err = ForEachErr(3, 1, func(i int) error {
		if i == 1 {
			return boom
		}
		return nil
	})
	assert.ErrorIs(t, err, boom)
}
