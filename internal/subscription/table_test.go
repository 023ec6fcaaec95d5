package subscription

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestTable(t *testing.T) {
	tbl := NewTable()
	a, b := uuid.New(), uuid.New()

	tbl.Subscribe(a, 2, 9)
	tbl.Subscribe(a, 2, 10)
	tbl.Subscribe(b, 2, 9)
	tbl.Subscribe(b, 2, 9)

	assert.True(t, tbl.IsSubscribed(a, 2, 10))
	assert.False(t, tbl.IsSubscribed(b, 2, 10))
	assert.Equal(t, 3, tbl.Count())
	assert.ElementsMatch(t, []uuid.UUID{a, b}, tbl.Subscribers(2, 9))

	tbl.Unsubscribe(b, 2, 9)
	tbl.Unsubscribe(b, 2, 9)
	assert.Equal(t, []uuid.UUID{a}, tbl.Subscribers(2, 9))

	tbl.RemoveController(a)
	assert.Zero(t, tbl.Count())
	assert.Empty(t, tbl.Subscribers(2, 9))
}

func TestTable_Concurrent(t *testing.T) {
	tbl := NewTable()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		ctrl := uuid.New()
		wg.Go(func() {
			for iid := uint64(1); iid <= 10; iid++ {
				tbl.Subscribe(ctrl, 1, iid)
				_ = tbl.Subscribers(1, iid)
			}
			tbl.Unsubscribe(ctrl, 1, 1)
		})
	}
	wg.Wait()
	assert.Equal(t, 20*9, tbl.Count())
}
