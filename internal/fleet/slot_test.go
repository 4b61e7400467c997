package fleet

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubService struct {
	id string
}

func (s stubService) Call(ctx context.Context, conn Conn) error { return nil }

func TestNewServiceSlot_HoldsInitialValue(t *testing.T) {
	svc := stubService{id: "a"}
	slot := NewServiceSlot(svc)

	got := slot.Snapshot()
	require.NotNil(t, got)
	assert.Equal(t, svc, got)
}

func TestServiceSlot_ReplaceIsVisibleToNewSnapshots(t *testing.T) {
	slot := NewServiceSlot(stubService{id: "old"})

	slot.Replace(stubService{id: "new"})

	assert.Equal(t, stubService{id: "new"}, slot.Snapshot())
}

func TestServiceSlot_SnapshotIsStableAcrossLaterReplace(t *testing.T) {
	slot := NewServiceSlot(stubService{id: "first"})

	taken := slot.Snapshot()
	slot.Replace(stubService{id: "second"})

	assert.Equal(t, stubService{id: "first"}, taken, "a previously taken snapshot must not observe a later Replace")
	assert.Equal(t, stubService{id: "second"}, slot.Snapshot())
}

func TestServiceSlot_CopiesShareOneCell(t *testing.T) {
	slot := NewServiceSlot(stubService{id: "a"})
	copyOfSlot := slot

	slot.Replace(stubService{id: "b"})

	assert.Equal(t, stubService{id: "b"}, copyOfSlot.Snapshot(), "ServiceSlot copies must observe the same underlying cell")
}
