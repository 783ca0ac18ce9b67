package diagnostics

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordBreadcrumbStoresCategoryAndMessage(t *testing.T) {
	ClearBreadcrumbs()
	RecordBreadcrumb("input", "key down: ctrl+k", map[string]interface{}{"key": "ctrl+k"})

	crumbs := GetBreadcrumbs()
	require.Len(t, crumbs, 1)
	assert.Equal(t, "input", crumbs[0].Category)
	assert.Equal(t, "key down: ctrl+k", crumbs[0].Message)
	assert.Equal(t, "ctrl+k", crumbs[0].Data["key"])
	assert.NotZero(t, crumbs[0].Timestamp)
}

func TestGetBreadcrumbsPreservesOrder(t *testing.T) {
	ClearBreadcrumbs()
	RecordBreadcrumb("input", "first", nil)
	RecordBreadcrumb("input", "second", nil)
	RecordBreadcrumb("input", "third", nil)

	crumbs := GetBreadcrumbs()
	require.Len(t, crumbs, 3)
	assert.Equal(t, "first", crumbs[0].Message)
	assert.Equal(t, "third", crumbs[2].Message)
}

func TestBreadcrumbsDropOldestPastCapacity(t *testing.T) {
	ClearBreadcrumbs()
	for i := 0; i < MaxBreadcrumbs+50; i++ {
		RecordBreadcrumb("input", fmt.Sprintf("event-%d", i), nil)
	}

	crumbs := GetBreadcrumbs()
	require.Len(t, crumbs, MaxBreadcrumbs)
	assert.Equal(t, "event-50", crumbs[0].Message)
	assert.Equal(t, fmt.Sprintf("event-%d", MaxBreadcrumbs+49), crumbs[MaxBreadcrumbs-1].Message)
}

func TestClearBreadcrumbsEmptiesBuffer(t *testing.T) {
	RecordBreadcrumb("input", "event", nil)
	ClearBreadcrumbs()
	assert.Empty(t, GetBreadcrumbs())
}

func TestGetBreadcrumbsReturnsDefensiveCopy(t *testing.T) {
	ClearBreadcrumbs()
	RecordBreadcrumb("input", "first", nil)

	crumbs := GetBreadcrumbs()
	crumbs[0].Message = "mutated"

	assert.Equal(t, "first", GetBreadcrumbs()[0].Message)
}
