package telemetry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchProfileRecordMatchAccumulates(t *testing.T) {
	p := NewMatchProfile()
	p.RecordMatch("save", 10*time.Millisecond)
	p.RecordMatch("save", 20*time.Millisecond)
	p.RecordMatch("goto-top", 5*time.Millisecond)

	require.Contains(t, p.Calls, "save")
	assert.Equal(t, int64(2), p.Calls["save"].Count)
	assert.Equal(t, 30*time.Millisecond, p.Calls["save"].TotalTime)
	assert.Equal(t, 15*time.Millisecond, p.Calls["save"].AverageTime)

	require.Contains(t, p.Calls, "goto-top")
	assert.Equal(t, int64(1), p.Calls["goto-top"].Count)
}

func TestMatchProfileSummaryIncludesEveryRecipe(t *testing.T) {
	p := NewMatchProfile()
	p.RecordMatch("save", time.Millisecond)
	p.RecordMatch("goto-top", time.Millisecond)

	summary := p.Summary()
	assert.Contains(t, summary, "save")
	assert.Contains(t, summary, "goto-top")
}

func TestProfilingLifecycle(t *testing.T) {
	assert.False(t, IsProfilingEnabled())

	require.NoError(t, EnableProfiling("127.0.0.1:0"))
	defer StopProfiling()

	assert.True(t, IsProfilingEnabled())
	assert.NotEmpty(t, GetProfilingAddress())

	err := EnableProfiling("127.0.0.1:0")
	assert.Error(t, err, "enabling twice should fail")

	StopProfiling()
	assert.False(t, IsProfilingEnabled())
	assert.Empty(t, GetProfilingAddress())
}

func TestEnableProfilingRejectsEmptyAddress(t *testing.T) {
	err := EnableProfiling("")
	assert.Error(t, err)
}
