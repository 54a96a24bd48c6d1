package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestWave(t *testing.T, docCount int) *Wave {
	t.Helper()
	wave := NewWave("planner")
	for i := 0; i < docCount; i++ {
		doc := createTestDocument(t)
		require.NoError(t, wave.AddDocument(doc))
	}
	wave.ClearDomainEvents()
	return wave
}

func TestNewWave(t *testing.T) {
	wave := NewWave("planner")

	assert.Equal(t, WaveStatusPlanning, wave.Status)
	assert.Equal(t, WaveSizeXS, wave.Size)
	assert.NotEmpty(t, wave.WaveID)
	assert.Empty(t, wave.Documents)

	events := wave.GetDomainEvents()
	require.Len(t, events, 1)
	event, ok := events[0].(*WaveCreatedEvent)
	require.True(t, ok)
	assert.Equal(t, wave.WaveID, event.WaveID)
}

func TestWaveAddDocument(t *testing.T) {
	wave := NewWave("planner")
	doc := createTestDocument(t)

	require.NoError(t, wave.AddDocument(doc))
	assert.Equal(t, 1, wave.OrderCount)
	assert.Equal(t, 2, wave.TotalLines)
	assert.Equal(t, 8, wave.TotalQuantity)

	assert.ErrorIs(t, wave.AddDocument(doc), ErrDocumentAlreadyInWave)

	require.NoError(t, wave.Release(1))
	other := createTestDocument(t)
	assert.ErrorIs(t, wave.AddDocument(other), ErrWaveNotPlanning)
}

func TestWaveRemoveDocument(t *testing.T) {
	wave := NewWave("planner")
	doc := createTestDocument(t)
	require.NoError(t, wave.AddDocument(doc))

	require.NoError(t, wave.RemoveDocument(doc.DocumentID))
	assert.Equal(t, 0, wave.OrderCount)
	assert.Equal(t, 0, wave.TotalLines)

	assert.ErrorIs(t, wave.RemoveDocument("DOC-unknown"), ErrDocumentNotInWave)
}

func TestWaveRelease(t *testing.T) {
	wave := NewWave("planner")
	assert.ErrorIs(t, wave.Release(0), ErrWaveEmpty)

	wave = createTestWave(t, 2)
	require.NoError(t, wave.Release(3))
	assert.Equal(t, WaveStatusReleased, wave.Status)
	assert.NotNil(t, wave.ReleasedAt)

	assert.ErrorIs(t, wave.Release(3), ErrWaveNotPlanning)
}

func TestWaveComplete(t *testing.T) {
	wave := createTestWave(t, 1)
	assert.ErrorIs(t, wave.Complete(), ErrWaveNotReleased)

	require.NoError(t, wave.Release(1))
	require.NoError(t, wave.Complete())
	assert.Equal(t, WaveStatusCompleted, wave.Status)
}

func TestWaveCancel(t *testing.T) {
	wave := createTestWave(t, 1)
	require.NoError(t, wave.Cancel("replan"))
	assert.Equal(t, WaveStatusCancelled, wave.Status)
	assert.Equal(t, "replan", wave.CancelReason)

	assert.ErrorIs(t, wave.Cancel("again"), ErrWaveAlreadyClosed)

	wave = createTestWave(t, 1)
	require.NoError(t, wave.Release(1))
	require.NoError(t, wave.Complete())
	assert.ErrorIs(t, wave.Cancel("too late"), ErrWaveAlreadyClosed)
}

func TestSizeForLineCount(t *testing.T) {
	tests := []struct {
		lines int
		want  WaveSize
	}{
		{1, WaveSizeXS},
		{10, WaveSizeXS},
		{11, WaveSizeS},
		{25, WaveSizeS},
		{26, WaveSizeM},
		{60, WaveSizeM},
		{61, WaveSizeL},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, SizeForLineCount(tt.lines), "lines=%d", tt.lines)
	}
}
