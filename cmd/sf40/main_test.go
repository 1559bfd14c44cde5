package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/sf40/internal/sf40"
)

func TestBaudSelector(t *testing.T) {
	for rate, want := range map[int]sf40.BaudRate{
		115200: sf40.Baud115200,
		230400: sf40.Baud230400,
		460800: sf40.Baud460800,
		921600: sf40.Baud921600,
	} {
		got, err := baudSelector(rate)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := baudSelector(9600)
	assert.ErrorContains(t, err, "unsupported baud rate")
}

func streamSample(rev uint8, distances []int16) *sf40.StreamSample {
	return &sf40.StreamSample{
		RevolutionIndex: rev,
		PointTotal:      uint16(len(distances)),
		PointCount:      uint16(len(distances)),
		Distances:       distances,
	}
}

func TestRevolutionAccumulator_SummarisesOnRollover(t *testing.T) {
	var rev revolutionAccumulator

	// First revolution: two packets, no summary yet.
	assert.Empty(t, rev.add(streamSample(1, []int16{100, 200})))
	assert.Empty(t, rev.add(streamSample(1, []int16{300, -1})))

	// Next revolution starts: previous one is summarised.
	summary := rev.add(streamSample(2, []int16{50}))
	require.NotEmpty(t, summary)
	assert.Contains(t, summary, "rev   1")
	assert.Contains(t, summary, "3 points")
	assert.Contains(t, summary, "1 no-return")
	assert.Contains(t, summary, "mean 200cm")
	assert.Contains(t, summary, "min 100cm")
	assert.Contains(t, summary, "max 300cm")
}

func TestRevolutionAccumulator_NoReturns(t *testing.T) {
	var rev revolutionAccumulator

	assert.Empty(t, rev.add(streamSample(5, []int16{-1, -1})))
	summary := rev.add(streamSample(6, []int16{10}))
	require.NotEmpty(t, summary)
	assert.Contains(t, summary, "no returns")
}

func TestRevolutionAccumulator_IndexWraps(t *testing.T) {
	var rev revolutionAccumulator

	assert.Empty(t, rev.add(streamSample(255, []int16{42})))
	summary := rev.add(streamSample(0, []int16{42}))
	assert.Contains(t, summary, "rev 255")
}
