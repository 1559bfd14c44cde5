package scandb

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/sf40/internal/sf40"
)

func newTestDB(t *testing.T) *ScanDB {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "scan_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleWithDistances(rev uint8, distances []int16) *sf40.StreamSample {
	return &sf40.StreamSample{
		Alarms:          sf40.Alarms(0x81),
		PointsPerSecond: 10005,
		ForwardOffset:   -10,
		MotorVoltage:    4950,
		RevolutionIndex: rev,
		PointTotal:      uint16(len(distances)),
		PointCount:      uint16(len(distances)),
		PointStartIndex: 0,
		Distances:       distances,
	}
}

func TestSessionLifecycle(t *testing.T) {
	db := newTestDB(t)

	id, err := db.StartSession("/dev/ttyUSB0", "bench test")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	require.NoError(t, db.RecordSample(id, sampleWithDistances(1, []int16{150, -1, 9999})))
	require.NoError(t, db.RecordSample(id, sampleWithDistances(2, []int16{42})))

	require.NoError(t, db.EndSession(id))

	sessions, err := db.Sessions(10)
	require.NoError(t, err)
	require.Len(t, sessions, 1)

	got := sessions[0]
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "/dev/ttyUSB0", got.Port)
	assert.Equal(t, "bench test", got.SessionNotes)
	assert.Equal(t, 2, got.PacketCount)
	require.NotNil(t, got.EndTimestamp)
	assert.GreaterOrEqual(t, *got.EndTimestamp, got.StartTimestamp)
}

func TestSessionDistances_RoundTrip(t *testing.T) {
	db := newTestDB(t)

	id, err := db.StartSession("/dev/ttyUSB0", "")
	require.NoError(t, err)

	require.NoError(t, db.RecordSample(id, sampleWithDistances(1, []int16{150, -1, 9999})))
	require.NoError(t, db.RecordSample(id, sampleWithDistances(1, []int16{-32768, 32767})))

	distances, err := db.SessionDistances(id)
	require.NoError(t, err)
	assert.Equal(t, []int16{150, -1, 9999, -32768, 32767}, distances)
}

func TestSessions_MultipleOrderedNewestFirst(t *testing.T) {
	db := newTestDB(t)

	first, err := db.StartSession("/dev/ttyUSB0", "first")
	require.NoError(t, err)
	second, err := db.StartSession("/dev/ttyUSB1", "second")
	require.NoError(t, err)

	sessions, err := db.Sessions(10)
	require.NoError(t, err)
	require.Len(t, sessions, 2)

	ids := []string{sessions[0].ID, sessions[1].ID}
	assert.Contains(t, ids, first)
	assert.Contains(t, ids, second)
}

func TestDistanceBlobCodec(t *testing.T) {
	cases := [][]int16{
		nil,
		{0},
		{150, -1, 9999},
		{-32768, 32767},
	}
	for _, distances := range cases {
		decoded, err := decodeDistances(encodeDistances(distances))
		require.NoError(t, err)
		if len(distances) == 0 {
			assert.Empty(t, decoded)
		} else {
			assert.Equal(t, distances, decoded)
		}
	}

	_, err := decodeDistances([]byte{0x01})
	assert.ErrorContains(t, err, "odd length")
}
