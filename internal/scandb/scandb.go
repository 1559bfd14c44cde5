// Package scandb persists decoded SF40 distance telemetry to SQLite so
// streaming runs can be replayed and analysed offline.
package scandb

import (
	"database/sql"
	_ "embed"
	"encoding/binary"
	"fmt"
	"log"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/sf40/internal/sf40"
)

type ScanDB struct {
	*sql.DB
}

//go:embed schema.sql
var schemaSQL string

// New opens (or creates) the SQLite database at path and applies the
// embedded schema.
func New(path string) (*ScanDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply scan schema: %w", err)
	}

	log.Println("initialized scan database schema")

	return &ScanDB{db}, nil
}

// StartSession creates a new scan session record and returns its ID.
func (sdb *ScanDB) StartSession(port, notes string) (string, error) {
	id := uuid.NewString()

	query := `
		INSERT INTO scan_sessions (id, port, session_notes)
		VALUES (?, ?, ?)
	`
	if _, err := sdb.Exec(query, id, port, notes); err != nil {
		return "", fmt.Errorf("failed to start scan session: %w", err)
	}

	return id, nil
}

// RecordSample stores one decoded distance output frame.
func (sdb *ScanDB) RecordSample(sessionID string, sample *sf40.StreamSample) error {
	query := `
		INSERT INTO stream_packets (
			session_id, revolution_index, points_per_second, forward_offset,
			motor_voltage_mv, alarm_state, point_total, point_count,
			point_start_index, distances_cm
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := sdb.Exec(query,
		sessionID,
		sample.RevolutionIndex,
		sample.PointsPerSecond,
		sample.ForwardOffset,
		sample.MotorVoltage,
		byte(sample.Alarms),
		sample.PointTotal,
		sample.PointCount,
		sample.PointStartIndex,
		encodeDistances(sample.Distances),
	)
	if err != nil {
		return fmt.Errorf("failed to insert stream packet: %w", err)
	}

	return nil
}

// EndSession closes a scan session and records its packet count.
func (sdb *ScanDB) EndSession(sessionID string) error {
	query := `
		UPDATE scan_sessions
		SET
			end_timestamp = UNIXEPOCH('subsec'),
			packet_count = (
				SELECT COUNT(*) FROM stream_packets WHERE session_id = ?
			)
		WHERE id = ?
	`

	if _, err := sdb.Exec(query, sessionID, sessionID); err != nil {
		return fmt.Errorf("failed to end scan session: %w", err)
	}

	return nil
}

// SessionSummary is one row of the session listing.
type SessionSummary struct {
	ID             string   `json:"id"`
	StartTimestamp float64  `json:"start_timestamp"`
	EndTimestamp   *float64 `json:"end_timestamp,omitempty"`
	Port           string   `json:"port"`
	PacketCount    int      `json:"packet_count"`
	SessionNotes   string   `json:"session_notes"`
}

// Sessions lists recorded sessions, most recent first.
func (sdb *ScanDB) Sessions(limit int) ([]SessionSummary, error) {
	query := `
		SELECT id, start_timestamp, end_timestamp, port, packet_count, session_notes
		FROM scan_sessions
		ORDER BY start_timestamp DESC
		LIMIT ?
	`

	rows, err := sdb.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []SessionSummary
	for rows.Next() {
		var s SessionSummary
		if err := rows.Scan(&s.ID, &s.StartTimestamp, &s.EndTimestamp, &s.Port, &s.PacketCount, &s.SessionNotes); err != nil {
			return nil, fmt.Errorf("failed to scan session row: %w", err)
		}
		sessions = append(sessions, s)
	}

	return sessions, rows.Err()
}

// SessionDistances reassembles every stored distance for a session in
// insertion order.
func (sdb *ScanDB) SessionDistances(sessionID string) ([]int16, error) {
	query := `
		SELECT distances_cm FROM stream_packets
		WHERE session_id = ?
		ORDER BY id
	`

	rows, err := sdb.Query(query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query stream packets: %w", err)
	}
	defer rows.Close()

	var distances []int16
	for rows.Next() {
		var blob []byte
		if err := rows.Scan(&blob); err != nil {
			return nil, fmt.Errorf("failed to scan packet row: %w", err)
		}
		decoded, err := decodeDistances(blob)
		if err != nil {
			return nil, err
		}
		distances = append(distances, decoded...)
	}

	return distances, rows.Err()
}

func encodeDistances(distances []int16) []byte {
	blob := make([]byte, 0, 2*len(distances))
	for _, d := range distances {
		blob = binary.LittleEndian.AppendUint16(blob, uint16(d))
	}
	return blob
}

func decodeDistances(blob []byte) ([]int16, error) {
	if len(blob)%2 != 0 {
		return nil, fmt.Errorf("distance blob has odd length %d", len(blob))
	}
	distances := make([]int16, len(blob)/2)
	for i := range distances {
		distances[i] = int16(binary.LittleEndian.Uint16(blob[2*i:]))
	}
	return distances, nil
}
