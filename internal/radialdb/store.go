// Package radialdb persists decoded Level II volumes in SQLite and serves
// them back as the radial source of a sweep view.
package radialdb

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/Zachdehooge/supercell-wx/internal/level2"
)

// ErrNoVolume is returned when no stored volume matches a lookup.
var ErrNoVolume = errors.New("no volume stored")

// ErrEmptyVolume is returned when inserting a volume without radials.
var ErrEmptyVolume = errors.New("volume has no radials")

var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA temp_store=MEMORY",
	"PRAGMA foreign_keys=ON",
}

// Store is a SQLite-backed radial archive.
type Store struct {
	*sql.DB
}

// Volume describes one stored volume scan.
type Volume struct {
	ID          string
	SiteID      string
	Latitude    float32
	Longitude   float32
	CollectedAt time.Time
}

// Open opens (creating if needed) the database at path and migrates it to
// the latest schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// PRAGMAs are per connection; a single connection keeps them in force.
	db.SetMaxOpenConns(1)
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}

	s := &Store{db}
	if err := s.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// InsertVolume stores radials as a new volume of siteID and returns its ID.
// Site position and collection time come from the first radial.
// Each radial's ElevationIndex selects the elevation it is stored under.
func (s *Store) InsertVolume(ctx context.Context, siteID string, radials []*level2.Radial) (string, error) {
	if len(radials) == 0 {
		return "", ErrEmptyVolume
	}
	first := radials[0]
	if first.Volume == nil {
		return "", fmt.Errorf("first radial has no volume block")
	}

	id := uuid.New().String()
	tx, err := s.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO volumes (volume_id, site_id, latitude, longitude, collected_unix_ms)
		VALUES (?, ?, ?, ?, ?)`,
		id, siteID, first.Volume.Latitude, first.Volume.Longitude, first.Time().UnixMilli(),
	); err != nil {
		return "", fmt.Errorf("failed to insert volume: %w", err)
	}

	radialStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO radials (volume_id, elevation_index, radial_index, azimuth, azimuth_spacing, julian_date, collection_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", err
	}
	defer radialStmt.Close()

	momentStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO moments (volume_id, elevation_index, radial_index, block_type, word_size,
			data_scale, data_offset, snr_threshold, range_raw, range_interval, gate_count, data)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", err
	}
	defer momentStmt.Close()

	// Radials are numbered in arrival order within their elevation.
	next := make(map[int]int)
	for _, r := range radials {
		index := next[r.ElevationIndex]
		next[r.ElevationIndex]++

		if _, err := radialStmt.ExecContext(ctx, id, r.ElevationIndex, index,
			r.AzimuthAngle, r.AzimuthResolutionSpacing, r.ModifiedJulianDate, r.CollectionTime,
		); err != nil {
			return "", fmt.Errorf("failed to insert radial %d: %w", index, err)
		}

		for bt, m := range r.Moments {
			if m == nil {
				continue
			}
			if err := m.Validate(); err != nil {
				return "", fmt.Errorf("radial %d %s: %w", index, bt, err)
			}
			if _, err := momentStmt.ExecContext(ctx, id, r.ElevationIndex, index, int(bt), m.DataWordSize,
				m.Scale, m.Offset, m.SNRThresholdRaw, m.RangeRaw, m.RangeSampleIntervalRaw, m.GateCount,
				encodeSamples(m),
			); err != nil {
				return "", fmt.Errorf("failed to insert %s moment for radial %d: %w", bt, index, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return id, nil
}

// LatestVolume returns the most recently collected volume of siteID.
func (s *Store) LatestVolume(ctx context.Context, siteID string) (Volume, error) {
	return s.scanVolume(s.QueryRowContext(ctx, `
		SELECT volume_id, site_id, latitude, longitude, collected_unix_ms
		FROM volumes
		WHERE site_id = ?
		ORDER BY collected_unix_ms DESC, created_at DESC
		LIMIT 1`, siteID))
}

// GetVolume returns the volume with the given ID.
func (s *Store) GetVolume(ctx context.Context, id string) (Volume, error) {
	return s.scanVolume(s.QueryRowContext(ctx, `
		SELECT volume_id, site_id, latitude, longitude, collected_unix_ms
		FROM volumes
		WHERE volume_id = ?`, id))
}

// ListVolumes returns the stored volumes of siteID, newest first.
func (s *Store) ListVolumes(ctx context.Context, siteID string) ([]Volume, error) {
	rows, err := s.QueryContext(ctx, `
		SELECT volume_id, site_id, latitude, longitude, collected_unix_ms
		FROM volumes
		WHERE site_id = ?
		ORDER BY collected_unix_ms DESC`, siteID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var volumes []Volume
	for rows.Next() {
		v, err := s.scanVolume(rows)
		if err != nil {
			return nil, err
		}
		volumes = append(volumes, v)
	}
	return volumes, rows.Err()
}

// DeleteVolumesBefore removes volumes of siteID collected before t and
// returns how many were deleted.
func (s *Store) DeleteVolumesBefore(ctx context.Context, siteID string, t time.Time) (int64, error) {
	res, err := s.ExecContext(ctx, `
		DELETE FROM volumes WHERE site_id = ? AND collected_unix_ms < ?`, siteID, t.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to delete volumes: %w", err)
	}
	return res.RowsAffected()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func (s *Store) scanVolume(row scanner) (Volume, error) {
	var v Volume
	var collected int64
	if err := row.Scan(&v.ID, &v.SiteID, &v.Latitude, &v.Longitude, &collected); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Volume{}, ErrNoVolume
		}
		return Volume{}, err
	}
	v.CollectedAt = time.UnixMilli(collected).UTC()
	return v, nil
}

// LoadRadials returns the radials of one elevation of a volume in arrival
// order. Only the bt moment block is loaded; radials without it carry no
// moments.
func (s *Store) LoadRadials(ctx context.Context, volumeID string, elevation int, bt level2.DataBlockType) ([]*level2.Radial, error) {
	v, err := s.GetVolume(ctx, volumeID)
	if err != nil {
		return nil, err
	}
	site := &level2.VolumeBlock{Latitude: v.Latitude, Longitude: v.Longitude}

	rows, err := s.QueryContext(ctx, `
		SELECT r.azimuth, r.azimuth_spacing, r.julian_date, r.collection_ms,
			m.word_size, m.data_scale, m.data_offset, m.snr_threshold,
			m.range_raw, m.range_interval, m.gate_count, m.data
		FROM radials r
		LEFT JOIN moments m
			ON m.volume_id = r.volume_id
			AND m.elevation_index = r.elevation_index
			AND m.radial_index = r.radial_index
			AND m.block_type = ?
		WHERE r.volume_id = ? AND r.elevation_index = ?
		ORDER BY r.radial_index`, int(bt), volumeID, elevation)
	if err != nil {
		return nil, fmt.Errorf("failed to query radials: %w", err)
	}
	defer rows.Close()

	var radials []*level2.Radial
	for rows.Next() {
		r := &level2.Radial{ElevationIndex: elevation, Volume: site}
		var (
			wordSize                                sql.NullInt64
			scale, offset                           sql.NullFloat64
			snr, rangeRaw, rangeInterval, gateCount sql.NullInt64
			data                                    []byte
		)
		if err := rows.Scan(&r.AzimuthAngle, &r.AzimuthResolutionSpacing, &r.ModifiedJulianDate, &r.CollectionTime,
			&wordSize, &scale, &offset, &snr, &rangeRaw, &rangeInterval, &gateCount, &data,
		); err != nil {
			return nil, fmt.Errorf("failed to scan radial: %w", err)
		}

		if wordSize.Valid {
			m := &level2.MomentBlock{
				DataWordSize:           uint8(wordSize.Int64),
				Scale:                  float32(scale.Float64),
				Offset:                 float32(offset.Float64),
				SNRThresholdRaw:        int16(snr.Int64),
				RangeRaw:               uint16(rangeRaw.Int64),
				RangeSampleIntervalRaw: uint16(rangeInterval.Int64),
				GateCount:              uint16(gateCount.Int64),
			}
			decodeSamples(m, data)
			r.Moments = map[level2.DataBlockType]*level2.MomentBlock{bt: m}
		}
		radials = append(radials, r)
	}
	return radials, rows.Err()
}

func encodeSamples(m *level2.MomentBlock) []byte {
	if m.DataWordSize == 8 {
		return append([]byte{}, m.Data8...)
	}
	out := make([]byte, 0, len(m.Data16)*2)
	for _, v := range m.Data16 {
		out = binary.LittleEndian.AppendUint16(out, v)
	}
	return out
}

func decodeSamples(m *level2.MomentBlock, data []byte) {
	if m.DataWordSize == 8 {
		m.Data8 = append([]uint8{}, data...)
		return
	}
	m.Data16 = make([]uint16, len(data)/2)
	for i := range m.Data16 {
		m.Data16[i] = binary.LittleEndian.Uint16(data[i*2:])
	}
}
