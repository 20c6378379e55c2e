package fleet

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dessmon/dessmon-core/internal/infrastructure/database"
)

// timeFormat is the storage representation of timestamps.
const timeFormat = time.RFC3339

// Repository persists the fleet in the collectors and devices tables.
type Repository struct {
	db *database.DB
}

// NewRepository creates a fleet repository.
func NewRepository(db *database.DB) (*Repository, error) {
	if db == nil {
		return nil, errors.New("fleet: database is required")
	}
	return &Repository{db: db}, nil
}

// SyncCollectors upserts the enumerated collectors as online and marks every
// other stored collector offline. first_seen is preserved across upserts.
func (r *Repository) SyncCollectors(ctx context.Context, collectors []Collector, now time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("fleet: beginning collector sync: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // No-op after commit

	ts := now.UTC().Format(timeFormat)
	for _, c := range collectors {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO collectors (pn, project_id, alias, online, first_seen, last_seen)
			VALUES (?, ?, ?, 1, ?, ?)
			ON CONFLICT (pn) DO UPDATE SET
				project_id = excluded.project_id,
				alias = excluded.alias,
				online = 1,
				last_seen = excluded.last_seen
		`, c.PN, c.ProjectID, c.Alias, ts, ts)
		if err != nil {
			return fmt.Errorf("fleet: upserting collector %s: %w", c.PN, err)
		}
	}

	query, args := notInClause("UPDATE collectors SET online = 0 WHERE pn", collectorPNs(collectors))
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("fleet: marking absent collectors offline: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("fleet: committing collector sync: %w", err)
	}
	return nil
}

// SyncDevices upserts the enumerated devices as online and marks every other
// stored device offline.
func (r *Repository) SyncDevices(ctx context.Context, devices []Device, now time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("fleet: beginning device sync: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // No-op after commit

	ts := now.UTC().Format(timeFormat)
	for _, d := range devices {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO devices (sn, pn, devcode, devaddr, alias, online, first_seen, last_seen)
			VALUES (?, ?, ?, ?, ?, 1, ?, ?)
			ON CONFLICT (sn) DO UPDATE SET
				pn = excluded.pn,
				devcode = excluded.devcode,
				devaddr = excluded.devaddr,
				alias = excluded.alias,
				online = 1,
				last_seen = excluded.last_seen
		`, d.SN, d.PN, d.Devcode, d.Devaddr, d.Alias, ts, ts)
		if err != nil {
			return fmt.Errorf("fleet: upserting device %s: %w", d.SN, err)
		}
	}

	query, args := notInClause("UPDATE devices SET online = 0 WHERE sn", deviceSNs(devices))
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("fleet: marking absent devices offline: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("fleet: committing device sync: %w", err)
	}
	return nil
}

// ListCollectors returns all stored collectors ordered by PN.
func (r *Repository) ListCollectors(ctx context.Context) ([]Collector, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT pn, project_id, alias, online, first_seen, last_seen
		FROM collectors
		ORDER BY pn
	`)
	if err != nil {
		return nil, fmt.Errorf("fleet: listing collectors: %w", err)
	}
	defer rows.Close() //nolint:errcheck // Read-only cursor

	var collectors []Collector
	for rows.Next() {
		var (
			c          Collector
			online     int
			first, last string
		)
		if err := rows.Scan(&c.PN, &c.ProjectID, &c.Alias, &online, &first, &last); err != nil {
			return nil, fmt.Errorf("fleet: scanning collector: %w", err)
		}
		c.Online = online != 0
		c.FirstSeen, c.LastSeen = parseTimes(first, last)
		collectors = append(collectors, c)
	}
	return collectors, rows.Err()
}

// ListDevices returns all stored devices ordered by SN.
func (r *Repository) ListDevices(ctx context.Context) ([]Device, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT sn, pn, devcode, devaddr, alias, online, first_seen, last_seen
		FROM devices
		ORDER BY sn
	`)
	if err != nil {
		return nil, fmt.Errorf("fleet: listing devices: %w", err)
	}
	defer rows.Close() //nolint:errcheck // Read-only cursor

	var devices []Device
	for rows.Next() {
		var (
			d          Device
			online     int
			first, last string
		)
		if err := rows.Scan(&d.SN, &d.PN, &d.Devcode, &d.Devaddr, &d.Alias, &online, &first, &last); err != nil {
			return nil, fmt.Errorf("fleet: scanning device: %w", err)
		}
		d.Online = online != 0
		d.FirstSeen, d.LastSeen = parseTimes(first, last)
		devices = append(devices, d)
	}
	return devices, rows.Err()
}

// Prune removes offline entries whose last sighting is older than the
// retention window. Devices cascade from their collectors, so devices go
// first to keep the counts accurate.
func (r *Repository) Prune(ctx context.Context, retention time.Duration, now time.Time) (int64, error) {
	cutoff := now.UTC().Add(-retention).Format(timeFormat)

	devRes, err := r.db.ExecContext(ctx, `
		DELETE FROM devices WHERE online = 0 AND last_seen < ?
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("fleet: pruning devices: %w", err)
	}

	colRes, err := r.db.ExecContext(ctx, `
		DELETE FROM collectors
		WHERE online = 0 AND last_seen < ?
		AND pn NOT IN (SELECT DISTINCT pn FROM devices)
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("fleet: pruning collectors: %w", err)
	}

	devices, _ := devRes.RowsAffected()
	collectors, _ := colRes.RowsAffected()
	return devices + collectors, nil
}

// notInClause renders "prefix NOT IN (?, ...)" for the given keys. An empty
// key set matches every row.
func notInClause(prefix string, keys []string) (string, []any) {
	if len(keys) == 0 {
		// "WHERE pn" with no predicate would be invalid SQL.
		return prefix + " IS NOT NULL", nil
	}

	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = k
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(keys)), ", ")
	return prefix + " NOT IN (" + placeholders + ")", args
}

func collectorPNs(collectors []Collector) []string {
	pns := make([]string, len(collectors))
	for i, c := range collectors {
		pns[i] = c.PN
	}
	return pns
}

func deviceSNs(devices []Device) []string {
	sns := make([]string, len(devices))
	for i, d := range devices {
		sns[i] = d.SN
	}
	return sns
}

func parseTimes(first, last string) (time.Time, time.Time) {
	f, _ := time.Parse(timeFormat, first)
	l, _ := time.Parse(timeFormat, last)
	return f, l
}
