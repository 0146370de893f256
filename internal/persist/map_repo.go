package persist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/l1jgo/gridnav/internal/data"
)

// ErrChecksumMismatch means a stored snapshot does not match its checksum.
var ErrChecksumMismatch = errors.New("map checksum mismatch")

// MapRow is one grid_maps snapshot.
type MapRow struct {
	ID        int64
	Name      string
	Width     int32
	Height    int32
	Seed      int64
	Checksum  string
	Cells     []byte
	CreatedAt time.Time
}

type MapRepo struct {
	db *DB
}

func NewMapRepo(db *DB) *MapRepo {
	return &MapRepo{db: db}
}

// newMapRow packs a map for storage.
func newMapRow(m *data.GridMap, seed int64) MapRow {
	return MapRow{
		Name:     m.Name,
		Width:    m.Width,
		Height:   m.Height,
		Seed:     seed,
		Checksum: data.ChecksumHex(m),
		Cells:    data.CellBytes(m),
	}
}

// toGridMap rebuilds and verifies a stored map.
func (row MapRow) toGridMap() (*data.GridMap, error) {
	m := data.GridMapFromBytes(row.Name, row.Width, row.Height, row.Cells)
	if m == nil {
		return nil, fmt.Errorf("map %d: %d cells for %dx%d", row.ID, len(row.Cells), row.Width, row.Height)
	}
	if data.ChecksumHex(m) != row.Checksum {
		return nil, fmt.Errorf("map %d: %w", row.ID, ErrChecksumMismatch)
	}
	return m, nil
}

// Save stores a snapshot of m and returns its row ID.
func (r *MapRepo) Save(ctx context.Context, m *data.GridMap, seed int64) (int64, error) {
	row := newMapRow(m, seed)
	var id int64
	err := r.db.Pool.QueryRow(ctx,
		`INSERT INTO grid_maps (name, width, height, seed, checksum, cells)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		row.Name, row.Width, row.Height, row.Seed, row.Checksum, row.Cells,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("save map %q: %w", m.Name, err)
	}
	return id, nil
}

// LoadLatest returns the newest snapshot with the given name and its seed.
// Returns (nil, 0, nil) when no snapshot exists.
func (r *MapRepo) LoadLatest(ctx context.Context, name string) (*data.GridMap, int64, error) {
	var row MapRow
	err := r.db.Pool.QueryRow(ctx,
		`SELECT id, name, width, height, seed, checksum, cells, created_at
		 FROM grid_maps WHERE name = $1
		 ORDER BY created_at DESC, id DESC LIMIT 1`, name,
	).Scan(&row.ID, &row.Name, &row.Width, &row.Height, &row.Seed, &row.Checksum, &row.Cells, &row.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("load map %q: %w", name, err)
	}
	m, err := row.toGridMap()
	if err != nil {
		return nil, 0, err
	}
	return m, row.Seed, nil
}

// List returns snapshot metadata (without cells), newest first.
func (r *MapRepo) List(ctx context.Context, limit int) ([]MapRow, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT id, name, width, height, seed, checksum, created_at
		 FROM grid_maps ORDER BY created_at DESC, id DESC LIMIT $1`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list maps: %w", err)
	}
	defer rows.Close()

	var out []MapRow
	for rows.Next() {
		var row MapRow
		if err := rows.Scan(&row.ID, &row.Name, &row.Width, &row.Height, &row.Seed, &row.Checksum, &row.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
