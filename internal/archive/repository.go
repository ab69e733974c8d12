package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/africa-covid/backend/internal/contracts"
	"github.com/wonny/africa-covid/backend/internal/snapshot"
)

const schema = `
	CREATE TABLE IF NOT EXISTS snapshot_archive (
		id          BIGSERIAL PRIMARY KEY,
		generation  BIGINT      NOT NULL,
		loaded_at   TIMESTAMPTZ NOT NULL,
		countries   INTEGER     NOT NULL,
		payload     JSONB       NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)
`

// payload is the archived form of snapshot.Data
type payload struct {
	Countries   []contracts.CountryIdentity       `json:"countries"`
	Trends      contracts.CountryTrendDict        `json:"trends"`
	Predictions contracts.PredictionDict          `json:"predictions"`
	Stats       map[string]contracts.CountryStats `json:"stats"`
}

// Record is one archived snapshot
type Record struct {
	ID         int64
	Generation uint64
	LoadedAt   time.Time
	Data       snapshot.Data
}

// Repository stores published snapshots in Postgres for warm starts
// ⭐ SSOT: snapshot_archive 테이블 접근은 여기서만
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new Repository instance
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// EnsureSchema creates the archive table when missing
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create snapshot_archive: %w", err)
	}
	return nil
}

func encode(data snapshot.Data) ([]byte, error) {
	return json.Marshal(payload{
		Countries:   data.Countries,
		Trends:      data.Trends,
		Predictions: data.Predictions,
		Stats:       data.Stats,
	})
}

func decode(raw []byte) (snapshot.Data, error) {
	var p payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return snapshot.Data{}, err
	}
	if p.Trends == nil {
		p.Trends = contracts.CountryTrendDict{}
	}
	if p.Predictions == nil {
		p.Predictions = contracts.PredictionDict{}
	}
	if p.Stats == nil {
		p.Stats = map[string]contracts.CountryStats{}
	}
	return snapshot.Data{
		Countries:   p.Countries,
		Trends:      p.Trends,
		Predictions: p.Predictions,
		Stats:       p.Stats,
		Source:      "archive",
	}, nil
}

// Save archives a published snapshot
func (r *Repository) Save(ctx context.Context, snap *snapshot.Snapshot) error {
	raw, err := encode(snap.Data)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	query := `
		INSERT INTO snapshot_archive (generation, loaded_at, countries, payload)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := r.db.Exec(ctx, query, int64(snap.Generation), snap.LoadedAt, len(snap.Countries), raw); err != nil {
		return fmt.Errorf("insert snapshot archive: %w", err)
	}
	return nil
}

// LoadLatest returns the most recent archive, or ErrNotFound when the table is empty
func (r *Repository) LoadLatest(ctx context.Context) (*Record, error) {
	query := `
		SELECT id, generation, loaded_at, payload
		FROM snapshot_archive
		ORDER BY id DESC
		LIMIT 1
	`

	var (
		rec        Record
		generation int64
		raw        []byte
	)
	err := r.db.QueryRow(ctx, query).Scan(&rec.ID, &generation, &rec.LoadedAt, &raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("latest snapshot archive: %w", contracts.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query latest snapshot archive: %w", err)
	}

	data, err := decode(raw)
	if err != nil {
		return nil, fmt.Errorf("unmarshal snapshot archive %d: %w", rec.ID, err)
	}
	rec.Generation = uint64(generation)
	rec.Data = data
	return &rec, nil
}

// Prune keeps the newest keep archives and deletes the rest
func (r *Repository) Prune(ctx context.Context, keep int) (int64, error) {
	if keep < 1 {
		keep = 1
	}

	query := `
		DELETE FROM snapshot_archive
		WHERE id NOT IN (
			SELECT id FROM snapshot_archive ORDER BY id DESC LIMIT $1
		)
	`
	tag, err := r.db.Exec(ctx, query, keep)
	if err != nil {
		return 0, fmt.Errorf("prune snapshot archive: %w", err)
	}
	return tag.RowsAffected(), nil
}
