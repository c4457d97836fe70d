package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"banana_clicker/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound         = errors.New("progress not found")
	ErrConflict         = errors.New("progress was modified concurrently")
	ErrStoreUnavailable = errors.New("store unavailable")
)

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}

const progressColumns = `user_id, balance, base_per_action, base_per_interval, per_action_rate, per_interval_rate,
	upgrade_levels, inventory, personal_boost, global_event, prestige_count, last_observed_at, version`

// ProgressRepository persists UserProgress rows with optimistic versioning.
type ProgressRepository struct {
	db *pgxpool.Pool
}

func NewProgressRepository(db *pgxpool.Pool) *ProgressRepository {
	return &ProgressRepository{db: db}
}

func (r *ProgressRepository) Get(ctx context.Context, userID int64) (*domain.UserProgress, error) {
	row := r.db.QueryRow(ctx, `SELECT `+progressColumns+` FROM user_progress WHERE user_id = $1`, userID)
	p, err := scanProgress(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, unavailable("get progress", err)
	}
	return p, nil
}

// Upsert writes p if the stored version still equals p.Version. A zero
// version means the row must not exist yet. On success p.Version is bumped.
func (r *ProgressRepository) Upsert(ctx context.Context, p *domain.UserProgress) error {
	levels, inventory, personal, global, err := encodeProgress(p)
	if err != nil {
		return fmt.Errorf("encode progress %d: %w", p.UserID, err)
	}

	var newVersion int64
	if p.Version == 0 {
		err = r.db.QueryRow(ctx,
			`INSERT INTO user_progress (user_id, balance, base_per_action, base_per_interval, per_action_rate,
			   per_interval_rate, upgrade_levels, inventory, personal_boost, global_event, prestige_count,
			   last_observed_at, version)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, 1)
			 ON CONFLICT (user_id) DO NOTHING
			 RETURNING version`,
			p.UserID, p.Balance, p.BasePerAction, p.BasePerInterval, p.PerActionRate, p.PerIntervalRate,
			levels, inventory, personal, global, p.PrestigeCount, p.LastObservedAt,
		).Scan(&newVersion)
	} else {
		err = r.db.QueryRow(ctx,
			`UPDATE user_progress
			 SET balance = $2, base_per_action = $3, base_per_interval = $4, per_action_rate = $5,
			     per_interval_rate = $6, upgrade_levels = $7, inventory = $8, personal_boost = $9,
			     global_event = $10, prestige_count = $11, last_observed_at = $12,
			     version = version + 1, updated_at = now()
			 WHERE user_id = $1 AND version = $13
			 RETURNING version`,
			p.UserID, p.Balance, p.BasePerAction, p.BasePerInterval, p.PerActionRate, p.PerIntervalRate,
			levels, inventory, personal, global, p.PrestigeCount, p.LastObservedAt, p.Version,
		).Scan(&newVersion)
	}
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrConflict
		}
		return unavailable("upsert progress", err)
	}

	p.Version = newVersion
	return nil
}

// ListAll returns a snapshot of every record, ordered by user id.
func (r *ProgressRepository) ListAll(ctx context.Context) ([]domain.UserProgress, error) {
	rows, err := r.db.Query(ctx, `SELECT `+progressColumns+` FROM user_progress ORDER BY user_id`)
	if err != nil {
		return nil, unavailable("list progress", err)
	}
	defer rows.Close()

	var res []domain.UserProgress
	for rows.Next() {
		p, err := scanProgress(rows)
		if err != nil {
			return nil, unavailable("scan progress", err)
		}
		res = append(res, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list progress", err)
	}
	return res, nil
}

// SaveGlobalEvent records an event so records created later inherit it.
func (r *ProgressRepository) SaveGlobalEvent(ctx context.Context, event domain.Boost) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO global_events (kind, multiplier, expires_at) VALUES ($1, $2, $3)`,
		string(event.Kind), event.Multiplier, event.ExpiresAt,
	)
	if err != nil {
		return unavailable("save global event", err)
	}
	return nil
}

// CurrentGlobalEvent returns the most recently started event, or nil.
func (r *ProgressRepository) CurrentGlobalEvent(ctx context.Context) (*domain.Boost, error) {
	var (
		kind string
		b    domain.Boost
	)
	err := r.db.QueryRow(ctx,
		`SELECT kind, multiplier, expires_at FROM global_events ORDER BY id DESC LIMIT 1`,
	).Scan(&kind, &b.Multiplier, &b.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, unavailable("current global event", err)
	}
	b.Kind = domain.BoostKind(kind)
	b.Source = domain.SourceGlobal
	return &b, nil
}

func scanProgress(row pgx.Row) (*domain.UserProgress, error) {
	var (
		p                        domain.UserProgress
		levels, inventory        []byte
		personalJSON, globalJSON []byte
	)
	if err := row.Scan(
		&p.UserID,
		&p.Balance,
		&p.BasePerAction,
		&p.BasePerInterval,
		&p.PerActionRate,
		&p.PerIntervalRate,
		&levels,
		&inventory,
		&personalJSON,
		&globalJSON,
		&p.PrestigeCount,
		&p.LastObservedAt,
		&p.Version,
	); err != nil {
		return nil, err
	}

	p.UpgradeLevels = make(map[domain.UpgradeKind]int64)
	p.Inventory = make(map[domain.BoostKind]int64)
	if len(levels) > 0 {
		if err := json.Unmarshal(levels, &p.UpgradeLevels); err != nil {
			return nil, fmt.Errorf("decode upgrade_levels: %w", err)
		}
	}
	if len(inventory) > 0 {
		if err := json.Unmarshal(inventory, &p.Inventory); err != nil {
			return nil, fmt.Errorf("decode inventory: %w", err)
		}
	}
	var err error
	if p.PersonalBoost, err = decodeBoost(personalJSON); err != nil {
		return nil, fmt.Errorf("decode personal_boost: %w", err)
	}
	if p.GlobalEvent, err = decodeBoost(globalJSON); err != nil {
		return nil, fmt.Errorf("decode global_event: %w", err)
	}
	return &p, nil
}

func encodeProgress(p *domain.UserProgress) (levels, inventory, personal, global []byte, err error) {
	if levels, err = json.Marshal(nonNil(p.UpgradeLevels)); err != nil {
		return
	}
	if inventory, err = json.Marshal(nonNil(p.Inventory)); err != nil {
		return
	}
	if personal, err = encodeBoost(p.PersonalBoost); err != nil {
		return
	}
	global, err = encodeBoost(p.GlobalEvent)
	return
}

// nil encodes as SQL NULL
func encodeBoost(b *domain.Boost) ([]byte, error) {
	if b == nil {
		return nil, nil
	}
	return json.Marshal(b)
}

func decodeBoost(raw []byte) (*domain.Boost, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var b domain.Boost
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

func nonNil[K comparable](m map[K]int64) map[K]int64 {
	if m == nil {
		return map[K]int64{}
	}
	return m
}
