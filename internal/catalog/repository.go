package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sparkleops/sparkle-ops/internal/platform/db"
	"github.com/sparkleops/sparkle-ops/internal/pricing"
	"github.com/sparkleops/sparkle-ops/internal/shared"
)

// Repository persists catalog entries.
type Repository interface {
	GetService(ctx context.Context, id uuid.UUID) (*CleaningService, error)
	ListServices(ctx context.Context, activeOnly bool) ([]CleaningService, error)
	CreateService(ctx context.Context, svc CleaningService) error
	UpdateService(ctx context.Context, svc CleaningService) error
	GetAddons(ctx context.Context, ids []uuid.UUID) ([]Addon, error)
	ListAddons(ctx context.Context, activeOnly bool) ([]Addon, error)
	CreateAddon(ctx context.Context, addon Addon) error
}

type repository struct {
	db shared.DBTX
}

// NewRepository returns a pgx backed catalog repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool}
}

const serviceColumns = `id, name, cleaning_type, description, base_price, travel_rate, is_active, created_at, updated_at`

func scanService(row pgx.Row) (CleaningService, error) {
	var svc CleaningService
	var cleaningType string
	var base, travel pgtype.Numeric
	err := row.Scan(&svc.ID, &svc.Name, &cleaningType, &svc.Description, &base, &travel, &svc.IsActive, &svc.CreatedAt, &svc.UpdatedAt)
	if err != nil {
		return svc, err
	}
	svc.CleaningType = pricing.CleaningType(cleaningType)
	svc.BasePrice = db.Decimal(base)
	svc.TravelRate = db.NullDecimal(travel)
	return svc, nil
}

func (r *repository) GetService(ctx context.Context, id uuid.UUID) (*CleaningService, error) {
	svc, err := scanService(r.db.QueryRow(ctx, `SELECT `+serviceColumns+` FROM services WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: service %s", shared.ErrNotFound, id)
		}
		return nil, err
	}
	return &svc, nil
}

func (r *repository) ListServices(ctx context.Context, activeOnly bool) ([]CleaningService, error) {
	rows, err := r.db.Query(ctx, `SELECT `+serviceColumns+` FROM services WHERE ($1 = false OR is_active) ORDER BY name`, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []CleaningService
	for rows.Next() {
		svc, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, svc)
	}
	return out, rows.Err()
}

func (r *repository) CreateService(ctx context.Context, svc CleaningService) error {
	_, err := r.db.Exec(ctx, `INSERT INTO services (id, name, cleaning_type, description, base_price, travel_rate, is_active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)`,
		svc.ID, svc.Name, string(svc.CleaningType), svc.Description, db.Numeric(svc.BasePrice), db.NullNumeric(svc.TravelRate), svc.IsActive, svc.CreatedAt)
	return err
}

func (r *repository) UpdateService(ctx context.Context, svc CleaningService) error {
	tag, err := r.db.Exec(ctx, `UPDATE services SET name = $2, base_price = $3, travel_rate = $4, is_active = $5, updated_at = $6 WHERE id = $1`,
		svc.ID, svc.Name, db.Numeric(svc.BasePrice), db.NullNumeric(svc.TravelRate), svc.IsActive, svc.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: service %s", shared.ErrNotFound, svc.ID)
	}
	return nil
}

const addonColumns = `id, name, price, is_active, created_at`

func scanAddon(row pgx.Row) (Addon, error) {
	var a Addon
	var price pgtype.Numeric
	if err := row.Scan(&a.ID, &a.Name, &price, &a.IsActive, &a.CreatedAt); err != nil {
		return a, err
	}
	a.Price = db.Decimal(price)
	return a, nil
}

func (r *repository) GetAddons(ctx context.Context, ids []uuid.UUID) ([]Addon, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.db.Query(ctx, `SELECT `+addonColumns+` FROM addons WHERE id = ANY($1) ORDER BY name`, ids)
	if err != nil {
		return nil, err
	}
	return collectAddons(rows)
}

func (r *repository) ListAddons(ctx context.Context, activeOnly bool) ([]Addon, error) {
	rows, err := r.db.Query(ctx, `SELECT `+addonColumns+` FROM addons WHERE ($1 = false OR is_active) ORDER BY name`, activeOnly)
	if err != nil {
		return nil, err
	}
	return collectAddons(rows)
}

func collectAddons(rows pgx.Rows) ([]Addon, error) {
	defer rows.Close()
	var out []Addon
	for rows.Next() {
		a, err := scanAddon(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *repository) CreateAddon(ctx context.Context, addon Addon) error {
	_, err := r.db.Exec(ctx, `INSERT INTO addons (id, name, price, is_active, created_at) VALUES ($1, $2, $3, $4, $5)`,
		addon.ID, addon.Name, db.Numeric(addon.Price), addon.IsActive, addon.CreatedAt)
	return err
}
