package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/giovanistefani/Construction-manager-sub001/internal/auth/domain"
	"github.com/jackc/pgx/v5"
)

type TenantRepository struct {
	db DB
}

func NewTenantRepository(db DB) *TenantRepository {
	return &TenantRepository{db: db}
}

func (r *TenantRepository) GetByID(ctx context.Context, id string) (*domain.Tenant, error) {
	var t domain.Tenant
	err := r.db.QueryRow(ctx, `SELECT id, name, active, created_at FROM tenants WHERE id = $1`, id).
		Scan(&t.ID, &t.Name, &t.Active, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}
	return &t, nil
}
