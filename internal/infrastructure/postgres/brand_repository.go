package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/collabify/collabify/internal/domain/brand"
)

// BrandRepository implements brand.Repository.
type BrandRepository struct {
	pool *pgxpool.Pool
}

func NewBrandRepository(pool *pgxpool.Pool) *BrandRepository {
	return &BrandRepository{pool: pool}
}

func (r *BrandRepository) Create(ctx context.Context, b *brand.Brand) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO brands (brand_id, name, slug, logo_url, website, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, b.BrandID, b.Name, b.Slug, b.LogoURL, b.Website, b.CreatedAt, b.UpdatedAt)
	return err
}

func (r *BrandRepository) Update(ctx context.Context, b *brand.Brand) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE brands SET name=$1, slug=$2, logo_url=$3, website=$4, updated_at=NOW()
		WHERE brand_id=$5
	`, b.Name, b.Slug, b.LogoURL, b.Website, b.BrandID)
	return err
}

func (r *BrandRepository) GetByID(ctx context.Context, brandID uuid.UUID) (*brand.Brand, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, brand_id, name, slug, logo_url, website, created_at, updated_at
		FROM brands WHERE brand_id=$1
	`, brandID)
	return scanBrand(row)
}

func (r *BrandRepository) GetBySlug(ctx context.Context, slug string) (*brand.Brand, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, brand_id, name, slug, logo_url, website, created_at, updated_at
		FROM brands WHERE slug=$1
	`, slug)
	return scanBrand(row)
}

func (r *BrandRepository) AddMember(ctx context.Context, m *brand.Member) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO brand_members (brand_id, user_id, role, is_active, created_at)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (brand_id, user_id) DO UPDATE SET role=EXCLUDED.role, is_active=EXCLUDED.is_active
	`, m.BrandID, m.UserID, m.Role, m.IsActive, m.CreatedAt)
	return err
}

func (r *BrandRepository) GetMember(ctx context.Context, brandID, userID uuid.UUID) (*brand.Member, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, brand_id, user_id, role, is_active, created_at
		FROM brand_members WHERE brand_id=$1 AND user_id=$2
	`, brandID, userID)
	var m brand.Member
	if err := row.Scan(&m.ID, &m.BrandID, &m.UserID, &m.Role, &m.IsActive, &m.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

func (r *BrandRepository) ListMembershipsForUser(ctx context.Context, userID uuid.UUID) ([]*brand.Member, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, brand_id, user_id, role, is_active, created_at
		FROM brand_members WHERE user_id=$1 ORDER BY created_at ASC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var members []*brand.Member
	for rows.Next() {
		var m brand.Member
		if err := rows.Scan(&m.ID, &m.BrandID, &m.UserID, &m.Role, &m.IsActive, &m.CreatedAt); err != nil {
			return nil, err
		}
		members = append(members, &m)
	}
	return members, rows.Err()
}

func (r *BrandRepository) ListMembers(ctx context.Context, brandID uuid.UUID) ([]*brand.Member, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, brand_id, user_id, role, is_active, created_at
		FROM brand_members WHERE brand_id=$1 ORDER BY created_at ASC
	`, brandID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var members []*brand.Member
	for rows.Next() {
		var m brand.Member
		if err := rows.Scan(&m.ID, &m.BrandID, &m.UserID, &m.Role, &m.IsActive, &m.CreatedAt); err != nil {
			return nil, err
		}
		members = append(members, &m)
	}
	return members, rows.Err()
}

func (r *BrandRepository) CountActiveMembers(ctx context.Context, brandID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM brand_members WHERE brand_id=$1 AND is_active
	`, brandID).Scan(&count)
	return count, err
}

func (r *BrandRepository) SetMemberActive(ctx context.Context, brandID, userID uuid.UUID, active bool) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE brand_members SET is_active=$1 WHERE brand_id=$2 AND user_id=$3
	`, active, brandID, userID)
	return err
}

func scanBrand(row pgx.Row) (*brand.Brand, error) {
	var b brand.Brand
	if err := row.Scan(&b.ID, &b.BrandID, &b.Name, &b.Slug, &b.LogoURL, &b.Website, &b.CreatedAt, &b.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &b, nil
}
