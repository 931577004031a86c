package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/collabify/collabify/internal/domain/creator"
)

// CreatorRepository implements creator.Repository.
type CreatorRepository struct {
	pool *pgxpool.Pool
}

func NewCreatorRepository(pool *pgxpool.Pool) *CreatorRepository {
	return &CreatorRepository{pool: pool}
}

const creatorColumns = "id, creator_id, user_id, display_name, slug, bio, location, categories, platforms, total_followers, starting_price_cents, verification_status, is_available, created_at, updated_at"

func (r *CreatorRepository) Create(ctx context.Context, p *creator.Profile) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO creator_profiles
		(creator_id, user_id, display_name, slug, bio, location, categories, platforms, total_followers, starting_price_cents, verification_status, is_available, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
	`, p.CreatorID, p.UserID, p.DisplayName, p.Slug, p.Bio, p.Location, p.Categories, p.Platforms, p.TotalFollowers, p.StartingPriceCents, p.VerificationStatus, p.IsAvailable, p.CreatedAt, p.UpdatedAt)
	return err
}

func (r *CreatorRepository) Update(ctx context.Context, p *creator.Profile) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE creator_profiles
		SET display_name=$1, slug=$2, bio=$3, location=$4, categories=$5, platforms=$6, total_followers=$7, starting_price_cents=$8, verification_status=$9, is_available=$10, updated_at=NOW()
		WHERE creator_id=$11
	`, p.DisplayName, p.Slug, p.Bio, p.Location, p.Categories, p.Platforms, p.TotalFollowers, p.StartingPriceCents, p.VerificationStatus, p.IsAvailable, p.CreatorID)
	return err
}

func (r *CreatorRepository) GetByID(ctx context.Context, creatorID uuid.UUID) (*creator.Profile, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+creatorColumns+` FROM creator_profiles WHERE creator_id=$1`, creatorID)
	return scanCreator(row)
}

func (r *CreatorRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*creator.Profile, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+creatorColumns+` FROM creator_profiles WHERE user_id=$1`, userID)
	return scanCreator(row)
}

func (r *CreatorRepository) GetBySlug(ctx context.Context, slug string) (*creator.Profile, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+creatorColumns+` FROM creator_profiles WHERE slug=$1`, slug)
	return scanCreator(row)
}

func scanCreator(row pgx.Row) (*creator.Profile, error) {
	var p creator.Profile
	if err := row.Scan(&p.ID, &p.CreatorID, &p.UserID, &p.DisplayName, &p.Slug, &p.Bio, &p.Location, &p.Categories, &p.Platforms, &p.TotalFollowers, &p.StartingPriceCents, &p.VerificationStatus, &p.IsAvailable, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}
