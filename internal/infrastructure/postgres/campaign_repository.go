package postgres

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/collabify/collabify/internal/domain/campaign"
)

// CampaignRepository implements campaign.Repository. Targeting is stored as
// a JSONB document.
type CampaignRepository struct {
	pool *pgxpool.Pool
}

func NewCampaignRepository(pool *pgxpool.Pool) *CampaignRepository {
	return &CampaignRepository{pool: pool}
}

const campaignColumns = "id, campaign_id, brand_id, title, slug, description, status, budget_min_cents, budget_max_cents, deadline, targeting, created_at, updated_at"

func (r *CampaignRepository) Create(ctx context.Context, c *campaign.Campaign) error {
	targeting, err := marshalTargeting(c.Targeting)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO campaigns (campaign_id, brand_id, title, slug, description, status, budget_min_cents, budget_max_cents, deadline, targeting, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`, c.CampaignID, c.BrandID, c.Title, c.Slug, c.Description, c.Status, c.BudgetMinCents, c.BudgetMaxCents, c.Deadline, targeting, c.CreatedAt, c.UpdatedAt)
	return err
}

func (r *CampaignRepository) Update(ctx context.Context, c *campaign.Campaign) error {
	targeting, err := marshalTargeting(c.Targeting)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		UPDATE campaigns
		SET title=$1, slug=$2, description=$3, budget_min_cents=$4, budget_max_cents=$5, deadline=$6, targeting=$7, updated_at=NOW()
		WHERE campaign_id=$8
	`, c.Title, c.Slug, c.Description, c.BudgetMinCents, c.BudgetMaxCents, c.Deadline, targeting, c.CampaignID)
	return err
}

func (r *CampaignRepository) UpdateStatus(ctx context.Context, campaignID uuid.UUID, status campaign.Status) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE campaigns SET status=$1, updated_at=NOW() WHERE campaign_id=$2
	`, status, campaignID)
	return err
}

func (r *CampaignRepository) GetByID(ctx context.Context, campaignID uuid.UUID) (*campaign.Campaign, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+campaignColumns+` FROM campaigns WHERE campaign_id=$1`, campaignID)
	return scanCampaign(row)
}

func (r *CampaignRepository) List(ctx context.Context, filter campaign.Filter, limit, offset int) ([]*campaign.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns`
	where, args := campaignWhere(filter)
	query += where
	query += " ORDER BY created_at DESC LIMIT $" + itoa(len(args)+1) + " OFFSET $" + itoa(len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var campaigns []*campaign.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, rows.Err()
}

func (r *CampaignRepository) Count(ctx context.Context, filter campaign.Filter) (int, error) {
	query := `SELECT COUNT(*) FROM campaigns`
	where, args := campaignWhere(filter)
	query += where
	var count int
	err := r.pool.QueryRow(ctx, query, args...).Scan(&count)
	return count, err
}

func campaignWhere(filter campaign.Filter) (string, []interface{}) {
	args := []interface{}{}
	where := ""
	if filter.BrandID != nil {
		where = " WHERE brand_id=$1"
		args = append(args, *filter.BrandID)
	}
	if filter.Status != nil {
		if where == "" {
			where = " WHERE status=$1"
		} else {
			where += " AND status=$" + itoa(len(args)+1)
		}
		args = append(args, *filter.Status)
	}
	return where, args
}

func marshalTargeting(t *campaign.Targeting) ([]byte, error) {
	if t == nil {
		return nil, nil
	}
	return json.Marshal(t)
}

func scanCampaign(row pgx.Row) (*campaign.Campaign, error) {
	var c campaign.Campaign
	var targeting []byte
	if err := row.Scan(&c.ID, &c.CampaignID, &c.BrandID, &c.Title, &c.Slug, &c.Description, &c.Status, &c.BudgetMinCents, &c.BudgetMaxCents, &c.Deadline, &targeting, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	if len(targeting) > 0 {
		var t campaign.Targeting
		if err := json.Unmarshal(targeting, &t); err != nil {
			return nil, err
		}
		c.Targeting = &t
	}
	return &c, nil
}
