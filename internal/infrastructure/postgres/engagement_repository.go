package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/collabify/collabify/internal/domain/contract"
	"github.com/collabify/collabify/internal/domain/engagement"
)

// EngagementRepository implements engagement.Repository. Uniqueness of one
// application per (campaign, creator) and one PENDING offer per application
// rests on database constraints; violations surface as engagement.ErrDuplicate.
type EngagementRepository struct {
	pool *pgxpool.Pool
}

func NewEngagementRepository(pool *pgxpool.Pool) *EngagementRepository {
	return &EngagementRepository{pool: pool}
}

const applicationColumns = "id, application_id, campaign_id, creator_id, status, cover_letter, price_in_cents, estimated_days, created_at, updated_at"
const offerColumns = "id, offer_id, application_id, from_brand, status, price_in_cents, message, deliverables, deadline, expires_at, responded_at, created_at"

func (r *EngagementRepository) CreateApplication(ctx context.Context, a *engagement.Application) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO applications (application_id, campaign_id, creator_id, status, cover_letter, price_in_cents, estimated_days, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, a.ApplicationID, a.CampaignID, a.CreatorID, a.Status, a.CoverLetter, a.PriceInCents, a.EstimatedDays, a.CreatedAt, a.UpdatedAt)
	if isUniqueViolation(err) {
		return engagement.ErrDuplicate
	}
	return err
}

func (r *EngagementRepository) GetApplicationByID(ctx context.Context, applicationID uuid.UUID) (*engagement.Application, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+applicationColumns+` FROM applications WHERE application_id=$1`, applicationID)
	return scanApplication(row)
}

func (r *EngagementRepository) GetApplicationByCampaignAndCreator(ctx context.Context, campaignID, creatorID uuid.UUID) (*engagement.Application, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+applicationColumns+` FROM applications WHERE campaign_id=$1 AND creator_id=$2`, campaignID, creatorID)
	return scanApplication(row)
}

func (r *EngagementRepository) ListApplications(ctx context.Context, filter engagement.ApplicationFilter, limit, offset int) ([]*engagement.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications`
	where, args := applicationWhere(filter)
	query += where
	query += " ORDER BY created_at DESC LIMIT $" + itoa(len(args)+1) + " OFFSET $" + itoa(len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var apps []*engagement.Application
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		apps = append(apps, a)
	}
	return apps, rows.Err()
}

func (r *EngagementRepository) CountApplications(ctx context.Context, filter engagement.ApplicationFilter) (int, error) {
	query := `SELECT COUNT(*) FROM applications`
	where, args := applicationWhere(filter)
	query += where
	var count int
	err := r.pool.QueryRow(ctx, query, args...).Scan(&count)
	return count, err
}

func (r *EngagementRepository) UpdateApplicationStatus(ctx context.Context, applicationID uuid.UUID, from, to engagement.ApplicationStatus) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE applications SET status=$1, updated_at=NOW() WHERE application_id=$2 AND status=$3
	`, to, applicationID, from)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return engagement.ErrStale
	}
	return nil
}

func (r *EngagementRepository) WithdrawApplication(ctx context.Context, applicationID uuid.UUID, from engagement.ApplicationStatus, pendingOfferID *uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if pendingOfferID != nil {
		// The offer may have lapsed or been responded to since the caller's
		// read; the application guard below is what decides the withdraw.
		if _, err := tx.Exec(ctx, `
			UPDATE offers SET status='EXPIRED' WHERE offer_id=$1 AND status='PENDING'
		`, *pendingOfferID); err != nil {
			return err
		}
	}
	tag, err := tx.Exec(ctx, `
		UPDATE applications SET status='WITHDRAWN', updated_at=NOW() WHERE application_id=$1 AND status=$2
	`, applicationID, from)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return engagement.ErrStale
	}
	return tx.Commit(ctx)
}

func (r *EngagementRepository) GetOfferByID(ctx context.Context, offerID uuid.UUID) (*engagement.Offer, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+offerColumns+` FROM offers WHERE offer_id=$1`, offerID)
	return scanOffer(row)
}

func (r *EngagementRepository) GetPendingOffer(ctx context.Context, applicationID uuid.UUID) (*engagement.Offer, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+offerColumns+` FROM offers WHERE application_id=$1 AND status='PENDING'`, applicationID)
	return scanOffer(row)
}

func (r *EngagementRepository) ListOffers(ctx context.Context, applicationID uuid.UUID) ([]*engagement.Offer, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+offerColumns+` FROM offers WHERE application_id=$1 ORDER BY created_at ASC`, applicationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var offers []*engagement.Offer
	for rows.Next() {
		o, err := scanOffer(rows)
		if err != nil {
			return nil, err
		}
		offers = append(offers, o)
	}
	return offers, rows.Err()
}

func (r *EngagementRepository) UpdateOfferStatus(ctx context.Context, offerID uuid.UUID, from, to engagement.OfferStatus) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE offers SET status=$1 WHERE offer_id=$2 AND status=$3
	`, to, offerID, from)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return engagement.ErrStale
	}
	return nil
}

func (r *EngagementRepository) CreateOffer(ctx context.Context, o *engagement.Offer, fromApp, toApp engagement.ApplicationStatus) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := insertOffer(ctx, tx, o); err != nil {
		if isUniqueViolation(err) {
			return engagement.ErrDuplicate
		}
		return err
	}
	tag, err := tx.Exec(ctx, `
		UPDATE applications SET status=$1, updated_at=NOW() WHERE application_id=$2 AND status=$3
	`, toApp, o.ApplicationID, fromApp)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return engagement.ErrStale
	}
	return tx.Commit(ctx)
}

func (r *EngagementRepository) AcceptOffer(ctx context.Context, offerID, applicationID uuid.UUID, c *contract.Contract) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE offers SET status='ACCEPTED', responded_at=NOW() WHERE offer_id=$1 AND status='PENDING'
	`, offerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return engagement.ErrStale
	}
	if _, err := tx.Exec(ctx, `
		UPDATE applications SET status='ACCEPTED', updated_at=NOW() WHERE application_id=$1
	`, applicationID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO contracts (contract_id, application_id, campaign_id, brand_id, creator_id, status, price_in_cents, commission_rate, deliverables, deadline, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`, c.ContractID, c.ApplicationID, c.CampaignID, c.BrandID, c.CreatorID, c.Status, c.PriceInCents, c.CommissionRate, c.Deliverables, c.Deadline, c.CreatedAt, c.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return engagement.ErrDuplicate
		}
		return err
	}
	for _, title := range c.Deliverables {
		if _, err := tx.Exec(ctx, `
			INSERT INTO deliverables (deliverable_id, contract_id, creator_id, title, status, created_at, updated_at)
			VALUES ($1,$2,$3,$4,'PENDING',$5,$6)
		`, uuid.New(), c.ContractID, c.CreatorID, title, c.CreatedAt, c.CreatedAt); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *EngagementRepository) RejectOffer(ctx context.Context, offerID, applicationID uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE offers SET status='REJECTED', responded_at=NOW() WHERE offer_id=$1 AND status='PENDING'
	`, offerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return engagement.ErrStale
	}
	if _, err := tx.Exec(ctx, `
		UPDATE applications SET status='REJECTED', updated_at=NOW() WHERE application_id=$1
	`, applicationID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *EngagementRepository) CounterOffer(ctx context.Context, originalOfferID uuid.UUID, counter *engagement.Offer) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE offers SET status='COUNTERED', responded_at=NOW() WHERE offer_id=$1 AND status='PENDING'
	`, originalOfferID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return engagement.ErrStale
	}
	if err := insertOffer(ctx, tx, counter); err != nil {
		if isUniqueViolation(err) {
			return engagement.ErrDuplicate
		}
		return err
	}
	if _, err := tx.Exec(ctx, `
		UPDATE applications SET status='COUNTER_OFFERED', updated_at=NOW() WHERE application_id=$1
	`, counter.ApplicationID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func insertOffer(ctx context.Context, tx pgx.Tx, o *engagement.Offer) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO offers (offer_id, application_id, from_brand, status, price_in_cents, message, deliverables, deadline, expires_at, responded_at, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`, o.OfferID, o.ApplicationID, o.FromBrand, o.Status, o.PriceInCents, o.Message, o.Deliverables, o.Deadline, o.ExpiresAt, o.RespondedAt, o.CreatedAt)
	return err
}

func applicationWhere(filter engagement.ApplicationFilter) (string, []interface{}) {
	args := []interface{}{}
	conds := []string{}
	if filter.CampaignID != nil {
		conds = append(conds, "campaign_id=$"+itoa(len(args)+1))
		args = append(args, *filter.CampaignID)
	}
	if filter.CreatorID != nil {
		conds = append(conds, "creator_id=$"+itoa(len(args)+1))
		args = append(args, *filter.CreatorID)
	}
	if filter.Status != nil {
		conds = append(conds, "status=$"+itoa(len(args)+1))
		args = append(args, *filter.Status)
	}
	where := ""
	for i, c := range conds {
		if i == 0 {
			where = " WHERE " + c
		} else {
			where += " AND " + c
		}
	}
	return where, args
}

func scanApplication(row pgx.Row) (*engagement.Application, error) {
	var a engagement.Application
	if err := row.Scan(&a.ID, &a.ApplicationID, &a.CampaignID, &a.CreatorID, &a.Status, &a.CoverLetter, &a.PriceInCents, &a.EstimatedDays, &a.CreatedAt, &a.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

func scanOffer(row pgx.Row) (*engagement.Offer, error) {
	var o engagement.Offer
	if err := row.Scan(&o.ID, &o.OfferID, &o.ApplicationID, &o.FromBrand, &o.Status, &o.PriceInCents, &o.Message, &o.Deliverables, &o.Deadline, &o.ExpiresAt, &o.RespondedAt, &o.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &o, nil
}
