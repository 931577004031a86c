package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/collabify/collabify/internal/domain/contract"
)

// ContractRepository implements contract.Repository. The completion cascade
// on approval runs inside the review transaction so two concurrent approvals
// cannot both miss the final state.
type ContractRepository struct {
	pool *pgxpool.Pool
}

func NewContractRepository(pool *pgxpool.Pool) *ContractRepository {
	return &ContractRepository{pool: pool}
}

const contractColumns = "id, contract_id, application_id, campaign_id, brand_id, creator_id, status, price_in_cents, commission_rate, deliverables, deadline, completed_at, cancelled_at, created_at, updated_at"
const deliverableColumns = "id, deliverable_id, contract_id, creator_id, title, status, created_at, updated_at"

func (r *ContractRepository) GetByID(ctx context.Context, contractID uuid.UUID) (*contract.Contract, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+contractColumns+` FROM contracts WHERE contract_id=$1`, contractID)
	return scanContract(row)
}

func (r *ContractRepository) List(ctx context.Context, filter contract.Filter, limit, offset int) ([]*contract.Contract, error) {
	query := `SELECT ` + contractColumns + ` FROM contracts`
	where, args := contractWhere(filter)
	query += where
	query += " ORDER BY created_at DESC LIMIT $" + itoa(len(args)+1) + " OFFSET $" + itoa(len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var contracts []*contract.Contract
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, err
		}
		contracts = append(contracts, c)
	}
	return contracts, rows.Err()
}

func (r *ContractRepository) Count(ctx context.Context, filter contract.Filter) (int, error) {
	query := `SELECT COUNT(*) FROM contracts`
	where, args := contractWhere(filter)
	query += where
	var count int
	err := r.pool.QueryRow(ctx, query, args...).Scan(&count)
	return count, err
}

func (r *ContractRepository) UpdateStatus(ctx context.Context, c *contract.Contract) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE contracts SET status=$1, completed_at=$2, cancelled_at=$3, updated_at=NOW() WHERE contract_id=$4
	`, c.Status, c.CompletedAt, c.CancelledAt, c.ContractID)
	return err
}

func (r *ContractRepository) GetDeliverableByID(ctx context.Context, deliverableID uuid.UUID) (*contract.Deliverable, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+deliverableColumns+` FROM deliverables WHERE deliverable_id=$1`, deliverableID)
	return scanDeliverable(row)
}

func (r *ContractRepository) ListDeliverables(ctx context.Context, contractID uuid.UUID) ([]*contract.Deliverable, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+deliverableColumns+` FROM deliverables WHERE contract_id=$1 ORDER BY created_at ASC`, contractID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var deliverables []*contract.Deliverable
	for rows.Next() {
		d, err := scanDeliverable(rows)
		if err != nil {
			return nil, err
		}
		deliverables = append(deliverables, d)
	}
	return deliverables, rows.Err()
}

func (r *ContractRepository) ListSubmissions(ctx context.Context, deliverableID uuid.UUID) ([]*contract.Submission, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, submission_id, deliverable_id, version, file_url, link_url, notes, created_at
		FROM deliverable_submissions WHERE deliverable_id=$1 ORDER BY version ASC
	`, deliverableID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var subs []*contract.Submission
	for rows.Next() {
		var s contract.Submission
		if err := rows.Scan(&s.ID, &s.SubmissionID, &s.DeliverableID, &s.Version, &s.FileURL, &s.LinkURL, &s.Notes, &s.CreatedAt); err != nil {
			return nil, err
		}
		subs = append(subs, &s)
	}
	return subs, rows.Err()
}

func (r *ContractRepository) ListReviews(ctx context.Context, deliverableID uuid.UUID) ([]*contract.Review, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, review_id, deliverable_id, reviewed_by, approved, feedback, created_at
		FROM deliverable_reviews WHERE deliverable_id=$1 ORDER BY created_at ASC
	`, deliverableID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var reviews []*contract.Review
	for rows.Next() {
		var rev contract.Review
		if err := rows.Scan(&rev.ID, &rev.ReviewID, &rev.DeliverableID, &rev.ReviewedBy, &rev.Approved, &rev.Feedback, &rev.CreatedAt); err != nil {
			return nil, err
		}
		reviews = append(reviews, &rev)
	}
	return reviews, rows.Err()
}

func (r *ContractRepository) SubmitDeliverable(ctx context.Context, sub *contract.Submission, contractID uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	// The version is computed against committed rows inside the transaction.
	// Two racing submissions still compute the same value; the unique index
	// on (deliverable_id, version) rejects the loser.
	err = tx.QueryRow(ctx, `
		INSERT INTO deliverable_submissions (submission_id, deliverable_id, version, file_url, link_url, notes, created_at)
		SELECT $1, $2, COALESCE(MAX(version), 0)+1, $3, $4, $5, $6
		FROM deliverable_submissions WHERE deliverable_id=$2
		RETURNING version
	`, sub.SubmissionID, sub.DeliverableID, sub.FileURL, sub.LinkURL, sub.Notes, sub.CreatedAt).Scan(&sub.Version)
	if err != nil {
		if isUniqueViolation(err) {
			return contract.ErrDuplicate
		}
		return err
	}
	if _, err := tx.Exec(ctx, `
		UPDATE deliverables SET status='SUBMITTED', updated_at=NOW() WHERE deliverable_id=$1
	`, sub.DeliverableID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `
		UPDATE contracts SET status='IN_REVIEW', updated_at=NOW() WHERE contract_id=$1
	`, contractID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *ContractRepository) ReviewDeliverable(ctx context.Context, rev *contract.Review, newStatus contract.DeliverableStatus, contractID uuid.UUID) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		INSERT INTO deliverable_reviews (review_id, deliverable_id, reviewed_by, approved, feedback, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, rev.ReviewID, rev.DeliverableID, rev.ReviewedBy, rev.Approved, rev.Feedback, rev.CreatedAt); err != nil {
		return false, err
	}
	if _, err := tx.Exec(ctx, `
		UPDATE deliverables SET status=$1, updated_at=NOW() WHERE deliverable_id=$2
	`, newStatus, rev.DeliverableID); err != nil {
		return false, err
	}

	if newStatus == contract.DeliverableChangesRequested {
		if _, err := tx.Exec(ctx, `
			UPDATE contracts SET status='DELIVERING', updated_at=NOW() WHERE contract_id=$1 AND status='IN_REVIEW'
		`, contractID); err != nil {
			return false, err
		}
	}

	completed := false
	if newStatus == contract.DeliverableApproved {
		var remaining int
		if err := tx.QueryRow(ctx, `
			SELECT COUNT(*) FROM deliverables WHERE contract_id=$1 AND status <> 'APPROVED'
		`, contractID).Scan(&remaining); err != nil {
			return false, err
		}
		if remaining == 0 {
			if _, err := tx.Exec(ctx, `
				UPDATE contracts SET status='COMPLETED', completed_at=NOW(), updated_at=NOW() WHERE contract_id=$1
			`, contractID); err != nil {
				return false, err
			}
			completed = true
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return completed, nil
}

func contractWhere(filter contract.Filter) (string, []interface{}) {
	args := []interface{}{}
	conds := []string{}
	if filter.BrandID != nil {
		conds = append(conds, "brand_id=$"+itoa(len(args)+1))
		args = append(args, *filter.BrandID)
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

func scanContract(row pgx.Row) (*contract.Contract, error) {
	var c contract.Contract
	if err := row.Scan(&c.ID, &c.ContractID, &c.ApplicationID, &c.CampaignID, &c.BrandID, &c.CreatorID, &c.Status, &c.PriceInCents, &c.CommissionRate, &c.Deliverables, &c.Deadline, &c.CompletedAt, &c.CancelledAt, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

func scanDeliverable(row pgx.Row) (*contract.Deliverable, error) {
	var d contract.Deliverable
	if err := row.Scan(&d.ID, &d.DeliverableID, &d.ContractID, &d.CreatorID, &d.Title, &d.Status, &d.CreatedAt, &d.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &d, nil
}
