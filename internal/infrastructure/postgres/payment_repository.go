package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/collabify/collabify/internal/domain/payment"
)

// PaymentRepository implements payment.Repository. At most one in-flight
// intent per contract; the partial unique index is the authoritative guard.
type PaymentRepository struct {
	pool *pgxpool.Pool
}

func NewPaymentRepository(pool *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{pool: pool}
}

const intentColumns = "id, intent_id, contract_id, brand_id, processor_payment_id, status, amount_in_cents, commission_cents, creator_payout_cents, captured_at, released_at, created_at, updated_at"

func (r *PaymentRepository) GetInFlightByContract(ctx context.Context, contractID uuid.UUID) (*payment.IntentRecord, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+intentColumns+` FROM payment_intents
		WHERE contract_id=$1 AND status IN ('PENDING','AUTHORIZED')
	`, contractID)
	return scanIntent(row)
}

func (r *PaymentRepository) GetByContractAndStatus(ctx context.Context, contractID uuid.UUID, status payment.Status) (*payment.IntentRecord, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+intentColumns+` FROM payment_intents
		WHERE contract_id=$1 AND status=$2 ORDER BY created_at DESC LIMIT 1
	`, contractID, status)
	return scanIntent(row)
}

func (r *PaymentRepository) GetByProcessorPaymentID(ctx context.Context, processorPaymentID string) (*payment.IntentRecord, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+intentColumns+` FROM payment_intents WHERE processor_payment_id=$1
	`, processorPaymentID)
	return scanIntent(row)
}

func (r *PaymentRepository) CreateIntent(ctx context.Context, rec *payment.IntentRecord, hold *payment.LedgerEntry) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		INSERT INTO payment_intents (intent_id, contract_id, brand_id, processor_payment_id, status, amount_in_cents, commission_cents, creator_payout_cents, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, rec.IntentID, rec.ContractID, rec.BrandID, rec.ProcessorPaymentID, rec.Status, rec.AmountInCents, rec.CommissionCents, rec.CreatorPayoutCents, rec.CreatedAt, rec.UpdatedAt); err != nil {
		return err
	}
	if err := insertLedgerEntry(ctx, tx, hold); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *PaymentRepository) SetStatusByProcessorPaymentID(ctx context.Context, processorPaymentID string, status payment.Status, from []payment.Status) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE payment_intents SET status=$1, updated_at=NOW()
		WHERE processor_payment_id=$2 AND status = ANY($3)
	`, status, processorPaymentID, statusStrings(from))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PaymentRepository) Capture(ctx context.Context, rec *payment.IntentRecord, entry *payment.LedgerEntry) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE payment_intents SET status='CAPTURED', captured_at=NOW(), updated_at=NOW()
		WHERE intent_id=$1 AND status='AUTHORIZED'
	`, rec.IntentID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return payment.ErrStale
	}
	if err := insertLedgerEntry(ctx, tx, entry); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *PaymentRepository) Release(ctx context.Context, rec *payment.IntentRecord, commission, payout *payment.LedgerEntry, payoutRec *payment.PayoutRecord) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE payment_intents SET status='RELEASED', released_at=NOW(), updated_at=NOW()
		WHERE intent_id=$1 AND status='CAPTURED'
	`, rec.IntentID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return payment.ErrStale
	}
	if err := insertLedgerEntry(ctx, tx, commission); err != nil {
		return err
	}
	if err := insertLedgerEntry(ctx, tx, payout); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO payouts (payout_id, creator_id, contract_id, amount_in_cents, status, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, payoutRec.PayoutID, payoutRec.CreatorID, payoutRec.ContractID, payoutRec.AmountInCents, payoutRec.Status, payoutRec.CreatedAt); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *PaymentRepository) ListLedger(ctx context.Context, contractID uuid.UUID) ([]*payment.LedgerEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, entry_id, contract_id, type, amount_in_cents, description, created_at
		FROM ledger_entries WHERE contract_id=$1 ORDER BY created_at ASC, id ASC
	`, contractID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []*payment.LedgerEntry
	for rows.Next() {
		var e payment.LedgerEntry
		if err := rows.Scan(&e.ID, &e.EntryID, &e.ContractID, &e.Type, &e.AmountInCents, &e.Description, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

func (r *PaymentRepository) ListPayouts(ctx context.Context, creatorID uuid.UUID) ([]*payment.PayoutRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, payout_id, creator_id, contract_id, amount_in_cents, status, created_at
		FROM payouts WHERE creator_id=$1 ORDER BY created_at DESC
	`, creatorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var payouts []*payment.PayoutRecord
	for rows.Next() {
		var p payment.PayoutRecord
		if err := rows.Scan(&p.ID, &p.PayoutID, &p.CreatorID, &p.ContractID, &p.AmountInCents, &p.Status, &p.CreatedAt); err != nil {
			return nil, err
		}
		payouts = append(payouts, &p)
	}
	return payouts, rows.Err()
}

func insertLedgerEntry(ctx context.Context, tx pgx.Tx, e *payment.LedgerEntry) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO ledger_entries (entry_id, contract_id, type, amount_in_cents, description, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, e.EntryID, e.ContractID, e.Type, e.AmountInCents, e.Description, e.CreatedAt)
	return err
}

func statusStrings(statuses []payment.Status) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func scanIntent(row pgx.Row) (*payment.IntentRecord, error) {
	var rec payment.IntentRecord
	if err := row.Scan(&rec.ID, &rec.IntentID, &rec.ContractID, &rec.BrandID, &rec.ProcessorPaymentID, &rec.Status, &rec.AmountInCents, &rec.CommissionCents, &rec.CreatorPayoutCents, &rec.CapturedAt, &rec.ReleasedAt, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}
