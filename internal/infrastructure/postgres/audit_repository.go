package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/collabify/collabify/internal/domain/audit"
)

// AuditRepository implements audit.Repository.
type AuditRepository struct {
	pool *pgxpool.Pool
}

func NewAuditRepository(pool *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{pool: pool}
}

func (r *AuditRepository) Create(ctx context.Context, e *audit.Entry) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO audit_entries (audit_id, entity_type, entity_id, action, actor_id, metadata, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, e.AuditID, e.EntityType, e.EntityID, e.Action, e.ActorID, e.Metadata, e.CreatedAt)
	return err
}

func (r *AuditRepository) List(ctx context.Context, filter audit.Filter, limit, offset int) ([]*audit.Entry, error) {
	query := `
		SELECT id, audit_id, entity_type, entity_id, action, actor_id, metadata, created_at
		FROM audit_entries`
	args := []interface{}{}
	conds := []string{}
	if filter.EntityType != nil {
		conds = append(conds, "entity_type=$"+itoa(len(args)+1))
		args = append(args, *filter.EntityType)
	}
	if filter.EntityID != nil {
		conds = append(conds, "entity_id=$"+itoa(len(args)+1))
		args = append(args, *filter.EntityID)
	}
	if filter.Action != nil {
		conds = append(conds, "action=$"+itoa(len(args)+1))
		args = append(args, *filter.Action)
	}
	if filter.ActorID != nil {
		conds = append(conds, "actor_id=$"+itoa(len(args)+1))
		args = append(args, *filter.ActorID)
	}
	if filter.Since != nil {
		conds = append(conds, "created_at >= $"+itoa(len(args)+1))
		args = append(args, *filter.Since)
	}
	for i, c := range conds {
		if i == 0 {
			query += " WHERE " + c
		} else {
			query += " AND " + c
		}
	}
	query += " ORDER BY created_at DESC LIMIT $" + itoa(len(args)+1) + " OFFSET $" + itoa(len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []*audit.Entry
	for rows.Next() {
		var e audit.Entry
		if err := rows.Scan(&e.ID, &e.AuditID, &e.EntityType, &e.EntityID, &e.Action, &e.ActorID, &e.Metadata, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
