package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"taxreport/internal/taxreport"
	"taxreport/pkg/models"
)

// ChargeRepo persists charges with their refunds.
// ChargeRepo stores charges and their refunds in SQLite.
type ChargeRepo struct {
	db *sql.DB
}

// NewChargeRepo creates a repository on a database returned by Open.
func NewChargeRepo(db *sql.DB) *ChargeRepo {
	return &ChargeRepo{db: db}
}

// Upsert stores charges in one transaction. Existing charges are overwritten
// and their refunds replaced.
func (r *ChargeRepo) Upsert(ctx context.Context, charges []models.ChargeRecord) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	chargeStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO charges
		(id, created, country, source_country, tax_number, owner_id, owner_name,
		 owner_email, owner_country, amount, fee, currency)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET
			created = excluded.created,
			country = excluded.country,
			source_country = excluded.source_country,
			tax_number = excluded.tax_number,
			owner_id = excluded.owner_id,
			owner_name = excluded.owner_name,
			owner_email = excluded.owner_email,
			owner_country = excluded.owner_country,
			amount = excluded.amount,
			fee = excluded.fee,
			currency = excluded.currency`,
	)
	if err != nil {
		return 0, fmt.Errorf("prepare charge insert: %w", err)
	}
	defer chargeStmt.Close()

	clearStmt, err := tx.PrepareContext(ctx, `DELETE FROM refunds WHERE charge_id = ?`)
	if err != nil {
		return 0, fmt.Errorf("prepare refund delete: %w", err)
	}
	defer clearStmt.Close()

	refundStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO refunds
		(charge_id, position, id, amount, settlement_amount, settlement_fee, settlement_currency)
		VALUES (?,?,?,?,?,?,?)`,
	)
	if err != nil {
		return 0, fmt.Errorf("prepare refund insert: %w", err)
	}
	defer refundStmt.Close()

	for i := range charges {
		ch := &charges[i]
		if ch.ID == "" {
			return 0, fmt.Errorf("charge %d: missing id", i)
		}

		var ownerID sql.NullString
		var ownerName, ownerEmail, ownerCountry string
		if ch.Owner != nil {
			ownerID = sql.NullString{String: ch.Owner.ID, Valid: true}
			ownerName, ownerEmail, ownerCountry = ch.Owner.Name, ch.Owner.Email, ch.Owner.Country
		}

		var taxNumber sql.NullString
		if ch.TaxNumber != nil {
			taxNumber = sql.NullString{String: *ch.TaxNumber, Valid: true}
		}

		if _, err := chargeStmt.ExecContext(ctx,
			ch.ID, ch.Created.Unix(), ch.Country, ch.SourceCountry, taxNumber,
			ownerID, ownerName, ownerEmail, ownerCountry,
			ch.Settlement.Amount, ch.Settlement.Fee, ch.Settlement.Currency,
		); err != nil {
			return 0, fmt.Errorf("insert charge %s: %w", ch.ID, err)
		}

		if _, err := clearStmt.ExecContext(ctx, ch.ID); err != nil {
			return 0, fmt.Errorf("clear refunds of %s: %w", ch.ID, err)
		}
		for pos, rf := range ch.Refunds {
			if _, err := refundStmt.ExecContext(ctx,
				ch.ID, pos, rf.ID, rf.Amount,
				rf.Settlement.Amount, rf.Settlement.Fee, rf.Settlement.Currency,
			); err != nil {
				return 0, fmt.Errorf("insert refund %d of %s: %w", pos, ch.ID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return len(charges), nil
}

// Load returns the charges created within the period ordered by creation
// time, refunds in their original order. Charges without an owner are
// included; excluding them is the aggregation's decision.
func (r *ChargeRepo) Load(ctx context.Context, period taxreport.Period) ([]models.ChargeRecord, error) {
	from, to := period.From.Unix(), period.To.Unix()

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, created, country, source_country, tax_number, owner_id,
		        owner_name, owner_email, owner_country, amount, fee, currency
		FROM charges
		WHERE created >= ? AND created < ?
		ORDER BY created, id`,
		from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("query charges: %w", err)
	}
	defer rows.Close()

	var charges []models.ChargeRecord
	index := make(map[string]int)
	for rows.Next() {
		var (
			ch                                  models.ChargeRecord
			created                             int64
			taxNumber, ownerID                  sql.NullString
			ownerName, ownerEmail, ownerCountry string
		)
		if err := rows.Scan(
			&ch.ID, &created, &ch.Country, &ch.SourceCountry, &taxNumber, &ownerID,
			&ownerName, &ownerEmail, &ownerCountry,
			&ch.Settlement.Amount, &ch.Settlement.Fee, &ch.Settlement.Currency,
		); err != nil {
			return nil, fmt.Errorf("scan charge: %w", err)
		}
		ch.Created = time.Unix(created, 0).UTC()
		if taxNumber.Valid {
			tn := taxNumber.String
			ch.TaxNumber = &tn
		}
		if ownerID.Valid {
			ch.Owner = &models.Owner{ID: ownerID.String, Name: ownerName, Email: ownerEmail, Country: ownerCountry}
		}
		index[ch.ID] = len(charges)
		charges = append(charges, ch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate charges: %w", err)
	}

	if err := r.attachRefunds(ctx, charges, index, from, to); err != nil {
		return nil, err
	}
	return charges, nil
}

func (r *ChargeRepo) attachRefunds(ctx context.Context, charges []models.ChargeRecord, index map[string]int, from, to int64) error {
	rows, err := r.db.QueryContext(ctx,
		`SELECT r.charge_id, r.id, r.amount, r.settlement_amount, r.settlement_fee, r.settlement_currency
		FROM refunds r
		JOIN charges c ON c.id = r.charge_id
		WHERE c.created >= ? AND c.created < ?
		ORDER BY r.charge_id, r.position`,
		from, to,
	)
	if err != nil {
		return fmt.Errorf("query refunds: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var chargeID string
		var rf models.Refund
		if err := rows.Scan(&chargeID, &rf.ID, &rf.Amount,
			&rf.Settlement.Amount, &rf.Settlement.Fee, &rf.Settlement.Currency); err != nil {
			return fmt.Errorf("scan refund: %w", err)
		}
		i, ok := index[chargeID]
		if !ok {
			continue
		}
		charges[i].Refunds = append(charges[i].Refunds, rf)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate refunds: %w", err)
	}
	return nil
}

// Count returns the number of stored charges.
func (r *ChargeRepo) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM charges`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count charges: %w", err)
	}
	return count, nil
}
