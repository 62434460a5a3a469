package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/arena-ledger/arena-ledger/internal/domain/journal"
)

// JournalRepository implements journal.Repository.
type JournalRepository struct {
	pool *pgxpool.Pool
}

func NewJournalRepository(pool *pgxpool.Pool) *JournalRepository {
	return &JournalRepository{pool: pool}
}

func (r *JournalRepository) Insert(ctx context.Context, e *journal.Entry) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO settlement_journal
		(id, kind, venue_id, session_id, wallet, amount, token, status, detail, note, created_at, reconciled_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`, e.ID, string(e.Kind), int64(e.VenueID), int64(e.SessionID), e.Wallet, int64(e.Amount),
		e.Token, string(e.Status), e.Detail, e.Note, e.CreatedAt, e.ReconciledAt)
	return err
}

func (r *JournalRepository) GetByID(ctx context.Context, id uuid.UUID) (*journal.Entry, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, kind, venue_id, session_id, wallet, amount, token, status, detail, note, created_at, reconciled_at
		FROM settlement_journal WHERE id=$1
	`, id)
	return scanJournalEntry(row)
}

func (r *JournalRepository) List(ctx context.Context, filter journal.Filter, limit, offset int) ([]*journal.Entry, error) {
	query := `
		SELECT id, kind, venue_id, session_id, wallet, amount, token, status, detail, note, created_at, reconciled_at
		FROM settlement_journal WHERE 1=1`
	args := []interface{}{}
	idx := 1
	if filter.Kind != "" {
		query += fmt.Sprintf(" AND kind=$%d", idx)
		args = append(args, string(filter.Kind))
		idx++
	}
	if filter.Status != "" {
		query += fmt.Sprintf(" AND status=$%d", idx)
		args = append(args, string(filter.Status))
		idx++
	}
	if filter.VenueID != 0 {
		query += fmt.Sprintf(" AND venue_id=$%d", idx)
		args = append(args, int64(filter.VenueID))
		idx++
	}
	if filter.Wallet != "" {
		query += fmt.Sprintf(" AND wallet=$%d", idx)
		args = append(args, filter.Wallet)
		idx++
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectJournalEntries(rows)
}

func (r *JournalRepository) ListFailedTransfers(ctx context.Context, limit int) ([]*journal.Entry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, kind, venue_id, session_id, wallet, amount, token, status, detail, note, created_at, reconciled_at
		FROM settlement_journal
		WHERE status=$1
		ORDER BY created_at ASC
		LIMIT $2
	`, string(journal.StatusTransferFailed), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectJournalEntries(rows)
}

func (r *JournalRepository) MarkReconciled(ctx context.Context, id uuid.UUID, note string) error {
	res, err := r.pool.Exec(ctx, `
		UPDATE settlement_journal
		SET status=$1, note=$2, reconciled_at=$3
		WHERE id=$4 AND status=$5
	`, string(journal.StatusReconciled), note, time.Now().UTC(), id, string(journal.StatusTransferFailed))
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return fmt.Errorf("journal entry %s is not reconcilable", id)
	}
	return nil
}

func collectJournalEntries(rows pgx.Rows) ([]*journal.Entry, error) {
	entries := []*journal.Entry{}
	for rows.Next() {
		e, err := scanJournalEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func scanJournalEntry(row pgx.Row) (*journal.Entry, error) {
	var e journal.Entry
	var kind, status string
	var venueID, sessionID, amount int64
	if err := row.Scan(&e.ID, &kind, &venueID, &sessionID, &e.Wallet, &amount,
		&e.Token, &status, &e.Detail, &e.Note, &e.CreatedAt, &e.ReconciledAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	e.Kind = journal.Kind(kind)
	e.Status = journal.Status(status)
	e.VenueID = uint64(venueID)
	e.SessionID = uint64(sessionID)
	e.Amount = uint64(amount)
	return &e, nil
}
