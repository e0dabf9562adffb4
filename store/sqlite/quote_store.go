package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/paynet-xyz/paynet-mint/quote/meltquote"
	"github.com/paynet-xyz/paynet-mint/quote/mintquote"
)

// MintQuoteStore implements mintquote.Store.
type MintQuoteStore struct {
	db *DB
}

func NewMintQuoteStore(db *DB) *MintQuoteStore {
	return &MintQuoteStore{db: db}
}

func (s *MintQuoteStore) Save(ctx context.Context, q mintquote.Quote) error {
	_, err := s.db.conn.ExecContext(ctx, `
		INSERT INTO mint_quotes (id, unit, amount, deposit_address, state, expiry, paid_amount)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, q.ID, q.Unit, q.Amount, q.DepositAddress, q.State.String(), q.Expiry.Unix(), q.PaidAmount)
	return err
}

func (s *MintQuoteStore) scanQuote(row *sql.Row) (mintquote.Quote, error) {
	var q mintquote.Quote
	var stateStr string
	var expiryUnix int64
	err := row.Scan(&q.ID, &q.Unit, &q.Amount, &q.DepositAddress, &stateStr, &expiryUnix, &q.PaidAmount)
	if errors.Is(err, sql.ErrNoRows) {
		return mintquote.Quote{}, err
	}
	if err != nil {
		return mintquote.Quote{}, err
	}
	q.InvoiceID = mintquote.InvoiceIDFor(q.ID)
	q.Expiry = time.Unix(expiryUnix, 0)
	q.State = parseMintState(stateStr)
	return q, nil
}

func (s *MintQuoteStore) Get(ctx context.Context, id string) (mintquote.Quote, error) {
	row := s.db.conn.QueryRowContext(ctx, `
		SELECT id, unit, amount, deposit_address, state, expiry, paid_amount FROM mint_quotes WHERE id = ?
	`, id)
	return s.scanQuote(row)
}

func (s *MintQuoteStore) GetByInvoiceID(ctx context.Context, invoiceID string) (mintquote.Quote, error) {
	rows, err := s.db.conn.QueryContext(ctx, `
		SELECT id, unit, amount, deposit_address, state, expiry, paid_amount FROM mint_quotes
	`)
	if err != nil {
		return mintquote.Quote{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var q mintquote.Quote
		var stateStr string
		var expiryUnix int64
		if err := rows.Scan(&q.ID, &q.Unit, &q.Amount, &q.DepositAddress, &stateStr, &expiryUnix, &q.PaidAmount); err != nil {
			return mintquote.Quote{}, err
		}
		if mintquote.InvoiceIDFor(q.ID) == invoiceID {
			q.InvoiceID = invoiceID
			q.Expiry = time.Unix(expiryUnix, 0)
			q.State = parseMintState(stateStr)
			return q, nil
		}
	}
	return mintquote.Quote{}, sql.ErrNoRows
}

func (s *MintQuoteStore) UpdateState(ctx context.Context, id string, state mintquote.State) error {
	_, err := s.db.conn.ExecContext(ctx, `UPDATE mint_quotes SET state = ? WHERE id = ?`, state.String(), id)
	return err
}

func (s *MintQuoteStore) MarkPaid(ctx context.Context, id string, paidAmount uint64) error {
	_, err := s.db.conn.ExecContext(ctx, `
		UPDATE mint_quotes SET state = ?, paid_amount = ? WHERE id = ? AND state = ?
	`, mintquote.Paid.String(), paidAmount, id, mintquote.Unpaid.String())
	return err
}

func parseMintState(s string) mintquote.State {
	switch s {
	case "PAID":
		return mintquote.Paid
	case "ISSUED":
		return mintquote.Issued
	default:
		return mintquote.Unpaid
	}
}

// MeltQuoteStore implements meltquote.Store.
type MeltQuoteStore struct {
	db *DB
}

func NewMeltQuoteStore(db *DB) *MeltQuoteStore {
	return &MeltQuoteStore{db: db}
}

func (s *MeltQuoteStore) Save(ctx context.Context, q meltquote.Quote) error {
	_, err := s.db.conn.ExecContext(ctx, `
		INSERT INTO melt_quotes (id, unit, amount, fee_reserve, destination, state, expiry)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, q.ID, q.Unit, q.Amount, q.FeeReserve, q.Destination, q.State.String(), q.Expiry.Unix())
	return err
}

func (s *MeltQuoteStore) Get(ctx context.Context, id string) (meltquote.Quote, error) {
	row := s.db.conn.QueryRowContext(ctx, `
		SELECT id, unit, amount, fee_reserve, destination, state, expiry, withdrawal_ref, payment_proof
		FROM melt_quotes WHERE id = ?
	`, id)

	var q meltquote.Quote
	var stateStr string
	var expiryUnix int64
	var withdrawalRef, paymentProof sql.NullString
	err := row.Scan(&q.ID, &q.Unit, &q.Amount, &q.FeeReserve, &q.Destination, &stateStr, &expiryUnix, &withdrawalRef, &paymentProof)
	if err != nil {
		return meltquote.Quote{}, err
	}
	q.Expiry = time.Unix(expiryUnix, 0)
	q.State = parseMeltState(stateStr)
	q.WithdrawalRef = withdrawalRef.String
	q.PaymentProof = paymentProof.String
	return q, nil
}

func (s *MeltQuoteStore) UpdateState(ctx context.Context, id string, state meltquote.State) error {
	_, err := s.db.conn.ExecContext(ctx, `UPDATE melt_quotes SET state = ? WHERE id = ?`, state.String(), id)
	return err
}

func (s *MeltQuoteStore) MarkPending(ctx context.Context, id string, withdrawalRef string) error {
	_, err := s.db.conn.ExecContext(ctx, `
		UPDATE melt_quotes SET state = ?, withdrawal_ref = ? WHERE id = ?
	`, meltquote.Pending.String(), withdrawalRef, id)
	return err
}

func (s *MeltQuoteStore) MarkPaid(ctx context.Context, id string, paymentProof string) error {
	_, err := s.db.conn.ExecContext(ctx, `
		UPDATE melt_quotes SET state = ?, payment_proof = ? WHERE id = ? AND state = ?
	`, meltquote.Paid.String(), paymentProof, id, meltquote.Pending.String())
	return err
}

func parseMeltState(s string) meltquote.State {
	switch s {
	case "PENDING":
		return meltquote.Pending
	case "PAID":
		return meltquote.Paid
	default:
		return meltquote.Unpaid
	}
}
