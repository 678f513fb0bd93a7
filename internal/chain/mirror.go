package chain

import (
	"context"
	"database/sql"
	"time"

	"golang.org/x/time/rate"

	"github.com/signalsfoundry/orbital-energy-sim/internal/logging"
	"github.com/signalsfoundry/orbital-energy-sim/model"

	_ "modernc.org/sqlite"
)

// SQLiteMirror keeps a best-effort off-simulation copy of notable market
// transactions in SQLite. Offers below the cost threshold are dropped,
// and writes are rate limited so a busy market cannot stall on disk.
//
// Every failure is swallowed: the mirror exists for audit convenience
// and must never influence the simulation.
type SQLiteMirror struct {
	db      *sql.DB
	log     logging.Logger
	limiter *rate.Limiter

	// minCost is the TotalCost below which a transaction is not mirrored.
	minCost float64
}

const defaultMinMirrorCost = 1.0

// NewSQLiteMirror opens (or creates) the mirror database at path and
// ensures the schema exists.
func NewSQLiteMirror(path string, log logging.Logger) (*SQLiteMirror, error) {
	if log == nil {
		log = logging.Noop()
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	m := &SQLiteMirror{
		db:  db,
		log: log,
		// at most one write every 2 seconds, no burst
		limiter: rate.NewLimiter(rate.Every(2*time.Second), 1),
		minCost: defaultMinMirrorCost,
	}
	if err := m.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return m, nil
}

func (m *SQLiteMirror) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS transactions (
		transaction_id TEXT PRIMARY KEY,
		timestamp DATETIME,
		from_entity TEXT,
		from_company TEXT,
		from_wallet TEXT,
		to_entity TEXT,
		to_company TEXT,
		to_wallet TEXT,
		energy_amount REAL,
		price_per_unit REAL,
		total_cost REAL,
		transfer_type TEXT
	);`
	_, err := m.db.ExecContext(context.Background(), query)
	return err
}

// Offer mirrors one transaction if it clears the cost threshold and the
// rate limiter has a token. Errors are logged at debug and dropped.
func (m *SQLiteMirror) Offer(ctx context.Context, txn *model.Transaction) {
	if m == nil || txn == nil {
		return
	}
	if txn.TotalCost < m.minCost {
		return
	}
	if !m.limiter.Allow() {
		return
	}

	query := `INSERT OR IGNORE INTO transactions (
		transaction_id, timestamp, from_entity, from_company, from_wallet,
		to_entity, to_company, to_wallet, energy_amount, price_per_unit,
		total_cost, transfer_type
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := m.db.ExecContext(ctx, query,
		txn.ID,
		txn.Timestamp.UTC().Format(time.RFC3339Nano),
		txn.FromEntityID, txn.FromCompany, txn.FromWallet,
		txn.ToEntityID, txn.ToCompany, txn.ToWallet,
		txn.EnergyAmount, txn.PricePerUnit, txn.TotalCost,
		string(txn.Type),
	)
	if err != nil {
		m.log.Debug(ctx, "ledger mirror write failed",
			logging.String("transaction_id", txn.ID),
			logging.String("error", err.Error()))
	}
}

// Recent returns up to limit mirrored transactions, newest first.
func (m *SQLiteMirror) Recent(ctx context.Context, limit int) ([]*model.Transaction, error) {
	query := `
	SELECT transaction_id, timestamp, from_entity, from_company, from_wallet,
	       to_entity, to_company, to_wallet, energy_amount, price_per_unit,
	       total_cost, transfer_type
	FROM transactions
	ORDER BY timestamp DESC
	LIMIT ?`

	rows, err := m.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []*model.Transaction
	for rows.Next() {
		var txn model.Transaction
		var ts, tt string
		if err := rows.Scan(
			&txn.ID, &ts, &txn.FromEntityID, &txn.FromCompany, &txn.FromWallet,
			&txn.ToEntityID, &txn.ToCompany, &txn.ToWallet,
			&txn.EnergyAmount, &txn.PricePerUnit, &txn.TotalCost, &tt,
		); err != nil {
			return nil, err
		}
		txn.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
		txn.Type = model.TransferType(tt)
		txn.Status = "completed"
		out = append(out, &txn)
	}
	return out, rows.Err()
}

// Close releases the underlying database handle.
func (m *SQLiteMirror) Close() error {
	if m == nil || m.db == nil {
		return nil
	}
	return m.db.Close()
}
