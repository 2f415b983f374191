package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/quotelane/exchange-cli/internal/connection"
	"github.com/quotelane/exchange-cli/internal/ledger"
	"github.com/quotelane/exchange-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS connections (
	id                 TEXT PRIMARY KEY,
	provider_id        TEXT NOT NULL,
	buyer_id           TEXT NOT NULL,
	status             TEXT NOT NULL DEFAULT 'pending_buyer_review',
	message            TEXT NOT NULL DEFAULT '',
	terms              TEXT,
	total_leads        INTEGER NOT NULL DEFAULT 0,
	total_paid         REAL NOT NULL DEFAULT 0,
	created_at         DATETIME NOT NULL,
	accepted_at        DATETIME,
	terms_updated_at   DATETIME,
	terminated_at      DATETIME,
	terminated_by      TEXT NOT NULL DEFAULT '',
	termination_reason TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS leads (
	id             TEXT PRIMARY KEY,
	connection_id  TEXT NOT NULL REFERENCES connections(id),
	provider_id    TEXT NOT NULL,
	buyer_id       TEXT NOT NULL,
	customer_name  TEXT NOT NULL,
	customer_phone TEXT NOT NULL DEFAULT '',
	customer_email TEXT NOT NULL DEFAULT '',
	customer_state TEXT NOT NULL DEFAULT '',
	vehicle        TEXT NOT NULL DEFAULT '',
	quote_type     TEXT NOT NULL DEFAULT 'quote',
	status         TEXT NOT NULL DEFAULT 'pending',
	payout         REAL NOT NULL DEFAULT 0,
	quote          TEXT,
	created_at     DATETIME NOT NULL,
	updated_at     DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_connections_provider ON connections(provider_id);
CREATE INDEX IF NOT EXISTS idx_connections_buyer ON connections(buyer_id);
CREATE INDEX IF NOT EXISTS idx_connections_status ON connections(status);
CREATE INDEX IF NOT EXISTS idx_connections_pair ON connections(provider_id, buyer_id);
CREATE INDEX IF NOT EXISTS idx_leads_connection_created ON leads(connection_id, created_at);
CREATE INDEX IF NOT EXISTS idx_leads_provider ON leads(provider_id);
CREATE INDEX IF NOT EXISTS idx_leads_buyer ON leads(buyer_id);
CREATE INDEX IF NOT EXISTS idx_leads_status ON leads(status);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Connections ---

func (s *SQLiteStore) CreateConnection(ctx context.Context, conn *model.Connection) error {
	if conn.ID == "" {
		conn.ID = uuid.New().String()
	}

	var termsJSON any
	if conn.Terms != nil {
		b, err := json.Marshal(conn.Terms)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal terms")
		}
		termsJSON = string(b)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO connections
		 (id, provider_id, buyer_id, status, message, terms, total_leads, total_paid,
		  created_at, accepted_at, terms_updated_at, terminated_at, terminated_by, termination_reason)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		conn.ID, conn.ProviderID, conn.BuyerID, string(conn.Status), conn.Message, termsJSON,
		conn.TotalLeads, conn.TotalPaid, conn.CreatedAt, nullTime(conn.AcceptedAt),
		nullTime(conn.TermsUpdatedAt), nullTime(conn.TerminatedAt),
		conn.TerminatedBy, conn.TerminationReason,
	)
	return eris.Wrap(err, "sqlite: insert connection")
}

func (s *SQLiteStore) GetConnection(ctx context.Context, id string) (*model.Connection, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+connectionColumns+` FROM connections WHERE id = ?`, id)
	return scanConnection(row)
}

func (s *SQLiteStore) LiveConnectionByPair(ctx context.Context, providerID, buyerID string) (*model.Connection, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+connectionColumns+` FROM connections
		 WHERE provider_id = ? AND buyer_id = ?
		   AND status IN ('pending_buyer_review', 'pending_provider_accept', 'active')
		 ORDER BY created_at DESC LIMIT 1`,
		providerID, buyerID)

	conn, err := scanConnection(row)
	if eris.Is(err, ErrNotFound) {
		return nil, nil
	}
	return conn, err
}

func (s *SQLiteStore) UpdateConnection(ctx context.Context, conn *model.Connection) error {
	var termsJSON any
	if conn.Terms != nil {
		b, err := json.Marshal(conn.Terms)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal terms")
		}
		termsJSON = string(b)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE connections SET
			status = ?, message = ?, terms = ?, total_leads = ?, total_paid = ?,
			accepted_at = ?, terms_updated_at = ?, terminated_at = ?,
			terminated_by = ?, termination_reason = ?
		 WHERE id = ?`,
		string(conn.Status), conn.Message, termsJSON, conn.TotalLeads, conn.TotalPaid,
		nullTime(conn.AcceptedAt), nullTime(conn.TermsUpdatedAt), nullTime(conn.TerminatedAt),
		conn.TerminatedBy, conn.TerminationReason, conn.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update connection %s", conn.ID)
	}
	return checkRowsAffected(res, "connection", conn.ID)
}

func (s *SQLiteStore) ListConnections(ctx context.Context, f connection.Filter) ([]model.Connection, error) {
	query := `SELECT ` + connectionColumns + ` FROM connections WHERE 1=1`
	var args []any

	if f.ProviderID != "" {
		query += ` AND provider_id = ?`
		args = append(args, f.ProviderID)
	}
	if f.BuyerID != "" {
		query += ` AND buyer_id = ?`
		args = append(args, f.BuyerID)
	}
	if f.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(f.Status))
	}
	query += ` ORDER BY created_at DESC`

	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list connections")
	}
	defer rows.Close()

	var conns []model.Connection
	for rows.Next() {
		c, err := scanConnection(rows)
		if err != nil {
			return nil, err
		}
		conns = append(conns, *c)
	}
	return conns, eris.Wrap(rows.Err(), "sqlite: list connections iterate")
}

func (s *SQLiteStore) CountActiveByParty(ctx context.Context, role model.Role, partyID string) (int, error) {
	col, err := partyColumn(role)
	if err != nil {
		return 0, err
	}

	var n int
	err = s.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT COUNT(*) FROM connections WHERE status = 'active' AND %s = ?`, col),
		partyID,
	).Scan(&n)
	return n, eris.Wrap(err, "sqlite: count active by party")
}

// --- Leads ---

func (s *SQLiteStore) CreateLead(ctx context.Context, lead *model.Lead) error {
	if lead.ID == "" {
		lead.ID = uuid.New().String()
	}

	var quoteJSON any
	if lead.Quote != nil {
		b, err := json.Marshal(lead.Quote)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal quote")
		}
		quoteJSON = string(b)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO leads
		 (id, connection_id, provider_id, buyer_id, customer_name, customer_phone,
		  customer_email, customer_state, vehicle, quote_type, status, payout, quote,
		  created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		lead.ID, lead.ConnectionID, lead.ProviderID, lead.BuyerID, lead.CustomerName,
		lead.CustomerPhone, lead.CustomerEmail, lead.CustomerState, lead.Vehicle,
		string(lead.QuoteType), string(lead.Status), lead.Payout, quoteJSON,
		lead.CreatedAt, lead.UpdatedAt,
	)
	return eris.Wrap(err, "sqlite: insert lead")
}

func (s *SQLiteStore) GetLead(ctx context.Context, id string) (*model.Lead, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+leadColumns+` FROM leads WHERE id = ?`, id)
	return scanLead(row)
}

func (s *SQLiteStore) UpdateLeadStatus(ctx context.Context, id string, status model.LeadStatus, updatedAt time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE leads SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), updatedAt, id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update lead status %s", id)
	}
	return checkRowsAffected(res, "lead", id)
}

func (s *SQLiteStore) ListLeads(ctx context.Context, f ledger.Filter) ([]model.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE 1=1`
	var args []any

	if f.ConnectionID != "" {
		query += ` AND connection_id = ?`
		args = append(args, f.ConnectionID)
	}
	if f.ProviderID != "" {
		query += ` AND provider_id = ?`
		args = append(args, f.ProviderID)
	}
	if f.BuyerID != "" {
		query += ` AND buyer_id = ?`
		args = append(args, f.BuyerID)
	}
	if f.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(f.Status))
	}
	query += ` ORDER BY created_at DESC`

	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list leads")
	}
	defer rows.Close()

	var leads []model.Lead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, *l)
	}
	return leads, eris.Wrap(rows.Err(), "sqlite: list leads iterate")
}

func (s *SQLiteStore) CountLeadsSince(ctx context.Context, connectionID string, since time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM leads WHERE connection_id = ? AND created_at >= ?`,
		connectionID, since,
	).Scan(&n)
	return n, eris.Wrap(err, "sqlite: count leads since")
}

func (s *SQLiteStore) ExpireLeadsBefore(ctx context.Context, cutoff, updatedAt time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE leads SET status = 'expired', updated_at = ? WHERE status = 'pending' AND created_at < ?`,
		updatedAt, cutoff,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: expire leads")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: rows affected")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s %s", entity, id)
	}
	return nil
}

func partyColumn(role model.Role) (string, error) {
	switch role {
	case model.RoleProvider:
		return "provider_id", nil
	case model.RoleBuyer:
		return "buyer_id", nil
	default:
		return "", eris.Errorf("store: no party column for role %q", role)
	}
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

type scannable interface {
	Scan(dest ...any) error
}

const connectionColumns = `id, provider_id, buyer_id, status, message, terms,
	total_leads, total_paid, created_at, accepted_at, terms_updated_at,
	terminated_at, terminated_by, termination_reason`

func scanConnection(row scannable) (*model.Connection, error) {
	var c model.Connection
	var termsJSON sql.NullString
	var acceptedAt, termsUpdatedAt, terminatedAt sql.NullTime

	err := row.Scan(&c.ID, &c.ProviderID, &c.BuyerID, &c.Status, &c.Message, &termsJSON,
		&c.TotalLeads, &c.TotalPaid, &c.CreatedAt, &acceptedAt, &termsUpdatedAt,
		&terminatedAt, &c.TerminatedBy, &c.TerminationReason)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan connection")
	}

	if termsJSON.Valid {
		c.Terms = &model.ContractTerms{}
		if err := json.Unmarshal([]byte(termsJSON.String), c.Terms); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal terms")
		}
	}
	if acceptedAt.Valid {
		t := acceptedAt.Time
		c.AcceptedAt = &t
	}
	if termsUpdatedAt.Valid {
		t := termsUpdatedAt.Time
		c.TermsUpdatedAt = &t
	}
	if terminatedAt.Valid {
		t := terminatedAt.Time
		c.TerminatedAt = &t
	}
	return &c, nil
}

const leadColumns = `id, connection_id, provider_id, buyer_id, customer_name,
	customer_phone, customer_email, customer_state, vehicle, quote_type,
	status, payout, quote, created_at, updated_at`

func scanLead(row scannable) (*model.Lead, error) {
	var l model.Lead
	var quoteJSON sql.NullString

	err := row.Scan(&l.ID, &l.ConnectionID, &l.ProviderID, &l.BuyerID, &l.CustomerName,
		&l.CustomerPhone, &l.CustomerEmail, &l.CustomerState, &l.Vehicle, &l.QuoteType,
		&l.Status, &l.Payout, &quoteJSON, &l.CreatedAt, &l.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan lead")
	}

	if quoteJSON.Valid {
		l.Quote = &model.Quote{}
		if err := json.Unmarshal([]byte(quoteJSON.String), l.Quote); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal quote")
		}
	}
	return &l, nil
}
