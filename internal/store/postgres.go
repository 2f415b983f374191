package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/quotelane/exchange-cli/internal/connection"
	"github.com/quotelane/exchange-cli/internal/db"
	"github.com/quotelane/exchange-cli/internal/ledger"
	"github.com/quotelane/exchange-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

const (
	getConnectionSQL = `SELECT ` + connectionColumns + ` FROM connections WHERE id = $1`

	updateConnectionSQL = `UPDATE connections SET
		status = $1, message = $2, terms = $3, total_leads = $4, total_paid = $5,
		accepted_at = $6, terms_updated_at = $7, terminated_at = $8,
		terminated_by = $9, termination_reason = $10
	WHERE id = $11`

	insertLeadSQL = `INSERT INTO leads
		(id, connection_id, provider_id, buyer_id, customer_name, customer_phone,
		 customer_email, customer_state, vehicle, quote_type, status, payout, quote,
		 created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	getLeadSQL = `SELECT ` + leadColumns + ` FROM leads WHERE id = $1`

	updateLeadStatusSQL = `UPDATE leads SET status = $1, updated_at = $2 WHERE id = $3`

	countLeadsSinceSQL = `SELECT COUNT(*) FROM leads WHERE connection_id = $1 AND created_at >= $2`
)

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"get_connection":     getConnectionSQL,
	"update_connection":  updateConnectionSQL,
	"insert_lead":        insertLeadSQL,
	"get_lead":           getLeadSQL,
	"update_lead_status": updateLeadStatusSQL,
	"count_leads_since":  countLeadsSinceSQL,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *db.Config) (*PostgresStore, error) {
	pool, err := db.Connect(ctx, connString, poolCfg, func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS connections (
	id                 TEXT PRIMARY KEY,
	provider_id        TEXT NOT NULL,
	buyer_id           TEXT NOT NULL,
	status             TEXT NOT NULL DEFAULT 'pending_buyer_review',
	message            TEXT NOT NULL DEFAULT '',
	terms              JSONB,
	total_leads        INTEGER NOT NULL DEFAULT 0,
	total_paid         DOUBLE PRECISION NOT NULL DEFAULT 0,
	created_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
	accepted_at        TIMESTAMPTZ,
	terms_updated_at   TIMESTAMPTZ,
	terminated_at      TIMESTAMPTZ,
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
	payout         DOUBLE PRECISION NOT NULL DEFAULT 0,
	quote          JSONB,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
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

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// --- Connections ---

func (s *PostgresStore) CreateConnection(ctx context.Context, conn *model.Connection) error {
	if conn.ID == "" {
		conn.ID = uuid.New().String()
	}

	var termsJSON any
	if conn.Terms != nil {
		b, err := json.Marshal(conn.Terms)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal terms")
		}
		termsJSON = b
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO connections
		 (id, provider_id, buyer_id, status, message, terms, total_leads, total_paid,
		  created_at, accepted_at, terms_updated_at, terminated_at, terminated_by, termination_reason)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		conn.ID, conn.ProviderID, conn.BuyerID, string(conn.Status), conn.Message, termsJSON,
		conn.TotalLeads, conn.TotalPaid, conn.CreatedAt, conn.AcceptedAt,
		conn.TermsUpdatedAt, conn.TerminatedAt, conn.TerminatedBy, conn.TerminationReason,
	)
	return eris.Wrap(err, "postgres: insert connection")
}

func (s *PostgresStore) GetConnection(ctx context.Context, id string) (*model.Connection, error) {
	row := s.pool.QueryRow(ctx, getConnectionSQL, id)
	return scanPGConnection(row)
}

func (s *PostgresStore) LiveConnectionByPair(ctx context.Context, providerID, buyerID string) (*model.Connection, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+connectionColumns+` FROM connections
		 WHERE provider_id = $1 AND buyer_id = $2
		   AND status IN ('pending_buyer_review', 'pending_provider_accept', 'active')
		 ORDER BY created_at DESC LIMIT 1`,
		providerID, buyerID)

	conn, err := scanPGConnection(row)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return conn, err
}

func (s *PostgresStore) UpdateConnection(ctx context.Context, conn *model.Connection) error {
	var termsJSON any
	if conn.Terms != nil {
		b, err := json.Marshal(conn.Terms)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal terms")
		}
		termsJSON = b
	}

	tag, err := s.pool.Exec(ctx, updateConnectionSQL,
		string(conn.Status), conn.Message, termsJSON, conn.TotalLeads, conn.TotalPaid,
		conn.AcceptedAt, conn.TermsUpdatedAt, conn.TerminatedAt,
		conn.TerminatedBy, conn.TerminationReason, conn.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update connection %s", conn.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "connection %s", conn.ID)
	}
	return nil
}

func (s *PostgresStore) ListConnections(ctx context.Context, f connection.Filter) ([]model.Connection, error) {
	query := `SELECT ` + connectionColumns + ` FROM connections WHERE true`
	args := []any{}
	argIdx := 1

	if f.ProviderID != "" {
		query += fmt.Sprintf(` AND provider_id = $%d`, argIdx)
		args = append(args, f.ProviderID)
		argIdx++
	}
	if f.BuyerID != "" {
		query += fmt.Sprintf(` AND buyer_id = $%d`, argIdx)
		args = append(args, f.BuyerID)
		argIdx++
	}
	if f.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(f.Status))
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list connections")
	}
	defer rows.Close()

	var conns []model.Connection
	for rows.Next() {
		c, err := scanPGConnection(rows)
		if err != nil {
			return nil, err
		}
		conns = append(conns, *c)
	}
	return conns, eris.Wrap(rows.Err(), "postgres: list connections iterate")
}

func (s *PostgresStore) CountActiveByParty(ctx context.Context, role model.Role, partyID string) (int, error) {
	col, err := partyColumn(role)
	if err != nil {
		return 0, err
	}

	var n int
	err = s.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT COUNT(*) FROM connections WHERE status = 'active' AND %s = $1`, col),
		partyID,
	).Scan(&n)
	return n, eris.Wrap(err, "postgres: count active by party")
}

// --- Leads ---

func (s *PostgresStore) CreateLead(ctx context.Context, lead *model.Lead) error {
	if lead.ID == "" {
		lead.ID = uuid.New().String()
	}

	var quoteJSON any
	if lead.Quote != nil {
		b, err := json.Marshal(lead.Quote)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal quote")
		}
		quoteJSON = b
	}

	_, err := s.pool.Exec(ctx, insertLeadSQL,
		lead.ID, lead.ConnectionID, lead.ProviderID, lead.BuyerID, lead.CustomerName,
		lead.CustomerPhone, lead.CustomerEmail, lead.CustomerState, lead.Vehicle,
		string(lead.QuoteType), string(lead.Status), lead.Payout, quoteJSON,
		lead.CreatedAt, lead.UpdatedAt,
	)
	return eris.Wrap(err, "postgres: insert lead")
}

func (s *PostgresStore) GetLead(ctx context.Context, id string) (*model.Lead, error) {
	row := s.pool.QueryRow(ctx, getLeadSQL, id)
	return scanPGLead(row)
}

func (s *PostgresStore) UpdateLeadStatus(ctx context.Context, id string, status model.LeadStatus, updatedAt time.Time) error {
	tag, err := s.pool.Exec(ctx, updateLeadStatusSQL, string(status), updatedAt, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: update lead status %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "lead %s", id)
	}
	return nil
}

func (s *PostgresStore) ListLeads(ctx context.Context, f ledger.Filter) ([]model.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE true`
	args := []any{}
	argIdx := 1

	if f.ConnectionID != "" {
		query += fmt.Sprintf(` AND connection_id = $%d`, argIdx)
		args = append(args, f.ConnectionID)
		argIdx++
	}
	if f.ProviderID != "" {
		query += fmt.Sprintf(` AND provider_id = $%d`, argIdx)
		args = append(args, f.ProviderID)
		argIdx++
	}
	if f.BuyerID != "" {
		query += fmt.Sprintf(` AND buyer_id = $%d`, argIdx)
		args = append(args, f.BuyerID)
		argIdx++
	}
	if f.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(f.Status))
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list leads")
	}
	defer rows.Close()

	var leads []model.Lead
	for rows.Next() {
		l, err := scanPGLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, *l)
	}
	return leads, eris.Wrap(rows.Err(), "postgres: list leads iterate")
}

func (s *PostgresStore) CountLeadsSince(ctx context.Context, connectionID string, since time.Time) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, countLeadsSinceSQL, connectionID, since).Scan(&n)
	return n, eris.Wrap(err, "postgres: count leads since")
}

func (s *PostgresStore) ExpireLeadsBefore(ctx context.Context, cutoff, updatedAt time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE leads SET status = 'expired', updated_at = $1 WHERE status = 'pending' AND created_at < $2`,
		updatedAt, cutoff,
	)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: expire leads")
	}
	return int(tag.RowsAffected()), nil
}

// helpers

func scanPGConnection(row scannable) (*model.Connection, error) {
	var c model.Connection
	var termsJSON *[]byte

	err := row.Scan(&c.ID, &c.ProviderID, &c.BuyerID, &c.Status, &c.Message, &termsJSON,
		&c.TotalLeads, &c.TotalPaid, &c.CreatedAt, &c.AcceptedAt, &c.TermsUpdatedAt,
		&c.TerminatedAt, &c.TerminatedBy, &c.TerminationReason)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan connection")
	}

	if termsJSON != nil {
		c.Terms = &model.ContractTerms{}
		if err := json.Unmarshal(*termsJSON, c.Terms); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal terms")
		}
	}
	return &c, nil
}

func scanPGLead(row scannable) (*model.Lead, error) {
	var l model.Lead
	var quoteJSON *[]byte

	err := row.Scan(&l.ID, &l.ConnectionID, &l.ProviderID, &l.BuyerID, &l.CustomerName,
		&l.CustomerPhone, &l.CustomerEmail, &l.CustomerState, &l.Vehicle, &l.QuoteType,
		&l.Status, &l.Payout, &quoteJSON, &l.CreatedAt, &l.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan lead")
	}

	if quoteJSON != nil {
		l.Quote = &model.Quote{}
		if err := json.Unmarshal(*quoteJSON, l.Quote); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal quote")
		}
	}
	return &l, nil
}
