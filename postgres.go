package bankxmov

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var (
	pgAccountColumns = `
		a.pub_id, a.iban, a.owner, a.client_dni, a.balance,
		t.name, t.interest, a.deleted, a.created_at, a.updated_at`

	pgLockAccountsSQL = `
		SELECT` + pgAccountColumns + `
		FROM accounts a
		JOIN account_types t ON t.name = a.account_type
		WHERE a.iban = ANY($1)
		ORDER BY a.iban
		FOR UPDATE OF a;
	`

	pgAccountsByOwnerSQL = `
		SELECT` + pgAccountColumns + `
		FROM accounts a
		JOIN account_types t ON t.name = a.account_type
		WHERE a.owner = $1
		ORDER BY a.iban;
	`

	pgUpdateAcctSQL = `
		UPDATE accounts
		SET balance = $1, updated_at = $2
		WHERE iban = $3;
	`

	pgLockCardSQL = `
		SELECT number, expiration, cvv, account_iban, active, deleted,
			daily_limit, weekly_limit, monthly_limit,
			spent_today, spent_this_week, spent_this_month, last_reset
		FROM cards
		WHERE number = $1
		FOR UPDATE;
	`

	pgUpdateCardSQL = `
		UPDATE cards
		SET spent_today = $1, spent_this_week = $2, spent_this_month = $3, last_reset = $4
		WHERE number = $5;
	`

	pgMovementColumns = `
		m.id, m.typ, COALESCE(m.ref_iban, ''), COALESCE(m.dest_iban, ''),
		COALESCE(m.card_number, ''), m.amount, m.created_at, m.deleted`

	pgInsertMovementSQL = `
		INSERT INTO movements (id, typ, ref_iban, dest_iban, card_number, amount, created_at, deleted)
		VALUES ($1, $2, $3, $4, $5, $6, $7, FALSE);
	`

	pgLockMovementSQL = `
		SELECT` + pgMovementColumns + `
		FROM movements m
		WHERE m.id = $1
		FOR UPDATE;
	`

	pgGetMovementSQL = `
		SELECT` + pgMovementColumns + `
		FROM movements m
		WHERE m.id = $1;
	`

	pgDeleteMovementSQL = `
		DELETE FROM movements
		WHERE id = $1;
	`

	pgSortColumns = map[string]string{
		"createdAt": "m.created_at",
		"amount":    "m.amount",
		"type":      "m.typ",
		"id":        "m.id",
	}
)

type pgQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PostgresEndpoint struct {
	pool *pgxpool.Pool
	log  *zerolog.Logger
}

var (
	_ Repository = (*PostgresEndpoint)(nil)
	_ Tx         = (*pgTx)(nil)
)

func NewPostgresEndpoint(ctx context.Context, connStr string, log *zerolog.Logger) (*PostgresEndpoint, error) {
	cfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	endpt := &PostgresEndpoint{
		pool: pool,
		log:  log,
	}
	return endpt, err
}

func (pg *PostgresEndpoint) Close() {
	pg.pool.Close()
}

func (pg *PostgresEndpoint) WithinTx(ctx context.Context, fn func(Tx) error) error {
	tx, err := pg.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if rerr := tx.Rollback(context.WithoutCancel(ctx)); rerr != nil && !errors.Is(rerr, pgx.ErrTxClosed) {
			pg.log.Err(rerr).Msg("transaction rollback fail")
		}
	}()

	if err = fn(&pgTx{q: tx}); err != nil {
		return err
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (pg *PostgresEndpoint) GetMovement(ctx context.Context, id snowflake.ID) (*Movement, error) {
	rows, err := pg.pool.Query(ctx, pgGetMovementSQL, id.Int64())
	if err != nil {
		return nil, fmt.Errorf("get movement %s: %w", id, err)
	}
	mov, err := pgx.CollectExactlyOneRow(rows, scanMovement)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound{Resource: "movement", Key: id.String()}
		}
		return nil, fmt.Errorf("get movement %s: %w", id, err)
	}
	return &mov, nil
}

func (pg *PostgresEndpoint) ListMovements(ctx context.Context, f MovementFilter) ([]Movement, int, error) {
	where, args := pgMovementWhere(f)

	var total int
	countSQL := `SELECT COUNT(*) FROM movements m` + where
	if err := pg.pool.QueryRow(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count movements: %w", err)
	}

	field, desc := ParseSort(f.Sort)
	order := pgSortColumns[field]
	if desc {
		order += " DESC"
	}
	size := f.Size
	if size <= 0 {
		size = DefaultPageSize
	}
	args = append(args, size, f.Page*size)
	listSQL := fmt.Sprintf(`SELECT %s FROM movements m%s ORDER BY %s, m.id LIMIT $%d OFFSET $%d`,
		pgMovementColumns, where, order, len(args)-1, len(args))

	rows, err := pg.pool.Query(ctx, listSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list movements: %w", err)
	}
	movs, err := pgx.CollectRows(rows, scanMovement)
	if err != nil {
		return nil, 0, fmt.Errorf("list movements: %w", err)
	}
	return movs, total, nil
}

func (pg *PostgresEndpoint) AccountsByOwner(ctx context.Context, username string) ([]Account, error) {
	return accountsByOwner(ctx, pg.pool, username)
}

// pgMovementWhere renders f as a WHERE clause with positional arguments.
func pgMovementWhere(f MovementFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.Type != "" {
		conds = append(conds, "m.typ = "+arg(strings.ToUpper(f.Type)))
	}
	if f.IBAN != "" {
		p := arg(f.IBAN)
		conds = append(conds, fmt.Sprintf("(m.ref_iban = %s OR m.dest_iban = %s)", p, p))
	}
	if f.ClientDNI != "" {
		conds = append(conds, `EXISTS (
			SELECT 1 FROM accounts a
			WHERE a.client_dni = `+arg(f.ClientDNI)+`
			AND a.iban IN (m.ref_iban, m.dest_iban))`)
	}
	if f.Date != nil {
		day := startOfDay(*f.Date)
		conds = append(conds, fmt.Sprintf("m.created_at >= %s AND m.created_at < %s",
			arg(day), arg(day.AddDate(0, 0, 1))))
	}
	if f.Deleted != nil {
		conds = append(conds, "m.deleted = "+arg(*f.Deleted))
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

type pgTx struct {
	q pgQuerier
}

func (t *pgTx) LockAccounts(ctx context.Context, ibans ...string) (map[string]*Account, error) {
	rows, err := t.q.Query(ctx, pgLockAccountsSQL, ibans)
	if err != nil {
		return nil, fmt.Errorf("lock accounts: %w", err)
	}
	accts, err := pgx.CollectRows(rows, scanAccount)
	if err != nil {
		return nil, fmt.Errorf("lock accounts: %w", err)
	}
	out := make(map[string]*Account, len(accts))
	for i := range accts {
		out[accts[i].IBAN] = &accts[i]
	}
	return out, nil
}

func (t *pgTx) LockCard(ctx context.Context, number string) (*Card, error) {
	var (
		c         Card
		lastReset pgtype.Date
	)
	err := t.q.QueryRow(ctx, pgLockCardSQL, number).Scan(
		&c.Number, &c.Expiration, &c.CVV, &c.AccountIBAN, &c.Active, &c.Deleted,
		&c.DailyLimit, &c.WeeklyLimit, &c.MonthlyLimit,
		&c.SpentToday, &c.SpentThisWeek, &c.SpentThisMonth, &lastReset,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("lock card: %w", err)
	}
	if lastReset.Valid {
		c.LastReset = lastReset.Time
	}
	return &c, nil
}

func (t *pgTx) LockMovement(ctx context.Context, id snowflake.ID) (*Movement, error) {
	rows, err := t.q.Query(ctx, pgLockMovementSQL, id.Int64())
	if err != nil {
		return nil, fmt.Errorf("lock movement: %w", err)
	}
	mov, err := pgx.CollectExactlyOneRow(rows, scanMovement)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("lock movement: %w", err)
	}
	return &mov, nil
}

func (t *pgTx) AccountsByOwner(ctx context.Context, username string) ([]Account, error) {
	return accountsByOwner(ctx, t.q, username)
}

func (t *pgTx) SaveAccount(ctx context.Context, acct *Account) error {
	_, err := t.q.Exec(ctx, pgUpdateAcctSQL, acct.Balance, acct.UpdatedAt, acct.IBAN)
	return err
}

func (t *pgTx) SaveCard(ctx context.Context, c *Card) error {
	lastReset := pgtype.Date{Time: c.LastReset, Valid: !c.LastReset.IsZero()}
	_, err := t.q.Exec(ctx, pgUpdateCardSQL, c.SpentToday, c.SpentThisWeek, c.SpentThisMonth, lastReset, c.Number)
	return err
}

func (t *pgTx) InsertMovement(ctx context.Context, m *Movement) error {
	_, err := t.q.Exec(ctx, pgInsertMovementSQL,
		m.ID.Int64(), string(m.Type), nullable(m.ReferenceIBAN), nullable(m.DestinationIBAN),
		nullable(m.CardNumber), m.Amount, m.CreatedAt)
	return err
}

func (t *pgTx) DeleteMovement(ctx context.Context, id snowflake.ID) error {
	tag, err := t.q.Exec(ctx, pgDeleteMovementSQL, id.Int64())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound{Resource: "movement", Key: id.String()}
	}
	return nil
}

func accountsByOwner(ctx context.Context, q pgQuerier, username string) ([]Account, error) {
	rows, err := q.Query(ctx, pgAccountsByOwnerSQL, username)
	if err != nil {
		return nil, fmt.Errorf("accounts by owner: %w", err)
	}
	accts, err := pgx.CollectRows(rows, scanAccount)
	if err != nil {
		return nil, fmt.Errorf("accounts by owner: %w", err)
	}
	return accts, nil
}

func scanAccount(row pgx.CollectableRow) (Account, error) {
	var (
		a     Account
		pubID int64
	)
	err := row.Scan(&pubID, &a.IBAN, &a.Owner, &a.ClientDNI, &a.Balance,
		&a.Type.Name, &a.Type.Interest, &a.Deleted, &a.CreatedAt, &a.UpdatedAt)
	a.PubID = snowflake.ParseInt64(pubID)
	return a, err
}

func scanMovement(row pgx.CollectableRow) (Movement, error) {
	var (
		m   Movement
		id  int64
		typ string
		amt decimal.Decimal
		at  time.Time
	)
	err := row.Scan(&id, &typ, &m.ReferenceIBAN, &m.DestinationIBAN, &m.CardNumber, &amt, &at, &m.Deleted)
	m.ID = snowflake.ParseInt64(id)
	m.Type = MovementType(typ)
	m.Amount = amt
	m.CreatedAt = at
	return m, err
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
