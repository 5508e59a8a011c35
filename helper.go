package bankxmov

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const (
	pgInsertAcctTypeSQL = `
		INSERT INTO account_types (name, interest)
		VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET interest = EXCLUDED.interest;
	`
	pgInsertAcctSQL = `
		INSERT INTO accounts (pub_id, iban, owner, client_dni, account_type, balance, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		ON CONFLICT (iban) DO NOTHING;
	`
	pgInsertCardSQL = `
		INSERT INTO cards (number, expiration, cvv, account_iban, active,
			daily_limit, weekly_limit, monthly_limit)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (number) DO NOTHING;
	`
)

type LocalHelper struct {
	Conn *pgx.Conn
	Seed SeedData
	node *snowflake.Node
}

func NewLocalHelper(ctx context.Context, cfg *Config) (*LocalHelper, error) {
	node, err := snowflake.NewNode(cfg.Snowflake.Node)
	if err != nil {
		return nil, err
	}
	conn, err := pgx.Connect(ctx, cfg.Database.ConnectionString)
	if err != nil {
		return nil, err
	}
	return &LocalHelper{
		Conn: conn,
		Seed: cfg.Seed,
		node: node,
	}, nil
}

// InitDB creates the schema and returns a func that drops it again.
func (lh *LocalHelper) InitDB(ctx context.Context) (func(), error) {
	initSQLpath := filepath.Join("testdata", "init_db.sql")
	bits, err := os.ReadFile(initSQLpath)
	if err != nil {
		return nil, err
	}
	if _, err = lh.Conn.Exec(ctx, string(bits)); err != nil {
		return nil, err
	}
	return lh.teardownDB(), err
}

// PrepareSeedData loads the configured account types, accounts and cards in one batch.
func (lh *LocalHelper) PrepareSeedData(ctx context.Context) error {
	now := time.Now()
	batch := &pgx.Batch{}
	for _, at := range lh.Seed.AccountTypes {
		batch.Queue(pgInsertAcctTypeSQL, at.Name, at.Interest)
	}
	for _, a := range lh.Seed.Accounts {
		batch.Queue(pgInsertAcctSQL, lh.node.Generate().Int64(), normalizeIBAN(a.IBAN), a.Owner,
			a.ClientDNI, a.Type, a.Balance, now)
	}
	for _, c := range lh.Seed.Cards {
		exp, err := time.Parse(time.DateOnly, c.Expiration)
		if err != nil {
			return fmt.Errorf("card %s expiration: %w", maskCardNumber(c.Number), err)
		}
		batch.Queue(pgInsertCardSQL, c.Number, exp, c.CVV, normalizeIBAN(c.AccountIBAN), c.Active,
			c.DailyLimit, c.WeeklyLimit, c.MonthlyLimit)
	}

	return lh.Conn.SendBatch(ctx, batch).Close()
}

func (lh *LocalHelper) teardownDB() func() {
	return func() {
		ctx := context.Background()
		defer lh.Conn.Close(ctx)

		tearSQLpath := filepath.Join("testdata", "teardown_db.sql")
		bits, err := os.ReadFile(tearSQLpath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "DB cleanup read teardown sql: %s", err.Error())
			return
		}
		if _, err = lh.Conn.Exec(ctx, string(bits)); err != nil {
			fmt.Fprintf(os.Stderr, "DB cleanup exec teardown sql: %s", err.Error())
			return
		}
	}
}

// SeedInmem loads seed into store. Accounts naming an unknown account type are rejected.
func SeedInmem(store *InmemStore, seed SeedData, node *snowflake.Node, now time.Time) error {
	types := make(map[string]decimal.Decimal, len(seed.AccountTypes))
	for _, at := range seed.AccountTypes {
		types[at.Name] = at.Interest
	}
	for _, a := range seed.Accounts {
		interest, ok := types[a.Type]
		if !ok {
			return fmt.Errorf("account %s: unknown account type %q", a.IBAN, a.Type)
		}
		store.PutAccount(Account{
			PubID:     node.Generate(),
			IBAN:      normalizeIBAN(a.IBAN),
			Owner:     a.Owner,
			ClientDNI: a.ClientDNI,
			Balance:   a.Balance,
			Type:      AccountType{Name: a.Type, Interest: interest},
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
	for _, c := range seed.Cards {
		exp, err := time.Parse(time.DateOnly, c.Expiration)
		if err != nil {
			return fmt.Errorf("card %s expiration: %w", maskCardNumber(c.Number), err)
		}
		store.PutCard(Card{
			Number:       c.Number,
			Expiration:   exp,
			CVV:          c.CVV,
			AccountIBAN:  normalizeIBAN(c.AccountIBAN),
			Active:       c.Active,
			DailyLimit:   c.DailyLimit,
			WeeklyLimit:  c.WeeklyLimit,
			MonthlyLimit: c.MonthlyLimit,
		})
	}
	return nil
}
