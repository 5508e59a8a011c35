package bankxmov

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

//go:generate mockgen -destination=mocks/repository.go -package=mocks . Repository,Tx
type Repository interface {
	// WithinTx runs fn in a single transaction, committing only when fn returns nil.
	WithinTx(ctx context.Context, fn func(Tx) error) error
	GetMovement(ctx context.Context, id snowflake.ID) (*Movement, error)
	ListMovements(ctx context.Context, f MovementFilter) ([]Movement, int, error)
	AccountsByOwner(ctx context.Context, username string) ([]Account, error)
}

// Tx is the unit of work a movement is validated and applied in. Lock* methods hold their
// rows until the transaction ends and return nil (not an error) for missing records.
type Tx interface {
	LockAccounts(ctx context.Context, ibans ...string) (map[string]*Account, error)
	LockCard(ctx context.Context, number string) (*Card, error)
	LockMovement(ctx context.Context, id snowflake.ID) (*Movement, error)
	AccountsByOwner(ctx context.Context, username string) ([]Account, error)
	SaveAccount(ctx context.Context, acct *Account) error
	SaveCard(ctx context.Context, card *Card) error
	InsertMovement(ctx context.Context, mov *Movement) error
	DeleteMovement(ctx context.Context, id snowflake.ID) error
}
