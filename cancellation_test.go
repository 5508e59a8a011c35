package bankxmov_test

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arhyth/bankxmov"
)

func TestCancel(t *testing.T) {
	now := time.Date(2024, time.May, 15, 10, 0, 0, 0, time.UTC)
	node, err := snowflake.NewNode(2)
	require.Nil(t, err)
	ctx := context.Background()
	canceller := bankxmov.NewCanceller(bankxmov.DefaultCancelWindow)

	// seed stores a transfer of 100 from A (now 400) to B (now 300) made at createdAt.
	seed := func(createdAt time.Time) (*bankxmov.InmemStore, snowflake.ID) {
		store := bankxmov.NewInmemStore()
		store.PutAccount(*account(ibanA, "alice", "400", checking))
		store.PutAccount(*account(ibanB, "bob", "300", checking))
		id := node.Generate()
		store.PutMovement(bankxmov.Movement{
			ID:              id,
			Type:            bankxmov.Transferencia,
			ReferenceIBAN:   ibanA,
			DestinationIBAN: ibanB,
			Amount:          decimal.NewFromInt(100),
			CreatedAt:       createdAt,
		})
		return store, id
	}
	cancel := func(store *bankxmov.InmemStore, id snowflake.ID, user string) error {
		return store.WithinTx(ctx, func(tx bankxmov.Tx) error {
			_, err := canceller.Cancel(ctx, tx, id, user, now)
			return err
		})
	}
	balances := func(store *bankxmov.InmemStore) (string, string) {
		a, _ := store.Account(ibanA)
		b, _ := store.Account(ibanB)
		return a.Balance.String(), b.Balance.String()
	}

	t.Run("reverses balances and removes the movement", func(tt *testing.T) {
		as := assert.New(tt)
		reqrd := require.New(tt)
		store, id := seed(now.Add(-time.Hour))

		reqrd.Nil(cancel(store, id, "alice"))
		a, b := balances(store)
		as.Equal("500", a)
		as.Equal("200", b)
		_, err := store.GetMovement(ctx, id)
		kind, _ := rejection(err)
		as.Equal("not_found", kind)
	})

	t.Run("destination owner may cancel", func(tt *testing.T) {
		as := assert.New(tt)
		store, id := seed(now.Add(-time.Hour))
		as.Nil(cancel(store, id, "bob"))
	})

	t.Run("unknown movement", func(tt *testing.T) {
		as := assert.New(tt)
		store, _ := seed(now)
		kind, _ := rejection(cancel(store, node.Generate(), "alice"))
		as.Equal("not_found", kind)
	})

	t.Run("user owning neither account", func(tt *testing.T) {
		as := assert.New(tt)
		store, id := seed(now.Add(-time.Hour))
		kind, _ := rejection(cancel(store, id, "mallory"))
		as.Equal("forbidden", kind)
		a, b := balances(store)
		as.Equal("400", a)
		as.Equal("300", b)
	})

	t.Run("window exceeded leaves balances unchanged", func(tt *testing.T) {
		as := assert.New(tt)
		store, id := seed(now.Add(-25 * time.Hour))
		kind, field := rejection(cancel(store, id, "alice"))
		as.Equal("bad_request", kind)
		as.Equal("createdAt", field)
		a, b := balances(store)
		as.Equal("400", a)
		as.Equal("300", b)
		_, err := store.GetMovement(ctx, id)
		as.Nil(err)
	})

	t.Run("exactly at the window edge is allowed", func(tt *testing.T) {
		as := assert.New(tt)
		store, id := seed(now.Add(-24 * time.Hour))
		as.Nil(cancel(store, id, "alice"))
	})

	t.Run("reversal that would overdraw is rejected", func(tt *testing.T) {
		as := assert.New(tt)
		store, id := seed(now.Add(-time.Hour))
		store.PutAccount(*account(ibanB, "bob", "30", checking))
		kind, field := rejection(cancel(store, id, "alice"))
		as.Equal("bad_request", kind)
		as.Equal("amount", field)
		a, b := balances(store)
		as.Equal("400", a)
		as.Equal("30", b)
	})
}
