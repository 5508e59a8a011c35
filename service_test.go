package bankxmov_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/arhyth/bankxmov"
	"github.com/arhyth/bankxmov/mocks"
)

type fixture struct {
	store *bankxmov.InmemStore
	svc   bankxmov.Service
	now   time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	node, err := snowflake.NewNode(3)
	require.Nil(t, err)
	log := zerolog.Nop()
	fx := &fixture{
		store: bankxmov.NewInmemStore(),
		now:   time.Date(2024, time.May, 15, 10, 0, 0, 0, time.UTC),
	}
	fx.svc = bankxmov.NewService(fx.store, node, bankxmov.EngineConfig{
		FirstDayOfWeek: time.Monday,
		Location:       time.UTC,
		Now:            func() time.Time { return fx.now },
	}, &log)

	fx.store.PutAccount(*account(ibanA, "alice", "500", checking))
	fx.store.PutAccount(*account(ibanB, "bob", "200", savings))
	fx.store.PutCard(*card(cardNum, ibanA, fx.now))
	return fx
}

func (fx *fixture) balance(iban string) string {
	a, _ := fx.store.Account(iban)
	return a.Balance.String()
}

func (fx *fixture) count(t *testing.T) int {
	page, err := fx.svc.ListMovements(context.Background(), bankxmov.MovementFilter{})
	require.Nil(t, err)
	return page.TotalElements
}

func TestCreateMovement(t *testing.T) {
	ctx := context.Background()

	t.Run("transfer between accounts", func(tt *testing.T) {
		as := assert.New(tt)
		reqrd := require.New(tt)
		fx := newFixture(tt)

		mov, err := fx.svc.CreateMovement(ctx, bankxmov.CreateMovementReq{
			Type:            "TRANSFERENCIA",
			ReferenceIBAN:   ibanA,
			DestinationIBAN: ibanB,
			Amount:          decimal.NewFromInt(100),
		})
		reqrd.Nil(err)
		as.Equal("400", fx.balance(ibanA))
		as.Equal("300", fx.balance(ibanB))
		as.Equal(1, fx.count(tt))

		got, err := fx.svc.GetMovement(ctx, mov.ID)
		reqrd.Nil(err)
		as.Equal(mov.ID, got.ID)
		as.True(got.Amount.Equal(decimal.NewFromInt(100)))
	})

	t.Run("payment over the daily ceiling", func(tt *testing.T) {
		as := assert.New(tt)
		fx := newFixture(tt)
		c := card(cardNum, ibanA, fx.now)
		c.SpentToday = decimal.NewFromInt(950)
		fx.store.PutCard(*c)
		fx.store.PutAccount(*account(ibanA, "alice", "5000", checking))

		_, err := fx.svc.CreateMovement(ctx, bankxmov.CreateMovementReq{
			Type:          "PAGO",
			ReferenceIBAN: ibanA,
			CardNumber:    cardNum,
			Amount:        decimal.NewFromInt(100),
		})
		var fb bankxmov.ErrForbidden
		as.True(errors.As(err, &fb))
		as.Equal("limit exceeded", fb.Reason)
		stored, _ := fx.store.Card(cardNum)
		as.Equal("950", stored.SpentToday.String())
		as.Equal("5000", fx.balance(ibanA))
		as.Equal(0, fx.count(tt))
	})

	t.Run("payment within the ceiling counts against it", func(tt *testing.T) {
		as := assert.New(tt)
		reqrd := require.New(tt)
		fx := newFixture(tt)

		_, err := fx.svc.CreateMovement(ctx, bankxmov.CreateMovementReq{
			Type:          "pago",
			ReferenceIBAN: " es91 2100 0418 4502 0005 1332 ",
			CardNumber:    "4111 1111 1111 1111",
			Amount:        decimal.NewFromInt(75),
		})
		reqrd.Nil(err)
		stored, _ := fx.store.Card(cardNum)
		as.Equal("75", stored.SpentToday.String())
		as.Equal("425", fx.balance(ibanA))
	})

	t.Run("interest on an account type without interest", func(tt *testing.T) {
		as := assert.New(tt)
		fx := newFixture(tt)

		_, err := fx.svc.AccrueInterest(ctx, bankxmov.AccrueInterestReq{
			DestinationIBAN: ibanA,
			Amount:          decimal.NewFromInt(5),
		})
		kind, _ := rejection(err)
		as.Equal("forbidden", kind)
		as.Equal("500", fx.balance(ibanA))
		as.Equal(0, fx.count(tt))
	})

	t.Run("interest on a savings account", func(tt *testing.T) {
		as := assert.New(tt)
		reqrd := require.New(tt)
		fx := newFixture(tt)

		mov, err := fx.svc.AccrueInterest(ctx, bankxmov.AccrueInterestReq{
			DestinationIBAN: ibanB,
			Amount:          decimal.RequireFromString("2.50"),
		})
		reqrd.Nil(err)
		as.Equal(bankxmov.InteresMensual, mov.Type)
		as.Equal("202.5", fx.balance(ibanB))
	})

	t.Run("deposit with an expired card", func(tt *testing.T) {
		as := assert.New(tt)
		reqrd := require.New(tt)
		fx := newFixture(tt)
		c := card(cardNum, ibanA, fx.now)
		c.Expiration = fx.now.AddDate(0, 0, -1)
		fx.store.PutCard(*c)

		_, err := fx.svc.CreateMovement(ctx, bankxmov.CreateMovementReq{
			Type:          "INGRESO",
			ReferenceIBAN: ibanA,
			CardNumber:    cardNum,
			Amount:        decimal.NewFromInt(50),
		})
		var br bankxmov.ErrBadRequest
		reqrd.True(errors.As(err, &br))
		as.Equal("card is expired", br.Fields["cardNumber"])
		as.Equal("500", fx.balance(ibanA))
	})

	t.Run("concurrent debits never overdraw", func(tt *testing.T) {
		as := assert.New(tt)
		fx := newFixture(tt)

		var (
			wg       sync.WaitGroup
			mtx      sync.Mutex
			accepted int
		)
		for i := 0; i < 40; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := fx.svc.CreateMovement(ctx, bankxmov.CreateMovementReq{
					Type:            "BIZUM",
					ReferenceIBAN:   ibanA,
					DestinationIBAN: ibanB,
					Amount:          decimal.NewFromInt(20),
				})
				if err == nil {
					mtx.Lock()
					accepted++
					mtx.Unlock()
				}
			}()
		}
		wg.Wait()

		as.Equal(25, accepted)
		as.Equal("0", fx.balance(ibanA))
		as.Equal("700", fx.balance(ibanB))
		as.Equal(25, fx.count(tt))
	})
}

func TestCreateMovementStorageFailure(t *testing.T) {
	as := assert.New(t)
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockRepository(ctrl)
	tx := mocks.NewMockTx(ctrl)
	node, err := snowflake.NewNode(4)
	require.Nil(t, err)
	log := zerolog.Nop()
	svc := bankxmov.NewService(repo, node, bankxmov.EngineConfig{}, &log)
	errConn := errors.New("connection reset")

	repo.EXPECT().
		WithinTx(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, fn func(bankxmov.Tx) error) error {
			return fn(tx)
		}).
		Times(1)
	tx.EXPECT().
		LockAccounts(gomock.Any(), ibanA, ibanB).
		Return(map[string]*bankxmov.Account{
			ibanA: account(ibanA, "alice", "500", checking),
			ibanB: account(ibanB, "bob", "200", checking),
		}, nil).
		Times(1)
	tx.EXPECT().SaveAccount(gomock.Any(), gomock.Any()).Return(errConn).Times(1)

	_, err = svc.CreateMovement(context.Background(), bankxmov.CreateMovementReq{
		Type:            "TRANSFERENCIA",
		ReferenceIBAN:   ibanA,
		DestinationIBAN: ibanB,
		Amount:          decimal.NewFromInt(100),
	})
	as.True(errors.Is(err, errConn))
	kind, _ := rejection(err)
	as.Equal("other", kind)
}

func TestCancelMovement(t *testing.T) {
	ctx := context.Background()

	t.Run("execute then cancel restores balances", func(tt *testing.T) {
		as := assert.New(tt)
		reqrd := require.New(tt)
		fx := newFixture(tt)

		mov, err := fx.svc.CreateMovement(ctx, bankxmov.CreateMovementReq{
			Type:            "TRANSFERENCIA",
			ReferenceIBAN:   ibanA,
			DestinationIBAN: ibanB,
			Amount:          decimal.RequireFromString("123.45"),
		})
		reqrd.Nil(err)
		fx.now = fx.now.Add(23 * time.Hour)

		reqrd.Nil(fx.svc.CancelMovement(ctx, bankxmov.CancelMovementReq{ID: mov.ID, Username: "alice"}))
		as.Equal("500", fx.balance(ibanA))
		as.Equal("200", fx.balance(ibanB))
		as.Equal(0, fx.count(tt))
	})

	t.Run("cancel after the window", func(tt *testing.T) {
		as := assert.New(tt)
		reqrd := require.New(tt)
		fx := newFixture(tt)

		mov, err := fx.svc.CreateMovement(ctx, bankxmov.CreateMovementReq{
			Type:            "TRANSFERENCIA",
			ReferenceIBAN:   ibanA,
			DestinationIBAN: ibanB,
			Amount:          decimal.NewFromInt(100),
		})
		reqrd.Nil(err)
		fx.now = fx.now.Add(24*time.Hour + time.Second)

		err = fx.svc.CancelMovement(ctx, bankxmov.CancelMovementReq{ID: mov.ID, Username: "alice"})
		kind, field := rejection(err)
		as.Equal("bad_request", kind)
		as.Equal("createdAt", field)
		as.Equal("400", fx.balance(ibanA))
		as.Equal("300", fx.balance(ibanB))
	})

	t.Run("card counters are kept after cancel", func(tt *testing.T) {
		as := assert.New(tt)
		reqrd := require.New(tt)
		fx := newFixture(tt)

		mov, err := fx.svc.CreateMovement(ctx, bankxmov.CreateMovementReq{
			Type:          "EXTRACCION",
			ReferenceIBAN: ibanA,
			CardNumber:    cardNum,
			Amount:        decimal.NewFromInt(60),
		})
		reqrd.Nil(err)
		reqrd.Nil(fx.svc.CancelMovement(ctx, bankxmov.CancelMovementReq{ID: mov.ID, Username: "alice"}))

		as.Equal("500", fx.balance(ibanA))
		stored, _ := fx.store.Card(cardNum)
		as.Equal("60", stored.SpentToday.String())
	})
}

func TestCancelRestoresEveryMovementType(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		req       bankxmov.CreateMovementReq
		user      string
		wantA     string
		wantB     string
		wantSpent string
	}{
		{
			name:      "transfer",
			req:       bankxmov.CreateMovementReq{Type: "TRANSFERENCIA", ReferenceIBAN: ibanA, DestinationIBAN: ibanB, Amount: decimal.NewFromInt(150)},
			user:      "alice",
			wantA:     "350",
			wantB:     "350",
			wantSpent: "0",
		},
		{
			name:      "bizum",
			req:       bankxmov.CreateMovementReq{Type: "BIZUM", ReferenceIBAN: ibanA, DestinationIBAN: ibanB, Amount: decimal.NewFromInt(75)},
			user:      "bob",
			wantA:     "425",
			wantB:     "275",
			wantSpent: "0",
		},
		{
			name:      "payroll",
			req:       bankxmov.CreateMovementReq{Type: "NOMINA", DestinationIBAN: ibanB, Amount: decimal.NewFromInt(300)},
			user:      "bob",
			wantA:     "500",
			wantB:     "500",
			wantSpent: "0",
		},
		{
			name:      "monthly interest",
			req:       bankxmov.CreateMovementReq{Type: "INTERESMENSUAL", DestinationIBAN: ibanB, Amount: decimal.NewFromInt(12)},
			user:      "bob",
			wantA:     "500",
			wantB:     "212",
			wantSpent: "0",
		},
		{
			name:      "card payment",
			req:       bankxmov.CreateMovementReq{Type: "PAGO", ReferenceIBAN: ibanA, CardNumber: cardNum, Amount: decimal.NewFromInt(40)},
			user:      "alice",
			wantA:     "460",
			wantB:     "200",
			wantSpent: "40",
		},
		{
			name:      "card deposit",
			req:       bankxmov.CreateMovementReq{Type: "INGRESO", ReferenceIBAN: ibanA, CardNumber: cardNum, Amount: decimal.NewFromInt(90)},
			user:      "alice",
			wantA:     "590",
			wantB:     "200",
			wantSpent: "90",
		},
		{
			name:      "cash withdrawal",
			req:       bankxmov.CreateMovementReq{Type: "EXTRACCION", ReferenceIBAN: ibanA, CardNumber: cardNum, Amount: decimal.NewFromInt(60)},
			user:      "alice",
			wantA:     "440",
			wantB:     "200",
			wantSpent: "60",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(tt *testing.T) {
			as := assert.New(tt)
			reqrd := require.New(tt)
			fx := newFixture(tt)

			mov, err := fx.svc.CreateMovement(ctx, tc.req)
			reqrd.Nil(err)
			as.Equal(tc.wantA, fx.balance(ibanA))
			as.Equal(tc.wantB, fx.balance(ibanB))
			as.Equal(1, fx.count(tt))

			fx.now = fx.now.Add(time.Hour)
			reqrd.Nil(fx.svc.CancelMovement(ctx, bankxmov.CancelMovementReq{ID: mov.ID, Username: tc.user}))

			as.Equal("500", fx.balance(ibanA))
			as.Equal("200", fx.balance(ibanB))
			as.Equal(0, fx.count(tt))
			stored, _ := fx.store.Card(cardNum)
			as.Equal(tc.wantSpent, stored.SpentToday.String())
			as.Equal(tc.wantSpent, stored.SpentThisMonth.String())
		})
	}
}

func TestUpdateMovement(t *testing.T) {
	ctx := context.Background()

	t.Run("replaces the movement and re-applies balances", func(tt *testing.T) {
		as := assert.New(tt)
		reqrd := require.New(tt)
		fx := newFixture(tt)

		mov, err := fx.svc.CreateMovement(ctx, bankxmov.CreateMovementReq{
			Type:            "TRANSFERENCIA",
			ReferenceIBAN:   ibanA,
			DestinationIBAN: ibanB,
			Amount:          decimal.NewFromInt(100),
		})
		reqrd.Nil(err)

		updated, err := fx.svc.UpdateMovement(ctx, bankxmov.UpdateMovementReq{
			ID:       mov.ID,
			Username: "alice",
			CreateMovementReq: bankxmov.CreateMovementReq{
				Type:            "TRANSFERENCIA",
				ReferenceIBAN:   ibanA,
				DestinationIBAN: ibanB,
				Amount:          decimal.NewFromInt(450),
			},
		})
		reqrd.Nil(err)
		as.NotEqual(mov.ID, updated.ID)
		as.Equal("50", fx.balance(ibanA))
		as.Equal("650", fx.balance(ibanB))
		as.Equal(1, fx.count(tt))

		_, err = fx.svc.GetMovement(ctx, mov.ID)
		kind, _ := rejection(err)
		as.Equal("not_found", kind)
	})

	t.Run("rejected replacement keeps the original", func(tt *testing.T) {
		as := assert.New(tt)
		reqrd := require.New(tt)
		fx := newFixture(tt)

		mov, err := fx.svc.CreateMovement(ctx, bankxmov.CreateMovementReq{
			Type:            "TRANSFERENCIA",
			ReferenceIBAN:   ibanA,
			DestinationIBAN: ibanB,
			Amount:          decimal.NewFromInt(100),
		})
		reqrd.Nil(err)

		_, err = fx.svc.UpdateMovement(ctx, bankxmov.UpdateMovementReq{
			ID:       mov.ID,
			Username: "alice",
			CreateMovementReq: bankxmov.CreateMovementReq{
				Type:            "TRANSFERENCIA",
				ReferenceIBAN:   ibanA,
				DestinationIBAN: ibanB,
				Amount:          decimal.NewFromInt(900),
			},
		})
		kind, field := rejection(err)
		as.Equal("bad_request", kind)
		as.Equal("amount", field)
		as.Equal("400", fx.balance(ibanA))
		as.Equal("300", fx.balance(ibanB))
		_, err = fx.svc.GetMovement(ctx, mov.ID)
		as.Nil(err)
	})

	t.Run("user who owns neither account", func(tt *testing.T) {
		as := assert.New(tt)
		reqrd := require.New(tt)
		fx := newFixture(tt)

		mov, err := fx.svc.CreateMovement(ctx, bankxmov.CreateMovementReq{
			Type:            "TRANSFERENCIA",
			ReferenceIBAN:   ibanA,
			DestinationIBAN: ibanB,
			Amount:          decimal.NewFromInt(100),
		})
		reqrd.Nil(err)

		_, err = fx.svc.UpdateMovement(ctx, bankxmov.UpdateMovementReq{
			ID:                mov.ID,
			Username:          "mallory",
			CreateMovementReq: bankxmov.CreateMovementReq{Type: "TRANSFERENCIA", ReferenceIBAN: ibanA, DestinationIBAN: ibanB, Amount: decimal.NewFromInt(1)},
		})
		kind, _ := rejection(err)
		as.Equal("forbidden", kind)
		as.Equal("400", fx.balance(ibanA))
	})
}

func TestListMovements(t *testing.T) {
	as := assert.New(t)
	reqrd := require.New(t)
	ctx := context.Background()
	fx := newFixture(t)

	for i := 1; i <= 5; i++ {
		_, err := fx.svc.CreateMovement(ctx, bankxmov.CreateMovementReq{
			Type:            "BIZUM",
			ReferenceIBAN:   ibanA,
			DestinationIBAN: ibanB,
			Amount:          decimal.NewFromInt(int64(i)),
		})
		reqrd.Nil(err)
		fx.now = fx.now.Add(time.Minute)
	}
	_, err := fx.svc.CreateMovement(ctx, bankxmov.CreateMovementReq{
		Type:            "NOMINA",
		DestinationIBAN: ibanA,
		Amount:          decimal.NewFromInt(1000),
	})
	reqrd.Nil(err)

	page, err := fx.svc.ListMovements(ctx, bankxmov.MovementFilter{Type: "bizum", Size: 2, Sort: "amount,asc"})
	reqrd.Nil(err)
	as.Equal(5, page.TotalElements)
	as.Equal(3, page.TotalPages)
	reqrd.Len(page.Content, 2)
	as.Equal("1", page.Content[0].Amount.String())
	as.Equal("2", page.Content[1].Amount.String())

	page, err = fx.svc.ListMovements(ctx, bankxmov.MovementFilter{Type: "BIZUM", Page: 2, Size: 2, Sort: "amount,asc"})
	reqrd.Nil(err)
	reqrd.Len(page.Content, 1)
	as.Equal("5", page.Content[0].Amount.String())

	page, err = fx.svc.ListMovements(ctx, bankxmov.MovementFilter{})
	reqrd.Nil(err)
	as.Equal(6, page.TotalElements)
	as.Equal(bankxmov.Nomina, page.Content[0].Type)

	page, err = fx.svc.ListMovements(ctx, bankxmov.MovementFilter{IBAN: ibanB})
	reqrd.Nil(err)
	as.Equal(5, page.TotalElements)

	yesterday := fx.now.AddDate(0, 0, -1)
	page, err = fx.svc.ListMovements(ctx, bankxmov.MovementFilter{Date: &yesterday})
	reqrd.Nil(err)
	as.Equal(0, page.TotalElements)
	as.NotNil(page.Content)
}

func TestStatement(t *testing.T) {
	ctx := context.Background()

	t.Run("csv lists the account movements newest first", func(tt *testing.T) {
		as := assert.New(tt)
		reqrd := require.New(tt)
		fx := newFixture(tt)
		for _, amt := range []int64{10, 20} {
			_, err := fx.svc.CreateMovement(ctx, bankxmov.CreateMovementReq{
				Type:            "TRANSFERENCIA",
				ReferenceIBAN:   ibanA,
				DestinationIBAN: ibanB,
				Amount:          decimal.NewFromInt(amt),
			})
			reqrd.Nil(err)
			fx.now = fx.now.Add(time.Hour)
		}

		buf := new(bytes.Buffer)
		reqrd.Nil(fx.svc.Statement(ctx, buf, bankxmov.StatementReq{IBAN: ibanA, Username: "alice", Format: "csv"}))
		records, err := csv.NewReader(buf).ReadAll()
		reqrd.Nil(err)
		reqrd.Len(records, 3)
		as.Equal([]string{"ID", "Date", "Type", "Counterparty", "Amount"}, records[0])
		as.Equal("-20.00", records[1][4])
		as.Equal(ibanB, records[1][3])
		as.Equal("-10.00", records[2][4])
	})

	t.Run("pdf is rendered", func(tt *testing.T) {
		as := assert.New(tt)
		reqrd := require.New(tt)
		fx := newFixture(tt)

		buf := new(bytes.Buffer)
		reqrd.Nil(fx.svc.Statement(ctx, buf, bankxmov.StatementReq{IBAN: ibanB, Username: "bob", Format: "pdf"}))
		as.True(bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))
	})

	t.Run("account of another user", func(tt *testing.T) {
		as := assert.New(tt)
		fx := newFixture(tt)

		buf := new(bytes.Buffer)
		err := fx.svc.Statement(ctx, buf, bankxmov.StatementReq{IBAN: ibanA, Username: "bob", Format: "csv"})
		kind, _ := rejection(err)
		as.Equal("forbidden", kind)
		as.Zero(buf.Len())
	})
}
