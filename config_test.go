package bankxmov_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arhyth/bankxmov"
)

func TestLoadConfig(t *testing.T) {
	t.Run("reads the fixture", func(tt *testing.T) {
		as := assert.New(tt)
		reqrd := require.New(tt)
		tt.Setenv("DATABASE_URL", "")
		tt.Setenv("STORAGE", "")
		tt.Setenv("HTTP_ADDR", "")
		tt.Setenv("LOG_LEVEL", "")

		cfg, err := bankxmov.LoadConfig(filepath.Join("testdata", "config.yml"))
		reqrd.Nil(err)
		as.Equal(":3000", cfg.Server.Addr)
		as.Equal(bankxmov.StorageMemory, cfg.Database.Storage)
		as.Equal(zerolog.DebugLevel, cfg.LogLevel())
		as.Equal(24*time.Hour, cfg.Engine.CancelWindow)
		as.Equal(1500*time.Millisecond, cfg.Limits.AcquireTimeout)
		reqrd.Len(cfg.Seed.AccountTypes, 2)
		as.Equal("0.015", cfg.Seed.AccountTypes[1].Interest.String())
		reqrd.Len(cfg.Seed.Accounts, 2)
		as.Equal("1000", cfg.Seed.Accounts[0].Balance.String())
		reqrd.Len(cfg.Seed.Cards, 1)
		as.Equal("500", cfg.Seed.Cards[0].DailyLimit.String())
	})

	t.Run("environment overrides the file", func(tt *testing.T) {
		as := assert.New(tt)
		reqrd := require.New(tt)
		tt.Setenv("DATABASE_URL", "postgres://override")
		tt.Setenv("STORAGE", "POSTGRES")
		tt.Setenv("HTTP_ADDR", ":8080")
		tt.Setenv("LOG_LEVEL", "warn")

		cfg, err := bankxmov.LoadConfig(filepath.Join("testdata", "config.yml"))
		reqrd.Nil(err)
		as.Equal("postgres://override", cfg.Database.ConnectionString)
		as.Equal(bankxmov.StoragePostgres, cfg.Database.Storage)
		as.Equal(":8080", cfg.Server.Addr)
		as.Equal(zerolog.WarnLevel, cfg.LogLevel())
	})

	t.Run("fills defaults for an empty file", func(tt *testing.T) {
		as := assert.New(tt)
		reqrd := require.New(tt)
		tt.Setenv("STORAGE", "")
		tt.Setenv("HTTP_ADDR", "")
		tt.Setenv("LOG_LEVEL", "")
		path := filepath.Join(tt.TempDir(), "empty.yml")
		reqrd.Nil(os.WriteFile(path, []byte("server: {}\n"), 0o600))

		cfg, err := bankxmov.LoadConfig(path)
		reqrd.Nil(err)
		as.Equal(bankxmov.StoragePostgres, cfg.Database.Storage)
		as.Equal("monday", cfg.Engine.FirstDayOfWeek)
		as.Equal(bankxmov.DefaultCancelWindow, cfg.Engine.CancelWindow)
		as.Equal(zerolog.InfoLevel, cfg.LogLevel())
	})

	t.Run("rejects an unknown storage", func(tt *testing.T) {
		as := assert.New(tt)
		tt.Setenv("STORAGE", "redis")
		_, err := bankxmov.LoadConfig(filepath.Join("testdata", "config.yml"))
		as.NotNil(err)
	})
}

func TestConfigBuilders(t *testing.T) {
	as := assert.New(t)
	reqrd := require.New(t)
	cfg := &bankxmov.Config{}
	cfg.Engine.Timezone = "UTC"
	cfg.Engine.FirstDayOfWeek = "Sunday"
	cfg.Engine.CancelWindow = 2 * time.Hour
	cfg.Limits.MaxInFlight = 3

	engine, err := cfg.EngineConfig()
	reqrd.Nil(err)
	as.Equal(time.Sunday, engine.FirstDayOfWeek)
	as.Equal(time.UTC, engine.Location)
	as.Equal(2*time.Hour, engine.CancelWindow)

	limits := cfg.ServiceLimits()
	reqrd.NotNil(limits.CreateMovement)
	as.True(limits.CreateMovement.TryAcquire(3))
	as.False(limits.CreateMovement.TryAcquire(1))

	brkrs := cfg.ServiceBreaker()
	as.Equal("create_movement", brkrs.CreateMovement.Name())

	cfg.Engine.FirstDayOfWeek = "someday"
	_, err = cfg.EngineConfig()
	as.NotNil(err)
}

func TestSeedInmem(t *testing.T) {
	as := assert.New(t)
	reqrd := require.New(t)
	t.Setenv("STORAGE", "")
	cfg, err := bankxmov.LoadConfig(filepath.Join("testdata", "config.yml"))
	reqrd.Nil(err)
	node, err := snowflake.NewNode(5)
	reqrd.Nil(err)

	store := bankxmov.NewInmemStore()
	reqrd.Nil(bankxmov.SeedInmem(store, cfg.Seed, node, time.Now()))

	acct, ok := store.Account(ibanA)
	reqrd.True(ok)
	as.True(acct.Type.EarnsInterest())
	c, ok := store.Card(cardNum)
	reqrd.True(ok)
	as.Equal(ibanA, c.AccountIBAN)
	as.Equal(2030, c.Expiration.Year())

	cfg.Seed.Accounts[0].Type = "PREMIUM"
	as.NotNil(bankxmov.SeedInmem(bankxmov.NewInmemStore(), cfg.Seed, node, time.Now()))
}
