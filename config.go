package bankxmov

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/sync/semaphore"
	"gopkg.in/yaml.v3"
)

const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

type Config struct {
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`

	Database struct {
		ConnectionString string `yaml:"conn_str"`
		Storage          string `yaml:"storage"`
	} `yaml:"database"`

	Snowflake struct {
		Node int64 `yaml:"node"`
	} `yaml:"snowflake"`

	Engine struct {
		Timezone       string        `yaml:"timezone"`
		FirstDayOfWeek string        `yaml:"first_day_of_week"`
		CancelWindow   time.Duration `yaml:"cancel_window"`
	} `yaml:"engine"`

	Limits struct {
		MaxInFlight    int64         `yaml:"max_in_flight"`
		AcquireTimeout time.Duration `yaml:"acquire_timeout"`
	} `yaml:"limits"`

	Breaker struct {
		MaxRequests      uint32        `yaml:"max_requests"`
		Interval         time.Duration `yaml:"interval"`
		Timeout          time.Duration `yaml:"timeout"`
		FailureThreshold uint32        `yaml:"failure_threshold"`
	} `yaml:"breaker"`

	Seed SeedData `yaml:"seed"`
}

// SeedData is demo reference data loaded by the seeder and by the in-memory store.
type SeedData struct {
	AccountTypes []SeedAccountType `yaml:"account_types"`
	Accounts     []SeedAccount     `yaml:"accounts"`
	Cards        []SeedCard        `yaml:"cards"`
}

type SeedAccountType struct {
	Name     string          `yaml:"name"`
	Interest decimal.Decimal `yaml:"interest"`
}

type SeedAccount struct {
	IBAN      string          `yaml:"iban"`
	Owner     string          `yaml:"owner"`
	ClientDNI string          `yaml:"client_dni"`
	Type      string          `yaml:"type"`
	Balance   decimal.Decimal `yaml:"balance"`
}

type SeedCard struct {
	Number       string          `yaml:"number"`
	AccountIBAN  string          `yaml:"account_iban"`
	Expiration   string          `yaml:"expiration"`
	CVV          string          `yaml:"cvv"`
	Active       bool            `yaml:"active"`
	DailyLimit   decimal.Decimal `yaml:"daily_limit"`
	WeeklyLimit  decimal.Decimal `yaml:"weekly_limit"`
	MonthlyLimit decimal.Decimal `yaml:"monthly_limit"`
}

// LoadConfig reads the yaml file at path, fills defaults, then applies environment
// overrides. A .env file in the working directory is loaded first when present.
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if path != "" {
		fl, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open config: %w", err)
		}
		defer fl.Close()
		if err = yaml.NewDecoder(fl).Decode(cfg); err != nil {
			return nil, fmt.Errorf("decode config: %w", err)
		}
	}
	cfg.defaults()
	cfg.overrideFromEnv()

	switch cfg.Database.Storage {
	case StoragePostgres, StorageMemory:
	default:
		return nil, fmt.Errorf("unknown storage %q", cfg.Database.Storage)
	}
	return cfg, nil
}

func (c *Config) defaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":3000"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Database.Storage == "" {
		c.Database.Storage = StoragePostgres
	}
	if c.Engine.Timezone == "" {
		c.Engine.Timezone = "Europe/Madrid"
	}
	if c.Engine.FirstDayOfWeek == "" {
		c.Engine.FirstDayOfWeek = "monday"
	}
	if c.Engine.CancelWindow == 0 {
		c.Engine.CancelWindow = DefaultCancelWindow
	}
	if c.Limits.AcquireTimeout == 0 {
		c.Limits.AcquireTimeout = 2 * time.Second
	}
	if c.Breaker.Timeout == 0 {
		c.Breaker.Timeout = 30 * time.Second
	}
	if c.Breaker.FailureThreshold == 0 {
		c.Breaker.FailureThreshold = 5
	}
}

func (c *Config) overrideFromEnv() {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Database.ConnectionString = v
	}
	if v := os.Getenv("STORAGE"); v != "" {
		c.Database.Storage = strings.ToLower(v)
	}
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

func (c *Config) LogLevel() zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(c.Log.Level))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

func (c *Config) EngineConfig() (EngineConfig, error) {
	loc, err := time.LoadLocation(c.Engine.Timezone)
	if err != nil {
		return EngineConfig{}, fmt.Errorf("engine timezone: %w", err)
	}
	day, err := parseWeekday(c.Engine.FirstDayOfWeek)
	if err != nil {
		return EngineConfig{}, err
	}
	return EngineConfig{
		FirstDayOfWeek: day,
		Location:       loc,
		CancelWindow:   c.Engine.CancelWindow,
	}, nil
}

// ServiceLimits builds a semaphore per method sized max_in_flight. Zero leaves methods unlimited.
func (c *Config) ServiceLimits() *ServiceLimits {
	limits := &ServiceLimits{Timeout: c.Limits.AcquireTimeout}
	n := c.Limits.MaxInFlight
	if n <= 0 {
		return limits
	}
	limits.ListMovements = semaphore.NewWeighted(n)
	limits.GetMovement = semaphore.NewWeighted(n)
	limits.CreateMovement = semaphore.NewWeighted(n)
	limits.UpdateMovement = semaphore.NewWeighted(n)
	limits.CancelMovement = semaphore.NewWeighted(n)
	limits.AccrueInterest = semaphore.NewWeighted(n)
	limits.Statement = semaphore.NewWeighted(n)
	return limits
}

func (c *Config) ServiceBreaker() *ServiceBreaker {
	return &ServiceBreaker{
		CreateMovement: gobreaker.NewTwoStepCircuitBreaker[*Movement](c.breakerSettings("create_movement")),
		UpdateMovement: gobreaker.NewTwoStepCircuitBreaker[*Movement](c.breakerSettings("update_movement")),
		CancelMovement: gobreaker.NewTwoStepCircuitBreaker[any](c.breakerSettings("cancel_movement")),
		AccrueInterest: gobreaker.NewTwoStepCircuitBreaker[*Movement](c.breakerSettings("accrue_interest")),
		Statement:      gobreaker.NewTwoStepCircuitBreaker[any](c.breakerSettings("statement")),
	}
}

func (c *Config) breakerSettings(name string) gobreaker.Settings {
	threshold := c.Breaker.FailureThreshold
	return gobreaker.Settings{
		Name:        name,
		MaxRequests: c.Breaker.MaxRequests,
		Interval:    c.Breaker.Interval,
		Timeout:     c.Breaker.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
	}
}

func parseWeekday(s string) (time.Weekday, error) {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(d.String(), strings.TrimSpace(s)) {
			return d, nil
		}
	}
	return time.Sunday, fmt.Errorf("unknown weekday %q", s)
}
