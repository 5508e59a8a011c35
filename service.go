package bankxmov

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/rs/zerolog"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

//go:generate mockgen -destination=mocks/service.go -package=mocks . Service
type Service interface {
	ListMovements(ctx context.Context, f MovementFilter) (*MovementPage, error)
	GetMovement(ctx context.Context, id snowflake.ID) (*Movement, error)
	CreateMovement(ctx context.Context, req CreateMovementReq) (*Movement, error)
	UpdateMovement(ctx context.Context, req UpdateMovementReq) (*Movement, error)
	CancelMovement(ctx context.Context, req CancelMovementReq) error
	AccrueInterest(ctx context.Context, req AccrueInterestReq) (*Movement, error)
	Statement(ctx context.Context, w io.Writer, req StatementReq) error
}

type EngineConfig struct {
	FirstDayOfWeek time.Weekday
	Location       *time.Location
	CancelWindow   time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

func NewService(repo Repository, node *snowflake.Node, cfg EngineConfig, log *zerolog.Logger) *serviceImpl {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	limits := NewCardLimits(cfg.FirstDayOfWeek, cfg.Location)
	return &serviceImpl{
		repo:      repo,
		validator: NewValidator(limits),
		executor:  NewExecutor(limits, node),
		canceller: NewCanceller(cfg.CancelWindow),
		loc:       cfg.Location,
		clock:     cfg.Now,
		log:       log,
	}
}

type serviceImpl struct {
	repo      Repository
	validator *Validator
	executor  *Executor
	canceller *Canceller
	loc       *time.Location
	clock     func() time.Time
	log       *zerolog.Logger
}

func (s *serviceImpl) now() time.Time {
	return s.clock().In(s.loc)
}

func (s *serviceImpl) ListMovements(ctx context.Context, f MovementFilter) (*MovementPage, error) {
	f = s.normalizeFilter(f)
	movs, total, err := s.repo.ListMovements(ctx, f)
	if err != nil {
		s.log.Err(err).Str("method", "list_movements").Msg("error listing movements")
		return nil, err
	}
	return newMovementPage(movs, total, f), nil
}

func (s *serviceImpl) GetMovement(ctx context.Context, id snowflake.ID) (*Movement, error) {
	return s.repo.GetMovement(ctx, id)
}

func (s *serviceImpl) CreateMovement(ctx context.Context, req CreateMovementReq) (*Movement, error) {
	req = normalizeCreate(req)
	var mov *Movement
	err := s.repo.WithinTx(ctx, func(tx Tx) error {
		snap, err := lockSnapshot(ctx, tx, req)
		if err != nil {
			return err
		}
		mov, err = s.apply(ctx, tx, req, snap)
		return err
	})
	if err != nil {
		s.logRejection(err, "create_movement", req)
		return nil, err
	}

	s.log.Info().
		Stringer("movement", mov.ID).
		Str("type", string(mov.Type)).
		Str("amount", mov.Amount.String()).
		Msg("movement executed")
	return mov, nil
}

// UpdateMovement replaces a movement by cancelling it and executing req as a new movement,
// in one transaction. Financial fields of a stored movement are never edited in place.
func (s *serviceImpl) UpdateMovement(ctx context.Context, req UpdateMovementReq) (*Movement, error) {
	create := normalizeCreate(req.CreateMovementReq)
	var mov *Movement
	err := s.repo.WithinTx(ctx, func(tx Tx) error {
		old, err := tx.LockMovement(ctx, req.ID)
		if err != nil {
			return err
		}
		if old == nil {
			return ErrNotFound{Resource: "movement", Key: req.ID.String()}
		}
		// Lock the union of both movements' accounts up front so that rows are always
		// taken in IBAN order.
		if _, err = tx.LockAccounts(ctx, nonEmpty(old.ReferenceIBAN, old.DestinationIBAN, create.ReferenceIBAN, create.DestinationIBAN)...); err != nil {
			return err
		}

		now := s.now()
		if _, err = s.canceller.Cancel(ctx, tx, req.ID, req.Username, now); err != nil {
			return err
		}
		snap, err := lockSnapshot(ctx, tx, create)
		if err != nil {
			return err
		}
		mov, err = s.apply(ctx, tx, create, snap)
		return err
	})
	if err != nil {
		s.logRejection(err, "update_movement", create)
		return nil, err
	}

	s.log.Info().
		Stringer("replaced", req.ID).
		Stringer("movement", mov.ID).
		Str("user", req.Username).
		Msg("movement replaced")
	return mov, nil
}

func (s *serviceImpl) CancelMovement(ctx context.Context, req CancelMovementReq) error {
	var mov *Movement
	err := s.repo.WithinTx(ctx, func(tx Tx) error {
		var err error
		mov, err = s.canceller.Cancel(ctx, tx, req.ID, req.Username, s.now())
		return err
	})
	if err != nil {
		if !isRejection(err) {
			s.log.Err(err).Stringer("movement", req.ID).Msg("error cancelling movement")
		}
		return err
	}

	s.log.Info().
		Stringer("movement", mov.ID).
		Str("type", string(mov.Type)).
		Str("user", req.Username).
		Msg("movement cancelled")
	return nil
}

func (s *serviceImpl) AccrueInterest(ctx context.Context, req AccrueInterestReq) (*Movement, error) {
	return s.CreateMovement(ctx, CreateMovementReq{
		Type:            string(InteresMensual),
		DestinationIBAN: req.DestinationIBAN,
		Amount:          req.Amount,
	})
}

func (s *serviceImpl) apply(ctx context.Context, tx Tx, req CreateMovementReq, snap Snapshot) (*Movement, error) {
	now := s.now()
	if err := s.validator.Validate(req, snap, now); err != nil {
		return nil, err
	}
	return s.executor.Execute(ctx, tx, req, snap, now)
}

func (s *serviceImpl) logRejection(err error, method string, req CreateMovementReq) {
	var ev *zerolog.Event
	if isRejection(err) {
		ev = s.log.Info()
	} else {
		ev = s.log.Error()
	}
	ev.Err(err).
		Str("method", method).
		Str("type", req.Type).
		Str("ibanReference", req.ReferenceIBAN).
		Msg("movement not executed")
}

func (s *serviceImpl) normalizeFilter(f MovementFilter) MovementFilter {
	if f.Page < 0 {
		f.Page = 0
	}
	if f.Size <= 0 {
		f.Size = DefaultPageSize
	}
	if f.Size > MaxPageSize {
		f.Size = MaxPageSize
	}
	if f.Type != "" {
		if mt, ok := ParseMovementType(f.Type); ok {
			f.Type = string(mt)
		}
	}
	if f.Date != nil {
		y, m, d := f.Date.Date()
		day := time.Date(y, m, d, 0, 0, 0, 0, s.loc)
		f.Date = &day
	}
	f.IBAN = normalizeIBAN(f.IBAN)
	f.ClientDNI = strings.TrimSpace(f.ClientDNI)
	return f
}

// lockSnapshot locks the accounts and card named by req. Missing records are left nil for
// the Validator to report.
func lockSnapshot(ctx context.Context, tx Tx, req CreateMovementReq) (Snapshot, error) {
	var snap Snapshot
	ibans := nonEmpty(req.ReferenceIBAN, req.DestinationIBAN)
	if len(ibans) > 0 {
		accts, err := tx.LockAccounts(ctx, ibans...)
		if err != nil {
			return snap, err
		}
		snap.Reference = accts[req.ReferenceIBAN]
		snap.Destination = accts[req.DestinationIBAN]
	}
	if req.CardNumber != "" {
		card, err := tx.LockCard(ctx, req.CardNumber)
		if err != nil {
			return snap, err
		}
		snap.Card = card
	}
	return snap, nil
}

func normalizeCreate(req CreateMovementReq) CreateMovementReq {
	req.Type = strings.TrimSpace(req.Type)
	req.ReferenceIBAN = normalizeIBAN(req.ReferenceIBAN)
	req.DestinationIBAN = normalizeIBAN(req.DestinationIBAN)
	req.CardNumber = strings.ReplaceAll(strings.TrimSpace(req.CardNumber), " ", "")
	return req
}

func normalizeIBAN(iban string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(iban), " ", ""))
}
