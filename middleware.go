package bankxmov

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/sync/semaphore"
)

var (
	_ Service = (*validationMiddleware)(nil)
)

type Middleware func(Service) Service

// Chain wraps svc so that the first middleware is the outermost.
func Chain(svc Service, mws ...Middleware) Service {
	for i := len(mws) - 1; i >= 0; i-- {
		svc = mws[i](svc)
	}
	return svc
}

// validationMiddleware rejects requests that are malformed on their face. Rules that need
// stored state are checked by the engine inside the transaction.
type validationMiddleware struct {
	next Service
}

func NewValidationMiddleware() Middleware {
	return func(svc Service) Service {
		return &validationMiddleware{
			next: svc,
		}
	}
}

func (v *validationMiddleware) ListMovements(ctx context.Context, f MovementFilter) (*MovementPage, error) {
	fields := map[string]string{}
	if f.Page < 0 {
		fields["page"] = "must not be negative"
	}
	if f.Size < 0 || f.Size > MaxPageSize {
		fields["size"] = fmt.Sprintf("must be between 1 and %d", MaxPageSize)
	}
	if f.Type != "" {
		if _, ok := ParseMovementType(f.Type); !ok {
			fields["type"] = "unrecognized movement type"
		}
	}
	if !validSort(f.Sort) {
		fields["sort"] = "unsupported sort"
	}
	if len(fields) > 0 {
		return nil, ErrBadRequest{Fields: fields}
	}
	return v.next.ListMovements(ctx, f)
}

func (v *validationMiddleware) GetMovement(ctx context.Context, id snowflake.ID) (*Movement, error) {
	return v.next.GetMovement(ctx, id)
}

func (v *validationMiddleware) CreateMovement(ctx context.Context, req CreateMovementReq) (*Movement, error) {
	if fields := createFields(req); len(fields) > 0 {
		return nil, ErrBadRequest{Fields: fields}
	}
	return v.next.CreateMovement(ctx, req)
}

func (v *validationMiddleware) UpdateMovement(ctx context.Context, req UpdateMovementReq) (*Movement, error) {
	fields := createFields(req.CreateMovementReq)
	if strings.TrimSpace(req.Username) == "" {
		fields["username"] = "username is required"
	}
	if len(fields) > 0 {
		return nil, ErrBadRequest{Fields: fields}
	}
	return v.next.UpdateMovement(ctx, req)
}

func (v *validationMiddleware) CancelMovement(ctx context.Context, req CancelMovementReq) error {
	if strings.TrimSpace(req.Username) == "" {
		return badRequest("username", "username is required")
	}
	return v.next.CancelMovement(ctx, req)
}

func (v *validationMiddleware) AccrueInterest(ctx context.Context, req AccrueInterestReq) (*Movement, error) {
	fields := map[string]string{}
	if strings.TrimSpace(req.DestinationIBAN) == "" {
		fields["ibanDestination"] = "destination account is required"
	}
	if reason, ok := validAmount(req.Amount); !ok {
		fields["amount"] = reason
	}
	if len(fields) > 0 {
		return nil, ErrBadRequest{Fields: fields}
	}
	return v.next.AccrueInterest(ctx, req)
}

func (v *validationMiddleware) Statement(ctx context.Context, w io.Writer, req StatementReq) error {
	fields := map[string]string{}
	if strings.TrimSpace(req.Username) == "" {
		fields["username"] = "username is required"
	}
	switch strings.ToLower(req.Format) {
	case StatementPDF, StatementCSV:
	default:
		fields["format"] = "format must be pdf or csv"
	}
	if len(fields) > 0 {
		return ErrBadRequest{Fields: fields}
	}
	return v.next.Statement(ctx, w, req)
}

func createFields(req CreateMovementReq) map[string]string {
	fields := map[string]string{}
	if _, ok := ParseMovementType(req.Type); !ok {
		fields["type"] = "unrecognized movement type"
	}
	if reason, ok := validAmount(req.Amount); !ok {
		fields["amount"] = reason
	}
	return fields
}

//
// Metrics
//

type ServiceMetrics struct {
	Movements     *prometheus.CounterVec
	Cancellations *prometheus.CounterVec
	Duration      *prometheus.HistogramVec
}

func NewServiceMetrics(reg prometheus.Registerer) *ServiceMetrics {
	m := &ServiceMetrics{
		Movements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bankxmov_movements_total",
			Help: "Movements requested, by type and outcome",
		}, []string{"type", "outcome"}),
		Cancellations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bankxmov_cancellations_total",
			Help: "Movement cancellations requested, by outcome",
		}, []string{"outcome"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bankxmov_service_duration_seconds",
			Help:    "Histogram of service method durations",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
	}
	reg.MustRegister(m.Movements, m.Cancellations, m.Duration)
	return m
}

type metricsMiddleware struct {
	next    Service
	metrics *ServiceMetrics
}

var (
	_ Service = (*metricsMiddleware)(nil)
)

func NewMetricsMiddleware(metrics *ServiceMetrics) Middleware {
	return func(next Service) Service {
		return &metricsMiddleware{
			next:    next,
			metrics: metrics,
		}
	}
}

// outcome buckets err as executed, rejected or failed.
func outcome(err error) string {
	switch {
	case err == nil:
		return "executed"
	case isRejection(err):
		return "rejected"
	default:
		return "failed"
	}
}

func (m *metricsMiddleware) observe(method string, begin time.Time) {
	m.metrics.Duration.WithLabelValues(method).Observe(time.Since(begin).Seconds())
}

func (m *metricsMiddleware) ListMovements(ctx context.Context, f MovementFilter) (*MovementPage, error) {
	defer m.observe("list_movements", time.Now())
	return m.next.ListMovements(ctx, f)
}

func (m *metricsMiddleware) GetMovement(ctx context.Context, id snowflake.ID) (*Movement, error) {
	defer m.observe("get_movement", time.Now())
	return m.next.GetMovement(ctx, id)
}

func (m *metricsMiddleware) CreateMovement(ctx context.Context, req CreateMovementReq) (*Movement, error) {
	defer m.observe("create_movement", time.Now())
	mov, err := m.next.CreateMovement(ctx, req)
	m.metrics.Movements.WithLabelValues(typeLabel(req.Type), outcome(err)).Inc()
	return mov, err
}

func (m *metricsMiddleware) UpdateMovement(ctx context.Context, req UpdateMovementReq) (*Movement, error) {
	defer m.observe("update_movement", time.Now())
	mov, err := m.next.UpdateMovement(ctx, req)
	m.metrics.Movements.WithLabelValues(typeLabel(req.Type), outcome(err)).Inc()
	return mov, err
}

func (m *metricsMiddleware) CancelMovement(ctx context.Context, req CancelMovementReq) error {
	defer m.observe("cancel_movement", time.Now())
	err := m.next.CancelMovement(ctx, req)
	m.metrics.Cancellations.WithLabelValues(outcome(err)).Inc()
	return err
}

func (m *metricsMiddleware) AccrueInterest(ctx context.Context, req AccrueInterestReq) (*Movement, error) {
	defer m.observe("accrue_interest", time.Now())
	mov, err := m.next.AccrueInterest(ctx, req)
	m.metrics.Movements.WithLabelValues(string(InteresMensual), outcome(err)).Inc()
	return mov, err
}

func (m *metricsMiddleware) Statement(ctx context.Context, w io.Writer, req StatementReq) error {
	defer m.observe("statement", time.Now())
	return m.next.Statement(ctx, w, req)
}

// typeLabel keeps label cardinality bounded to the known movement types.
func typeLabel(s string) string {
	if mt, ok := ParseMovementType(s); ok {
		return string(mt)
	}
	return "UNKNOWN"
}

//
// Rate limiting middlewares
//

// limitMiddleware limits the number of in-flight requests to the service by using
// a weighted semaphore, i.e., x/sync/semaphore.Semaphore with an acquisition timeout.
// A request that cannot acquire a token in time is shed with ErrUnavailable.
type limitMiddleware struct {
	next   Service
	limits *ServiceLimits
}

var (
	_ Service = (*limitMiddleware)(nil)
)

// ServiceLimits holds one semaphore per method. A nil semaphore leaves the method unlimited.
type ServiceLimits struct {
	ListMovements  *semaphore.Weighted
	GetMovement    *semaphore.Weighted
	CreateMovement *semaphore.Weighted
	UpdateMovement *semaphore.Weighted
	CancelMovement *semaphore.Weighted
	AccrueInterest *semaphore.Weighted
	Statement      *semaphore.Weighted
	Timeout        time.Duration
}

func NewlimitMiddleware(limits *ServiceLimits) Middleware {
	return func(next Service) Service {
		return &limitMiddleware{
			next:   next,
			limits: limits,
		}
	}
}

// acquire takes a token from sem, waiting at most the configured timeout. The returned
// release is safe to call when no token was taken.
func (l *limitMiddleware) acquire(ctx context.Context, sem *semaphore.Weighted) (func(), error) {
	if sem == nil {
		return func() {}, nil
	}
	if l.limits.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.limits.Timeout)
		defer cancel()
	}
	if err := sem.Acquire(ctx, 1); err != nil {
		return func() {}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return func() { sem.Release(1) }, nil
}

func (l *limitMiddleware) ListMovements(ctx context.Context, f MovementFilter) (*MovementPage, error) {
	release, err := l.acquire(ctx, l.limits.ListMovements)
	if err != nil {
		return nil, err
	}
	defer release()
	return l.next.ListMovements(ctx, f)
}

func (l *limitMiddleware) GetMovement(ctx context.Context, id snowflake.ID) (*Movement, error) {
	release, err := l.acquire(ctx, l.limits.GetMovement)
	if err != nil {
		return nil, err
	}
	defer release()
	return l.next.GetMovement(ctx, id)
}

func (l *limitMiddleware) CreateMovement(ctx context.Context, req CreateMovementReq) (*Movement, error) {
	release, err := l.acquire(ctx, l.limits.CreateMovement)
	if err != nil {
		return nil, err
	}
	defer release()
	return l.next.CreateMovement(ctx, req)
}

func (l *limitMiddleware) UpdateMovement(ctx context.Context, req UpdateMovementReq) (*Movement, error) {
	release, err := l.acquire(ctx, l.limits.UpdateMovement)
	if err != nil {
		return nil, err
	}
	defer release()
	return l.next.UpdateMovement(ctx, req)
}

func (l *limitMiddleware) CancelMovement(ctx context.Context, req CancelMovementReq) error {
	release, err := l.acquire(ctx, l.limits.CancelMovement)
	if err != nil {
		return err
	}
	defer release()
	return l.next.CancelMovement(ctx, req)
}

func (l *limitMiddleware) AccrueInterest(ctx context.Context, req AccrueInterestReq) (*Movement, error) {
	release, err := l.acquire(ctx, l.limits.AccrueInterest)
	if err != nil {
		return nil, err
	}
	defer release()
	return l.next.AccrueInterest(ctx, req)
}

func (l *limitMiddleware) Statement(ctx context.Context, w io.Writer, req StatementReq) error {
	release, err := l.acquire(ctx, l.limits.Statement)
	if err != nil {
		return err
	}
	defer release()
	return l.next.Statement(ctx, w, req)
}

// ServiceBreaker holds one breaker per write method. A nil breaker leaves the method unguarded.
type ServiceBreaker struct {
	CreateMovement *gobreaker.TwoStepCircuitBreaker[*Movement]
	UpdateMovement *gobreaker.TwoStepCircuitBreaker[*Movement]
	CancelMovement *gobreaker.TwoStepCircuitBreaker[any]
	AccrueInterest *gobreaker.TwoStepCircuitBreaker[*Movement]
	Statement      *gobreaker.TwoStepCircuitBreaker[any]
}

// circuitBreakMiddleware is a middleware that implements the circuit breaker pattern.
// It works in conjunction with limitMiddleware: shed requests and storage failures count
// against the breaker, business rejections do not.
type circuitBreakMiddleware struct {
	next  Service
	brkrs *ServiceBreaker
}

var (
	_ Service = (*circuitBreakMiddleware)(nil)
)

func NewCircuitBreakMiddleware(brkrs *ServiceBreaker) Middleware {
	return func(next Service) Service {
		return &circuitBreakMiddleware{
			next:  next,
			brkrs: brkrs,
		}
	}
}

func guard[T any](cb *gobreaker.TwoStepCircuitBreaker[T], fn func() (T, error)) (T, error) {
	if cb == nil {
		return fn()
	}
	done, err := cb.Allow()
	if err != nil {
		var zero T
		return zero, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	res, err := fn()
	done(err == nil || isRejection(err))
	return res, err
}

func (c *circuitBreakMiddleware) ListMovements(ctx context.Context, f MovementFilter) (*MovementPage, error) {
	return c.next.ListMovements(ctx, f)
}

func (c *circuitBreakMiddleware) GetMovement(ctx context.Context, id snowflake.ID) (*Movement, error) {
	return c.next.GetMovement(ctx, id)
}

func (c *circuitBreakMiddleware) CreateMovement(ctx context.Context, req CreateMovementReq) (*Movement, error) {
	return guard(c.brkrs.CreateMovement, func() (*Movement, error) {
		return c.next.CreateMovement(ctx, req)
	})
}

func (c *circuitBreakMiddleware) UpdateMovement(ctx context.Context, req UpdateMovementReq) (*Movement, error) {
	return guard(c.brkrs.UpdateMovement, func() (*Movement, error) {
		return c.next.UpdateMovement(ctx, req)
	})
}

func (c *circuitBreakMiddleware) CancelMovement(ctx context.Context, req CancelMovementReq) error {
	_, err := guard(c.brkrs.CancelMovement, func() (any, error) {
		return nil, c.next.CancelMovement(ctx, req)
	})
	return err
}

func (c *circuitBreakMiddleware) AccrueInterest(ctx context.Context, req AccrueInterestReq) (*Movement, error) {
	return guard(c.brkrs.AccrueInterest, func() (*Movement, error) {
		return c.next.AccrueInterest(ctx, req)
	})
}

func (c *circuitBreakMiddleware) Statement(ctx context.Context, w io.Writer, req StatementReq) error {
	_, err := guard(c.brkrs.Statement, func() (any, error) {
		return nil, c.next.Statement(ctx, w, req)
	})
	return err
}
