package bankxmov

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	headerUsername   = "username"
	headerRequestID  = "X-Request-ID"
	headerTotalCount = "X-Total-Count"
)

func NewHTTPHandler(svc Service, log *zerolog.Logger) http.Handler {
	hndlr := &httpHandler{
		Svc: svc,
		Log: log,
	}
	mux := chi.NewMux()
	mux.Use(requestContext(log))
	mux.NotFound(HTTPNotFound)
	mux.Route("/movements", func(r chi.Router) {
		r.Get("/", hndlr.ListMovements)
		r.Post("/", hndlr.CreateMovement)
		r.Post("/interest", hndlr.AccrueInterest)
		r.Route("/{movID:[0-9]+}", func(rr chi.Router) {
			rr.Get("/", hndlr.GetMovement)
			rr.Put("/", hndlr.UpdateMovement)
			rr.Delete("/", hndlr.CancelMovement)
		})
	})
	mux.Get("/accounts/{iban}/statement", hndlr.Statement)

	return mux
}

// requestContext tags every request with an id and a logger carrying it, and logs the
// request once it is served.
func requestContext(base *zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := r.Header.Get(headerRequestID)
			if reqID == "" {
				reqID = uuid.NewString()
			}
			w.Header().Set(headerRequestID, reqID)

			lg := base.With().Str("request_id", reqID).Logger()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			begin := time.Now()
			next.ServeHTTP(ww, r.WithContext(lg.WithContext(r.Context())))

			lg.Debug().
				Str("http_method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("took", time.Since(begin)).
				Msg("request served")
		})
	}
}

type httpHandler struct {
	Svc Service
	Log *zerolog.Logger
}

// logger prefers the request-scoped logger set by requestContext.
func (h *httpHandler) logger(r *http.Request) *zerolog.Logger {
	if lg := zerolog.Ctx(r.Context()); lg.GetLevel() != zerolog.Disabled {
		return lg
	}
	return h.Log
}

func (h *httpHandler) ListMovements(w http.ResponseWriter, r *http.Request) {
	f, err := parseMovementFilter(r)
	if err != nil {
		h.logger(r).Err(err).Str("method", "list_movements").Msg("error parsing query")
		WriteHTTPError(w, err)
		return
	}
	page, err := h.Svc.ListMovements(r.Context(), f)
	if err != nil {
		WriteHTTPError(w, err)
		return
	}

	for i := range page.Content {
		page.Content[i] = masked(page.Content[i])
	}
	w.Header().Set(headerTotalCount, strconv.Itoa(page.TotalElements))
	writeJSON(w, http.StatusOK, page)
}

func (h *httpHandler) GetMovement(w http.ResponseWriter, r *http.Request) {
	id, err := movementID(r)
	if err != nil {
		h.logger(r).Err(err).Str("method", "get_movement").Msg("error parsing movement ID")
		WriteHTTPError(w, err)
		return
	}
	mov, err := h.Svc.GetMovement(r.Context(), id)
	if err != nil {
		WriteHTTPError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, masked(*mov))
}

func (h *httpHandler) CreateMovement(w http.ResponseWriter, r *http.Request) {
	var req CreateMovementReq
	if err := h.decodeBody(r, "create_movement", &req); err != nil {
		WriteHTTPError(w, err)
		return
	}
	mov, err := h.Svc.CreateMovement(r.Context(), req)
	if err != nil {
		WriteHTTPError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, masked(*mov))
}

func (h *httpHandler) UpdateMovement(w http.ResponseWriter, r *http.Request) {
	id, err := movementID(r)
	if err != nil {
		h.logger(r).Err(err).Str("method", "update_movement").Msg("error parsing movement ID")
		WriteHTTPError(w, err)
		return
	}
	req := UpdateMovementReq{
		ID:       id,
		Username: r.Header.Get(headerUsername),
	}
	if err = h.decodeBody(r, "update_movement", &req.CreateMovementReq); err != nil {
		WriteHTTPError(w, err)
		return
	}
	mov, err := h.Svc.UpdateMovement(r.Context(), req)
	if err != nil {
		WriteHTTPError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, masked(*mov))
}

func (h *httpHandler) CancelMovement(w http.ResponseWriter, r *http.Request) {
	id, err := movementID(r)
	if err != nil {
		h.logger(r).Err(err).Str("method", "cancel_movement").Msg("error parsing movement ID")
		WriteHTTPError(w, err)
		return
	}
	req := CancelMovementReq{
		ID:       id,
		Username: r.Header.Get(headerUsername),
	}
	if err = h.Svc.CancelMovement(r.Context(), req); err != nil {
		WriteHTTPError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *httpHandler) AccrueInterest(w http.ResponseWriter, r *http.Request) {
	var req AccrueInterestReq
	if err := h.decodeBody(r, "accrue_interest", &req); err != nil {
		WriteHTTPError(w, err)
		return
	}
	mov, err := h.Svc.AccrueInterest(r.Context(), req)
	if err != nil {
		WriteHTTPError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, masked(*mov))
}

func (h *httpHandler) Statement(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = StatementPDF
	}
	req := StatementReq{
		IBAN:     chi.URLParam(r, "iban"),
		Username: r.Header.Get(headerUsername),
		Format:   format,
	}

	// Rendered into a buffer so a failure can still be reported as a JSON error.
	buf := new(bytes.Buffer)
	if err := h.Svc.Statement(r.Context(), buf, req); err != nil {
		WriteHTTPError(w, err)
		return
	}

	if strings.EqualFold(format, StatementCSV) {
		w.Header().Set("Content-Type", "text/csv")
	} else {
		w.Header().Set("Content-Type", "application/pdf")
	}
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger(r).Err(err).Str("method", "statement").Msg("error writing statement")
	}
}

func (h *httpHandler) decodeBody(r *http.Request, method string, v any) error {
	buf, err := io.ReadAll(r.Body)
	defer r.Body.Close()
	if err != nil {
		h.logger(r).Err(err).Str("method", method).Msg("error reading HTTP request")
		return ErrInternalServer
	}
	if err = json.Unmarshal(buf, v); err != nil {
		h.logger(r).Err(err).Str("method", method).Msg("error unmarshalling JSON")
		return ErrBadRequest{Fields: map[string]string{"request body": "malformed JSON"}}
	}
	return nil
}

func movementID(r *http.Request) (snowflake.ID, error) {
	id, err := snowflake.ParseString(chi.URLParam(r, "movID"))
	if err != nil {
		return 0, ErrBadRequest{map[string]string{"movID": "invalid format"}}
	}
	return id, nil
}

func parseMovementFilter(r *http.Request) (MovementFilter, error) {
	q := r.URL.Query()
	f := MovementFilter{
		Type:      q.Get("type"),
		IBAN:      q.Get("iban"),
		ClientDNI: q.Get("clientDni"),
		Sort:      q.Get("sort"),
	}
	fields := map[string]string{}
	if v := q.Get("date"); v != "" {
		d, err := time.Parse(time.DateOnly, v)
		if err != nil {
			fields["date"] = "expected YYYY-MM-DD"
		} else {
			f.Date = &d
		}
	}
	if v := q.Get("deleted"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			fields["deleted"] = "expected true or false"
		} else {
			f.Deleted = &b
		}
	}
	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			fields["page"] = "invalid format"
		}
		f.Page = n
	}
	if v := q.Get("size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			fields["size"] = "invalid format"
		}
		f.Size = n
	}
	if len(fields) > 0 {
		return f, ErrBadRequest{Fields: fields}
	}
	return f, nil
}

func masked(m Movement) Movement {
	m.CardNumber = maskCardNumber(m.CardNumber)
	return m
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("response encoding failed")
	}
}

func WriteHTTPError(w http.ResponseWriter, err error) {
	var ne error
	defer func() {
		if ne != nil {
			log.Error().
				Err(ne).
				Msg("error response encoding failed")
		}
	}()

	w.Header().Set("Content-Type", "application/json")
	errnf := &ErrNotFound{}
	errbr := &ErrBadRequest{}
	errfb := &ErrForbidden{}
	switch {
	case errors.As(err, errnf):
		w.WriteHeader(http.StatusNotFound)
		ne = json.NewEncoder(w).Encode(errnf)
	case errors.As(err, errbr):
		w.WriteHeader(http.StatusBadRequest)
		ne = json.NewEncoder(w).Encode(errbr)
	case errors.As(err, errfb):
		w.WriteHeader(http.StatusForbidden)
		ne = json.NewEncoder(w).Encode(errfb)
	case errors.Is(err, ErrUnavailable):
		w.WriteHeader(http.StatusServiceUnavailable)
		ne = json.NewEncoder(w).Encode(map[string]string{
			"message": ErrUnavailable.Error(),
		})
	default:
		w.WriteHeader(http.StatusInternalServerError)
		resp := map[string]string{
			"message": "server error",
		}
		ne = json.NewEncoder(w).Encode(resp)
	}
}

func HTTPNotFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	resp := map[string]string{
		"path": r.URL.Path,
	}
	json.NewEncoder(w).Encode(resp)
}
