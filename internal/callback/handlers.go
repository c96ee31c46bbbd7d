// Package callback receives and verifies the gateway's server-to-server
// callbacks for both protocol generations, classifies them and journals the
// result. A callback whose digest or MAC does not verify is rejected before
// any field is trusted.
package callback

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/inteleon/dibs-go/dibs"
	"github.com/inteleon/dibs-go/flexwin"
	"github.com/inteleon/dibs-go/internal/journal"
	"github.com/inteleon/dibs-go/paywin"
)

// Handlers verifies inbound gateway callbacks against the configured
// merchant secrets and records them.
type Handlers struct {
	flexwin *flexwin.Client
	paywin  *paywin.Client
	journal journal.Recorder
	logger  *slog.Logger
}

// NewHandlers wires the callback endpoints. The journal may be nil; events
// are then only logged.
func NewHandlers(fw *flexwin.Client, pw *paywin.Client, j journal.Recorder, logger *slog.Logger) *Handlers {
	return &Handlers{
		flexwin: fw,
		paywin:  pw,
		journal: j,
		logger:  logger,
	}
}

// Router builds the HTTP surface: one callback route per protocol generation
// plus a health probe.
func (h *Handlers) Router(timeout time.Duration) chi.Router {
	r := chi.NewRouter()
	r.Use(Recovery(h.logger))
	r.Use(RequestLogger(h.logger))
	r.Use(Timeout(timeout))

	r.Post("/callback/flexwin", h.handleFlexWin)
	r.Post("/callback/paywin", h.handlePayWin)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return r
}

func (h *Handlers) handleFlexWin(w http.ResponseWriter, r *http.Request) {
	params, ok := h.parseForm(w, r)
	if !ok {
		return
	}

	outcome, err := h.flexwin.ResultParams(params)
	if err != nil {
		h.reject(w, "flexwin", err)
		return
	}

	h.record(r, "flexwin", params, outcome,
		params.Get("orderid"), params.Get("transact"), params.Get("currency"))
	writeJSON(w, http.StatusOK, map[string]string{"status": string(outcome.Status)})
}

func (h *Handlers) handlePayWin(w http.ResponseWriter, r *http.Request) {
	params, ok := h.parseForm(w, r)
	if !ok {
		return
	}

	outcome, err := h.paywin.ResultParams(params)
	if err != nil {
		h.reject(w, "paywin", err)
		return
	}

	h.record(r, "paywin", params, outcome,
		params.Get("orderId"), outcome.Transact, params.Get("currency"))
	writeJSON(w, http.StatusOK, map[string]string{"status": string(outcome.Status)})
}

func (h *Handlers) parseForm(w http.ResponseWriter, r *http.Request) (*dibs.Fields, bool) {
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed form body"})
		return nil, false
	}
	return dibs.FieldsFromValues(r.PostForm), true
}

// reject maps verification and classification failures onto status codes: an
// unverifiable digest is 401, anything else the gateway sent that we cannot
// interpret is 400.
func (h *Handlers) reject(w http.ResponseWriter, protocol string, err error) {
	var derr *dibs.Error
	status := http.StatusBadRequest
	if errors.As(err, &derr) && derr.Kind == dibs.KindDigestMismatch {
		status = http.StatusUnauthorized
	}

	h.logger.Warn("callback rejected",
		"protocol", protocol,
		"error", err,
	)
	writeJSON(w, status, map[string]string{"error": "callback rejected"})
}

func (h *Handlers) record(r *http.Request, protocol string, params *dibs.Fields, outcome *dibs.Outcome, orderID, transact, currency string) {
	amount, _ := strconv.ParseInt(params.Get("amount"), 10, 64)

	h.logger.Info("callback verified",
		"protocol", protocol,
		"order_id", orderID,
		"transact", transact,
		"status", string(outcome.Status),
	)

	if h.journal == nil {
		return
	}

	event := &journal.Event{
		Protocol:   protocol,
		Operation:  "callback",
		OrderID:    orderID,
		Transact:   transact,
		Amount:     amount,
		Currency:   currency,
		Status:     string(outcome.Status),
		ReasonCode: outcome.Reason.Code,
		Reason:     outcome.Reason.Description,
		RawQuery:   params.Values().Encode(),
	}
	if err := h.journal.Record(r.Context(), event); err != nil {
		h.logger.Error("failed to journal callback",
			"protocol", protocol,
			"order_id", orderID,
			"error", err,
		)
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
