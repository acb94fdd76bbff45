package dashboard

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"trading-journal-go/internal/ledger"
	"trading-journal-go/internal/models"
	"trading-journal-go/internal/stats"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

// Handler holds dependencies for the API endpoints.
type Handler struct {
	ledger   *ledger.Ledger
	currency string
	logger   *zap.Logger
	now      func() time.Time
}

// NewHandler creates a new Handler.
func NewHandler(l *ledger.Ledger, currency string, logger *zap.Logger) *Handler {
	return &Handler{ledger: l, currency: currency, logger: logger, now: time.Now}
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.logger.Debug("Request served",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

// Health reports that the server is up.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

// Profile returns the active profile summary.
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	p, err := h.ledger.CurrentProfile()
	if err != nil {
		h.fail(w, err)
		return
	}
	st, err := h.ledger.Stats(p.ID)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.writeJSON(w, struct {
		ID    uint                `json:"id"`
		Color string              `json:"color"`
		Stats ledger.ProfileStats `json:"stats"`
	}{ID: p.ID, Color: p.Color, Stats: st})
}

// Trades returns the active profile's trades, optionally filtered by
// ?status=running|closed and ?period=.
func (h *Handler) Trades(w http.ResponseWriter, r *http.Request) {
	_, trades, period, ok := h.load(w, r)
	if !ok {
		return
	}

	var status models.Status
	switch s := r.URL.Query().Get("status"); s {
	case "":
	case "running", "Running":
		status = models.Running
	case "closed", "Closed":
		status = models.Closed
	default:
		http.Error(w, fmt.Sprintf("unknown status %q", s), http.StatusBadRequest)
		return
	}

	out := []models.Trade{}
	for _, t := range period.Filter(trades, h.now()) {
		if status == "" || t.Status == status {
			out = append(out, t)
		}
	}
	// Most recent first
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	h.writeJSON(w, out)
}

// Statistics calculates and returns the metric sheet for ?period=.
func (h *Handler) Statistics(w http.ResponseWriter, r *http.Request) {
	p, trades, period, ok := h.load(w, r)
	if !ok {
		return
	}
	report := stats.NewReport(p, trades, period, h.currency, h.now())
	h.writeJSON(w, struct {
		Profile string        `json:"profile"`
		Period  stats.Period  `json:"period"`
		Metrics stats.Metrics `json:"metrics"`
	}{Profile: report.Profile, Period: period, Metrics: report.Metrics})
}

// PnLSeries returns the cumulative realized PnL curve.
func (h *Handler) PnLSeries(w http.ResponseWriter, r *http.Request) {
	_, trades, period, ok := h.load(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, stats.CumulativePnL(period.Filter(trades, h.now())))
}

// Calendar returns the trades of ?date=YYYY-MM-DD, today by default.
func (h *Handler) Calendar(w http.ResponseWriter, r *http.Request) {
	date := h.now()
	if s := r.URL.Query().Get("date"); s != "" {
		d, err := time.ParseInLocation(dateLayout, s, date.Location())
		if err != nil {
			http.Error(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		date = d
	}
	_, trades, _, ok := h.load(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, stats.Day(trades, date))
}

// CalendarMonth summarizes each day of ?year=&month=, the current month by
// default.
func (h *Handler) CalendarMonth(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	year, month := now.Year(), int(now.Month())
	q := r.URL.Query()
	var err error
	if s := q.Get("year"); s != "" {
		if year, err = strconv.Atoi(s); err != nil {
			http.Error(w, "invalid year", http.StatusBadRequest)
			return
		}
	}
	if s := q.Get("month"); s != "" {
		if month, err = strconv.Atoi(s); err != nil || month < 1 || month > 12 {
			http.Error(w, "invalid month", http.StatusBadRequest)
			return
		}
	}
	_, trades, _, ok := h.load(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, stats.Month(trades, year, time.Month(month), now.Location()))
}

// Report returns the metric sheet as a markdown download.
func (h *Handler) Report(w http.ResponseWriter, r *http.Request) {
	p, trades, period, ok := h.load(w, r)
	if !ok {
		return
	}
	now := h.now()
	report := stats.NewReport(p, trades, period, h.currency, now)

	name := fmt.Sprintf("trade_metrics_%s_%s.md", p.Username, now.Format("20060102_150405"))
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	if _, err := w.Write([]byte(report.Markdown())); err != nil {
		h.logger.Error("Failed to write report", zap.Error(err))
	}
}

// load resolves the active profile, its trades and the ?period= filter.
// On failure it writes the response and returns false.
func (h *Handler) load(w http.ResponseWriter, r *http.Request) (*models.Profile, []models.Trade, stats.Period, bool) {
	period, err := stats.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil, nil, "", false
	}
	p, err := h.ledger.CurrentProfile()
	if err != nil {
		h.fail(w, err)
		return nil, nil, "", false
	}
	trades, err := h.ledger.Trades(p.ID, ledger.TradeFilter{})
	if err != nil {
		h.fail(w, err)
		return nil, nil, "", false
	}
	return p, trades, period, true
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	var nf *ledger.NotFoundError
	var ve *ledger.ValidationError
	switch {
	case errors.As(err, &nf):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.As(err, &ve):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		h.logger.Error("Failed to serve dashboard request", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
