package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"taxreport/internal/logger"
	"taxreport/internal/render"
	"taxreport/internal/taxreport"
)

// Handlers groups all HTTP handler methods and their dependencies.
type Handlers struct {
	source taxreport.ChargeSource
	engine *taxreport.Engine
	now    func() time.Time
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log := logger.WithComponent("api")
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeDocument(w http.ResponseWriter, artifact taxreport.Artifact) {
	w.Header().Set("Content-Type", artifact.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+artifact.Name+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(artifact.Data)
}

func parsePeriod(r *http.Request) (taxreport.Period, error) {
	q := r.URL.Query()
	var year int
	if y := q.Get("year"); y != "" {
		v, err := strconv.Atoi(y)
		if err != nil {
			return taxreport.Period{}, errors.New("year must be a number")
		}
		year = v
	}
	return taxreport.ParsePeriod(year, q.Get("from"), q.Get("to"))
}

// --- Health ---

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- GetTaxReport ---

// GetTaxReport aggregates the charges of the requested period. The format
// query parameter selects json (default), pdf or xlsx.
func (h *Handlers) GetTaxReport(w http.ResponseWriter, r *http.Request) {
	period, err := parsePeriod(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var renderer taxreport.Renderer
	switch format := r.URL.Query().Get("format"); format {
	case "", "json":
	case "pdf":
		renderer = render.PDFRenderer{}
	case "xlsx":
		renderer = render.XLSXRenderer{}
	default:
		writeError(w, http.StatusBadRequest, "unsupported format "+strconv.Quote(format))
		return
	}

	charges, err := h.source.Load(r.Context(), period)
	if err != nil {
		log := logger.WithComponent("api")
		log.Error().Err(err).Str("period", period.Label()).Msg("Failed to load charges")
		writeError(w, http.StatusInternalServerError, "failed to load charges")
		return
	}

	payload, err := h.engine.Aggregate(charges)
	if err != nil {
		if errors.Is(err, taxreport.ErrEmptyInput) {
			writeError(w, http.StatusNotFound, "no charges to report for "+period.Label())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	report := &taxreport.Report{
		RunID:       uuid.New(),
		Period:      period,
		GeneratedAt: h.now().UTC(),
		Payload:     payload,
	}

	if renderer == nil {
		writeJSON(w, http.StatusOK, report)
		return
	}

	artifact, err := renderer.Render(report)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeDocument(w, artifact)
}
