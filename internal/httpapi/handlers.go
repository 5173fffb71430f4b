package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tejusbharadwaj/energyflow/internal/engine"
	middleware "github.com/tejusbharadwaj/energyflow/internal/grpc/middlewares"
	"github.com/tejusbharadwaj/energyflow/internal/models"
	"github.com/tejusbharadwaj/energyflow/internal/report"
)

var errRangeTooLarge = errors.New("time range exceeds maximum allowed")

// periodRequest is the body of POST /flow/select.
type periodRequest struct {
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Granularity string    `json:"granularity"`
}

func (a *api) getFlow(w http.ResponseWriter, r *http.Request) {
	period, err := a.queryPeriod(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	rec, err := a.engine.Compute(r.Context(), period)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (a *api) getBreakdown(w http.ResponseWriter, r *http.Request) {
	period, err := a.queryPeriod(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	records, err := a.engine.Breakdown(r.Context(), period)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (a *api) exportXLSX(w http.ResponseWriter, r *http.Request) {
	period, err := a.queryPeriod(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	summary, err := a.engine.Compute(r.Context(), period)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	buckets, err := a.engine.Breakdown(r.Context(), period)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	data, err := report.BuildFlowXLSX(summary, buckets)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeFile(w, data, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", exportName(period, "xlsx"))
}

func (a *api) exportPDF(w http.ResponseWriter, r *http.Request) {
	period, err := a.queryPeriod(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	summary, err := a.engine.Compute(r.Context(), period)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	data, err := report.BuildFlowPDF(summary)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeFile(w, data, "application/pdf", exportName(period, "pdf"))
}

func (a *api) getCurrent(w http.ResponseWriter, r *http.Request) {
	if a.tracker == nil {
		writeJSON(w, http.StatusNotImplemented, errorBody{Error: "period tracking is disabled"})
		return
	}
	rec, ok := a.tracker.Current()
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "no active period"})
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (a *api) selectPeriod(w http.ResponseWriter, r *http.Request) {
	if a.tracker == nil {
		writeJSON(w, http.StatusNotImplemented, errorBody{Error: "period tracking is disabled"})
		return
	}
	var req periodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: fmt.Sprintf("invalid body: %v", err)})
		return
	}
	period := models.Period{Start: req.Start, End: req.End, Granularity: models.Granularity(req.Granularity)}
	if err := a.validate(period); err != nil {
		a.writeError(w, r, err)
		return
	}
	rec, err := a.tracker.Select(r.Context(), period)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (a *api) refresh(w http.ResponseWriter, r *http.Request) {
	if a.tracker == nil {
		writeJSON(w, http.StatusNotImplemented, errorBody{Error: "period tracking is disabled"})
		return
	}
	rec, err := a.tracker.Refresh(r.Context())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (a *api) getSources(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.engine.Sources())
}

func (a *api) healthz(w http.ResponseWriter, r *http.Request) {
	if a.health != nil {
		if err := a.health(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *api) queryPeriod(r *http.Request) (models.Period, error) {
	q := r.URL.Query()
	start, err := time.Parse(time.RFC3339, q.Get("start"))
	if err != nil {
		return models.Period{}, fmt.Errorf("%w: start: %v", engine.ErrInvalidPeriod, err)
	}
	end, err := time.Parse(time.RFC3339, q.Get("end"))
	if err != nil {
		return models.Period{}, fmt.Errorf("%w: end: %v", engine.ErrInvalidPeriod, err)
	}
	granularity := q.Get("granularity")
	if granularity == "" {
		granularity = string(models.GranularityHour)
	}
	period := models.Period{Start: start, End: end, Granularity: models.Granularity(granularity)}
	return period, a.validate(period)
}

func (a *api) validate(p models.Period) error {
	if err := engine.ValidatePeriod(p); err != nil {
		return err
	}
	if a.maxRange > 0 && p.End.Sub(p.Start) > a.maxRange {
		return errRangeTooLarge
	}
	return nil
}

type errorBody struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func (a *api) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, engine.ErrInvalidPeriod), errors.Is(err, errRangeTooLarge):
		code = http.StatusBadRequest
	case errors.Is(err, engine.ErrNoActivePeriod):
		code = http.StatusNotFound
	case errors.Is(err, engine.ErrSuperseded):
		code = http.StatusConflict
	}

	id := middleware.RequestIDFromContext(r.Context())
	if code == http.StatusInternalServerError {
		a.logger.WithFields(logrus.Fields{
			"request_id": id,
			"path":       r.URL.Path,
			"error":      err,
		}).Error("HTTP request failed")
	}
	writeJSON(w, code, errorBody{Error: err.Error(), RequestID: id})
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeFile(w http.ResponseWriter, data []byte, contentType, name string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func exportName(p models.Period, ext string) string {
	return fmt.Sprintf("energyflow_%s_%s_%s.%s",
		p.Start.UTC().Format("20060102T1504"),
		p.End.UTC().Format("20060102T1504"),
		p.Granularity, ext)
}
