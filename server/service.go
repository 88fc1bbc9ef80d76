package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/jdziat/simple-durable-airdrops/pkg/core"
	"github.com/jdziat/simple-durable-airdrops/pkg/executor"
	"github.com/jdziat/simple-durable-airdrops/pkg/security"
	"github.com/jdziat/simple-durable-airdrops/pkg/validate"
)

// service implements the HTTP endpoints.
type service struct {
	relay   *executor.Relay
	storage core.Storage
	watcher Watcher
	logger  *slog.Logger
}

func newService(relay *executor.Relay, storage core.Storage, cfg *config) *service {
	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}
	return &service{
		relay:   relay,
		storage: storage,
		watcher: cfg.watcher,
		logger:  logger,
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// RecordResponse is the body of GET /v1/airdrops/{id}.
type RecordResponse struct {
	Record  *core.Record        `json:"record"`
	Batches []*core.BatchRecord `json:"batches"`
}

// ListResponse is the body of GET /v1/airdrops.
type ListResponse struct {
	Records []*core.Record `json:"records"`
	Total   int64          `json:"total"`
	Page    int            `json:"page"`
	Limit   int            `json:"limit"`
}

// ValidateResponse is the body of POST /v1/recipients/validate.
type ValidateResponse struct {
	*validate.Report
	RowErrors    []validate.RowError `json:"rowErrors,omitempty"`
	Batches      int                 `json:"batches"`
	EstimatedFee uint64              `json:"estimatedFee"`
}

// FeeResponse is the body of GET /v1/fees/estimate.
type FeeResponse struct {
	Recipients int    `json:"recipients"`
	Batches    int    `json:"batches"`
	Fee        uint64 `json:"fee"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: security.SanitizeErrorMessage(err.Error())})
}

// relayStatus maps a relay error to an HTTP status.
func relayStatus(err error) int {
	switch {
	case errors.Is(err, core.ErrMissingFields),
		errors.Is(err, core.ErrInvalidJobID),
		errors.Is(err, core.ErrInvalidAddress),
		errors.Is(err, core.ErrTooManyRecipients),
		errors.Is(err, core.ErrNoRecipients):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrJobLocked), errors.Is(err, core.ErrDuplicateRecord):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// execute relays a prepared job and answers once every batch settled.
func (s *service) execute(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, security.MaxRequestBodySize)
	var req executor.RelayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, &executor.RelayOutcome{
			Signatures:         []string{},
			FailedBatchIndices: []int{},
			Error:              fmt.Sprintf("invalid request body: %v", err),
		})
		return
	}

	out, err := s.relay.Execute(r.Context(), req)
	if err != nil {
		status := relayStatus(err)
		if status == http.StatusInternalServerError {
			s.logger.Error("relay failed", "job_id", req.JobID, "error", err)
		}
		writeJSON(w, status, &executor.RelayOutcome{
			Signatures:         []string{},
			FailedBatchIndices: []int{},
			Error:              security.SanitizeErrorMessage(err.Error()),
		})
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *service) getRecord(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := security.ValidateJobID(id); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	rec, err := s.storage.GetRecord(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, core.ErrRecordNotFound)
		return
	}
	batches, err := s.storage.GetBatches(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, RecordResponse{Record: rec, Batches: batches})
}

func (s *service) listRecords(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	page, limit = security.ClampPage(page, limit)

	records, total, err := s.storage.ListRecords(r.Context(), core.RecordFilter{
		Creator: q.Get("creator"),
		AssetID: q.Get("asset"),
		Page:    page,
		Limit:   limit,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if records == nil {
		records = []*core.Record{}
	}
	writeJSON(w, http.StatusOK, ListResponse{Records: records, Total: total, Page: page, Limit: limit})
}

// validateRecipients accepts a JSON array of recipients or, with a text/csv
// content type, a CSV upload. The optional decimals query parameter also
// checks amounts against the asset's precision.
func (s *service) validateRecipients(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, security.MaxRequestBodySize)

	var opts []validate.Option
	if d := r.URL.Query().Get("decimals"); d != "" {
		n, err := strconv.ParseUint(d, 10, 8)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid decimals %q", d))
			return
		}
		opts = append(opts, validate.Decimals(uint8(n)))
	}

	var (
		raw       []core.Recipient
		rowErrors []validate.RowError
		err       error
	)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "text/csv" {
		raw, rowErrors, err = validate.ParseCSV(r.Body)
	} else {
		err = json.NewDecoder(r.Body).Decode(&raw)
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	// A CSV whose every row is malformed still gets its row errors back.
	if err := security.ValidateRecipientCount(len(raw)); err != nil && !(len(raw) == 0 && len(rowErrors) > 0) {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	report := validate.Recipients(raw, opts...)
	writeJSON(w, http.StatusOK, ValidateResponse{
		Report:       report,
		RowErrors:    rowErrors,
		Batches:      batchCount(len(report.Valid)),
		EstimatedFee: validate.EstimateFees(len(report.Valid)),
	})
}

func (s *service) estimateFees(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(r.URL.Query().Get("recipients"))
	if err != nil || n < 0 || n > security.MaxRecipientsPerJob {
		writeError(w, http.StatusBadRequest, fmt.Errorf("recipients must be an integer between 0 and %d", security.MaxRecipientsPerJob))
		return
	}
	writeJSON(w, http.StatusOK, FeeResponse{Recipients: n, Batches: batchCount(n), Fee: validate.EstimateFees(n)})
}

// stats reports record and batch counts. The optional window query parameter
// (a Go duration such as 24h) limits the counts to recent rows.
func (s *service) stats(w http.ResponseWriter, r *http.Request) {
	st, ok := s.storage.(StatsStorage)
	if !ok {
		writeError(w, http.StatusNotImplemented, errors.New("stats are not supported by this storage"))
		return
	}
	var since time.Time
	if v := r.URL.Query().Get("window"); v != "" {
		window, err := time.ParseDuration(v)
		if err != nil || window <= 0 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid window %q", v))
			return
		}
		since = time.Now().Add(-window)
	}
	stats, err := st.GetStats(r.Context(), since)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// events streams progress snapshots as server-sent events until the job is
// done or the client goes away. The latest known snapshot is sent first.
func (s *service) events(w http.ResponseWriter, r *http.Request) {
	if s.watcher == nil {
		http.NotFound(w, r)
		return
	}
	id := r.PathValue("id")
	if err := security.ValidateJobID(id); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, errors.New("streaming unsupported"))
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	updates, err := s.watcher.Watch(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	send := func(p core.Progress) bool {
		payload, err := json.Marshal(p)
		if err != nil {
			return false
		}
		if _, err := fmt.Fprintf(w, "event: progress\ndata: %s\n\n", payload); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}

	if latest, err := s.watcher.Latest(ctx, id); err != nil {
		s.logger.Warn("failed to load latest progress", "job_id", id, "error", err)
	} else if latest != nil {
		if !send(*latest) || latest.Done() {
			return
		}
	}
	for p := range updates {
		if !send(p) {
			return
		}
	}
}

func batchCount(n int) int {
	return (n + core.MaxBatchSize - 1) / core.MaxBatchSize
}
