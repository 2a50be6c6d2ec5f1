package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"github.com/YuminosukeSato/salesforecast/dataset"
	"github.com/YuminosukeSato/salesforecast/pkg/errors"
	"github.com/YuminosukeSato/salesforecast/pkg/log"
)

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error     string            `json:"error"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

// BatchRequest is the body of POST /api/v1/forecast/batch.
type BatchRequest struct {
	Rows []dataset.ProductData `json:"rows" validate:"required,min=1,dive"`
}

// BatchResponse holds one forecast per request row, in request order.
type BatchResponse struct {
	Scores []float64 `json:"scores"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]any{
		"status":   "ok",
		"model_id": s.model.ID,
		"trees":    s.model.Regressor.NumTrees(),
	})
}

func (s *Server) handleModel(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, s.model.Manifest())
}

func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defer func() { s.latency.Observe(time.Since(start).Seconds()) }()

	var row dataset.ProductData
	if err := s.decode(w, r, MaxBodyBytes, &row); err != nil {
		s.fail(w, r, decodeStatus(err), err, 1)
		return
	}
	if err := s.validate.Struct(row); err != nil {
		s.fail(w, r, http.StatusUnprocessableEntity, err, 1)
		return
	}

	pred, err := s.model.PredictOne(row)
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, errors.Wrap(err, "predict"), 1)
		return
	}
	s.predictions.WithLabelValues("ok").Inc()
	render.JSON(w, r, pred)
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defer func() { s.latency.Observe(time.Since(start).Seconds()) }()

	var req BatchRequest
	if err := s.decode(w, r, MaxBatchBytes, &req); err != nil {
		s.fail(w, r, decodeStatus(err), err, 1)
		return
	}
	if len(req.Rows) > MaxBatchSize {
		s.fail(w, r, http.StatusRequestEntityTooLarge,
			errors.Newf("batch of %d rows exceeds the limit of %d", len(req.Rows), MaxBatchSize), len(req.Rows))
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.fail(w, r, http.StatusUnprocessableEntity, err, max(1, len(req.Rows)))
		return
	}

	scores, err := s.model.Predict(dataset.FromProducts(req.Rows))
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, errors.Wrap(err, "predict batch"), len(req.Rows))
		return
	}
	s.predictions.WithLabelValues("ok").Add(float64(len(scores)))
	render.JSON(w, r, BatchResponse{Scores: scores})
}

// decode reads at most limit bytes of JSON body into v.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, limit int64, v any) error {
	if err := render.DecodeJSON(http.MaxBytesReader(w, r.Body, limit), v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return errors.Wrapf(err, "request body exceeds %d bytes", limit)
		}
		return errors.Wrap(err, "invalid JSON body")
	}
	return nil
}

func decodeStatus(err error) int {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, status int, err error, rows int) {
	s.predictions.WithLabelValues("error").Add(float64(rows))

	resp := ErrorResponse{
		Error:     err.Error(),
		RequestID: middleware.GetReqID(r.Context()),
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		resp.Error = "validation failed"
		resp.Fields = make(map[string]string, len(verrs))
		for _, fe := range verrs {
			resp.Fields[fe.Namespace()] = fe.Tag()
		}
	}

	if status >= http.StatusInternalServerError {
		s.logger.Error("Forecast failed", err, log.OperationKey, log.OperationPredict)
	} else {
		s.logger.Debug("Forecast rejected", "status", status, "reason", resp.Error)
	}
	render.Status(r, status)
	render.JSON(w, r, resp)
}
