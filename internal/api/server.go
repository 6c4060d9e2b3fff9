// Package api serves the configuration store and the scale simulator over HTTP.
package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/banshee-data/counting-scale/internal/configstore"
	"github.com/banshee-data/counting-scale/internal/db"
	"github.com/banshee-data/counting-scale/internal/httputil"
	"github.com/banshee-data/counting-scale/internal/scale"
	"github.com/banshee-data/counting-scale/internal/simulation"
	"github.com/banshee-data/counting-scale/internal/version"
)

// ANSI escape codes for request logging
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// RunLister provides weighing-run history. It is only available with the
// sqlite store backend.
type RunLister interface {
	ListRuns(limit int) ([]db.WeighingRun, error)
}

// Defaults fill in request fields the client leaves out.
type Defaults struct {
	ReferenceCount int
	SampleSize     int
}

// Options wires a Server. Runs may be nil.
type Options struct {
	Store     configstore.Store
	Simulator *simulation.Simulator
	Runs      RunLister
	Defaults  Defaults
}

type Server struct {
	store    configstore.Store
	sim      *simulation.Simulator
	runs     RunLister
	defaults Defaults
}

func NewServer(opts Options) *Server {
	d := opts.Defaults
	if d.ReferenceCount < 1 {
		d.ReferenceCount = 50
	}
	if d.SampleSize < 1 {
		d.SampleSize = 200
	}
	return &Server{
		store:    opts.Store,
		sim:      opts.Simulator,
		runs:     opts.Runs,
		defaults: d,
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/configurations", s.handleConfigurations)
	mux.HandleFunc("/api/configurations/", s.handleConfiguration)
	mux.HandleFunc("/api/production", s.handleProduction)
	mux.HandleFunc("/api/calibrate", s.handleCalibrate)
	mux.HandleFunc("/api/weigh", s.handleWeigh)
	mux.HandleFunc("/api/reset", s.handleReset)
	mux.HandleFunc("/api/state", s.handleState)
	mux.HandleFunc("/api/distribution", s.handleDistribution)
	mux.HandleFunc("/api/runs", s.handleRuns)
	mux.HandleFunc("/api/version", s.handleVersion)
	mux.HandleFunc("/charts/distribution", s.handleDistributionChart)
	mux.HandleFunc("/charts/distribution.png", s.handleDistributionPNG)
	mux.HandleFunc("/charts/errors", s.handleErrorsChart)
	return mux
}

// writeError maps domain errors onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, scale.ErrCalibrationMissing),
		errors.Is(err, simulation.ErrBusy):
		httputil.Conflict(w, err.Error())
	case errors.Is(err, scale.ErrInvalidConfiguration),
		errors.Is(err, scale.ErrSampleSizeOutOfRange),
		errors.Is(err, scale.ErrEmptySample),
		errors.Is(err, configstore.ErrInvalidName):
		httputil.BadRequest(w, err.Error())
	case errors.Is(err, configstore.ErrNotFound):
		httputil.NotFound(w, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		httputil.WriteJSONError(w, http.StatusServiceUnavailable, err.Error())
	default:
		httputil.InternalServerError(w, err.Error())
	}
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, version.Current())
}
