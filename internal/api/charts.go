package api

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/banshee-data/counting-scale/internal/charts"
	"github.com/banshee-data/counting-scale/internal/httputil"
)

func (s *Server) handleDistributionChart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	snap := s.sim.Snapshot()
	subtitle := "no population produced"
	if snap.PopulationSize > 0 {
		subtitle = fmt.Sprintf("population=%s parts=%d", snap.PopulationID, snap.PopulationSize)
	}

	var buf bytes.Buffer
	if err := charts.RenderDistribution(&buf, s.sim.Distribution(), subtitle); err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	httputil.WriteHTML(w, buf.Bytes())
}

// handleDistributionPNG renders the current population as a PNG histogram.
// The optional bins query parameter sets the bin count.
func (s *Server) handleDistributionPNG(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	bins := 40
	if v := r.URL.Query().Get("bins"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 1000 {
			httputil.BadRequest(w, "bins must be an integer in [1, 1000]")
			return
		}
		bins = n
	}

	snap := s.sim.Snapshot()
	title := fmt.Sprintf("population %s (%d parts)", snap.PopulationID, snap.PopulationSize)

	var buf bytes.Buffer
	err := charts.WriteHistogramPNG(&buf, s.sim.Weights(), bins, title)
	if errors.Is(err, charts.ErrNoData) {
		httputil.NotFound(w, "no population produced")
		return
	}
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	w.Header().Set("Content-Type", "image/png")
	if _, err := w.Write(buf.Bytes()); err != nil {
		log.Printf("failed to write png response: %v", err)
	}
}

func (s *Server) handleErrorsChart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	if s.runs == nil {
		httputil.NotFound(w, "run history requires the sqlite store backend")
		return
	}

	runs, err := s.runs.ListRuns(100)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("Failed to retrieve runs: %v", err))
		return
	}

	var buf bytes.Buffer
	if err := charts.RenderErrors(&buf, runs); err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	httputil.WriteHTML(w, buf.Bytes())
}
