package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/banshee-data/counting-scale/internal/httputil"
	"github.com/banshee-data/counting-scale/internal/scale"
)

// productionRequest accepts one of: a single production config, an inline
// list of weight groups, or the name of a stored configuration.
type productionRequest struct {
	scale.ProductionConfig
	Groups        []scale.WeightGroup `json:"groups,omitempty"`
	Configuration string              `json:"configuration,omitempty"`
}

func (s *Server) handleProduction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	var req productionRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	groups := req.Groups
	if req.Configuration != "" {
		stored, err := s.store.Get(req.Configuration)
		if err != nil {
			writeError(w, err)
			return
		}
		if groups, err = stored.Production(); err != nil {
			writeError(w, err)
			return
		}
	}

	if len(groups) > 0 {
		snap, err := s.sim.ProduceGroups(r.Context(), groups)
		if err != nil {
			writeError(w, err)
			return
		}
		httputil.WriteJSONOK(w, snap)
		return
	}

	snap, err := s.sim.Produce(r.Context(), req.ProductionConfig)
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteJSONOK(w, snap)
}

func (s *Server) handleCalibrate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	var req struct {
		ReferenceCount *int `json:"reference_count"`
	}
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	n := s.defaults.ReferenceCount
	if req.ReferenceCount != nil {
		n = *req.ReferenceCount
	}

	snap, err := s.sim.Calibrate(r.Context(), n)
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteJSONOK(w, snap)
}

func (s *Server) handleWeigh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	var req struct {
		SampleSize *int `json:"sample_size"`
	}
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	n := s.defaults.SampleSize
	if req.SampleSize != nil {
		n = *req.SampleSize
	}

	snap, err := s.sim.Weigh(r.Context(), n)
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteJSONOK(w, snap)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	snap, err := s.sim.Reset()
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteJSONOK(w, snap)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, s.sim.Snapshot())
}

func (s *Server) handleDistribution(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, s.sim.Distribution())
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	if s.runs == nil {
		httputil.NotFound(w, "run history requires the sqlite store backend")
		return
	}

	limit := 100
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed < 1 {
			httputil.BadRequest(w, "Invalid 'limit' parameter")
			return
		}
		limit = parsed
	}

	runs, err := s.runs.ListRuns(limit)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("Failed to retrieve runs: %v", err))
		return
	}
	httputil.WriteJSONOK(w, runs)
}
