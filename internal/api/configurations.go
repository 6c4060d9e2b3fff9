package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/banshee-data/counting-scale/internal/configstore"
	"github.com/banshee-data/counting-scale/internal/httputil"
)

// handleConfigurations lists (GET) or upserts (POST) stored configurations.
func (s *Server) handleConfigurations(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		configs, err := s.store.List()
		if err != nil {
			httputil.InternalServerError(w, fmt.Sprintf("Failed to load configurations: %v", err))
			return
		}
		httputil.WriteJSONOK(w, configs)

	case http.MethodPost:
		var cfg configstore.StoredConfig
		if err := httputil.ReadJSON(r, &cfg); err != nil {
			httputil.BadRequest(w, err.Error())
			return
		}
		saved, err := s.store.Save(cfg)
		if err != nil {
			writeError(w, err)
			return
		}
		httputil.WriteJSONOK(w, saved)

	default:
		httputil.MethodNotAllowed(w)
	}
}

// handleConfiguration serves GET and DELETE on /api/configurations/{name}.
func (s *Server) handleConfiguration(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/api/configurations/")
	if name == "" {
		httputil.BadRequest(w, "configuration name is required")
		return
	}

	switch r.Method {
	case http.MethodGet:
		cfg, err := s.store.Get(name)
		if err != nil {
			writeError(w, err)
			return
		}
		httputil.WriteJSONOK(w, cfg)

	case http.MethodDelete:
		if err := s.store.Delete(name); err != nil {
			httputil.InternalServerError(w, fmt.Sprintf("Failed to delete configuration: %v", err))
			return
		}
		httputil.WriteJSONOK(w, map[string]bool{"success": true})

	default:
		httputil.MethodNotAllowed(w)
	}
}
