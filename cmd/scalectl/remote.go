package main

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/banshee-data/counting-scale/internal/configstore"
	"github.com/banshee-data/counting-scale/internal/httputil"
)

// remoteStore is a configstore.Store backed by a running scale-server.
type remoteStore struct {
	client httputil.HTTPClient
	base   string
}

func newRemoteStore(client httputil.HTTPClient, base string) *remoteStore {
	return &remoteStore{client: client, base: strings.TrimRight(base, "/")}
}

func (s *remoteStore) configURL(name string) string {
	u := s.base + "/api/configurations"
	if name != "" {
		u += "/" + url.PathEscape(name)
	}
	return u
}

func (s *remoteStore) List() ([]configstore.StoredConfig, error) {
	var configs []configstore.StoredConfig
	if err := httputil.DoJSON(s.client, http.MethodGet, s.configURL(""), nil, &configs); err != nil {
		return nil, err
	}
	return configs, nil
}

func (s *remoteStore) Get(name string) (configstore.StoredConfig, error) {
	var cfg configstore.StoredConfig
	err := httputil.DoJSON(s.client, http.MethodGet, s.configURL(name), nil, &cfg)
	var se *httputil.StatusError
	if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
		return configstore.StoredConfig{}, fmt.Errorf("%q: %w", name, configstore.ErrNotFound)
	}
	return cfg, err
}

func (s *remoteStore) Save(cfg configstore.StoredConfig) (configstore.StoredConfig, error) {
	if err := cfg.Validate(); err != nil {
		return configstore.StoredConfig{}, err
	}
	var saved configstore.StoredConfig
	if err := httputil.DoJSON(s.client, http.MethodPost, s.configURL(""), cfg, &saved); err != nil {
		return configstore.StoredConfig{}, err
	}
	return saved, nil
}

func (s *remoteStore) Delete(name string) error {
	return httputil.DoJSON(s.client, http.MethodDelete, s.configURL(name), nil, nil)
}
