package idpserver

import (
	"encoding/json"
	"net/http"
)

// HandleHome reports the service identity and its endpoints.
func (s *Server) HandleHome(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(struct { //nolint:errcheck
		Service  string            `json:"service"`
		EntityID string            `json:"entityId"`
		Links    map[string]string `json:"links"`
	}{
		Service:  "mock-idp",
		EntityID: s.cfg.IDPEntityID,
		Links: map[string]string{
			"metadata": "/saml/metadata",
			"login":    "/saml/login",
			"scim":     "/scim/v2/Users",
			"sync":     "/admin/sync-users",
		},
	})
}
