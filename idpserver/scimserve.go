package idpserver

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/zenazn/goji/web"

	"github.com/mockidp/mockidp/scim"
)

func writeSCIMJSON(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/scim+json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body)
}

func writeSCIMError(w http.ResponseWriter, code int, detail string) {
	e := scim.NewError(detail)
	e.Status = strconv.Itoa(code)
	writeSCIMJSON(w, code, e)
}

// requireSCIMToken rejects requests whose bearer token does not match
// the configured SCIM token.
func (s *Server) requireSCIMToken(h web.HandlerFunc) web.HandlerFunc {
	return func(c web.C, w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		token := strings.TrimPrefix(auth, "Bearer ")
		// token == auth means the Bearer prefix was missing entirely.
		if s.cfg.SCIMToken == "" || token == auth || token != s.cfg.SCIMToken {
			writeSCIMError(w, http.StatusUnauthorized, "Invalid or missing bearer token")
			return
		}
		h(c, w, r)
	}
}

func (s *Server) scimUsers() []scim.User {
	users := s.dir.All()
	resources := make([]scim.User, 0, len(users))
	for _, u := range users {
		res := scim.MapUser(u)
		res.ID = u.ID
		resources = append(resources, res)
	}
	return resources
}

// HandleListUsers serves the directory as a SCIM list response.
// startIndex is 1-based per the SCIM paging rules.
func (s *Server) HandleListUsers(c web.C, w http.ResponseWriter, r *http.Request) {
	resources := s.scimUsers()
	total := len(resources)

	startIndex := 1
	if v := r.URL.Query().Get("startIndex"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			startIndex = n
		}
	}
	count := total
	if v := r.URL.Query().Get("count"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			count = n
		}
	}

	offset := startIndex - 1
	if offset > total {
		offset = total
	}
	end := offset + count
	if end > total {
		end = total
	}

	writeSCIMJSON(w, http.StatusOK, scim.ListResponse{
		Schemas:      []string{scim.ListResponseSchema},
		TotalResults: total,
		StartIndex:   startIndex,
		ItemsPerPage: end - offset,
		Resources:    resources[offset:end],
	})
}

// HandleSearchUsers answers a .search request with the full user list.
// Filter expressions are not evaluated.
func (s *Server) HandleSearchUsers(c web.C, w http.ResponseWriter, r *http.Request) {
	resources := s.scimUsers()
	writeSCIMJSON(w, http.StatusOK, scim.ListResponse{
		Schemas:      []string{scim.ListResponseSchema},
		TotalResults: len(resources),
		StartIndex:   1,
		ItemsPerPage: len(resources),
		Resources:    resources,
	})
}

func (s *Server) HandleGetUser(c web.C, w http.ResponseWriter, r *http.Request) {
	u, ok := s.dir.FindByID(c.URLParams["id"])
	if !ok {
		writeSCIMError(w, http.StatusNotFound, "User not found")
		return
	}
	res := scim.MapUser(u)
	res.ID = u.ID
	writeSCIMJSON(w, http.StatusOK, res)
}

type syncResponse struct {
	Success bool             `json:"success"`
	Message string           `json:"message"`
	Results *scim.SyncReport `json:"results,omitempty"`
}

// HandleSync pushes every directory user to the remote SCIM service.
func (s *Server) HandleSync(c web.C, w http.ResponseWriter, r *http.Request) {
	if s.sync == nil {
		writeSCIMJSON(w, http.StatusServiceUnavailable, syncResponse{
			Success: false,
			Message: "SCIM sync is not configured",
		})
		return
	}

	report, err := s.sync.Reconcile(r.Context(), s.dir.All())
	if err != nil {
		writeSCIMJSON(w, http.StatusInternalServerError, syncResponse{
			Success: false,
			Message: err.Error(),
			Results: report,
		})
		return
	}

	msg := "All users synced"
	if report.Failed > 0 {
		msg = "Sync completed with failures"
	}
	writeSCIMJSON(w, http.StatusOK, syncResponse{
		Success: report.Failed == 0,
		Message: msg,
		Results: report,
	})
}
