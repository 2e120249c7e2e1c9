package web

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/dopejs/varman/internal/events"
	"github.com/dopejs/varman/internal/variable"
)

const (
	headerOrgID  = "X-Org-Id"
	headerUserID = "X-User-Id"
)

const maxBodySize = 1 << 20

// caller returns the org and user a request acts for.
func (s *Server) caller(r *http.Request) (orgID, userID string) {
	orgID = strings.TrimSpace(r.Header.Get(headerOrgID))
	if orgID == "" {
		orgID = s.orgID
	}
	return orgID, strings.TrimSpace(r.Header.Get(headerUserID))
}

// handleVariables handles GET (list) and POST (create) on /api/variables.
func (s *Server) handleVariables(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listVariables(w, r)
	case http.MethodPost:
		s.createVariable(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleVariable handles PATCH and DELETE on /api/variables/uid/{uid}.
func (s *Server) handleVariable(w http.ResponseWriter, r *http.Request) {
	uid := strings.TrimPrefix(r.URL.Path, "/api/variables/uid/")
	if uid == "" || strings.Contains(uid, "/") {
		writeError(w, http.StatusNotFound, "variable not found")
		return
	}
	switch r.Method {
	case http.MethodPatch:
		s.updateVariable(w, r, uid)
	case http.MethodDelete:
		s.deleteVariable(w, r, uid)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) listVariables(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.List(r.URL.Query().Get("scope_id")))
}

func (s *Server) createVariable(w http.ResponseWriter, r *http.Request) {
	orgID, userID := s.caller(r)
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	r.Body.Close()
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	q := r.URL.Query()
	in := variable.Variable{
		ID:          q.Get("id"),
		Name:        q.Get("name"),
		Description: q.Get("description"),
		Value:       q.Get("value"),
		Type:        q.Get("type"),
		Scope:       q.Get("scope"),
		ScopeID:     q.Get("scope_id"),
		Props:       string(body),
	}
	created, err := s.store.Create(in, orgID, userID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, errNameMissing) {
			status = http.StatusBadRequest
		}
		s.record(r, status, events.ActionCreated, in, err)
		writeError(w, status, err.Error())
		return
	}

	s.record(r, http.StatusOK, events.ActionCreated, created, nil)
	s.metrics.mutations.WithLabelValues(events.ActionCreated).Inc()
	s.publish(r.Context(), events.Event{
		Action: events.ActionCreated, UID: created.UID, Name: created.Name,
		ScopeID: created.ScopeID, OrgID: orgID, UserID: userID,
	})
	writeJSON(w, http.StatusOK, created)
}

func (s *Server) updateVariable(w http.ResponseWriter, r *http.Request, uid string) {
	orgID, userID := s.caller(r)
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	r.Body.Close()
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	updated, err := s.store.Update(uid, body, userID)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, errNotFound):
			status = http.StatusNotFound
		case errors.Is(err, errInvalidJSON):
			status = http.StatusBadRequest
		}
		s.record(r, status, events.ActionUpdated, variable.Variable{UID: uid}, err)
		writeError(w, status, err.Error())
		return
	}

	s.record(r, http.StatusOK, events.ActionUpdated, updated, nil)
	s.metrics.mutations.WithLabelValues(events.ActionUpdated).Inc()
	s.publish(r.Context(), events.Event{
		Action: events.ActionUpdated, UID: updated.UID, Name: updated.Name,
		ScopeID: updated.ScopeID, OrgID: orgID, UserID: userID,
	})
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated", "uid": updated.UID})
}

func (s *Server) deleteVariable(w http.ResponseWriter, r *http.Request, uid string) {
	orgID, userID := s.caller(r)
	removed, err := s.store.Delete(uid)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, errNotFound) {
			status = http.StatusNotFound
		}
		s.record(r, status, events.ActionDeleted, variable.Variable{UID: uid}, err)
		writeError(w, status, err.Error())
		return
	}

	s.record(r, http.StatusOK, events.ActionDeleted, removed, nil)
	s.metrics.mutations.WithLabelValues(events.ActionDeleted).Inc()
	s.publish(r.Context(), events.Event{
		Action: events.ActionDeleted, UID: removed.UID, Name: removed.Name,
		ScopeID: removed.ScopeID, OrgID: orgID, UserID: userID,
	})
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "uid": uid})
}

// record writes a mutation to the audit log.
func (s *Server) record(r *http.Request, status int, action string, v variable.Variable, err error) {
	orgID, userID := s.caller(r)
	e := AuditEntry{
		Action:     action,
		UID:        v.UID,
		Name:       v.Name,
		OrgID:      orgID,
		UserID:     userID,
		Method:     r.Method,
		Path:       r.URL.Path,
		StatusCode: status,
		Message:    "variable " + action,
	}
	if err != nil {
		e.Message = action + " failed"
		e.Error = err.Error()
	}
	s.audit.Log(e)
}

// handleAudit returns recent audit entries, newest first.
func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	q := r.URL.Query()
	filter := AuditFilter{
		Action:     q.Get("action"),
		UserID:     q.Get("user_id"),
		ErrorsOnly: q.Get("errors_only") == "true",
	}
	if l := q.Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		filter.Limit = n
	}
	writeJSON(w, http.StatusOK, s.audit.Entries(filter))
}
