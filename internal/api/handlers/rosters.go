package handlers

import (
	"log"
	"manifest-service/internal/api/dto"
	"manifest-service/internal/domain"
	"manifest-service/internal/ports"
	"net/http"
	"strings"
)

// RosterHandler exposes the staff and carrier-agent name lists. Adding to
// the staff roster needs a WFS session.
type RosterHandler struct {
	Roster   ports.RosterStore
	Feed     ports.ChangeFeed
	Registry *SessionRegistry
}

func (h *RosterHandler) Agents(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	names, err := h.Roster.ListAgentNames(r.Context())
	if err != nil {
		log.Printf("list agents failed: %v", err)
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, r, http.StatusOK, dto.NamesResponse{Names: names})
}

func (h *RosterHandler) Operators(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		names, err := h.Roster.ListOperatorNames(r.Context())
		if err != nil {
			log.Printf("list operators failed: %v", err)
			writeError(w, r, http.StatusInternalServerError, "internal server error")
			return
		}
		writeJSON(w, r, http.StatusOK, dto.NamesResponse{Names: names})

	case http.MethodPost:
		st, ok := h.Registry.lookup(w, r)
		if !ok {
			return
		}
		if st.Session().Role != domain.RoleWFS {
			writeError(w, r, http.StatusForbidden, "only staff sessions can add operators")
			return
		}

		var req dto.AddOperatorRequest
		if !decodeBody(w, r, &req) {
			return
		}
		name := strings.TrimSpace(req.Name)
		if name == "" {
			writeError(w, r, http.StatusBadRequest, "name is required")
			return
		}
		if err := h.Roster.AddOperator(r.Context(), name); err != nil {
			log.Printf("add operator failed: %v", err)
			writeError(w, r, http.StatusInternalServerError, "internal server error")
			return
		}
		if h.Feed != nil {
			if err := h.Feed.Publish(r.Context(), ports.ChangeEvent{Table: ports.TableStaffRoster}); err != nil {
				log.Printf("change feed publish failed table=%s err=%v", ports.TableStaffRoster, err)
			}
		}
		writeJSON(w, r, http.StatusCreated, map[string]string{"name": name})

	default:
		w.Header().Set("Allow", "GET, POST")
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
	}
}
