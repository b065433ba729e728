package handlers

import (
	"manifest-service/internal/api/dto"
	"manifest-service/internal/services"
	"net/http"
)

// WorklistHandler serves the working list of the caller's selected view.
type WorklistHandler struct {
	Registry   *SessionRegistry
	Reconciler *services.Reconciler
}

// List selects a view (and operator) and returns its visible items.
func (h *WorklistHandler) List(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	st, ok := h.Registry.lookup(w, r)
	if !ok {
		return
	}

	view, ok := services.ParseView(r.URL.Query().Get("view"))
	if !ok {
		writeError(w, r, http.StatusBadRequest, "view must be one of start, finish, review_pending, review_completed")
		return
	}

	items, err := h.Reconciler.Load(r.Context(), st, view, r.URL.Query().Get("operator"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, worklistResponse(st, items))
}

// Refresh re-runs the loader of the current view.
func (h *WorklistHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	st, ok := h.Registry.lookup(w, r)
	if !ok {
		return
	}

	items, err := h.Reconciler.Refresh(r.Context(), st)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, worklistResponse(st, items))
}

func worklistResponse(st *services.AppState, items []services.Item) dto.WorklistResponse {
	view, operator := st.Selection()
	res := dto.WorklistResponse{
		View:     string(view),
		Operator: operator,
		Names:    st.KnownNames(),
		Items:    make([]dto.WorkItemResponse, 0, len(items)),
	}
	if view == services.ViewFinish {
		res.Operators = st.OperatorChoices()
	}
	for _, it := range items {
		res.Items = append(res.Items, dto.WorkItemResponse{
			ManifestID: it.ManifestID,
			LoadA:      it.Loads.A,
			LoadB:      it.Loads.B,
		})
	}
	return res
}
