package handlers

import (
	"context"
	"manifest-service/internal/api/dto"
	"manifest-service/internal/domain"
	"manifest-service/internal/services"
	"net/http"
)

// SubmissionHandler accepts single and batch transition requests.
type SubmissionHandler struct {
	Registry   *SessionRegistry
	Reconciler *services.Reconciler
	Batch      *services.BatchProcessor
}

func (h *SubmissionHandler) Submit(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	st, ok := h.Registry.lookup(w, r)
	if !ok {
		return
	}

	var req dto.SubmissionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	sub := services.Submission{
		Action:     domain.Action(req.Action),
		ManifestID: req.ManifestID,
		ActorName:  req.ActorName,
	}
	if a, ok := domain.ParseAction(req.Action); ok {
		sub.Action = a
	}
	if req.Observation != nil {
		sub.Observation = &domain.Observation{
			LoadA: req.Observation.LoadA,
			LoadB: req.Observation.LoadB,
			Text:  req.Observation.Text,
		}
	}

	out := h.Reconciler.SubmitInline(context.WithoutCancel(r.Context()), st, sub)
	writeJSON(w, r, statusForOutcome(out), out)
}

func (h *SubmissionHandler) SubmitBatch(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	st, ok := h.Registry.lookup(w, r)
	if !ok {
		return
	}

	var req dto.BatchRequest
	if !decodeBody(w, r, &req) {
		return
	}

	action, ok := domain.ParseAction(req.Action)
	if !ok {
		writeError(w, r, http.StatusBadRequest, "select a valid action")
		return
	}

	out := h.Batch.ProcessBatch(context.WithoutCancel(r.Context()), st, action, req.ActorName, req.ManifestIDs)
	writeJSON(w, r, statusForOutcome(out.Outcome), out)
}
