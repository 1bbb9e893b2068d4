package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"zentry/adapters/airdrop"
	"zentry/adapters/gate"
	"zentry/adapters/voting"
	"zentry/engine/library"
	"zentry/reputation"
	"zentry/signals"
)

// errBadRequest marks request errors the client can fix.
var errBadRequest = errors.New("bad request")

type Handler struct {
	Service  *reputation.Service
	Gates    *gate.Registry
	Votes    *voting.Registry
	Airdrops *airdrop.Registry
	Metrics  prometheus.Gatherer
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok": true,
	})
}

func (h *Handler) InitializeProfile(w http.ResponseWriter, r *http.Request) {
	report, err := h.Service.Initialize(r.Context(), r.PathValue("address"))
	respond(w, http.StatusOK, report, err)
}

func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	p, err := h.Service.Profile(r.Context(), r.PathValue("address"))
	respond(w, http.StatusOK, p, err)
}

func (h *Handler) UpdateScore(w http.ResponseWriter, r *http.Request) {
	report, err := h.Service.UpdateScore(r.Context(), r.PathValue("address"))
	respond(w, http.StatusOK, report, err)
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	history, err := h.Service.History(r.Context(), r.PathValue("address"))
	respond(w, http.StatusOK, history, err)
}

func (h *Handler) Proof(w http.ResponseWriter, r *http.Request) {
	proof, err := h.Service.Proof(r.Context(), r.PathValue("address"))
	respond(w, http.StatusOK, proof, err)
}

func (h *Handler) Explain(w http.ResponseWriter, r *http.Request) {
	e, err := h.Service.Explain(r.Context(), r.PathValue("address"))
	respond(w, http.StatusOK, e, err)
}

func (h *Handler) ExplainText(w http.ResponseWriter, r *http.Request) {
	text, err := h.Service.ExplainText(r.Context(), r.PathValue("address"), r.URL.Query().Get("q"))
	respond(w, http.StatusOK, map[string]string{"explanation": text}, err)
}

func (h *Handler) Recommendations(w http.ResponseWriter, r *http.Request) {
	recs, err := h.Service.Recommendations(r.Context(), r.PathValue("address"))
	respond(w, http.StatusOK, recs, err)
}

func (h *Handler) Activities(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	kind, err := signals.ParseActivityType(query.Get("type"))
	if err != nil {
		writeError(w, fmt.Errorf("%w: %s", errBadRequest, err))
		return
	}
	var limit int
	if raw := query.Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			writeError(w, fmt.Errorf("%w: limit %q", errBadRequest, raw))
			return
		}
	}
	activities, err := h.Service.Activities(r.Context(), r.PathValue("address"), kind, limit)
	respond(w, http.StatusOK, activities, err)
}

type identityRequest struct {
	Identifier string `json:"identifier"`
}

func (h *Handler) LinkIdentity(w http.ResponseWriter, r *http.Request) {
	var req identityRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if strings.TrimSpace(req.Identifier) == "" {
		writeError(w, fmt.Errorf("%w: identifier required", errBadRequest))
		return
	}
	p, err := h.Service.Link(r.Context(), r.PathValue("address"), r.PathValue("source"), req.Identifier)
	respond(w, http.StatusOK, p, err)
}

func (h *Handler) VerifyIdentity(w http.ResponseWriter, r *http.Request) {
	var req identityRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	res, err := h.Service.VerifyIdentity(r.Context(), r.PathValue("address"), r.PathValue("source"), req.Identifier)
	respond(w, http.StatusOK, res, err)
}

func (h *Handler) UnlinkIdentity(w http.ResponseWriter, r *http.Request) {
	p, err := h.Service.Unlink(r.Context(), r.PathValue("address"), r.PathValue("source"))
	respond(w, http.StatusOK, p, err)
}

func (h *Handler) ExportCredential(w http.ResponseWriter, r *http.Request) {
	export, err := h.Service.ExportCredential(r.Context(), r.PathValue("address"))
	if err == nil && export == nil {
		err = fmt.Errorf("profile of %s: %w", r.PathValue("address"), library.ErrNotFound)
	}
	respond(w, http.StatusOK, export, err)
}

type credentialRequest struct {
	Credential string `json:"credential"`
}

func (h *Handler) VerifyCredential(w http.ResponseWriter, r *http.Request) {
	var req credentialRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	v, err := h.Service.VerifyCredential(r.Context(), req.Credential)
	if err != nil {
		err = fmt.Errorf("%w: %s", errBadRequest, err)
	}
	respond(w, http.StatusOK, v, err)
}

func decode(r *http.Request, v interface{}) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: invalid body", errBadRequest)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: invalid json", errBadRequest)
	}
	return nil
}

func respond(w http.ResponseWriter, status int, payload interface{}, err error) {
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, status, payload)
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, library.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errBadRequest),
		errors.Is(err, library.ErrInvalidAddress),
		errors.Is(err, library.ErrUnsupportedSource),
		errors.Is(err, gate.ErrInvalidThreshold),
		errors.Is(err, gate.ErrInvalidComponent):
		return http.StatusBadRequest
	case errors.Is(err, gate.ErrDuplicateGate),
		errors.Is(err, voting.ErrNotClosed),
		errors.Is(err, voting.ErrAlreadyExecuted):
		return http.StatusConflict
	case errors.Is(err, library.ErrAllSourcesUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, err error) {
	status := statusOf(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		library.LogCLI(err, 2)
		msg = "internal error"
	}
	writeJSON(w, status, errorPayload(msg))
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func errorPayload(msg string) map[string]interface{} {
	return map[string]interface{}{"ok": false, "error": msg}
}
