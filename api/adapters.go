package api

import (
	"fmt"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"time"

	"zentry/adapters/gate"
	"zentry/engine/library"
)

func pathID(r *http.Request) (uint64, error) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%q: %w", r.PathValue("id"), library.ErrNotFound)
	}
	return id, nil
}

func pathAddress(r *http.Request) (library.Account, error) {
	return library.NormalizeAddress(r.PathValue("address"))
}

// creation errors from the registries are input validation failures
func invalid(err error) error {
	if err == nil || statusOf(err) != http.StatusInternalServerError {
		return err
	}
	return fmt.Errorf("%w: %s", errBadRequest, err)
}

type gateRequest struct {
	Name               string             `json:"name"`
	OverallThreshold   int                `json:"overallThreshold"`
	ComponentType      gate.ComponentType `json:"componentType"`
	ComponentThreshold int                `json:"componentThreshold"`
}

func (h *Handler) ListGates(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Gates.Gates())
}

func (h *Handler) CreateGate(w http.ResponseWriter, r *http.Request) {
	var req gateRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	id, err := h.Gates.CreateGate(req.Name, req.OverallThreshold, req.ComponentType, req.ComponentThreshold)
	respond(w, http.StatusCreated, map[string]string{"gateId": id}, invalid(err))
}

func (h *Handler) GetGate(w http.ResponseWriter, r *http.Request) {
	g, err := h.Gates.GetGate(r.PathValue("id"))
	respond(w, http.StatusOK, g, err)
}

func (h *Handler) UpdateGate(w http.ResponseWriter, r *http.Request) {
	var req gateRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	id := r.PathValue("id")
	if err := h.Gates.UpdateGate(id, req.OverallThreshold, req.ComponentType, req.ComponentThreshold); err != nil {
		writeError(w, err)
		return
	}
	g, err := h.Gates.GetGate(id)
	respond(w, http.StatusOK, g, err)
}

type statusRequest struct {
	Active bool `json:"active"`
}

func (h *Handler) SetGateStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	id := r.PathValue("id")
	if err := h.Gates.SetGateStatus(id, req.Active); err != nil {
		writeError(w, err)
		return
	}
	g, err := h.Gates.GetGate(id)
	respond(w, http.StatusOK, g, err)
}

func (h *Handler) CheckAccess(w http.ResponseWriter, r *http.Request) {
	address, err := pathAddress(r)
	if err != nil {
		writeError(w, err)
		return
	}
	access, err := h.Gates.CheckAccess(r.Context(), address, r.PathValue("id"))
	respond(w, http.StatusOK, access, err)
}

func pathThreshold(r *http.Request) (int, error) {
	threshold, err := strconv.Atoi(r.PathValue("threshold"))
	if err != nil {
		return 0, fmt.Errorf("%w: threshold %q", errBadRequest, r.PathValue("threshold"))
	}
	return threshold, nil
}

func (h *Handler) VerifyReputationThreshold(w http.ResponseWriter, r *http.Request) {
	address, err := pathAddress(r)
	if err != nil {
		writeError(w, err)
		return
	}
	threshold, err := pathThreshold(r)
	if err != nil {
		writeError(w, err)
		return
	}
	meets, err := h.Gates.VerifyReputationThreshold(r.Context(), address, threshold)
	respond(w, http.StatusOK, map[string]bool{"meetsThreshold": meets}, err)
}

func (h *Handler) VerifyComponentThreshold(w http.ResponseWriter, r *http.Request) {
	address, err := pathAddress(r)
	if err != nil {
		writeError(w, err)
		return
	}
	threshold, err := pathThreshold(r)
	if err != nil {
		writeError(w, err)
		return
	}
	component, err := strconv.Atoi(r.PathValue("component"))
	if err != nil {
		writeError(w, fmt.Errorf("%w: component %q", gate.ErrInvalidComponent, r.PathValue("component")))
		return
	}
	meets, err := h.Gates.VerifyComponentThreshold(r.Context(), address, gate.ComponentType(component), threshold)
	respond(w, http.StatusOK, map[string]bool{"meetsThreshold": meets}, err)
}

type proposalRequest struct {
	Creator     string    `json:"creator"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	StartTime   time.Time `json:"startTime"`
	Duration    string    `json:"duration"`
}

type proposalView struct {
	Proposal    interface{} `json:"proposal"`
	State       string      `json:"state"`
	ForPermille int64       `json:"forPermille"`
}

func (h *Handler) ListProposals(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Votes.Proposals())
}

func (h *Handler) CreateProposal(w http.ResponseWriter, r *http.Request) {
	var req proposalRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	creator, err := library.NormalizeAddress(req.Creator)
	if err != nil {
		writeError(w, err)
		return
	}
	duration, err := time.ParseDuration(req.Duration)
	if err != nil {
		writeError(w, fmt.Errorf("%w: duration %q", errBadRequest, req.Duration))
		return
	}
	id, err := h.Votes.CreateProposal(creator, req.Title, req.Description, req.StartTime, duration)
	respond(w, http.StatusCreated, map[string]uint64{"id": id}, invalid(err))
}

func (h *Handler) GetProposal(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	p, state, err := h.Votes.GetProposal(id)
	respond(w, http.StatusOK, proposalView{Proposal: p, State: string(state), ForPermille: p.ForPermille()}, err)
}

type voteRequest struct {
	Voter   string `json:"voter"`
	Support bool   `json:"support"`
}

func (h *Handler) CastVote(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req voteRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	voter, err := library.NormalizeAddress(req.Voter)
	if err != nil {
		writeError(w, err)
		return
	}
	res, err := h.Votes.CastVote(r.Context(), id, voter, req.Support)
	respond(w, http.StatusOK, res, err)
}

func (h *Handler) GetVote(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	address, err := pathAddress(r)
	if err != nil {
		writeError(w, err)
		return
	}
	v, err := h.Votes.GetVote(id, address)
	respond(w, http.StatusOK, v, err)
}

func (h *Handler) ExecuteProposal(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	outcome, err := h.Votes.ExecuteProposal(id)
	respond(w, http.StatusOK, map[string]string{"outcome": string(outcome)}, err)
}

func (h *Handler) VoteWeight(w http.ResponseWriter, r *http.Request) {
	address, err := pathAddress(r)
	if err != nil {
		writeError(w, err)
		return
	}
	weight, err := h.Votes.CalculateVoteWeight(r.Context(), address)
	respond(w, http.StatusOK, map[string]int64{"weight": weight}, err)
}

type campaignRequest struct {
	Name                    string    `json:"name"`
	TokenAddress            string    `json:"tokenAddress"`
	BaseAmount              string    `json:"baseAmount"`
	MinReputationScore      int       `json:"minReputationScore"`
	UseReputationMultiplier bool      `json:"useReputationMultiplier"`
	StartTime               time.Time `json:"startTime"`
	Duration                string    `json:"duration"`
	Supply                  string    `json:"supply"`
}

func bigAmount(field, value string) (*big.Int, error) {
	n, ok := new(big.Int).SetString(strings.TrimSpace(value), 10)
	if !ok {
		return nil, fmt.Errorf("%w: %s %q is not an integer", errBadRequest, field, value)
	}
	return n, nil
}

func (h *Handler) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Airdrops.Campaigns())
}

func (h *Handler) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	var req campaignRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	base, err := bigAmount("baseAmount", req.BaseAmount)
	if err != nil {
		writeError(w, err)
		return
	}
	supply, err := bigAmount("supply", req.Supply)
	if err != nil {
		writeError(w, err)
		return
	}
	duration, err := time.ParseDuration(req.Duration)
	if err != nil {
		writeError(w, fmt.Errorf("%w: duration %q", errBadRequest, req.Duration))
		return
	}
	id, err := h.Airdrops.CreateCampaign(req.Name, req.TokenAddress, base, req.MinReputationScore,
		req.UseReputationMultiplier, req.StartTime, duration, supply)
	respond(w, http.StatusCreated, map[string]uint64{"id": id}, invalid(err))
}

type campaignView struct {
	Campaign interface{} `json:"campaign"`
	State    string      `json:"state"`
}

func (h *Handler) GetCampaign(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	c, state, err := h.Airdrops.GetCampaign(id)
	respond(w, http.StatusOK, campaignView{Campaign: c, State: string(state)}, err)
}

func (h *Handler) EndCampaign(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.Airdrops.EndCampaign(id); err != nil {
		writeError(w, err)
		return
	}
	c, state, err := h.Airdrops.GetCampaign(id)
	respond(w, http.StatusOK, campaignView{Campaign: c, State: string(state)}, err)
}

func (h *Handler) AirdropAmount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	address, err := pathAddress(r)
	if err != nil {
		writeError(w, err)
		return
	}
	amount, err := h.Airdrops.CalculateAirdropAmount(r.Context(), id, address)
	respond(w, http.StatusOK, map[string]*big.Int{"amount": amount}, err)
}

func (h *Handler) ClaimAirdrop(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	address, err := pathAddress(r)
	if err != nil {
		writeError(w, err)
		return
	}
	res, err := h.Airdrops.ClaimAirdrop(r.Context(), id, address)
	respond(w, http.StatusOK, res, err)
}

func (h *Handler) HasClaimed(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	address, err := pathAddress(r)
	if err != nil {
		writeError(w, err)
		return
	}
	claimed, err := h.Airdrops.HasClaimed(id, address)
	respond(w, http.StatusOK, map[string]bool{"claimed": claimed}, err)
}
