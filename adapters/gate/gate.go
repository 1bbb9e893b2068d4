// Package gate implements reputation gated access: named thresholds on the overall score and,
// optionally, on one dimension.
package gate

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sasha-s/go-deadlock"
	"zentry/engine/library"
	"zentry/scoring"
)

var (
	ErrDuplicateGate    = errors.New("a gate with this name already exists")
	ErrInvalidThreshold = errors.New("threshold must be between 0 and 100")
	ErrInvalidComponent = errors.New("unknown component type")
)

// ComponentType selects the dimension a gate checks in addition to the overall score.
type ComponentType int

const (
	ComponentNone ComponentType = iota
	ComponentTrustworthiness
	ComponentGovernance
	ComponentTechnical
	ComponentCommunity
)

var componentDimensions = map[ComponentType]scoring.Dimension{
	ComponentTrustworthiness: scoring.Trustworthiness,
	ComponentGovernance:      scoring.Governance,
	ComponentTechnical:       scoring.Technical,
	ComponentCommunity:       scoring.Community,
}

func (c ComponentType) Valid() bool {
	return c == ComponentNone || componentDimensions[c] != ""
}

func (c ComponentType) String() string {
	if c == ComponentNone {
		return "none"
	}
	if d, ok := componentDimensions[c]; ok {
		return string(d)
	}
	return fmt.Sprintf("component(%d)", int(c))
}

type Gate struct {
	ID                 string        `json:"gateId"`
	Name               string        `json:"name"`
	OverallThreshold   int           `json:"overallThreshold"`
	ComponentType      ComponentType `json:"componentType"`
	ComponentThreshold int           `json:"componentThreshold"`
	IsActive           bool          `json:"isActive"`
	CreatedAt          time.Time     `json:"createdAt"`
}

type Decision string

const (
	Granted Decision = "granted"
	Denied  Decision = "denied"
)

type Access struct {
	Decision Decision `json:"decision"`
	Reason   string   `json:"reason"`
}

// ScoreReader returns the persisted score of an address or library.ErrNotFound.
type ScoreReader interface {
	Score(ctx context.Context, address library.Account) (scoring.Score, error)
}

type Registry struct {
	data   map[string]Gate
	mutex  *deadlock.Mutex
	scores ScoreReader
	now    func() time.Time
}

func NewRegistry(scores ScoreReader) *Registry {
	return &Registry{
		data:   make(map[string]Gate),
		mutex:  &deadlock.Mutex{},
		scores: scores,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// GateID derives the gate id from its name.
func GateID(name string) string {
	return library.Sha256Sum(strings.TrimSpace(name))
}

func validate(overall int, component ComponentType, componentThreshold int) error {
	if overall < 0 || overall > 100 || componentThreshold < 0 || componentThreshold > 100 {
		return ErrInvalidThreshold
	}
	if !component.Valid() {
		return fmt.Errorf("%d: %w", int(component), ErrInvalidComponent)
	}
	return nil
}

// CreateGate registers an active gate and returns its id.
func (r *Registry) CreateGate(name string, overallThreshold int, component ComponentType, componentThreshold int) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("gate name is empty")
	}
	if err := validate(overallThreshold, component, componentThreshold); err != nil {
		return "", err
	}
	id := GateID(name)
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if _, exists := r.data[id]; exists {
		return "", fmt.Errorf("%q: %w", name, ErrDuplicateGate)
	}
	r.data[id] = Gate{
		ID:                 id,
		Name:               name,
		OverallThreshold:   overallThreshold,
		ComponentType:      component,
		ComponentThreshold: componentThreshold,
		IsActive:           true,
		CreatedAt:          r.now(),
	}
	library.LogCLI(fmt.Sprintf("created gate %s (%s)", name, id), 4)
	return id, nil
}

func (r *Registry) UpdateGate(id string, overallThreshold int, component ComponentType, componentThreshold int) error {
	if err := validate(overallThreshold, component, componentThreshold); err != nil {
		return err
	}
	return r.update(id, func(g *Gate) {
		g.OverallThreshold = overallThreshold
		g.ComponentType = component
		g.ComponentThreshold = componentThreshold
	})
}

func (r *Registry) SetGateStatus(id string, active bool) error {
	return r.update(id, func(g *Gate) {
		g.IsActive = active
	})
}

func (r *Registry) update(id string, f func(g *Gate)) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	g, err := r.get(id)
	if err != nil {
		return err
	}
	f(&g)
	r.data[id] = g
	return nil
}

func (r *Registry) GetGate(id string) (Gate, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.get(id)
}

func (r *Registry) get(id string) (Gate, error) {
	if !library.IsSha256Hex(id) {
		return Gate{}, fmt.Errorf("gate id %q: %w", id, library.ErrNotFound)
	}
	g, ok := r.data[id]
	if !ok {
		return Gate{}, fmt.Errorf("gate %s: %w", id, library.ErrNotFound)
	}
	return g, nil
}

// Gates returns every gate ordered by name.
func (r *Registry) Gates() []Gate {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	var out []Gate
	for _, g := range r.data {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// CheckAccess decides whether address passes the gate. It never modifies anything.
func (r *Registry) CheckAccess(ctx context.Context, address library.Account, id string) (Access, error) {
	g, err := r.GetGate(id)
	if err != nil {
		return Access{}, err
	}
	if !g.IsActive {
		return Access{Decision: Denied, Reason: "gate is not active"}, nil
	}
	score, found, err := r.score(ctx, address)
	if err != nil {
		return Access{}, err
	}
	if !found {
		return Access{Decision: Denied, Reason: "address has no reputation profile"}, nil
	}
	if score.Overall < g.OverallThreshold {
		return Access{Decision: Denied, Reason: fmt.Sprintf("overall score %d is below %d", score.Overall, g.OverallThreshold)}, nil
	}
	if d, ok := componentDimensions[g.ComponentType]; ok {
		if v := score.Dimension(d); v < g.ComponentThreshold {
			return Access{Decision: Denied, Reason: fmt.Sprintf("%s score %d is below %d", d, v, g.ComponentThreshold)}, nil
		}
	}
	return Access{Decision: Granted, Reason: "all thresholds met"}, nil
}

// VerifyReputationThreshold reports whether address holds an overall score of at least threshold.
// An address without a profile never meets a threshold.
func (r *Registry) VerifyReputationThreshold(ctx context.Context, address library.Account, threshold int) (bool, error) {
	if threshold < 0 || threshold > 100 {
		return false, ErrInvalidThreshold
	}
	score, found, err := r.score(ctx, address)
	if err != nil || !found {
		return false, err
	}
	return score.Overall >= threshold, nil
}

// VerifyComponentThreshold reports whether one dimension of address's score reaches threshold.
func (r *Registry) VerifyComponentThreshold(ctx context.Context, address library.Account, component ComponentType, threshold int) (bool, error) {
	if threshold < 0 || threshold > 100 {
		return false, ErrInvalidThreshold
	}
	d, ok := componentDimensions[component]
	if !ok {
		return false, fmt.Errorf("%d: %w", int(component), ErrInvalidComponent)
	}
	score, found, err := r.score(ctx, address)
	if err != nil || !found {
		return false, err
	}
	return score.Dimension(d) >= threshold, nil
}

func (r *Registry) score(ctx context.Context, address library.Account) (scoring.Score, bool, error) {
	score, err := r.scores.Score(ctx, address)
	if errors.Is(err, library.ErrNotFound) {
		return scoring.Score{}, false, nil
	}
	if err != nil {
		return scoring.Score{}, false, err
	}
	return score, true, nil
}
