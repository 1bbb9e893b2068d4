// Package voting runs reputation weighted proposals. A proposal's state follows the clock:
// created before its start, active until its end, closed afterwards, executed once executed.
package voting

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/big"
	"sort"
	"strings"
	"time"

	"github.com/sasha-s/go-deadlock"
	"zentry/engine/library"
	"zentry/scoring"
)

var (
	ErrNotClosed       = errors.New("voting has not closed yet")
	ErrAlreadyExecuted = errors.New("proposal already executed")
)

type State string

const (
	Created  State = "created"
	Active   State = "active"
	Closed   State = "closed"
	Executed State = "executed"
)

type Outcome string

const (
	Accepted          Outcome = "accepted"
	VotingNotStarted  Outcome = "voting-not-started"
	VotingClosed      Outcome = "voting-closed"
	AlreadyVoted      Outcome = "already-voted"
	Ineligible        Outcome = "ineligible"
	ExecutionPassed   Outcome = "passed"
	ExecutionRejected Outcome = "rejected"
)

type Proposal struct {
	ID           uint64          `json:"id"`
	Creator      library.Account `json:"creator"`
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	StartTime    time.Time       `json:"startTime"`
	EndTime      time.Time       `json:"endTime"`
	ForVotes     int64           `json:"forVotes"`
	AgainstVotes int64           `json:"againstVotes"`
	Voters       int             `json:"voters"`
	Executed     bool            `json:"executed"`
	Passed       bool            `json:"passed"`
}

// StateAt derives the proposal state at now.
func (p Proposal) StateAt(now time.Time) State {
	switch {
	case p.Executed:
		return Executed
	case now.Before(p.StartTime):
		return Created
	case now.Before(p.EndTime):
		return Active
	}
	return Closed
}

// ForPermille is the share of the cast weight that supports the proposal, in thousandths.
func (p Proposal) ForPermille() int64 {
	permille, err := Permille(p.ForVotes, p.ForVotes+p.AgainstVotes)
	if err != nil {
		return 0
	}
	return permille
}

type Vote struct {
	Voter   library.Account `json:"voter"`
	Support bool            `json:"support"`
	Weight  int64           `json:"weight"`
	CastAt  time.Time       `json:"castAt"`
}

type VoteResult struct {
	Outcome Outcome `json:"outcome"`
	Weight  int64   `json:"weight"`
}

// WeightPolicy turns a score into vote weight. Implementations must be monotonic non-decreasing
// in the overall score.
type WeightPolicy interface {
	Weight(score scoring.Score) int64
}

// LinearWeight gives the overall score as weight, or nothing below MinScore.
type LinearWeight struct {
	MinScore int
}

func (l LinearWeight) Weight(score scoring.Score) int64 {
	if score.Overall < l.MinScore {
		return 0
	}
	return int64(score.Overall)
}

// ScoreReader returns the persisted score of an address or library.ErrNotFound.
type ScoreReader interface {
	Score(ctx context.Context, address library.Account) (scoring.Score, error)
}

type proposalRecord struct {
	proposal Proposal
	votes    map[library.Account]Vote
}

type Registry struct {
	data   map[uint64]*proposalRecord
	nextID uint64
	mutex  *deadlock.Mutex
	scores ScoreReader
	policy WeightPolicy
	now    func() time.Time
}

func NewRegistry(scores ScoreReader, policy WeightPolicy) *Registry {
	if policy == nil {
		policy = LinearWeight{}
	}
	return &Registry{
		data:   make(map[uint64]*proposalRecord),
		nextID: 1,
		mutex:  &deadlock.Mutex{},
		scores: scores,
		policy: policy,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// CreateProposal opens a proposal that accepts votes in [start, start+duration). A zero start
// means now.
func (r *Registry) CreateProposal(creator library.Account, title, description string, start time.Time, duration time.Duration) (uint64, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return 0, errors.New("proposal title is empty")
	}
	if duration <= 0 {
		return 0, fmt.Errorf("voting duration %s must be positive", duration)
	}
	if start.IsZero() {
		start = r.now()
	}
	r.mutex.Lock()
	defer r.mutex.Unlock()
	id := r.nextID
	r.nextID++
	r.data[id] = &proposalRecord{
		proposal: Proposal{
			ID:          id,
			Creator:     creator,
			Title:       title,
			Description: description,
			StartTime:   start,
			EndTime:     start.Add(duration),
		},
		votes: make(map[library.Account]Vote),
	}
	library.LogCLI(fmt.Sprintf("proposal %d %q open from %s to %s", id, title, start, start.Add(duration)), 4)
	return id, nil
}

func (r *Registry) record(id uint64) (*proposalRecord, error) {
	rec, ok := r.data[id]
	if !ok {
		return nil, fmt.Errorf("proposal %d: %w", id, library.ErrNotFound)
	}
	return rec, nil
}

func (r *Registry) GetProposal(id uint64) (Proposal, State, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	rec, err := r.record(id)
	if err != nil {
		return Proposal{}, "", err
	}
	return rec.proposal, rec.proposal.StateAt(r.now()), nil
}

// Proposals returns every proposal, newest first.
func (r *Registry) Proposals() []Proposal {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	var out []Proposal
	for _, rec := range r.data {
		out = append(out, rec.proposal)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

// CalculateVoteWeight returns the weight address would vote with now. No profile means no weight.
func (r *Registry) CalculateVoteWeight(ctx context.Context, address library.Account) (int64, error) {
	score, err := r.scores.Score(ctx, address)
	if errors.Is(err, library.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return r.policy.Weight(score), nil
}

// CastVote records one vote per voter while the proposal is active.
func (r *Registry) CastVote(ctx context.Context, id uint64, voter library.Account, support bool) (VoteResult, error) {
	// the score read happens before taking the registry lock
	weight, err := r.CalculateVoteWeight(ctx, voter)
	if err != nil {
		return VoteResult{}, err
	}
	r.mutex.Lock()
	defer r.mutex.Unlock()
	rec, err := r.record(id)
	if err != nil {
		return VoteResult{}, err
	}
	now := r.now()
	switch rec.proposal.StateAt(now) {
	case Created:
		return VoteResult{Outcome: VotingNotStarted}, nil
	case Closed, Executed:
		return VoteResult{Outcome: VotingClosed}, nil
	}
	if _, voted := rec.votes[voter]; voted {
		return VoteResult{Outcome: AlreadyVoted}, nil
	}
	if weight <= 0 {
		return VoteResult{Outcome: Ineligible}, nil
	}
	rec.votes[voter] = Vote{Voter: voter, Support: support, Weight: weight, CastAt: now}
	if support {
		rec.proposal.ForVotes += weight
	} else {
		rec.proposal.AgainstVotes += weight
	}
	rec.proposal.Voters++
	return VoteResult{Outcome: Accepted, Weight: weight}, nil
}

func (r *Registry) GetVote(id uint64, voter library.Account) (Vote, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	rec, err := r.record(id)
	if err != nil {
		return Vote{}, err
	}
	v, ok := rec.votes[voter]
	if !ok {
		return Vote{}, fmt.Errorf("vote of %s on proposal %d: %w", voter, id, library.ErrNotFound)
	}
	return v, nil
}

// ExecuteProposal finalizes a closed proposal. It passes when for outweighs against.
func (r *Registry) ExecuteProposal(id uint64) (Outcome, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	rec, err := r.record(id)
	if err != nil {
		return "", err
	}
	switch rec.proposal.StateAt(r.now()) {
	case Executed:
		return "", ErrAlreadyExecuted
	case Created, Active:
		return "", fmt.Errorf("proposal %d: %w", id, ErrNotClosed)
	}
	rec.proposal.Executed = true
	rec.proposal.Passed = rec.proposal.ForVotes > rec.proposal.AgainstVotes
	if rec.proposal.Passed {
		return ExecutionPassed, nil
	}
	return ExecutionRejected, nil
}

// Permille returns signed/total in thousandths, rounded.
func Permille(signed, total int64) (int64, error) {
	if signed > total || total == 0 {
		return 0, fmt.Errorf("invalid permille, numerator %d is greater than denominator %d", signed, total)
	}
	s := new(big.Rat).SetFrac64(signed, total)
	s.Mul(s, new(big.Rat).SetInt64(1000))
	f, _ := s.Float64()
	return int64(math.Round(f)), nil
}
