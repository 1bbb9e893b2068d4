// Package airdrop distributes campaign tokens to addresses scaled by reputation.
package airdrop

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"strings"
	"time"

	"github.com/sasha-s/go-deadlock"
	"zentry/engine/library"
	"zentry/scoring"
)

type State string

const (
	Created State = "created"
	Active  State = "active"
	Ended   State = "ended"
)

type Outcome string

const (
	Claimed        Outcome = "claimed"
	AlreadyClaimed Outcome = "already-claimed"
	NotActive      Outcome = "not-active"
	NotEligible    Outcome = "not-eligible"
)

type Campaign struct {
	ID                      uint64    `json:"id"`
	Name                    string    `json:"name"`
	TokenAddress            string    `json:"tokenAddress"`
	BaseAmount              *big.Int  `json:"baseAmount"`
	MinReputationScore      int       `json:"minReputationScore"`
	UseReputationMultiplier bool      `json:"useReputationMultiplier"`
	StartTime               time.Time `json:"startTime"`
	EndTime                 time.Time `json:"endTime"`
	Supply                  *big.Int  `json:"supply"`
	RemainingTokens         *big.Int  `json:"remainingTokens"`
	Claims                  int       `json:"claims"`
	Closed                  bool      `json:"closed"`
}

func (c Campaign) StateAt(now time.Time) State {
	switch {
	case c.Closed || !now.Before(c.EndTime):
		return Ended
	case now.Before(c.StartTime):
		return Created
	}
	return Active
}

func (c Campaign) copy() Campaign {
	c.BaseAmount = new(big.Int).Set(c.BaseAmount)
	c.Supply = new(big.Int).Set(c.Supply)
	c.RemainingTokens = new(big.Int).Set(c.RemainingTokens)
	return c
}

type ClaimResult struct {
	Outcome Outcome  `json:"outcome"`
	Amount  *big.Int `json:"amount"`
	Receipt string   `json:"receipt,omitempty"`
}

// MultiplierPolicy scales the base amount by score. Implementations must be monotonic
// non-decreasing in the overall score.
type MultiplierPolicy interface {
	Apply(base *big.Int, score scoring.Score) *big.Int
}

// LinearMultiplier pays base * overall / Pivot, so an overall score equal to Pivot earns the base
// amount.
type LinearMultiplier struct {
	Pivot int
}

func (l LinearMultiplier) Apply(base *big.Int, score scoring.Score) *big.Int {
	pivot := l.Pivot
	if pivot <= 0 {
		pivot = 50
	}
	out := new(big.Int).Mul(base, big.NewInt(int64(score.Overall)))
	return out.Quo(out, big.NewInt(int64(pivot)))
}

// Transferer moves tokens to a claimer and returns a receipt.
type Transferer interface {
	Transfer(ctx context.Context, campaign Campaign, to library.Account, amount *big.Int) (string, error)
}

// ScoreReader returns the persisted score of an address or library.ErrNotFound.
type ScoreReader interface {
	Score(ctx context.Context, address library.Account) (scoring.Score, error)
}

type campaignRecord struct {
	campaign Campaign
	claimed  map[library.Account]*big.Int
	pending  map[library.Account]struct{}
}

type Registry struct {
	data       map[uint64]*campaignRecord
	nextID     uint64
	mutex      *deadlock.Mutex
	scores     ScoreReader
	multiplier MultiplierPolicy
	transferer Transferer
	now        func() time.Time
}

func NewRegistry(scores ScoreReader, multiplier MultiplierPolicy, transferer Transferer) *Registry {
	if multiplier == nil {
		multiplier = LinearMultiplier{Pivot: 50}
	}
	if transferer == nil {
		transferer = NewLedger()
	}
	return &Registry{
		data:       make(map[uint64]*campaignRecord),
		nextID:     1,
		mutex:      &deadlock.Mutex{},
		scores:     scores,
		multiplier: multiplier,
		transferer: transferer,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// CreateCampaign opens a campaign over [start, start+duration). A zero start means now.
func (r *Registry) CreateCampaign(name, token string, baseAmount *big.Int, minScore int, useMultiplier bool, start time.Time, duration time.Duration, supply *big.Int) (uint64, error) {
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		return 0, errors.New("campaign name is empty")
	case baseAmount == nil || baseAmount.Sign() <= 0:
		return 0, errors.New("base amount must be positive")
	case supply == nil || supply.Sign() <= 0:
		return 0, errors.New("supply must be positive")
	case minScore < 0 || minScore > 100:
		return 0, fmt.Errorf("minimum score %d out of range", minScore)
	case duration <= 0:
		return 0, fmt.Errorf("campaign duration %s must be positive", duration)
	}
	if start.IsZero() {
		start = r.now()
	}
	r.mutex.Lock()
	defer r.mutex.Unlock()
	id := r.nextID
	r.nextID++
	r.data[id] = &campaignRecord{
		campaign: Campaign{
			ID:                      id,
			Name:                    name,
			TokenAddress:            token,
			BaseAmount:              new(big.Int).Set(baseAmount),
			MinReputationScore:      minScore,
			UseReputationMultiplier: useMultiplier,
			StartTime:               start,
			EndTime:                 start.Add(duration),
			Supply:                  new(big.Int).Set(supply),
			RemainingTokens:         new(big.Int).Set(supply),
		},
		claimed: make(map[library.Account]*big.Int),
		pending: make(map[library.Account]struct{}),
	}
	library.LogCLI(fmt.Sprintf("airdrop campaign %d %q created with supply %s", id, name, supply), 4)
	return id, nil
}

func (r *Registry) record(id uint64) (*campaignRecord, error) {
	rec, ok := r.data[id]
	if !ok {
		return nil, fmt.Errorf("campaign %d: %w", id, library.ErrNotFound)
	}
	return rec, nil
}

func (r *Registry) GetCampaign(id uint64) (Campaign, State, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	rec, err := r.record(id)
	if err != nil {
		return Campaign{}, "", err
	}
	return rec.campaign.copy(), rec.campaign.StateAt(r.now()), nil
}

// Campaigns returns every campaign, newest first.
func (r *Registry) Campaigns() []Campaign {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	var out []Campaign
	for _, rec := range r.data {
		out = append(out, rec.campaign.copy())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

// EndCampaign closes a campaign before its end time.
func (r *Registry) EndCampaign(id uint64) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	rec, err := r.record(id)
	if err != nil {
		return err
	}
	rec.campaign.Closed = true
	return nil
}

func (r *Registry) HasClaimed(id uint64, address library.Account) (bool, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	rec, err := r.record(id)
	if err != nil {
		return false, err
	}
	_, ok := rec.claimed[address]
	return ok, nil
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

// amount must be called with the registry lock held.
func (r *Registry) amount(c Campaign, score scoring.Score, found bool) *big.Int {
	if !found || score.Overall < c.MinReputationScore {
		return new(big.Int)
	}
	amount := new(big.Int).Set(c.BaseAmount)
	if c.UseReputationMultiplier {
		amount = r.multiplier.Apply(amount, score)
	}
	if amount.Cmp(c.RemainingTokens) > 0 {
		amount.Set(c.RemainingTokens)
	}
	if amount.Sign() < 0 {
		amount.SetInt64(0)
	}
	return amount
}

// CalculateAirdropAmount returns what address would receive now, 0 when not eligible.
func (r *Registry) CalculateAirdropAmount(ctx context.Context, id uint64, address library.Account) (*big.Int, error) {
	score, found, err := r.score(ctx, address)
	if err != nil {
		return nil, err
	}
	r.mutex.Lock()
	defer r.mutex.Unlock()
	rec, err := r.record(id)
	if err != nil {
		return nil, err
	}
	return r.amount(rec.campaign, score, found), nil
}

// ClaimAirdrop pays address once per campaign. The amount is reserved before the transfer and
// released again if the transfer fails, in which case the claim is not recorded.
func (r *Registry) ClaimAirdrop(ctx context.Context, id uint64, address library.Account) (ClaimResult, error) {
	score, found, err := r.score(ctx, address)
	if err != nil {
		return ClaimResult{}, err
	}

	r.mutex.Lock()
	rec, err := r.record(id)
	if err != nil {
		r.mutex.Unlock()
		return ClaimResult{}, err
	}
	_, claimed := rec.claimed[address]
	_, pending := rec.pending[address]
	if claimed || pending {
		r.mutex.Unlock()
		return ClaimResult{Outcome: AlreadyClaimed, Amount: new(big.Int)}, nil
	}
	if rec.campaign.StateAt(r.now()) != Active {
		r.mutex.Unlock()
		return ClaimResult{Outcome: NotActive, Amount: new(big.Int)}, nil
	}
	amount := r.amount(rec.campaign, score, found)
	if amount.Sign() <= 0 {
		r.mutex.Unlock()
		return ClaimResult{Outcome: NotEligible, Amount: new(big.Int)}, nil
	}
	rec.pending[address] = struct{}{}
	rec.campaign.RemainingTokens.Sub(rec.campaign.RemainingTokens, amount)
	campaign := rec.campaign.copy()
	r.mutex.Unlock()

	receipt, err := r.transferer.Transfer(ctx, campaign, address, amount)

	r.mutex.Lock()
	defer r.mutex.Unlock()
	delete(rec.pending, address)
	if err != nil {
		rec.campaign.RemainingTokens.Add(rec.campaign.RemainingTokens, amount)
		return ClaimResult{}, fmt.Errorf("transferring %s %s to %s: %w", amount, campaign.TokenAddress, address, err)
	}
	rec.claimed[address] = amount
	rec.campaign.Claims++
	return ClaimResult{Outcome: Claimed, Amount: new(big.Int).Set(amount), Receipt: receipt}, nil
}
