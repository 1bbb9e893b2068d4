package voting

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"zentry/engine/library"
	"zentry/scoring"
)

type scores map[library.Account]scoring.Score

func (s scores) Score(_ context.Context, address library.Account) (scoring.Score, error) {
	score, ok := s[address]
	if !ok {
		return scoring.Score{}, fmt.Errorf("%s: %w", address, library.ErrNotFound)
	}
	return score, nil
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func setup(t *testing.T, minScore int) (*Registry, *clock, uint64) {
	t.Helper()
	c := &clock{t: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	r := NewRegistry(scores{
		"0xalice": {Overall: 80},
		"0xbob":   {Overall: 45},
		"0xcarol": {Overall: 20},
	}, LinearWeight{MinScore: minScore})
	r.now = c.now
	id, err := r.CreateProposal("0xalice", "Fund grants", "Move 10% of treasury", c.t.Add(time.Hour), 24*time.Hour)
	require.NoError(t, err)
	return r, c, id
}

func TestProposalLifecycle(t *testing.T) {
	r, c, id := setup(t, 0)
	ctx := context.Background()

	res, err := r.CastVote(ctx, id, "0xalice", true)
	require.NoError(t, err)
	assert.Equal(t, VotingNotStarted, res.Outcome)
	_, state, err := r.GetProposal(id)
	require.NoError(t, err)
	assert.Equal(t, Created, state)

	c.t = c.t.Add(2 * time.Hour)
	res, err = r.CastVote(ctx, id, "0xalice", true)
	require.NoError(t, err)
	assert.Equal(t, VoteResult{Outcome: Accepted, Weight: 80}, res)
	res, err = r.CastVote(ctx, id, "0xalice", false)
	require.NoError(t, err)
	assert.Equal(t, AlreadyVoted, res.Outcome)
	res, err = r.CastVote(ctx, id, "0xbob", false)
	require.NoError(t, err)
	assert.Equal(t, Accepted, res.Outcome)

	_, err = r.ExecuteProposal(id)
	assert.ErrorIs(t, err, ErrNotClosed)

	c.t = c.t.Add(24 * time.Hour)
	res, err = r.CastVote(ctx, id, "0xcarol", true)
	require.NoError(t, err)
	assert.Equal(t, VotingClosed, res.Outcome)

	p, state, err := r.GetProposal(id)
	require.NoError(t, err)
	assert.Equal(t, Closed, state)
	assert.Equal(t, int64(80), p.ForVotes)
	assert.Equal(t, int64(45), p.AgainstVotes)
	assert.Equal(t, 2, p.Voters)
	assert.Equal(t, int64(640), p.ForPermille())

	outcome, err := r.ExecuteProposal(id)
	require.NoError(t, err)
	assert.Equal(t, ExecutionPassed, outcome)
	_, err = r.ExecuteProposal(id)
	assert.ErrorIs(t, err, ErrAlreadyExecuted)
	_, state, err = r.GetProposal(id)
	require.NoError(t, err)
	assert.Equal(t, Executed, state)

	v, err := r.GetVote(id, "0xbob")
	require.NoError(t, err)
	assert.False(t, v.Support)
	assert.Equal(t, int64(45), v.Weight)
}

func TestIneligibleVoters(t *testing.T) {
	r, c, id := setup(t, 50)
	c.t = c.t.Add(2 * time.Hour)
	for _, voter := range []library.Account{"0xbob", "0xnobody"} {
		res, err := r.CastVote(context.Background(), id, voter, true)
		require.NoError(t, err)
		assert.Equal(t, Ineligible, res.Outcome, voter)
	}
	p, _, err := r.GetProposal(id)
	require.NoError(t, err)
	assert.Zero(t, p.ForVotes)
	_, err = r.GetVote(id, "0xbob")
	assert.ErrorIs(t, err, library.ErrNotFound)
}

func TestUnknownProposal(t *testing.T) {
	r, _, _ := setup(t, 0)
	_, err := r.CastVote(context.Background(), 99, "0xalice", true)
	assert.ErrorIs(t, err, library.ErrNotFound)
	_, _, err = r.GetProposal(99)
	assert.ErrorIs(t, err, library.ErrNotFound)
	_, err = r.ExecuteProposal(99)
	assert.ErrorIs(t, err, library.ErrNotFound)
}

func TestLinearWeightIsMonotonic(t *testing.T) {
	policy := LinearWeight{MinScore: 30}
	var prev int64
	for overall := 0; overall <= 100; overall++ {
		w := policy.Weight(scoring.Score{Overall: overall})
		assert.GreaterOrEqual(t, w, prev)
		prev = w
	}
	assert.Zero(t, policy.Weight(scoring.Score{Overall: 29}))
	assert.Equal(t, int64(30), policy.Weight(scoring.Score{Overall: 30}))
}

func TestPermille(t *testing.T) {
	p, err := Permille(1, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(333), p)
	_, err = Permille(4, 3)
	assert.Error(t, err)
	_, err = Permille(0, 0)
	assert.Error(t, err)
}

func TestCreateProposalValidation(t *testing.T) {
	r, _, _ := setup(t, 0)
	_, err := r.CreateProposal("0xalice", " ", "", time.Time{}, time.Hour)
	assert.Error(t, err)
	_, err = r.CreateProposal("0xalice", "x", "", time.Time{}, 0)
	assert.Error(t, err)
	id, err := r.CreateProposal("0xalice", "now", "", time.Time{}, time.Hour)
	require.NoError(t, err)
	_, state, err := r.GetProposal(id)
	require.NoError(t, err)
	assert.Equal(t, Active, state)
	assert.Len(t, r.Proposals(), 2)
}
