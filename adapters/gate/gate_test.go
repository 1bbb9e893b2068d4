package gate

import (
	"context"
	"fmt"
	"testing"

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

var fixture = scores{
	"0xhigh": {Overall: 85, Governance: 40},
	"0xlow":  {Overall: 60, Governance: 90},
	"0xgov":  {Overall: 75, Governance: 80},
}

func TestCheckAccessOverallThreshold(t *testing.T) {
	r := NewRegistry(fixture)
	id, err := r.CreateGate("Premium", 70, ComponentNone, 0)
	require.NoError(t, err)
	assert.Equal(t, GateID("Premium"), id)

	tests := []struct {
		address library.Account
		want    Decision
	}{
		{"0xhigh", Granted},
		{"0xlow", Denied},
		{"0xunknown", Denied},
	}
	for _, tt := range tests {
		t.Run(tt.address, func(t *testing.T) {
			access, err := r.CheckAccess(context.Background(), tt.address, id)
			require.NoError(t, err)
			assert.Equal(t, tt.want, access.Decision, access.Reason)
		})
	}
}

func TestCheckAccessComponentThreshold(t *testing.T) {
	r := NewRegistry(fixture)
	id, err := r.CreateGate("Council", 70, ComponentGovernance, 75)
	require.NoError(t, err)

	access, err := r.CheckAccess(context.Background(), "0xgov", id)
	require.NoError(t, err)
	assert.Equal(t, Granted, access.Decision)

	access, err = r.CheckAccess(context.Background(), "0xhigh", id)
	require.NoError(t, err)
	assert.Equal(t, Denied, access.Decision)
	assert.Contains(t, access.Reason, "governance")
}

func TestInactiveGateDenies(t *testing.T) {
	r := NewRegistry(fixture)
	id, err := r.CreateGate("Premium", 10, ComponentNone, 0)
	require.NoError(t, err)
	require.NoError(t, r.SetGateStatus(id, false))

	access, err := r.CheckAccess(context.Background(), "0xhigh", id)
	require.NoError(t, err)
	assert.Equal(t, Denied, access.Decision)

	require.NoError(t, r.SetGateStatus(id, true))
	access, err = r.CheckAccess(context.Background(), "0xhigh", id)
	require.NoError(t, err)
	assert.Equal(t, Granted, access.Decision)
}

func TestUnknownAndMalformedGate(t *testing.T) {
	r := NewRegistry(fixture)
	_, err := r.CheckAccess(context.Background(), "0xhigh", "not-a-gate")
	assert.ErrorIs(t, err, library.ErrNotFound)
	_, err = r.CheckAccess(context.Background(), "0xhigh", GateID("missing"))
	assert.ErrorIs(t, err, library.ErrNotFound)
	assert.ErrorIs(t, r.SetGateStatus("zz", true), library.ErrNotFound)
}

func TestCreateAndUpdateValidation(t *testing.T) {
	r := NewRegistry(fixture)
	_, err := r.CreateGate("Premium", 70, ComponentNone, 0)
	require.NoError(t, err)
	_, err = r.CreateGate(" Premium ", 10, ComponentNone, 0)
	assert.ErrorIs(t, err, ErrDuplicateGate)
	_, err = r.CreateGate("Broken", 101, ComponentNone, 0)
	assert.ErrorIs(t, err, ErrInvalidThreshold)
	_, err = r.CreateGate("Broken", 10, ComponentType(9), 0)
	assert.ErrorIs(t, err, ErrInvalidComponent)

	id := GateID("Premium")
	require.NoError(t, r.UpdateGate(id, 90, ComponentTechnical, 50))
	g, err := r.GetGate(id)
	require.NoError(t, err)
	assert.Equal(t, 90, g.OverallThreshold)
	assert.Equal(t, "technical", g.ComponentType.String())

	_, err = r.CreateGate("Another", 0, ComponentNone, 0)
	require.NoError(t, err)
	gates := r.Gates()
	require.Len(t, gates, 2)
	assert.Equal(t, "Another", gates[0].Name)
}

func TestVerifyReputationThreshold(t *testing.T) {
	r := NewRegistry(fixture)
	tests := []struct {
		address   library.Account
		threshold int
		want      bool
	}{
		{"0xhigh", 85, true},
		{"0xhigh", 86, false},
		{"0xlow", 0, true},
		{"0xunknown", 0, false},
	}
	for _, tt := range tests {
		got, err := r.VerifyReputationThreshold(context.Background(), tt.address, tt.threshold)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%s at %d", tt.address, tt.threshold)
	}
	_, err := r.VerifyReputationThreshold(context.Background(), "0xhigh", 101)
	assert.ErrorIs(t, err, ErrInvalidThreshold)
}

func TestVerifyComponentThreshold(t *testing.T) {
	r := NewRegistry(fixture)
	ok, err := r.VerifyComponentThreshold(context.Background(), "0xlow", ComponentGovernance, 90)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = r.VerifyComponentThreshold(context.Background(), "0xhigh", ComponentGovernance, 50)
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = r.VerifyComponentThreshold(context.Background(), "0xunknown", ComponentTechnical, 0)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = r.VerifyComponentThreshold(context.Background(), "0xhigh", ComponentNone, 10)
	assert.ErrorIs(t, err, ErrInvalidComponent)
	_, err = r.VerifyComponentThreshold(context.Background(), "0xhigh", ComponentType(9), 10)
	assert.ErrorIs(t, err, ErrInvalidComponent)
	_, err = r.VerifyComponentThreshold(context.Background(), "0xhigh", ComponentGovernance, -1)
	assert.ErrorIs(t, err, ErrInvalidThreshold)
}
