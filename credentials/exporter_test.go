package credentials

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"zentry/engine/actors"
	"zentry/profiles"
	"zentry/scoring"
)

const addr = "0x742d35cc6634c0532925a3b844bc454e4438f44e"

func setup(t *testing.T) (*Exporter, *profiles.Store) {
	t.Helper()
	backend, err := profiles.NewMemoryBackend(nil)
	require.NoError(t, err)
	store := profiles.NewStore(backend, nil, nil, 5)
	wallet, err := actors.NewWallet()
	require.NoError(t, err)
	return NewExporter(store, wallet, "Zentry", 24*time.Hour), store
}

func TestExportWithoutProfile(t *testing.T) {
	e, _ := setup(t)
	export, err := e.Export(context.Background(), addr)
	require.NoError(t, err)
	assert.Nil(t, export)
}

func TestExportAndVerify(t *testing.T) {
	e, store := setup(t)
	stored, err := store.Store(context.Background(), addr, scoring.Score{Overall: 72, Trustworthiness: 80, Governance: 65, Technical: 70, Community: 75})
	require.NoError(t, err)

	export, err := e.Export(context.Background(), addr)
	require.NoError(t, err)
	require.NotNil(t, export)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), export.ExpiresAt, time.Minute)

	var c Credential
	require.NoError(t, json.Unmarshal([]byte(export.Credential), &c))
	assert.Equal(t, CredentialType, c.Type)
	assert.Equal(t, addr, c.Subject)
	assert.Equal(t, stored.ProofHash, c.Proof.Hash)
	assert.Equal(t, e.IssuerKey(), c.Proof.VerificationMethod)
	assert.Equal(t, Claims{ReputationScore: 72, TrustworthinessScore: 80, GovernanceScore: 65, TechnicalScore: 70, CommunityScore: 75}, c.Claims)
	assert.Len(t, c.Proof.Signature, 128)

	v, err := e.Verify(context.Background(), export.Credential)
	require.NoError(t, err)
	assert.Equal(t, Verification{Valid: true, HashMatches: true}, v)
}

func TestVerifyDetectsTampering(t *testing.T) {
	e, store := setup(t)
	_, err := store.Store(context.Background(), addr, scoring.Score{Overall: 40})
	require.NoError(t, err)
	export, err := e.Export(context.Background(), addr)
	require.NoError(t, err)

	tampered := strings.Replace(export.Credential, `"reputationScore":40`, `"reputationScore":99`, 1)
	require.NotEqual(t, export.Credential, tampered)
	v, err := e.Verify(context.Background(), tampered)
	require.NoError(t, err)
	assert.False(t, v.Valid)
	assert.Contains(t, v.Reason, "signature")
}

func TestVerifyAfterProfileChange(t *testing.T) {
	e, store := setup(t)
	_, err := store.Store(context.Background(), addr, scoring.Score{Overall: 40})
	require.NoError(t, err)
	export, err := e.Export(context.Background(), addr)
	require.NoError(t, err)
	_, err = store.Store(context.Background(), addr, scoring.Score{Overall: 41})
	require.NoError(t, err)

	v, err := e.Verify(context.Background(), export.Credential)
	require.NoError(t, err)
	assert.False(t, v.Valid)
	assert.False(t, v.HashMatches)
	assert.False(t, v.Expired)
}

func TestVerifyExpired(t *testing.T) {
	e, store := setup(t)
	_, err := store.Store(context.Background(), addr, scoring.Score{Overall: 40})
	require.NoError(t, err)
	export, err := e.Export(context.Background(), addr)
	require.NoError(t, err)

	e.now = func() time.Time { return time.Now().Add(48 * time.Hour) }
	v, err := e.Verify(context.Background(), export.Credential)
	require.NoError(t, err)
	assert.True(t, v.Expired)
	assert.True(t, v.HashMatches)
	assert.False(t, v.Valid)
}

func TestVerifyForeignIssuer(t *testing.T) {
	e, store := setup(t)
	_, err := store.Store(context.Background(), addr, scoring.Score{Overall: 40})
	require.NoError(t, err)
	other, err := actors.NewWallet()
	require.NoError(t, err)
	foreign := NewExporter(store, other, "Someone else", time.Hour)
	export, err := foreign.Export(context.Background(), addr)
	require.NoError(t, err)

	v, err := e.Verify(context.Background(), export.Credential)
	require.NoError(t, err)
	assert.False(t, v.Valid)

	_, err = e.Verify(context.Background(), "{not json")
	assert.Error(t, err)
}
