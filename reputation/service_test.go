package reputation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nbd-wtf/go-nostr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"zentry/credentials"
	"zentry/engine/actors"
	"zentry/engine/library"
	"zentry/profiles"
	"zentry/recommend"
	"zentry/scoring"
	"zentry/signals"
)

const addr = "0x742d35cc6634c0532925a3b844bc454e4438f44e"

// glog starts its flush daemon at init; it arrives through the ristretto that go-nostr pulls in.
var leakOptions = []goleak.Option{
	goleak.IgnoreTopFunction("github.com/golang/glog.(*loggingT).flushDaemon"),
	goleak.IgnoreTopFunction("github.com/golang/glog.(*fileSink).flushDaemon"),
}

type recordingAnchor struct {
	mu     sync.Mutex
	proofs []string
	err    error
}

func (a *recordingAnchor) Anchor(_ context.Context, _ library.Account, _ scoring.Score, proofHash string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.proofs = append(a.proofs, proofHash)
	return a.err
}

type fixture struct {
	service *Service
	store   *profiles.Store
	metrics *Metrics
	anchor  *recordingAnchor
}

func chain(delay time.Duration, err error) *signals.StaticSource {
	now := time.Now().UTC()
	return &signals.StaticSource{
		SourceName: "chain:test",
		Delay:      delay,
		Err:        err,
		Activities: map[library.Account][]signals.Activity{addr: {
			{ID: "1", Type: signals.DaoVote, Timestamp: now.AddDate(0, 0, -1), Action: "for", Venue: "ENS DAO", Impact: signals.Positive},
			{ID: "2", Type: signals.DeFi, Timestamp: now.AddDate(0, 0, -5), Action: "repay", Venue: "Aave", Impact: signals.Positive},
		}},
	}
}

func github() *signals.StaticSource {
	return &signals.StaticSource{SourceName: library.GitHub, Social: &signals.SocialProfile{
		Source:  library.GitHub,
		Metrics: map[string]float64{signals.MetricRepos: 10, signals.MetricStars: 50, signals.MetricContributions: 300},
	}}
}

func newFixture(t *testing.T, verifier profiles.Verifier, sources ...signals.Source) fixture {
	t.Helper()
	backend, err := profiles.NewMemoryBackend(nil)
	require.NoError(t, err)
	verifiers := profiles.Verifiers{}
	if verifier != nil {
		verifiers[library.GitHub] = verifier
	}
	store := profiles.NewStore(backend, nil, verifiers, 5)
	calculator, err := scoring.NewCalculator(scoring.DefaultWeights())
	require.NoError(t, err)
	wallet, err := actors.NewWallet()
	require.NoError(t, err)
	metrics := NewMetrics(prometheus.NewRegistry())
	anchor := &recordingAnchor{}
	service := NewService(
		signals.NewCollector(store, time.Second, sources...),
		calculator,
		store,
		recommend.NewEngine(5),
		credentials.NewExporter(store, wallet, "zentry-test", time.Hour),
		anchor,
		metrics,
		Config{PipelineTimeout: 5 * time.Second},
	)
	return fixture{service: service, store: store, metrics: metrics, anchor: anchor}
}

func TestInitializeRunsThePipeline(t *testing.T) {
	defer goleak.VerifyNone(t, leakOptions...)
	f := newFixture(t, nil, chain(0, nil), &signals.StaticSource{SourceName: library.Twitter, Err: errors.New("down")})

	_, err := f.service.Initialize(context.Background(), "0x742d35")
	require.ErrorIs(t, err, library.ErrInvalidAddress)

	report, err := f.service.Initialize(context.Background(), "0x742D35CC6634C0532925A3B844BC454E4438F44E")
	require.NoError(t, err)
	assert.Equal(t, addr, report.Profile.Address)
	assert.Greater(t, report.Profile.ReputationScore.Overall, 0)
	assert.Greater(t, report.Profile.ReputationScore.Governance, 0)
	assert.Len(t, report.Activities, 2)
	assert.True(t, report.Degraded)
	require.Len(t, report.Absent, 1)
	assert.Equal(t, library.Twitter, report.Absent[0].Source)
	assert.NotEmpty(t, report.Recommendations)
	assert.LessOrEqual(t, len(report.Recommendations), 5)

	hash, err := profiles.ProofHash(report.Profile)
	require.NoError(t, err)
	assert.Equal(t, hash, report.Profile.ProofHash)
	assert.Equal(t, []string{hash}, f.anchor.proofs)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.scoresComputed))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.storeWrites))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.degradedPipelines))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.collections.WithLabelValues(library.Twitter, signals.OutcomeUnavailable)))
}

func TestInitializeAllSourcesUnavailable(t *testing.T) {
	defer goleak.VerifyNone(t, leakOptions...)
	f := newFixture(t, nil, chain(0, errors.New("indexer down")))

	_, err := f.service.Initialize(context.Background(), addr)
	require.ErrorIs(t, err, library.ErrAllSourcesUnavailable)
	_, err = f.service.Profile(context.Background(), addr)
	assert.ErrorIs(t, err, library.ErrNotFound)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.allSourcesFailures))
}

func TestUpdateScoreNeedsProfile(t *testing.T) {
	defer goleak.VerifyNone(t, leakOptions...)
	f := newFixture(t, nil, chain(0, nil))

	_, err := f.service.UpdateScore(context.Background(), addr)
	require.ErrorIs(t, err, library.ErrNotFound)

	_, err = f.service.Initialize(context.Background(), addr)
	require.NoError(t, err)
	_, err = f.service.UpdateScore(context.Background(), addr)
	require.NoError(t, err)

	history, err := f.service.History(context.Background(), addr)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestCancelledCallerStillCommits(t *testing.T) {
	defer goleak.VerifyNone(t, leakOptions...)
	f := newFixture(t, nil, chain(100*time.Millisecond, nil))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := f.service.Initialize(ctx, addr)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	assert.Eventually(t, func() bool {
		_, err := f.service.Profile(context.Background(), addr)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)
}

func TestAnchorFailureDoesNotFailPipeline(t *testing.T) {
	defer goleak.VerifyNone(t, leakOptions...)
	f := newFixture(t, nil, chain(0, nil))
	f.anchor.err = errors.New("no relay")

	_, err := f.service.Initialize(context.Background(), addr)
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.anchorFailures))
}

func TestVerifiedIdentityRaisesScore(t *testing.T) {
	defer goleak.VerifyNone(t, leakOptions...)
	f := newFixture(t, profiles.StaticVerifier{Result: true}, chain(0, nil), github())
	ctx := context.Background()

	_, err := f.service.Initialize(ctx, addr)
	require.NoError(t, err)
	_, err = f.service.Link(ctx, addr, library.GitHub, "octocat")
	require.NoError(t, err)
	report, err := f.service.UpdateScore(ctx, addr)
	require.NoError(t, err)
	unverified := report.Profile.ReputationScore.Technical
	assert.Greater(t, unverified, 0)

	res, err := f.service.VerifyIdentity(ctx, addr, library.GitHub, "octocat")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.NotEmpty(t, res.VerificationID)

	p, err := f.service.Profile(ctx, addr)
	require.NoError(t, err)
	assert.Greater(t, p.ReputationScore.Technical, unverified)
	id, ok := p.Identity(library.GitHub)
	require.True(t, ok)
	assert.True(t, id.Verified)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.verifications.WithLabelValues(library.GitHub, profiles.VerificationSucceeded)))

	p, err = f.service.Unlink(ctx, addr, library.GitHub)
	require.NoError(t, err)
	id, _ = p.Identity(library.GitHub)
	assert.True(t, id.Unlinked)
	assert.False(t, id.Verified)
}

func TestRejectedVerificationKeepsScore(t *testing.T) {
	defer goleak.VerifyNone(t, leakOptions...)
	f := newFixture(t, profiles.StaticVerifier{Result: false}, chain(0, nil), github())
	ctx := context.Background()

	_, err := f.service.Initialize(ctx, addr)
	require.NoError(t, err)
	before, err := f.service.Profile(ctx, addr)
	require.NoError(t, err)

	res, err := f.service.VerifyIdentity(ctx, addr, library.GitHub, "octocat")
	require.NoError(t, err)
	assert.False(t, res.Success)

	after, err := f.service.Profile(ctx, addr)
	require.NoError(t, err)
	assert.Equal(t, before.ProofHash, after.ProofHash)
	assert.Empty(t, after.History)
}

func TestCredentialRoundTrip(t *testing.T) {
	defer goleak.VerifyNone(t, leakOptions...)
	f := newFixture(t, nil, chain(0, nil))
	ctx := context.Background()

	export, err := f.service.ExportCredential(ctx, addr)
	require.NoError(t, err)
	assert.Nil(t, export)

	_, err = f.service.Initialize(ctx, addr)
	require.NoError(t, err)
	export, err = f.service.ExportCredential(ctx, addr)
	require.NoError(t, err)
	require.NotNil(t, export)

	v, err := f.service.VerifyCredential(ctx, export.Credential)
	require.NoError(t, err)
	assert.True(t, v.Valid)
	assert.True(t, v.HashMatches)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.credentials))
}

func TestProofMatchesProfile(t *testing.T) {
	defer goleak.VerifyNone(t, leakOptions...)
	f := newFixture(t, nil, chain(0, nil))
	ctx := context.Background()

	_, err := f.service.Proof(ctx, addr)
	require.ErrorIs(t, err, library.ErrNotFound)

	report, err := f.service.Initialize(ctx, addr)
	require.NoError(t, err)
	proof, err := f.service.Proof(ctx, addr)
	require.NoError(t, err)
	assert.Equal(t, report.Profile.ProofHash, proof.ProofHash)
	assert.Equal(t, "0x"+library.Sha256Sum(proof.ProofData), proof.ProofHash)
	assert.Contains(t, proof.ProofData, addr)
}

func TestRecommendationsWithoutProfile(t *testing.T) {
	defer goleak.VerifyNone(t, leakOptions...)
	f := newFixture(t, nil, chain(0, nil))

	recs, err := f.service.Recommendations(context.Background(), addr)
	require.NoError(t, err)
	assert.NotEmpty(t, recs)
	for i := 1; i < len(recs); i++ {
		assert.GreaterOrEqual(t, recs[i-1].PotentialGain, recs[i].PotentialGain)
	}
}

func TestExplainText(t *testing.T) {
	defer goleak.VerifyNone(t, leakOptions...)
	f := newFixture(t, nil, chain(0, nil))
	ctx := context.Background()

	overview, err := f.service.ExplainText(ctx, addr, "why is my score what it is?")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(overview, "The overall reputation score is"))
	for _, d := range scoring.Dimensions {
		assert.Contains(t, overview, string(d))
	}

	governance, err := f.service.ExplainText(ctx, addr, "How can I improve my DAO voting?")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(governance, "The governance score is"))
	assert.Contains(t, governance, scoring.FactorDAOParticipation)

	again, err := f.service.ExplainText(ctx, addr, "How can I improve my DAO voting?")
	require.NoError(t, err)
	assert.Equal(t, governance, again)
}

func TestRescorerRun(t *testing.T) {
	defer goleak.VerifyNone(t, leakOptions...)
	f := newFixture(t, nil, chain(0, nil))
	ctx := context.Background()

	assert.Equal(t, 0, NewRescorer(f.service, time.Hour).Run(ctx))
	_, err := f.service.Initialize(ctx, addr)
	require.NoError(t, err)

	r := NewRescorer(f.service, time.Hour)
	assert.Equal(t, 1, r.Run(ctx))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.rescoredAddresses))
	history, err := f.service.History(ctx, addr)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestRescorerCancelledRunLeavesQueueEmpty(t *testing.T) {
	defer goleak.VerifyNone(t, leakOptions...)
	f := newFixture(t, nil, chain(0, nil))
	ctx := context.Background()
	other := "0x00000000219ab540356cbb839cbe05303d7705fa"
	for _, a := range []library.Account{addr, other} {
		_, err := f.service.Initialize(ctx, a)
		require.NoError(t, err)
	}

	r := NewRescorer(f.service, time.Hour)
	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	assert.Equal(t, 0, r.Run(cancelled))
	assert.Equal(t, 0, r.queue.Len())

	assert.Equal(t, 2, r.Run(ctx))
	assert.Equal(t, 0, r.queue.Len())
	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.rescoredAddresses))
}

func TestRescorerStopsOnTerminate(t *testing.T) {
	defer goleak.VerifyNone(t, leakOptions...)
	f := newFixture(t, nil, chain(0, nil))
	_, err := f.service.Initialize(context.Background(), addr)
	require.NoError(t, err)

	runtime := actors.NewRuntime()
	NewRescorer(f.service, 20*time.Millisecond).Start(runtime)
	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(f.metrics.rescoredAddresses) >= 1
	}, 2*time.Second, 10*time.Millisecond)
	runtime.Shutdown()
}

func TestNostrAnchor(t *testing.T) {
	wallet, err := actors.NewWallet()
	require.NoError(t, err)
	var published []nostr.Event
	accept := 1
	publish := func(_ context.Context, relays []string, e nostr.Event, _ time.Duration) int {
		published = append(published, e)
		return accept
	}
	score := scoring.Score{Overall: 64, Trustworthiness: 70, LastUpdated: time.Unix(1700000000, 0).UTC()}

	a := NewNostrAnchor(wallet, []string{"wss://relay.example"}, time.Second, publish)
	require.NoError(t, a.Anchor(context.Background(), addr, score, "0xabc"))
	require.Len(t, published, 1)
	e := published[0]
	ok, err := e.CheckSignature()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, KindScoreAnchor, e.Kind)
	assert.Equal(t, wallet.Account, e.PubKey)
	assert.Contains(t, e.Tags, nostr.Tag{"d", "zentry:" + addr})
	assert.Contains(t, e.Content, `"proofHash":"0xabc"`)
	assert.Contains(t, e.Content, `"overallScore":64`)

	accept = 0
	assert.Error(t, a.Anchor(context.Background(), addr, score, "0xabc"))

	idle := NewNostrAnchor(wallet, nil, time.Second, publish)
	assert.NoError(t, idle.Anchor(context.Background(), addr, score, "0xabc"))
	assert.Len(t, published, 2)
}

func TestNilMetricsRecordNothing(t *testing.T) {
	var m *Metrics
	m.collection(library.GitHub, signals.OutcomeOK)
	m.scored(50)
	m.pipelineDone(time.Second, true)
}

func TestActivitiesFiltersAndLimits(t *testing.T) {
	defer goleak.VerifyNone(t, leakOptions...)
	f := newFixture(t, nil, chain(0, nil))
	ctx := context.Background()

	all, err := f.service.Activities(ctx, addr, "", 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, signals.DaoVote, all[0].Type)
	assert.True(t, all[0].Timestamp.After(all[1].Timestamp))

	latest, err := f.service.Activities(ctx, addr, "", 1)
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.Equal(t, "1", latest[0].ID)

	defi, err := f.service.Activities(ctx, addr, signals.DeFi, 10)
	require.NoError(t, err)
	require.Len(t, defi, 1)
	assert.Equal(t, "repay", defi[0].Action)

	none, err := f.service.Activities(ctx, addr, signals.NFT, 0)
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = f.service.Activities(ctx, "0x742d35", "", 0)
	assert.ErrorIs(t, err, library.ErrInvalidAddress)
}
