// Package reputation wires the pipeline: collect signals, score them, persist the score and
// derive recommendations. It is the only entry point the API and the CLI use.
package reputation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"zentry/credentials"
	"zentry/engine/library"
	"zentry/profiles"
	"zentry/recommend"
	"zentry/scoring"
	"zentry/signals"
)

// Report is the result of one full pipeline run.
type Report struct {
	Profile         profiles.Profile           `json:"profile"`
	Activities      []signals.Activity         `json:"activities"`
	Recommendations []recommend.Recommendation `json:"recommendations"`
	Absent          []signals.SourceStatus     `json:"absent,omitempty"`
	Degraded        bool                       `json:"degraded"`
}

// Proof is a profile's proof hash together with the document it hashes.
type Proof struct {
	ProofHash string `json:"proofHash"`
	ProofData string `json:"proofData"`
}

type Config struct {
	PipelineTimeout time.Duration
}

type Service struct {
	collector   *signals.Collector
	calculator  *scoring.Calculator
	store       *profiles.Store
	recommender *recommend.Engine
	exporter    *credentials.Exporter
	anchor      Anchor
	metrics     *Metrics
	config      Config
}

func NewService(collector *signals.Collector, calculator *scoring.Calculator, store *profiles.Store, recommender *recommend.Engine,
	exporter *credentials.Exporter, anchor Anchor, metrics *Metrics, config Config) *Service {
	if anchor == nil {
		anchor = NopAnchor{}
	}
	if config.PipelineTimeout <= 0 {
		config.PipelineTimeout = 30 * time.Second
	}
	collector.OnOutcome(metrics.collection)
	store.OnVerification(metrics.verification)
	return &Service{
		collector:   collector,
		calculator:  calculator,
		store:       store,
		recommender: recommender,
		exporter:    exporter,
		anchor:      anchor,
		metrics:     metrics,
		config:      config,
	}
}

// Store exposes the profile store to adapters that read scores.
func (s *Service) Store() *profiles.Store {
	return s.store
}

// Initialize runs the whole pipeline for address. The pipeline is detached from ctx so that a
// caller giving up does not leave a half written profile; the caller just stops waiting.
func (s *Service) Initialize(ctx context.Context, address string) (Report, error) {
	account, err := library.NormalizeAddress(address)
	if err != nil {
		return Report{}, err
	}
	return s.detached(ctx, account)
}

// UpdateScore re-runs the pipeline for an address that already has a profile.
func (s *Service) UpdateScore(ctx context.Context, address string) (Report, error) {
	account, err := library.NormalizeAddress(address)
	if err != nil {
		return Report{}, err
	}
	if _, err := s.store.Get(ctx, account); err != nil {
		return Report{}, err
	}
	return s.detached(ctx, account)
}

type pipelineResult struct {
	report Report
	err    error
}

func (s *Service) detached(ctx context.Context, address library.Account) (Report, error) {
	done := make(chan pipelineResult, 1)
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.config.PipelineTimeout)
	go func() {
		defer cancel()
		report, err := s.pipeline(pctx, address)
		done <- pipelineResult{report: report, err: err}
	}()
	select {
	case <-ctx.Done():
		return Report{}, ctx.Err()
	case res := <-done:
		return res.report, res.err
	}
}

func (s *Service) pipeline(ctx context.Context, address library.Account) (Report, error) {
	start := time.Now()
	collection, err := s.collector.Collect(ctx, address)
	if err != nil {
		if errors.Is(err, library.ErrAllSourcesUnavailable) {
			s.metrics.allSourcesFailed()
		}
		return Report{}, err
	}
	explanation := s.calculator.Explain(collection.Activities, collection.Social)
	score := explanation.Score(time.Now().UTC())
	s.metrics.scored(score.Overall)

	stored, err := s.store.Store(ctx, address, score)
	if err != nil {
		return Report{}, err
	}
	s.metrics.stored()
	if err := s.anchor.Anchor(ctx, address, score, stored.ProofHash); err != nil {
		s.metrics.anchorFailed()
		library.LogCLI(fmt.Sprintf("anchoring score of %s: %s", address, err), 2)
	}

	profile, err := s.store.Get(ctx, address)
	if err != nil {
		return Report{}, err
	}
	handles, err := s.store.Handles(ctx, address)
	if err != nil {
		return Report{}, err
	}
	s.metrics.pipelineDone(time.Since(start), collection.Degraded)
	library.LogCLI(fmt.Sprintf("scored %s: overall %d (degraded: %t)", address, score.Overall, collection.Degraded), 4)
	return Report{
		Profile:         profile,
		Activities:      collection.Activities,
		Recommendations: s.recommender.Recommend(address, explanation, handles),
		Absent:          collection.Absent,
		Degraded:        collection.Degraded,
	}, nil
}

// Explain collects fresh signals and explains the score they produce without storing it.
func (s *Service) Explain(ctx context.Context, address string) (scoring.Explanation, error) {
	account, err := library.NormalizeAddress(address)
	if err != nil {
		return scoring.Explanation{}, err
	}
	collection, err := s.collector.Collect(ctx, account)
	if err != nil {
		return scoring.Explanation{}, err
	}
	return s.calculator.Explain(collection.Activities, collection.Social), nil
}

// Activities collects fresh signals and lists the activities of one type, newest first. An empty
// type lists everything and a non-positive limit returns all matches.
func (s *Service) Activities(ctx context.Context, address string, kind signals.ActivityType, limit int) ([]signals.Activity, error) {
	account, err := library.NormalizeAddress(address)
	if err != nil {
		return nil, err
	}
	collection, err := s.collector.Collect(ctx, account)
	if err != nil {
		return nil, err
	}
	activities := []signals.Activity{}
	for _, a := range collection.Activities {
		if kind == "" || a.Type == kind {
			activities = append(activities, a)
		}
	}
	sort.SliceStable(activities, func(i, j int) bool {
		return activities[i].Timestamp.After(activities[j].Timestamp)
	})
	if limit > 0 && len(activities) > limit {
		activities = activities[:limit]
	}
	return activities, nil
}

// Recommendations explains the current signals and derives improvement actions.
func (s *Service) Recommendations(ctx context.Context, address string) ([]recommend.Recommendation, error) {
	explanation, err := s.Explain(ctx, address)
	if err != nil {
		return nil, err
	}
	account, _ := library.NormalizeAddress(address)
	handles, err := s.store.Handles(ctx, account)
	if err != nil && !errors.Is(err, library.ErrNotFound) {
		return nil, err
	}
	return s.recommender.Recommend(account, explanation, handles), nil
}

func (s *Service) Profile(ctx context.Context, address string) (profiles.Profile, error) {
	account, err := library.NormalizeAddress(address)
	if err != nil {
		return profiles.Profile{}, err
	}
	return s.store.Get(ctx, account)
}

func (s *Service) History(ctx context.Context, address string) ([]scoring.Score, error) {
	account, err := library.NormalizeAddress(address)
	if err != nil {
		return nil, err
	}
	return s.store.History(ctx, account)
}

// Proof returns the proof hash of the stored profile and the canonical document behind it.
func (s *Service) Proof(ctx context.Context, address string) (Proof, error) {
	p, err := s.Profile(ctx, address)
	if err != nil {
		return Proof{}, err
	}
	data, err := profiles.ProofData(p)
	if err != nil {
		return Proof{}, err
	}
	return Proof{ProofHash: p.ProofHash, ProofData: string(data)}, nil
}

func (s *Service) Link(ctx context.Context, address string, source library.Source, identifier string) (profiles.Profile, error) {
	account, err := library.NormalizeAddress(address)
	if err != nil {
		return profiles.Profile{}, err
	}
	return s.store.Link(ctx, account, source, identifier)
}

func (s *Service) Unlink(ctx context.Context, address string, source library.Source) (profiles.Profile, error) {
	account, err := library.NormalizeAddress(address)
	if err != nil {
		return profiles.Profile{}, err
	}
	return s.store.Unlink(ctx, account, source)
}

// VerifyIdentity verifies the account and, on success, re-scores so the verified account counts
// at full credit. A failed re-score is logged and does not undo the verification.
func (s *Service) VerifyIdentity(ctx context.Context, address string, source library.Source, identifier string) (profiles.VerifyResult, error) {
	account, err := library.NormalizeAddress(address)
	if err != nil {
		return profiles.VerifyResult{}, err
	}
	res, err := s.store.VerifyIdentity(ctx, account, source, identifier)
	if err != nil || !res.Success {
		return res, err
	}
	if _, err := s.detached(ctx, account); err != nil {
		library.LogCLI(fmt.Sprintf("re-scoring %s after %s verification: %s", account, source, err), 2)
	}
	return res, nil
}

// ExportCredential returns nil, nil when the address has no profile.
func (s *Service) ExportCredential(ctx context.Context, address string) (*credentials.Export, error) {
	account, err := library.NormalizeAddress(address)
	if err != nil {
		return nil, err
	}
	export, err := s.exporter.Export(ctx, account)
	if err != nil || export == nil {
		return export, err
	}
	s.metrics.credentialIssued()
	return export, nil
}

func (s *Service) VerifyCredential(ctx context.Context, credential string) (credentials.Verification, error) {
	return s.exporter.Verify(ctx, credential)
}
