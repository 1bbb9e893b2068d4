package main

import (
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/viper"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"zentry/adapters/airdrop"
	"zentry/adapters/gate"
	"zentry/adapters/voting"
	"zentry/api"
	"zentry/credentials"
	"zentry/engine/actors"
	"zentry/engine/library"
	"zentry/profiles"
	"zentry/recommend"
	"zentry/reputation"
	"zentry/scoring"
	"zentry/signals"
)

// app holds every long lived component built from one set of settings.
type app struct {
	conf     *viper.Viper
	settings actors.Settings
	wallet   library.Wallet
	store    *profiles.Store
	service  *reputation.Service
	handler  *api.Handler
}

func build(conf *viper.Viper) (*app, error) {
	settings := actors.LoadSettings(conf)
	library.SetLogLevel(settings.LogLevel)
	client := &http.Client{Timeout: settings.SourceTimeout}

	store, err := buildStore(settings, client)
	if err != nil {
		return nil, err
	}
	weights := scoring.Weights{
		Trustworthiness: settings.Weights.Trustworthiness,
		Governance:      settings.Weights.Governance,
		Technical:       settings.Weights.Technical,
		Community:       settings.Weights.Community,
	}
	calculator, err := scoring.NewCalculator(weights)
	if err != nil {
		store.Close()
		return nil, err
	}
	wallet, err := actors.LoadWallet(settings.RootDir)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("loading issuer wallet: %w", err)
	}

	var anchor reputation.Anchor = reputation.NopAnchor{}
	if len(settings.AnchorRelays) > 0 {
		anchor = reputation.NewNostrAnchor(wallet, settings.AnchorRelays, settings.SourceTimeout, nil)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	service := reputation.NewService(
		signals.NewCollector(store, settings.SourceTimeout, buildSources(settings, client)...),
		calculator,
		store,
		recommend.NewEngine(settings.RecommendationLimit),
		credentials.NewExporter(store, wallet, settings.IssuerName, settings.CredentialValidity),
		anchor,
		reputation.NewMetrics(registry),
		reputation.Config{PipelineTimeout: settings.PipelineTimeout},
	)
	return &app{
		conf:     conf,
		settings: settings,
		wallet:   wallet,
		store:    store,
		service:  service,
		handler: &api.Handler{
			Service:  service,
			Gates:    gate.NewRegistry(store),
			Votes:    voting.NewRegistry(store, voting.LinearWeight{MinScore: settings.VoteMinScore}),
			Airdrops: airdrop.NewRegistry(store, airdrop.LinearMultiplier{Pivot: settings.AirdropPivot}, nil),
			Metrics:  registry,
		},
	}, nil
}

func buildStore(settings actors.Settings, client *http.Client) (*profiles.Store, error) {
	var backend profiles.Backend
	switch settings.StoreBackend {
	case "badger":
		b, err := profiles.NewBadgerBackend(filepath.Join(settings.RootDir, settings.BadgerDir))
		if err != nil {
			return nil, fmt.Errorf("opening badger store: %w", err)
		}
		backend = b
	case "memory", "":
		flat := actors.NewFlatFile(settings)
		m, err := profiles.NewMemoryBackend(&flat)
		if err != nil {
			return nil, err
		}
		backend = m
	default:
		return nil, fmt.Errorf("unknown store backend %q", settings.StoreBackend)
	}
	cache, err := profiles.NewProfileCache(settings.CacheSize)
	if err != nil {
		backend.Close()
		return nil, err
	}
	verifiers := profiles.DefaultVerifiers(settings, client)
	if settings.Dev {
		verifiers = profiles.Verifiers{}
		for _, source := range library.SupportedSources {
			verifiers[source] = profiles.StaticVerifier{Result: true}
		}
	}
	return profiles.NewStore(backend, cache, verifiers, settings.HistoryDepth), nil
}

func buildSources(settings actors.Settings, client *http.Client) []signals.Source {
	if settings.Dev {
		return signals.DevSources()
	}
	var sources []signals.Source
	networks := maps.Keys(settings.ChainIndexers)
	slices.Sort(networks)
	for _, network := range networks {
		sources = append(sources, signals.NewChainSource(network, settings.ChainIndexers[network], settings.ActivityLimit, client))
	}
	sources = append(sources,
		signals.NewGitHubSource(settings.GitHubAPI, settings.GitHubToken, client),
		signals.NewStackExchangeSource(settings.StackExchangeAPI, client),
		signals.NewNostrSource(settings.NostrRelays, settings.SourceTimeout, actors.FetchFromRelays),
	)
	if settings.TwitterToken != "" {
		sources = append(sources, signals.NewTwitterSource(settings.TwitterAPI, settings.TwitterToken, client))
	}
	if settings.LinkedInAPI != "" {
		sources = append(sources, signals.NewLinkedInSource(settings.LinkedInAPI, settings.LinkedInToken, client))
	}
	return sources
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		library.LogCLI(err, 2)
	}
}
