// Package api serves the reputation service and its adapters as JSON over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"zentry/engine/library"
)

func New(handler *Handler) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", handler.Health)

	mux.HandleFunc("POST /profiles/{address}", handler.InitializeProfile)
	mux.HandleFunc("GET /profiles/{address}", handler.GetProfile)
	mux.HandleFunc("POST /profiles/{address}/score", handler.UpdateScore)
	mux.HandleFunc("GET /profiles/{address}/history", handler.History)
	mux.HandleFunc("GET /profiles/{address}/proof", handler.Proof)
	mux.HandleFunc("GET /profiles/{address}/explanation", handler.Explain)
	mux.HandleFunc("GET /profiles/{address}/explanation/text", handler.ExplainText)
	mux.HandleFunc("GET /profiles/{address}/recommendations", handler.Recommendations)
	mux.HandleFunc("GET /profiles/{address}/activities", handler.Activities)
	mux.HandleFunc("PUT /profiles/{address}/identities/{source}", handler.LinkIdentity)
	mux.HandleFunc("POST /profiles/{address}/identities/{source}/verify", handler.VerifyIdentity)
	mux.HandleFunc("DELETE /profiles/{address}/identities/{source}", handler.UnlinkIdentity)
	mux.HandleFunc("GET /profiles/{address}/credential", handler.ExportCredential)
	mux.HandleFunc("POST /credentials/verify", handler.VerifyCredential)

	mux.HandleFunc("GET /gates", handler.ListGates)
	mux.HandleFunc("POST /gates", handler.CreateGate)
	mux.HandleFunc("GET /gates/{id}", handler.GetGate)
	mux.HandleFunc("PUT /gates/{id}", handler.UpdateGate)
	mux.HandleFunc("PUT /gates/{id}/status", handler.SetGateStatus)
	mux.HandleFunc("GET /gates/{id}/access/{address}", handler.CheckAccess)
	mux.HandleFunc("GET /thresholds/{address}/{threshold}", handler.VerifyReputationThreshold)
	mux.HandleFunc("GET /thresholds/{address}/components/{component}/{threshold}", handler.VerifyComponentThreshold)

	mux.HandleFunc("GET /proposals", handler.ListProposals)
	mux.HandleFunc("POST /proposals", handler.CreateProposal)
	mux.HandleFunc("GET /proposals/{id}", handler.GetProposal)
	mux.HandleFunc("POST /proposals/{id}/votes", handler.CastVote)
	mux.HandleFunc("GET /proposals/{id}/votes/{address}", handler.GetVote)
	mux.HandleFunc("POST /proposals/{id}/execute", handler.ExecuteProposal)
	mux.HandleFunc("GET /vote-weight/{address}", handler.VoteWeight)

	mux.HandleFunc("GET /campaigns", handler.ListCampaigns)
	mux.HandleFunc("POST /campaigns", handler.CreateCampaign)
	mux.HandleFunc("GET /campaigns/{id}", handler.GetCampaign)
	mux.HandleFunc("POST /campaigns/{id}/end", handler.EndCampaign)
	mux.HandleFunc("GET /campaigns/{id}/amount/{address}", handler.AirdropAmount)
	mux.HandleFunc("GET /campaigns/{id}/claims/{address}", handler.HasClaimed)
	mux.HandleFunc("POST /campaigns/{id}/claims/{address}", handler.ClaimAirdrop)

	gatherer := handler.Metrics
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return logging(mux)
}

func logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		library.LogCLI(fmt.Sprintf("%s %s", r.Method, r.URL.Path), 5)
		next.ServeHTTP(w, r)
	})
}

// Serve runs the API on addr until terminate closes, then drains in-flight requests.
func Serve(addr string, handler http.Handler, terminate <-chan struct{}) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	errs := make(chan error, 1)
	go func() {
		library.LogCLI("serving the reputation API on "+addr, 4)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
		close(errs)
	}()
	select {
	case err := <-errs:
		return err
	case <-terminate:
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down the API: %w", err)
	}
	return <-errs
}
