package signals

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"zentry/engine/library"
)

// StackExchangeSource reads a StackOverflow user by numeric id.
type StackExchangeSource struct {
	api    string
	client *http.Client
}

func NewStackExchangeSource(api string, client *http.Client) *StackExchangeSource {
	return &StackExchangeSource{api: strings.TrimRight(api, "/"), client: defaultClient(client)}
}

func (s *StackExchangeSource) Name() string { return library.StackOverflow }

type stackUsers struct {
	Items []struct {
		Reputation  int `json:"reputation"`
		BadgeCounts struct {
			Gold   int `json:"gold"`
			Silver int `json:"silver"`
			Bronze int `json:"bronze"`
		} `json:"badge_counts"`
	} `json:"items"`
}

func (s *StackExchangeSource) Fetch(ctx context.Context, _ library.Account, handles Handles) (Batch, error) {
	h, ok := handles[library.StackOverflow]
	if !ok || h.Identifier == "" {
		return Batch{}, ErrNotApplicable
	}
	var resp stackUsers
	u := fmt.Sprintf("%s/2.3/users/%s?site=stackoverflow", s.api, url.PathEscape(h.Identifier))
	if err := getJSON(ctx, s.client, u, nil, &resp); err != nil {
		return Batch{}, err
	}
	if len(resp.Items) == 0 {
		return Batch{}, fmt.Errorf("stackoverflow user %s: %w", h.Identifier, library.ErrSourceUnavailable)
	}
	item := resp.Items[0]
	return Batch{Social: &SocialProfile{
		Source:   library.StackOverflow,
		Handle:   h.Identifier,
		Verified: h.Verified,
		Metrics: map[string]float64{
			MetricReputation:   float64(item.Reputation),
			MetricGoldBadges:   float64(item.BadgeCounts.Gold),
			MetricSilverBadges: float64(item.BadgeCounts.Silver),
			MetricBronzeBadges: float64(item.BadgeCounts.Bronze),
		},
	}}, nil
}
