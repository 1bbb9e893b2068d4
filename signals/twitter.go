package signals

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"zentry/engine/library"
)

type TwitterSource struct {
	api    string
	token  string
	client *http.Client
}

func NewTwitterSource(api, bearerToken string, client *http.Client) *TwitterSource {
	return &TwitterSource{api: strings.TrimRight(api, "/"), token: bearerToken, client: defaultClient(client)}
}

func (s *TwitterSource) Name() string { return library.Twitter }

type twitterUser struct {
	Data struct {
		PublicMetrics struct {
			Followers int `json:"followers_count"`
			Following int `json:"following_count"`
			Tweets    int `json:"tweet_count"`
		} `json:"public_metrics"`
	} `json:"data"`
}

func (s *TwitterSource) Fetch(ctx context.Context, _ library.Account, handles Handles) (Batch, error) {
	h, ok := handles[library.Twitter]
	if !ok || h.Identifier == "" {
		return Batch{}, ErrNotApplicable
	}
	username := url.PathEscape(strings.TrimPrefix(h.Identifier, "@"))
	var resp twitterUser
	u := fmt.Sprintf("%s/2/users/by/username/%s?user.fields=public_metrics", s.api, username)
	if err := getJSON(ctx, s.client, u, map[string]string{"Authorization": "Bearer " + s.token}, &resp); err != nil {
		return Batch{}, err
	}
	m := resp.Data.PublicMetrics
	return Batch{Social: &SocialProfile{
		Source:   library.Twitter,
		Handle:   h.Identifier,
		Verified: h.Verified,
		Metrics: map[string]float64{
			MetricFollowers: float64(m.Followers),
			MetricFollowing: float64(m.Following),
			MetricTweets:    float64(m.Tweets),
		},
	}}, nil
}
