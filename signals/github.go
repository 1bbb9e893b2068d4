package signals

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"zentry/engine/library"
)

type GitHubSource struct {
	api    string
	token  string
	client *http.Client
}

func NewGitHubSource(api, token string, client *http.Client) *GitHubSource {
	return &GitHubSource{api: strings.TrimRight(api, "/"), token: token, client: defaultClient(client)}
}

func (s *GitHubSource) Name() string { return library.GitHub }

type githubUser struct {
	PublicRepos int `json:"public_repos"`
	Followers   int `json:"followers"`
}

type githubRepo struct {
	Stars int  `json:"stargazers_count"`
	Fork  bool `json:"fork"`
}

type githubEvent struct {
	Type string `json:"type"`
}

var contributionEvents = map[string]bool{
	"PushEvent":                     true,
	"PullRequestEvent":              true,
	"PullRequestReviewEvent":        true,
	"PullRequestReviewCommentEvent": true,
	"IssuesEvent":                   true,
	"CreateEvent":                   true,
	"ReleaseEvent":                  true,
}

func (s *GitHubSource) Fetch(ctx context.Context, _ library.Account, handles Handles) (Batch, error) {
	h, ok := handles[library.GitHub]
	if !ok || h.Identifier == "" {
		return Batch{}, ErrNotApplicable
	}
	user := url.PathEscape(h.Identifier)
	headers := map[string]string{"Accept": "application/vnd.github+json"}
	if s.token != "" {
		headers["Authorization"] = "Bearer " + s.token
	}

	var u githubUser
	if err := getJSON(ctx, s.client, fmt.Sprintf("%s/users/%s", s.api, user), headers, &u); err != nil {
		return Batch{}, err
	}
	var repos []githubRepo
	if err := getJSON(ctx, s.client, fmt.Sprintf("%s/users/%s/repos?per_page=100", s.api, user), headers, &repos); err != nil {
		return Batch{}, err
	}
	var events []githubEvent
	if err := getJSON(ctx, s.client, fmt.Sprintf("%s/users/%s/events/public?per_page=100", s.api, user), headers, &events); err != nil {
		return Batch{}, err
	}

	var stars, contributions int
	for _, r := range repos {
		if !r.Fork {
			stars += r.Stars
		}
	}
	for _, e := range events {
		if contributionEvents[e.Type] {
			contributions++
		}
	}
	return Batch{Social: &SocialProfile{
		Source:   library.GitHub,
		Handle:   h.Identifier,
		Verified: h.Verified,
		Metrics: map[string]float64{
			MetricRepos:         float64(u.PublicRepos),
			MetricStars:         float64(stars),
			MetricContributions: float64(contributions),
			MetricFollowers:     float64(u.Followers),
		},
	}}, nil
}
