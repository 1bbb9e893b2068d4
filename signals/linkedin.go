package signals

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"zentry/engine/library"
)

// LinkedInSource reads a profile summary from a LinkedIn gateway that answers
// GET {api}/profiles/{handle} with {"connections": n, "endorsements": n}.
type LinkedInSource struct {
	api    string
	token  string
	client *http.Client
}

func NewLinkedInSource(api, token string, client *http.Client) *LinkedInSource {
	return &LinkedInSource{api: strings.TrimRight(api, "/"), token: token, client: defaultClient(client)}
}

func (s *LinkedInSource) Name() string { return library.LinkedIn }

type linkedInProfile struct {
	Connections  int `json:"connections"`
	Endorsements int `json:"endorsements"`
}

func (s *LinkedInSource) Fetch(ctx context.Context, _ library.Account, handles Handles) (Batch, error) {
	h, ok := handles[library.LinkedIn]
	if !ok || h.Identifier == "" {
		return Batch{}, ErrNotApplicable
	}
	handle := h.Identifier
	if i := strings.Index(handle, "/in/"); i >= 0 {
		handle = strings.Trim(handle[i+len("/in/"):], "/")
	}
	var resp linkedInProfile
	headers := map[string]string{}
	if s.token != "" {
		headers["Authorization"] = "Bearer " + s.token
	}
	if err := getJSON(ctx, s.client, fmt.Sprintf("%s/profiles/%s", s.api, url.PathEscape(handle)), headers, &resp); err != nil {
		return Batch{}, err
	}
	return Batch{Social: &SocialProfile{
		Source:   library.LinkedIn,
		Handle:   h.Identifier,
		Verified: h.Verified,
		Metrics: map[string]float64{
			MetricConnections:  float64(resp.Connections),
			MetricEndorsements: float64(resp.Endorsements),
		},
	}}, nil
}
