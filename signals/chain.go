package signals

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"zentry/engine/library"
)

// ChainSource reads on-chain activity (transactions, DAO votes, DeFi and NFT actions) for an
// address from one network's indexer.
//
// The indexer contract is GET {base}/v1/addresses/{address}/activities?limit=N answering
// {"activities": [Activity...]}.
type ChainSource struct {
	network string
	baseURL string
	limit   int
	client  *http.Client
}

func NewChainSource(network, baseURL string, limit int, client *http.Client) *ChainSource {
	if limit <= 0 {
		limit = 100
	}
	return &ChainSource{
		network: network,
		baseURL: strings.TrimRight(baseURL, "/"),
		limit:   limit,
		client:  defaultClient(client),
	}
}

func (s *ChainSource) Name() string {
	return "chain:" + s.network
}

type indexerResponse struct {
	Activities []Activity `json:"activities"`
}

func (s *ChainSource) Fetch(ctx context.Context, address library.Account, _ Handles) (Batch, error) {
	u := fmt.Sprintf("%s/v1/addresses/%s/activities?limit=%d", s.baseURL, url.PathEscape(address), s.limit)
	var resp indexerResponse
	if err := getJSON(ctx, s.client, u, nil, &resp); err != nil {
		return Batch{}, err
	}
	for i := range resp.Activities {
		if resp.Activities[i].Network == "" {
			resp.Activities[i].Network = s.network
		}
		if resp.Activities[i].Impact == "" {
			resp.Activities[i].Impact = Neutral
		}
	}
	return Batch{Activities: resp.Activities}, nil
}
