package signals

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/exp/slices"
	"zentry/engine/library"
)

type ActivityType string

const (
	DaoVote        ActivityType = "dao_vote"
	DeFi           ActivityType = "defi"
	NFT            ActivityType = "nft"
	ContractDeploy ActivityType = "contract_deploy"
	Transfer       ActivityType = "transfer"
	SocialPost     ActivityType = "social"
)

var ActivityTypes = []ActivityType{DaoVote, DeFi, NFT, ContractDeploy, Transfer, SocialPost}

// ParseActivityType accepts the wire names above. An empty name means every type.
func ParseActivityType(name string) (ActivityType, error) {
	t := ActivityType(strings.ToLower(strings.TrimSpace(name)))
	if t == "" || slices.Contains(ActivityTypes, t) {
		return t, nil
	}
	return "", fmt.Errorf("unknown activity type %q", name)
}

type Impact string

const (
	Positive Impact = "positive"
	Neutral  Impact = "neutral"
	Negative Impact = "negative"
)

// Activity is an immutable on-chain or social event attributed to an address.
type Activity struct {
	ID          string       `json:"id"`
	Type        ActivityType `json:"type"`
	Description string       `json:"description"`
	Timestamp   time.Time    `json:"timestamp"`
	Network     string       `json:"network"`
	Impact      Impact       `json:"impact"`
	SourceRef   string       `json:"sourceRef"` // tx hash or URL
	BlockNumber uint64       `json:"blockNumber,omitempty"`
	Action      string       `json:"action,omitempty"` // repay, mint, for, against...
	Venue       string       `json:"venue,omitempty"`  // DAO name, protocol or collection
}

// Metric names carried in SocialProfile.Metrics.
const (
	MetricRepos         = "repos"
	MetricStars         = "stars"
	MetricContributions = "contributions"
	MetricFollowers     = "followers"
	MetricFollowing     = "following"
	MetricTweets        = "tweets"
	MetricConnections   = "connections"
	MetricEndorsements  = "endorsements"
	MetricReputation    = "reputation"
	MetricGoldBadges    = "gold"
	MetricSilverBadges  = "silver"
	MetricBronzeBadges  = "bronze"
	MetricNotes         = "notes"
)

// SocialProfile is the raw payload one social platform returned for a linked handle.
type SocialProfile struct {
	Source   library.Source     `json:"source"`
	Handle   string             `json:"handle"`
	Verified bool               `json:"verified"`
	Metrics  map[string]float64 `json:"metrics"`
}

func (p SocialProfile) Metric(name string) float64 {
	if p.Metrics == nil {
		return 0
	}
	return p.Metrics[name]
}

// Handle is a linked external account as the collector sees it.
type Handle struct {
	Identifier string
	Verified   bool
}

type Handles map[library.Source]Handle

// HandleResolver supplies the linked accounts of an address, normally the profile store.
type HandleResolver interface {
	Handles(ctx context.Context, address library.Account) (Handles, error)
}

// Batch is what one source returns.
type Batch struct {
	Activities []Activity
	Social     *SocialProfile
}

// Source fetches signals for an address from one backend.
type Source interface {
	Name() string
	Fetch(ctx context.Context, address library.Account, handles Handles) (Batch, error)
}

// ErrNotApplicable is returned by a source that has nothing to look up, e.g. no linked handle.
// It is neither a success nor a failure.
var ErrNotApplicable = errors.New("source not applicable")

type SourceStatus struct {
	Source string `json:"source"`
	Error  string `json:"error"`
}

// Collection is the merged result of every source for one address.
type Collection struct {
	Address    library.Account                  `json:"address"`
	Activities []Activity                       `json:"activities"`
	Social     map[library.Source]SocialProfile `json:"social"`
	Absent     []SourceStatus                   `json:"absent,omitempty"`
	Degraded   bool                             `json:"degraded"`
}
