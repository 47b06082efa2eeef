// Package subscription fetches an organization's billing subscription behind a
// retry guard, so polling callers stop hammering the API while it keeps failing.
package subscription

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/florianilch/dataportal/internal/apiclient"
	"github.com/florianilch/dataportal/internal/retryguard"
)

// Subscription is an organization's plan as reported by the data API.
type Subscription struct {
	ID                string     `json:"id"`
	OrganizationID    string     `json:"organizationId"`
	Plan              string     `json:"plan"`
	Status            string     `json:"status"`
	PriceID           string     `json:"priceId,omitempty"`
	CurrentPeriodEnd  *time.Time `json:"currentPeriodEnd,omitempty"`
	CancelAtPeriodEnd bool       `json:"cancelAtPeriodEnd,omitempty"`
}

// Active reports whether the subscription currently grants its plan.
func (s *Subscription) Active() bool {
	return s.Status == "active" || s.Status == "trialing"
}

// Key is the retry guard key for an organization's subscription.
func Key(orgID string) string {
	return "subscription-" + orgID
}

// Fetcher loads subscriptions through a retry guard.
type Fetcher struct {
	api   *apiclient.Client
	guard *retryguard.Guard
}

// NewFetcher creates a Fetcher. A nil guard gets a default one.
func NewFetcher(api *apiclient.Client, guard *retryguard.Guard) *Fetcher {
	if guard == nil {
		guard = retryguard.New()
	}
	return &Fetcher{api: api, guard: guard}
}

// Get returns the organization's subscription. It returns (nil, nil) without
// calling the API while the organization's key is suppressed.
func (f *Fetcher) Get(ctx context.Context, orgID string) (*Subscription, error) {
	if orgID == "" {
		return nil, fmt.Errorf("organization id cannot be empty")
	}

	sub, ok, err := retryguard.Do(ctx, f.guard, Key(orgID), func(ctx context.Context) (*Subscription, error) {
		var s Subscription
		path := "organizations/" + url.PathEscape(orgID) + "/subscription"
		if err := f.api.Do(ctx, http.MethodGet, path, nil, &s); err != nil {
			return nil, err
		}
		return &s, nil
	})
	if err != nil {
		return nil, fmt.Errorf("fetching subscription for %s: %w", orgID, err)
	}
	if !ok {
		return nil, nil
	}
	return sub, nil
}

// Update is one poll result delivered by Watch. Sub and Err are both nil when
// the poll was suppressed.
type Update struct {
	Sub *Subscription
	Err error
}

// Watch polls the subscription every interval, starting immediately, until
// ctx is done or fn returns false.
func (f *Fetcher) Watch(ctx context.Context, orgID string, interval time.Duration, fn func(Update) bool) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		sub, err := f.Get(ctx, orgID)
		if err != nil && ctx.Err() != nil {
			return
		}
		if err != nil {
			slog.WarnContext(ctx, "subscription poll failed", "org", orgID, "error", err)
		}
		if !fn(Update{Sub: sub, Err: err}) {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
