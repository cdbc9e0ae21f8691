// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package module

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/pdiddy/brainsim/internal/httputil"
)

const summaryEndpoint = "https://en.wikipedia.org/api/rest_v1/page/summary/"

// SummaryFetcher resolves a term to a one-paragraph summary.
type SummaryFetcher func(ctx context.Context, term string) (string, error)

// OnlineInfo drains a queue of terms, one per fire, fetching an
// encyclopedia summary for each and asserting it as a hasSummary
// relationship.
type OnlineInfo struct {
	Base
	mu    sync.Mutex
	queue []string
	fetch SummaryFetcher
}

// NewOnlineInfo returns an OnlineInfo agent. A nil fetch uses the
// Wikipedia REST endpoint.
func NewOnlineInfo(fetch SummaryFetcher) *OnlineInfo {
	if fetch == nil {
		fetch = fetchWikipediaSummary
	}
	return &OnlineInfo{Base: NewBase("OnlineInfo"), fetch: fetch}
}

// AddQuery queues a term for lookup on a future fire.
func (o *OnlineInfo) AddQuery(term string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.queue = append(o.queue, term)
}

// Pending returns the number of queued terms.
func (o *OnlineInfo) Pending() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.queue)
}

func (o *OnlineInfo) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.queue = nil
}

func (o *OnlineInfo) Fire(ctx context.Context) error {
	store := o.Store()
	if store == nil {
		return nil
	}
	o.mu.Lock()
	if len(o.queue) == 0 {
		o.mu.Unlock()
		return nil
	}
	term := o.queue[0]
	o.queue = o.queue[1:]
	o.mu.Unlock()

	summary, err := o.fetch(ctx, term)
	if err != nil {
		return err
	}
	if summary != "" {
		store.AddStatement(term, "hasSummary", summary)
		fmt.Fprintf(o.Output(), "OnlineInfo: stored summary for %s\n", term)
	}
	return nil
}

func fetchWikipediaSummary(ctx context.Context, term string) (string, error) {
	var body struct {
		Extract string `json:"extract"`
	}
	endpoint := summaryEndpoint + url.PathEscape(term)
	if err := httputil.GetJSON(ctx, http.DefaultClient, endpoint, &body); err != nil {
		return "", err
	}
	return body.Extract, nil
}
