package stream

import (
	"context"
	"slices"
	"strconv"
	"strings"
	"sync"
)

// Feed owns the single active subscription for a consumer and replaces it
// when the subscribed id set or interval changes.
type Feed struct {
	subscriber *Subscriber

	mu      sync.Mutex
	current *Subscription
	key     string
}

// NewFeed creates a feed with no active subscription.
func NewFeed(s *Subscriber) *Feed {
	return &Feed{subscriber: s}
}

// Resubscribe makes ids/interval the active subscription. When the request
// matches the current one and it is still running, the current subscription
// is returned unchanged. Otherwise the old connection is torn down before the
// new one is opened, so no batch from it is delivered afterwards. The
// returned bool reports whether a new subscription was opened.
func (f *Feed) Resubscribe(ctx context.Context, ids []string, interval int) (*Subscription, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := subscriptionKey(ids, interval)
	if f.current != nil && f.key == key && !f.current.Finished() {
		return f.current, false, nil
	}

	if f.current != nil {
		f.current.Close()
		f.current = nil
		f.key = ""
	}

	sub, err := f.subscriber.Subscribe(ctx, ids, interval)
	if err != nil {
		return nil, false, err
	}
	f.current = sub
	f.key = key
	return sub, true, nil
}

// Current returns the active subscription, or nil.
func (f *Feed) Current() *Subscription {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

// Close tears down the active subscription.
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.current != nil {
		f.current.Close()
		f.current = nil
		f.key = ""
	}
}

// subscriptionKey treats ids as a set.
func subscriptionKey(ids []string, interval int) string {
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)
	return strings.Join(sorted, ",") + "|" + strconv.Itoa(interval)
}
