// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package progress fans pipeline progress out to subscribers: an in-process
// pub/sub hub plus the worker's HTTP surface (websocket stream and polling
// fallback).
package progress

import (
	"fmt"
	"sync"

	"github.com/pdiddy/plan-engine/pkg/types"
)

// subscriberBuffer is the per-subscriber channel depth. Publishing never
// blocks; a subscriber that falls this far behind loses events.
const subscriberBuffer = 16

// Topic is the pub/sub topic for one job's progress stream.
func Topic(jobID string) string {
	return fmt.Sprintf("job:%s:progress", jobID)
}

// Hub is a topic-keyed fan-out of progress events.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[chan types.ProgressEvent]struct{}
	closed bool
}

// NewHub builds an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[chan types.ProgressEvent]struct{})}
}

// Subscribe registers for a topic. The returned cancel function must be
// called to release the subscription; it is safe to call more than once.
func (h *Hub) Subscribe(topic string) (<-chan types.ProgressEvent, func()) {
	ch := make(chan types.ProgressEvent, subscriberBuffer)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	if h.subs[topic] == nil {
		h.subs[topic] = make(map[chan types.ProgressEvent]struct{})
	}
	h.subs[topic][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if set, ok := h.subs[topic]; ok {
				delete(set, ch)
				if len(set) == 0 {
					delete(h.subs, topic)
				}
				close(ch)
			}
		})
	}
	return ch, cancel
}

// Publish delivers the event to every subscriber of the topic without
// blocking. Slow subscribers miss events rather than stalling the pipeline.
func (h *Hub) Publish(topic string, ev types.ProgressEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return
	}
	for ch := range h.subs[topic] {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Close shuts the hub down and closes all subscriber channels.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for topic, set := range h.subs {
		for ch := range set {
			close(ch)
		}
		delete(h.subs, topic)
	}
}
