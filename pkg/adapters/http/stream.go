package http

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/aretw0/rowflow/pkg/domain"
	"github.com/goccy/go-json"
)

// StreamManager fans result diffs out to the SSE clients watching a row.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan<- string]struct{} // RowID -> Set of Channels
	logger      *slog.Logger
}

func NewStreamManager(logger *slog.Logger) *StreamManager {
	return &StreamManager{
		subscribers: make(map[string]map[chan<- string]struct{}),
		logger:      logger,
	}
}

// Subscribe registers a buffered channel for rowID. The returned function
// unregisters and closes it.
func (sm *StreamManager) Subscribe(rowID string) (chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 10)
	if _, ok := sm.subscribers[rowID]; !ok {
		sm.subscribers[rowID] = make(map[chan<- string]struct{})
	}
	sm.subscribers[rowID][ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if subs, ok := sm.subscribers[rowID]; ok {
			delete(subs, ch)
			close(ch)
			if len(subs) == 0 {
				delete(sm.subscribers, rowID)
			}
		}
	}
}

// Subscribers reports how many clients currently watch rowID.
func (sm *StreamManager) Subscribers(rowID string) int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.subscribers[rowID])
}

func (sm *StreamManager) Broadcast(rowID string, msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	subs, ok := sm.subscribers[rowID]
	if !ok {
		return
	}
	sm.logger.Debug("broadcasting diff", "row_id", rowID, "subscribers", len(subs), "payload_size", len(msg))
	for ch := range subs {
		select {
		case ch <- msg:
		default:
			// slow client
			sm.logger.Warn("SSE client buffer full, dropping message", "row_id", rowID)
		}
	}
}

// parseWatch splits the watch query parameter into a set of diff sections.
func parseWatch(raw string) map[string]bool {
	if raw == "" {
		return nil
	}
	sections := make(map[string]bool)
	for _, field := range strings.Split(raw, ",") {
		if field = strings.TrimSpace(field); field != "" {
			sections[field] = true
		}
	}
	return sections
}

// matchesWatch reports whether an encoded diff touches any watched section.
// Messages that cannot be decoded are passed through.
func matchesWatch(msg string, watch map[string]bool) bool {
	if len(watch) == 0 {
		return true
	}
	var diff domain.ResultDiff
	if err := json.Unmarshal([]byte(msg), &diff); err != nil {
		return true
	}
	return (watch["summary"] && diff.Summary != nil) ||
		(watch["current"] && (diff.Current != nil || diff.FirstFailure != nil)) ||
		(watch["feedback"] && len(diff.Feedback) > 0) ||
		(watch["auto_filled"] && len(diff.AutoFilled) > 0)
}
