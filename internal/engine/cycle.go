package engine

import "sync"

// CycleDetector tracks URL write-backs per flow to prevent navigation loops.
//
// A flow starts with each externally observed route change. Within a flow
// the URL-sync effect may navigate to bring the address bar in line with
// state; navigating to the same target twice in one flow means hydration
// and write-back are chasing each other.
//
// Example cycle:
//
//	URL /politician/7 → hydrate selects 7 → state shows comparison
//	→ write-back navigates to /politician/compare?ids=5,9 → hydrate …
//	→ write-back would navigate to /politician/compare?ids=5,9 again ← CYCLE
//
// Thread-safe: can be called concurrently.
type CycleDetector struct {
	mu      sync.Mutex
	history map[string]map[string]bool // map[flow_token]map[target]bool
}

// NewCycleDetector creates a new cycle detector.
func NewCycleDetector() *CycleDetector {
	return &CycleDetector{
		history: make(map[string]map[string]bool),
	}
}

// WouldCycle reports whether target has already been recorded in this flow.
func (c *CycleDetector) WouldCycle(flowToken, target string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.history[flowToken] == nil {
		return false
	}
	return c.history[flowToken][target]
}

// Record marks target as visited in this flow. Call it right after
// WouldCycle returns false, before navigating.
func (c *CycleDetector) Record(flowToken, target string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.history[flowToken] == nil {
		c.history[flowToken] = make(map[string]bool)
	}
	c.history[flowToken][target] = true
}

// Clear removes all history for a flow token.
func (c *CycleDetector) Clear(flowToken string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.history, flowToken)
}

// HistorySize returns the number of flows with tracked history.
func (c *CycleDetector) HistorySize() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.history)
}

// FlowHistorySize returns the number of targets recorded for a flow.
func (c *CycleDetector) FlowHistorySize(flowToken string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.history[flowToken])
}
