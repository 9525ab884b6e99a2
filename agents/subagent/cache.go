/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package subagent

import (
	"strings"
	"sync"
)

// Cache holds sub-agent reports for the lifetime of one review.
type Cache struct {
	mu     sync.RWMutex
	byGoal map[string]string
	byRole map[string]string
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{byGoal: make(map[string]string), byRole: make(map[string]string)}
}

func roleKey(goal string) string {
	return strings.ToLower(BracketToken(goal))
}

// Lookup finds a report by exact goal, then by the goal's first bracketed token.
func (c *Cache) Lookup(goal string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if r, ok := c.byGoal[goal]; ok {
		return r, true
	}
	if key := roleKey(goal); key != "" {
		r, ok := c.byRole[key]
		return r, ok
	}
	return "", false
}

// Store records report for goal.
func (c *Cache) Store(goal, report string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byGoal[goal] = report
	if key := roleKey(goal); key != "" {
		c.byRole[key] = report
	}
}

// Len is the number of distinct goals cached.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byGoal)
}
