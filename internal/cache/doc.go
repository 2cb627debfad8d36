// Package cache provides a bounded LRU of pairwise kernel values.
//
// Keys are unordered pairs of vector IDs. A vector receives a fresh ID
// whenever its content changes, so stale entries are never returned; they age
// out of the LRU or are dropped with Forget.
//
// Entries are charged against an optional resource.Controller. When the
// controller refuses memory the value is simply not cached.
package cache
