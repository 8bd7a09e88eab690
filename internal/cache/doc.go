// Package cache provides a generic, size-aware LRU cache.
//
// The embedding client caches latent vectors keyed by the encoded feature
// input. Entries are bounded by count and, when a resource.Controller is
// attached, their bytes are charged against the process memory budget: an
// entry the controller refuses is simply not cached.
package cache
