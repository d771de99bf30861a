package cache

import "time"

// Cache is the interface for the in-process caches (baselines, backfilled
// trade history, market metadata).
type Cache interface {
	// Get retrieves a value from the cache.
	// Returns (value, true) if found, (nil, false) if not found.
	Get(key string) (interface{}, bool)

	// Set stores a value in the cache with a TTL.
	Set(key string, value interface{}, ttl time.Duration) bool

	// Delete removes a value from the cache.
	Delete(key string)

	// Clear removes all values from the cache.
	Clear()

	// Close closes the cache and releases resources.
	Close()
}

// Namespaced shares one underlying cache between components. Keys are
// prefixed and hit/miss metrics are labelled with the namespace.
type Namespaced struct {
	inner     Cache
	namespace string
}

// WithNamespace wraps c so every key is stored as "<namespace>:<key>".
func WithNamespace(c Cache, namespace string) *Namespaced {
	return &Namespaced{inner: c, namespace: namespace}
}

func (n *Namespaced) key(k string) string {
	return n.namespace + ":" + k
}

// Get retrieves a value from the namespace.
func (n *Namespaced) Get(key string) (interface{}, bool) {
	v, ok := n.inner.Get(n.key(key))
	if ok {
		NamespaceHitsTotal.WithLabelValues(n.namespace).Inc()
	} else {
		NamespaceMissesTotal.WithLabelValues(n.namespace).Inc()
	}
	return v, ok
}

// Set stores a value in the namespace.
func (n *Namespaced) Set(key string, value interface{}, ttl time.Duration) bool {
	return n.inner.Set(n.key(key), value, ttl)
}

// Delete removes a value from the namespace.
func (n *Namespaced) Delete(key string) {
	n.inner.Delete(n.key(key))
}

// Clear clears the whole underlying cache; ristretto has no prefix scan.
func (n *Namespaced) Clear() {
	n.inner.Clear()
}

// Close is a no-op; the owner of the underlying cache closes it.
func (n *Namespaced) Close() {}
