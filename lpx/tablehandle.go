// tablehandle.go - refcounted handle over an immutable ScanTables +
// its derived ScanCache, so scan workers, the renderer, and the
// server can each hold a cheap reference without lifetime hazards.

package lpx

import "sync/atomic"

// TableHandle is a shareable, refcounted reference to one loaded
// ScanTables and its derived ScanCache. Tables and cache are
// immutable once a handle exists; Acquire/Release only manage
// lifetime bookkeeping, never the data itself.
type TableHandle struct {
	tables *ScanTables
	cache  *ScanCache
	refs   atomic.Int32
}

// NewTableHandle loads tables from path, builds the derived scan
// cache, and returns a handle with one outstanding reference.
func NewTableHandle(path string) (*TableHandle, error) {
	tables, err := LoadScanTables(path)
	if err != nil {
		return nil, err
	}
	cache, err := NewScanCache(tables)
	if err != nil {
		return nil, err
	}
	h := &TableHandle{tables: tables, cache: cache}
	h.refs.Store(1)
	return h, nil
}

// Acquire increments the reference count and returns the same handle,
// so callers can pass it around without worrying about the original
// owner releasing it underneath them.
func (h *TableHandle) Acquire() *TableHandle {
	h.refs.Add(1)
	return h
}

// Release decrements the reference count. The tables and cache stay
// live (they hold no external resources) but Release lets callers
// that track lifetimes explicitly know when the last user is done.
func (h *TableHandle) Release() {
	h.refs.Add(-1)
}

// Tables returns the immutable scan tables.
func (h *TableHandle) Tables() *ScanTables { return h.tables }

// Cache returns the derived, immutable pixel-to-cell lookup.
func (h *TableHandle) Cache() *ScanCache { return h.cache }
