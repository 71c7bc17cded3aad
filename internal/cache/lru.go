// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Semdex Contributors

package cache

import (
	"container/list"
	"strings"
	"sync"
	"time"
)

// lruStore is the bounded in-process tier. A plain Mutex guards it because
// reads mutate recency order.
type lruStore struct {
	mu       sync.Mutex
	capacity int
	ll       *list.List // front = most recently used
	items    map[string]*list.Element
}

type lruEntry struct {
	key    string
	value  []byte
	expiry time.Time // zero = never expires
}

func newLRUStore(capacity int) *lruStore {
	return &lruStore{
		capacity: capacity,
		ll:       list.New(),
		items:    make(map[string]*list.Element),
	}
}

// get returns the value for key, refreshing its recency. Expired entries
// are removed lazily here.
func (s *lruStore) get(key string, now time.Time) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	elem, ok := s.items[key]
	if !ok {
		return nil, false
	}

	entry := elem.Value.(*lruEntry)
	if !entry.expiry.IsZero() && now.After(entry.expiry) {
		s.ll.Remove(elem)
		delete(s.items, key)
		return nil, false
	}

	s.ll.MoveToFront(elem)
	return entry.value, true
}

// put inserts or updates key, evicting the least-recently-used entry when
// over capacity.
func (s *lruStore) put(key string, value []byte, expiry time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if elem, ok := s.items[key]; ok {
		entry := elem.Value.(*lruEntry)
		entry.value = value
		entry.expiry = expiry
		s.ll.MoveToFront(elem)
		return
	}

	elem := s.ll.PushFront(&lruEntry{key: key, value: value, expiry: expiry})
	s.items[key] = elem

	if s.ll.Len() > s.capacity {
		oldest := s.ll.Back()
		if oldest != nil {
			s.ll.Remove(oldest)
			delete(s.items, oldest.Value.(*lruEntry).key)
		}
	}
}

func (s *lruStore) remove(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if elem, ok := s.items[key]; ok {
		s.ll.Remove(elem)
		delete(s.items, key)
	}
}

// removeMatching removes every entry whose key contains substring and
// returns the removed keys.
func (s *lruStore) removeMatching(substring string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed []string
	for key, elem := range s.items {
		if strings.Contains(key, substring) {
			s.ll.Remove(elem)
			delete(s.items, key)
			removed = append(removed, key)
		}
	}
	return removed
}

func (s *lruStore) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ll.Init()
	s.items = make(map[string]*list.Element)
}

func (s *lruStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ll.Len()
}
