// Package cache is the local replica of the user's grocery lists.
//
// The cache is what the UI renders. Lists are replaced wholesale after a
// successful fetch and mutated in place by optimistic actions; every change is
// written through to the kv store. Reads return deep copies.
package cache

import (
	"errors"
	"fmt"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/dixonjam77-max/kitchen-command-center-sub000/internal/kv"
)

// StorageKey is the kv key holding the lists blob.
const StorageKey = "kitchen.grocery.lists"

const blobVersion = 1

// List statuses.
const (
	StatusActive    = "active"
	StatusShopping  = "shopping"
	StatusCompleted = "completed"
	StatusArchived  = "archived"
)

// List is a cached grocery list.
type List struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Status        string  `json:"status"`
	Store         string  `json:"store,omitempty"`
	EstimatedCost float64 `json:"estimated_cost,omitempty"`
	Notes         string  `json:"notes,omitempty"`
	Items         []Item  `json:"items"`
}

// Item is a cached grocery list line. Only Checked and AddedToPantry change
// locally; everything else is server-owned.
type Item struct {
	ID            string  `json:"id"`
	ItemName      string  `json:"item_name"`
	Quantity      float64 `json:"quantity,omitempty"`
	Unit          string  `json:"unit,omitempty"`
	Category      string  `json:"category,omitempty"`
	Checked       bool    `json:"checked"`
	AddedToPantry bool    `json:"added_to_pantry"`
	Source        string  `json:"source,omitempty"`
	Notes         string  `json:"notes,omitempty"`
}

// CheckedCount returns how many items are checked.
func (l List) CheckedCount() int {
	n := 0
	for _, it := range l.Items {
		if it.Checked {
			n++
		}
	}
	return n
}

type blob struct {
	Version    int        `json:"version"`
	LastSynced *time.Time `json:"last_synced,omitempty"`
	Lists      []List     `json:"lists"`
}

// Store is safe for concurrent use.
type Store struct {
	mu         sync.RWMutex
	kv         kv.Store
	log        zerolog.Logger
	now        func() time.Time
	lists      []List
	lastSynced time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for persistence failures.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) { s.log = l }
}

// WithClock overrides time.Now for lastSynced stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New returns an empty cache persisting into store. Call Load to rehydrate.
func New(store kv.Store, opts ...Option) *Store {
	s := &Store{kv: store, log: zerolog.Nop(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load replaces in-memory state with the persisted blob. Missing, unreadable
// or corrupt data leaves the cache empty; failures are logged only.
func (s *Store) Load() {
	raw, err := s.kv.Get(StorageKey)
	if err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			s.log.Error().Err(err).Msg("read list cache; starting empty")
		}
		raw = nil
	}
	s.Restore(raw)
}

// Restore replaces in-memory state with raw, a blob read from StorageKey.
// Nil raw empties the cache. It reports false when raw is corrupt or has an
// unknown version, in which case the cache is left empty.
func (s *Store) Restore(raw []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lists, s.lastSynced = nil, time.Time{}
	if raw == nil {
		return true
	}
	var b blob
	if err := json.Unmarshal(raw, &b); err != nil {
		s.log.Error().Err(err).Msg("corrupt list cache; starting empty")
		return false
	}
	if b.Version != blobVersion {
		s.log.Error().Int("version", b.Version).Msg("unsupported list cache version; starting empty")
		return false
	}
	s.lists = b.Lists
	if b.LastSynced != nil {
		s.lastSynced = *b.LastSynced
	}
	return true
}

// ReplaceList overwrites the list with the same id (appending it when new),
// persists, and stamps lastSynced.
func (s *Store) ReplaceList(list List) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list = cloneList(list)
	replaced := false
	for i := range s.lists {
		if s.lists[i].ID == list.ID {
			s.lists[i] = list
			replaced = true
			break
		}
	}
	if !replaced {
		s.lists = append(s.lists, list)
	}
	s.lastSynced = s.now().UTC()
	return s.persistLocked()
}

// ReplaceAllLists swaps the whole collection, persists, and stamps lastSynced.
func (s *Store) ReplaceAllLists(lists []List) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lists = cloneLists(lists)
	s.lastSynced = s.now().UTC()
	return s.persistLocked()
}

// ApplyItemMutation runs fn on the matching item of the matching list and
// persists. An unknown list or item is a no-op and reports false.
func (s *Store) ApplyItemMutation(listID, itemID string, fn func(*Item)) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for li := range s.lists {
		if s.lists[li].ID != listID {
			continue
		}
		items := s.lists[li].Items
		for ii := range items {
			if items[ii].ID == itemID {
				fn(&items[ii])
				return true, s.persistLocked()
			}
		}
		return false, nil
	}
	return false, nil
}

// Lists returns a copy of every cached list in order.
func (s *Store) Lists() []List {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneLists(s.lists)
}

// List returns a copy of one cached list.
func (s *Store) List(id string) (List, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, l := range s.lists {
		if l.ID == id {
			return cloneList(l), true
		}
	}
	return List{}, false
}

// Item returns a copy of one cached item.
func (s *Store) Item(listID, itemID string) (Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, l := range s.lists {
		if l.ID != listID {
			continue
		}
		for _, it := range l.Items {
			if it.ID == itemID {
				return it, true
			}
		}
	}
	return Item{}, false
}

// LastSynced is the time of the last successful list replacement.
func (s *Store) LastSynced() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSynced
}

func (s *Store) persistLocked() error {
	lists := s.lists
	if lists == nil {
		lists = []List{}
	}
	b := blob{Version: blobVersion, Lists: lists}
	if !s.lastSynced.IsZero() {
		ls := s.lastSynced
		b.LastSynced = &ls
	}
	raw, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("encode list cache: %w", err)
	}
	if err := s.kv.MultiSet(map[string][]byte{StorageKey: raw}); err != nil {
		s.log.Error().Err(err).Int("lists", len(s.lists)).Msg("persist list cache")
		return fmt.Errorf("persist list cache: %w", err)
	}
	return nil
}

func cloneLists(in []List) []List {
	if len(in) == 0 {
		return nil
	}
	out := make([]List, len(in))
	for i, l := range in {
		out[i] = cloneList(l)
	}
	return out
}

func cloneList(l List) List {
	if l.Items != nil {
		items := make([]Item, len(l.Items))
		copy(items, l.Items)
		l.Items = items
	}
	return l
}
