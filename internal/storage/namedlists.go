package storage

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/valter-silva-au/task-wheel/pkg/models"
	"gopkg.in/yaml.v3"
)

// NamedListsKey is the store key holding every saved participant list.
const NamedListsKey = "cr-assigner-user-lists"

// Event types logged when the store misbehaves.
const (
	EventStoreReadFailed  = "store.read_failed"
	EventStoreWriteFailed = "store.write_failed"
)

// Errors returned by NamedListManager.Save.
var (
	ErrEmptyListName = errors.New("list name must not be empty")
	ErrEmptyList     = errors.New("list must contain at least one participant")
)

// WarningLogger receives non-fatal store problems.
type WarningLogger interface {
	LogWarning(eventType, message string, data map[string]any) error
}

// NamedListManager manages saved participant lists. The in-memory copy is
// authoritative for the session; every change is written through to the
// KVStore.
type NamedListManager interface {
	Load() error
	Names() []string
	Get(name string) ([]string, bool)
	All() models.NamedLists
	Save(name string, participants []string) error
	Delete(name string) error
}

type kvNamedLists struct {
	mu     sync.Mutex
	store  KVStore
	logger WarningLogger
	lists  models.NamedLists
}

// NewNamedListManager creates a NamedListManager over store. logger may be nil.
func NewNamedListManager(store KVStore, logger WarningLogger) NamedListManager {
	return &kvNamedLists{
		store:  store,
		logger: logger,
		lists:  models.NamedLists{},
	}
}

// Load reads the saved lists. A missing entry yields no lists. A read or
// decode failure also yields no lists; the failure is logged and returned so
// callers can surface it, but the manager stays usable.
func (m *kvNamedLists) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lists = models.NamedLists{}

	data, err := m.store.Get(NamedListsKey)
	if errors.Is(err, ErrKeyNotFound) {
		return nil
	}
	if err != nil {
		m.warn(EventStoreReadFailed, err)
		return fmt.Errorf("loading named lists: %w", err)
	}

	var decoded models.NamedLists
	if err := yaml.Unmarshal(data, &decoded); err != nil {
		m.warn(EventStoreReadFailed, err)
		return fmt.Errorf("loading named lists: %w", err)
	}
	for name, members := range decoded {
		members = normalizeMembers(members)
		if strings.TrimSpace(name) != "" && len(members) > 0 {
			m.lists[name] = members
		}
	}
	return nil
}

// Names returns the saved list names, sorted.
func (m *kvNamedLists) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lists.Names()
}

// Get returns a copy of the named list.
func (m *kvNamedLists) Get(name string) ([]string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	members, ok := m.lists[name]
	if !ok {
		return nil, false
	}
	return append([]string(nil), members...), true
}

// All returns a copy of every saved list.
func (m *kvNamedLists) All() models.NamedLists {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lists.Clone()
}

// Save stores participants under name, replacing any list with that name.
func (m *kvNamedLists) Save(name string, participants []string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyListName
	}
	participants = normalizeMembers(participants)
	if len(participants) == 0 {
		return ErrEmptyList
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.lists[name] = participants
	return m.persist()
}

// Delete removes the named list. Unknown names are ignored.
func (m *kvNamedLists) Delete(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.lists[name]; !ok {
		return nil
	}
	delete(m.lists, name)
	return m.persist()
}

// persist writes the lists. The caller holds mu.
func (m *kvNamedLists) persist() error {
	data, err := yaml.Marshal(m.lists)
	if err != nil {
		m.warn(EventStoreWriteFailed, err)
		return fmt.Errorf("encoding named lists: %w", err)
	}
	if err := m.store.Set(NamedListsKey, data); err != nil {
		m.warn(EventStoreWriteFailed, err)
		return fmt.Errorf("saving named lists: %w", err)
	}
	return nil
}

// normalizeMembers trims names and drops blanks and repeats, keeping order.
func normalizeMembers(members []string) []string {
	out := make([]string, 0, len(members))
	for _, p := range members {
		p = strings.TrimSpace(p)
		if p != "" && !slices.Contains(out, p) {
			out = append(out, p)
		}
	}
	return out
}

func (m *kvNamedLists) warn(eventType string, err error) {
	if m.logger == nil {
		return
	}
	_ = m.logger.LogWarning(eventType, err.Error(), map[string]any{"key": NamedListsKey})
}
