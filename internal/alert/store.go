package alert

import (
	"crypto-alert-bot/internal/types"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

var (
	ErrInvalidOperator = errors.New("operator must be greater_than or less_than")
	ErrInvalidAlert    = errors.New("invalid alert")
	ErrNotOwner        = errors.New("alert belongs to another user")
)

// Store is the persisted collection of active alerts. Every mutation is
// written to disk while the lock is held, so readers never observe a
// half-applied change and two saves never interleave.
type Store struct {
	mu      sync.Mutex
	path    string
	entries map[uint64]types.AlertEntry
	nextID  uint64
	now     func() time.Time
}

// NewStore loads alerts from path. A missing or unreadable file yields an
// empty store; it never fails start-up.
func NewStore(path string) *Store {
	s := &Store{
		path:    path,
		entries: make(map[uint64]types.AlertEntry),
		nextID:  1,
		now:     time.Now,
	}
	s.load()
	return s
}

func (s *Store) load() {
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Errorf("could not create alerts directory %s: %v", dir, err)
		}
	}

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		log.Infof("alerts file not found, starting with empty store: %s", s.path)
		return
	}
	if err != nil {
		log.Errorf("failed to read alerts file %s, starting with empty store: %v", s.path, err)
		return
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		log.Errorf("alerts file %s is corrupt, starting with empty store: %v", s.path, err)
		return
	}

	for key, rec := range raw {
		entry, err := decodeEntry(rec)
		if err != nil {
			log.WithField("key", key).Errorf("skipping malformed alert record: %v", err)
			log.Debug(spew.Sdump(string(rec)))
			continue
		}
		if key != strconv.FormatUint(entry.ID, 10) {
			log.WithField("key", key).Warnf("alert record key does not match its id %d, using the id", entry.ID)
		}
		if _, dup := s.entries[entry.ID]; dup {
			log.WithField("key", key).Errorf("skipping duplicate alert id %d", entry.ID)
			continue
		}
		s.entries[entry.ID] = entry
		if entry.ID >= s.nextID {
			s.nextID = entry.ID + 1
		}
	}

	log.Infof("loaded %d alerts from %s", len(s.entries), s.path)
}

func decodeEntry(rec json.RawMessage) (types.AlertEntry, error) {
	var entry types.AlertEntry
	if err := json.Unmarshal(rec, &entry); err != nil {
		return entry, errors.Wrap(err, "decode")
	}
	if entry.ID == 0 {
		return entry, errors.New("missing id")
	}
	entry.Asset, entry.Currency = normalize(entry.Asset), normalize(entry.Currency)
	if err := validate(entry.Asset, entry.Currency, entry.Operator, entry.Threshold); err != nil {
		return entry, err
	}
	return entry, nil
}

func validate(asset, currency string, op types.Operator, threshold float64) error {
	if !op.Valid() {
		return errors.Wrapf(ErrInvalidOperator, "got %q", op)
	}
	if asset == "" {
		return errors.Wrap(ErrInvalidAlert, "asset is required")
	}
	if currency == "" {
		return errors.Wrap(ErrInvalidAlert, "currency is required")
	}
	if math.IsNaN(threshold) || math.IsInf(threshold, 0) {
		return errors.Wrap(ErrInvalidAlert, "threshold must be a finite number")
	}
	return nil
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Add validates and stores a new alert under the next unused id.
func (s *Store) Add(scope *int64, destination, owner int64, asset, currency string, op types.Operator, threshold float64) (types.AlertEntry, error) {
	asset, currency = normalize(asset), normalize(currency)
	if err := validate(asset, currency, op, threshold); err != nil {
		return types.AlertEntry{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry := types.AlertEntry{
		ID:          s.nextID,
		Scope:       copyScope(scope),
		Destination: destination,
		Owner:       owner,
		Asset:       asset,
		Currency:    currency,
		Operator:    op,
		Threshold:   threshold,
		CreatedAt:   s.now().UTC().Format(time.RFC3339),
	}
	s.nextID++
	s.entries[entry.ID] = entry
	s.persistLocked()

	return cloneEntry(entry), nil
}

// Remove deletes the alert with the given id. It reports false when no
// such alert exists.
func (s *Store) Remove(id uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[id]; !ok {
		return false
	}
	delete(s.entries, id)
	s.persistLocked()
	return true
}

// RemoveOwned deletes the alert only if owner created it.
func (s *Store) RemoveOwned(id uint64, owner int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[id]
	if !ok {
		return false, nil
	}
	if entry.Owner != owner {
		return false, ErrNotOwner
	}
	delete(s.entries, id)
	s.persistLocked()
	return true, nil
}

func (s *Store) Get(id uint64) (types.AlertEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[id]
	return cloneEntry(entry), ok
}

// List returns a copy of all alerts ordered by id.
func (s *Store) List() []types.AlertEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]types.AlertEntry, 0, len(s.entries))
	for _, entry := range s.entries {
		out = append(out, cloneEntry(entry))
	}
	sortByID(out)
	return out
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Clear removes every alert and returns how many there were. The id
// counter is not reset.
func (s *Store) Clear() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.entries)
	s.entries = make(map[uint64]types.AlertEntry)
	s.persistLocked()
	return n
}

// ClearScope removes the alerts tied to one group chat and returns how many
// were removed. Private alerts are never touched.
func (s *Store) ClearScope(scope int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, entry := range s.entries {
		if entry.Scope != nil && *entry.Scope == scope {
			delete(s.entries, id)
			n++
		}
	}
	if n > 0 {
		s.persistLocked()
	}
	return n
}

// PopMatching atomically removes and returns the alerts on (asset, currency)
// for which match holds. The file is written once for the whole batch.
func (s *Store) PopMatching(asset, currency string, match func(types.AlertEntry) bool) []types.AlertEntry {
	asset, currency = normalize(asset), normalize(currency)

	s.mu.Lock()
	defer s.mu.Unlock()

	var popped []types.AlertEntry
	for id, entry := range s.entries {
		if entry.Asset != asset || entry.Currency != currency {
			continue
		}
		if !match(cloneEntry(entry)) {
			continue
		}
		delete(s.entries, id)
		popped = append(popped, entry)
	}
	if len(popped) > 0 {
		s.persistLocked()
	}
	sortByID(popped)
	return popped
}

// Save writes the current state to disk.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeLocked()
}

// persistLocked writes the store and only logs failures: the in-memory
// state stays authoritative.
func (s *Store) persistLocked() {
	if err := s.writeLocked(); err != nil {
		log.Errorf("failed to write alerts file: %v", err)
	}
}

func (s *Store) writeLocked() error {
	dump := make(map[string]types.AlertEntry, len(s.entries))
	for id, entry := range s.entries {
		dump[strconv.FormatUint(id, 10)] = entry
	}
	payload, err := json.MarshalIndent(dump, "", "  ")
	if err != nil {
		return errors.Wrap(err, "could not encode alerts")
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return errors.Wrap(err, "could not create temp file")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "could not write %s", tmp.Name())
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "could not sync %s", tmp.Name())
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrapf(err, "could not close %s", tmp.Name())
	}
	return errors.Wrapf(os.Rename(tmp.Name(), s.path), "could not replace %s", s.path)
}

func copyScope(scope *int64) *int64 {
	if scope == nil {
		return nil
	}
	v := *scope
	return &v
}

func cloneEntry(entry types.AlertEntry) types.AlertEntry {
	entry.Scope = copyScope(entry.Scope)
	return entry
}

func sortByID(entries []types.AlertEntry) {
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
}
