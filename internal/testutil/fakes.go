// Package testutil holds in-memory stand-ins for the stores and external
// collaborators, shared by the package tests.
package testutil

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/user/avenida-stickers/internal/configstore"
	"github.com/user/avenida-stickers/internal/ids"
	"github.com/user/avenida-stickers/internal/imageproc"
	"github.com/user/avenida-stickers/internal/models"
	"github.com/user/avenida-stickers/internal/storage"
)

func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Clock is a settable time source.
type Clock struct {
	mu sync.Mutex
	t  time.Time
}

func NewClock(t time.Time) *Clock {
	return &Clock{t: t}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// MemoryConfig is an in-memory configstore.Backend.
type MemoryConfig struct {
	mu      sync.Mutex
	entries map[string]*models.ConfigEntry
}

func NewMemoryConfig() *MemoryConfig {
	return &MemoryConfig{entries: map[string]*models.ConfigEntry{}}
}

func (m *MemoryConfig) Get(_ context.Context, key string) (*models.ConfigEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return nil, configstore.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *MemoryConfig) List(_ context.Context) ([]*models.ConfigEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.ConfigEntry, 0, len(m.entries))
	for _, e := range m.entries {
		cp := *e
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (m *MemoryConfig) Upsert(_ context.Context, entry *models.ConfigEntry) (*models.ConfigEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *entry
	now := time.Now()
	if prev, ok := m.entries[entry.Key]; ok {
		cp.CreatedAt = prev.CreatedAt
	} else {
		cp.CreatedAt = now
	}
	cp.UpdatedAt = now
	m.entries[entry.Key] = &cp
	out := cp
	return &out, nil
}

func (m *MemoryConfig) InsertIfAbsent(ctx context.Context, entry *models.ConfigEntry) (bool, error) {
	m.mu.Lock()
	_, exists := m.entries[entry.Key]
	m.mu.Unlock()
	if exists {
		return false, nil
	}
	_, err := m.Upsert(ctx, entry)
	return err == nil, err
}

// NewConfigStore returns a configuration store over an in-memory backend.
func NewConfigStore(t *testing.T) *configstore.Store {
	t.Helper()
	return configstore.New(NewMemoryConfig(), time.Minute, DiscardLogger())
}

// Settings is a fixed retention and auto-delete configuration.
type Settings struct {
	mu           sync.Mutex
	Days         int
	Enabled      bool
	EnabledReads int
}

func (s *Settings) RetentionDays(context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Days
}

func (s *Settings) AutoDeleteEnabled(context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.EnabledReads++
	return s.Enabled
}

// Allocator hands out sequential identifiers per series and never reuses
// them.
type Allocator struct {
	mu      sync.Mutex
	counter map[string]int
	Err     error
}

func NewAllocator() *Allocator {
	return &Allocator{counter: map[string]int{}}
}

func (a *Allocator) Next(_ context.Context, s ids.Series) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.Err != nil {
		return "", a.Err
	}
	a.counter[s.Name]++
	return s.Format(a.counter[s.Name])
}

// Optimizer passes the bytes through, rejecting anything that starts with
// "bad".
type Optimizer struct{}

func (Optimizer) Optimize(data []byte) ([]byte, error) {
	if bytes.HasPrefix(data, []byte("bad")) {
		return nil, imageproc.ErrDecode
	}
	return append([]byte("jpeg:"), data...), nil
}

// Images is an in-memory storage.Store.
type Images struct {
	mu        sync.Mutex
	files     map[string][]byte
	SaveErr   error
	DeleteErr error
}

func NewImages() *Images {
	return &Images{files: map[string][]byte{}}
}

func (m *Images) Save(_ context.Context, name string, data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return "", m.SaveErr
	}
	p := storage.UploadsDir + "/" + name
	m.files[p] = append([]byte(nil), data...)
	return p, nil
}

func (m *Images) Delete(_ context.Context, imagePath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	delete(m.files, imagePath)
	return nil
}

func (m *Images) List(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.files))
	for p := range m.files {
		out = append(out, p)
	}
	sort.Strings(out)
	return out, nil
}

func (m *Images) URL(imagePath string) string {
	return "/" + imagePath
}

// Put stores a file directly, bypassing Save.
func (m *Images) Put(imagePath string, data []byte) {
	m.mu.Lock()
	m.files[imagePath] = data
	m.mu.Unlock()
}

// Remove drops a file as if it vanished from disk.
func (m *Images) Remove(imagePath string) {
	m.mu.Lock()
	delete(m.files, imagePath)
	m.mu.Unlock()
}

func (m *Images) Has(imagePath string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.files[imagePath]
	return ok
}

func (m *Images) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.files)
}

// Fetcher returns canned bytes for any pin.
type Fetcher struct {
	Data  []byte
	Err   error
	Calls int
}

func (f *Fetcher) Fetch(_ context.Context, _ string) ([]byte, string, error) {
	f.Calls++
	if f.Err != nil {
		return nil, "", f.Err
	}
	return f.Data, "https://i.pinimg.com/originals/test.jpg", nil
}

// Event is one recorded notification.
type Event struct {
	Name    string
	Payload any
}

// Notifier records every event it is given.
type Notifier struct {
	mu     sync.Mutex
	events []Event
}

func (n *Notifier) Notify(_ context.Context, event string, payload any) {
	n.mu.Lock()
	n.events = append(n.events, Event{Name: event, Payload: payload})
	n.mu.Unlock()
}

func (n *Notifier) Events() []Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Event(nil), n.events...)
}

func (n *Notifier) Names() []string {
	var names []string
	for _, e := range n.Events() {
		names = append(names, e.Name)
	}
	return names
}

// ErrInjected is returned by fakes configured to fail.
var ErrInjected = errors.New("injected failure")
