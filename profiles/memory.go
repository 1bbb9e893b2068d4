package profiles

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/sasha-s/go-deadlock"
	"zentry/engine/actors"
	"zentry/engine/library"
)

const (
	flatFileMind = "profiles"
	flatFileDb   = "current"
)

type db struct {
	data  map[library.Account]Profile
	mutex *deadlock.Mutex
}

// MemoryBackend keeps profiles in a map. With a FlatFile it restores a snapshot on open and
// writes one on Close.
type MemoryBackend struct {
	db
	flat *actors.FlatFile
}

func NewMemoryBackend(flat *actors.FlatFile) (*MemoryBackend, error) {
	m := &MemoryBackend{
		db:   db{data: make(map[library.Account]Profile), mutex: &deadlock.Mutex{}},
		flat: flat,
	}
	if flat == nil {
		return m, nil
	}
	file, ok := flat.Open(flatFileMind, flatFileDb)
	if !ok {
		return m, nil
	}
	defer file.Close()
	b, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("reading profile snapshot: %w", err)
	}
	if len(b) == 0 {
		return m, nil
	}
	if err := json.Unmarshal(b, &m.data); err != nil {
		return nil, fmt.Errorf("decoding profile snapshot: %w", err)
	}
	library.LogCLI(fmt.Sprintf("restored %d profiles from snapshot", len(m.data)), 4)
	return m, nil
}

func (m *MemoryBackend) Load(_ context.Context, address library.Account) (Profile, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	p, ok := m.data[address]
	if !ok {
		return Profile{}, fmt.Errorf("profile %s: %w", address, library.ErrNotFound)
	}
	return p.Copy(), nil
}

func (m *MemoryBackend) Save(_ context.Context, profile Profile) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.data[profile.Address] = profile.Copy()
	return nil
}

func (m *MemoryBackend) Addresses(context.Context) ([]library.Account, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	var out []library.Account
	for a := range m.data {
		out = append(out, a)
	}
	sort.Strings(out)
	return out, nil
}

// Close writes the snapshot when a flat file is configured.
func (m *MemoryBackend) Close() error {
	if m.flat == nil {
		return nil
	}
	m.mutex.Lock()
	b, err := json.MarshalIndent(m.data, "", " ")
	m.mutex.Unlock()
	if err != nil {
		return err
	}
	return m.flat.Write(flatFileMind, flatFileDb, b)
}
