package profiles

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"zentry/engine/library"
)

const profilePrefix = "profile/"

// BadgerBackend stores each profile as JSON under profile/<address>.
type BadgerBackend struct {
	db *badger.DB
}

// NewBadgerBackend opens (or creates) the database in dir. An empty dir keeps everything in
// memory.
func NewBadgerBackend(dir string) (*BadgerBackend, error) {
	var opts badger.Options
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating badger dir: %w", err)
		}
		opts = badger.DefaultOptions(dir)
	}
	opts = opts.WithLogger(badgerLogger{}).WithLoggingLevel(badger.WARNING)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening badger: %w", err)
	}
	return &BadgerBackend{db: db}, nil
}

func profileKey(address library.Account) []byte {
	return []byte(profilePrefix + address)
}

func (b *BadgerBackend) Load(_ context.Context, address library.Account) (Profile, error) {
	var p Profile
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(profileKey(address))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &p)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Profile{}, fmt.Errorf("profile %s: %w", address, library.ErrNotFound)
	}
	if err != nil {
		return Profile{}, fmt.Errorf("loading profile %s: %w", address, err)
	}
	return p, nil
}

func (b *BadgerBackend) Save(_ context.Context, profile Profile) error {
	val, err := json.Marshal(profile)
	if err != nil {
		return err
	}
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(profileKey(profile.Address), val)
	})
}

func (b *BadgerBackend) Addresses(context.Context) ([]library.Account, error) {
	var out []library.Account
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		prefix := []byte(profilePrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			out = append(out, strings.TrimPrefix(string(it.Item().Key()), profilePrefix))
		}
		return nil
	})
	return out, err
}

func (b *BadgerBackend) Close() error {
	return b.db.Close()
}

// badgerLogger routes badger's log output through LogCLI.
type badgerLogger struct{}

func (badgerLogger) Errorf(format string, args ...interface{}) {
	library.LogCLI("badger: "+fmt.Sprintf(format, args...), 1)
}

func (badgerLogger) Warningf(format string, args ...interface{}) {
	library.LogCLI("badger: "+fmt.Sprintf(format, args...), 2)
}

func (badgerLogger) Infof(format string, args ...interface{}) {
	library.LogCLI("badger: "+fmt.Sprintf(format, args...), 4)
}

func (badgerLogger) Debugf(format string, args ...interface{}) {
	library.LogCLI("badger: "+fmt.Sprintf(format, args...), 5)
}
