package profiles

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sasha-s/go-deadlock"
	"zentry/engine/library"
	"zentry/scoring"
	"zentry/signals"
)

const (
	VerificationSucceeded = "verified"
	VerificationRejected  = "rejected"
	VerificationErrored   = "error"
)

// Store owns every profile. Reads and writes of one address are serialized by that address's
// mutex; different addresses never contend.
type Store struct {
	backend      Backend
	cache        *ProfileCache
	verifiers    Verifiers
	historyDepth int
	locks        map[library.Account]*deadlock.Mutex
	locksMutex   *deadlock.Mutex
	now          func() time.Time
	onVerify     func(source, outcome string)
}

func NewStore(backend Backend, cache *ProfileCache, verifiers Verifiers, historyDepth int) *Store {
	if verifiers == nil {
		verifiers = Verifiers{}
	}
	return &Store{
		backend:      backend,
		cache:        cache,
		verifiers:    verifiers,
		historyDepth: historyDepth,
		locks:        make(map[library.Account]*deadlock.Mutex),
		locksMutex:   &deadlock.Mutex{},
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// OnVerification registers a hook called once per VerifyIdentity attempt that reached a verifier.
func (s *Store) OnVerification(f func(source, outcome string)) {
	s.onVerify = f
}

func (s *Store) lock(address library.Account) *deadlock.Mutex {
	s.locksMutex.Lock()
	defer s.locksMutex.Unlock()
	m, ok := s.locks[address]
	if !ok {
		m = &deadlock.Mutex{}
		s.locks[address] = m
	}
	return m
}

// load must be called with the address lock held.
func (s *Store) load(ctx context.Context, address library.Account) (Profile, error) {
	if p, ok := s.cache.Get(address); ok {
		return p, nil
	}
	p, err := s.backend.Load(ctx, address)
	if err != nil {
		return Profile{}, err
	}
	s.cache.Put(p)
	return p, nil
}

// save must be called with the address lock held.
func (s *Store) save(ctx context.Context, p Profile) (Profile, error) {
	hash, err := ProofHash(p)
	if err != nil {
		return Profile{}, err
	}
	p.ProofHash = hash
	s.cache.Invalidate(p.Address)
	if err := s.backend.Save(ctx, p); err != nil {
		return Profile{}, fmt.Errorf("saving profile %s: %w", p.Address, err)
	}
	s.cache.Put(p)
	return p, nil
}

func checkAddress(address library.Account) error {
	if strings.TrimSpace(address) == "" {
		return fmt.Errorf("empty address: %w", library.ErrInvalidAddress)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, address library.Account) (Profile, error) {
	if err := checkAddress(address); err != nil {
		return Profile{}, err
	}
	m := s.lock(address)
	m.Lock()
	defer m.Unlock()
	return s.load(ctx, address)
}

// Store persists a new score for address, creating the profile on first use. The previous score
// moves into the bounded history.
func (s *Store) Store(ctx context.Context, address library.Account, score scoring.Score) (StoreResult, error) {
	if err := checkAddress(address); err != nil {
		return StoreResult{}, err
	}
	m := s.lock(address)
	m.Lock()
	defer m.Unlock()
	p, err := s.load(ctx, address)
	switch {
	case errors.Is(err, library.ErrNotFound):
		p = Profile{Address: address, Identities: []LinkedAccount{}, ResourceID: uuid.NewString()}
	case err != nil:
		return StoreResult{}, err
	default:
		p.History = append(p.History, p.ReputationScore)
		if s.historyDepth >= 0 && len(p.History) > s.historyDepth {
			p.History = p.History[len(p.History)-s.historyDepth:]
		}
	}
	if score.LastUpdated.IsZero() {
		score.LastUpdated = s.now()
	}
	p.ReputationScore = score
	p.LastUpdated = s.now()
	stored, err := s.save(ctx, p)
	if err != nil {
		return StoreResult{}, err
	}
	return StoreResult{ProofHash: stored.ProofHash}, nil
}

// VerifyIdentity runs the source's verifier without holding any lock, then marks the account
// verified. Any verifier error or rejection leaves the profile untouched and reports
// Success=false.
func (s *Store) VerifyIdentity(ctx context.Context, address library.Account, source library.Source, identifier string) (VerifyResult, error) {
	if !library.IsSupportedSource(source) {
		return VerifyResult{}, fmt.Errorf("%q: %w", source, library.ErrUnsupportedSource)
	}
	if _, err := s.Get(ctx, address); err != nil {
		return VerifyResult{}, err
	}
	identifier = strings.TrimSpace(identifier)
	verifier, ok := s.verifiers[source]
	if !ok || identifier == "" {
		library.LogCLI(fmt.Sprintf("no verifier for %s or empty identifier, %s not verified", source, address), 3)
		s.verification(source, VerificationRejected)
		return VerifyResult{}, nil
	}
	verified, err := verifier.Verify(ctx, address, identifier)
	if err != nil {
		library.LogCLI(fmt.Sprintf("verifying %s %s for %s: %s", source, identifier, address, err), 2)
		s.verification(source, VerificationErrored)
		return VerifyResult{}, nil
	}
	if !verified {
		s.verification(source, VerificationRejected)
		return VerifyResult{}, nil
	}

	m := s.lock(address)
	m.Lock()
	defer m.Unlock()
	p, err := s.load(ctx, address)
	if err != nil {
		return VerifyResult{}, err
	}
	now := s.now()
	account, ok := p.Identity(source)
	if !ok {
		account = LinkedAccount{Source: source, LinkedAt: now}
	}
	account.Identifier = identifier
	account.Verified = true
	account.VerifiedAt = &now
	account.VerificationID = uuid.NewString()
	account.Unlinked = false
	account.UnlinkedAt = nil
	p.setIdentity(account)
	if _, err := s.save(ctx, p); err != nil {
		return VerifyResult{}, err
	}
	s.verification(source, VerificationSucceeded)
	return VerifyResult{Success: true, VerificationID: account.VerificationID}, nil
}

func (s *Store) verification(source, outcome string) {
	if s.onVerify != nil {
		s.onVerify(source, outcome)
	}
}

// Link records an unverified account. Changing the identifier of a source drops its verification.
func (s *Store) Link(ctx context.Context, address library.Account, source library.Source, identifier string) (Profile, error) {
	if !library.IsSupportedSource(source) {
		return Profile{}, fmt.Errorf("%q: %w", source, library.ErrUnsupportedSource)
	}
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return Profile{}, fmt.Errorf("empty %s identifier", source)
	}
	return s.mutate(ctx, address, func(p *Profile, now time.Time) error {
		account, ok := p.Identity(source)
		if !ok || account.Unlinked || account.Identifier != identifier {
			account = LinkedAccount{Source: source, Identifier: identifier, LinkedAt: now}
		}
		p.setIdentity(account)
		return nil
	})
}

// Unlink keeps the account on record but marks it unlinked and unverified.
func (s *Store) Unlink(ctx context.Context, address library.Account, source library.Source) (Profile, error) {
	return s.mutate(ctx, address, func(p *Profile, now time.Time) error {
		account, ok := p.Identity(source)
		if !ok {
			return fmt.Errorf("%s account of %s: %w", source, address, library.ErrNotFound)
		}
		account.Unlinked = true
		account.UnlinkedAt = &now
		account.Verified = false
		account.VerifiedAt = nil
		p.setIdentity(account)
		return nil
	})
}

func (s *Store) mutate(ctx context.Context, address library.Account, f func(p *Profile, now time.Time) error) (Profile, error) {
	if err := checkAddress(address); err != nil {
		return Profile{}, err
	}
	m := s.lock(address)
	m.Lock()
	defer m.Unlock()
	p, err := s.load(ctx, address)
	if err != nil {
		return Profile{}, err
	}
	if err := f(&p, s.now()); err != nil {
		return Profile{}, err
	}
	saved, err := s.save(ctx, p)
	if err != nil {
		return Profile{}, err
	}
	return saved.Copy(), nil
}

// Handles returns the linked accounts of address for the signal collector.
func (s *Store) Handles(ctx context.Context, address library.Account) (signals.Handles, error) {
	p, err := s.Get(ctx, address)
	if err != nil {
		return nil, err
	}
	handles := signals.Handles{}
	for _, id := range p.Identities {
		if id.Unlinked {
			continue
		}
		handles[id.Source] = signals.Handle{Identifier: id.Identifier, Verified: id.Verified}
	}
	return handles, nil
}

func (s *Store) Addresses(ctx context.Context) ([]library.Account, error) {
	return s.backend.Addresses(ctx)
}

// Score returns the persisted score of address, or library.ErrNotFound.
func (s *Store) Score(ctx context.Context, address library.Account) (scoring.Score, error) {
	p, err := s.Get(ctx, address)
	if err != nil {
		return scoring.Score{}, err
	}
	return p.ReputationScore, nil
}

// History returns past scores, oldest first.
func (s *Store) History(ctx context.Context, address library.Account) ([]scoring.Score, error) {
	p, err := s.Get(ctx, address)
	if err != nil {
		return nil, err
	}
	return p.History, nil
}

func (s *Store) Close() error {
	s.cache.Close()
	return s.backend.Close()
}
