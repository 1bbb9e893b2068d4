package actors

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/nbd-wtf/go-nostr/nip06"
	"github.com/sasha-s/go-deadlock"
	"zentry/engine/library"
)

var currentWalletMutex = &deadlock.Mutex{}

// LoadWallet returns the issuer wallet stored under rootDir, creating and persisting a new one
// if there isn't one already.
func LoadWallet(rootDir string) (library.Wallet, error) {
	currentWalletMutex.Lock()
	defer currentWalletMutex.Unlock()
	path := filepath.Join(rootDir, "wallet.dat")
	if w, ok := getWalletFromDisk(path); ok {
		return w, nil
	}
	library.LogCLI("Generating a new issuer wallet, write down the seed words if you want to keep it", 4)
	w, err := NewWallet()
	if err != nil {
		return library.Wallet{}, err
	}
	if err := persistWallet(path, w); err != nil {
		return library.Wallet{}, err
	}
	return w, nil
}

// NewWallet derives a fresh key from new nip06 seed words.
func NewWallet() (library.Wallet, error) {
	seedWords, err := nip06.GenerateSeedWords()
	if err != nil {
		return library.Wallet{}, err
	}
	return WalletFromSeedWords(seedWords)
}

func WalletFromSeedWords(seedWords string) (library.Wallet, error) {
	seed := nip06.SeedFromWords(seedWords)
	sk, err := nip06.PrivateKeyFromSeed(seed)
	if err != nil {
		return library.Wallet{}, err
	}
	pub, err := GetPubKey(sk)
	if err != nil {
		return library.Wallet{}, err
	}
	return library.Wallet{
		PrivateKey: sk,
		SeedWords:  seedWords,
		Account:    pub,
	}, nil
}

// GetPubKey returns the hex x-only public key for a hex private key.
func GetPubKey(privateKey string) (string, error) {
	keyb, err := hex.DecodeString(privateKey)
	if err != nil {
		return "", fmt.Errorf("decoding key from hex: %w", err)
	}
	_, pubkey := btcec.PrivKeyFromBytes(keyb)
	return hex.EncodeToString(schnorr.SerializePubKey(pubkey)), nil
}

func persistWallet(path string, w library.Wallet) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	bytes, err := json.Marshal(w)
	if err != nil {
		return err
	}
	return os.WriteFile(path, bytes, 0600)
}

func getWalletFromDisk(path string) (w library.Wallet, ok bool) {
	file, err := os.ReadFile(path)
	if err != nil {
		library.LogCLI(fmt.Sprintf("Error getting wallet file: %s", err.Error()), 3)
		return library.Wallet{}, false
	}
	err = json.Unmarshal(file, &w)
	if err != nil {
		library.LogCLI(fmt.Sprintf("Error parsing wallet file: %s", err.Error()), 2)
		return library.Wallet{}, false
	}
	return w, len(w.PrivateKey) > 0
}
