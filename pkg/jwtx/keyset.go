package jwtx

import (
	"errors"
	"sort"
	"sync"
	"time"
)

var ErrNoKey = errors.New("jwtx: key not found")

type keyEntry struct {
	secret   []byte
	notAfter time.Time // zero means no deadline
}

// KeySet holds the verification secrets by kid. Retired keys carry a
// deadline after which they no longer verify.
type KeySet struct {
	mu   sync.RWMutex
	keys map[string]keyEntry
}

// NewKeySet returns an empty KeySet.
func NewKeySet() *KeySet {
	return &KeySet{keys: make(map[string]keyEntry)}
}

// Add registers (or replaces) a verification key.
func (k *KeySet) Add(kid string, secret []byte, notAfter time.Time) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.keys[kid] = keyEntry{secret: append([]byte(nil), secret...), notAfter: notAfter}
}

// SetDeadline changes when kid stops verifying.
func (k *KeySet) SetDeadline(kid string, notAfter time.Time) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	e, ok := k.keys[kid]
	if !ok {
		return ErrNoKey
	}
	e.notAfter = notAfter
	k.keys[kid] = e
	return nil
}

// Get returns the secret for kid if it is still accepted at now.
func (k *KeySet) Get(kid string, now time.Time) ([]byte, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	e, ok := k.keys[kid]
	if !ok {
		return nil, ErrNoKey
	}
	if !e.notAfter.IsZero() && !now.Before(e.notAfter) {
		return nil, ErrNoKey
	}
	return e.secret, nil
}

// Remove drops kid immediately.
func (k *KeySet) Remove(kid string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.keys, kid)
}

// Prune drops every key whose deadline has passed and returns their kids.
func (k *KeySet) Prune(now time.Time) []string {
	k.mu.Lock()
	defer k.mu.Unlock()
	var pruned []string
	for kid, e := range k.keys {
		if !e.notAfter.IsZero() && !now.Before(e.notAfter) {
			delete(k.keys, kid)
			pruned = append(pruned, kid)
		}
	}
	sort.Strings(pruned)
	return pruned
}

// Kids returns the known kids in sorted order.
func (k *KeySet) Kids() []string {
	k.mu.RLock()
	defer k.mu.RUnlock()
	kids := make([]string, 0, len(k.keys))
	for kid := range k.keys {
		kids = append(kids, kid)
	}
	sort.Strings(kids)
	return kids
}

// IsReady returns true if the KeySet has at least one key loaded.
func (k *KeySet) IsReady() bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.keys) > 0
}
