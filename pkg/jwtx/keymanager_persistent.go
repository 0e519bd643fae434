package jwtx

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/aussiebroadwan/tenantauth/pkg/cryptox"
	"github.com/aussiebroadwan/tenantauth/pkg/idx"
)

// SigningKeyRecord represents a signing key stored in the database. It
// mirrors the domain type so this package stays free of service imports.
type SigningKeyRecord struct {
	ID              string
	Kid             string
	Algorithm       string
	SecretEncrypted []byte
	CreatedAt       time.Time
	RetiredAt       *time.Time
	ExpiresAt       *time.Time
}

// KeyStore defines the minimal interface needed for persistent key management.
type KeyStore interface {
	// ListUsableSigningKeys returns active keys and retired keys still
	// inside their grace window.
	ListUsableSigningKeys(ctx context.Context, now time.Time) ([]SigningKeyRecord, error)

	// CreateSigningKey stores a new signing key with encrypted secret material.
	CreateSigningKey(ctx context.Context, key SigningKeyRecord) error
}

// PersistentKeyManagerOptions configures a KeyManager with persistent key storage.
type PersistentKeyManagerOptions struct {
	Store  KeyStore
	Issuer string
	Leeway time.Duration
	Now    func() time.Time
}

// NewPersistentKeyManager loads the keyring from the database, generating
// and storing a first key when none is active. Secrets are stored encrypted
// with the cryptox master key.
func NewPersistentKeyManager(ctx context.Context, opts PersistentKeyManagerOptions) (*KeyManager, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("jwtx: Store is required for persistent key manager")
	}
	if opts.Issuer == "" {
		return nil, fmt.Errorf("jwtx: Issuer is required")
	}

	km := newKeyManager(opts.Issuer, opts.Leeway, opts.Now)
	now := km.now()

	records, err := opts.Store.ListUsableSigningKeys(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("jwtx: failed to load keys from database: %w", err)
	}

	// Oldest first so the newest active key ends up primary.
	sort.Slice(records, func(i, j int) bool { return records[i].CreatedAt.Before(records[j].CreatedAt) })

	for _, rec := range records {
		signer, err := SignerFromRecord(rec)
		if err != nil {
			return nil, err
		}
		if rec.RetiredAt == nil {
			km.addPrimaryLocked(signer)
			continue
		}
		var until time.Time
		if rec.ExpiresAt != nil {
			until = *rec.ExpiresAt
		}
		km.KeySet.Add(signer.KID(), signer.secret, until)
		km.retired[signer.KID()] = until
	}

	if len(km.signers) == 0 {
		signer, rec, err := NewSigningKeyRecord(now)
		if err != nil {
			return nil, err
		}
		if err := opts.Store.CreateSigningKey(ctx, rec); err != nil {
			return nil, fmt.Errorf("jwtx: failed to store new key: %w", err)
		}
		km.addPrimaryLocked(signer)
	}
	return km, nil
}

// NewSigningKeyRecord generates a signer and its encrypted record.
func NewSigningKeyRecord(now time.Time) (*HMACSigner, SigningKeyRecord, error) {
	signer, err := GenerateHMACSigner()
	if err != nil {
		return nil, SigningKeyRecord{}, err
	}
	encrypted, err := cryptox.EncryptSecret(signer.secret)
	if err != nil {
		return nil, SigningKeyRecord{}, fmt.Errorf("jwtx: failed to encrypt new key: %w", err)
	}
	return signer, SigningKeyRecord{
		ID:              idx.New().String(),
		Kid:             signer.KID(),
		Algorithm:       AlgorithmHS256,
		SecretEncrypted: encrypted,
		CreatedAt:       now,
	}, nil
}

// SignerFromRecord decrypts a stored key.
func SignerFromRecord(rec SigningKeyRecord) (*HMACSigner, error) {
	if rec.Algorithm != AlgorithmHS256 {
		return nil, fmt.Errorf("jwtx: key %s: %w %q", rec.Kid, ErrAlgMismatch, rec.Algorithm)
	}
	secret, err := cryptox.DecryptSecret(rec.SecretEncrypted)
	if err != nil {
		return nil, fmt.Errorf("jwtx: failed to decrypt key %s: %w", rec.Kid, err)
	}
	return NewHMACSigner(rec.Kid, secret)
}
