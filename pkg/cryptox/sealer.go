package cryptox

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

const (
	sealVersion       byte = 0x01
	minKeyMaterialLen      = 16
	sealInfoPrefix         = "tenantauth credential sealing "
)

var (
	// ErrUnknownKeyRef is returned when sealed data names a key the sealer does not hold.
	ErrUnknownKeyRef = errors.New("unknown sealing key reference")
	// ErrSealedDataInvalid is returned when sealed data fails authentication or is malformed.
	ErrSealedDataInvalid = errors.New("sealed data is invalid")
)

// SealingKey is named key material for a Sealer.
type SealingKey struct {
	Ref      string
	Material []byte
}

// ParseSealingKeys parses "ref:base64,ref:base64". The first key is primary.
// Material that is not valid base64 is used as raw bytes.
func ParseSealingKeys(list string) ([]SealingKey, error) {
	var keys []SealingKey
	for _, item := range strings.Split(list, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		ref, raw, ok := strings.Cut(item, ":")
		if !ok || ref == "" || raw == "" {
			return nil, fmt.Errorf("sealing key %q: expected ref:material", ref)
		}
		material, err := base64.StdEncoding.DecodeString(raw)
		if err != nil {
			if material, err = base64.RawURLEncoding.DecodeString(raw); err != nil {
				material = []byte(raw)
			}
		}
		keys = append(keys, SealingKey{Ref: ref, Material: material})
	}
	if len(keys) == 0 {
		return nil, errors.New("no sealing keys configured")
	}
	return keys, nil
}

// Sealer performs authenticated symmetric encryption of small secrets with
// a keyring of XChaCha20-Poly1305 keys. Every sealed value is tagged with the
// reference of the key that produced it so old values stay readable after the
// primary key changes.
type Sealer struct {
	primary string
	aeads   map[string]cipher.AEAD
}

// NewSealer derives one AEAD per key with HKDF-SHA256. keys[0] is primary.
func NewSealer(keys []SealingKey) (*Sealer, error) {
	if len(keys) == 0 {
		return nil, errors.New("sealer requires at least one key")
	}

	s := &Sealer{primary: keys[0].Ref, aeads: make(map[string]cipher.AEAD, len(keys))}
	for _, k := range keys {
		if len(k.Material) < minKeyMaterialLen {
			return nil, fmt.Errorf("sealing key %q: material shorter than %d bytes", k.Ref, minKeyMaterialLen)
		}
		if _, dup := s.aeads[k.Ref]; dup {
			return nil, fmt.Errorf("sealing key %q: duplicate reference", k.Ref)
		}

		derived := make([]byte, chacha20poly1305.KeySize)
		kdf := hkdf.New(sha256.New, k.Material, nil, []byte(sealInfoPrefix+k.Ref))
		if _, err := io.ReadFull(kdf, derived); err != nil {
			return nil, fmt.Errorf("sealing key %q: derive: %w", k.Ref, err)
		}
		aead, err := chacha20poly1305.NewX(derived)
		if err != nil {
			return nil, fmt.Errorf("sealing key %q: %w", k.Ref, err)
		}
		s.aeads[k.Ref] = aead
	}
	return s, nil
}

// NewEphemeralSealer returns a sealer with a random key. Development only.
func NewEphemeralSealer() (*Sealer, error) {
	material := make([]byte, 32)
	if _, err := rand.Read(material); err != nil {
		return nil, err
	}
	return NewSealer([]SealingKey{{Ref: "ephemeral", Material: material}})
}

// Primary returns the reference new values are sealed with.
func (s *Sealer) Primary() string { return s.primary }

// Seal encrypts plaintext under the primary key. aad is authenticated but not
// stored; the same aad must be supplied to Open.
func (s *Sealer) Seal(plaintext, aad []byte) ([]byte, string, error) {
	aead := s.aeads[s.primary]

	out := make([]byte, 1+aead.NonceSize(), 1+aead.NonceSize()+len(plaintext)+aead.Overhead())
	out[0] = sealVersion
	if _, err := io.ReadFull(rand.Reader, out[1:]); err != nil {
		return nil, "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	out = aead.Seal(out, out[1:], plaintext, aad)
	return out, s.primary, nil
}

// Open decrypts data produced by Seal with the key named by ref.
func (s *Sealer) Open(data []byte, ref string, aad []byte) ([]byte, error) {
	aead, ok := s.aeads[ref]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKeyRef, ref)
	}
	n := aead.NonceSize()
	if len(data) < 1+n+aead.Overhead() || data[0] != sealVersion {
		return nil, ErrSealedDataInvalid
	}
	plaintext, err := aead.Open(nil, data[1:1+n], data[1+n:], aad)
	if err != nil {
		return nil, ErrSealedDataInvalid
	}
	return plaintext, nil
}
