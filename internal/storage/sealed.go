package storage

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
)

const (
	sealVersion byte = 1
	saltSize         = 16
	keySize          = 32
)

// kdfParams are the argon2id cost parameters.
type kdfParams struct {
	time    uint32
	memory  uint32 // KiB
	threads uint8
}

var defaultKDF = kdfParams{time: 3, memory: 64 * 1024, threads: 4}

// SealedStore encrypts values before handing them to another Store.
// Each value gets a fresh salt and nonce; the key name is bound as
// additional data so a value cannot be moved to another key.
//
// Layout before base64: version | cipher id | salt | nonce | ciphertext.
type SealedStore struct {
	inner      Store
	passphrase []byte
	cipher     CipherType
	kdf        kdfParams
}

// NewSealedStore wraps inner. cipher selects the AEAD for new values;
// CipherAuto chooses by platform. Existing values are opened with
// whatever cipher sealed them.
func NewSealedStore(inner Store, passphrase []byte, cipher CipherType) (*SealedStore, error) {
	if len(passphrase) == 0 {
		return nil, fmt.Errorf("storage: empty passphrase")
	}
	ct, err := resolveCipher(cipher)
	if err != nil {
		return nil, err
	}
	return &SealedStore{
		inner:      inner,
		passphrase: append([]byte(nil), passphrase...),
		cipher:     ct,
		kdf:        defaultKDF,
	}, nil
}

// Cipher reports the AEAD used for new values.
func (s *SealedStore) Cipher() CipherType {
	return s.cipher
}

func (s *SealedStore) Get(key string) (string, bool, error) {
	raw, ok, err := s.inner.Get(key)
	if err != nil || !ok {
		return "", ok, err
	}
	plain, err := s.open(key, raw)
	if err != nil {
		return "", false, err
	}
	return plain, true, nil
}

func (s *SealedStore) Set(key, value string) error {
	sealed, err := s.seal(key, value)
	if err != nil {
		return err
	}
	return s.inner.Set(key, sealed)
}

func (s *SealedStore) Clear(key string) error {
	return s.inner.Clear(key)
}

func (s *SealedStore) deriveKey(salt []byte) []byte {
	return argon2.IDKey(s.passphrase, salt, s.kdf.time, s.kdf.memory, s.kdf.threads, keySize)
}

func (s *SealedStore) seal(key, value string) (string, error) {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("storage: generate salt: %w", err)
	}
	aead, err := newAEAD(s.cipher, s.deriveKey(salt))
	if err != nil {
		return "", err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("storage: generate nonce: %w", err)
	}

	buf := make([]byte, 0, 2+saltSize+len(nonce)+len(value)+aead.Overhead())
	buf = append(buf, sealVersion, s.cipher.id())
	buf = append(buf, salt...)
	buf = append(buf, nonce...)
	buf = aead.Seal(buf, nonce, []byte(value), []byte(key))
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func (s *SealedStore) open(key, encoded string) (string, error) {
	data, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: not a sealed value", ErrDecrypt)
	}
	if len(data) < 2+saltSize || data[0] != sealVersion {
		return "", fmt.Errorf("%w: unsupported format", ErrDecrypt)
	}
	ct, ok := cipherFromID(data[1])
	if !ok {
		return "", fmt.Errorf("%w: unknown cipher id %d", ErrDecrypt, data[1])
	}
	salt := data[2 : 2+saltSize]
	aead, err := newAEAD(ct, s.deriveKey(salt))
	if err != nil {
		return "", err
	}
	rest := data[2+saltSize:]
	if len(rest) < aead.NonceSize()+aead.Overhead() {
		return "", fmt.Errorf("%w: truncated value", ErrDecrypt)
	}
	nonce, sealed := rest[:aead.NonceSize()], rest[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, sealed, []byte(key))
	if err != nil {
		return "", ErrDecrypt
	}
	return string(plain), nil
}
