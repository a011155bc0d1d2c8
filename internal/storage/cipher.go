package storage

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"
	"runtime"

	"golang.org/x/crypto/chacha20poly1305"
)

// CipherType identifies the AEAD used to seal a value.
type CipherType string

const (
	CipherAuto     CipherType = ""
	CipherAESGCM   CipherType = "aes-gcm"
	CipherChaCha20 CipherType = "chacha20-poly1305"
)

// wire identifiers, stored in the second byte of a sealed value
const (
	cipherIDAESGCM   byte = 1
	cipherIDChaCha20 byte = 2
)

// preferredCipher picks AES-GCM where Go has hardware AES.
func preferredCipher() CipherType {
	switch runtime.GOARCH {
	case "amd64", "arm64", "s390x", "ppc64le":
		return CipherAESGCM
	default:
		return CipherChaCha20
	}
}

func resolveCipher(t CipherType) (CipherType, error) {
	switch t {
	case CipherAuto:
		return preferredCipher(), nil
	case CipherAESGCM, CipherChaCha20:
		return t, nil
	default:
		return "", fmt.Errorf("storage: unknown cipher %q", t)
	}
}

func (t CipherType) id() byte {
	if t == CipherChaCha20 {
		return cipherIDChaCha20
	}
	return cipherIDAESGCM
}

func cipherFromID(id byte) (CipherType, bool) {
	switch id {
	case cipherIDAESGCM:
		return CipherAESGCM, true
	case cipherIDChaCha20:
		return CipherChaCha20, true
	}
	return "", false
}

func newAEAD(t CipherType, key []byte) (cipher.AEAD, error) {
	switch t {
	case CipherAESGCM:
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, err
		}
		return cipher.NewGCM(block)
	case CipherChaCha20:
		return chacha20poly1305.New(key)
	default:
		return nil, fmt.Errorf("storage: unknown cipher %q", t)
	}
}
