package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"io"

	"golang.org/x/crypto/hkdf"
)

// KeySize is the required application key length (AES-256).
const KeySize = 32

const hkdfInfo = "helpdesk-org-secrets-v1"

// Sealer encrypts and decrypts scoped secrets with a single application key.
// It is safe for concurrent use.
type Sealer struct {
	appKey []byte
}

// NewSealer validates the application key and returns a Sealer.
func NewSealer(appKey []byte) (*Sealer, error) {
	if len(appKey) != KeySize {
		return nil, ErrInvalidAppKey
	}
	key := make([]byte, KeySize)
	copy(key, appKey)
	return &Sealer{appKey: key}, nil
}

// NewSealerFromHex decodes a hex encoded application key, as stored in APP_KEY.
func NewSealerFromHex(s string) (*Sealer, error) {
	key, err := hex.DecodeString(s)
	if err != nil {
		return nil, errors.Join(ErrInvalidAppKey, err)
	}
	return NewSealer(key)
}

// GenerateKey returns a random application key.
func GenerateKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	return key, nil
}

// Seal encrypts plaintext for the given scope. An empty plaintext seals to an
// empty string so optional secrets stay optional.
func (s *Sealer) Seal(scope []byte, plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	gcm, err := s.aead(scope)
	if err != nil {
		return "", errors.Join(ErrEncryptionFailed, err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", errors.Join(ErrEncryptionFailed, err)
	}

	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), scope)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Open decrypts a ciphertext produced by Seal with the same scope.
func (s *Sealer) Open(scope []byte, ciphertext string) (string, error) {
	if ciphertext == "" {
		return "", nil
	}
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", errors.Join(ErrInvalidCiphertext, err)
	}

	gcm, err := s.aead(scope)
	if err != nil {
		return "", errors.Join(ErrDecryptionFailed, err)
	}

	ns := gcm.NonceSize()
	if len(raw) < ns+gcm.Overhead() {
		return "", ErrInvalidCiphertext
	}

	plaintext, err := gcm.Open(nil, raw[:ns], raw[ns:], scope)
	if err != nil {
		return "", errors.Join(ErrDecryptionFailed, err)
	}
	return string(plaintext), nil
}

func (s *Sealer) aead(scope []byte) (cipher.AEAD, error) {
	if len(scope) == 0 {
		return nil, ErrEmptyScope
	}

	key := make([]byte, KeySize)
	defer clear(key)
	if _, err := io.ReadFull(hkdf.New(sha256.New, s.appKey, scope, []byte(hkdfInfo)), key); err != nil {
		return nil, errors.Join(ErrKeyDerivationFailed, err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
