// Package cryptox implements the confidentiality transform applied to
// visitor consent signatures before they are persisted by the backend.
//
// New ciphertexts are AES-256-GCM sealed with a key derived from the shared
// desk secret via argon2id and are prefixed with "gcm1:". Ciphertexts written
// by the previous browser front-end (OpenSSL "Salted__" envelopes produced by
// passphrase AES-CBC) can still be decrypted so older records keep rendering.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"errors"
	"strings"

	"github.com/dmitrijs2005/visitdesk/internal/common"
	"golang.org/x/crypto/argon2"
)

const gcmPrefix = "gcm1:"

var signatureSalt = []byte("visitdesk/signature/v1")

var (
	ErrEmptyKey            = errors.New("signature key is empty")
	ErrEmptyPlaintext      = errors.New("nothing to encrypt")
	ErrMalformedCiphertext = errors.New("malformed ciphertext")
)

// DeriveKey stretches the shared secret into a 32-byte AES key.
func DeriveKey(secret []byte) []byte {
	return argon2.IDKey(secret, signatureSalt, 1, 64*1024, 4, 32)
}

// SignatureCipher encrypts and decrypts signature payloads (PNG data URLs).
// It is safe for concurrent use.
type SignatureCipher struct {
	key        []byte
	passphrase []byte
}

// NewSignatureCipher derives the AES key from secret. The raw secret is kept
// as well because legacy ciphertexts derive their key per message.
func NewSignatureCipher(secret string) (*SignatureCipher, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, ErrEmptyKey
	}
	return &SignatureCipher{
		key:        DeriveKey([]byte(secret)),
		passphrase: []byte(secret),
	}, nil
}

// Encrypt seals plaintext and returns "gcm1:" + base64(nonce || ciphertext).
func (c *SignatureCipher) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", ErrEmptyPlaintext
	}

	ciphertext, nonce, err := seal([]byte(plaintext), c.key)
	if err != nil {
		return "", err
	}

	buf := make([]byte, 0, len(nonce)+len(ciphertext))
	buf = append(buf, nonce...)
	buf = append(buf, ciphertext...)

	return gcmPrefix + base64.StdEncoding.EncodeToString(buf), nil
}

// Decrypt opens a ciphertext produced by Encrypt or by the legacy front-end.
func (c *SignatureCipher) Decrypt(ciphertext string) (string, error) {
	ciphertext = strings.TrimSpace(ciphertext)
	if ciphertext == "" {
		return "", ErrMalformedCiphertext
	}

	if !strings.HasPrefix(ciphertext, gcmPrefix) {
		return decryptLegacy(ciphertext, c.passphrase)
	}

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(ciphertext, gcmPrefix))
	if err != nil {
		return "", ErrMalformedCiphertext
	}
	if len(raw) < 12 {
		return "", ErrMalformedCiphertext
	}

	plaintext, err := open(raw[12:], raw[:12], c.key)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

// seal encrypts plaintext with AES-GCM under a fresh random 12-byte nonce.
func seal(plaintext, key []byte) (ciphertext, nonce []byte, err error) {
	nonce = common.GenerateRandByteArray(12)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, nil, err
	}

	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, nil, err
	}

	return aesgcm.Seal(nil, nonce, plaintext, nil), nonce, nil
}

func open(ciphertext, nonce, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return aesgcm.Open(nil, nonce, ciphertext, nil)
}
