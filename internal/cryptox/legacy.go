package cryptox

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"encoding/base64"
	"errors"
	"unicode/utf8"
)

var saltedMagic = []byte("Salted__")

var ErrLegacyDecrypt = errors.New("legacy signature decrypt failed")

// decryptLegacy opens an OpenSSL-compatible envelope:
// base64("Salted__" || salt[8] || AES-256-CBC(PKCS#7 padded plaintext)).
func decryptLegacy(ciphertext string, passphrase []byte) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", ErrMalformedCiphertext
	}
	if len(raw) < 16+aes.BlockSize || !bytes.Equal(raw[:8], saltedMagic) {
		return "", ErrMalformedCiphertext
	}

	salt := raw[8:16]
	body := raw[16:]
	if len(body)%aes.BlockSize != 0 {
		return "", ErrMalformedCiphertext
	}

	key, iv := evpBytesToKey(passphrase, salt, 32, aes.BlockSize)

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}

	plain := make([]byte, len(body))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, body)

	plain, err = pkcs7Unpad(plain)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(plain) {
		return "", ErrLegacyDecrypt
	}
	return string(plain), nil
}

// evpBytesToKey is OpenSSL's MD5-based EVP_BytesToKey with one iteration.
func evpBytesToKey(passphrase, salt []byte, keyLen, ivLen int) ([]byte, []byte) {
	var derived, prev []byte
	for len(derived) < keyLen+ivLen {
		h := md5.New()
		h.Write(prev)
		h.Write(passphrase)
		h.Write(salt)
		prev = h.Sum(nil)
		derived = append(derived, prev...)
	}
	return derived[:keyLen], derived[keyLen : keyLen+ivLen]
}

func pkcs7Unpad(b []byte) ([]byte, error) {
	if len(b) == 0 {
		return nil, ErrLegacyDecrypt
	}
	n := int(b[len(b)-1])
	if n == 0 || n > aes.BlockSize || n > len(b) {
		return nil, ErrLegacyDecrypt
	}
	for _, p := range b[len(b)-n:] {
		if int(p) != n {
			return nil, ErrLegacyDecrypt
		}
	}
	return b[:len(b)-n], nil
}
