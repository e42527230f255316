// Package crypto provides symmetric encryption for OAuth tokens before they
// are persisted. Tokens are encrypted with AES-256-CBC using a fresh random
// IV per call; the IV is prepended to the ciphertext (hex, ':'-separated) so
// decryption is self-contained.
//
// The scheme carries no authentication tag, so tampering with stored
// ciphertext is not detected. This matches the historical storage format and
// is a known weakness; migrating to an AEAD mode would invalidate every
// stored token.
package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
)

// CryptoError describes a failure to encrypt or decrypt a token.
// Malformed ciphertext (missing separator, bad hex, invalid block length)
// and key/IV size problems all surface as *CryptoError.
type CryptoError struct {
	Op  string // "encrypt" or "decrypt"
	Err error
}

func (e *CryptoError) Error() string {
	return fmt.Sprintf("token cipher: %s: %v", e.Op, e.Err)
}

func (e *CryptoError) Unwrap() error {
	return e.Err
}

// TokenCipher encrypts and decrypts token strings with a server-held
// 32-byte key. A zero-value TokenCipher is not usable; construct with
// NewTokenCipher.
type TokenCipher struct {
	key []byte
}

// NewTokenCipher builds a cipher from the configured key material.
// A 64-character hex string decodes to the 32-byte key directly; any other
// input is used as raw bytes, zero-padded or truncated to 32 bytes. The
// fallback keeps old deployments with ad-hoc keys working.
func NewTokenCipher(keyMaterial string) *TokenCipher {
	key := make([]byte, 32)
	if len(keyMaterial) == 64 {
		if decoded, err := hex.DecodeString(keyMaterial); err == nil {
			copy(key, decoded)
			return &TokenCipher{key: key}
		}
	}
	copy(key, keyMaterial)
	return &TokenCipher{key: key}
}

// Encrypt encrypts a plaintext token and returns "hex(iv):hex(ciphertext)".
// Every call draws a fresh random IV, so encrypting the same token twice
// yields different outputs.
func (c *TokenCipher) Encrypt(plaintext string) (string, error) {
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", &CryptoError{Op: "encrypt", Err: err}
	}

	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return "", &CryptoError{Op: "encrypt", Err: err}
	}

	padded := pkcs7Pad([]byte(plaintext), aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	return hex.EncodeToString(iv) + ":" + hex.EncodeToString(ciphertext), nil
}

// Decrypt reverses Encrypt. It fails with a *CryptoError when the input
// lacks the IV separator, is not valid hex, or has an invalid length.
func (c *TokenCipher) Decrypt(encrypted string) (string, error) {
	parts := strings.Split(encrypted, ":")
	if len(parts) != 2 {
		return "", &CryptoError{Op: "decrypt", Err: fmt.Errorf("invalid token format")}
	}

	iv, err := hex.DecodeString(parts[0])
	if err != nil {
		return "", &CryptoError{Op: "decrypt", Err: fmt.Errorf("invalid IV encoding: %w", err)}
	}
	if len(iv) != aes.BlockSize {
		return "", &CryptoError{Op: "decrypt", Err: fmt.Errorf("invalid IV size %d", len(iv))}
	}

	ciphertext, err := hex.DecodeString(parts[1])
	if err != nil {
		return "", &CryptoError{Op: "decrypt", Err: fmt.Errorf("invalid ciphertext encoding: %w", err)}
	}
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return "", &CryptoError{Op: "decrypt", Err: fmt.Errorf("invalid ciphertext length %d", len(ciphertext))}
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", &CryptoError{Op: "decrypt", Err: err}
	}

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)

	unpadded, err := pkcs7Unpad(plaintext, aes.BlockSize)
	if err != nil {
		return "", &CryptoError{Op: "decrypt", Err: err}
	}

	return string(unpadded), nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padding := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(padding)}, padding)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, fmt.Errorf("invalid padded length %d", len(data))
	}
	padding := int(data[len(data)-1])
	if padding == 0 || padding > blockSize {
		return nil, fmt.Errorf("invalid padding byte %d", padding)
	}
	for _, b := range data[len(data)-padding:] {
		if int(b) != padding {
			return nil, fmt.Errorf("corrupt padding")
		}
	}
	return data[:len(data)-padding], nil
}
