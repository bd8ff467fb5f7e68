// internal/wallet/encryption.go
package wallet

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"io"

	"go.uber.org/zap"
	"golang.org/x/crypto/pbkdf2"

	"github.com/uracles/mini-wallet-application/internal/apperr"
	"github.com/uracles/mini-wallet-application/internal/logging"
)

const (
	keySize   = 32 // AES-256
	saltSize  = 16
	nonceSize = 12
	kdfRounds = 150_000
	minSecret = 32
)

// Keybox encrypts private key material for at-rest storage. Every Encrypt
// call draws a fresh salt and nonce, and derives the AES key with PBKDF2
// over the process secret and the salt, so the same plaintext never
// produces the same token twice. Tokens are hex(salt || nonce ||
// ciphertext+tag) and carry everything needed to decrypt.
type Keybox struct {
	secret []byte
}

func NewKeybox(secret string) (*Keybox, error) {
	if len(secret) < minSecret {
		return nil, apperr.Newf(apperr.CodeValidation, "encryption secret must be at least %d bytes", minSecret)
	}
	return &Keybox{secret: []byte(secret)}, nil
}

func (k *Keybox) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", apperr.New(apperr.CodeValidation, "plaintext cannot be empty")
	}

	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", apperr.Wrap(apperr.CodeInternal, "failed to generate salt", err)
	}

	gcm, err := k.aead(salt)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", apperr.Wrap(apperr.CodeInternal, "failed to generate nonce", err)
	}

	token := make([]byte, 0, saltSize+nonceSize+len(plaintext)+gcm.Overhead())
	token = append(token, salt...)
	token = append(token, nonce...)
	token = gcm.Seal(token, nonce, []byte(plaintext), nil)

	logging.Debug("key material encrypted", zap.Int("tokenSize", len(token)))
	return hex.EncodeToString(token), nil
}

func (k *Keybox) Decrypt(token string) (string, error) {
	raw, err := hex.DecodeString(token)
	if err != nil {
		return "", apperr.Wrap(apperr.CodeDecryption, "malformed token encoding", err)
	}
	if len(raw) < saltSize+nonceSize+1 {
		return "", apperr.New(apperr.CodeDecryption, "token too short")
	}

	salt, nonce, ciphertext := raw[:saltSize], raw[saltSize:saltSize+nonceSize], raw[saltSize+nonceSize:]

	gcm, err := k.aead(salt)
	if err != nil {
		return "", err
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", apperr.Wrap(apperr.CodeDecryption, "authentication failed", err)
	}

	return string(plaintext), nil
}

func (k *Keybox) aead(salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key(k.secret, salt, kdfRounds, keySize, sha256.New)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "failed to create cipher", err)
	}

	gcm, err := cipher.NewGCMWithNonceSize(block, nonceSize)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "failed to create GCM", err)
	}
	return gcm, nil
}
