// Package security provides encrypted at-rest storage for the wallet key.
package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/crypto/pbkdf2"
)

const (
	keySize          = 32 // AES-256
	saltSize         = 16
	pbkdf2Iterations = 100000
	keyringFile      = "keyring.enc"
)

// encryptedKey is the on-disk format.
type encryptedKey struct {
	Salt       string `json:"salt"`
	Nonce      string `json:"nonce"`
	Ciphertext string `json:"ciphertext"`
	Version    int    `json:"version"`
}

// Keyring stores the Polygon private key encrypted with a passphrase-derived
// AES-256-GCM key.
type Keyring struct {
	configDir string
}

// NewKeyring creates a keyring rooted at the given config directory.
func NewKeyring(configDir string) *Keyring {
	return &Keyring{configDir: configDir}
}

// Store encrypts and writes the private key.
func (k *Keyring) Store(privateKey, passphrase string) error {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return fmt.Errorf("generating salt: %w", err)
	}

	gcm, err := newGCM(passphrase, salt)
	if err != nil {
		return err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return fmt.Errorf("generating nonce: %w", err)
	}

	ciphertext := gcm.Seal(nil, nonce, []byte(privateKey), nil)

	data, err := json.Marshal(encryptedKey{
		Salt:       base64.StdEncoding.EncodeToString(salt),
		Nonce:      base64.StdEncoding.EncodeToString(nonce),
		Ciphertext: base64.StdEncoding.EncodeToString(ciphertext),
		Version:    1,
	})
	if err != nil {
		return fmt.Errorf("encoding keyring: %w", err)
	}

	if err := os.MkdirAll(k.configDir, 0700); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	path := filepath.Join(k.configDir, keyringFile)
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing keyring: %w", err)
	}
	return nil
}

// Load decrypts and returns the private key.
func (k *Keyring) Load(passphrase string) (string, error) {
	path := filepath.Join(k.configDir, keyringFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading keyring: %w", err)
	}

	var enc encryptedKey
	if err := json.Unmarshal(data, &enc); err != nil {
		return "", fmt.Errorf("decoding keyring: %w", err)
	}

	salt, err := base64.StdEncoding.DecodeString(enc.Salt)
	if err != nil {
		return "", fmt.Errorf("decoding salt: %w", err)
	}
	nonce, err := base64.StdEncoding.DecodeString(enc.Nonce)
	if err != nil {
		return "", fmt.Errorf("decoding nonce: %w", err)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(enc.Ciphertext)
	if err != nil {
		return "", fmt.Errorf("decoding ciphertext: %w", err)
	}

	gcm, err := newGCM(passphrase, salt)
	if err != nil {
		return "", err
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("decrypting keyring (wrong passphrase?): %w", err)
	}
	return string(plaintext), nil
}

// Exists reports whether an encrypted key is stored.
func (k *Keyring) Exists() bool {
	_, err := os.Stat(filepath.Join(k.configDir, keyringFile))
	return err == nil
}

func newGCM(passphrase string, salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key([]byte(passphrase), salt, pbkdf2Iterations, keySize, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("creating gcm: %w", err)
	}
	return gcm, nil
}
