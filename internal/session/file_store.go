package session

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

var fileMagic = []byte("SSv1")

const (
	saltSize      = 16
	argonTime     = 1
	argonMemoryKB = 19 * 1024
	argonThreads  = 1
)

// FileStore seals the token with XChaCha20-Poly1305 under a key derived from
// secret with Argon2id. File layout: magic | salt | nonce | ciphertext.
type FileStore struct {
	path   string
	secret []byte
}

// NewFileStore returns a store writing to path. An empty secret falls back to
// a per-device value derived from the host and user.
func NewFileStore(path, secret string) *FileStore {
	if secret == "" {
		secret = deviceSecret()
	}
	return &FileStore{path: path, secret: []byte(secret)}
}

func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Load(ctx context.Context) (string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrNoSession
	}
	if err != nil {
		return "", fmt.Errorf("reading session file: %w", err)
	}

	minLen := len(fileMagic) + saltSize + chacha20poly1305.NonceSizeX + chacha20poly1305.Overhead
	if len(data) < minLen || !bytes.Equal(data[:len(fileMagic)], fileMagic) {
		return "", ErrCorruptSession
	}
	rest := data[len(fileMagic):]
	salt, rest := rest[:saltSize], rest[saltSize:]
	nonce, ciphertext := rest[:chacha20poly1305.NonceSizeX], rest[chacha20poly1305.NonceSizeX:]

	aead, err := chacha20poly1305.NewX(s.deriveKey(salt))
	if err != nil {
		return "", fmt.Errorf("creating cipher: %w", err)
	}
	plaintext, err := aead.Open(nil, nonce, ciphertext, fileMagic)
	if err != nil {
		return "", ErrCorruptSession
	}
	if len(plaintext) == 0 {
		return "", ErrNoSession
	}
	return string(plaintext), nil
}

func (s *FileStore) Save(ctx context.Context, token string) error {
	if token == "" {
		return ErrEmptyToken
	}

	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return fmt.Errorf("generating salt: %w", err)
	}
	aead, err := chacha20poly1305.NewX(s.deriveKey(salt))
	if err != nil {
		return fmt.Errorf("creating cipher: %w", err)
	}
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return fmt.Errorf("generating nonce: %w", err)
	}

	out := make([]byte, 0, len(fileMagic)+saltSize+len(nonce)+len(token)+aead.Overhead())
	out = append(out, fileMagic...)
	out = append(out, salt...)
	out = append(out, nonce...)
	out = aead.Seal(out, nonce, []byte(token), fileMagic)

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("creating session dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".session-*")
	if err != nil {
		return fmt.Errorf("creating temp session file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("setting session file mode: %w", err)
	}
	if _, err := tmp.Write(out); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing session file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replacing session file: %w", err)
	}
	return nil
}

func (s *FileStore) Delete(ctx context.Context) error {
	err := os.Remove(s.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing session file: %w", err)
	}
	return nil
}

func (s *FileStore) deriveKey(salt []byte) []byte {
	return argon2.IDKey(s.secret, salt, argonTime, argonMemoryKB, argonThreads, chacha20poly1305.KeySize)
}

func deviceSecret() string {
	host, _ := os.Hostname()
	home, _ := os.UserHomeDir()
	return "socialsync|" + host + "|" + home
}
