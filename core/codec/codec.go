// Package codec seals grade scores before they reach the store.
package codec

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/pkg/errors"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	"github.com/schoolrecords/sf10/core"
)

var (
	hkdfInfo = []byte("sf10.core.codec.scores")

	errMalformed = errors.New("malformed ciphertext")
)

// Codec encrypts & decrypts one score value at a time.
type Codec interface {
	Encrypt(plain string) (string, error)
	// Decrypt returns "" for anything it cannot open: an unreadable score is an absent score.
	Decrypt(cipherText string) string
}

type aeadCodec struct {
	aead   cipher.AEAD
	logger core.Logger
}

var _ Codec = (*aeadCodec)(nil)

// New derives a XChaCha20-Poly1305 key from secret.
func New(secret string, logger core.Logger) (Codec, error) {
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, hkdfInfo), key); err != nil {
		return nil, errors.Wrap(err, "deriving score key")
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, errors.Wrap(err, "creating score cipher")
	}
	return &aeadCodec{aead: aead, logger: logger}, nil
}

func (c *aeadCodec) Encrypt(plain string) (string, error) {
	if plain == "" {
		return "", nil
	}
	nonce := make([]byte, c.aead.NonceSize(), c.aead.NonceSize()+len(plain)+c.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", errors.Wrap(err, "generating nonce")
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(plain), nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

func (c *aeadCodec) Decrypt(cipherText string) string {
	if cipherText == "" {
		return ""
	}
	plain, err := c.open(cipherText)
	if err != nil {
		c.logger.Warn(fmt.Sprintf("codec.Decrypt: %v", err), err)
		return ""
	}
	return plain
}

func (c *aeadCodec) open(cipherText string) (string, error) {
	data, err := base64.RawURLEncoding.DecodeString(cipherText)
	if err != nil {
		return "", errors.Wrap(errMalformed, err.Error())
	}
	if len(data) < c.aead.NonceSize()+c.aead.Overhead() {
		return "", errMalformed
	}
	nonce, sealed := data[:c.aead.NonceSize()], data[c.aead.NonceSize():]
	plain, err := c.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", errors.Wrap(err, "opening ciphertext")
	}
	return string(plain), nil
}
