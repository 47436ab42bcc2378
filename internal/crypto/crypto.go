// Package crypto seals the stored session token so the credential file on
// disk is not readable as-is. Sealed tokens carry a versioned envelope:
//
//	ry1.<base64url nonce>.<base64url ciphertext>
//
// The envelope marker is authenticated as associated data, so a sealed
// token cannot be replayed under a future envelope version.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
)

const envelope = "ry1"

var b64 = base64.RawURLEncoding

// Cipher seals tokens with AES-256-GCM.
type Cipher struct {
	aead cipher.AEAD
}

// NewCipher derives a Cipher from hex-encoded key material. The material is
// stretched to a 256-bit key with SHA-256, so operators may supply any hex
// string of at least 16 bytes rather than exactly 64 hex digits. An empty
// string returns a nil Cipher (the token is stored in plaintext).
func NewCipher(hexKey string) (*Cipher, error) {
	if hexKey == "" {
		return nil, nil
	}

	material, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("decoding hex key material: %w", err)
	}
	if len(material) < 16 {
		return nil, fmt.Errorf("key material must be at least 16 bytes, got %d", len(material))
	}
	key := sha256.Sum256(material)

	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("creating AES cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("creating GCM: %w", err)
	}

	return &Cipher{aead: aead}, nil
}

// Seal encrypts the raw token into the envelope format. If Cipher is nil,
// returns the token unchanged.
func (c *Cipher) Seal(token string) (string, error) {
	if c == nil {
		return token, nil
	}

	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generating nonce: %w", err)
	}

	box := c.aead.Seal(nil, nonce, []byte(token), []byte(envelope))
	return envelope + "." + b64.EncodeToString(nonce) + "." + b64.EncodeToString(box), nil
}

// Open decrypts a sealed envelope back into the raw token. If Cipher is
// nil, returns the input unchanged (assumes a plaintext token file).
func (c *Cipher) Open(sealed string) (string, error) {
	if c == nil {
		return sealed, nil
	}

	parts := strings.Split(sealed, ".")
	if len(parts) != 3 || parts[0] != envelope {
		return "", fmt.Errorf("not a sealed token")
	}

	nonce, err := b64.DecodeString(parts[1])
	if err != nil {
		return "", fmt.Errorf("decoding nonce: %w", err)
	}
	if len(nonce) != c.aead.NonceSize() {
		return "", fmt.Errorf("sealed token nonce has wrong size")
	}
	box, err := b64.DecodeString(parts[2])
	if err != nil {
		return "", fmt.Errorf("decoding ciphertext: %w", err)
	}

	token, err := c.aead.Open(nil, nonce, box, []byte(envelope))
	if err != nil {
		return "", fmt.Errorf("decrypting: %w", err)
	}
	return string(token), nil
}
