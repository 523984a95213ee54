package configcrypt

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/ppiankov/depgate/internal/secerr"
	"github.com/ppiankov/depgate/internal/secevent"
)

// AlgorithmGCM is the only cipher identifier this package reads or writes.
const AlgorithmGCM = "aes-256-gcm"

const gcmTagSize = 16

// EncryptedBlob is the at-rest shape of one encrypted string leaf. The
// GCM tag is stored apart from the ciphertext so a reader can tell the
// parts of the blob apart without knowing the cipher.
type EncryptedBlob struct {
	Encrypted string `yaml:"encrypted" json:"encrypted"`
	IV        string `yaml:"iv" json:"iv"`
	Tag       string `yaml:"tag" json:"tag"`
	Algorithm string `yaml:"algorithm" json:"algorithm"`
}

// Crypto encrypts and decrypts config material under the Keeper's key.
type Crypto struct {
	keeper *Keeper
	events secevent.Recorder
	now    func() time.Time
}

// New creates a Crypto bound to the given key file. A nil recorder
// discards events.
func New(keyPath string, events secevent.Recorder) *Crypto {
	if events == nil {
		events = secevent.Nop{}
	}
	return &Crypto{keeper: NewKeeper(keyPath), events: events, now: time.Now}
}

// NewDefault creates a Crypto using the per-user key file location.
func NewDefault() (*Crypto, error) {
	path, err := DefaultKeyPath()
	if err != nil {
		return nil, err
	}
	return New(path, nil), nil
}

// KeyPath returns the key file location this Crypto operates on.
func (c *Crypto) KeyPath() string { return c.keeper.path }

func (c *Crypto) aead() (cipher.AEAD, error) {
	key, err := c.keeper.Key()
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("configcrypt: init cipher: %w", err)
	}
	return cipher.NewGCM(block)
}

// Encrypt seals plaintext under a fresh random nonce.
func (c *Crypto) Encrypt(plaintext string) (*EncryptedBlob, error) {
	aead, err := c.aead()
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("configcrypt: generate nonce: %w", err)
	}
	sealed := aead.Seal(nil, nonce, []byte(plaintext), nil)
	split := len(sealed) - gcmTagSize
	return &EncryptedBlob{
		Encrypted: base64.StdEncoding.EncodeToString(sealed[:split]),
		IV:        base64.StdEncoding.EncodeToString(nonce),
		Tag:       base64.StdEncoding.EncodeToString(sealed[split:]),
		Algorithm: AlgorithmGCM,
	}, nil
}

// Decrypt opens a blob. Tampered ciphertext, tag or IV, a foreign key,
// or an unknown algorithm identifier all fail with an IntegrityError
// rather than yielding corrupted plaintext.
func (c *Crypto) Decrypt(blob *EncryptedBlob) (string, error) {
	if blob.Algorithm != AlgorithmGCM {
		return "", &secerr.IntegrityError{Reason: "unsupported algorithm identifier"}
	}
	aead, err := c.aead()
	if err != nil {
		return "", err
	}
	ct, err := base64.StdEncoding.DecodeString(blob.Encrypted)
	if err != nil {
		return "", &secerr.IntegrityError{Reason: "malformed ciphertext encoding"}
	}
	nonce, err := base64.StdEncoding.DecodeString(blob.IV)
	if err != nil || len(nonce) != aead.NonceSize() {
		return "", &secerr.IntegrityError{Reason: "malformed iv"}
	}
	tag, err := base64.StdEncoding.DecodeString(blob.Tag)
	if err != nil || len(tag) != gcmTagSize {
		return "", &secerr.IntegrityError{Reason: "malformed tag"}
	}
	plain, err := aead.Open(nil, nonce, append(ct, tag...), nil)
	if err != nil {
		return "", &secerr.IntegrityError{Reason: "decrypt failed"}
	}
	return string(plain), nil
}
