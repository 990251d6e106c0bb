package middleware

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/aretw0/graft/pkg/ports"
)

// envelopeKey is the only field an encrypted document exposes at rest.
const envelopeKey = "__encrypted__"

// EncryptionConfig holds the keys for encryption and decryption.
type EncryptionConfig struct {
	// ActiveKey is the key used for encrypting new data.
	// Must be 32 bytes for AES-256.
	ActiveKey []byte

	// FallbackKeys is a list of old keys to try when decryption fails.
	// This enables zero-downtime key rotation.
	FallbackKeys [][]byte
}

type encryptionMiddleware struct {
	next   ports.Store
	config EncryptionConfig
}

// NewEncryptionMiddleware creates a middleware that encrypts document
// bodies using AES-GCM (Envelope Encryption). Stored documents carry a
// single opaque field; identifiers stay in the clear so lookups by id keep
// working.
//
// Filtered reads cannot be pushed to the backend (it only sees
// ciphertext), so Find and Count fetch the collection and filter after
// decryption. Size collections accordingly.
func NewEncryptionMiddleware(config EncryptionConfig) Middleware {
	if len(config.ActiveKey) != 32 {
		panic("active key must be 32 bytes (AES-256)")
	}
	return func(next ports.Store) ports.Store {
		return &encryptionMiddleware{
			next:   next,
			config: config,
		}
	}
}

func (m *encryptionMiddleware) Ping(ctx context.Context) error {
	return m.next.Ping(ctx)
}

func (m *encryptionMiddleware) Insert(ctx context.Context, collection string, doc map[string]any) (string, error) {
	envelope, err := m.seal(doc)
	if err != nil {
		return "", err
	}
	return m.next.Insert(ctx, collection, envelope)
}

func (m *encryptionMiddleware) Replace(ctx context.Context, collection, id string, doc map[string]any) error {
	envelope, err := m.seal(doc)
	if err != nil {
		return err
	}
	return m.next.Replace(ctx, collection, id, envelope)
}

func (m *encryptionMiddleware) FindByID(ctx context.Context, collection, id string) (map[string]any, error) {
	envelope, err := m.next.FindByID(ctx, collection, id)
	if err != nil {
		return nil, err
	}
	return m.open(envelope)
}

func (m *encryptionMiddleware) Find(ctx context.Context, collection string, filter map[string]any) ([]map[string]any, error) {
	envelopes, err := m.next.Find(ctx, collection, nil)
	if err != nil {
		return nil, err
	}

	var out []map[string]any
	for _, envelope := range envelopes {
		doc, err := m.open(envelope)
		if err != nil {
			return nil, err
		}
		if matchesFilter(doc, filter) {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (m *encryptionMiddleware) Count(ctx context.Context, collection string, filter map[string]any) (int64, error) {
	if len(filter) == 0 {
		return m.next.Count(ctx, collection, nil)
	}
	docs, err := m.Find(ctx, collection, filter)
	if err != nil {
		return 0, err
	}
	return int64(len(docs)), nil
}

func (m *encryptionMiddleware) Delete(ctx context.Context, collection, id string) error {
	return m.next.Delete(ctx, collection, id)
}

func (m *encryptionMiddleware) Close(ctx context.Context) error {
	return m.next.Close(ctx)
}

// seal serializes and encrypts a document body into its envelope form.
func (m *encryptionMiddleware) seal(doc map[string]any) (map[string]any, error) {
	plaintext, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal document: %w", err)
	}
	ciphertext, err := encrypt(plaintext, m.config.ActiveKey)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt document: %w", err)
	}
	return map[string]any{
		envelopeKey: base64.StdEncoding.EncodeToString(ciphertext),
	}, nil
}

// open decrypts an envelope back into the document body, keeping the id the
// backend attached. It fails secure: a document without an envelope is an
// error, not a passthrough.
func (m *encryptionMiddleware) open(envelope map[string]any) (map[string]any, error) {
	encoded, ok := envelope[envelopeKey].(string)
	if !ok {
		return nil, errors.New("document is missing its encrypted envelope")
	}

	ciphertext, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode ciphertext base64: %w", err)
	}

	plaintext, err := decryptWithRotation(ciphertext, m.config.ActiveKey, m.config.FallbackKeys)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt document: %w", err)
	}

	var doc map[string]any
	if err := json.Unmarshal(plaintext, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal decrypted document: %w", err)
	}
	if id, ok := envelope["_id"]; ok {
		doc["_id"] = id
	}
	return doc, nil
}

// matchesFilter applies the flat equality semantics of ports.Store.Find to
// an already-decrypted document. Values compare after a JSON round trip, so
// numeric filter values should match JSON's types.
func matchesFilter(doc, filter map[string]any) bool {
	for k, want := range filter {
		if doc[k] != want {
			return false
		}
	}
	return true
}

// Helpers

func encrypt(plaintext []byte, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func decryptWithRotation(ciphertext []byte, activeKey []byte, fallbackKeys [][]byte) ([]byte, error) {
	// Try active key first
	if plain, err := decrypt(ciphertext, activeKey); err == nil {
		return plain, nil
	}

	// Try fallbacks in order
	for _, key := range fallbackKeys {
		if plain, err := decrypt(ciphertext, key); err == nil {
			return plain, nil
		}
	}

	return nil, errors.New("decryption failed with all available keys")
}

func decrypt(ciphertext []byte, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}

	nonce := ciphertext[:gcm.NonceSize()]
	ciphertextBytes := ciphertext[gcm.NonceSize():]

	return gcm.Open(nil, nonce, ciphertextBytes, nil)
}
