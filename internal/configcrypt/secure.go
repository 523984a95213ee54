package configcrypt

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/depgate/internal/model"
	"github.com/ppiankov/depgate/internal/secerr"
	"github.com/ppiankov/depgate/internal/secevent"
)

// metaKey marks a document as selectively encrypted and records which
// top-level fields were sealed and when.
const metaKey = "__secure"

// sensitiveFields are the top-level document fields whose string leaves
// get encrypted at rest. Everything else stays cleartext.
var sensitiveFields = []string{"credentials", "tokens", "auth", "secrets", "registry"}

// StoreSecureConfig writes doc to path with string leaves under the
// sensitive top-level fields encrypted. The input document is not
// modified.
func (c *Crypto) StoreSecureConfig(path string, doc map[string]any) error {
	out := make(map[string]any, len(doc)+1)
	for k, v := range doc {
		out[k] = v
	}
	var encrypted []string
	for _, field := range sensitiveFields {
		v, ok := out[field]
		if !ok {
			continue
		}
		sealed, changed, err := c.encryptValue(v)
		if err != nil {
			return err
		}
		if changed {
			out[field] = sealed
			encrypted = append(encrypted, field)
		}
	}
	if len(encrypted) > 0 {
		out[metaKey] = map[string]any{
			"encrypted_fields": encrypted,
			"encrypted_at":     c.now().UTC().Format(time.RFC3339),
		}
	}
	data, err := yaml.Marshal(out)
	if err != nil {
		return fmt.Errorf("configcrypt: marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("configcrypt: write config: %w", err)
	}
	c.events.Record(secevent.Event{
		Type:     secevent.TypeCryptoOperation,
		Severity: model.SevLow,
		Details:  fmt.Sprintf("stored %s with %d encrypted fields", filepath.Base(path), len(encrypted)),
	})
	return nil
}

// LoadSecureConfig reads a config document, decrypting the fields its
// metadata names. Documents without the metadata pass through unchanged.
func (c *Crypto) LoadSecureConfig(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("configcrypt: read config: %w", err)
	}
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &secerr.ValidationError{Field: "config", Rule: "not a valid yaml document"}
	}
	meta, ok := doc[metaKey].(map[string]any)
	if !ok {
		return doc, nil
	}
	fields, _ := meta["encrypted_fields"].([]any)
	for _, f := range fields {
		name, ok := f.(string)
		if !ok {
			continue
		}
		v, ok := doc[name]
		if !ok {
			continue
		}
		plain, err := c.decryptValue(v)
		if err != nil {
			return nil, err
		}
		doc[name] = plain
	}
	delete(doc, metaKey)
	return doc, nil
}

// RotateKey decrypts every given config document under the current key,
// backs the key file up, installs a fresh key and re-encrypts. Returns
// the backup key file path.
func (c *Crypto) RotateKey(configPaths ...string) (string, error) {
	docs := make([]map[string]any, len(configPaths))
	for i, p := range configPaths {
		doc, err := c.LoadSecureConfig(p)
		if err != nil {
			return "", fmt.Errorf("configcrypt: rotate: decrypt %s: %w", filepath.Base(p), err)
		}
		docs[i] = doc
	}
	backup, err := c.keeper.Rotate()
	if err != nil {
		return "", err
	}
	for i, p := range configPaths {
		if err := c.StoreSecureConfig(p, docs[i]); err != nil {
			return "", fmt.Errorf("configcrypt: rotate: re-encrypt %s: %w", filepath.Base(p), err)
		}
	}
	c.events.Record(secevent.Event{
		Type:     secevent.TypeCryptoOperation,
		Severity: model.SevMedium,
		Details:  fmt.Sprintf("key rotated, %d documents re-encrypted", len(configPaths)),
	})
	return backup, nil
}

func (c *Crypto) encryptValue(v any) (any, bool, error) {
	switch t := v.(type) {
	case string:
		blob, err := c.Encrypt(t)
		if err != nil {
			return nil, false, err
		}
		return map[string]any{
			"encrypted": blob.Encrypted,
			"iv":        blob.IV,
			"tag":       blob.Tag,
			"algorithm": blob.Algorithm,
		}, true, nil
	case map[string]any:
		out := make(map[string]any, len(t))
		changed := false
		for k, inner := range t {
			sv, ch, err := c.encryptValue(inner)
			if err != nil {
				return nil, false, err
			}
			out[k] = sv
			changed = changed || ch
		}
		return out, changed, nil
	case []any:
		out := make([]any, len(t))
		changed := false
		for i, inner := range t {
			sv, ch, err := c.encryptValue(inner)
			if err != nil {
				return nil, false, err
			}
			out[i] = sv
			changed = changed || ch
		}
		return out, changed, nil
	default:
		return v, false, nil
	}
}

func (c *Crypto) decryptValue(v any) (any, error) {
	switch t := v.(type) {
	case map[string]any:
		if blob, ok := blobFrom(t); ok {
			return c.Decrypt(blob)
		}
		out := make(map[string]any, len(t))
		for k, inner := range t {
			pv, err := c.decryptValue(inner)
			if err != nil {
				return nil, err
			}
			out[k] = pv
		}
		return out, nil
	case []any:
		out := make([]any, len(t))
		for i, inner := range t {
			pv, err := c.decryptValue(inner)
			if err != nil {
				return nil, err
			}
			out[i] = pv
		}
		return out, nil
	default:
		return v, nil
	}
}

func blobFrom(m map[string]any) (*EncryptedBlob, bool) {
	enc, ok1 := m["encrypted"].(string)
	iv, ok2 := m["iv"].(string)
	tag, ok3 := m["tag"].(string)
	alg, ok4 := m["algorithm"].(string)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return nil, false
	}
	return &EncryptedBlob{Encrypted: enc, IV: iv, Tag: tag, Algorithm: alg}, true
}
