package credential

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"filippo.io/age"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/notterun/internal/provider"
)

// PassphraseEnv names the variable holding the keystore passphrase.
const PassphraseEnv = "NOTTERUN_KEYSTORE_PASSPHRASE"

var (
	ErrNoPassphrase = errors.New("keystore passphrase is not set (" + PassphraseEnv + ")")
	ErrNoKey        = errors.New("no key stored for provider")
)

// defaultWorkFactor is age's own default scrypt cost.
const defaultWorkFactor = 18

type keystorePayload struct {
	Version int               `yaml:"version"`
	Keys    map[string]string `yaml:"keys"`
}

// Keystore persists per-provider fallback keys in an age-encrypted file
// protected by a passphrase.
type Keystore struct {
	path       string
	passphrase string
	workFactor int
}

// OpenKeystore returns a keystore at path. The file is created on first Save.
func OpenKeystore(path, passphrase string) (*Keystore, error) {
	if passphrase == "" {
		return nil, ErrNoPassphrase
	}
	return &Keystore{path: path, passphrase: passphrase, workFactor: defaultWorkFactor}, nil
}

// OpenKeystoreFromEnv reads the passphrase from PassphraseEnv.
func OpenKeystoreFromEnv(path string) (*Keystore, error) {
	return OpenKeystore(path, os.Getenv(PassphraseEnv))
}

// SetWorkFactor overrides the scrypt cost used when saving.
func (k *Keystore) SetWorkFactor(logN int) { k.workFactor = logN }

// Path returns the keystore file location.
func (k *Keystore) Path() string { return k.path }

// Load decrypts the keystore. A missing file yields an empty map.
func (k *Keystore) Load() (map[string]string, error) {
	data, err := os.ReadFile(k.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read keystore: %w", err)
	}

	id, err := age.NewScryptIdentity(k.passphrase)
	if err != nil {
		return nil, fmt.Errorf("scrypt identity: %w", err)
	}
	r, err := age.Decrypt(bytes.NewReader(data), id)
	if err != nil {
		return nil, fmt.Errorf("decrypt keystore: %w", err)
	}
	plain, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read decrypted keystore: %w", err)
	}

	var p keystorePayload
	if err := yaml.Unmarshal(plain, &p); err != nil {
		return nil, fmt.Errorf("parse keystore: %w", err)
	}
	if p.Keys == nil {
		p.Keys = map[string]string{}
	}
	return p.Keys, nil
}

// Save encrypts keys and replaces the keystore file atomically.
func (k *Keystore) Save(keys map[string]string) error {
	plain, err := yaml.Marshal(keystorePayload{Version: 1, Keys: keys})
	if err != nil {
		return fmt.Errorf("marshal keystore: %w", err)
	}

	rcpt, err := age.NewScryptRecipient(k.passphrase)
	if err != nil {
		return fmt.Errorf("scrypt recipient: %w", err)
	}
	rcpt.SetWorkFactor(k.workFactor)

	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, rcpt)
	if err != nil {
		return fmt.Errorf("create encryptor: %w", err)
	}
	if _, err := w.Write(plain); err != nil {
		return fmt.Errorf("encrypt keystore: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize keystore: %w", err)
	}

	if dir := filepath.Dir(k.path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create keystore dir: %w", err)
		}
	}
	tmp := k.path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("write keystore: %w", err)
	}
	if err := os.Rename(tmp, k.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace keystore: %w", err)
	}
	return nil
}

// Set stores key for a provider.
func (k *Keystore) Set(name, key string) error {
	if key == "" {
		return fmt.Errorf("empty key for %q", name)
	}
	keys, err := k.Load()
	if err != nil {
		return err
	}
	keys[name] = key
	return k.Save(keys)
}

// Remove deletes a provider's key.
func (k *Keystore) Remove(name string) error {
	keys, err := k.Load()
	if err != nil {
		return err
	}
	if _, ok := keys[name]; !ok {
		return fmt.Errorf("%w: %q", ErrNoKey, name)
	}
	delete(keys, name)
	return k.Save(keys)
}

// ApplyTo pushes stored keys into the registry as fallback keys. Keys of
// providers the registry does not know are reported, the rest still apply.
func (k *Keystore) ApplyTo(reg *provider.Registry) (int, error) {
	keys, err := k.Load()
	if err != nil {
		return 0, err
	}
	names := make([]string, 0, len(keys))
	for name := range keys {
		names = append(names, name)
	}
	sort.Strings(names)

	var errs []error
	applied := 0
	for _, name := range names {
		if err := reg.UpdateFallback(name, keys[name]); err != nil {
			errs = append(errs, err)
			continue
		}
		applied++
	}
	return applied, errors.Join(errs...)
}
