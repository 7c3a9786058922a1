package guard

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// salt is a fixed, public XOR pad. Obfuscation only keeps the key out of
// plain sight on disk; the backend's bcrypt check is what gates deletes.
const salt = "worklog-local-obfuscation"

// Obfuscate XORs key with the static salt and hex-encodes the result.
func Obfuscate(key string) string {
	if key == "" {
		return ""
	}
	return hex.EncodeToString(xor([]byte(key)))
}

// Reveal reverses Obfuscate.
func Reveal(obfuscated string) (string, error) {
	raw, err := hex.DecodeString(obfuscated)
	if err != nil {
		return "", fmt.Errorf("reveal key: %w", err)
	}
	return string(xor(raw)), nil
}

func xor(b []byte) []byte {
	out := make([]byte, len(b))
	for i := range b {
		out[i] = b[i] ^ salt[i%len(salt)]
	}
	return out
}

// KeyFile stores the obfuscated secret key next to the config file.
type KeyFile struct {
	Path string
}

// DefaultKeyFile returns ~/.config/worklog/secret.key
func DefaultKeyFile() (KeyFile, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return KeyFile{}, err
	}
	return KeyFile{Path: filepath.Join(dir, "worklog", "secret.key")}, nil
}

// Load returns the obfuscated key, or "" when the file does not exist.
func (k KeyFile) Load() (string, error) {
	data, err := os.ReadFile(k.Path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read key file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Save obfuscates key and writes it with owner-only permissions.
func (k KeyFile) Save(key string) error {
	if err := os.MkdirAll(filepath.Dir(k.Path), 0o700); err != nil {
		return fmt.Errorf("create key dir: %w", err)
	}
	if err := os.WriteFile(k.Path, []byte(Obfuscate(key)+"\n"), 0o600); err != nil {
		return fmt.Errorf("write key file: %w", err)
	}
	return nil
}
