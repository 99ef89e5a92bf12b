package config

import (
	"crypto/rand"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"

	"github.com/zfs-agent/zfs-agent/internal/zfserr"
)

// apiKeyFile is the name of the persisted key file within the config
// directory.
const apiKeyFile = "api_key"

// apiKeyBytes is the amount of random entropy backing each generated key,
// hex-encoded to twice this many characters.
const apiKeyBytes = 32

// DefaultDir returns os.UserConfigDir()/zfs-agent, the directory the API
// key and any other per-user agent state is persisted under.
func DefaultDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", zfserr.Wrap(zfserr.IoError, err, "resolving user config directory")
	}
	return filepath.Join(base, "zfs-agent"), nil
}

// LoadOrGenerateAPIKey reads the persisted key from dir/api_key, generating
// and persisting a new one on first start. An existing key is never
// regenerated or rotated.
func LoadOrGenerateAPIKey(dir string) (string, error) {
	path := filepath.Join(dir, apiKeyFile)

	if data, err := os.ReadFile(path); err == nil {
		key := strings.TrimSpace(string(data))
		if key != "" {
			return key, nil
		}
	} else if !os.IsNotExist(err) {
		return "", zfserr.Wrap(zfserr.IoError, err, "reading API key file")
	}

	key, err := generateKey()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", zfserr.Wrap(zfserr.IoError, err, "creating config directory")
	}
	if err := os.WriteFile(path, []byte(key), 0o600); err != nil {
		return "", zfserr.Wrap(zfserr.IoError, err, "writing API key file")
	}
	return key, nil
}

func generateKey() (string, error) {
	buf := make([]byte, apiKeyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", zfserr.Wrap(zfserr.Internal, err, "generating API key")
	}
	return hex.EncodeToString(buf), nil
}
