package credentials

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/jsamuelsen/quote-saver/internal/platform/logging"
)

// DefaultFileName is the credentials file looked up in the user config dir.
const DefaultFileName = "credentials.toml"

// File is the on-disk layout of a credentials file:
//
//	[credentials]
//	token = "eyJhbGciOi..."
type File struct {
	Credentials struct {
		Token string `toml:"token"`
	} `toml:"credentials"`
}

// LoadFile reads and parses the credentials file at path.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}

	var f File
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse credentials file: %w", err)
	}

	return &f, nil
}

// DefaultFilePath returns <user config dir>/quote-saver/credentials.toml,
// or "" when the config dir cannot be determined.
func DefaultFilePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}

	return filepath.Join(dir, "quote-saver", DefaultFileName)
}

// FileStore reads the token from a TOML credentials file. The file is read
// on every call so edits made while the program runs are picked up.
type FileStore struct {
	path string
}

// NewFileStore creates a FileStore for path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the file the store reads.
func (s *FileStore) Path() string {
	return s.path
}

// Token implements ports.CredentialProvider. A missing file is an absent
// token; an unreadable or malformed one is logged and treated the same way.
func (s *FileStore) Token(ctx context.Context) (string, bool) {
	if s == nil || s.path == "" {
		return "", false
	}

	f, err := LoadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logging.FromContext(ctx).WarnContext(ctx, "credentials file unusable",
				slog.String("path", s.path),
				slog.String("error", err.Error()))
		}

		return "", false
	}

	token := strings.TrimSpace(f.Credentials.Token)

	return token, token != ""
}
