package sessions

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/applyflow/applyflow/pkg/turns"
)

// FileStore keeps one JSON document per session under a root directory.
// Single-node, non-replicated; suited to local development.
type FileStore struct {
	root string
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates the root directory if needed.
func NewFileStore(root string) (*FileStore, error) {
	if root == "" {
		root = filepath.Join(os.TempDir(), "applyflow-sessions")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, errors.Wrapf(ErrStorageUnavailable, "create session root %s: %v", root, err)
	}
	return &FileStore{root: root}, nil
}

func (s *FileStore) Kind() string { return "file" }

func (s *FileStore) path(id string) string {
	// Session ids are opaque caller-supplied strings; keep them out of path
	// semantics.
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '-', r == '_', r == '.':
			return r
		default:
			return '_'
		}
	}, id)
	return filepath.Join(s.root, "session_"+safe+".json")
}

// Load implements Store. An unseen session id yields an empty transcript.
func (s *FileStore) Load(ctx context.Context, id string) ([]turns.Turn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(ErrStorageUnavailable, "read session %s: %v", id, err)
	}
	var ts []turns.Turn
	if err := json.Unmarshal(data, &ts); err != nil {
		return nil, errors.Wrapf(ErrStorageUnavailable, "decode session %s: %v", id, err)
	}
	return ts, nil
}

// Append implements Store. The updated transcript is written to a temp file
// and renamed into place so a failed write never leaves a partial document.
func (s *FileStore) Append(ctx context.Context, id string, newTurns []turns.Turn) error {
	if len(newTurns) == 0 {
		return nil
	}
	existing, err := s.Load(ctx, id)
	if err != nil {
		return err
	}
	updated := append(existing, newTurns...)

	data, err := json.MarshalIndent(updated, "", "  ")
	if err != nil {
		return errors.Wrapf(ErrStorageUnavailable, "encode session %s: %v", id, err)
	}

	target := s.path(id)
	tmp, err := os.CreateTemp(s.root, "session_*.tmp")
	if err != nil {
		return errors.Wrapf(ErrStorageUnavailable, "stage session %s: %v", id, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return errors.Wrapf(ErrStorageUnavailable, "write session %s: %v", id, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return errors.Wrapf(ErrStorageUnavailable, "close session %s: %v", id, err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		_ = os.Remove(tmpName)
		return errors.Wrapf(ErrStorageUnavailable, "commit session %s: %v", id, err)
	}

	log.Debug().
		Str("session_id", id).
		Int("appended", len(newTurns)).
		Int("total", len(updated)).
		Msg("sessions: appended turns")
	return nil
}
