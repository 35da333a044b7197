package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Backup writes a consistent copy of the open database to dest while the
// connection stays usable. The copy is built next to dest and renamed into
// place, so an existing file at dest is only replaced by a complete backup.
func (s *TransactionStore) Backup(ctx context.Context, dest string) error {
	if dest == "" {
		return fmt.Errorf("Backup: %w: empty destination", ErrInvalidArgument)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	db, err := s.conn("Backup")
	if err != nil {
		return err
	}
	if samePath(dest, s.path) {
		return fmt.Errorf("Backup: %w: destination is the open database", ErrInvalidArgument)
	}

	// VACUUM INTO requires a missing or empty target; CreateTemp gives an empty one.
	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".*.tmp")
	if err != nil {
		return fmt.Errorf("Backup: create temp file: %w: %w", ErrIO, err)
	}
	tmpPath := tmp.Name()
	_ = tmp.Close()

	if _, err := db.ExecContext(ctx, "VACUUM INTO ?", tmpPath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("Backup: vacuum into %q: %w: %w", tmpPath, ErrIO, err)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("Backup: rename to %q: %w: %w", dest, ErrIO, err)
	}

	s.log.Info().Str("path", s.path).Str("dest", dest).Msg("Database backed up")
	return nil
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return a == b
	}
	return absA == absB
}
