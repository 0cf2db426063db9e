package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/musehq/muse/internal/muselog"
	"github.com/musehq/muse/internal/session"
)

// openSession resolves the repository containing the current directory
// and opens its storage; the caller must Close it.
func openSession() (*session.Session, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("get working directory: %w", err)
	}
	return session.Open(cwd)
}

// withSession runs fn against an opened session, closing it afterwards.
func withSession(fn func(*session.Session, *slog.Logger) error) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(s, muselog.New(s.MuseDir()))
}

// withLockedSession additionally holds the repository's advisory lock
// for the duration of fn. Every mutating command runs under it.
func withLockedSession(fn func(*session.Session, *slog.Logger) error) error {
	return withSession(func(s *session.Session, logger *slog.Logger) error {
		release, err := s.Repo.Lock()
		if err != nil {
			return err
		}
		defer release()
		return fn(s, logger)
	})
}
