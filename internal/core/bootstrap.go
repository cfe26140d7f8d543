package core

import (
	"context"
	"errors"

	"standcore/internal/seed"
	"standcore/pkg/domain"
)

// EnsureSeeded loads the catalog into an empty store. A store that already
// holds data is left alone. Without a seeder the empty store is a dead end
// and the caller gets a DataUnavailableError naming both gaps.
func (s *Service) EnsureSeeded(ctx context.Context, seeder *seed.Seeder) error {
	empty, err := s.Empty(ctx)
	if err != nil {
		return err
	}
	if !empty {
		return nil
	}
	if seeder == nil {
		return domain.DataUnavailableError{
			Collection: "catalog",
			LocalErr:   errors.New("store holds no data"),
			RemoteErr:  errors.New("no source configured"),
		}
	}
	snap, err := seeder.Build(ctx)
	if err != nil {
		return domain.DataUnavailableError{
			Collection: "catalog",
			LocalErr:   errors.New("store holds no data"),
			RemoteErr:  err,
		}
	}
	return s.SeedFromSnapshot(ctx, snap)
}
