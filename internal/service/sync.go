package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/birthapp/birthapp-go/internal/blob"
	"github.com/birthapp/birthapp-go/internal/github"
)

// SyncStatus describes a sync run or its dry run.
type SyncStatus struct {
	OK     bool   `json:"ok"`
	DryRun bool   `json:"dry_run"`
	Owner  string `json:"owner"`
	Repo   string `json:"repo"`
	Branch string `json:"branch"`
	Path   string `json:"path"`
	Count  int    `json:"count"`
	Store  string `json:"store"`
}

// SyncService copies the repository snapshot over the live collection.
type SyncService struct {
	source SnapshotSource
	repo   github.Config
	store  blob.Store
}

func NewSyncService(source SnapshotSource, repo github.Config, store blob.Store) *SyncService {
	return &SyncService{source: source, repo: repo, store: store}
}

// Status reads the snapshot without writing anything.
func (s *SyncService) Status(ctx context.Context) (SyncStatus, error) {
	status := s.status(true)

	records, err := s.source.ReadSnapshot(ctx)
	if err != nil {
		return SyncStatus{}, fmt.Errorf("reading snapshot: %w", err)
	}

	status.OK = true
	status.Count = len(records)
	return status, nil
}

// Sync overwrites the live collection with the snapshot.
func (s *SyncService) Sync(ctx context.Context) (SyncStatus, error) {
	status := s.status(false)

	records, err := s.source.ReadSnapshot(ctx)
	if err != nil {
		return SyncStatus{}, fmt.Errorf("reading snapshot: %w", err)
	}

	if err := s.store.Set(ctx, records); err != nil {
		return SyncStatus{}, fmt.Errorf("writing %s store: %w", s.store.Kind(), err)
	}

	slog.Info("synced store from snapshot", "store", s.store.Kind(), "count", len(records))
	status.OK = true
	status.Count = len(records)
	return status, nil
}

func (s *SyncService) status(dryRun bool) SyncStatus {
	return SyncStatus{
		DryRun: dryRun,
		Owner:  s.repo.Owner,
		Repo:   s.repo.Repo,
		Branch: s.repo.Branch,
		Path:   s.repo.Path,
		Store:  s.store.Kind(),
	}
}
