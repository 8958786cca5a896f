package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/birthapp/birthapp-go/internal/blob"
	"github.com/birthapp/birthapp-go/internal/github"
	"github.com/birthapp/birthapp-go/internal/model"
)

var ErrIndexOutOfRange = errors.New("record index out of range")

// WarningNoProposer is reported when a write is stored without opening a
// pull request.
// revertTimeout bounds the compensating write, which must outlive a cancelled
// request context.
const revertTimeout = 30 * time.Second

const WarningNoProposer = "GitHub is not configured; change saved to the local store only"

// SnapshotSource provides the canonical collection used to seed an empty blob.
type SnapshotSource interface {
	ReadSnapshot(ctx context.Context) ([]model.Record, error)
}

// Proposer opens a change request carrying the full collection.
type Proposer interface {
	ProposeChange(ctx context.Context, records []model.Record, title string) (*github.PullRequest, error)
}

// MutationResult is the outcome of a successful write.
type MutationResult struct {
	Records     []model.Record
	PullRequest *github.PullRequest
	Warning     string
}

// RevertError reports a write that reached the blob store but whose pull
// request could not be opened. Reverted tells whether the blob was restored.
type RevertError struct {
	Err       error
	Reverted  bool
	RevertErr error
}

func (e *RevertError) Error() string {
	if e.Reverted {
		return fmt.Sprintf("proposing change failed, store reverted: %v", e.Err)
	}
	return fmt.Sprintf("proposing change failed: %v; revert failed: %v", e.Err, e.RevertErr)
}

func (e *RevertError) Unwrap() error { return e.Err }

// PeopleService reconciles the live blob collection with the repository copy.
// Reads prefer the blob and bootstrap it from the snapshot source when it is
// empty. Writes go to the blob first, then to a pull request; a failed pull
// request rolls the blob back.
type PeopleService struct {
	store    blob.Store
	source   SnapshotSource
	proposer Proposer
	newID    func() string
}

// NewPeopleService wires the reconciliation layer. source and proposer may be
// nil, which disables bootstrap and pull requests respectively.
func NewPeopleService(store blob.Store, source SnapshotSource, proposer Proposer) *PeopleService {
	return &PeopleService{
		store:    store,
		source:   source,
		proposer: proposer,
		newID:    uuid.NewString,
	}
}

// List returns the live collection.
func (s *PeopleService) List(ctx context.Context) ([]model.Record, error) {
	records, found, err := s.store.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading %s store: %w", s.store.Kind(), err)
	}
	if found {
		return records, nil
	}

	if s.source == nil {
		return []model.Record{}, nil
	}

	records, err = s.source.ReadSnapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}

	if err := s.store.Set(ctx, records); err != nil {
		slog.Warn("could not seed store from snapshot", "store", s.store.Kind(), "error", err)
	} else {
		slog.Info("seeded store from snapshot", "store", s.store.Kind(), "count", len(records))
	}
	return records, nil
}

// Get returns the record at index.
func (s *PeopleService) Get(ctx context.Context, index int) (model.Record, error) {
	records, err := s.List(ctx)
	if err != nil {
		return model.Record{}, err
	}
	if index < 0 || index >= len(records) {
		return model.Record{}, ErrIndexOutOfRange
	}
	return records[index], nil
}

// Add appends rec.
func (s *PeopleService) Add(ctx context.Context, rec model.Record) (*MutationResult, error) {
	rec = rec.Normalize()
	if err := rec.Validate(); err != nil {
		return nil, err
	}

	return s.mutate(ctx, func(records []model.Record) ([]model.Record, string, error) {
		return append(records, rec), "Add birthday: " + fullName(rec), nil
	})
}

// Update replaces the record at index. The stored ID is kept when rec has none.
func (s *PeopleService) Update(ctx context.Context, index int, rec model.Record) (*MutationResult, error) {
	rec = rec.Normalize()
	if err := rec.Validate(); err != nil {
		return nil, err
	}

	return s.mutate(ctx, func(records []model.Record) ([]model.Record, string, error) {
		if index < 0 || index >= len(records) {
			return nil, "", ErrIndexOutOfRange
		}
		if rec.ID == "" {
			rec.ID = records[index].ID
		}
		records[index] = rec
		return records, "Update birthday: " + fullName(rec), nil
	})
}

// Delete removes the record at index.
func (s *PeopleService) Delete(ctx context.Context, index int) (*MutationResult, error) {
	return s.mutate(ctx, func(records []model.Record) ([]model.Record, string, error) {
		if index < 0 || index >= len(records) {
			return nil, "", ErrIndexOutOfRange
		}
		removed := records[index]
		records = append(records[:index], records[index+1:]...)
		return records, "Delete birthday: " + fullName(removed), nil
	})
}

// Replace swaps the whole collection for records.
func (s *PeopleService) Replace(ctx context.Context, records []model.Record) (*MutationResult, error) {
	next := make([]model.Record, len(records))
	for i, rec := range records {
		rec = rec.Normalize()
		if err := rec.Validate(); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		next[i] = rec
	}

	return s.mutate(ctx, func([]model.Record) ([]model.Record, string, error) {
		return next, fmt.Sprintf("Replace birthdays (%d entries)", len(next)), nil
	})
}

type mutation func(records []model.Record) ([]model.Record, string, error)

func (s *PeopleService) mutate(ctx context.Context, fn mutation) (*MutationResult, error) {
	previous, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	working := make([]model.Record, len(previous))
	copy(working, previous)

	next, title, err := fn(working)
	if err != nil {
		return nil, err
	}
	for i := range next {
		if next[i].ID == "" {
			next[i].ID = s.newID()
		}
	}

	if err := s.store.Set(ctx, next); err != nil {
		return nil, fmt.Errorf("writing %s store: %w", s.store.Kind(), err)
	}

	result := &MutationResult{Records: next}
	if s.proposer == nil {
		slog.Warn("pull request skipped", "reason", WarningNoProposer, "title", title)
		result.Warning = WarningNoProposer
		return result, nil
	}

	pr, err := s.proposer.ProposeChange(ctx, next, title)
	if err != nil {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), revertTimeout)
		revertErr := s.store.Set(rctx, previous)
		cancel()
		if revertErr != nil {
			slog.Error("pull request failed and revert failed", "title", title, "error", err, "revert_error", revertErr)
		} else {
			slog.Warn("pull request failed, store reverted", "title", title, "error", err)
		}
		return nil, &RevertError{Err: err, Reverted: revertErr == nil, RevertErr: revertErr}
	}

	result.PullRequest = pr
	return result, nil
}

func fullName(rec model.Record) string {
	return rec.FirstName + " " + rec.LastName
}
