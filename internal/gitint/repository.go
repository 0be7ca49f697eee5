// Package gitint provides git repository integration using go-git.
// It resolves commit timing and Co-Authored-By trailers for the
// review-quality scorer.
//
// Git is a SECONDARY signal. The captured edit stream is primary; commit
// context corroborates review timing but never overrides the detection
// engine's attribution.
package gitint

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/anthropic/edit-attribution/internal/review"
	"github.com/anthropic/edit-attribution/internal/store"
)

// Repository wraps a go-git repository.
type Repository struct {
	repo *git.Repository
	path string
}

// Open opens an existing git repository at repoPath.
func Open(repoPath string) (*Repository, error) {
	repo, err := git.PlainOpen(repoPath)
	if err != nil {
		return nil, fmt.Errorf("open git repo at %s: %w", repoPath, err)
	}
	return &Repository{repo: repo, path: repoPath}, nil
}

// HeadInfo returns commit context for the current HEAD commit.
func (r *Repository) HeadInfo() (*review.CommitInfo, error) {
	head, err := r.repo.Head()
	if err != nil {
		return nil, fmt.Errorf("get HEAD: %w", err)
	}
	c, err := r.repo.CommitObject(head.Hash())
	if err != nil {
		return nil, fmt.Errorf("resolve HEAD commit: %w", err)
	}
	return commitInfo(c), nil
}

// LatestCommitFor returns commit context for the most recent commit
// touching relPath (repository relative), or nil when no commit touches
// it.
func (r *Repository) LatestCommitFor(relPath string) (*review.CommitInfo, error) {
	iter, err := r.repo.Log(&git.LogOptions{
		FileName: &relPath,
		Order:    git.LogOrderCommitterTime,
	})
	if err != nil {
		return nil, fmt.Errorf("git log %s: %w", relPath, err)
	}
	defer iter.Close()

	c, err := iter.Next()
	if err != nil {
		return nil, nil
	}
	return commitInfo(c), nil
}

// SyncCommits scans commits since the given time and stores any that
// are new. It tracks the last synced HEAD in daemon_state to make
// repeat syncs cheap.
func (r *Repository) SyncCommits(ctx context.Context, s *store.Store, since time.Time) error {
	lastHash, err := s.GetState(lastSyncedKey)
	if err != nil {
		return fmt.Errorf("get last synced commit: %w", err)
	}

	head, err := r.repo.Head()
	if err != nil {
		return fmt.Errorf("get HEAD: %w", err)
	}
	if lastHash == head.Hash().String() {
		return nil
	}

	iter, err := r.repo.Log(&git.LogOptions{
		Since: &since,
		Order: git.LogOrderCommitterTime,
	})
	if err != nil {
		return fmt.Errorf("git log: %w", err)
	}
	defer iter.Close()

	var synced int
	err = iter.ForEach(func(c *object.Commit) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if c.Hash.String() == lastHash {
			return errStopIteration
		}

		hash := c.Hash.String()
		author := fmt.Sprintf("%s <%s>", c.Author.Name, c.Author.Email)
		hasCoAuthor, coAuthor := DetectCoAuthor(c.Message)
		if err := s.InsertGitCommit(hash, author, c.Message, c.Author.When, hasCoAuthor, coAuthor); err != nil {
			log.Printf("gitint: insert commit %s: %v", hash[:7], err)
			// Continue processing other commits.
		}
		synced++
		return nil
	})
	if err != nil && err != errStopIteration {
		return fmt.Errorf("iterate commits: %w", err)
	}

	if synced > 0 {
		if err := s.SetState(lastSyncedKey, head.Hash().String()); err != nil {
			return fmt.Errorf("set last synced commit: %w", err)
		}
	}
	return nil
}

// SyncInterval returns the recommended interval between sync calls.
func SyncInterval() time.Duration {
	return 30 * time.Second
}

// DefaultLookback returns the default lookback period for first sync.
func DefaultLookback() time.Duration {
	return 30 * 24 * time.Hour
}

// Repo returns the underlying go-git repository for direct access.
func (r *Repository) Repo() *git.Repository {
	return r.repo
}

func commitInfo(c *object.Commit) *review.CommitInfo {
	_, coAuthor := DetectCoAuthor(c.Message)
	return &review.CommitInfo{
		CommitHash: c.Hash.String(),
		CommitTime: c.Author.When,
		CoAuthor:   coAuthor,
	}
}

const lastSyncedKey = "git_last_synced_commit"

// errStopIteration stops commit iteration at the last synced commit.
var errStopIteration = fmt.Errorf("stop iteration")
