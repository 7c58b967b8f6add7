package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/cache"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/filesystem"
)

const (
	DefaultBranch = "main"
	DefaultAuthor = "archivist"
	DefaultEmail  = "archivist@local"
)

// JournalEntry is one recorded run.
type JournalEntry struct {
	Hash      string
	Message   string
	Path      string
	Timestamp time.Time
}

// Journal keeps run reports in a git repository, one commit per run.
type Journal struct {
	repo     *git.Repository
	worktree *git.Worktree
	rootPath string
}

// OpenJournal opens the journal under dir, creating it on first use.
func OpenJournal(dir string) (*Journal, error) {
	gitPath := filepath.Join(dir, ".git")
	if _, err := os.Stat(gitPath); errors.Is(err, os.ErrNotExist) {
		if err := initJournal(dir); err != nil {
			return nil, err
		}
	}

	storage := filesystem.NewStorage(osfs.New(gitPath), cache.NewObjectLRUDefault())
	repo, err := git.Open(storage, osfs.New(dir))
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("get worktree: %w", err)
	}

	return &Journal{repo: repo, worktree: worktree, rootPath: dir}, nil
}

func initJournal(dir string) error {
	gitPath := filepath.Join(dir, ".git")
	if err := os.MkdirAll(gitPath, 0755); err != nil {
		return fmt.Errorf("create journal directory: %w", err)
	}

	storage := filesystem.NewStorage(osfs.New(gitPath), cache.NewObjectLRUDefault())
	repo, err := git.Init(storage, osfs.New(dir))
	if err != nil {
		return fmt.Errorf("init journal: %w", err)
	}

	cfg, err := repo.Config()
	if err != nil {
		return fmt.Errorf("get config: %w", err)
	}
	cfg.Init.DefaultBranch = DefaultBranch
	if err := repo.SetConfig(cfg); err != nil {
		return fmt.Errorf("set config: %w", err)
	}

	head := plumbing.NewSymbolicReference(plumbing.HEAD, plumbing.NewBranchReferenceName(DefaultBranch))
	if err := repo.Storer.SetReference(head); err != nil {
		return fmt.Errorf("set HEAD: %w", err)
	}
	return nil
}

// Record writes the report and commits it.
func (j *Journal) Record(ctx context.Context, report *RunReport) (*JournalEntry, error) {
	rel := report.Path()
	path := filepath.Join(j.rootPath, rel)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(report.Render()), 0644); err != nil {
		return nil, fmt.Errorf("write report: %w", err)
	}

	if _, err := j.worktree.Add(filepath.ToSlash(rel)); err != nil {
		return nil, fmt.Errorf("stage report: %w", err)
	}

	hash, err := j.worktree.Commit(report.Summary(), &git.CommitOptions{
		Author: &object.Signature{
			Name:  DefaultAuthor,
			Email: DefaultEmail,
			When:  report.Finished,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	commit, err := j.repo.CommitObject(hash)
	if err != nil {
		return nil, fmt.Errorf("get commit: %w", err)
	}

	entry := toEntry(commit)
	entry.Path = rel
	return entry, nil
}

// Log returns the most recent runs first. limit <= 0 means all.
func (j *Journal) Log(ctx context.Context, limit int) ([]*JournalEntry, error) {
	if _, err := j.repo.Head(); errors.Is(err, plumbing.ErrReferenceNotFound) {
		return nil, nil
	}

	iter, err := j.repo.Log(&git.LogOptions{})
	if err != nil {
		return nil, fmt.Errorf("get log: %w", err)
	}
	defer iter.Close()

	var entries []*JournalEntry
	err = iter.ForEach(func(c *object.Commit) error {
		if limit > 0 && len(entries) >= limit {
			return io.EOF
		}
		entry := toEntry(c)
		if stats, err := c.Stats(); err == nil && len(stats) > 0 {
			entry.Path = stats[0].Name
		}
		entries = append(entries, entry)
		return nil
	})
	if err != nil && err != io.EOF {
		return nil, err
	}

	return entries, nil
}

// Show returns the report committed by ref.
func (j *Journal) Show(ctx context.Context, ref string) (string, error) {
	resolved, err := j.repo.ResolveRevision(plumbing.Revision(ref))
	if err != nil {
		return "", fmt.Errorf("resolve ref: %w", err)
	}

	commit, err := j.repo.CommitObject(*resolved)
	if err != nil {
		return "", fmt.Errorf("get commit: %w", err)
	}

	stats, err := commit.Stats()
	if err != nil {
		return "", fmt.Errorf("get stats: %w", err)
	}
	if len(stats) == 0 {
		return "", ErrNotFound
	}

	f, err := commit.File(stats[0].Name)
	if err != nil {
		return "", fmt.Errorf("get report: %w", err)
	}
	return f.Contents()
}

func toEntry(c *object.Commit) *JournalEntry {
	return &JournalEntry{
		Hash:      c.Hash.String(),
		Message:   strings.TrimSpace(c.Message),
		Timestamp: c.Author.When,
	}
}
