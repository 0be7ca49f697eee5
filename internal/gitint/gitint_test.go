package gitint

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/anthropic/edit-attribution/internal/store"
)

// --- Co-Author Detection Tests ---

func TestDetectCoAuthor(t *testing.T) {
	cases := []struct {
		name      string
		message   string
		wantFound bool
		wantName  string
	}{
		{
			name:      "standard format",
			message:   "feat: add auth\n\nCo-Authored-By: Claude <claude@anthropic.com>",
			wantFound: true,
			wantName:  "Claude",
		},
		{
			name:      "lowercase",
			message:   "fix: bug\n\nco-authored-by: GPT-4 <gpt@openai.com>",
			wantFound: true,
			wantName:  "GPT-4",
		},
		{
			name:      "mixed case",
			message:   "chore: cleanup\n\nCo-authored-by: Copilot <copilot@github.com>",
			wantFound: true,
			wantName:  "Copilot",
		},
		{
			name:      "no email angle brackets",
			message:   "feat: thing\n\nCo-Authored-By: Claude",
			wantFound: true,
			wantName:  "Claude",
		},
		{
			name:      "no coauthor",
			message:   "feat: add feature\n\nSome description.",
			wantFound: false,
			wantName:  "",
		},
		{
			name:      "empty message",
			message:   "",
			wantFound: false,
			wantName:  "",
		},
		{
			name:      "coauthor in middle of message",
			message:   "fix: stuff\n\nCo-Authored-By: AI Helper <ai@example.com>\n\nSigned-off-by: Dev",
			wantFound: true,
			wantName:  "AI Helper",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			found, name := DetectCoAuthor(tc.message)
			if found != tc.wantFound {
				t.Errorf("DetectCoAuthor found = %v, want %v", found, tc.wantFound)
			}
			if name != tc.wantName {
				t.Errorf("DetectCoAuthor name = %q, want %q", name, tc.wantName)
			}
		})
	}
}

func TestAllCoAuthors(t *testing.T) {
	msg := "feat: multi-author\n\nCo-Authored-By: Alice <alice@example.com>\nCo-Authored-By: Bob <bob@example.com>"
	names := AllCoAuthors(msg)
	if len(names) != 2 {
		t.Fatalf("AllCoAuthors returned %d names, want 2", len(names))
	}
	if names[0] != "Alice" {
		t.Errorf("names[0] = %q, want %q", names[0], "Alice")
	}
	if names[1] != "Bob" {
		t.Errorf("names[1] = %q, want %q", names[1], "Bob")
	}
}

// --- Integration Tests (require temp git repo) ---

func TestSyncCommits(t *testing.T) {
	tmpDir := t.TempDir()
	repo := initTestRepo(t, tmpDir)

	wt, err := repo.Worktree()
	if err != nil {
		t.Fatal(err)
	}

	writeFile(t, tmpDir, "hello.go", "package main\n\nfunc main() {}\n")
	if _, err := wt.Add("hello.go"); err != nil {
		t.Fatal(err)
	}
	commitHash1, err := wt.Commit("feat: initial commit\n\nCo-Authored-By: Claude <claude@anthropic.com>", &gogit.CommitOptions{
		Author: testAuthor(),
	})
	if err != nil {
		t.Fatal(err)
	}

	writeFile(t, tmpDir, "hello.go", "package main\n\nimport \"fmt\"\n\nfunc main() {\n\tfmt.Println(\"hello\")\n}\n")
	if _, err := wt.Add("hello.go"); err != nil {
		t.Fatal(err)
	}
	commitHash2, err := wt.Commit("fix: add greeting", &gogit.CommitOptions{
		Author: testAuthor(),
	})
	if err != nil {
		t.Fatal(err)
	}

	dbPath := filepath.Join(tmpDir, "test.db")
	s, err := store.New(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	r, err := Open(tmpDir)
	if err != nil {
		t.Fatal(err)
	}

	since := time.Now().Add(-1 * time.Hour)
	if err := r.SyncCommits(context.Background(), s, since); err != nil {
		t.Fatalf("SyncCommits: %v", err)
	}

	count, err := s.GitCommitsCount()
	if err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Errorf("GitCommitsCount = %d, want 2", count)
	}

	var hasCoauthor int
	var coauthorName string
	err = s.DB().QueryRow(`SELECT has_coauthor_tag, coauthor_name FROM git_commits WHERE hash = ?`, commitHash1.String()).Scan(&hasCoauthor, &coauthorName)
	if err != nil {
		t.Fatal(err)
	}
	if hasCoauthor != 1 {
		t.Error("expected coauthor tag on first commit")
	}
	if coauthorName != "Claude" {
		t.Errorf("coauthor_name = %q, want %q", coauthorName, "Claude")
	}

	err = s.DB().QueryRow(`SELECT has_coauthor_tag FROM git_commits WHERE hash = ?`, commitHash2.String()).Scan(&hasCoauthor)
	if err != nil {
		t.Fatal(err)
	}
	if hasCoauthor != 0 {
		t.Error("expected no coauthor tag on second commit")
	}

	// Second sync is a no-op (HEAD unchanged).
	if err := r.SyncCommits(context.Background(), s, since); err != nil {
		t.Fatalf("second SyncCommits: %v", err)
	}
	count, err = s.GitCommitsCount()
	if err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Errorf("GitCommitsCount after repeat sync = %d, want 2", count)
	}
}

func TestHeadInfo(t *testing.T) {
	tmpDir := t.TempDir()
	repo := initTestRepo(t, tmpDir)

	wt, err := repo.Worktree()
	if err != nil {
		t.Fatal(err)
	}

	writeFile(t, tmpDir, "a.txt", "alpha\n")
	if _, err := wt.Add("a.txt"); err != nil {
		t.Fatal(err)
	}
	hash, err := wt.Commit("add a.txt\n\nCo-Authored-By: Assistant <a@example.com>", &gogit.CommitOptions{
		Author: testAuthor(),
	})
	if err != nil {
		t.Fatal(err)
	}

	r, err := Open(tmpDir)
	if err != nil {
		t.Fatal(err)
	}

	info, err := r.HeadInfo()
	if err != nil {
		t.Fatalf("HeadInfo: %v", err)
	}
	if info.CommitHash != hash.String() {
		t.Errorf("CommitHash = %q, want %q", info.CommitHash, hash.String())
	}
	if info.CoAuthor != "Assistant" {
		t.Errorf("CoAuthor = %q, want Assistant", info.CoAuthor)
	}
	if info.CommitTime.IsZero() {
		t.Error("CommitTime is zero")
	}
}

func TestLatestCommitFor(t *testing.T) {
	tmpDir := t.TempDir()
	repo := initTestRepo(t, tmpDir)

	wt, err := repo.Worktree()
	if err != nil {
		t.Fatal(err)
	}

	writeFile(t, tmpDir, "a.txt", "alpha\n")
	if _, err := wt.Add("a.txt"); err != nil {
		t.Fatal(err)
	}
	hashA, err := wt.Commit("add a.txt", &gogit.CommitOptions{Author: testAuthor()})
	if err != nil {
		t.Fatal(err)
	}

	writeFile(t, tmpDir, "b.txt", "beta\n")
	if _, err := wt.Add("b.txt"); err != nil {
		t.Fatal(err)
	}
	if _, err := wt.Commit("add b.txt", &gogit.CommitOptions{Author: testAuthor()}); err != nil {
		t.Fatal(err)
	}

	r, err := Open(tmpDir)
	if err != nil {
		t.Fatal(err)
	}

	info, err := r.LatestCommitFor("a.txt")
	if err != nil {
		t.Fatalf("LatestCommitFor: %v", err)
	}
	if info == nil || info.CommitHash != hashA.String() {
		t.Errorf("LatestCommitFor(a.txt) = %+v, want hash %s", info, hashA.String())
	}

	info, err = r.LatestCommitFor("missing.txt")
	if err != nil {
		t.Fatalf("LatestCommitFor(missing): %v", err)
	}
	if info != nil {
		t.Errorf("expected nil for untouched path, got %+v", info)
	}
}

// --- Helpers ---

func initTestRepo(t *testing.T, dir string) *gogit.Repository {
	t.Helper()
	repo, err := gogit.PlainInit(dir, false)
	if err != nil {
		t.Fatal(err)
	}
	return repo
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func testAuthor() *object.Signature {
	return &object.Signature{
		Name:  "Test Author",
		Email: "test@example.com",
		When:  time.Now(),
	}
}
