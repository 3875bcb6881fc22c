// Package integration provides integration tests for the bibpub command.
package integration

import (
	"encoding/json"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
)

var (
	bibpubBinary     string
	bibpubBinaryOnce sync.Once
	bibpubBinaryErr  error
)

// getBinary builds the bibpub binary once and returns its path.
func getBinary(t *testing.T) string {
	t.Helper()
	bibpubBinaryOnce.Do(func() {
		// Get module root directory
		_, filename, _, ok := runtime.Caller(0)
		if !ok {
			bibpubBinaryErr = os.ErrInvalid
			return
		}
		moduleRoot := filepath.Dir(filepath.Dir(filepath.Dir(filename)))

		// Build bibpub to a temp location
		tmpDir, err := os.MkdirTemp("", "bibpub-test-*")
		if err != nil {
			bibpubBinaryErr = err
			return
		}
		bibpubBinary = filepath.Join(tmpDir, "bibpub")

		cmd := exec.Command("go", "build", "-o", bibpubBinary, "./cmd/bibpub")
		cmd.Dir = moduleRoot
		if output, err := cmd.CombinedOutput(); err != nil {
			bibpubBinaryErr = &buildError{output: string(output), err: err}
			return
		}
	})
	if bibpubBinaryErr != nil {
		t.Fatalf("failed to build bibpub: %v", bibpubBinaryErr)
	}
	return bibpubBinary
}

type buildError struct {
	output string
	err    error
}

func (e *buildError) Error() string {
	return e.err.Error() + ": " + e.output
}

const siteBib = `@article{smith2020,
  title = {Deep Things},
  author = {Jane Doe and John Smith},
  journal = {Nature},
  year = {2020}
}

@inproceedings{lee2019,
  title = {Fast Things},
  author = {K. Lee},
  booktitle = {Proceedings of ICML},
  year = {2019}
}
`

const sitePage = `<html><body>
<!-- BIBTEX_JOURNALS_START -->
<!-- BIBTEX_JOURNALS_END -->
<!-- BIBTEX_CONFERENCE_START -->
<!-- BIBTEX_CONFERENCE_END -->
</body></html>
`

// setupSite creates a site directory with files/citations.bib and publications.html.
func setupSite(t *testing.T, page string) string {
	t.Helper()
	siteDir := t.TempDir()

	if err := os.MkdirAll(filepath.Join(siteDir, "files"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(siteDir, "files", "citations.bib"), []byte(siteBib), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(siteDir, "publications.html"), []byte(page), 0644); err != nil {
		t.Fatal(err)
	}
	return siteDir
}

// runBibpub executes bibpub in siteDir and returns stdout, stderr, and the exit code.
func runBibpub(t *testing.T, siteDir string, args ...string) (string, string, int) {
	t.Helper()
	cmd := exec.Command(getBinary(t), args...)
	cmd.Dir = siteDir
	cmd.Env = append(os.Environ(), "BIBPUB_ROOT=")

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()

	code := 0
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code = exitErr.ExitCode()
	} else if err != nil {
		t.Fatalf("running bibpub: %v", err)
	}
	return stdout.String(), stderr.String(), code
}

func readPage(t *testing.T, siteDir string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(siteDir, "publications.html"))
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func TestUpdate_NoArgs(t *testing.T) {
	siteDir := setupSite(t, sitePage)

	stdout, stderr, code := runBibpub(t, siteDir)
	if code != 0 {
		t.Fatalf("bibpub exited %d\nstdout: %s\nstderr: %s", code, stdout, stderr)
	}
	if stdout != "Updated publications.html from citations.bib\n" {
		t.Errorf("stdout = %q", stdout)
	}

	page := readPage(t, siteDir)
	if !strings.Contains(page, `<a href="./files/citations.bib#smith2020">Deep Things</a>`) {
		t.Errorf("journal entry missing:\n%s", page)
	}
	if !strings.Contains(page, `<p class="publication-meta">2019 · Proceedings of ICML</p>`) {
		t.Errorf("conference entry missing:\n%s", page)
	}
	journalsEnd := strings.Index(page, "<!-- BIBTEX_JOURNALS_END -->")
	if strings.Index(page, "#lee2019") < journalsEnd {
		t.Errorf("conference entry rendered in journals region:\n%s", page)
	}

	// A second run leaves the page byte-identical
	if _, _, code := runBibpub(t, siteDir, "update"); code != 0 {
		t.Fatalf("second run exited %d", code)
	}
	if again := readPage(t, siteDir); again != page {
		t.Errorf("second run changed the page:\n%s", again)
	}

	// The confirmation is the same plain line in both output modes
	human, _, code := runBibpub(t, siteDir, "update", "--human")
	if code != 0 || human != stdout {
		t.Errorf("--human run exited %d with %q, want %q", code, human, stdout)
	}
}

func TestUpdate_MissingMarker(t *testing.T) {
	page := strings.Replace(sitePage, "<!-- BIBTEX_JOURNALS_END -->", "", 1)
	siteDir := setupSite(t, page)

	stdout, _, code := runBibpub(t, siteDir, "update")
	if code != 3 {
		t.Errorf("exit code = %d, want 3", code)
	}

	var resp struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal([]byte(stdout), &resp); err != nil {
		t.Fatalf("error output is not JSON: %v\n%s", err, stdout)
	}
	if !strings.Contains(resp.Error, "BIBTEX_JOURNALS_END") {
		t.Errorf("error = %q, should name the missing marker", resp.Error)
	}
	if got := readPage(t, siteDir); got != page {
		t.Errorf("page was modified:\n%s", got)
	}
}

func TestUpdate_DryRun(t *testing.T) {
	siteDir := setupSite(t, sitePage)

	stdout, _, code := runBibpub(t, siteDir, "update", "--dry-run")
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if !strings.Contains(stdout, "#smith2020") {
		t.Errorf("dry run output missing entries:\n%s", stdout)
	}
	if got := readPage(t, siteDir); got != sitePage {
		t.Errorf("dry run wrote the page:\n%s", got)
	}
}

func TestCheck(t *testing.T) {
	siteDir := setupSite(t, sitePage+"<!-- BIBTEX_CONFERENCE_END -->\n")

	stdout, _, code := runBibpub(t, siteDir, "check")
	if code != 4 {
		t.Errorf("exit code = %d, want 4", code)
	}

	var resp struct {
		Status       string   `json:"status"`
		Entries      int      `json:"entries"`
		MarkerErrors []string `json:"marker_errors"`
	}
	if err := json.Unmarshal([]byte(stdout), &resp); err != nil {
		t.Fatalf("check output is not JSON: %v\n%s", err, stdout)
	}
	if resp.Status != "failed" || resp.Entries != 2 || len(resp.MarkerErrors) != 1 {
		t.Errorf("check response = %+v", resp)
	}
}

func TestList_Human(t *testing.T) {
	siteDir := setupSite(t, sitePage)

	stdout, _, code := runBibpub(t, siteDir, "list", "--kind", "journals", "--human")
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if !strings.HasPrefix(stdout, "Journals (1)\n") || strings.Contains(stdout, "lee2019") {
		t.Errorf("list output = %q", stdout)
	}
}

func TestInitAndConfig(t *testing.T) {
	siteDir := setupSite(t, sitePage)

	if _, _, code := runBibpub(t, siteDir, "init"); code != 0 {
		t.Fatalf("init exited %d", code)
	}
	if _, _, code := runBibpub(t, siteDir, "init"); code != 1 {
		t.Errorf("second init exit code = %d, want 1", code)
	}

	cfg := "html_file: docs/pubs.html\n"
	if err := os.WriteFile(filepath.Join(siteDir, ".bibpub.yml"), []byte(cfg), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(siteDir, "docs"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(siteDir, "docs", "pubs.html"), []byte(sitePage), 0644); err != nil {
		t.Fatal(err)
	}

	stdout, _, code := runBibpub(t, siteDir, "--human")
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if stdout != "Updated pubs.html from citations.bib\n" {
		t.Errorf("stdout = %q", stdout)
	}
	if got := readPage(t, siteDir); got != sitePage {
		t.Error("default page should be untouched when config points elsewhere")
	}
}
