package security

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeTemp creates a regular file with content under dir and returns its path.
func writeTemp(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
	return path
}

// linkTemp creates a symlink to target and returns the link path.
func linkTemp(t *testing.T, dir, name, target string) string {
	t.Helper()
	link := filepath.Join(dir, name)
	if err := os.Symlink(target, link); err != nil {
		t.Fatalf("creating symlink %s: %v", link, err)
	}
	return link
}

func TestCheckSymlinkRegularFile(t *testing.T) {
	path := writeTemp(t, t.TempDir(), "plain.txt", "content")

	// A regular file passes under every policy.
	for _, policy := range []SymlinkPolicy{RejectSymlinks, ResolveSymlinks, AllowSymlinks} {
		safeInfo, err := CheckSymlink(path, policy)
		if err != nil {
			t.Errorf("policy %d rejected a regular file: %v", policy, err)
			continue
		}
		if safeInfo.IsSymlink {
			t.Error("regular file reported as symlink")
		}
		if safeInfo.ResolvedPath != path {
			t.Errorf("resolved path changed for a regular file: %s", safeInfo.ResolvedPath)
		}
	}
}

func TestCheckSymlinkPolicies(t *testing.T) {
	dir := t.TempDir()
	target := writeTemp(t, dir, "target.txt", "target content")
	link := linkTemp(t, dir, "alias.txt", target)

	t.Run("reject", func(t *testing.T) {
		_, err := CheckSymlink(link, RejectSymlinks)
		if err == nil {
			t.Fatal("expected an error for a symlink under RejectSymlinks")
		}
		if !strings.Contains(err.Error(), "symlinks are not allowed") {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("resolve", func(t *testing.T) {
		safeInfo, err := CheckSymlink(link, ResolveSymlinks)
		if err != nil {
			t.Fatalf("resolving symlink: %v", err)
		}
		if !safeInfo.IsSymlink {
			t.Error("symlink not identified")
		}
		want, _ := filepath.EvalSymlinks(target)
		if safeInfo.ResolvedPath != want {
			t.Errorf("resolved to %s, want %s", safeInfo.ResolvedPath, want)
		}
	})

	t.Run("allow", func(t *testing.T) {
		safeInfo, err := CheckSymlink(link, AllowSymlinks)
		if err != nil {
			t.Fatalf("allowing symlink: %v", err)
		}
		if safeInfo.ResolvedPath != link {
			t.Errorf("AllowSymlinks must keep the original path, got %s", safeInfo.ResolvedPath)
		}
	})

	t.Run("broken link", func(t *testing.T) {
		broken := linkTemp(t, dir, "broken.txt", filepath.Join(dir, "gone.txt"))
		if _, err := CheckSymlink(broken, ResolveSymlinks); err == nil {
			t.Error("expected an error resolving a broken symlink")
		}
	})
}

func TestCheckSymlinkErrors(t *testing.T) {
	if _, err := CheckSymlink(filepath.Join(t.TempDir(), "missing.txt"), RejectSymlinks); err == nil {
		t.Error("expected an error for a missing file")
	}

	path := writeTemp(t, t.TempDir(), "plain.txt", "x")
	_, err := CheckSymlink(path, SymlinkPolicy(99))
	if err == nil || !strings.Contains(err.Error(), "invalid symlink policy") {
		t.Errorf("expected an invalid policy error, got: %v", err)
	}
}

func TestSafeReadFile(t *testing.T) {
	dir := t.TempDir()
	path := writeTemp(t, dir, "config.yml", "log-level: info\n")

	content, err := SafeReadFile(path, RejectSymlinks)
	if err != nil {
		t.Fatalf("SafeReadFile failed: %v", err)
	}
	if string(content) != "log-level: info\n" {
		t.Errorf("unexpected content: %q", content)
	}

	link := linkTemp(t, dir, "config-link.yml", path)
	if _, err := SafeReadFile(link, RejectSymlinks); err == nil {
		t.Error("expected an error reading a symlink under RejectSymlinks")
	}
	if got, err := SafeReadFile(link, ResolveSymlinks); err != nil || string(got) != "log-level: info\n" {
		t.Errorf("ResolveSymlinks read failed: %q, %v", got, err)
	}
}

func TestSafeWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.json")

	if err := SafeWriteFile(path, []byte(`{}`), 0o600, RejectSymlinks); err != nil {
		t.Fatalf("SafeWriteFile failed: %v", err)
	}
	content, err := os.ReadFile(path)
	if err != nil || string(content) != `{}` {
		t.Errorf("written content mismatch: %q, %v", content, err)
	}
}

func TestSafeWriteFileSymlinkedDir(t *testing.T) {
	dir := t.TempDir()
	realDir := filepath.Join(dir, "real")
	if err := os.Mkdir(realDir, 0o700); err != nil {
		t.Fatal(err)
	}
	linkDir := linkTemp(t, dir, "shortcut", realDir)

	path := filepath.Join(linkDir, "out.json")
	if err := SafeWriteFile(path, []byte(`{}`), 0o600, RejectSymlinks); err == nil {
		t.Error("expected an error writing through a symlinked directory")
	}
	if err := SafeWriteFile(path, []byte(`{}`), 0o600, ResolveSymlinks); err != nil {
		t.Errorf("ResolveSymlinks write failed: %v", err)
	}
}

func TestSafeOpenFile(t *testing.T) {
	dir := t.TempDir()

	// Creating a new file only checks the parent directory.
	path := filepath.Join(dir, "fresh.txt")
	file, err := SafeOpenFile(path, os.O_CREATE|os.O_RDWR, 0o600, RejectSymlinks)
	if err != nil {
		t.Fatalf("SafeOpenFile create failed: %v", err)
	}
	if _, err := file.WriteString("data"); err != nil {
		t.Errorf("writing: %v", err)
	}
	file.Close()

	link := linkTemp(t, dir, "fresh-link.txt", path)
	if _, err := SafeOpenFile(link, os.O_RDONLY, 0o600, RejectSymlinks); err == nil {
		t.Error("expected an error opening a symlink under RejectSymlinks")
	}
}
