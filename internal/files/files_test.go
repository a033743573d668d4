package files

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestSanitizeName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"report.pdf", "report.pdf"},
		{`a<b>c:d"e/f\g|h?i*j`, "a_b_c_d_e_f_g_h_i_j"},
		{"", "unnamed_attachment"},
		{"no change needed", "no change needed"},
	}
	for _, c := range cases {
		if got := SanitizeName(c.in); got != c.want {
			t.Fatalf("SanitizeName(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestSave_Basic(t *testing.T) {
	root := t.TempDir()
	s := &Saver{Root: root}
	date := time.Date(2024, 3, 7, 12, 30, 0, 0, time.UTC)

	path, err := s.Save([]byte("hello"), "alice@example.com", "report.pdf", date)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	want := filepath.Join(root, "alice@example.com", "2024-03-07 - report.pdf")
	if path != want {
		t.Fatalf("path got %q, want %q", path, want)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(b) != "hello" {
		t.Fatalf("content got %q", b)
	}
	fi, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if !fi.ModTime().Equal(date) {
		t.Fatalf("mod time got %v, want %v", fi.ModTime(), date)
	}
}

func TestSave_CollisionChain(t *testing.T) {
	root := t.TempDir()
	s := &Saver{Root: root}
	date := time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC)

	var paths []string
	for _, content := range []string{"one", "two", "three"} {
		p, err := s.Save([]byte(content), "a@b.com", "report.pdf", date)
		if err != nil {
			t.Fatalf("Save %q: %v", content, err)
		}
		paths = append(paths, p)
	}

	want := []string{
		"2024-03-07 - report.pdf",
		"2024-03-07 - report-1.pdf",
		"2024-03-07 - report-2.pdf",
	}
	for i, w := range want {
		if filepath.Base(paths[i]) != w {
			t.Fatalf("save %d: got %q, want %q", i, filepath.Base(paths[i]), w)
		}
	}
	// Earlier files stay untouched.
	b, _ := os.ReadFile(paths[0])
	if string(b) != "one" {
		t.Fatalf("first file overwritten: %q", b)
	}
	b, _ = os.ReadFile(paths[2])
	if string(b) != "three" {
		t.Fatalf("third file content: %q", b)
	}
}

func TestSave_SanitizesSenderAndFilename(t *testing.T) {
	root := t.TempDir()
	s := &Saver{Root: root}
	date := time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC)

	path, err := s.Save([]byte("x"), `we/ird <sender>`, `in:va|lid?.txt`, date)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if filepath.Base(filepath.Dir(path)) != "we_ird _sender_" {
		t.Fatalf("sender dir got %q", filepath.Base(filepath.Dir(path)))
	}
	if filepath.Base(path) != "2024-03-07 - in_va_lid_.txt" {
		t.Fatalf("filename got %q", filepath.Base(path))
	}
}

func TestSave_EmptyFilenameGetsPlaceholder(t *testing.T) {
	root := t.TempDir()
	s := &Saver{Root: root}
	date := time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC)

	path, err := s.Save([]byte("x"), "a@b.com", "", date)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if filepath.Base(path) != "2024-03-07 - unnamed_attachment" {
		t.Fatalf("got %q", filepath.Base(path))
	}
}

func TestSave_RenameFailureLeavesNothingBehind(t *testing.T) {
	root := t.TempDir()
	s := &Saver{Root: root}
	date := time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC)

	// A name longer than the filesystem allows makes the final rename fail
	// after the temp file has been written.
	long := strings.Repeat("a", 300) + ".txt"
	if _, err := s.Save([]byte("x"), "a@b.com", long, date); err == nil {
		t.Fatal("Save succeeded with an unrenameable target")
	}
	entries, err := os.ReadDir(filepath.Join(root, "a@b.com"))
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("want empty dir after failed save, got %d entries (%s)", len(entries), entries[0].Name())
	}
}

func TestSave_LeavesNoTempFiles(t *testing.T) {
	root := t.TempDir()
	s := &Saver{Root: root}
	date := time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		if _, err := s.Save([]byte("x"), "a@b.com", "f.txt", date); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}
	entries, err := os.ReadDir(filepath.Join(root, "a@b.com"))
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("want 3 files, got %d", len(entries))
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".mailsweep-") {
			t.Fatalf("temp file left behind: %s", e.Name())
		}
	}
}
