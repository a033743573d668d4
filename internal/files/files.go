package files

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// invalidChars covers the characters no mainstream filesystem accepts in a
// name, so saved files stay portable across platforms.
var invalidChars = strings.NewReplacer(
	"<", "_",
	">", "_",
	":", "_",
	`"`, "_",
	"/", "_",
	`\`, "_",
	"|", "_",
	"?", "_",
	"*", "_",
)

// SanitizeName replaces filesystem-hostile characters with underscores and
// substitutes a placeholder when the name comes out empty.
func SanitizeName(name string) string {
	name = invalidChars.Replace(name)
	if name == "" {
		return "unnamed_attachment"
	}
	return name
}

// Saver persists attachment bytes beneath Root, one directory per sender.
type Saver struct {
	Root string
	Log  *log.Logger
}

// Save writes content to <Root>/<sender>/<YYYY-MM-DD - filename>. When that
// name is taken, -1, -2, ... is appended before the extension until a free
// one is found. The file appears atomically via a rename from a temp file in
// the same directory; a crash mid-write leaves no partial file under the
// final name. The file's modification time is set to the email date, and a
// failure to set it is logged, not returned. Returns the path written.
func (s *Saver) Save(content []byte, sender, filename string, emailDate time.Time) (string, error) {
	dir := filepath.Join(s.Root, SanitizeName(sender))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create sender directory: %w", err)
	}

	dated := emailDate.Format("2006-01-02") + " - " + SanitizeName(filename)
	ext := filepath.Ext(dated)
	stem := strings.TrimSuffix(dated, ext)
	target := filepath.Join(dir, dated)
	for n := 1; ; n++ {
		if _, err := os.Stat(target); err != nil {
			break
		}
		target = filepath.Join(dir, fmt.Sprintf("%s-%d%s", stem, n, ext))
	}

	tmp, err := os.CreateTemp(dir, ".mailsweep-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("write attachment: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("move attachment into place: %w", err)
	}
	if err := os.Chtimes(target, emailDate, emailDate); err != nil && s.Log != nil {
		s.Log.Warn("could not set file times", "path", target, "err", err)
	}
	return target, nil
}
