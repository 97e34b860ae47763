package workspace

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

const (
	BaseDirName   = "simcheck-data"
	ReportsDir    = "reports"
	DatabaseFile  = "simcheck.db"
	reportTimeFmt = "20060102T150405.000"
)

var ErrReportExists = errors.New("report already exists")

// EnsureAt creates the workspace tree under base and returns base.
func EnsureAt(base string) (string, error) {
	if strings.TrimSpace(base) == "" {
		return "", fmt.Errorf("workspace path must be non-empty")
	}
	if err := os.MkdirAll(filepath.Join(base, ReportsDir), 0o755); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", base, err)
	}
	return base, nil
}

// DatabasePath is the default location of the submission store.
func DatabasePath(root string) string {
	return filepath.Join(root, DatabaseFile)
}

// ReportPath derives the artifact path for one check of a submission. The
// name carries a readable slug, a short hash of the exact id so ids that slug
// alike stay apart, the check time, and a random suffix so two checks within
// the same millisecond never share a name.
func ReportPath(root, submissionID, ext string, checkedAt time.Time) string {
	name := slug.Make(submissionID)
	if name == "" {
		name = "submission"
	}
	name = fmt.Sprintf("%s-%s-%s-%s.%s",
		name, idHash(submissionID), checkedAt.UTC().Format(reportTimeFmt), uuid.NewString()[:8], ext)
	return filepath.Join(root, ReportsDir, name)
}

// SaveReport writes a report artifact, creating its directory if absent.
// Artifacts are immutable: an existing file is never overwritten.
func SaveReport(path string, raw []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%w: %s", ErrReportExists, path)
		}
		return fmt.Errorf("create report: %w", err)
	}
	if _, err := f.Write(raw); err != nil {
		_ = f.Close()
		return fmt.Errorf("write report: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close report: %w", err)
	}
	return nil
}

// RemoveReport deletes an artifact that nothing refers to. A missing file is
// not an error.
func RemoveReport(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove report: %w", err)
	}
	return nil
}

func idHash(id string) string {
	sum := sha256.Sum256([]byte(id))
	return hex.EncodeToString(sum[:])[:8]
}
