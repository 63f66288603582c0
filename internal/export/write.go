package export

import (
	"path/filepath"

	"github.com/KaramelBytes/dqguard-cli/internal/utils"
)

// Output file names inside the export directory.
const (
	SuiteFile  = "ge_suite.json"
	SQLFile    = "cleaning.sql"
	ReportFile = "report.md"
)

// writeFile creates dir when needed and atomically writes name inside it.
func writeFile(dir, name string, data []byte) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := utils.EnsureDir(dir); err != nil {
		return "", err
	}
	path := filepath.Join(dir, name)
	if err := utils.SafeWriteFile(path, data); err != nil {
		return "", err
	}
	return path, nil
}
