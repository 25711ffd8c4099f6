// Package exporters holds the built-in export plugins.
package exporters

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-tangra/go-tangra-assets/internal/plugin"
)

func init() {
	register("exporters.CSV", CSV{})
	register("exporters.JSON", JSON{})
	register("exporters.Excel", Excel{})
	register("exporters.PDF", PDF{})
	register("exporters.Print", NewPrint())
}

func register(name string, p plugin.ExportPlugin) {
	plugin.RegisterBuiltin(name, func() (any, error) { return p, nil })
}

// NextFileName returns the first "<base>-NNNN<ext>" in dir that does not
// exist yet, counting from 0001.
func NextFileName(dir, base, ext string) (string, error) {
	for i := 1; i <= 9999; i++ {
		path := filepath.Join(dir, fmt.Sprintf("%s-%04d%s", base, i, ext))
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return path, nil
		} else if err != nil {
			return "", fmt.Errorf("stat %s: %w", path, err)
		}
	}
	return "", fmt.Errorf("no free file name for %s%s in %s", base, ext, dir)
}

func failure(req plugin.ExportRequest, format string, args ...any) plugin.ExportResult {
	reason := fmt.Sprintf(format, args...)
	req.Emit("  -> " + reason)
	return plugin.ExportFailure{Reason: reason}
}

// sanitize drops the C0 control characters spreadsheets and PDF text
// operators reject. Tab, LF and CR are kept.
func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}
