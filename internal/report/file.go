package report

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// WriteReportFile stores a rendered report as <election>_<YYYYMMDD>.txt in
// outputDir and returns the file path.
func WriteReportFile(content, outputDir string, reportDate time.Time, election string) (string, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", err
	}
	filename := fmt.Sprintf("%s_%s.txt", sanitizeFilename(election), reportDate.Format("20060102"))
	path := filepath.Join(outputDir, filename)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return "", err
	}
	log.Printf("report written election=%s path=%s size=%s", election, path, humanize.Bytes(uint64(len(content))))
	return path, nil
}

func sanitizeFilename(s string) string {
	replacer := strings.NewReplacer("/", "_", "\\", "_", ":", "_", "*", "_", "?", "_", "\"", "_", "<", "_", ">", "_", "|", "_")
	s = strings.TrimLeft(replacer.Replace(s), ".")
	if s == "" {
		return "election"
	}
	return s
}
