package gen

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"packforge/internal/packfs"
)

// AutoSelect promotes every raw PNG to 02_selected and returns the count.
// The selected directory is rebuilt from scratch so stale variants from
// earlier rounds never leak into postprocessing.
func AutoSelect(packDir string, logger *slog.Logger) (int, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	rawDir := filepath.Join(packDir, packfs.RawDir)
	selectedDir := filepath.Join(packDir, packfs.SelectedDir)

	entries, err := os.ReadDir(rawDir)
	if err != nil {
		logger.Warn("raw directory not found", "dir", rawDir)
		return 0, nil
	}

	if err := os.RemoveAll(selectedDir); err != nil {
		return 0, fmt.Errorf("clear selected dir: %w", err)
	}
	if err := packfs.EnsureDir(selectedDir); err != nil {
		return 0, err
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() && strings.EqualFold(filepath.Ext(entry.Name()), ".png") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		if err := copyFile(filepath.Join(rawDir, name), filepath.Join(selectedDir, name)); err != nil {
			return 0, fmt.Errorf("copy %s: %w", name, err)
		}
	}

	logger.Info("auto-selected images", "count", len(names))
	return len(names), nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
