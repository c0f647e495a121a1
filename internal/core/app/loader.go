package app

import (
	"io/fs"
	"os"
	"path/filepath"
)

// LoadDirectory walks a source tree into a snapshot descriptor, applying
// the configured directory and file excludes. Paths are stored relative
// to the root with forward slashes so descriptors hash identically across
// platforms.
func (a *App) LoadDirectory(rootID, dir string) (SnapshotDescriptor, error) {
	desc := SnapshotDescriptor{RootID: rootID}

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && a.cfg.DirExcluded(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if a.cfg.FileExcluded(rel) {
			return nil
		}

		language := a.parser.DetectLanguage(rel)
		if language == "" || !a.cfg.LanguageEnabled(language) {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		desc.Files = append(desc.Files, FileInput{Path: rel, Content: content, Language: language})
		return nil
	})
	if err != nil {
		return SnapshotDescriptor{}, err
	}
	return desc, nil
}
