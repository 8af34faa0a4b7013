package catalog

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// lessonFile is one lesson authored as its own YAML document.
type lessonFile struct {
	ID     string `yaml:"id"`
	Lesson `yaml:",inline"`
}

// loadDir reads every .yaml/.yml file below the snapshot path as one lesson.
// Files without an id are not lessons and are skipped; unparsable files are
// skipped with a warning. Duplicate ids are malformed.
func (s *FileSource) loadDir() (Catalog, error) {
	c := make(Catalog)
	origin := make(map[string]string)

	err := filepath.WalkDir(s.Path, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		var lf lessonFile
		if err := yaml.Unmarshal(data, &lf); err != nil {
			slog.Warn("skipping invalid lesson YAML", "path", path, "error", err)
			return nil
		}
		if lf.ID == "" {
			return nil
		}
		if lf.Title == "" || lf.Topic == "" {
			return fmt.Errorf("%w: lesson %q in %s needs title and topic", ErrMalformedSnapshot, lf.ID, path)
		}
		if prev, dup := origin[lf.ID]; dup {
			return fmt.Errorf("%w: lesson %q defined in %s and %s", ErrMalformedSnapshot, lf.ID, prev, path)
		}
		origin[lf.ID] = path
		c[lf.ID] = lf.Lesson
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(c) == 0 {
		return nil, fmt.Errorf("no lessons found in %s", s.Path)
	}
	return c, nil
}
