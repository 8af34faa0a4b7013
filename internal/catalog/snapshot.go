package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"
)

// snapshotSchema describes {"<lesson id>": {title, topic, level, ...}}.
const snapshotSchema = `{
  "type": "object",
  "additionalProperties": {
    "type": "object",
    "required": ["title", "topic"],
    "properties": {
      "title": {"type": "string"},
      "topic": {"type": "string"},
      "level": {"type": "integer", "minimum": 0},
      "prereqs": {"type": "array", "items": {"type": "string"}},
      "tags": {"type": "array", "items": {"type": "string"}},
      "quiz_pool": {
        "type": "array",
        "items": {
          "type": "object",
          "required": ["id"],
          "properties": {
            "id": {"type": "string"},
            "difficulty": {"type": "number"},
            "tags": {"type": "array", "items": {"type": "string"}}
          }
        }
      }
    }
  }
}`

var snapshotSchemaLoader = gojsonschema.NewStringLoader(snapshotSchema)

// Workbook sheet names for .xlsx snapshots.
const (
	LessonsSheet = "lessons"
	QuizzesSheet = "quizzes"
)

// FileSource reads a static catalog snapshot. The format follows the file
// extension: .json, .yaml/.yml or .xlsx. A directory is read as a tree of
// per-lesson YAML files.
type FileSource struct {
	Path string
}

// NewFileSource creates a snapshot source for path.
func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

func (s *FileSource) Name() string {
	return "snapshot:" + filepath.Base(s.Path)
}

func (s *FileSource) Lessons(_ context.Context) (Catalog, error) {
	if s.Path == "" {
		return nil, fmt.Errorf("snapshot path is empty")
	}
	if info, err := os.Stat(s.Path); err == nil && info.IsDir() {
		return s.loadDir()
	}

	switch ext := strings.ToLower(filepath.Ext(s.Path)); ext {
	case ".json":
		return s.loadJSON()
	case ".yaml", ".yml":
		return s.loadYAML()
	case ".xlsx":
		return s.loadWorkbook()
	default:
		return nil, fmt.Errorf("unsupported snapshot format %q", ext)
	}
}

func (s *FileSource) loadJSON() (Catalog, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, err
	}

	result, err := gojsonschema.Validate(snapshotSchemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
	}
	if !result.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrMalformedSnapshot, result.Errors()[0])
	}

	var c Catalog
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
	}
	return c, nil
}

func (s *FileSource) loadYAML() (Catalog, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, err
	}

	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
	}
	for id, l := range c {
		if l.Title == "" || l.Topic == "" {
			return nil, fmt.Errorf("%w: lesson %q needs title and topic", ErrMalformedSnapshot, id)
		}
	}
	return c, nil
}

// loadWorkbook reads a "lessons" sheet (id, title, topic, level, prereqs,
// tags) and an optional "quizzes" sheet (lesson_id, quiz_id, difficulty,
// tags). List cells are comma separated.
func (s *FileSource) loadWorkbook() (Catalog, error) {
	f, err := excelize.OpenFile(s.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := f.GetRows(LessonsSheet)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
	}

	c := make(Catalog)
	cols := headerIndex(rows)
	for i, row := range dataRows(rows) {
		id := cell(row, cols, "id")
		if id == "" {
			continue
		}
		l := Lesson{
			Title:   cell(row, cols, "title"),
			Topic:   cell(row, cols, "topic"),
			Prereqs: splitList(cell(row, cols, "prereqs")),
			Tags:    splitList(cell(row, cols, "tags")),
		}
		if raw := cell(row, cols, "level"); raw != "" {
			lvl, err := strconv.Atoi(raw)
			if err != nil {
				return nil, fmt.Errorf("%w: %s row %d: level %q", ErrMalformedSnapshot, LessonsSheet, i+2, raw)
			}
			l.Level = lvl
		}
		if l.Title == "" || l.Topic == "" {
			return nil, fmt.Errorf("%w: lesson %q needs title and topic", ErrMalformedSnapshot, id)
		}
		c[id] = l
	}

	quizRows, err := f.GetRows(QuizzesSheet)
	if err != nil {
		// The quizzes sheet is optional.
		return c, nil
	}
	qcols := headerIndex(quizRows)
	for i, row := range dataRows(quizRows) {
		lessonID := cell(row, qcols, "lesson_id")
		l, ok := c[lessonID]
		if !ok {
			continue
		}
		q := QuizItem{
			ID:   cell(row, qcols, "quiz_id"),
			Tags: splitList(cell(row, qcols, "tags")),
		}
		if q.ID == "" {
			continue
		}
		if raw := cell(row, qcols, "difficulty"); raw != "" {
			d, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: %s row %d: difficulty %q", ErrMalformedSnapshot, QuizzesSheet, i+2, raw)
			}
			q.Difficulty = &d
		}
		l.QuizPool = append(l.QuizPool, q)
		c[lessonID] = l
	}

	return c, nil
}

func headerIndex(rows [][]string) map[string]int {
	idx := make(map[string]int)
	if len(rows) == 0 {
		return idx
	}
	for i, name := range rows[0] {
		idx[strings.ToLower(strings.TrimSpace(name))] = i
	}
	return idx
}

func dataRows(rows [][]string) [][]string {
	if len(rows) < 2 {
		return nil
	}
	return rows[1:]
}

func cell(row []string, cols map[string]int, name string) string {
	i, ok := cols[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
