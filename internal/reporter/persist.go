package reporter

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ppiankov/notterun/internal/task"
)

// BasePrefix starts every artifact file name.
const BasePrefix = "notte_result_"

// Persister writes each result as JSON, Markdown and text files sharing
// one base name.
type Persister struct {
	dir   string
	loc   Locale
	now   func() time.Time
	newID func() string
}

// PersisterOption configures a Persister.
type PersisterOption func(*Persister)

// WithPersistClock sets the clock used for artifact names.
func WithPersistClock(now func() time.Time) PersisterOption {
	return func(p *Persister) { p.now = now }
}

// WithIDSource sets the generator of the unique name suffix.
func WithIDSource(newID func() string) PersisterOption {
	return func(p *Persister) { p.newID = newID }
}

// NewPersister writes into dir ("." when empty) with labels from loc.
func NewPersister(dir string, loc Locale, opts ...PersisterOption) *Persister {
	if dir == "" {
		dir = "."
	}
	p := &Persister{
		dir:   dir,
		loc:   loc,
		now:   time.Now,
		newID: func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Dir returns the output directory.
func (p *Persister) Dir() string { return p.dir }

// BaseName builds an artifact base name from a time and a unique id.
func BaseName(t time.Time, id string) string {
	id = strings.ReplaceAll(id, "-", "")
	if len(id) > 8 {
		id = id[:8]
	}
	return BasePrefix + t.Format("20060102_150405") + "_" + id
}

// Persist writes the three artifacts and returns the paths written, in
// json, md, txt order. Each write is independent; a failed one is
// reported in the joined error and left out of the paths.
func (p *Persister) Persist(res *task.Result) ([]string, error) {
	if err := os.MkdirAll(p.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	base := filepath.Join(p.dir, BaseName(p.now(), p.newID()))

	jsonBody, jsonErr := RenderJSON(res)
	writes := []struct {
		ext  string
		body []byte
		err  error
	}{
		{".json", jsonBody, jsonErr},
		{".md", []byte(RenderMarkdown(res, p.loc)), nil},
		{".txt", []byte(RenderText(res, p.loc)), nil},
	}

	var paths []string
	var errs []error
	for _, w := range writes {
		path := base + w.ext
		if w.err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", filepath.Base(path), w.err))
			continue
		}
		if err := os.WriteFile(path, w.body, 0o644); err != nil {
			errs = append(errs, fmt.Errorf("write %s: %w", filepath.Base(path), err))
			continue
		}
		paths = append(paths, path)
	}
	return paths, errors.Join(errs...)
}
