// Package section persists dynamic dashboard sections and generates their
// widgets.
//
// Only a section's pattern and mode are stored. Widgets are regenerated from
// the pattern every time they are requested, so they always reflect the
// current run selection.
package section

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"github.com/tailscale/hujson"

	"github.com/hayeah/runlens/internal/hujsonutil"
	"github.com/hayeah/runlens/resolver"
	"github.com/hayeah/runlens/widget"
)

var (
	ErrNotFound = errors.New("section not found")
	ErrExists   = errors.New("section already exists")
	ErrInvalid  = errors.New("invalid section")
)

const sectionsPointer = "/sections"

const emptyDocument = `{
	// Dynamic sections. Each entry keeps a pattern; widgets are generated on demand.
	"sections": [],
}
`

type Section struct {
	ID      string        `json:"id"`
	Name    string        `json:"name,omitempty"`
	Pattern string        `json:"pattern"`
	Mode    resolver.Mode `json:"mode"`
}

// PatternValue returns the section's pattern in resolver form.
func (s Section) PatternValue() resolver.Pattern {
	return resolver.Pattern{Text: s.Pattern, Mode: s.Mode}
}

func (s *Section) normalize() error {
	s.ID = strings.TrimSpace(s.ID)
	if s.ID != "" {
		if err := widget.CheckSectionID(s.ID); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalid, err)
		}
	}
	mode, err := resolver.ParseMode(string(s.Mode))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	s.Mode = mode
	if strings.TrimSpace(s.Pattern) == "" {
		return fmt.Errorf("%w: pattern is empty", ErrInvalid)
	}
	return nil
}

type document struct {
	Sections []Section `json:"sections"`
}

// Store keeps sections in a JSONC file. Edits are applied as patches, so
// comments and formatting in the file survive.
type Store struct {
	fs   afero.Fs
	path string
	mu   sync.Mutex
}

func NewStore(fs afero.Fs, path string) *Store {
	return &Store{fs: fs, path: path}
}

// Path is the file backing the store.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) load() (*hujsonutil.Value, []Section, error) {
	data, err := afero.ReadFile(s.fs, s.path)
	if errors.Is(err, os.ErrNotExist) {
		data = []byte(emptyDocument)
	} else if err != nil {
		return nil, nil, fmt.Errorf("read sections: %w", err)
	}

	v, err := hujson.Parse(data)
	if err != nil {
		return nil, nil, fmt.Errorf("parse %s: %w", s.path, err)
	}
	w := hujsonutil.NewValue(&v)

	var doc document
	if err := w.Decode(&doc); err != nil {
		return nil, nil, fmt.Errorf("decode %s: %w", s.path, err)
	}
	return w, doc.Sections, nil
}

func (s *Store) save(w *hujsonutil.Value) error {
	w.Format()
	if err := s.fs.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create sections dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, w.Pack(), 0o644); err != nil {
		return fmt.Errorf("write sections: %w", err)
	}
	if err := s.fs.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace sections: %w", err)
	}
	return nil
}

func (s *Store) List(ctx context.Context) ([]Section, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, secs, err := s.load()
	if secs == nil && err == nil {
		secs = []Section{}
	}
	return secs, err
}

func (s *Store) Get(ctx context.Context, id string) (Section, error) {
	secs, err := s.List(ctx)
	if err != nil {
		return Section{}, err
	}
	if i := indexOf(secs, id); i >= 0 {
		return secs[i], nil
	}
	return Section{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Add stores sec, assigning an ID when it has none.
func (s *Store) Add(ctx context.Context, sec Section) (Section, error) {
	if err := sec.normalize(); err != nil {
		return Section{}, err
	}
	if sec.ID == "" {
		sec.ID = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	w, secs, err := s.load()
	if err != nil {
		return Section{}, err
	}
	if indexOf(secs, sec.ID) >= 0 {
		return Section{}, fmt.Errorf("%w: %s", ErrExists, sec.ID)
	}
	if err := w.InsertToArray(sectionsPointer, sec); err != nil {
		return Section{}, fmt.Errorf("insert section: %w", err)
	}
	if err := s.save(w); err != nil {
		return Section{}, err
	}
	return sec, nil
}

// SetPattern replaces the pattern and mode of the section with the given ID.
func (s *Store) SetPattern(ctx context.Context, id string, p resolver.Pattern) (Section, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, secs, err := s.load()
	if err != nil {
		return Section{}, err
	}
	i := indexOf(secs, id)
	if i < 0 {
		return Section{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	sec := secs[i]
	sec.Pattern, sec.Mode = p.Text, p.Mode
	if err := sec.normalize(); err != nil {
		return Section{}, err
	}

	ops := []map[string]any{
		{"op": "replace", "path": fmt.Sprintf("%s/%d/pattern", sectionsPointer, i), "value": sec.Pattern},
		{"op": "replace", "path": fmt.Sprintf("%s/%d/mode", sectionsPointer, i), "value": sec.Mode},
	}
	patch, err := json.Marshal(ops)
	if err != nil {
		return Section{}, err
	}
	if err := w.Patch(patch); err != nil {
		return Section{}, fmt.Errorf("patch section: %w", err)
	}
	if err := s.save(w); err != nil {
		return Section{}, err
	}
	return sec, nil
}

func (s *Store) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, secs, err := s.load()
	if err != nil {
		return err
	}
	i := indexOf(secs, id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err := w.RemoveFromArray(sectionsPointer, i); err != nil {
		return fmt.Errorf("remove section: %w", err)
	}
	return s.save(w)
}

func indexOf(secs []Section, id string) int {
	for i, sec := range secs {
		if sec.ID == id {
			return i
		}
	}
	return -1
}

// Resolver resolves a section's pattern.
type Resolver interface {
	Resolve(ctx context.Context, p resolver.Pattern, runIDs []string) resolver.Result
}

// Widgets is the generated content of a section for one run selection.
type Widgets struct {
	Section   Section       `json:"section"`
	Widgets   []widget.Spec `json:"widgets"`
	Invalid   bool          `json:"invalid"`
	Total     int           `json:"total"`
	Truncated bool          `json:"truncated"`
}

// Generate resolves sec against runIDs and synthesizes at most limit widgets.
func Generate(ctx context.Context, r Resolver, sec Section, runIDs []string, limit int) Widgets {
	res := r.Resolve(ctx, sec.PatternValue(), runIDs)
	return Widgets{
		Section:   sec,
		Widgets:   widget.Synthesize(sec.ID, res.Matches, limit),
		Invalid:   res.Invalid,
		Total:     len(res.Matches),
		Truncated: widget.Truncated(res.Matches, limit),
	}
}

// Names is a convenience for callers that only want the matched names.
func (w Widgets) Names() []string {
	var out []string
	for _, spec := range w.Widgets {
		out = append(out, spec.Names...)
	}
	return out
}
