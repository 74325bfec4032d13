package grammar

import (
	"embed"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"tmcheck/internal/errs"
)

//go:embed grammars/*.yaml
var builtinFS embed.FS

// Registry indexes grammars by name and by the file extensions they claim.
// It is not safe for concurrent mutation; populate it before scanning.
type Registry struct {
	byName map[string]*Table
	byExt  map[string]string
	log    *zap.Logger
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]*Table),
		byExt:  make(map[string]string),
	}
}

// Builtin returns a registry holding the grammars shipped with tmcheck.
func Builtin() (*Registry, error) {
	r := NewRegistry()
	entries, err := builtinFS.ReadDir("grammars")
	if err != nil {
		return nil, errs.WrapConfiguration(err, "read built-in grammars")
	}
	for _, e := range entries {
		data, err := builtinFS.ReadFile(path.Join("grammars", e.Name()))
		if err != nil {
			return nil, errs.WrapConfiguration(err, "read built-in grammar %s", e.Name())
		}
		t, err := Parse(data)
		if err != nil {
			return nil, errs.WrapConfiguration(err, "built-in grammar %s", e.Name())
		}
		if err := r.Register(t); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds t, replacing any grammar of the same name. A file type
// already claimed by a different grammar is a configuration error.
func (r *Registry) Register(t *Table) error {
	if r.log != nil {
		t = t.WithLogger(r.log)
	}
	for _, ext := range t.fileTypes {
		if owner, ok := r.byExt[ext]; ok && owner != t.name {
			return errs.Configuration("grammar %s: file type %s already claimed by grammar %s", t.name, ext, owner)
		}
	}
	if old, ok := r.byName[t.name]; ok {
		for _, ext := range old.fileTypes {
			delete(r.byExt, ext)
		}
	}
	r.byName[t.name] = t
	for _, ext := range t.fileTypes {
		r.byExt[ext] = t.name
	}
	return nil
}

// UseLogger attaches log to every registered grammar and to any registered
// later.
func (r *Registry) UseLogger(log *zap.Logger) {
	r.log = log
	for name, t := range r.byName {
		r.byName[name] = t.WithLogger(log)
	}
}

// LoadDir registers every *.yaml and *.yml grammar file directly inside dir
// and returns how many were loaded.
func (r *Registry) LoadDir(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, errs.WrapConfiguration(err, "read grammar directory %s", dir)
	}
	n := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".yaml", ".yml":
		default:
			continue
		}
		t, err := LoadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return n, err
		}
		if err := r.Register(t); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// Lookup returns the grammar registered under name.
func (r *Registry) Lookup(name string) (*Table, bool) {
	t, ok := r.byName[name]
	return t, ok
}

// ForPath returns the grammar claiming the extension of p.
func (r *Registry) ForPath(p string) (*Table, bool) {
	name, ok := r.byExt[strings.ToLower(filepath.Ext(p))]
	if !ok {
		return nil, false
	}
	return r.byName[name], true
}

// Names returns registered grammar names, sorted.
func (r *Registry) Names() []string {
	names := lo.Keys(r.byName)
	sort.Strings(names)
	return names
}

// Tables returns registered grammars sorted by name.
func (r *Registry) Tables() []*Table {
	return lo.Map(r.Names(), func(name string, _ int) *Table { return r.byName[name] })
}

// Len returns the number of registered grammars.
func (r *Registry) Len() int { return len(r.byName) }
