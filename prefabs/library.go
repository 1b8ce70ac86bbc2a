package prefabs

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/milk9111/simcore/ecs"
	"github.com/milk9111/simcore/ecs/component"
	"github.com/milk9111/simcore/log"
)

// Library holds validated templates and applies them to entities. It is safe
// for concurrent use so a watcher goroutine may reload while ticks apply.
// sums and files are keyed by template file name.
type Library struct {
	mu        sync.RWMutex
	dir       string
	registry  *component.Registry
	templates map[string]Template
	sums      map[string]uint64
	mtimes    map[string]time.Time
	files     map[string]string
	log       log.Log
}

var _ ecs.TemplateSource = (*Library)(nil)

type Option func(*Library)

// WithDir sets the disk directory whose files override embedded templates.
func WithDir(dir string) Option {
	return func(l *Library) {
		l.dir = dir
	}
}

func WithRegistry(reg *component.Registry) Option {
	return func(l *Library) {
		if reg != nil {
			l.registry = reg
		}
	}
}

func WithLogger(logger log.Log) Option {
	return func(l *Library) {
		if logger != nil {
			l.log = logger
		}
	}
}

func NewLibrary(opts ...Option) *Library {
	l := &Library{
		registry:  component.Default(),
		templates: make(map[string]Template),
		sums:      make(map[string]uint64),
		mtimes:    make(map[string]time.Time),
		files:     make(map[string]string),
		log:       log.Nop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Dir returns the disk override directory, if any.
func (l *Library) Dir() string {
	return l.dir
}

// LoadAll loads every embedded and disk template. The first failure aborts.
func (l *Library) LoadAll() error {
	files, err := TemplateFiles(l.dir)
	if err != nil {
		return fmt.Errorf("prefabs: list templates: %w", err)
	}
	for _, file := range files {
		if _, err := l.Load(file); err != nil {
			return err
		}
	}
	l.log.Info("prefabs: templates loaded", log.Int("count", len(files)), log.String("dir", l.dir))
	return nil
}

// Load reads, validates and stores one template file.
func (l *Library) Load(filename string) (Template, error) {
	data, err := Load(l.dir, filename)
	if err != nil {
		return Template{}, fmt.Errorf("prefabs: load %s: %w", filename, err)
	}
	key := cleanTemplatePath(filename)
	tmpl, _, err := l.store(key, data)
	if err == nil {
		l.stamp(key, l.dir)
	}
	return tmpl, err
}

// Reload re-reads a template file from disk. It reports false without error
// when the file is untouched or its content is unchanged since the last load.
func (l *Library) Reload(path string) (bool, error) {
	dir, key := filepath.Dir(path), filepath.Base(path)
	if mod, ok := ModTime(dir, key); ok {
		l.mu.RLock()
		prev, stamped := l.mtimes[key]
		l.mu.RUnlock()
		if stamped && prev.Equal(mod) {
			return false, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("prefabs: reload %s: %w", path, err)
	}
	_, changed, err := l.store(key, data)
	if err != nil {
		return false, err
	}
	l.stamp(key, dir)
	if changed {
		l.log.Info("prefabs: template reloaded", log.String("path", path))
	}
	return changed, nil
}

func (l *Library) store(key string, data []byte) (Template, bool, error) {
	sum := xxhash.Sum64(data)
	l.mu.RLock()
	prev, seen := l.sums[key]
	current, loaded := l.templates[l.files[key]]
	l.mu.RUnlock()
	if seen && loaded && prev == sum {
		return current, false, nil
	}

	tmpl, err := ParseTemplate(data)
	if err != nil {
		return Template{}, false, fmt.Errorf("prefabs: %s: %w", key, err)
	}
	if err := l.validate(tmpl); err != nil {
		return Template{}, false, fmt.Errorf("prefabs: %s: %w", key, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if old, ok := l.files[key]; ok && old != tmpl.Name {
		delete(l.templates, old)
	}
	l.sums[key] = sum
	l.files[key] = tmpl.Name
	l.templates[tmpl.Name] = tmpl
	return tmpl, true, nil
}

// stamp records the disk modification time of a stored template file.
func (l *Library) stamp(key, dir string) {
	mod, ok := ModTime(dir, key)
	l.mu.Lock()
	defer l.mu.Unlock()
	if ok {
		l.mtimes[key] = mod
	} else {
		delete(l.mtimes, key)
	}
}

// validate builds every component of tmpl on scratch instances so that
// unknown types, unknown properties and bad values fail at load time.
func (l *Library) validate(tmpl Template) error {
	for _, spec := range tmpl.Components {
		instance, _, err := l.build(spec)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidTemplate, tmpl.Name, err)
		}
		if d, ok := instance.(component.Destroyer); ok {
			d.Destroy()
		}
	}
	return nil
}

func (l *Library) build(spec ComponentSpec) (any, *component.Descriptor, error) {
	desc, ok := l.registry.ByName(spec.Type)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ecs.ErrUnknownComponent, spec.Type)
	}
	if !desc.Registered() {
		return nil, nil, fmt.Errorf("%w: %s", component.ErrNotRegistered, spec.Type)
	}

	instance := desc.New()
	keys := make([]string, 0, len(spec.Properties))
	for key := range spec.Properties {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		prop, ok := desc.Property(key)
		if !ok {
			return nil, nil, fmt.Errorf("%w: %s.%s", component.ErrUnknownProperty, spec.Type, key)
		}
		if err := prop.Set(instance, spec.Properties[key]); err != nil {
			return nil, nil, fmt.Errorf("%s: %w", spec.Type, err)
		}
	}
	return instance, desc, nil
}

// Get returns the named template.
func (l *Library) Get(name string) (Template, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	tmpl, ok := l.templates[name]
	return tmpl, ok
}

// Names returns every template name in sorted order.
func (l *Library) Names() []string {
	l.mu.RLock()
	names := make([]string, 0, len(l.templates))
	for name := range l.templates {
		names = append(names, name)
	}
	l.mu.RUnlock()
	sort.Strings(names)
	return names
}

// Apply builds every component of the named template and attaches them to e.
// Nothing is attached unless every component builds.
func (l *Library) Apply(name string, e *ecs.Entity) error {
	tmpl, ok := l.Get(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTemplate, name)
	}

	type built struct {
		id       component.TypeID
		instance any
	}
	parts := make([]built, 0, len(tmpl.Components))
	release := func() {
		for _, p := range parts {
			if d, ok := p.instance.(component.Destroyer); ok {
				d.Destroy()
			}
		}
	}

	for _, spec := range tmpl.Components {
		instance, desc, err := l.build(spec)
		if err != nil {
			release()
			return fmt.Errorf("prefabs: apply %s: %w", name, err)
		}
		if e.HasComponent(desc.ID()) {
			release()
			return fmt.Errorf("prefabs: apply %s: %w: %s", name, ecs.ErrDuplicateComponent, spec.Type)
		}
		parts = append(parts, built{id: desc.ID(), instance: instance})
	}

	for _, p := range parts {
		if err := e.Attach(p.id, p.instance); err != nil {
			return fmt.Errorf("prefabs: apply %s: %w", name, err)
		}
	}
	return nil
}
