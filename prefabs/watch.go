package prefabs

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const watchDebounce = 100 * time.Millisecond

type ChangeKind uint8

const (
	ChangeTemplate ChangeKind = iota + 1
	ChangeScript
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeTemplate:
		return "template"
	case ChangeScript:
		return "script"
	default:
		return "unknown"
	}
}

// Change is a template or script file that was written, created, renamed or
// removed.
type Change struct {
	Path string
	Kind ChangeKind
}

// Watcher reports changed files under a prefab directory: templates in the
// directory itself and scripts in its scripts subdirectory. A change is
// delivered once writes to that file have been quiet for watchDebounce, so an
// editor's truncate-then-write arrives as one change.
type Watcher struct {
	notify  *fsnotify.Watcher
	Events  chan Change
	Errors  chan error
	closeCh chan struct{}
	once    sync.Once
}

func NewWatcher(dir string) (*Watcher, error) {
	notify, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := notify.Add(dir); err != nil {
		_ = notify.Close()
		return nil, err
	}
	scripts := filepath.Join(dir, scriptsDir)
	if info, err := os.Stat(scripts); err == nil && info.IsDir() {
		if err := notify.Add(scripts); err != nil {
			_ = notify.Close()
			return nil, err
		}
	}

	w := &Watcher{
		notify:  notify,
		Events:  make(chan Change, 16),
		Errors:  make(chan error, 1),
		closeCh: make(chan struct{}),
	}
	go w.run()
	return w, nil
}

func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.closeCh)
		err = w.notify.Close()
	})
	return err
}

func (w *Watcher) run() {
	defer close(w.Events)
	defer close(w.Errors)

	pending := make(map[string]ChangeKind)
	quiet := time.NewTimer(watchDebounce)
	quiet.Stop()
	defer quiet.Stop()

	for {
		select {
		case event, ok := <-w.notify.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			kind, ok := classify(event.Name)
			if !ok {
				continue
			}
			pending[event.Name] = kind
			quiet.Reset(watchDebounce)
		case <-quiet.C:
			paths := make([]string, 0, len(pending))
			for path := range pending {
				paths = append(paths, path)
			}
			sort.Strings(paths)
			for _, path := range paths {
				select {
				case w.Events <- Change{Path: path, Kind: pending[path]}:
				case <-w.closeCh:
					return
				}
			}
			clear(pending)
		case err, ok := <-w.notify.Errors:
			if !ok {
				return
			}
			select {
			case w.Errors <- err:
			default:
			}
		case <-w.closeCh:
			return
		}
	}
}

func classify(path string) (ChangeKind, bool) {
	switch {
	case isSpecFile(path):
		return ChangeTemplate, true
	case isScriptFile(path):
		return ChangeScript, true
	default:
		return 0, false
	}
}

func isSpecFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

func isScriptFile(path string) bool {
	return strings.ToLower(filepath.Ext(path)) == ".tengo"
}

// ScriptName reduces a script reference or file path to the name a Script
// component refers to: "scripts/patrol.tengo" and "patrol" both give "patrol".
func ScriptName(path string) string {
	base := filepath.Base(filepath.FromSlash(path))
	return strings.TrimSuffix(base, filepath.Ext(base))
}
