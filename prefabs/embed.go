package prefabs

import (
	"embed"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

//go:embed templates/*.yaml
var TemplatesFS embed.FS

//go:embed scripts/*.tengo
var ScriptsFS embed.FS

const (
	templatesDir = "templates"
	scriptsDir   = "scripts"
)

// LoadScript returns a script source, preferring dir/scripts on disk over the
// embedded copy.
func LoadScript(dir, name string) ([]byte, error) {
	clean := cleanScriptPath(name)
	if dir != "" {
		if data, err := os.ReadFile(diskTemplatePath(dir, clean)); err == nil {
			return data, nil
		}
	}
	return ScriptsFS.ReadFile(clean)
}

// Load returns the named template file, preferring dir on disk over the
// embedded copy. An empty dir reads only embedded files.
func Load(dir, name string) ([]byte, error) {
	clean := cleanTemplatePath(name)
	if dir != "" {
		if data, err := os.ReadFile(diskTemplatePath(dir, clean)); err == nil {
			return data, nil
		}
	}
	return TemplatesFS.ReadFile(templatesDir + "/" + clean)
}

// ModTime reports the modification time of a template file in dir on disk.
// Embedded templates have none.
func ModTime(dir, name string) (time.Time, bool) {
	if dir == "" {
		return time.Time{}, false
	}
	info, err := os.Stat(diskTemplatePath(dir, cleanTemplatePath(name)))
	if err != nil {
		return time.Time{}, false
	}
	return info.ModTime(), true
}

// TemplateFiles lists template file names from the embedded set and dir,
// deduplicated and sorted.
func TemplateFiles(dir string) ([]string, error) {
	names := make(map[string]struct{})
	embedded, err := fs.ReadDir(TemplatesFS, templatesDir)
	if err != nil {
		return nil, err
	}
	for _, entry := range embedded {
		if !entry.IsDir() && isSpecFile(entry.Name()) {
			names[entry.Name()] = struct{}{}
		}
	}
	if dir != "" {
		entries, err := os.ReadDir(dir)
		if err != nil && !os.IsNotExist(err) {
			return nil, err
		}
		for _, entry := range entries {
			if !entry.IsDir() && isSpecFile(entry.Name()) {
				names[entry.Name()] = struct{}{}
			}
		}
	}

	out := make([]string, 0, len(names))
	for name := range names {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

func cleanTemplatePath(path string) string {
	if path == "" {
		return ""
	}
	s := filepath.ToSlash(path)
	if after, ok := strings.CutPrefix(s, templatesDir+"/"); ok {
		s = after
	}
	if !isSpecFile(s) {
		s += ".yaml"
	}
	return s
}

func cleanScriptPath(path string) string {
	if path == "" {
		return ""
	}
	s := filepath.ToSlash(path)
	if after, ok := strings.CutPrefix(s, "prefabs/"); ok {
		s = after
	}
	if after, ok := strings.CutPrefix(s, scriptsDir+"/"); ok {
		s = after
	}
	if filepath.Ext(s) == "" {
		s += ".tengo"
	}
	return scriptsDir + "/" + s
}

func diskTemplatePath(dir, clean string) string {
	return filepath.Join(dir, filepath.FromSlash(clean))
}
