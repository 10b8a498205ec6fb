package migration

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"text/template"
	"time"
)

const (
	upSuffix     = ".up.sql"
	downSuffix   = ".down.sql"
	versionWidth = 6
)

var fileTemplate = template.Must(template.New("migration").Parse(`-- {{.Name}} ({{.Direction}})
-- Created: {{.Created}}
{{- if .Description}}
-- {{.Description}}
{{- end}}

`))

// File describes a created migration pair
type File struct {
	Version  uint
	Name     string
	UpPath   string
	DownPath string
}

// Create writes the next numbered up/down pair, e.g. 000002_add_rewards.up.sql
func Create(dir, name, description string) (*File, error) {
	slug := slugify(name)
	if slug == "" {
		return nil, fmt.Errorf("migration name %q has no usable characters", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create migrations directory: %w", err)
	}

	existing, err := List(dir)
	if err != nil {
		return nil, err
	}
	var version uint = 1
	if n := len(existing); n > 0 {
		version = existing[n-1].Version + 1
	}

	base := fmt.Sprintf("%0*d_%s", versionWidth, version, slug)
	f := &File{
		Version:  version,
		Name:     slug,
		UpPath:   filepath.Join(dir, base+upSuffix),
		DownPath: filepath.Join(dir, base+downSuffix),
	}
	created := time.Now().UTC().Format(time.RFC3339)

	if err := writeFile(f.UpPath, slug, "up", description, created); err != nil {
		return nil, err
	}
	if err := writeFile(f.DownPath, slug, "down", description, created); err != nil {
		_ = os.Remove(f.UpPath)
		return nil, err
	}
	return f, nil
}

func writeFile(path, name, direction, description, created string) error {
	out, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer out.Close()

	return fileTemplate.Execute(out, map[string]string{
		"Name":        name,
		"Direction":   direction,
		"Description": description,
		"Created":     created,
	})
}

// slugify lowercases name and joins its alphanumeric runs with underscores
func slugify(name string) string {
	fields := strings.FieldsFunc(strings.ToLower(name), func(r rune) bool {
		return (r < 'a' || r > 'z') && (r < '0' || r > '9')
	})
	return strings.Join(fields, "_")
}

// List returns the migrations in dir ordered by version. A missing
// directory yields an empty list.
func List(dir string) ([]File, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var files []File
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, upSuffix) {
			continue
		}
		base := strings.TrimSuffix(name, upSuffix)
		prefix, slug, ok := strings.Cut(base, "_")
		if !ok {
			continue
		}
		version, err := strconv.ParseUint(prefix, 10, 64)
		if err != nil {
			continue
		}
		files = append(files, File{
			Version:  uint(version),
			Name:     slug,
			UpPath:   filepath.Join(dir, name),
			DownPath: filepath.Join(dir, base+downSuffix),
		})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Version < files[j].Version })
	return files, nil
}
