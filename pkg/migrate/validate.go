package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// versionLayout is the timestamp format used as the goose version prefix.
const versionLayout = "20060102150405"

var fileNameRe = regexp.MustCompile(`^(\d{14})_([a-z0-9_]+)\.sql$`)

// File is one migration found on disk.
type File struct {
	Version int64
	Name    string
	Path    string
}

// ParseVersion accepts a 14 digit timestamp version.
func ParseVersion(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if len(raw) != len(versionLayout) {
		return 0, fmt.Errorf("version %q must have %d digits", raw, len(versionLayout))
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("version %q: %w", raw, err)
	}
	return v, nil
}

// Scan lists the SQL migrations in dir ordered by version. Every file must be
// named <version>_<slug>.sql, carry both goose sections and balance its
// statement markers. Versions must be unique.
func Scan(dir string) ([]File, error) {
	if dir == "" {
		return nil, fmt.Errorf("dir is required")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %q: %w", dir, err)
	}

	var files []File
	byVersion := make(map[int64]string)
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".sql" {
			continue
		}
		file, err := inspect(dir, entry.Name())
		if err != nil {
			return nil, err
		}
		if other, dup := byVersion[file.Version]; dup {
			return nil, fmt.Errorf("version %d used by both %q and %q", file.Version, other, file.Name)
		}
		byVersion[file.Version] = file.Name
		files = append(files, file)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Version < files[j].Version })
	return files, nil
}

// ValidateDir reports the first problem Scan finds.
func ValidateDir(dir string) error {
	_, err := Scan(dir)
	return err
}

func inspect(dir, name string) (File, error) {
	match := fileNameRe.FindStringSubmatch(name)
	if match == nil {
		return File{}, fmt.Errorf("migration %q must be named <%s>_<slug>.sql", name, versionLayout)
	}
	version, err := ParseVersion(match[1])
	if err != nil {
		return File{}, fmt.Errorf("migration %q: %w", name, err)
	}

	path := filepath.Join(dir, name)
	body, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("read %q: %w", path, err)
	}
	text := string(body)

	up := strings.Index(text, "-- +goose Up")
	down := strings.Index(text, "-- +goose Down")
	switch {
	case up < 0:
		return File{}, fmt.Errorf("migration %q has no Up section", name)
	case down < 0:
		return File{}, fmt.Errorf("migration %q has no Down section", name)
	case down < up:
		return File{}, fmt.Errorf("migration %q declares Down before Up", name)
	}
	if begins, ends := strings.Count(text, "-- +goose StatementBegin"), strings.Count(text, "-- +goose StatementEnd"); begins != ends {
		return File{}, fmt.Errorf("migration %q has %d StatementBegin but %d StatementEnd", name, begins, ends)
	}

	return File{Version: version, Name: name, Path: path}, nil
}
