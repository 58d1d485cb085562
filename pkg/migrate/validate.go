package migrate

import (
	"fmt"
	"io/fs"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var migrationNameRe = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)

// Validate checks every .sql file in fsys: name format, unique versions, and both goose sections.
func Validate(fsys fs.FS) error {
	files, err := sqlFiles(fsys)
	if err != nil {
		return err
	}
	seen := make(map[int64]string, len(files))
	for _, name := range files {
		version, err := versionOf(name)
		if err != nil {
			return err
		}
		if prev, ok := seen[version]; ok {
			return fmt.Errorf("duplicate migration version %d in %q and %q", version, prev, name)
		}
		seen[version] = name

		body, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("read %q: %w", name, err)
		}
		up, down, ok := strings.Cut(string(body), "-- +goose Down")
		if !ok {
			return fmt.Errorf("migration %q missing \"-- +goose Down\"", name)
		}
		if !strings.Contains(up, "-- +goose Up") {
			return fmt.Errorf("migration %q missing \"-- +goose Up\" before Down", name)
		}
		if strings.TrimSpace(down) == "" {
			return fmt.Errorf("migration %q has an empty Down section", name)
		}
	}
	return nil
}

// LatestVersion returns the highest migration version in fsys, or 0 when empty.
func LatestVersion(fsys fs.FS) (int64, error) {
	files, err := sqlFiles(fsys)
	if err != nil || len(files) == 0 {
		return 0, err
	}
	return versionOf(files[len(files)-1])
}

func sqlFiles(fsys fs.FS) ([]string, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

func versionOf(name string) (int64, error) {
	m := migrationNameRe.FindStringSubmatch(name)
	if m == nil {
		return 0, fmt.Errorf("invalid migration filename %q (expected YYYYMMDDHHMMSS_name.sql)", name)
	}
	return strconv.ParseInt(m[1], 10, 64)
}
