package migrate

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"go.uber.org/multierr"
)

const (
	versionLayout = "20060102150405"
	upMarker      = "-- +goose Up"
	downMarker    = "-- +goose Down"
)

var (
	versionedFile = regexp.MustCompile(`^(\d{14})_([a-z0-9_]+)\.sql$`)
	nonSlugChars  = regexp.MustCompile(`[^a-z0-9]+`)

	now = time.Now
)

const sqlTemplate = `%[1]s
-- +goose StatementBegin
-- %[3]s
-- +goose StatementEnd

%[2]s
-- +goose StatementBegin
-- revert %[3]s
-- +goose StatementEnd
`

func slugify(name string) string {
	return strings.Trim(nonSlugChars.ReplaceAllString(strings.ToLower(name), "_"), "_")
}

// CreateSQLMigration writes an empty goose migration named
// <dir>/<UTC timestamp>_<slug>.sql and returns its path.
func CreateSQLMigration(dir, name string) (string, error) {
	if strings.TrimSpace(dir) == "" {
		return "", errors.New("migrate: directory is required")
	}
	slug := slugify(name)
	if slug == "" {
		return "", fmt.Errorf("migrate: name %q has no usable characters", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("migrate: create %s: %w", dir, err)
	}

	path := filepath.Join(dir, now().UTC().Format(versionLayout)+"_"+slug+".sql")
	body := fmt.Sprintf(sqlTemplate, upMarker, downMarker, slug)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("migrate: open %s: %w", path, err)
	}
	if _, err := f.WriteString(body); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("migrate: write %s: %w", path, err)
	}
	return path, f.Close()
}

// ValidateDir checks every .sql file in dir for a versioned name, a unique
// version and both goose sections. All problems are reported together.
func ValidateDir(dir string) error {
	if strings.TrimSpace(dir) == "" {
		return errors.New("migrate: directory is required")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("migrate: read %s: %w", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == ".sql" {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	var problems error
	owners := make(map[string]string, len(names))
	for _, name := range names {
		match := versionedFile.FindStringSubmatch(name)
		if match == nil {
			problems = multierr.Append(problems, fmt.Errorf("%s: name must look like YYYYMMDDHHMMSS_slug.sql", name))
			continue
		}
		if owner, taken := owners[match[1]]; taken {
			problems = multierr.Append(problems, fmt.Errorf("%s: version %s already used by %s", name, match[1], owner))
			continue
		}
		owners[match[1]] = name

		contents, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			problems = multierr.Append(problems, fmt.Errorf("%s: %w", name, err))
			continue
		}
		for _, marker := range []string{upMarker, downMarker} {
			if !strings.Contains(string(contents), marker) {
				problems = multierr.Append(problems, fmt.Errorf("%s: missing %q section", name, marker))
			}
		}
	}
	return problems
}
