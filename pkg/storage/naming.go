package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// ErrNamingResolution reports that the target directory could not be listed
// while searching for a free filename.
var ErrNamingResolution = errors.New("fixture name resolution failed")

const fixtureExtension = ".json"

// ResolveName returns the first free filename for base in dir: "base.json"
// if absent, otherwise "base_2.json", "base_3.json", … in increasing order.
//
// The directory snapshot is the only source of truth: there is no in-process
// counter, so the search always yields the lowest free integer and gaps left
// by deleted fixtures are reused on the next run. A directory that does not
// exist yet simply has no files.
func ResolveName(dir, base string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return base + fixtureExtension, nil
		}
		return "", fmt.Errorf("%w: %v", ErrNamingResolution, err)
	}

	existing := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		existing[entry.Name()] = struct{}{}
	}

	candidate := base + fixtureExtension
	if _, taken := existing[candidate]; !taken {
		return candidate, nil
	}

	// The unsuffixed file is implicitly suffix 1; probing starts at 2.
	for n := 2; ; n++ {
		candidate = fmt.Sprintf("%s_%d%s", base, n, fixtureExtension)
		if _, taken := existing[candidate]; !taken {
			return candidate, nil
		}
	}
}
