package rules

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sentinelsoft/rulegraph/pkg/errors"
)

// Discover walks the given directories recursively and returns every file
// with a .xml extension (matched case-insensitively), sorted by path. The
// sort makes graph construction deterministic regardless of filesystem
// iteration order.
func Discover(paths []string) ([]string, error) {
	if err := errors.ValidateRulePaths(paths); err != nil {
		return nil, err
	}

	var files []string
	for _, root := range paths {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			if strings.EqualFold(filepath.Ext(path), ".xml") {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "walking rule directory %s", root)
		}
	}

	sort.Strings(files)
	return files, nil
}
