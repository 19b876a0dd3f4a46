package codegen

import (
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var (
	// DefaultDirMode is used when creating output directories
	DefaultDirMode = os.FileMode(0775)

	// DefaultFileMode is used for generated files
	DefaultFileMode = os.FileMode(0664)
)

// reservedFiles survive a clean
var reservedFiles = map[string]bool{
	".keep":     true,
	"README.md": true,
}

// ExpandAndCreateDir expands ~ in dirPath and creates the directory if needed,
// returning the expanded path.
func ExpandAndCreateDir(dirPath string) (string, error) {
	pathname, err := homedir.Expand(dirPath)
	if err != nil {
		return "", errors.Wrapf(err, "error expanding '%s'", dirPath)
	}

	info, err := os.Stat(pathname)
	switch {
	case err == nil && !info.IsDir():
		return "", errors.Errorf("output path '%s' is not a directory", pathname)
	case err != nil && os.IsNotExist(err):
		if err = os.MkdirAll(pathname, DefaultDirMode); err != nil {
			return "", errors.Wrapf(err, "could not create output directory '%s'", pathname)
		}
	case err != nil:
		return "", errors.Wrapf(err, "could not stat '%s'", pathname)
	}

	return pathname, nil
}

// CleanDir removes the regular files directly inside dir, keeping
// subdirectories and reserved names. It returns how many files were removed.
func CleanDir(dir string, log *zap.Logger) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, errors.Wrapf(err, "could not read '%s'", dir)
	}

	removed := 0
	for _, e := range entries {
		if e.IsDir() || reservedFiles[e.Name()] {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if err := os.Remove(path); err != nil {
			return removed, errors.Wrapf(err, "could not remove '%s'", path)
		}
		log.Debug("removed stale file", zap.String("path", path))
		removed++
	}
	return removed, nil
}

func writeFile(dir string, f File) (string, error) {
	path := filepath.Join(dir, f.Name)
	if err := os.WriteFile(path, f.Content, DefaultFileMode); err != nil {
		return "", errors.Wrapf(err, "could not write '%s'", path)
	}
	return path, nil
}
