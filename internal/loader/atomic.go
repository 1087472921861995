package loader

import (
	"errors"
	"io/fs"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// defaultPerm is used when the destination does not exist yet.
const defaultPerm fs.FileMode = 0o644

// TempPath returns a unique temporary sibling of path.
func TempPath(path string) string {
	dir, base := filepath.Split(path)
	if base == "" {
		base = "confer"
	}
	return filepath.Join(dir, "."+base+"."+uuid.NewString()+".tmp")
}

// WriteAtomic replaces the file at path with data. The data is written to a
// temporary sibling first and renamed into place. If the rename fails
// because the destination exists, the destination is removed and the
// rename is retried once.
//
// Errors are *fs.PathError values naming the path that failed.
func WriteAtomic(fsys FileSystem, path string, data []byte, log zerolog.Logger) error {
	perm := defaultPerm
	if info, err := fsys.Stat(path); err == nil {
		perm = info.Mode().Perm()
	}

	tmp := TempPath(path)
	if err := fsys.WriteFile(tmp, data, perm); err != nil {
		return &fs.PathError{Op: "write", Path: tmp, Err: unwrapPathError(err)}
	}

	err := fsys.Rename(tmp, path)
	if err == nil {
		return nil
	}

	if errors.Is(err, fs.ErrExist) {
		log.Debug().Str("path", path).Msg("destination exists, retrying rename")
		if rmErr := fsys.Remove(path); rmErr != nil {
			return &fs.PathError{Op: "remove", Path: path, Err: unwrapPathError(rmErr)}
		}
		if err := fsys.Rename(tmp, path); err != nil {
			return &fs.PathError{Op: "rename", Path: path, Err: unwrapPathError(err)}
		}
		return nil
	}

	_ = fsys.Remove(tmp)
	return &fs.PathError{Op: "rename", Path: path, Err: unwrapPathError(err)}
}

// unwrapPathError strips an os-level path wrapper so the returned error
// names the path only once.
func unwrapPathError(err error) error {
	var pe *fs.PathError
	if errors.As(err, &pe) {
		return pe.Err
	}
	return err
}
