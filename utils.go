package gtvoc

import (
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// baseName returns the last "/" separated segment of a path or URI.
func baseName(p string) string {
	if i := strings.LastIndex(p, "/"); i >= 0 {
		return p[i+1:]
	}
	return p
}

// stem returns the file name without its extension.
func stem(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// folderName returns the name of the directory that holds the file at p. It works for local paths
// and for URIs such as s3://bucket/dir/file.jpg. Relative local paths are resolved against the
// working directory.
func folderName(p string) string {
	if !strings.Contains(p, "://") {
		if abs, err := filepath.Abs(p); err == nil {
			return filepath.Base(filepath.Dir(abs))
		}
	}
	return path.Base(path.Dir(filepath.ToSlash(p)))
}

// isPlainFileName reports whether name can be used as a file name inside an output directory,
// i.e. it has no path separators and does not refer to the directory or its parent.
func isPlainFileName(name string) bool {
	return name != "" && name != "." && name != ".." && !strings.ContainsAny(name, `/\`)
}

// joinLocation appends name to dir, which may be a local directory or a URI prefix.
func joinLocation(dir, name string) string {
	if dir == "" {
		return name
	}
	if strings.Contains(dir, "://") {
		return strings.TrimSuffix(dir, "/") + "/" + name
	}
	return filepath.Join(dir, name)
}

// ensureDir creates dirPath and its parents if necessary.
func ensureDir(dirPath string) error {
	if err := os.MkdirAll(dirPath, 0755); err != nil {
		return fmt.Errorf("cannot create directory %q: %v", dirPath, err)
	}
	return nil
}

// readResource reads the whole resource at p, local or remote.
func readResource(p string) (data []byte, err error) {
	r, err := OpenResource(p)
	if err != nil {
		return nil, err
	}
	defer closeWithErrCheck(r, &err)

	data, err = ioutil.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read %q: %v", p, err)
	}

	return data, nil
}

// writeFile writes data to the file at filePath, replacing any previous content.
func writeFile(filePath string, data []byte) error {
	if err := ioutil.WriteFile(filePath, data, 0644); err != nil {
		return fmt.Errorf("cannot write file %q: %v", filePath, err)
	}
	return nil
}

// closeWithErrCheck calls c.Close(). If it returns an error, and (*e == nil), e is set to that
// error.
func closeWithErrCheck(c io.Closer, e *error) {
	err := c.Close()
	if err != nil && *e == nil {
		*e = err
	}
}
