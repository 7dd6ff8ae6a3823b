// Package storage defines read access to the content directory.
package storage

// Provider is the interface for content file operations. All paths are
// slash-separated and relative to the content root.
type Provider interface {
	// Root returns the absolute content root.
	Root() string
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Exists reports whether a regular file exists at path.
	Exists(path string) (bool, error)
	// Subdirs returns the child directories of dir in lexical order,
	// skipping names that start with a dot.
	Subdirs(dir string) ([]string, error)
}
