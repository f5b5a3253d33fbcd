package utils

import (
	"compress/gzip"
	"io"
	"os"
)

// WriteGzipFile writes data to path as a single gzip member.
func WriteGzipFile(path string, data []byte) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := gzip.NewWriter(f)
	if _, err = w.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	if err = w.Close(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// ReadGzipFile returns the decompressed contents of path.
func ReadGzipFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	r, err := gzip.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}
