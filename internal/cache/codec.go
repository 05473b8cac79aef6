package cache

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
)

func encode(w io.Writer, artifact interface{}) error {
	gz := gzip.NewWriter(w)
	if err := json.NewEncoder(gz).Encode(artifact); err != nil {
		_ = gz.Close()
		return err
	}
	return gz.Close()
}

func decode(r io.Reader, dst interface{}) error {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return err
	}
	defer gz.Close()
	return json.NewDecoder(gz).Decode(dst)
}

func encodeBytes(artifact interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := encode(&buf, artifact); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFileAtomic stores v as gzip-compressed JSON at path. Readers see
// either the previous file or the complete new one.
func WriteFileAtomic(path string, v interface{}) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp.*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	ok := false
	defer func() {
		_ = tmp.Close()
		if !ok {
			_ = os.Remove(tmpPath)
		}
	}()

	if err := encode(tmp, v); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return err
	}
	ok = true
	return nil
}

// ReadFile decodes a file written by WriteFileAtomic into dst.
func ReadFile(path string, dst interface{}) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return decode(f, dst)
}
