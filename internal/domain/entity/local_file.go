package entity

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
)

// LocalFile is a file picked on the device that has not been uploaded yet.
type LocalFile struct {
	Name        string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

func FileFromBytes(name, contentType string, data []byte) LocalFile {
	return LocalFile{
		Name:        name,
		ContentType: contentType,
		Size:        int64(len(data)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

func FileFromPath(path string) (LocalFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return LocalFile{}, err
	}
	return LocalFile{
		Name: filepath.Base(path),
		Size: info.Size(),
		Open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}, nil
}
