package storage

import (
	"context"
	"os"
	"path/filepath"
)

// FileSheet keeps the table in a local CSV file.
type FileSheet struct {
	*csvSheet
	FilePath string
}

func NewFileSheet(filePath string) *FileSheet {
	return &FileSheet{
		csvSheet: &csvSheet{blob: fileBlob{path: filePath}},
		FilePath: filePath,
	}
}

type fileBlob struct {
	path string
}

func (f fileBlob) load(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	return data, err
}

// store writes to a sibling temp file and renames it over the target so a
// crash never leaves a half-written table behind.
func (f fileBlob) store(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), f.path)
}
