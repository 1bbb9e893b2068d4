package actors

import (
	"bytes"
	"io"
	"os"
	"path/filepath"

	"zentry/engine/library"
)

// FlatFile reads and writes whole-state snapshots as <dir>/<mind>/<db>.dat.
type FlatFile struct {
	Dir string
}

func NewFlatFile(settings Settings) FlatFile {
	return FlatFile{Dir: filepath.Join(settings.RootDir, settings.FlatFileDir)}
}

func (f FlatFile) Open(mind, db string) (*os.File, bool) {
	if err := os.MkdirAll(f.directory(mind), 0777); err != nil {
		library.LogCLI(err.Error(), 1)
		return nil, false
	}
	_, err := os.Stat(f.path(mind, db))
	if os.IsNotExist(err) {
		return nil, false
	}
	file, err := os.Open(f.path(mind, db))
	if err != nil {
		library.LogCLI(err.Error(), 1)
		return nil, false
	}
	return file, true
}

func (f FlatFile) Write(mind, db string, b []byte) error {
	if err := os.MkdirAll(f.directory(mind), 0777); err != nil {
		return err
	}
	tmp := f.path(mind, db) + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err = io.Copy(file, bytes.NewReader(b)); err != nil {
		file.Close()
		return err
	}
	if err = file.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, f.path(mind, db))
}

func (f FlatFile) directory(mind string) string {
	return filepath.Join(f.Dir, mind)
}

func (f FlatFile) path(mind, db string) string {
	return filepath.Join(f.directory(mind), db+".dat")
}
