package restyutil

import (
	"log/slog"
	"os"
	"path/filepath"
)

// FilesystemOutput writes each message to its own file inside a directory.
type FilesystemOutput struct {
	directory string
}

// NewFilesystemOutput creates a fresh "http-*" subdirectory of dir for the
// messages of this run, existing contents of dir are left untouched.
func NewFilesystemOutput(dir string) (FilesystemOutput, error) {
	err := os.MkdirAll(dir, 0777)
	if err != nil {
		return FilesystemOutput{}, err
	}
	runDir, err := os.MkdirTemp(dir, "http-*")
	if err != nil {
		return FilesystemOutput{}, err
	}
	return FilesystemOutput{directory: runDir}, nil
}

// Dir is the directory messages are written to.
func (o FilesystemOutput) Dir() string {
	return o.directory
}

func (o FilesystemOutput) Write(id string, contents string) {
	err := os.WriteFile(filepath.Join(o.directory, id+".txt"), []byte(contents), 0600)
	if err != nil {
		slog.Warn("failed to write message info file", "id", id, "err", err)
	}
}
