package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// HostFS is the filesystem the config is read from and the sysfs GPIO
// backend writes to, with the bits of the OS that tests need to fake.
type HostFS interface {
	afero.Fs
	Abs(string) (string, error)
	HomeDir() (string, error)
}

type hostOSFS struct {
	afero.Fs
}

func newHostOSFS() HostFS {
	return &hostOSFS{
		afero.NewOsFs(),
	}
}

func (h *hostOSFS) Abs(path string) (string, error) {
	return filepath.Abs(path)
}

func (h *hostOSFS) HomeDir() (string, error) {
	return os.UserHomeDir()
}

type hostMemFS struct {
	afero.Fs
	home string
}

// NewHostMemFS returns an in-memory HostFS whose home directory is home.
func NewHostMemFS(home string) HostFS {
	return &hostMemFS{
		Fs:   afero.NewMemMapFs(),
		home: home,
	}
}

func (h *hostMemFS) Abs(path string) (string, error) {
	if filepath.IsAbs(path) {
		return path, nil
	}
	return filepath.Join("/", path), nil
}

func (h *hostMemFS) HomeDir() (string, error) {
	return h.home, nil
}
