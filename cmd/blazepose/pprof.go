package main

import (
	"runtime/pprof"

	"github.com/spf13/afero"
)

// defaultPGO is the profile name picked up by go build -pgo=auto.
const defaultPGO = "default.pgo"

// startPGO collects a CPU profile into name until the returned stop is called.
func startPGO(fs afero.Fs, name string) (stop func() error, err error) {
	f, err := fs.Create(name)
	if err != nil {
		return nil, err
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		f.Close()
		return nil, err
	}
	return func() error {
		pprof.StopCPUProfile()
		return f.Close()
	}, nil
}
