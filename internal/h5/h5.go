// Package h5 reads CPL datasets out of HDF5 files.
package h5

import (
	"fmt"
	"strings"

	"github.com/chrissnell/cplcurtain/internal/cpl"
	"github.com/chrissnell/cplcurtain/internal/types"
	"gonum.org/v1/hdf5"
)

// File is an open HDF5 file. It satisfies cpl.File.
type File struct {
	path     string
	f        *hdf5.File
	writable bool
}

// Open opens path read-write, matching the way CPL files are annotated in place.
func Open(path string) (*File, error) {
	f, err := hdf5.OpenFile(path, hdf5.F_ACC_RDWR)
	if err != nil {
		return nil, fmt.Errorf("%w: unable to open %s: %v", types.ErrResource, path, err)
	}
	return &File{path: path, f: f, writable: true}, nil
}

// OpenReadOnly opens path without write access.
func OpenReadOnly(path string) (*File, error) {
	f, err := hdf5.OpenFile(path, hdf5.F_ACC_RDONLY)
	if err != nil {
		return nil, fmt.Errorf("%w: unable to open %s: %v", types.ErrResource, path, err)
	}
	return &File{path: path, f: f}, nil
}

// Read loads dataset name from group as float64 values. An empty group or
// "/" reads from the file root.
func (h *File) Read(group, name string) (types.Field, error) {
	var (
		ds  *hdf5.Dataset
		err error
	)

	if group == "" || group == "/" {
		if !h.f.LinkExists(name) {
			return types.Field{}, fmt.Errorf("%w: dataset %s not found in %s", types.ErrMissingField, name, h.path)
		}
		ds, err = h.f.OpenDataset(name)
	} else {
		g, gerr := h.openGroup(group)
		if gerr != nil {
			return types.Field{}, gerr
		}
		defer g.Close()
		if !g.LinkExists(name) {
			return types.Field{}, fmt.Errorf("%w: dataset %s/%s not found in %s", types.ErrMissingField, group, name, h.path)
		}
		ds, err = g.OpenDataset(name)
	}
	if err != nil {
		return types.Field{}, fmt.Errorf("%w: unable to open dataset %s/%s: %v", types.ErrResource, group, name, err)
	}
	defer ds.Close()

	space := ds.Space()
	defer space.Close()

	dims, _, err := space.SimpleExtentDims()
	if err != nil {
		return types.Field{}, fmt.Errorf("%w: unable to read shape of %s/%s: %v", types.ErrResource, group, name, err)
	}

	shape := make([]int, len(dims))
	n := 1
	for i, d := range dims {
		shape[i] = int(d)
		n *= int(d)
	}

	data := make([]float64, n)
	if n > 0 {
		if err := ds.Read(&data); err != nil {
			return types.Field{}, fmt.Errorf("%w: unable to read %s/%s: %v", types.ErrResource, group, name, err)
		}
	}

	return types.NewField(name, shape, data)
}

func (h *File) openGroup(group string) (*hdf5.Group, error) {
	path := strings.Trim(group, "/")
	if !h.f.LinkExists(path) {
		return nil, fmt.Errorf("%w: group %s not found in %s", types.ErrMissingField, group, h.path)
	}
	g, err := h.f.OpenGroup(path)
	if err != nil {
		return nil, fmt.Errorf("%w: unable to open group %s: %v", types.ErrResource, group, err)
	}
	return g, nil
}

// Opener returns a cpl.Opener that opens files read-write, or read-only when
// readOnly is set.
func Opener(readOnly bool) cpl.Opener {
	return func(path string) (cpl.File, error) {
		var (
			f   *File
			err error
		)
		if readOnly {
			f, err = OpenReadOnly(path)
		} else {
			f, err = Open(path)
		}
		if err != nil {
			return nil, err
		}
		return f, nil
	}
}

// Writable reports whether the file was opened read-write.
func (h *File) Writable() bool {
	return h.writable
}

// Path returns the file name the handle was opened with.
func (h *File) Path() string {
	return h.path
}

// Close releases the HDF5 handle.
func (h *File) Close() error {
	return h.f.Close()
}
