package h5

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/chrissnell/cplcurtain/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/hdf5"
)

func writeFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "CPL_L2_20130819_fixture.h5")

	f, err := hdf5.CreateFile(path, hdf5.F_ACC_TRUNC)
	require.NoError(t, err)
	defer f.Close()

	g, err := f.CreateGroup("geolocation")
	require.NoError(t, err)
	defer g.Close()

	latSpace, err := hdf5.CreateSimpleDataspace([]uint{3, 1}, nil)
	require.NoError(t, err)
	defer latSpace.Close()
	lat, err := g.CreateDataset("gps_lat", hdf5.T_NATIVE_DOUBLE, latSpace)
	require.NoError(t, err)
	defer lat.Close()
	latData := []float64{29.0, 29.1, 29.2}
	require.NoError(t, lat.Write(&latData))

	zSpace, err := hdf5.CreateSimpleDataspace([]uint{4}, nil)
	require.NoError(t, err)
	defer zSpace.Close()
	z, err := f.CreateDataset("Altitudes", hdf5.T_NATIVE_DOUBLE, zSpace)
	require.NoError(t, err)
	defer z.Close()
	zData := []float64{0, 30, 60, 90}
	require.NoError(t, z.Write(&zData))

	return path
}

func TestReadDatasets(t *testing.T) {
	path := writeFixture(t)

	f, err := Open(path)
	require.NoError(t, err)
	defer f.Close()

	lat, err := f.Read("geolocation", "gps_lat")
	require.NoError(t, err)
	assert.Equal(t, []int{3, 1}, lat.Shape)
	assert.InDeltaSlice(t, []float64{29.0, 29.1, 29.2}, lat.Data, 1e-12)

	z, err := f.Read("/", "Altitudes")
	require.NoError(t, err)
	assert.Equal(t, []int{4}, z.Shape)
	assert.Equal(t, path, f.Path())
}

func TestReadMissing(t *testing.T) {
	path := writeFixture(t)

	f, err := OpenReadOnly(path)
	require.NoError(t, err)
	defer f.Close()

	_, err = f.Read("geolocation", "gps_lon")
	assert.True(t, errors.Is(err, types.ErrMissingField), "got %v", err)

	_, err = f.Read("profile", "bsc_532nm_prfl")
	assert.True(t, errors.Is(err, types.ErrMissingField), "got %v", err)
}

func TestOpener(t *testing.T) {
	path := writeFixture(t)

	tests := []struct {
		name     string
		readOnly bool
		writable bool
	}{
		{name: "default is read-write", readOnly: false, writable: true},
		{name: "read-only", readOnly: true, writable: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cf, err := Opener(tt.readOnly)(path)
			require.NoError(t, err)
			defer cf.Close()

			f, ok := cf.(*File)
			require.True(t, ok)
			assert.Equal(t, tt.writable, f.Writable())

			_, err = cf.Read("geolocation", "gps_lat")
			assert.NoError(t, err)
		})
	}

	_, err := Opener(false)(filepath.Join(t.TempDir(), "nope.h5"))
	assert.True(t, errors.Is(err, types.ErrResource), "got %v", err)
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope.h5"))
	assert.True(t, errors.Is(err, types.ErrResource), "got %v", err)
}
