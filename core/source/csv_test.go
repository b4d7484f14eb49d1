package source

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "setpoints.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestCSVSourceFullColumns(t *testing.T) {
	path := writeCSV(t, "real_power,reactive_power,customerid,node\n40,0,customer1,1\n-25.5,0,customer1,\n")
	src, err := OpenCSV(path, ',')
	require.NoError(t, err)
	defer src.Close()

	row, err := src.Next()
	require.NoError(t, err)
	assert.Equal(t, 40.0, row.RealPowerKW)
	assert.True(t, row.HasCustomerID)
	assert.Equal(t, "customer1", row.CustomerID)
	assert.True(t, row.HasNode)
	assert.Equal(t, "1", row.Node)

	row, err = src.Next()
	require.NoError(t, err)
	assert.Equal(t, -25.5, row.RealPowerKW)
	assert.Equal(t, "", row.Node)

	_, err = src.Next()
	assert.True(t, errors.Is(err, ErrExhausted))
}

func TestCSVSourceMinimalColumns(t *testing.T) {
	path := writeCSV(t, "real_power\n10\n")
	src, err := OpenCSV(path, 0)
	require.NoError(t, err)
	defer src.Close()

	row, err := src.Next()
	require.NoError(t, err)
	assert.Equal(t, 10.0, row.RealPowerKW)
	assert.False(t, row.HasCustomerID)
	assert.False(t, row.HasNode)
}

func TestCSVSourceSemicolonDelimiter(t *testing.T) {
	path := writeCSV(t, "real_power;node\n12.5;3\n")
	src, err := OpenCSV(path, ';')
	require.NoError(t, err)
	defer src.Close()

	row, err := src.Next()
	require.NoError(t, err)
	assert.Equal(t, 12.5, row.RealPowerKW)
	assert.Equal(t, "3", row.Node)
}

func TestCSVSourceMissingRequiredColumn(t *testing.T) {
	path := writeCSV(t, "reactive_power\n0\n")
	_, err := OpenCSV(path, ',')
	require.Error(t, err)
}

func TestCSVSourceBadPower(t *testing.T) {
	path := writeCSV(t, "real_power\nfoo\n")
	src, err := OpenCSV(path, ',')
	require.NoError(t, err)
	defer src.Close()
	_, err = src.Next()
	require.Error(t, err)
}

func TestSliceSource(t *testing.T) {
	src := NewSliceSource([]Row{{RealPowerKW: 1}, {RealPowerKW: 2}})
	r1, err := src.Next()
	require.NoError(t, err)
	assert.Equal(t, 1.0, r1.RealPowerKW)
	r2, err := src.Next()
	require.NoError(t, err)
	assert.Equal(t, 2.0, r2.RealPowerKW)
	_, err = src.Next()
	assert.True(t, errors.Is(err, ErrExhausted))
}
