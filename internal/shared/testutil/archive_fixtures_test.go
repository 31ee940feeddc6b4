package testutil

import (
	"archive/zip"
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZipBytes(t *testing.T) {
	data := ZipBytes(t, Dir("nested"), File("nested/a.csv", "x"), File("b.txt", "yz"))

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	require.Len(t, zr.File, 3)

	assert.Equal(t, "nested/", zr.File[0].Name)
	assert.True(t, zr.File[0].FileInfo().IsDir())

	rc, err := zr.File[2].Open()
	require.NoError(t, err)
	defer rc.Close()
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "yz", string(body))
}

func TestPeopleCSVAndReadLines(t *testing.T) {
	body := PeopleCSV("Jane,Doe,01/02/2020")
	assert.Equal(t, "firstName,lastName,date\nJane,Doe,01/02/2020\n", body)

	p := WriteZip(t, t.TempDir(), "x.zip", File("a.csv", body))
	assert.FileExists(t, p)
}
