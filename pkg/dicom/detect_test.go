package dicom

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func dicomHeader() []byte {
	buf := make([]byte, 200)
	copy(buf[128:], "DICM")
	return buf
}

func TestIsDicomFile(t *testing.T) {
	tests := map[string]bool{
		"x.DCM":          true,
		"x.dcm":          true,
		"scan.Dicom":     true,
		"dir/pano.dicom": true,
		"x.jpg":          false,
		"noext":          false,
		"x.dcm.png":      false,
		"archive.dcmz":   false,
		"":               false,
	}
	for name, want := range tests {
		require.Equal(t, want, IsDicomFile(name), name)
	}
}

func TestIsDicomData(t *testing.T) {
	require.True(t, IsDicomData(dicomHeader()))
	require.True(t, IsDicomData(dicomHeader()[:132]))

	short := make([]byte, 131)
	copy(short[128:], "DIC")
	require.False(t, IsDicomData(short))
	require.False(t, IsDicomData(nil))

	wrong := dicomHeader()
	copy(wrong[128:], "DICN")
	require.False(t, IsDicomData(wrong))

	png := append([]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}, make([]byte, 200)...)
	require.False(t, IsDicomData(png))
}

func TestIsDicomBase64(t *testing.T) {
	enc := base64.StdEncoding.EncodeToString(dicomHeader())

	require.True(t, IsDicomBase64(enc))
	require.True(t, IsDicomBase64("data:application/dicom;base64,"+enc))
	require.True(t, IsDicomBase64(base64.RawStdEncoding.EncodeToString(dicomHeader())))

	pngB64 := base64.StdEncoding.EncodeToString(append([]byte{0x89, 'P', 'N', 'G'}, make([]byte, 300)...))
	require.False(t, IsDicomBase64("data:image/png;base64,"+pngB64))
	require.False(t, IsDicomBase64("%%% not base64 %%%"))
	require.False(t, IsDicomBase64(""))
}

func TestIsDicomPath(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "a.bin")
	require.NoError(t, os.WriteFile(good, dicomHeader(), 0o644))
	require.True(t, IsDicomPath(good))

	short := filepath.Join(dir, "b.bin")
	require.NoError(t, os.WriteFile(short, []byte("DICM"), 0o644))
	require.False(t, IsDicomPath(short))

	require.False(t, IsDicomPath(filepath.Join(dir, "missing.dcm")))
}

func TestStripDataURL(t *testing.T) {
	require.Equal(t, "QUJD", StripDataURL("data:image/png;base64,QUJD"))
	require.Equal(t, "QUJD", StripDataURL("  QUJD "))
	require.Equal(t, "data:text/plain,hello", StripDataURL("data:text/plain,hello"))

	data, err := DecodeBase64("data:image/png;base64,QU\nJD")
	require.NoError(t, err)
	require.Equal(t, []byte("ABC"), data)
}

func TestTransferSyntax(t *testing.T) {
	require.True(t, IsNative(ExplicitVRLittleEndian))
	require.True(t, IsNative(ImplicitVRLittleEndian+"\x00"))
	require.False(t, IsCompressed(ExplicitVRLittleEndian))
	require.True(t, IsCompressed("1.2.840.10008.1.2.4.50"))
	require.True(t, IsCompressed("1.2.840.10008.1.2.4.90"))
	require.True(t, IsCompressed("1.2.840.10008.1.2.5"))
	require.False(t, IsNative("1.2.840.10008.1.2.4.70"))
	require.False(t, IsNative("1.2.3.4"))
}
