package dicom

import (
	"bytes"
	"encoding/base64"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const (
	preambleLen  = 128
	signatureLen = preambleLen + 4
)

var magic = []byte("DICM")

// IsDicomFile reports whether name carries a .dcm or .dicom extension.
func IsDicomFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".dcm", ".dicom":
		return true
	}
	return false
}

// IsDicomData reports whether data holds "DICM" right after the 128 byte
// preamble. Short buffers are never DICOM.
func IsDicomData(data []byte) bool {
	if len(data) < signatureLen {
		return false
	}
	return bytes.Equal(data[preambleLen:signatureLen], magic)
}

// IsDicomBase64 decodes s, with or without a data URL prefix, and checks the
// signature. Anything that fails to decode is not DICOM.
func IsDicomBase64(s string) bool {
	data, err := DecodeBase64(s)
	if err != nil {
		return false
	}
	return IsDicomData(data)
}

// IsDicomPath reads at most the signature bytes of the file at path.
func IsDicomPath(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	head := make([]byte, signatureLen)
	n, err := io.ReadFull(f, head)
	if err != nil {
		return false
	}
	return IsDicomData(head[:n])
}

// IsDicom is true when either the name or the content says DICOM.
func IsDicom(name string, data []byte) bool {
	return IsDicomFile(name) || IsDicomData(data)
}

// StripDataURL removes a leading "data:<mime>;base64," header.
func StripDataURL(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "data:") {
		return s
	}
	idx := strings.Index(s, ";base64,")
	if idx < 0 {
		return s
	}
	return s[idx+len(";base64,"):]
}

// DecodeBase64 accepts padded or unpadded standard encoding, with line
// breaks, behind an optional data URL prefix.
func DecodeBase64(s string) ([]byte, error) {
	s = StripDataURL(s)
	s = strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', ' ', '\t':
			return -1
		}
		return r
	}, s)

	if data, err := base64.StdEncoding.DecodeString(s); err == nil {
		return data, nil
	}
	return base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
}
