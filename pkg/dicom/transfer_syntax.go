package dicom

import "strings"

const (
	ImplicitVRLittleEndian         = "1.2.840.10008.1.2"
	ExplicitVRLittleEndian         = "1.2.840.10008.1.2.1"
	DeflatedExplicitVRLittleEndian = "1.2.840.10008.1.2.1.99"
	ExplicitVRBigEndian            = "1.2.840.10008.1.2.2"
)

var compressedPrefixes = []string{
	"1.2.840.10008.1.2.4.", // JPEG, JPEG-LS, JPEG 2000, MPEG, HEVC
	"1.2.840.10008.1.2.5",  // RLE lossless
}

// IsNative reports whether uid stores pixel data uncompressed.
func IsNative(uid string) bool {
	switch cleanUID(uid) {
	case "", ImplicitVRLittleEndian, ExplicitVRLittleEndian, DeflatedExplicitVRLittleEndian, ExplicitVRBigEndian:
		return true
	}
	return false
}

// IsCompressed reports whether uid names a known compressed syntax.
func IsCompressed(uid string) bool {
	uid = cleanUID(uid)
	for _, p := range compressedPrefixes {
		if strings.HasPrefix(uid, p) {
			return true
		}
	}
	return false
}

func cleanUID(uid string) string {
	return strings.Trim(uid, "\x00 ")
}
