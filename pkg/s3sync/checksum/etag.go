// Package checksum implements the integrity-verification protocol: ETag
// normalization and reconstruction, and additional-checksum composition for
// the algorithms S3 supports on multipart uploads.
package checksum

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"
)

// NormalizeETag strips only the surrounding quotes S3 wraps ETags in over
// the wire. Internal hyphens and the multipart part-count suffix are left
// untouched — per §9's open question, this is the one normalization both
// sides of a comparison must apply identically.
func NormalizeETag(etag string) string {
	return strings.Trim(etag, `"`)
}

// SingleObjectETag returns the ETag a non-KMS single-part PUT/COPY produces:
// the hex MD5 of the transferred bytes.
func SingleObjectETag(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}

// MultipartETag reconstructs the ETag S3 returns for a completed multipart
// upload from the ordered list of per-part MD5 digests: hex(md5(concat(part
// MD5s)))-N (§4.5.3, §GLOSSARY). partMD5s must be in part-number order.
func MultipartETag(partMD5s [][md5.Size]byte) string {
	concatenated := make([]byte, 0, len(partMD5s)*md5.Size)
	for _, sum := range partMD5s {
		concatenated = append(concatenated, sum[:]...)
	}
	final := md5.Sum(concatenated)
	return fmt.Sprintf("%s-%d", hex.EncodeToString(final[:]), len(partMD5s))
}

// DecodeMD5ETag recovers the raw MD5 digest behind a single-part ETag, the
// form UploadPart and UploadPartCopy both report for one part. ok is false
// for anything that isn't exactly a 32-character hex MD5 - in particular a
// multipart "-N" suffixed ETag, which carries no recoverable per-part MD5.
func DecodeMD5ETag(etag string) (sum [md5.Size]byte, ok bool) {
	normalized := NormalizeETag(etag)
	decoded, err := hex.DecodeString(normalized)
	if err != nil || len(decoded) != md5.Size {
		return sum, false
	}
	copy(sum[:], decoded)
	return sum, true
}

// IsMultipartETag reports whether a normalized ETag carries the "-N" part
// count suffix that identifies it as a multipart-upload ETag, and returns N.
func IsMultipartETag(normalized string) (partCount int, ok bool) {
	idx := strings.LastIndexByte(normalized, '-')
	if idx < 0 || idx == len(normalized)-1 {
		return 0, false
	}
	suffix := normalized[idx+1:]
	n := 0
	for _, r := range suffix {
		if r < '0' || r > '9' {
			return 0, false
		}
		n = n*10 + int(r-'0')
	}
	if n <= 0 {
		return 0, false
	}
	return n, true
}
