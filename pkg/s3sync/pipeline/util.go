package pipeline

import (
	"bytes"
	"crypto/md5"
	"encoding/base64"
	"io"
)

// md5Sum computes the MD5 digest of a fully-buffered part, retained
// per-part for multipart ETag reconstruction (§4.5.3).
func md5Sum(data []byte) [16]byte {
	return md5.Sum(data)
}

// base64Std base64-encodes a raw digest for the Content-MD5 request header.
func base64Std(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// newByteReader wraps a fully-buffered part in a bytes.Reader for
// UploadPart, returned as a plain io.Reader since that is all the store
// interface takes.
func newByteReader(data []byte) io.Reader {
	return bytes.NewReader(data)
}
