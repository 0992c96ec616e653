package objectref

import "crypto/sha1"

// keyDigest computes the 20-byte SHA-1 digest used as the secondary
// TargetFingerprint index (§3: "KeyDigest(sha1(key))").
func keyDigest(key string) [20]byte {
	return sha1.Sum([]byte(key))
}
