package ir

import (
	"crypto/sha256"
	"encoding/hex"
)

// Domain prefixes for content digests.
// The version suffix leaves room for a future algorithm change.
const (
	DomainScript = "daisy/script/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ScriptDigest returns the content digest of a persisted script source.
func ScriptDigest(source string) string {
	return hashWithDomain(DomainScript, []byte(source))
}
