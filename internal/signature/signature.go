// Package signature verifies Layercode webhook signatures.
//
// The signature header carries a timestamp and one or more HMAC-SHA256
// digests in the form "t=<unix>,v1=<hex>[,v1=<hex>...]". The digest is
// computed over "<unix>.<payload>" with the shared webhook secret.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Verify reports whether claimed is a valid signature for payload under
// secret. An empty secret or empty header always fails: verification
// fails closed, the caller decides how to surface it. Verify has no
// side effects and performs no logging.
func Verify(payload, claimed, secret string) bool {
	if secret == "" || claimed == "" {
		return false
	}

	timestamp, digests := parseHeader(claimed)
	if timestamp == "" || len(digests) == 0 {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write([]byte(payload))
	expected := mac.Sum(nil)

	// hmac.Equal is constant time; checking every candidate digest
	// keeps the comparison independent of where a match sits.
	valid := false
	for _, digest := range digests {
		decoded, err := hex.DecodeString(digest)
		if err != nil {
			continue
		}
		if hmac.Equal(decoded, expected) {
			valid = true
		}
	}
	return valid
}

// parseHeader splits "t=...,v1=...,v1=..." into the timestamp and the
// candidate digests. Unknown parts are ignored.
func parseHeader(header string) (string, []string) {
	var timestamp string
	var digests []string
	for _, part := range strings.Split(header, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch key {
		case "t":
			timestamp = value
		case "v1":
			if value != "" {
				digests = append(digests, value)
			}
		}
	}
	return timestamp, digests
}

// Sign produces a signature header for payload at the given unix
// timestamp. Used by the webhook sender side and by tests.
func Sign(payload, secret, timestamp string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write([]byte(payload))
	return "t=" + timestamp + ",v1=" + hex.EncodeToString(mac.Sum(nil))
}
