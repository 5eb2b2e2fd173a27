// Package signer computes per-request authentication headers for the
// control-plane API. This is part of the Functional Core - all functions are
// pure; the caller supplies the timestamp.
//
// The scheme is an HMAC-SHA256 canonical-request signature: the request's
// method, path, query, a fixed header set and the body hash are canonicalized
// byte-for-byte, hashed, and signed with a key derived by chaining HMAC over
// the date, region, service and the literal "request". The remote verifier
// recomputes the same canonicalization, so none of the formatting below may
// change.
package signer

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
)

const (
	// Algorithm is the signature algorithm label used in the credential
	// scope and the Authorization header.
	Algorithm = "HMAC-SHA256"

	// timeFormat is the X-Date wire format (UTC, no separators).
	timeFormat = "20060102T150405Z"

	// dateFormat is the date portion used in the credential scope.
	dateFormat = "20060102"

	contentType = "application/json"
)

// =============================================================================
// Types
// =============================================================================

// Credential is the secret material and scope for signing requests.
// It holds no mutable state and may be reused freely across requests.
type Credential struct {
	AccessKey string
	SecretKey string
	Region    string
	Service   string
}

// Configured reports whether the credential can produce accepted signatures.
// An unset credential still signs; the remote side rejects it.
func (c Credential) Configured() bool {
	return c.AccessKey != "" && c.SecretKey != ""
}

// Request is the canonicalizable view of one API call. Produced fresh per
// call and never reused - the timestamp inside the signature is call-specific.
type Request struct {
	Method string
	Host   string
	Path   string
	Query  url.Values
	Body   string
}

// =============================================================================
// Signing
// =============================================================================

// Sign computes the transport headers for req at the given instant:
// Host, X-Date, X-Content-Sha256, Content-Type and Authorization.
func Sign(req Request, cred Credential, now time.Time) http.Header {
	xdate := now.UTC().Format(timeFormat)
	date := now.UTC().Format(dateFormat)

	bodyHash := hexSHA256([]byte(req.Body))

	// Fixed signed header set, canonicalized as lower-cased name, trimmed
	// value, one "name:value\n" line per header, sorted by name.
	signed := map[string]string{
		"host":             req.Host,
		"x-date":           xdate,
		"x-content-sha256": bodyHash,
		"content-type":     contentType,
	}
	names := make([]string, 0, len(signed))
	for name := range signed {
		names = append(names, name)
	}
	sort.Strings(names)

	var canonicalHeaders strings.Builder
	for _, name := range names {
		canonicalHeaders.WriteString(name)
		canonicalHeaders.WriteString(":")
		canonicalHeaders.WriteString(strings.TrimSpace(signed[name]))
		canonicalHeaders.WriteString("\n")
	}
	signedHeaders := strings.Join(names, ";")

	canonicalRequest := strings.Join([]string{
		req.Method,
		req.Path,
		CanonicalQuery(req.Query),
		canonicalHeaders.String(),
		signedHeaders,
		bodyHash,
	}, "\n")

	scope := strings.Join([]string{date, cred.Region, cred.Service, "request"}, "/")

	stringToSign := strings.Join([]string{
		Algorithm,
		xdate,
		scope,
		hexSHA256([]byte(canonicalRequest)),
	}, "\n")

	key := signingKey(cred, date)
	signature := hex.EncodeToString(hmacSHA256(key, stringToSign))

	header := http.Header{}
	header.Set("Host", req.Host)
	header.Set("X-Date", xdate)
	header.Set("X-Content-Sha256", bodyHash)
	header.Set("Content-Type", contentType)
	header.Set("Authorization", Algorithm+
		" Credential="+cred.AccessKey+"/"+scope+
		", SignedHeaders="+signedHeaders+
		", Signature="+signature)
	return header
}

// CanonicalQuery renders query parameters as sorted, percent-encoded
// key=value pairs joined with "&". Empty for no parameters.
func CanonicalQuery(query url.Values) string {
	if len(query) == 0 {
		return ""
	}
	keys := make([]string, 0, len(query))
	for k := range query {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(query))
	for _, k := range keys {
		values := append([]string(nil), query[k]...)
		sort.Strings(values)
		for _, v := range values {
			pairs = append(pairs, queryEscape(k)+"="+queryEscape(v))
		}
	}
	return strings.Join(pairs, "&")
}

// =============================================================================
// Helpers
// =============================================================================

// queryEscape percent-encodes a query component. url.QueryEscape encodes
// spaces as "+", which the verifier does not accept.
func queryEscape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// signingKey chains HMAC-SHA256 over date, region, service and "request".
func signingKey(cred Credential, date string) []byte {
	key := []byte(cred.SecretKey)
	for _, part := range []string{date, cred.Region, cred.Service, "request"} {
		key = hmacSHA256(key, part)
	}
	return key
}

func hmacSHA256(key []byte, data string) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(data))
	return mac.Sum(nil)
}

func hexSHA256(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
