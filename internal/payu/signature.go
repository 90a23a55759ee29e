package payu

import (
	"crypto/md5"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"
)

// Signer implements the gateway's mandated content signature:
// hex(MD5(payload || key)). MD5 keyed concatenation is the external
// contract, not a choice made here; the digest must match one computed by
// the gateway over the exact same bytes, so callers always sign the raw
// serialized payload and never a re-marshal of it.
type Signer struct {
	key string
}

func NewSigner(md5Key string) *Signer {
	return &Signer{key: md5Key}
}

// Sign returns the hex digest over payload bytes plus the shared key.
func (s *Signer) Sign(payload []byte) string {
	h := md5.New()
	h.Write(payload)
	h.Write([]byte(s.key))
	return hex.EncodeToString(h.Sum(nil))
}

// Verify compares the expected digest for payload against the received one.
func (s *Signer) Verify(payload []byte, digest string) bool {
	if len(payload) == 0 || digest == "" {
		return false
	}
	want := s.Sign(payload)
	return subtle.ConstantTimeCompare([]byte(want), []byte(strings.ToLower(digest))) == 1
}

// SignatureHeader formats the OpenPayU-Signature header value.
func SignatureHeader(digest string) string {
	return fmt.Sprintf("signature=%s;algorithm=MD5", digest)
}

// ParseSignatureHeader extracts the digest from a header of the form
// "signature=<hex>;algorithm=MD5". Returns "" when no signature is present.
func ParseSignatureHeader(header string) string {
	for _, part := range strings.Split(header, ";") {
		part = strings.TrimSpace(part)
		if v, ok := strings.CutPrefix(part, "signature="); ok {
			return v
		}
	}
	return ""
}
