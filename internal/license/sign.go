package license

import (
	"crypto/rsa"

	"github.com/technosupport/ts-pos/internal/crypto"
)

// verifySignature checks a base64 RSA-PSS signature against the canonical
// encoding of a payload value.
func verifySignature(pub *rsa.PublicKey, payload any, sigB64 string) bool {
	return crypto.Verify(pub, Canonicalize(payload), sigB64)
}

// SignPayload produces the artifact signature over the canonical encoding
// of a payload value. Used by the vendor-side generator only; the runtime
// core never signs.
func SignPayload(priv *rsa.PrivateKey, payload any) (string, error) {
	return crypto.Sign(priv, Canonicalize(payload))
}
