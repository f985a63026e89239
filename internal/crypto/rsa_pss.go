// Package crypto holds the signing and encryption primitives for the
// licensing core: RSA-PSS/SHA-256 for license signatures and AES-256-GCM
// for the machine-bound blob protector.
package crypto

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
)

// PSSSaltLength is fixed by contract with the vendor-side generator. Signer
// and verifier must agree on the (SHA-256, PSS, salt=32) triple exactly or
// every signature fails.
const PSSSaltLength = 32

var ErrNotRSA = errors.New("key is not RSA")

// ParseRSAPublicKey decodes a PEM public key, accepting both PKIX
// ("PUBLIC KEY") and PKCS#1 ("RSA PUBLIC KEY") encodings.
func ParseRSAPublicKey(pemData []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(pemData)
	if block == nil {
		return nil, errors.New("no PEM block containing public key")
	}

	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		// Fallback for PKCS1
		if pkcs1Pub, err2 := x509.ParsePKCS1PublicKey(block.Bytes); err2 == nil {
			pub = pkcs1Pub
		} else {
			return nil, fmt.Errorf("failed to parse public key: %w", err)
		}
	}

	rsaPub, okCast := pub.(*rsa.PublicKey)
	if !okCast {
		return nil, ErrNotRSA
	}
	return rsaPub, nil
}

// ParseRSAPrivateKey decodes a PEM private key (PKCS#8 or PKCS#1). Used
// only by the vendor-side generator, never by the runtime verifier.
func ParseRSAPrivateKey(pemData []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(pemData)
	if block == nil {
		return nil, errors.New("no PEM block containing private key")
	}

	if key, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		rsaKey, okCast := key.(*rsa.PrivateKey)
		if !okCast {
			return nil, ErrNotRSA
		}
		return rsaKey, nil
	}

	rsaKey, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	return rsaKey, nil
}

// Sign produces the base64 RSA-PSS signature over data. The generator signs
// canonical payload bytes with this exact scheme.
func Sign(priv *rsa.PrivateKey, data []byte) (string, error) {
	hashed := sha256.Sum256(data)
	sig, err := rsa.SignPSS(rand.Reader, priv, crypto.SHA256, hashed[:], &rsa.PSSOptions{
		SaltLength: PSSSaltLength,
		Hash:       crypto.SHA256,
	})
	if err != nil {
		return "", fmt.Errorf("pss sign: %w", err)
	}
	return base64.StdEncoding.EncodeToString(sig), nil
}

// Verify reports whether sigB64 is a valid RSA-PSS signature over data.
// Malformed base64, a nil key, or a failed verification all yield false;
// this function never panics on expected-bad input.
func Verify(pub *rsa.PublicKey, data []byte, sigB64 string) bool {
	if pub == nil {
		return false
	}
	sig, err := base64.StdEncoding.DecodeString(sigB64)
	if err != nil {
		return false
	}
	hashed := sha256.Sum256(data)
	err = rsa.VerifyPSS(pub, crypto.SHA256, hashed[:], sig, &rsa.PSSOptions{
		SaltLength: PSSSaltLength,
		Hash:       crypto.SHA256,
	})
	return err == nil
}
