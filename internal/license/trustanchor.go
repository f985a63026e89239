package license

import (
	"crypto/rsa"
	"encoding/base64"
	"fmt"
	"sync"

	"github.com/technosupport/ts-pos/internal/crypto"
)

// The vendor verification key ships inside the binary. It is stored XOR-folded
// and base64-chunked so the PEM does not appear as a contiguous string in the
// binary; this raises the bar for a casual patch, nothing more. The real trust
// property comes from the signature scheme, not the obfuscation.
const anchorMask = 0x5C

var anchorChunks = []string{
	"cXFxcXEeGRsVEnwMCR4QFR98FxkFcXFxcXFWERUVHhU2HRIeOzctNDc1G2UrbB4dDRkaHR0THx0N",
	"ZB0RFRUeHzsXHx0NGR0kMghtJj8abmgMawgsPgkVCzAGbFYwKh4kGCQpaz84KTIKBnczJTUdO21o",
	"G2UWbxNlDhYKCRAScypkNRVpOg4ZP20RHjIoFiRrNA53JjhqLDoRJQooViYmFC8SMD5kJRQ5CDQ/",
	"FTJrJAYTFAoYNisXLioYKC0NOzUxCAgbDzNzbm8dHz4abHdzDDYFbRk2MG04awQEHQZWPTIvODQR",
	"KTdtEiklGxs4aiodOTdqPW8pFCp3LDI0KRsZFgtoPx8bHj4QNBUMMSQfbhQzHx8QGSgVbyssaRAw",
	"FlYUCQs4FAwbHzRtKDQYLA8qHWksCzk0NQ4ZOQ1tJR4uZBMpCzglOSobNRA1Ei4WMXM1LmgfETIE",
	"OxAzBGgdFwwWVm8+EywuNQwSEx4+JhMbDApoCmgKPW0dMz8FbRQKPmgeaitzCygoGTAbES4REw4N",
	"aw8eOmomGhASMxc/ZT8aDxRWPw0VGB0NHR5WcXFxcXEZEhh8DAkeEBUffBcZBXFxcXFxVg==",
}

var (
	anchorOnce sync.Once
	anchorKey  *rsa.PublicKey
	anchorErr  error
)

// EmbeddedPublicKey returns the process-wide trust anchor, assembled once at
// first use and immutable for the process lifetime. The validation engine
// takes the key as an explicit dependency, so tests inject their own; only
// the shipped wiring in cmd/posd reaches for this one.
func EmbeddedPublicKey() (*rsa.PublicKey, error) {
	anchorOnce.Do(func() {
		var joined string
		for _, c := range anchorChunks {
			joined += c
		}
		folded, err := base64.StdEncoding.DecodeString(joined)
		if err != nil {
			anchorErr = fmt.Errorf("trust anchor corrupt: %w", err)
			return
		}
		pem := make([]byte, len(folded))
		for i, b := range folded {
			pem[i] = b ^ anchorMask
		}
		anchorKey, anchorErr = crypto.ParseRSAPublicKey(pem)
	})
	return anchorKey, anchorErr
}
