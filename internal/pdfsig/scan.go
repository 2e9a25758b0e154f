// Package pdfsig locates and verifies detached CMS signatures embedded in
// PDF documents.
package pdfsig

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"regexp"
	"strconv"
)

var byteRangePattern = regexp.MustCompile(`/ByteRange\s*\[\s*(\d+)\s+(\d+)\s+(\d+)\s+(\d+)\s*\]`)

// Signature is one embedded signature and the bytes it covers.
type Signature struct {
	Index int
	// ByteRange holds offset/length pairs of the two signed spans.
	ByteRange [4]int64
	// Contents is the BER or DER encoded CMS SignedData without hole padding.
	Contents []byte
	// SignedData is the concatenation of both signed spans.
	SignedData []byte
	// CoversWholeDocument is false when bytes were appended after signing.
	CoversWholeDocument bool
}

// EmbeddedSignatures returns every signature dictionary found in doc, in file order.
// It only locates signatures; ValidateSignature checks them.
func EmbeddedSignatures(doc []byte) ([]Signature, error) {
	if !IsPDF(doc) {
		return nil, ErrNotPDF
	}

	matches := byteRangePattern.FindAllSubmatch(doc, -1)
	seen := make(map[[4]int64]struct{}, len(matches))
	var sigs []Signature
	for _, m := range matches {
		var br [4]int64
		for i := 0; i < 4; i++ {
			n, err := strconv.ParseInt(string(m[i+1]), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: byte range: %v", ErrMalformedSignature, err)
			}
			br[i] = n
		}
		if _, dup := seen[br]; dup {
			continue
		}
		seen[br] = struct{}{}

		sig, err := extract(doc, br)
		if err != nil {
			return nil, err
		}
		sig.Index = len(sigs)
		sigs = append(sigs, sig)
	}
	return sigs, nil
}

// IsPDF reports whether doc starts with a PDF header within its first KiB.
func IsPDF(doc []byte) bool {
	head := doc
	if len(head) > 1024 {
		head = head[:1024]
	}
	return bytes.Contains(head, []byte("%PDF-"))
}

func extract(doc []byte, br [4]int64) (Signature, error) {
	size := int64(len(doc))
	start1, len1, start2, len2 := br[0], br[1], br[2], br[3]
	holeStart := start1 + len1
	if start1 < 0 || len1 < 0 || start2 < 0 || len2 < 0 ||
		holeStart > start2 || start2+len2 > size {
		return Signature{}, fmt.Errorf("%w: byte range %v outside document of %d bytes", ErrMalformedSignature, br, size)
	}

	hole := bytes.TrimSpace(doc[holeStart:start2])
	if len(hole) < 2 || hole[0] != '<' || hole[len(hole)-1] != '>' {
		return Signature{}, fmt.Errorf("%w: contents is not a hex string", ErrMalformedSignature)
	}
	hexDigits := stripSpace(hole[1 : len(hole)-1])
	if len(hexDigits)%2 == 1 {
		hexDigits = append(hexDigits, '0')
	}
	raw := make([]byte, hex.DecodedLen(len(hexDigits)))
	if _, err := hex.Decode(raw, hexDigits); err != nil {
		return Signature{}, fmt.Errorf("%w: contents: %v", ErrMalformedSignature, err)
	}

	signed := make([]byte, 0, len1+len2)
	signed = append(signed, doc[start1:start1+len1]...)
	signed = append(signed, doc[start2:start2+len2]...)

	return Signature{
		ByteRange:           br,
		Contents:            trimPadding(raw),
		SignedData:          signed,
		CoversWholeDocument: start1 == 0 && start2+len2 == size,
	}, nil
}

// trimPadding drops the zero padding that fills the reserved /Contents space.
// The CMS object may use BER indefinite lengths, whose end-of-contents
// markers are zero bytes too, so the object end is found by walking it.
func trimPadding(raw []byte) []byte {
	if n, ok := berObjectLen(raw, 0); ok {
		return raw[:n]
	}
	return bytes.TrimRight(raw, "\x00")
}

// maxBERDepth bounds nesting of indefinite-length objects.
const maxBERDepth = 64

// berObjectLen returns the encoded length of the BER object at the start of b.
func berObjectLen(b []byte, depth int) (int, bool) {
	if depth > maxBERDepth || len(b) < 2 {
		return 0, false
	}
	i := 1
	if b[0]&0x1f == 0x1f {
		for {
			if i >= len(b) {
				return 0, false
			}
			c := b[i]
			i++
			if c&0x80 == 0 {
				break
			}
		}
	}
	if i >= len(b) {
		return 0, false
	}
	l := b[i]
	i++

	switch {
	case l == 0x80:
		if b[0]&0x20 == 0 {
			return 0, false
		}
		for {
			if i+1 < len(b) && b[i] == 0 && b[i+1] == 0 {
				return i + 2, true
			}
			n, ok := berObjectLen(b[i:], depth+1)
			if !ok {
				return 0, false
			}
			i += n
		}
	case l&0x80 == 0:
		n := int(l)
		if i+n > len(b) {
			return 0, false
		}
		return i + n, true
	default:
		k := int(l & 0x7f)
		if k > 4 || i+k > len(b) {
			return 0, false
		}
		n := 0
		for _, c := range b[i : i+k] {
			n = n<<8 | int(c)
		}
		i += k
		if n > len(b)-i {
			return 0, false
		}
		return i + n, true
	}
}

func stripSpace(b []byte) []byte {
	out := make([]byte, 0, len(b))
	for _, c := range b {
		switch c {
		case ' ', '\t', '\r', '\n', '\f':
		default:
			out = append(out, c)
		}
	}
	return out
}
