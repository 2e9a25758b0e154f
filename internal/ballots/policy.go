package ballots

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

// Policy is the immutable configuration a Pipeline runs with.
type Policy struct {
	Signers SignerAllowList
	// Salt is mixed into identity hashes. It is never logged.
	Salt string
	// AllowUpdate lets a later accepted vote replace an earlier one for the
	// same poll and identity.
	AllowUpdate bool
	// SkipTokenCheck disables the token substring check. Production configs
	// refuse to enable it.
	SkipTokenCheck bool
}

// String omits the salt so a Policy can be logged safely.
func (p Policy) String() string {
	return fmt.Sprintf("Policy{signers=%d allowUpdate=%t skipTokenCheck=%t}", p.Signers.Len(), p.AllowUpdate, p.SkipTokenCheck)
}

// SignerAllowList is an ordered set of trusted signer name fragments.
// Fragments match case-insensitively in either direction; entries containing
// glob metacharacters are matched as patterns instead.
type SignerAllowList struct {
	entries []allowEntry
}

type allowEntry struct {
	raw     string
	folded  string
	pattern glob.Glob
}

// NewSignerAllowList compiles entries, skipping blanks.
func NewSignerAllowList(entries []string) (SignerAllowList, error) {
	var list SignerAllowList
	for _, raw := range entries {
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			continue
		}
		entry := allowEntry{raw: trimmed, folded: strings.ToLower(trimmed)}
		if strings.ContainsAny(trimmed, "*?[{") {
			g, err := glob.Compile(entry.folded)
			if err != nil {
				return SignerAllowList{}, fmt.Errorf("%w: signer pattern %q: %v", ErrInvalidInput, trimmed, err)
			}
			entry.pattern = g
		}
		list.entries = append(list.entries, entry)
	}
	return list, nil
}

// Len returns the number of entries.
func (l SignerAllowList) Len() int {
	return len(l.entries)
}

// Entries returns the configured entries in order.
func (l SignerAllowList) Entries() []string {
	out := make([]string, len(l.entries))
	for i, e := range l.entries {
		out[i] = e.raw
	}
	return out
}

// Match returns the first entry trusting name.
func (l SignerAllowList) Match(name string) (string, bool) {
	folded := strings.ToLower(strings.TrimSpace(name))
	if folded == "" {
		return "", false
	}
	for _, e := range l.entries {
		if e.pattern != nil {
			if e.pattern.Match(folded) {
				return e.raw, true
			}
			continue
		}
		if strings.Contains(folded, e.folded) || strings.Contains(e.folded, folded) {
			return e.raw, true
		}
	}
	return "", false
}
