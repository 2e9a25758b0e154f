package ballots

import (
	"context"
	"errors"
	"regexp"

	"ballot-backend/internal/shared/util"
)

type identityMatcher struct {
	label string
	re    *regexp.Regexp
}

// Each pattern captures exactly nine ASCII digits that are not followed by another digit.
// Labels carry no left boundary: extracted PDF text often glues a label to the
// preceding line.
const nineDigits = `[:\s]*(\d{9})(?:\D|$)`

var identityMatchers = []identityMatcher{
	{label: "AFM", re: regexp.MustCompile(`(?i)AFM` + nineDigits)},
	{label: "ΑΦΜ", re: regexp.MustCompile(`(?i)ΑΦΜ` + nineDigits)},
	{label: "Α.Φ.Μ.", re: regexp.MustCompile(`(?i)Α\.?\s?Φ\.?\s?Μ\.?` + nineDigits)},
	{label: "A.F.M.", re: regexp.MustCompile(`(?i)A\.?\s?F\.?\s?M\.?` + nineDigits)},
	{label: "Tax ID", re: regexp.MustCompile(`(?i)Tax\s*ID` + nineDigits)},
}

// ExtractIdentitySecret finds the tax identifier in text. The first label
// variant that matches wins.
func ExtractIdentitySecret(text string) (string, bool) {
	for _, m := range identityMatchers {
		if sub := m.re.FindStringSubmatch(text); sub != nil {
			return sub[1], true
		}
	}
	return "", false
}

// HashIdentity derives the stored identity hash: hex SHA-256 of secret followed by salt.
func HashIdentity(secret, salt string) string {
	return util.SaltedSHA256Hex(secret, salt)
}

// IdentityDecision is what IdentityGuard allows.
type IdentityDecision struct {
	Hash string
	// Supersede asks the commit to replace the prior vote for this identity.
	Supersede bool
}

// IdentityGuard enforces one vote per identity and poll.
type IdentityGuard struct {
	Store       Store
	Salt        string
	AllowUpdate bool
}

// Check resolves the identity in text and looks for a prior vote in pollID.
// It never writes; a supersede decision is carried out at commit.
func (g IdentityGuard) Check(ctx context.Context, text, pollID string) (IdentityDecision, *Rejection, error) {
	secret, ok := ExtractIdentitySecret(text)
	if !ok {
		return IdentityDecision{}, reject(ReasonAFMNotFound, "Could not find AFM/Tax ID in the declaration"), nil
	}
	hash := HashIdentity(secret, g.Salt)

	_, err := g.Store.FindByIdentity(ctx, pollID, hash)
	switch {
	case errors.Is(err, ErrNotFound):
		return IdentityDecision{Hash: hash}, nil, nil
	case err != nil:
		return IdentityDecision{}, nil, err
	}
	if !g.AllowUpdate {
		rej := reject(ReasonAlreadyVoted, "You have already voted in this poll")
		rej.IdentityHash = hash
		return IdentityDecision{}, rej, nil
	}
	return IdentityDecision{Hash: hash, Supersede: true}, nil, nil
}
