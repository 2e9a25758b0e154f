package ballots

import "strings"

// ContextBinder ties a document to the poll session whose token it quotes.
type ContextBinder struct {
	SkipTokenCheck bool
}

// Check requires a non-blank token that appears verbatim in text.
func (b ContextBinder) Check(text, token string) *Rejection {
	if strings.TrimSpace(token) == "" {
		return reject(ReasonInvalidToken, "Poll token is required")
	}
	if b.SkipTokenCheck {
		return nil
	}
	if !strings.Contains(text, token) {
		return reject(ReasonTokenNotFound, "Security token not found in declaration. Please generate a new declaration with the correct token.")
	}
	return nil
}
