package ballots

// ValidationResponse is the body of /validate and /verify-identity, for
// success and, as error details, for rejections.
type ValidationResponse struct {
	Success         bool    `json:"success"`
	Message         string  `json:"message"`
	RejectionReason *string `json:"rejection_reason"`
	VoteChoice      *string `json:"vote_choice"`
	SignerName      *string `json:"signer_name"`
	VoterHash       *string `json:"voter_hash"`
}

// StatsResponse is the body of /stats.
type StatsResponse struct {
	PollID     string         `json:"poll_id"`
	TotalVotes int            `json:"total_votes"`
	Choices    map[string]int `json:"choices"`
}

func toValidationResponse(out Outcome) ValidationResponse {
	resp := ValidationResponse{
		Success:    out.Accepted,
		Message:    out.Message,
		VoteChoice: optional(out.Choice),
		SignerName: optional(out.SignerName),
	}
	if out.Accepted {
		resp.VoterHash = optional(out.IdentityHash)
	} else {
		resp.RejectionReason = optional(string(out.Reason))
	}
	return resp
}

func toStatsResponse(t Tally) StatsResponse {
	choices := t.Choices
	if choices == nil {
		choices = map[string]int{}
	}
	return StatsResponse{PollID: t.PollID, TotalVotes: t.Total, Choices: choices}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
