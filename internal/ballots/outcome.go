package ballots

// Rejection is a gate failure. Gates return it alongside, never instead of, a
// fatal error.
type Rejection struct {
	Reason  Reason
	Message string
	// Fingerprint and IdentityHash are set when the failing gate knew them.
	Fingerprint  string
	IdentityHash string
	// Candidates lists signer names seen when no signer was trusted.
	Candidates []string
}

func reject(reason Reason, message string) *Rejection {
	return &Rejection{Reason: reason, Message: message}
}

// Outcome is the result of a pipeline call. Accepted outcomes never carry a
// Reason; rejected ones always do.
type Outcome struct {
	Accepted bool
	Reason   Reason
	Message  string
	// Stage is the last stage reached, or StageRejected.
	Stage        Stage
	FailedAfter  Stage
	Fingerprint  string
	IdentityHash string
	Choice       string
	SignerName   string
	Superseded   bool
	Candidates   []string
}

func accepted(stage Stage, message string, sub Submission) Outcome {
	return Outcome{
		Accepted:     true,
		Message:      message,
		Stage:        stage,
		Fingerprint:  sub.Fingerprint,
		IdentityHash: sub.IdentityHash,
		Choice:       sub.Choice,
		SignerName:   sub.SignerName,
		Superseded:   sub.Supersede,
	}
}

func rejected(after Stage, rej *Rejection, sub Submission) Outcome {
	out := Outcome{
		Reason:       rej.Reason,
		Message:      rej.Message,
		Stage:        StageRejected,
		FailedAfter:  after,
		Fingerprint:  sub.Fingerprint,
		IdentityHash: sub.IdentityHash,
		SignerName:   sub.SignerName,
		Candidates:   rej.Candidates,
	}
	if rej.Fingerprint != "" {
		out.Fingerprint = rej.Fingerprint
	}
	if rej.IdentityHash != "" {
		out.IdentityHash = rej.IdentityHash
	}
	return out
}
