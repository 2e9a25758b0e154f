package ballots

import "time"

// MaxChoiceLength bounds an accepted choice, counted in Unicode code points.
const MaxChoiceLength = 200

// Vote is a persisted, accepted vote. It never holds the raw identity secret.
type Vote struct {
	ID        string
	PollID    string
	VoterHash string
	FileHash  string
	Choice    string
	CreatedAt time.Time
}

// Tally counts accepted votes per choice for one poll.
type Tally struct {
	PollID  string
	Total   int
	Choices map[string]int
}

// Submission carries the values derived from one document while it moves
// through the pipeline. It lives for a single call.
type Submission struct {
	PollID       string
	Token        string
	Fingerprint  string
	Text         string
	SignerName   string
	IdentityHash string
	Choice       string
	Supersede    bool
}
