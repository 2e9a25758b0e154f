package ballots

// Reason is the closed set of rejection causes. Values match the public API.
type Reason string

const (
	ReasonNoSignature      Reason = "no_signature"
	ReasonInvalidSignature Reason = "invalid_signature"
	ReasonUnknownSigner    Reason = "unknown_signer"
	ReasonDuplicateFile    Reason = "duplicate_file"
	ReasonAlreadyVoted     Reason = "already_voted"
	ReasonInvalidToken     Reason = "invalid_token"
	ReasonTokenNotFound    Reason = "token_not_found"
	ReasonAFMNotFound      Reason = "afm_not_found"
	ReasonChoiceNotFound   Reason = "vote_choice_not_found"
	ReasonPDFReadError     Reason = "pdf_read_error"
)

// Class groups reasons by how a caller should react.
type Class string

const (
	// ClassTrust failures are security relevant and never retryable.
	ClassTrust Class = "trust"
	// ClassConflict failures are expected under misuse and never retryable.
	ClassConflict Class = "conflict"
	// ClassMalformed failures may succeed with a corrected document.
	ClassMalformed Class = "malformed"
)

// Class returns the group r belongs to.
func (r Reason) Class() Class {
	switch r {
	case ReasonNoSignature, ReasonInvalidSignature, ReasonUnknownSigner:
		return ClassTrust
	case ReasonDuplicateFile, ReasonAlreadyVoted:
		return ClassConflict
	default:
		return ClassMalformed
	}
}

// Stage is the last pipeline state a submission reached.
type Stage string

const (
	StageStart           Stage = "START"
	StageSignatureOK     Stage = "SIGNATURE_OK"
	StageFingerprintOK   Stage = "FINGERPRINT_OK"
	StageTextExtracted   Stage = "TEXT_EXTRACTED"
	StageTokenOK         Stage = "TOKEN_OK"
	StageIdentityOK      Stage = "IDENTITY_OK"
	StageChoiceExtracted Stage = "CHOICE_EXTRACTED"
	StageCommitted       Stage = "COMMITTED"
	StageRejected        Stage = "REJECTED"
)
