package ballots

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	perrors "github.com/jmgilman/go/errors"

	"ballot-backend/internal/shared/metrics"
	"ballot-backend/internal/shared/telemetry"
)

// TextExtractor turns a document into plain text. Empty text is not an error.
type TextExtractor interface {
	ExtractText(ctx context.Context, doc []byte) (string, error)
}

// Pipeline runs the validation gates in order and records accepted votes.
// It holds no per-call state and is safe for concurrent use.
type Pipeline struct {
	policy       Policy
	signers      SignerVerifier
	fingerprints FingerprintGuard
	binder       ContextBinder
	identities   IdentityGuard
	extractor    TextExtractor
	store        Store

	now   func() time.Time
	newID func() string
}

// NewPipeline wires the gates around the given collaborators.
func NewPipeline(policy Policy, validator SignatureValidator, extractor TextExtractor, store Store) *Pipeline {
	return &Pipeline{
		policy:       policy,
		signers:      SignerVerifier{Validator: validator, Signers: policy.Signers},
		fingerprints: FingerprintGuard{Store: store},
		binder:       ContextBinder{SkipTokenCheck: policy.SkipTokenCheck},
		identities:   IdentityGuard{Store: store, Salt: policy.Salt, AllowUpdate: policy.AllowUpdate},
		extractor:    extractor,
		store:        store,
		now:          time.Now,
		newID:        uuid.NewString,
	}
}

// Policy returns the policy the pipeline was built with.
func (p *Pipeline) Policy() Policy {
	return p.policy
}

// Validate decides whether doc is an acceptable vote in pollID and, if so,
// records it. Rejections are reported in the Outcome; the error is reserved
// for invalid arguments, cancellation before commit, and store failures.
func (p *Pipeline) Validate(ctx context.Context, doc []byte, pollID, token string) (Outcome, error) {
	start := time.Now()
	metrics.IncValidation()
	defer func() {
		metrics.ObserveValidationDurationMs(metrics.Since(start))
	}()

	if strings.TrimSpace(pollID) == "" {
		return Outcome{}, perrors.New(perrors.CodeInvalidInput, "poll_id is required")
	}
	sub := Submission{PollID: pollID, Token: token}

	if err := ctx.Err(); err != nil {
		return p.fail(sub, abandoned(err))
	}
	name, rej := p.signers.Verify(doc)
	if rej != nil {
		return p.reject(StageStart, rej, sub), nil
	}
	sub.SignerName = name

	sub.Fingerprint = Fingerprint(doc)
	rej, err := p.fingerprints.Check(ctx, sub.Fingerprint)
	if err != nil {
		return p.fail(sub, storeFailure(err, "look up vote by fingerprint"))
	}
	if rej != nil {
		return p.reject(StageSignatureOK, rej, sub), nil
	}

	text, err := p.extractText(ctx, doc)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return p.fail(sub, abandoned(ctxErr))
		}
		return p.reject(StageFingerprintOK, reject(ReasonPDFReadError, "Failed to extract text from PDF: "+err.Error()), sub), nil
	}
	sub.Text = text

	if rej := p.binder.Check(text, token); rej != nil {
		return p.reject(StageTextExtracted, rej, sub), nil
	}

	if err := ctx.Err(); err != nil {
		return p.fail(sub, abandoned(err))
	}
	decision, rej, err := p.identities.Check(ctx, text, pollID)
	if err != nil {
		return p.fail(sub, storeFailure(err, "look up vote by identity"))
	}
	if rej != nil {
		return p.reject(StageTokenOK, rej, sub), nil
	}
	sub.IdentityHash = decision.Hash
	sub.Supersede = decision.Supersede

	choice, ok := ExtractChoice(text)
	if !ok {
		return p.reject(StageIdentityOK, reject(ReasonChoiceNotFound, "Could not find vote choice in declaration. Expected format: 'vote for [OPTION]'"), sub), nil
	}
	sub.Choice = choice

	// Last point at which the caller may abandon the call.
	if err := ctx.Err(); err != nil {
		return p.fail(sub, abandoned(err))
	}
	vote := Vote{
		ID:        p.newID(),
		PollID:    pollID,
		VoterHash: sub.IdentityHash,
		FileHash:  sub.Fingerprint,
		Choice:    sub.Choice,
		CreatedAt: p.now().UTC(),
	}
	err = p.store.Record(context.WithoutCancel(ctx), vote, sub.Supersede)
	switch {
	case errors.Is(err, ErrDuplicateFingerprint):
		rej := reject(ReasonDuplicateFile, "This declaration has already been submitted")
		rej.Fingerprint = sub.Fingerprint
		return p.reject(StageChoiceExtracted, rej, sub), nil
	case errors.Is(err, ErrDuplicateIdentity):
		rej := reject(ReasonAlreadyVoted, "You have already voted in this poll")
		rej.IdentityHash = sub.IdentityHash
		return p.reject(StageChoiceExtracted, rej, sub), nil
	case err != nil:
		return p.fail(sub, storeFailure(err, "record vote"))
	}

	metrics.IncAccepted(sub.Supersede)
	telemetry.Info("ballot.accepted", map[string]any{
		"poll_id":     pollID,
		"fingerprint": shortHash(sub.Fingerprint),
		"signer":      sub.SignerName,
		"superseded":  sub.Supersede,
		"stage":       string(StageCommitted),
	})
	return accepted(StageCommitted, "Vote successfully recorded", sub), nil
}

// ValidateIdentity checks the signature and resolves the identity hash
// without touching any poll or the store.
func (p *Pipeline) ValidateIdentity(ctx context.Context, doc []byte) (Outcome, error) {
	metrics.IncIdentityCheck()
	var sub Submission

	if err := ctx.Err(); err != nil {
		return p.fail(sub, abandoned(err))
	}
	name, rej := p.signers.Verify(doc)
	if rej != nil {
		return p.reject(StageStart, rej, sub), nil
	}
	sub.SignerName = name

	text, err := p.extractText(ctx, doc)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return p.fail(sub, abandoned(ctxErr))
		}
		return p.reject(StageSignatureOK, reject(ReasonPDFReadError, "Failed to extract text from PDF: "+err.Error()), sub), nil
	}

	secret, ok := ExtractIdentitySecret(text)
	if !ok {
		return p.reject(StageTextExtracted, reject(ReasonAFMNotFound, "Could not find AFM/Tax ID in the declaration"), sub), nil
	}
	sub.IdentityHash = HashIdentity(secret, p.policy.Salt)
	return accepted(StageIdentityOK, "Identity verified successfully", sub), nil
}

func (p *Pipeline) extractText(ctx context.Context, doc []byte) (text string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			text = ""
			err = fmt.Errorf("text extraction panicked: %v", rec)
		}
	}()
	return p.extractor.ExtractText(ctx, doc)
}

func (p *Pipeline) reject(after Stage, rej *Rejection, sub Submission) Outcome {
	metrics.IncRejected(string(rej.Reason))
	telemetry.Info("ballot.rejected", map[string]any{
		"poll_id":     sub.PollID,
		"reason":      string(rej.Reason),
		"class":       string(rej.Reason.Class()),
		"stage":       string(after),
		"fingerprint": shortHash(sub.Fingerprint),
	})
	return rejected(after, rej, sub)
}

func (p *Pipeline) fail(sub Submission, err error) (Outcome, error) {
	metrics.IncValidationError()
	telemetry.Error("ballot.error", map[string]any{
		"poll_id":     sub.PollID,
		"fingerprint": shortHash(sub.Fingerprint),
		"code":        string(perrors.GetCode(err)),
		"error":       err.Error(),
	})
	return Outcome{}, err
}

func storeFailure(err error, op string) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return abandoned(err)
	}
	return perrors.Wrap(err, perrors.CodeDatabase, op)
}

func abandoned(err error) error {
	return perrors.Wrap(err, perrors.CodeTimeout, "validation abandoned before commit")
}

// shortHash keeps log lines correlatable without printing whole digests.
func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
