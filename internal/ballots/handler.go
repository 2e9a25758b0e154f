package ballots

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	perrors "github.com/jmgilman/go/errors"

	"ballot-backend/internal/shared/metrics"
	"ballot-backend/internal/shared/server/middleware"
	"ballot-backend/internal/shared/server/respond"
	"ballot-backend/internal/shared/util"
)

// multipartOverhead is the slack allowed on top of the file size for form
// boundaries and the text fields.
const multipartOverhead = 64 << 10

// TokenLookup resolves an issued poll token to its poll. ok is false for
// unknown or expired tokens.
type TokenLookup interface {
	PollFor(ctx context.Context, token string) (pollID string, ok bool, err error)
}

// Handler wires HTTP handlers to the validation pipeline.
type Handler struct {
	Pipeline       *Pipeline
	Store          Store
	Tokens         TokenLookup
	MaxUploadBytes int64
}

// NewHandler constructs a Handler. tokens may be nil, in which case tokens
// are only checked against the declaration text.
func NewHandler(pipeline *Pipeline, store Store, tokens TokenLookup, maxUploadBytes int64) *Handler {
	return &Handler{
		Pipeline:       pipeline,
		Store:          store,
		Tokens:         tokens,
		MaxUploadBytes: maxUploadBytes,
	}
}

// RegisterRoutes attaches ballot routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	limit := middleware.BodyLimit(h.MaxUploadBytes + multipartOverhead)
	rg.POST("/validate", limit, h.validate)
	rg.POST("/verify-identity", limit, h.verifyIdentity)
	rg.GET("/stats", h.stats)
}

func (h *Handler) validate(c *gin.Context) {
	doc, ok := h.readUpload(c)
	if !ok {
		return
	}
	pollID := strings.TrimSpace(c.PostForm("poll_id"))
	token := strings.TrimSpace(c.PostForm("poll_token"))
	if pollID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "poll_id is required", nil)
		return
	}
	c.Set(middleware.PollIDKey, pollID)

	if rej, err := h.checkIssuedToken(c, pollID, token); err != nil {
		respond.Platform(c, perrors.Wrap(err, perrors.CodeUnavailable, "look up poll token"))
		return
	} else if rej != nil {
		metrics.IncRejected(string(rej.Reason))
		h.writeOutcome(c, rejected(StageStart, rej, Submission{PollID: pollID}))
		return
	}

	out, err := h.Pipeline.Validate(c.Request.Context(), doc, pollID, token)
	if err != nil {
		respond.Platform(c, err)
		return
	}
	h.writeOutcome(c, out)
}

func (h *Handler) verifyIdentity(c *gin.Context) {
	doc, ok := h.readUpload(c)
	if !ok {
		return
	}
	out, err := h.Pipeline.ValidateIdentity(c.Request.Context(), doc)
	if err != nil {
		respond.Platform(c, err)
		return
	}
	// Identity checks never conflict, so any rejection is a plain 400.
	if !out.Accepted {
		c.Set(middleware.ReasonKey, string(out.Reason))
		c.Set(middleware.StageKey, string(out.FailedAfter))
		respond.Error(c, http.StatusBadRequest, string(out.Reason), out.Message, toValidationResponse(out))
		return
	}
	h.writeOutcome(c, out)
}

func (h *Handler) stats(c *gin.Context) {
	pollID := strings.TrimSpace(c.Query("poll_id"))
	if pollID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "poll_id is required", nil)
		return
	}
	c.Set(middleware.PollIDKey, pollID)
	tally, err := h.Store.Tally(c.Request.Context(), pollID)
	if err != nil {
		respond.Platform(c, perrors.Wrap(err, perrors.CodeDatabase, "tally votes"))
		return
	}
	respond.OK(c, toStatsResponse(tally))
}

func (h *Handler) writeOutcome(c *gin.Context, out Outcome) {
	if out.Accepted {
		c.Set(middleware.StageKey, string(out.Stage))
		respond.OK(c, toValidationResponse(out))
		return
	}
	c.Set(middleware.ReasonKey, string(out.Reason))
	c.Set(middleware.StageKey, string(out.FailedAfter))
	respond.Error(c, statusForReason(out.Reason), string(out.Reason), out.Message, toValidationResponse(out))
}

func (h *Handler) checkIssuedToken(c *gin.Context, pollID, token string) (*Rejection, error) {
	// A missing token is reported by the pipeline itself.
	if h.Tokens == nil || token == "" {
		return nil, nil
	}
	issuedFor, ok, err := h.Tokens.PollFor(c.Request.Context(), token)
	if err != nil {
		return nil, err
	}
	if !ok {
		return reject(ReasonInvalidToken, "Poll token is unknown or has expired"), nil
	}
	if issuedFor != pollID {
		return reject(ReasonInvalidToken, "Poll token was not issued for this poll"), nil
	}
	return nil, nil
}

func (h *Handler) readUpload(c *gin.Context) ([]byte, bool) {
	fh, err := c.FormFile("file")
	if err != nil {
		if isTooLarge(err) {
			respond.Error(c, http.StatusBadRequest, "validation_error", h.sizeMessage(), nil)
			return nil, false
		}
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
		return nil, false
	}
	name, err := util.SanitizeFileName(fh.Filename)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid file name", nil)
		return nil, false
	}
	if !util.HasExt(name, ".pdf") {
		respond.Error(c, http.StatusBadRequest, "validation_error", "File must be a PDF document", nil)
		return nil, false
	}
	c.Set(middleware.FileNameKey, name)
	if h.MaxUploadBytes > 0 && fh.Size > h.MaxUploadBytes {
		respond.Error(c, http.StatusBadRequest, "validation_error", h.sizeMessage(), nil)
		return nil, false
	}

	f, err := fh.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "file could not be read", nil)
		return nil, false
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "file could not be read", nil)
		return nil, false
	}
	return data, true
}

func (h *Handler) sizeMessage() string {
	return fmt.Sprintf("File size exceeds %dMB limit", h.MaxUploadBytes>>20)
}

func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return true
	}
	return strings.Contains(err.Error(), "request body too large")
}

func statusForReason(reason Reason) int {
	switch reason.Class() {
	case ClassTrust:
		return http.StatusForbidden
	case ClassConflict:
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}
