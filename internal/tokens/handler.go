package tokens

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"ballot-backend/internal/shared/server/middleware"
	"ballot-backend/internal/shared/server/respond"
)

const (
	instructionsLink = "https://docs.gov.gr"
	templatePrefix   = "I, the undersigned, cast my valid vote for [CHOICE] in the Community Poll. Security Token: "
)

// Handler serves poll token issuance and voting instructions.
type Handler struct {
	Issuer *Issuer
}

func NewHandler(issuer *Issuer) *Handler {
	return &Handler{Issuer: issuer}
}

// RegisterRoutes attaches token routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/token", h.issue)
	rg.GET("/instructions", h.instructions)
}

type tokenRequest struct {
	PollID string `json:"poll_id"`
}

type tokenResponse struct {
	PollID    string    `json:"poll_id"`
	PollToken string    `json:"poll_token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type instructionsResponse struct {
	Link         string `json:"link"`
	TemplateText string `json:"template_text"`
	PollToken    string `json:"poll_token"`
}

func (h *Handler) issue(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid JSON body", nil)
		return
	}
	c.Set(middleware.PollIDKey, strings.TrimSpace(req.PollID))

	token, err := h.Issuer.Issue(c.Request.Context(), req.PollID)
	if err != nil {
		respond.Platform(c, err)
		return
	}
	respond.OK(c, tokenResponse{
		PollID:    token.PollID,
		PollToken: token.Value,
		ExpiresAt: token.ExpiresAt,
	})
}

func (h *Handler) instructions(c *gin.Context) {
	pollID := strings.TrimSpace(c.Query("poll_id"))
	pollToken := strings.TrimSpace(c.Query("poll_token"))
	if pollID == "" || pollToken == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "poll_id and poll_token are required", nil)
		return
	}
	c.Set(middleware.PollIDKey, pollID)
	respond.OK(c, instructionsResponse{
		Link:         instructionsLink,
		TemplateText: TemplateText(pollToken),
		PollToken:    pollToken,
	})
}

// TemplateText is the declaration text a voter pastes into the gov.gr form.
func TemplateText(pollToken string) string {
	return templatePrefix + pollToken
}
