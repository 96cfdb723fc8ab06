package email

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"

	"cravings/common"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Module exposes the lead-relay endpoint. It validates before any
// send; a rejected payload has no side effects.
type Module struct {
	sender Sender
}

func NewModule(sender Sender) *Module {
	return &Module{sender: sender}
}

func (m *Module) RegisterRoutes(router *gin.Engine) {
	router.POST("/api/send-email", m.sendEmail)
}

func (m *Module) sendEmail(c *gin.Context) {
	var lead Lead
	if err := c.ShouldBindJSON(&lead); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	lead.Name = strings.TrimSpace(lead.Name)
	lead.Email = strings.TrimSpace(lead.Email)
	lead.Phone = strings.TrimSpace(lead.Phone)
	lead.Description = strings.TrimSpace(lead.Description)

	if lead.Name == "" || lead.Email == "" || lead.Phone == "" || lead.Description == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "all fields are required"})
		return
	}
	if !emailPattern.MatchString(lead.Email) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid email address"})
		return
	}

	if err := m.sender.SendInquiry(lead); err != nil {
		common.Log.Error().Err(err).Msg("error relaying inquiry email")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to send message"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Thank you! We received your inquiry and will get back to you shortly.",
	})
}
