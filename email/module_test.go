package email

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	sent []Lead
	err  error
}

func (f *fakeSender) SendInquiry(lead Lead) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, lead)
	return nil
}

func setupTestRouter(sender Sender) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewModule(sender).RegisterRoutes(router)
	return router
}

func postInquiry(router *gin.Engine, payload any) *httptest.ResponseRecorder {
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(http.MethodPost, "/api/send-email", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func validLead() Lead {
	return Lead{
		Name:        "Dana Fields",
		Email:       "dana@example.com",
		Phone:       "555-0134",
		Description: "Corporate lunch for 40 people on the 12th.",
	}
}

func TestSendEmail(t *testing.T) {
	sender := &fakeSender{}
	router := setupTestRouter(sender)

	w := postInquiry(router, validLead())

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, true, response["success"])
	assert.Contains(t, response["message"], "Thank you")

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "dana@example.com", sender.sent[0].Email)
}

func TestSendEmailTrimsWhitespace(t *testing.T) {
	sender := &fakeSender{}
	router := setupTestRouter(sender)

	lead := validLead()
	lead.Name = "  Dana Fields  "
	lead.Email = " dana@example.com "

	w := postInquiry(router, lead)

	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "Dana Fields", sender.sent[0].Name)
	assert.Equal(t, "dana@example.com", sender.sent[0].Email)
}

func TestSendEmailRequiresAllFields(t *testing.T) {
	fields := []func(*Lead){
		func(l *Lead) { l.Name = "" },
		func(l *Lead) { l.Email = "  " },
		func(l *Lead) { l.Phone = "" },
		func(l *Lead) { l.Description = "" },
	}

	for _, blank := range fields {
		sender := &fakeSender{}
		router := setupTestRouter(sender)

		lead := validLead()
		blank(&lead)
		w := postInquiry(router, lead)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "all fields are required")
		assert.Empty(t, sender.sent)
	}
}

func TestSendEmailRejectsBadAddress(t *testing.T) {
	for _, address := range []string{"not-an-email", "missing@tld", "two@@example.com", "spaces in@example.com"} {
		sender := &fakeSender{}
		router := setupTestRouter(sender)

		lead := validLead()
		lead.Email = address
		w := postInquiry(router, lead)

		assert.Equal(t, http.StatusBadRequest, w.Code, address)
		assert.Contains(t, w.Body.String(), "invalid email address")
		assert.Empty(t, sender.sent)
	}
}

func TestSendEmailRejectsMalformedBody(t *testing.T) {
	router := setupTestRouter(&fakeSender{})

	req := httptest.NewRequest(http.MethodPost, "/api/send-email", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSendEmailRelayFailure(t *testing.T) {
	sender := &fakeSender{err: errors.New("smtp unreachable")}
	router := setupTestRouter(sender)

	w := postInquiry(router, validLead())

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "failed to send message")
}
