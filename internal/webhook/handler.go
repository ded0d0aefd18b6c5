package webhook

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// SignatureHeader carries the provider's hex HMAC-SHA256 signature.
const SignatureHeader = "hash-tilopay"

// Handler serves the payment provider's webhook endpoint.
type Handler struct {
	verifier   *Verifier
	dispatcher *Dispatcher
}

// NewHandler constructs a Handler.
func NewHandler(verifier *Verifier, dispatcher *Dispatcher) *Handler {
	return &Handler{verifier: verifier, dispatcher: dispatcher}
}

// Challenge answers the provider's GET handshake by echoing the challenge
// query parameter verbatim.
func (h *Handler) Challenge(c *gin.Context) {
	c.String(http.StatusOK, c.Query("challenge"))
}

// Receive verifies and dispatches a POSTed event. Signature failures are
// terminal. Handled and unhandled-but-acknowledged events both answer 200
// so the provider stops retrying; only transient store failures answer
// non-200 to request a retry of that specific delivery.
func (h *Handler) Receive(c *gin.Context) {
	rawBody, errRead := io.ReadAll(c.Request.Body)
	if errRead != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "read body failed"})
		return
	}

	if !h.verifier.Verify(rawBody, c.GetHeader(SignatureHeader)) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": ErrSignatureInvalid.Error()})
		return
	}

	var event Event
	if errUnmarshal := json.Unmarshal(rawBody, &event); errUnmarshal != nil {
		// Signed but unparseable: acknowledge so the provider does not
		// retry a payload that will never parse.
		log.WithError(errUnmarshal).Warn("webhook: unparseable event body")
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	if errDispatch := h.dispatcher.Dispatch(c.Request.Context(), event); errDispatch != nil {
		log.WithError(errDispatch).WithField("event_type", event.Type).Error("webhook: dispatch failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "event processing failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}
