package tickhttp

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"tickagent/internal/logger"
	"tickagent/internal/metrics"
	"tickagent/internal/tick"

	"github.com/gin-gonic/gin"
)

const maxTickBody = 4 << 20

type handlers struct {
	processor TickProcessor
	snapshot  SnapshotReader
	history   HistoryReader
	metrics   *metrics.Metrics
}

type tickResponse struct {
	Outcome string `json:"result"`
	tick.Result
}

func (h *handlers) root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"result": "success", "message": "Strategy API Server running."})
}

func (h *handlers) healthcheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"result": "success", "message": "Ready to Trade"})
}

func isJSONContentType(ct string) bool {
	ct = strings.ToLower(strings.TrimSpace(ct))
	return ct == "application/json" || (strings.HasPrefix(ct, "application/") && strings.HasSuffix(ct, "+json"))
}

func (h *handlers) tick(c *gin.Context) {
	tradeID := c.Param("trade_id")
	reqID := c.GetString(requestIDKey)

	if !isJSONContentType(c.ContentType()) {
		h.reject(c, "Invalid payload: Content-Type must be application/json")
		return
	}
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxTickBody))
	trimmed := bytes.TrimSpace(body)
	if err != nil || !json.Valid(trimmed) || bytes.Equal(trimmed, []byte("null")) {
		h.reject(c, "Invalid payload: malformed JSON")
		return
	}
	if err := tick.Validate(trimmed); err != nil {
		var vErr *tick.ValidationError
		msg := err.Error()
		if errors.As(err, &vErr) {
			msg = vErr.Msg
		}
		h.reject(c, msg)
		return
	}

	payload, err := tick.Decode(trimmed)
	if err != nil {
		h.metrics.ObserveTick(metrics.OutcomeError, 0)
		logger.Errorf("tick %s req=%s: payload decode failed: %v", tradeID, reqID, err)
		fail(c, http.StatusInternalServerError, "Processing error: "+err.Error())
		return
	}

	start := time.Now()
	res, err := h.processor.Process(c.Request.Context(), payload, tradeID)
	if err != nil {
		logger.Errorf("tick %s req=%s: processing failed after %s: %v", tradeID, reqID, time.Since(start), err)
		fail(c, http.StatusInternalServerError, "Processing error: "+err.Error())
		return
	}
	if res.Decisions == nil {
		res.Decisions = []tick.Trade{}
	}
	c.JSON(http.StatusOK, tickResponse{Outcome: "success", Result: res})
}

func (h *handlers) reject(c *gin.Context, msg string) {
	h.metrics.ObserveTick(metrics.OutcomeInvalid, 0)
	logger.Infof("tick %s rejected: %s", c.Param("trade_id"), msg)
	fail(c, http.StatusBadRequest, msg)
}
