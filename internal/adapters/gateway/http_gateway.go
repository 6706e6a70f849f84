package gateway

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikey/sms-guard/internal/ports"
	"github.com/mikey/sms-guard/internal/receiver"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// messageRequest is the webhook payload. Either Body or Fragments must be set.
type messageRequest struct {
	Action     string              `json:"action"`
	Sender     string              `json:"sender" binding:"required"`
	Body       string              `json:"body"`
	Fragments  []receiver.Fragment `json:"fragments"`
	ReceivedAt *time.Time          `json:"received_at"`
}

func (m messageRequest) toBatch() receiver.Batch {
	receivedAt := time.Now()
	if m.ReceivedAt != nil {
		receivedAt = *m.ReceivedAt
	}

	batch := receiver.Batch{
		Action:     m.Action,
		Sender:     m.Sender,
		Fragments:  m.Fragments,
		ReceivedAt: receivedAt,
	}
	if batch.Action == "" {
		batch.Action = receiver.ActionSMSReceived
	}
	if len(batch.Fragments) == 0 {
		batch.Fragments = []receiver.Fragment{{Encoding: receiver.EncodingUTF8, Data: []byte(m.Body)}}
	}
	return batch
}

// HTTPGateway accepts messages over a JSON webhook and serves metrics
type HTTPGateway struct {
	receiver   ports.BatchReceiver
	logger     *zap.Logger
	listenAddr string
	engine     *gin.Engine
	server     *http.Server
}

// NewHTTPGateway creates a new HTTP gateway
func NewHTTPGateway(r ports.BatchReceiver, logger *zap.Logger, listenAddr string) *HTTPGateway {
	g := &HTTPGateway{
		receiver:   r,
		logger:     logger.Named("http-gateway"),
		listenAddr: listenAddr,
	}
	g.engine = g.routes()
	return g
}

func (g *HTTPGateway) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.HEAD("/healthz", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.POST("/v1/messages", g.postMessage)

	return r
}

// Handler returns the HTTP handler
func (g *HTTPGateway) Handler() http.Handler {
	return g.engine
}

// Name implements ports.Gateway
func (g *HTTPGateway) Name() string {
	return "http"
}

func (g *HTTPGateway) postMessage(c *gin.Context) {
	var req messageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	batch := req.toBatch()
	logger := g.logger
	g.receiver.Receive(batch, receiver.CompletionFunc(func() {
		logger.Debug("Webhook message finished", zap.String("sender", batch.Sender))
	}))

	// the receiver finishes other actions without triage
	if batch.Action != receiver.ActionSMSReceived {
		c.JSON(http.StatusOK, gin.H{"status": "ignored", "action": batch.Action})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}

// Start starts the HTTP server in the background
func (g *HTTPGateway) Start() error {
	g.server = &http.Server{
		Addr:              g.listenAddr,
		Handler:           g.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.logger.Info("HTTP gateway starting", zap.String("address", g.listenAddr))

	go func() {
		if err := g.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	return nil
}

// Stop gracefully shuts the HTTP server down
func (g *HTTPGateway) Stop() error {
	if g.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return g.server.Shutdown(ctx)
}
