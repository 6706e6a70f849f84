package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/emersion/go-smtp"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mikey/sms-guard/internal/core"
	"github.com/mikey/sms-guard/internal/receiver"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type recordingReceiver struct {
	mu      sync.Mutex
	batches []receiver.Batch
}

func (r *recordingReceiver) Receive(batch receiver.Batch, completion receiver.Completion) {
	r.mu.Lock()
	r.batches = append(r.batches, batch)
	r.mu.Unlock()
	completion.Finish()
}

func (r *recordingReceiver) all() []receiver.Batch {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]receiver.Batch(nil), r.batches...)
}

func TestHTTPGateway_PostMessage(t *testing.T) {
	rec := &recordingReceiver{}
	g := NewHTTPGateway(rec, zap.NewNop(), ":0")

	body := `{"sender":"+905551112233","body":"dinner at 7?"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/messages", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	g.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.JSONEq(t, `{"status":"accepted"}`, w.Body.String())
	batches := rec.all()
	require.Len(t, batches, 1)
	assert.Equal(t, receiver.ActionSMSReceived, batches[0].Action)

	msg, err := receiver.Assemble(batches[0])
	require.NoError(t, err)
	assert.Equal(t, "dinner at 7?", msg.Body)
}

func TestHTTPGateway_Fragments(t *testing.T) {
	rec := &recordingReceiver{}
	g := NewHTTPGateway(rec, zap.NewNop(), ":0")

	payload, _ := json.Marshal(map[string]any{
		"sender": "Mom",
		"fragments": []receiver.Fragment{
			{Seq: 1, Encoding: receiver.EncodingUTF8, Data: []byte("at 7?")},
			{Seq: 0, Encoding: receiver.EncodingUTF8, Data: []byte("dinner ")},
		},
	})
	w := httptest.NewRecorder()
	g.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v1/messages", bytes.NewReader(payload)))

	require.Equal(t, http.StatusAccepted, w.Code)
	msg, err := receiver.Assemble(rec.all()[0])
	require.NoError(t, err)
	assert.Equal(t, "dinner at 7?", msg.Body)
}

func TestHTTPGateway_IgnoredAction(t *testing.T) {
	rec := &recordingReceiver{}
	g := NewHTTPGateway(rec, zap.NewNop(), ":0")

	body := `{"action":"sms_delivered","sender":"+905551112233","body":"delivered"}`
	w := httptest.NewRecorder()
	g.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v1/messages", strings.NewReader(body)))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ignored","action":"sms_delivered"}`, w.Body.String())
	require.Len(t, rec.all(), 1)
	assert.Equal(t, "sms_delivered", rec.all()[0].Action)
}

func TestHTTPGateway_BadRequest(t *testing.T) {
	rec := &recordingReceiver{}
	g := NewHTTPGateway(rec, zap.NewNop(), ":0")

	w := httptest.NewRecorder()
	g.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v1/messages", strings.NewReader(`{"body":"no sender"}`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, rec.all())
}

func TestHTTPGateway_HealthAndMetrics(t *testing.T) {
	g := NewHTTPGateway(&recordingReceiver{}, zap.NewNop(), ":0")

	w := httptest.NewRecorder()
	g.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	g.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestSMTPGateway_ToBatch(t *testing.T) {
	g := NewSMTPGateway(&recordingReceiver{}, zap.NewNop(), ":0")

	raw := "From: bridge@sms.example.com\r\n" +
		"X-SMS-Sender: +905551112233\r\n" +
		"Date: Wed, 01 May 2024 19:00:00 +0000\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"Content-Transfer-Encoding: quoted-printable\r\n" +
		"\r\n" +
		"dinner at 7=3F\r\n"

	batch, err := g.toBatch("bridge@sms.example.com", []byte(raw))
	require.NoError(t, err)

	msg, err := receiver.Assemble(batch)
	require.NoError(t, err)
	assert.Equal(t, "+905551112233", msg.Sender)
	assert.Equal(t, "dinner at 7?", msg.Body)
	assert.Equal(t, time.Date(2024, 5, 1, 19, 0, 0, 0, time.UTC), msg.ReceivedAt.UTC())
}

func TestSMTPGateway_SenderFromEnvelope(t *testing.T) {
	g := NewSMTPGateway(&recordingReceiver{}, zap.NewNop(), ":0")

	raw := "Content-Type: multipart/alternative; boundary=XX\r\n" +
		"\r\n" +
		"--XX\r\n" +
		"Content-Type: text/html\r\n\r\n<p>ignored</p>\r\n" +
		"--XX\r\n" +
		"Content-Type: text/plain\r\n\r\nBahis kazanci\r\n" +
		"--XX--\r\n"

	batch, err := g.toBatch("+905550000000@sms.example.com", []byte(raw))
	require.NoError(t, err)
	msg, err := receiver.Assemble(batch)
	require.NoError(t, err)
	assert.Equal(t, "+905550000000", msg.Sender)
	assert.Equal(t, "Bahis kazanci", msg.Body)
}

func TestSMTPGateway_EndToEnd(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	rec := &recordingReceiver{}
	g := NewSMTPGateway(rec, zap.NewNop(), addr)
	require.NoError(t, g.Start())
	defer g.Stop()

	var c *smtp.Client
	require.Eventually(t, func() bool {
		c, err = smtp.Dial(addr)
		return err == nil
	}, 2*time.Second, 20*time.Millisecond)
	defer c.Close()

	require.NoError(t, c.Hello("localhost"))
	require.NoError(t, c.Mail("+905551112233@sms.example.com", nil))
	require.NoError(t, c.Rcpt("guard@example.com", nil))
	wc, err := c.Data()
	require.NoError(t, err)
	_, err = wc.Write([]byte("Subject: sms\r\n\r\ndinner at 7?\r\n"))
	require.NoError(t, err)
	require.NoError(t, wc.Close())
	require.NoError(t, c.Quit())

	batches := rec.all()
	require.Len(t, batches, 1)
	assert.Equal(t, "+905551112233", batches[0].Sender)
}

type fixedTriager struct {
	decision core.TriageDecision
	got      core.InboundMessage
}

func (f *fixedTriager) Triage(_ context.Context, msg core.InboundMessage) (core.TriageDecision, error) {
	f.got = msg
	return f.decision, nil
}

func TestCLIGateway_ProcessBatch(t *testing.T) {
	d := core.SpamDecision(true)
	d.SpamScore, d.HamScore = 0.91, 0.05
	triager := &fixedTriager{decision: d}

	var out bytes.Buffer
	g := NewCLIGateway(triager, &out, zap.NewNop(), true)

	got, err := g.ProcessBatch(context.Background(), receiver.NewTextBatch("BETCO", "Bahis kazanci", time.Now()))
	require.NoError(t, err)
	assert.True(t, got.IsSpam())
	assert.Equal(t, "BETCO", triager.got.Sender)
	assert.Contains(t, out.String(), "Decision: Spam(quarantine=true)")
	assert.Contains(t, out.String(), "Spam score: 0.9100")

	_, err = g.ProcessBatch(context.Background(), receiver.NewTextBatch("", "x", time.Now()))
	assert.ErrorIs(t, err, core.ErrMalformedInput)
}
