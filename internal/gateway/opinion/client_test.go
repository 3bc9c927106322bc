package opinion

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"autopilot/internal/decision"
	"autopilot/internal/types"
)

func chatReply(content string) string {
	return `{"choices":[{"message":{"content":` + content + `}}]}`
}

func TestCompleteSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Write([]byte(chatReply(`"hello"`)))
	}))
	defer srv.Close()

	c := &ChatClient{BaseURL: srv.URL + "/v1", APIKey: "test-key"}
	out, err := c.Complete(context.Background(), "test-model", "system", "user")
	assert.NoError(t, err)
	assert.Equal(t, "hello", out)
}

func TestCompleteRetriesOnRateLimit(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":{"message":"slow down"}}`))
			return
		}
		w.Write([]byte(chatReply(`"after retry"`)))
	}))
	defer srv.Close()

	c := &ChatClient{BaseURL: srv.URL, Timeout: 5 * time.Second}
	out, err := c.Complete(context.Background(), "test-model", "", "user")
	assert.NoError(t, err)
	assert.Equal(t, "after retry", out)
	assert.Equal(t, int32(2), calls.Load())
}

func TestCompleteGivesUpOnBadRequest(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"bad model"}}`))
	}))
	defer srv.Close()

	c := &ChatClient{BaseURL: srv.URL}
	_, err := c.Complete(context.Background(), "test-model", "", "user")
	assert.ErrorContains(t, err, "bad model")
	assert.Equal(t, int32(1), calls.Load())
}

func TestSourceGetSignal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(chatReply(`"{\"action\":\"BUY\",\"confidence\":0.8,\"rationale\":\"uptrend\"}"`)))
	}))
	defer srv.Close()

	src := NewSource(&ChatClient{BaseURL: srv.URL})
	ev := decision.Evaluator{ID: "growth", Name: "Growth Hunter", RiskProfile: "aggressive", Model: "test-model"}
	sig, err := src.GetSignal(context.Background(), ev, "AAPL", []float64{100, 101, 102}, types.Account{Cash: 1000, PortfolioValue: 5000})
	assert.NoError(t, err)
	assert.Equal(t, "growth", sig.EvaluatorID)
	assert.Equal(t, types.ActionBuy, sig.Action)
	assert.Equal(t, 0.8, sig.Confidence)
	assert.Equal(t, "uptrend", sig.Rationale)
}
