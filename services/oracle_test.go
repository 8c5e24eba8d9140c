package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func chatServer(t *testing.T, answer string, status int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "test-model", req.Model)
		require.Len(t, req.Messages, 1)

		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"content": answer}},
			},
		})
	}))
}

func oracleFor(srv *httptest.Server) *OracleClient {
	return NewOracleClient(OracleConfig{
		BaseURL: srv.URL,
		Token:   "test-token",
		Model:   "test-model",
		Timeout: 5 * time.Second,
	})
}

func TestOracleComplete(t *testing.T) {
	srv := chatServer(t, "  hello there  ", http.StatusOK)
	defer srv.Close()

	answer, err := oracleFor(srv).Complete(context.Background(), "say hi")
	require.NoError(t, err)
	require.Equal(t, "hello there", answer)
}

func TestOracleCompleteUpstreamError(t *testing.T) {
	srv := chatServer(t, "", http.StatusBadGateway)
	defer srv.Close()

	_, err := oracleFor(srv).Complete(context.Background(), "say hi")
	require.Error(t, err)
	require.Contains(t, err.Error(), "502")
}

func TestOracleCompleteUnconfigured(t *testing.T) {
	client := NewOracleClient(OracleConfig{})
	_, err := client.Complete(context.Background(), "say hi")
	require.Error(t, err)
}

func TestHTTPClassifierVerdicts(t *testing.T) {
	cases := []struct {
		answer string
		want   Verdict
	}{
		{"SAFE", VerdictAllowed},
		{"safe", VerdictAllowed},
		{"UNSAFE", VerdictBlocked},
		{"This text is unsafe.", VerdictBlocked},
	}
	for _, tc := range cases {
		srv := chatServer(t, tc.answer, http.StatusOK)
		verdict, err := NewHTTPClassifier(oracleFor(srv)).Classify(context.Background(), "some text")
		srv.Close()
		require.NoError(t, err)
		require.Equal(t, tc.want, verdict, "answer %q", tc.answer)
	}
}

func TestHTTPClassifierErrorSurfaces(t *testing.T) {
	srv := chatServer(t, "", http.StatusInternalServerError)
	defer srv.Close()

	verdict, err := NewHTTPClassifier(oracleFor(srv)).Classify(context.Background(), "some text")
	require.Error(t, err)
	require.Equal(t, VerdictBlocked, verdict)
}

func TestHTTPResponderGenerates(t *testing.T) {
	srv := chatServer(t, "what a lovely comment", http.StatusOK)
	defer srv.Close()

	reply, err := NewHTTPResponder(oracleFor(srv), 256).Generate(context.Background(), "nice post")
	require.NoError(t, err)
	require.Equal(t, "what a lovely comment", reply)
}
