package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"valuation_research/pkg/core/config"
)

func newTestSonar(t *testing.T, handler http.HandlerFunc, opts ...SonarOption) *SonarClient {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	opts = append([]SonarOption{WithHTTPClient(ts.Client())}, opts...)
	return NewSonarClient(config.ProviderConfig{APIKey: "pplx", APIURL: ts.URL, Model: "sonar"}, opts...)
}

func TestSonarSearch_TopLevelCitations(t *testing.T) {
	var got sonarRequest
	client := newTestSonar(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer pplx", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"choices":[{"message":{"content":"Apple trades at $230"}}],"citations":["https://a","https://b"]}`))
	})

	res := client.Search(context.Background(), "AAPL price", Options{})

	require.True(t, res.OK(), res.Error)
	assert.Equal(t, "AAPL price", res.Query)
	assert.Equal(t, "Apple trades at $230", res.Content)
	assert.Equal(t, []string{"https://a", "https://b"}, res.Citations)

	assert.Equal(t, DefaultTemperature, got.Temperature)
	assert.Equal(t, DefaultMaxTokens, got.MaxTokens)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, sonarSystemPrompt, got.Messages[0].Content)
	assert.Equal(t, "AAPL price", got.Messages[1].Content)
}

func TestSonarSearch_MessageCitations(t *testing.T) {
	client := newTestSonar(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"content":"x","citations":["https://m"]}}]}`))
	})

	res := client.Search(context.Background(), "q", Options{})
	require.True(t, res.OK())
	assert.Equal(t, []string{"https://m"}, res.Citations)
}

func TestSonarSearch_NoCitations(t *testing.T) {
	client := newTestSonar(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"content":"x"}}]}`))
	})

	res := client.Search(context.Background(), "q", Options{})
	require.True(t, res.OK())
	assert.NotNil(t, res.Citations)
	assert.Empty(t, res.Citations)
}

func TestSonarSearch_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    string
	}{
		{
			name: "non-2xx",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(strings.Repeat("e", 250)))
			},
			want: "API错误 401: " + strings.Repeat("e", 200),
		},
		{
			name: "missing choices",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Write([]byte(`{"id":"x"}`))
			},
			want: "API响应格式错误：缺少choices",
		},
		{
			name: "missing content",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Write([]byte(`{"choices":[{"message":{}}]}`))
			},
			want: "API响应格式错误：缺少content",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestSonar(t, tt.handler)
			res := client.Search(context.Background(), "q", Options{})
			assert.Equal(t, StatusError, res.Status)
			assert.Equal(t, tt.want, res.Error)
			assert.Equal(t, "q", res.Query)
		})
	}
}

func TestSonarSearch_Timeout(t *testing.T) {
	client := newTestSonar(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}, WithTimeout(30*time.Millisecond))

	query := strings.Repeat("long query ", 10)
	res := client.Search(context.Background(), query, Options{})
	assert.Equal(t, StatusError, res.Status)
	assert.Equal(t, "查询超时: "+query[:50]+"...", res.Error)
}

func TestSonarSearch_NetworkError(t *testing.T) {
	client := NewSonarClient(config.ProviderConfig{APIURL: "http://127.0.0.1:1"})
	res := client.Search(context.Background(), "q", Options{})
	assert.Equal(t, StatusError, res.Status)
	assert.True(t, strings.HasPrefix(res.Error, "异常: "), res.Error)
}
