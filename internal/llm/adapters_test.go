package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/wunjo/internal/apperr"
)

type scriptedServer struct {
	*httptest.Server
	calls  atomic.Int32
	bodies []string
}

// newScriptedServer replies with responses[i] on call i, repeating the last.
func newScriptedServer(t *testing.T, responses ...scripted) *scriptedServer {
	t.Helper()
	s := &scriptedServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(s.calls.Add(1)) - 1
		body, _ := io.ReadAll(r.Body)
		s.bodies = append(s.bodies, string(body))
		if n >= len(responses) {
			n = len(responses) - 1
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(responses[n].status)
		_, _ = io.WriteString(w, responses[n].body)
	}))
	t.Cleanup(s.Close)
	return s
}

type scripted struct {
	status int
	body   string
}

const (
	claudeOK = `{"id":"msg_1","type":"message","role":"assistant","model":"claude-3-5-haiku-20241022",
		"content":[{"type":"text","text":"Connection successful!"}],"stop_reason":"end_turn",
		"usage":{"input_tokens":12,"output_tokens":4}}`
	claudeUnauthorized = `{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`
	claudeOverloaded   = `{"type":"error","error":{"type":"api_error","message":"overloaded"}}`

	geminiOK = `{"candidates":[{"content":{"role":"model","parts":[{"text":"Connection "},{"text":"successful"}]},
		"finishReason":"STOP"}]}`
	geminiSafetyBody   = `{"candidates":[{"finishReason":"SAFETY"}]}`
	geminiUnauthorized = `{"error":{"code":401,"message":"bad key","status":"UNAUTHENTICATED"}}`
	geminiBadKey       = `{"error":{"code":400,"message":"API key not valid.","status":"INVALID_ARGUMENT",
		"details":[{"@type":"type.googleapis.com/google.rpc.ErrorInfo","reason":"API_KEY_INVALID"}]}}`
	geminiBadRequest = `{"error":{"code":400,"message":"contents is empty","status":"INVALID_ARGUMENT"}}`
)

func newTestProvider(t *testing.T, id ProviderID, srv *scriptedServer, rec *sleepRecorder) Provider {
	t.Helper()
	p, err := New(context.Background(), id, "test-key", "", WithBaseURL(srv.URL), WithSleep(rec.sleep))
	require.NoError(t, err)
	return p
}

var samplePrompt = Prompt{
	System: "be brief",
	Messages: []Message{
		{Role: RoleUser, Content: "hi"},
		{Role: RoleAssistant, Content: "hello"},
		{Role: RoleUser, Content: "status?"},
	},
}

func TestAnthropic_Send(t *testing.T) {
	srv := newScriptedServer(t, scripted{http.StatusOK, claudeOK})
	p := newTestProvider(t, Claude, srv, &sleepRecorder{})

	text, err := p.Send(context.Background(), samplePrompt)
	require.NoError(t, err)
	assert.Equal(t, "Connection successful!", text)

	var req map[string]any
	require.NoError(t, json.Unmarshal([]byte(srv.bodies[0]), &req))
	assert.Equal(t, "claude-3-5-haiku-20241022", req["model"])
	assert.EqualValues(t, DefaultMaxTokens, req["max_tokens"])
	assert.Len(t, req["messages"], 3)
}

func TestAnthropic_UnauthorizedNotRetried(t *testing.T) {
	srv := newScriptedServer(t, scripted{http.StatusUnauthorized, claudeUnauthorized})
	rec := &sleepRecorder{}
	p := newTestProvider(t, Claude, srv, rec)

	_, err := p.SendWithRetry(context.Background(), samplePrompt, 3)
	require.ErrorIs(t, err, apperr.ErrInvalidCredentials)
	assert.EqualValues(t, 1, srv.calls.Load())
	assert.Empty(t, rec.delays)

	var pe *apperr.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, http.StatusUnauthorized, pe.Status)
	assert.Equal(t, "invalid x-api-key", pe.Detail)
}

func TestAnthropic_RetriesTransientFailures(t *testing.T) {
	srv := newScriptedServer(t,
		scripted{http.StatusServiceUnavailable, claudeOverloaded},
		scripted{http.StatusTooManyRequests, claudeOverloaded},
		scripted{http.StatusOK, claudeOK},
	)
	rec := &sleepRecorder{}
	p := newTestProvider(t, Claude, srv, rec)

	text, err := p.SendWithRetry(context.Background(), samplePrompt, 3)
	require.NoError(t, err)
	assert.Contains(t, text, "successful")
	assert.EqualValues(t, 3, srv.calls.Load())
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, rec.delays)
}

func TestAnthropic_TestConnection(t *testing.T) {
	srv := newScriptedServer(t, scripted{http.StatusOK, claudeOK})
	ok, err := newTestProvider(t, Claude, srv, &sleepRecorder{}).TestConnection(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, srv.bodies[0], "Connection successful")
}

func TestAnthropic_TestConnectionWrapsError(t *testing.T) {
	srv := newScriptedServer(t, scripted{http.StatusUnauthorized, claudeUnauthorized})
	ok, err := newTestProvider(t, Claude, srv, &sleepRecorder{}).TestConnection(context.Background())
	assert.False(t, ok)
	require.ErrorIs(t, err, apperr.ErrInvalidCredentials)
	assert.True(t, strings.HasPrefix(err.Error(), "connection test failed: "))
}

func TestAnthropic_RefusalWithPartialText(t *testing.T) {
	body := `{"id":"msg_2","type":"message","role":"assistant","model":"claude-3-5-haiku-20241022",
		"content":[{"type":"text","text":"Sure, here is"}],"stop_reason":"refusal",
		"usage":{"input_tokens":12,"output_tokens":3}}`
	srv := newScriptedServer(t, scripted{http.StatusOK, body})
	rec := &sleepRecorder{}

	text, err := newTestProvider(t, Claude, srv, rec).SendWithRetry(context.Background(), samplePrompt, 3)
	require.ErrorIs(t, err, apperr.ErrContentFiltered)
	assert.Empty(t, text)
	assert.EqualValues(t, 1, srv.calls.Load())
	assert.Empty(t, rec.delays)
}

func TestGemini_Send(t *testing.T) {
	srv := newScriptedServer(t, scripted{http.StatusOK, geminiOK})
	p := newTestProvider(t, Gemini, srv, &sleepRecorder{})

	text, err := p.Send(context.Background(), samplePrompt)
	require.NoError(t, err)
	assert.Equal(t, "Connection successful", text)
	assert.Equal(t, "gemini-2.0-flash", p.Model())

	body := srv.bodies[0]
	assert.Contains(t, body, `"systemInstruction"`)
	assert.Contains(t, body, `"role":"model"`)
	assert.Contains(t, body, "HARM_CATEGORY_HARASSMENT")
}

func TestGemini_UnauthorizedNotRetried(t *testing.T) {
	srv := newScriptedServer(t, scripted{http.StatusUnauthorized, geminiUnauthorized})
	rec := &sleepRecorder{}
	p := newTestProvider(t, Gemini, srv, rec)

	_, err := p.SendWithRetry(context.Background(), samplePrompt, 3)
	require.ErrorIs(t, err, apperr.ErrInvalidCredentials)
	assert.EqualValues(t, 1, srv.calls.Load())
	assert.Empty(t, rec.delays)
}

func TestGemini_InvalidKeyReason(t *testing.T) {
	srv := newScriptedServer(t, scripted{http.StatusBadRequest, geminiBadKey})
	_, err := newTestProvider(t, Gemini, srv, &sleepRecorder{}).SendWithRetry(context.Background(), samplePrompt, 3)
	require.ErrorIs(t, err, apperr.ErrInvalidCredentials)
	assert.EqualValues(t, 1, srv.calls.Load())
}

func TestGemini_MalformedRequestCarriesDetail(t *testing.T) {
	srv := newScriptedServer(t, scripted{http.StatusBadRequest, geminiBadRequest})
	_, err := newTestProvider(t, Gemini, srv, &sleepRecorder{}).Send(context.Background(), samplePrompt)
	require.ErrorIs(t, err, apperr.ErrMalformedRequest)
	assert.Contains(t, err.Error(), "contents is empty")
}

func TestGemini_SafetyBlock(t *testing.T) {
	srv := newScriptedServer(t, scripted{http.StatusOK, geminiSafetyBody})
	rec := &sleepRecorder{}
	_, err := newTestProvider(t, Gemini, srv, rec).SendWithRetry(context.Background(), samplePrompt, 3)
	require.ErrorIs(t, err, apperr.ErrContentFiltered)
	assert.EqualValues(t, 1, srv.calls.Load())
}

func TestGemini_RecitationBlocked(t *testing.T) {
	body := `{"candidates":[{"content":{"role":"model","parts":[{"text":"Four score"}]},"finishReason":"RECITATION"}]}`
	srv := newScriptedServer(t, scripted{http.StatusOK, body})
	_, err := newTestProvider(t, Gemini, srv, &sleepRecorder{}).Send(context.Background(), samplePrompt)
	require.ErrorIs(t, err, apperr.ErrContentFiltered)
}

func TestGemini_CandidateWithoutText(t *testing.T) {
	body := `{"candidates":[{"content":{"role":"model","parts":[]},"finishReason":"STOP"}]}`
	srv := newScriptedServer(t, scripted{http.StatusOK, body})
	_, err := newTestProvider(t, Gemini, srv, &sleepRecorder{}).Send(context.Background(), samplePrompt)
	require.ErrorIs(t, err, apperr.ErrParseFailure)
}

func TestGemini_NoCandidates(t *testing.T) {
	srv := newScriptedServer(t, scripted{http.StatusOK, `{"candidates":[]}`})
	_, err := newTestProvider(t, Gemini, srv, &sleepRecorder{}).Send(context.Background(), samplePrompt)
	require.ErrorIs(t, err, apperr.ErrParseFailure)
}

func TestGemini_PromptBlocked(t *testing.T) {
	srv := newScriptedServer(t, scripted{http.StatusOK, `{"promptFeedback":{"blockReason":"SAFETY"}}`})
	_, err := newTestProvider(t, Gemini, srv, &sleepRecorder{}).Send(context.Background(), samplePrompt)
	require.ErrorIs(t, err, apperr.ErrContentFiltered)
}
