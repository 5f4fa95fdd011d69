package chat

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/wunjo/internal/aggregator"
	"github.com/starford/wunjo/internal/analyzer"
	"github.com/starford/wunjo/internal/apperr"
	"github.com/starford/wunjo/internal/datasource"
	"github.com/starford/wunjo/internal/llm"
	"github.com/starford/wunjo/internal/models"
)

// fakeProvider records prompts and replies from a script.
type fakeProvider struct {
	mu      sync.Mutex
	prompts []llm.Prompt
	replies []string
	errs    []error
	retries []int
}

func (f *fakeProvider) Send(_ context.Context, p llm.Prompt) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := len(f.prompts)
	f.prompts = append(f.prompts, p)
	if n < len(f.errs) && f.errs[n] != nil {
		return "", f.errs[n]
	}
	if n < len(f.replies) {
		return f.replies[n], nil
	}
	return "ok", nil
}

func (f *fakeProvider) SendWithRetry(ctx context.Context, p llm.Prompt, maxRetries int) (string, error) {
	f.mu.Lock()
	f.retries = append(f.retries, maxRetries)
	f.mu.Unlock()
	return f.Send(ctx, p)
}

func (f *fakeProvider) TestConnection(ctx context.Context) (bool, error) {
	_, err := f.Send(ctx, llm.Prompt{})
	if err != nil {
		return false, err
	}
	return true, nil
}

func (f *fakeProvider) CalculateCost(in, out int) llm.Cost {
	return llm.Cost{InputCost: float64(in), OutputCost: float64(out), TotalCost: float64(in + out)}
}

func (f *fakeProvider) ID() llm.ProviderID { return llm.Gemini }
func (f *fakeProvider) Model() string      { return "gemini-2.0-flash" }

var now = time.Date(2025, 6, 18, 12, 0, 0, 0, time.UTC)

func workspace() datasource.Source {
	mem := datasource.NewMemory()
	mem.BoardRepo.Add(models.Board{ID: "b1", Name: "Work"})
	mem.ListRepo.Add(models.List{ID: "l1", Name: "Done", BoardID: "b1"})
	mem.CardRepo.Add(models.Card{ID: "c1", Title: "Ship", ListID: "l1", Timestamps: models.Timestamps{CreatedAt: now.Add(-time.Hour)}})
	mem.NoteRepo.Add(models.Note{ID: "n1", Title: "Budget plan", Content: "rent", Timestamps: models.Timestamps{CreatedAt: now.Add(-time.Hour)}})
	return mem.Source()
}

func newService(p llm.Provider) *Service {
	agg := aggregator.New(workspace(), aggregator.WithClock(func() time.Time { return now }))
	return NewService(p, agg, WithMaxRetries(2))
}

func TestProcessQuery_Summary(t *testing.T) {
	fp := &fakeProvider{replies: []string{"You finished **1** task."}}
	svc := newService(fp)

	reply, err := svc.ProcessQuery(context.Background(), "What did I work on this week?", nil)
	require.NoError(t, err)
	assert.Equal(t, "You finished **1** task.", reply.Text)
	assert.Equal(t, analyzer.IntentSummary, reply.Intent)
	require.NotNil(t, reply.DataUsed.Tasks)
	assert.Equal(t, 1, reply.DataUsed.Tasks.CompletedTasks)
	require.NotNil(t, reply.DataUsed.Notes)

	require.Len(t, fp.prompts, 1)
	assert.Equal(t, []int{2}, fp.retries)
	last := fp.prompts[0].Messages[len(fp.prompts[0].Messages)-1]
	assert.Contains(t, last.Content, "TASKS:\n• Total: 1 tasks")
	assert.Contains(t, last.Content, "USER QUESTION: What did I work on this week?")
}

func TestProcessQuery_SearchPassesHistory(t *testing.T) {
	fp := &fakeProvider{}
	history := []llm.Message{{Role: llm.RoleUser, Content: "hi"}, {Role: llm.RoleAssistant, Content: "hello"}}

	reply, err := newService(fp).ProcessQuery(context.Background(), "find notes about budget", history)
	require.NoError(t, err)
	assert.Equal(t, analyzer.IntentSearch, reply.Intent)
	require.Len(t, reply.DataUsed.SearchResults, 1)

	msgs := fp.prompts[0].Messages
	require.Len(t, msgs, 3)
	assert.Equal(t, history, msgs[:2])
	assert.Contains(t, msgs[2].Content, `SEARCH RESULTS for "budget":`)
}

func TestProcessQuery_ErrorCategories(t *testing.T) {
	cases := []struct {
		kind error
		want Category
	}{
		{apperr.ErrInvalidCredentials, CategoryInvalidCredentials},
		{apperr.ErrPermissionDenied, CategoryInvalidCredentials},
		{apperr.ErrRateLimited, CategoryRateLimited},
		{apperr.ErrServiceUnavailable, CategoryServiceUnavailable},
		{apperr.ErrContentFiltered, CategoryContentFiltered},
		{apperr.ErrMalformedRequest, CategoryGeneric},
		{apperr.ErrParseFailure, CategoryGeneric},
	}
	for _, tc := range cases {
		t.Run(tc.kind.Error(), func(t *testing.T) {
			cause := &apperr.ProviderError{Kind: tc.kind, Provider: "gemini", Status: 400, Detail: "boom"}
			fp := &fakeProvider{errs: []error{cause}}

			_, err := newService(fp).ProcessQuery(context.Background(), "hello", nil)
			require.Error(t, err)

			var ce *Error
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tc.want, ce.Category)
			assert.ErrorIs(t, err, tc.kind)
			assert.Equal(t, tc.want, CategoryOf(err))
		})
	}
}

func TestClassify_GenericKeepsMessage(t *testing.T) {
	ce := classify(errors.New("socket closed"))
	assert.Equal(t, CategoryGeneric, ce.Category)
	assert.Equal(t, "socket closed", ce.Message)
	assert.Same(t, ce, classify(ce))
}

func TestService_Extras(t *testing.T) {
	fp := &fakeProvider{}
	svc := newService(fp)

	ok, err := svc.TestConnection(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)

	info := svc.ProviderInfo()
	assert.Equal(t, llm.Gemini, info.Type)
	assert.Equal(t, "gemini-2.0-flash", info.Model)
	assert.Equal(t, "Google Gemini", info.Name)

	// 12 chars -> 3 tokens, plus allowances.
	c := svc.EstimateCost("how am I do?")
	assert.Equal(t, 203.0, c.InputCost)
	assert.Equal(t, 200.0, c.OutputCost)

	assert.Equal(t, analyzer.IntentCount, svc.Analyze("how many notes").Intent)
}

func TestService_TestConnectionError(t *testing.T) {
	fp := &fakeProvider{errs: []error{&apperr.ProviderError{Kind: apperr.ErrInvalidCredentials, Provider: "gemini"}}}
	ok, err := newService(fp).TestConnection(context.Background())
	assert.False(t, ok)
	assert.Equal(t, CategoryInvalidCredentials, CategoryOf(err))
}

func TestSession_SendRecordsTurns(t *testing.T) {
	fp := &fakeProvider{replies: []string{"first", "second"}}
	store := &MemoryHistory{}
	sess := NewSession(newService(fp), NewHistory(store, 0), nil)
	ctx := context.Background()

	_, err := sess.Send(ctx, "hello")
	require.NoError(t, err)
	reply, err := sess.Send(ctx, "and now?")
	require.NoError(t, err)
	assert.Equal(t, "second", reply.Text)

	// Second prompt carried the first exchange.
	msgs := fp.prompts[1].Messages
	require.Len(t, msgs, 3)
	assert.Equal(t, llm.Message{Role: llm.RoleUser, Content: "hello"}, msgs[0])
	assert.Equal(t, llm.Message{Role: llm.RoleAssistant, Content: "first"}, msgs[1])

	turns, err := sess.History().Load(ctx)
	require.NoError(t, err)
	require.Len(t, turns, 4)
	assert.NotEmpty(t, turns[0].ID)
	assert.NotEqual(t, turns[0].ID, turns[1].ID)
}

func TestSession_FailedTurnNotStored(t *testing.T) {
	fp := &fakeProvider{errs: []error{&apperr.ProviderError{Kind: apperr.ErrRateLimited, Provider: "gemini"}}}
	store := &MemoryHistory{}
	sess := NewSession(newService(fp), NewHistory(store, 0), nil)

	_, err := sess.Send(context.Background(), "hello")
	require.Error(t, err)
	turns, _ := store.LoadConversation(context.Background())
	assert.Empty(t, turns)
}

type brokenStore struct{ MemoryHistory }

func (b *brokenStore) SaveConversation(context.Context, []Turn) error { return errors.New("read-only") }

func TestSession_SaveFailureDoesNotFailTurn(t *testing.T) {
	fp := &fakeProvider{replies: []string{"fine"}}
	sess := NewSession(newService(fp), NewHistory(&brokenStore{}, 0), nil)

	reply, err := sess.Send(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "fine", reply.Text)
}
