package ai

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendwise/internal/core"
	"spendwise/internal/log"
	"spendwise/internal/utils"
)

type call struct {
	model  string
	prompt string
	media  *Media
}

// fakeGenerator answers per model; models missing from replies fail.
type fakeGenerator struct {
	mu      sync.Mutex
	replies map[string]string
	err     error
	calls   []call
}

func (f *fakeGenerator) Generate(_ context.Context, model, prompt string, media *Media) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{model: model, prompt: prompt, media: media})
	if reply, ok := f.replies[model]; ok {
		return reply, nil
	}
	if f.err != nil {
		return "", f.err
	}
	return "", errors.New("404 model not found")
}

func newTestClient(gen Generator) *Client {
	return NewClient(gen, Config{
		Models: []string{"models/m1", "m2"},
		Clock:  utils.NewMockClock(time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)),
		Logger: log.NewDiscard(),
	})
}

func TestClient_AnalyzeReceipt(t *testing.T) {
	gen := &fakeGenerator{replies: map[string]string{
		"m2": "```json\n{\"date\":\"2024-06-01\",\"items\":[" +
			"{\"item\":\"Apple\",\"amount\":1.5,\"category\":\"groceries\"}," +
			"{\"item\":\"Discount\",\"amount\":-2,\"category\":\"Other\"}," +
			"{\"item\":\"Bag\",\"amount\":\"0.25\",\"category\":\"Plastic\"}]}\n```",
	}}
	c := newTestClient(gen)

	got, err := c.AnalyzeReceipt(context.Background(), Media{MIMEType: "image/jpeg", Data: []byte{1, 2, 3}})
	require.NoError(t, err)

	assert.Equal(t, core.NewDate(2024, 6, 1), got.Date)
	assert.Equal(t, []Item{
		{Item: "Apple", Amount: 1.5, Category: core.CategoryGroceries},
		{Item: "Bag", Amount: 0.25, Category: core.CategoryOther},
	}, got.Items)

	require.Len(t, gen.calls, 2)
	assert.Equal(t, "m1", gen.calls[0].model)
	assert.Equal(t, "m2", gen.calls[1].model)
	require.NotNil(t, gen.calls[1].media)
	assert.Equal(t, "image/jpeg", gen.calls[1].media.MIMEType)
	assert.Equal(t, "m2", c.Model())
}

func TestClient_AnalyzeReceipt_BadDateBecomesToday(t *testing.T) {
	gen := &fakeGenerator{replies: map[string]string{
		"m1": `{"date":"1999-01-01","items":[{"item":"Tea","amount":3,"category":"Groceries"}]}`,
	}}
	got, err := newTestClient(gen).AnalyzeReceipt(context.Background(), Media{Data: []byte{1}})
	require.NoError(t, err)
	assert.Equal(t, core.NewDate(2024, 6, 15), got.Date)
}

func TestClient_AnalyzeReceipt_ArrayReply(t *testing.T) {
	gen := &fakeGenerator{replies: map[string]string{
		"m1": `Here you go: [{"item":"Bread","amount":2.2,"category":"Groceries"}]`,
	}}
	got, err := newTestClient(gen).AnalyzeReceipt(context.Background(), Media{Data: []byte{1}})
	require.NoError(t, err)
	assert.Equal(t, core.NewDate(2024, 6, 15), got.Date)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "Bread", got.Items[0].Item)
}

func TestClient_UnparsableReplyTriesNextModel(t *testing.T) {
	gen := &fakeGenerator{replies: map[string]string{
		"m1": "Sorry, I cannot read this receipt.",
		"m2": `{"date":"2024-06-02","items":[{"item":"Milk","amount":1.2,"category":"Groceries"}]}`,
	}}
	c := newTestClient(gen)

	got, err := c.AnalyzeReceipt(context.Background(), Media{MIMEType: "image/png", Data: []byte{1}})
	require.NoError(t, err)
	assert.Equal(t, core.NewDate(2024, 6, 2), got.Date)
	require.Len(t, got.Items, 1)
	require.Len(t, gen.calls, 2)
	assert.Equal(t, "m2", c.Model())

	parsed, err := c.ParseText(context.Background(), "milk 1.20")
	require.NoError(t, err)
	require.Len(t, parsed.Items, 1)
	assert.Len(t, gen.calls, 3, "the model that parsed is tried first")
}

func TestClient_AllModelsFail(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("boom")}
	_, err := newTestClient(gen).ParseText(context.Background(), "coffee 3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "m1: boom")
	assert.Contains(t, err.Error(), "m2: boom")
}

func TestClient_ParseText(t *testing.T) {
	gen := &fakeGenerator{replies: map[string]string{
		"m1": `{"items":[{"item":"coffee","amount":3.5,"category":"Restaurants"}]}`,
	}}
	got, err := newTestClient(gen).ParseText(context.Background(), "coffee 3.50")
	require.NoError(t, err)
	assert.Equal(t, []Item{{Item: "coffee", Amount: 3.5, Category: core.CategoryRestaurants}}, got.Items)
	assert.Contains(t, gen.calls[0].prompt, `"coffee 3.50"`)
	assert.Nil(t, gen.calls[0].media)
}

func TestClient_ParseText_Empty(t *testing.T) {
	gen := &fakeGenerator{}
	_, err := newTestClient(gen).ParseText(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrEmptyInput)
	assert.Empty(t, gen.calls)
}

func TestClient_ParseAudio(t *testing.T) {
	gen := &fakeGenerator{replies: map[string]string{
		"m1": `{"transcription":"two dollars on a banana","items":[{"item":"banana","amount":2,"category":"Groceries"}]}`,
	}}
	got, err := newTestClient(gen).ParseAudio(context.Background(), Media{MIMEType: "audio/webm", Data: []byte{9}})
	require.NoError(t, err)
	assert.Equal(t, "two dollars on a banana", got.Transcription)
	require.Len(t, got.Items, 1)
}

func TestClient_ParseAudio_NoJSON(t *testing.T) {
	gen := &fakeGenerator{replies: map[string]string{"m1": "sorry, I could not hear anything"}}
	_, err := newTestClient(gen).ParseAudio(context.Background(), Media{Data: []byte{9}})
	assert.ErrorIs(t, err, ErrNoJSON)
}

func transactions() []core.Transaction {
	return []core.Transaction{
		{ID: "t1", Item: "Coffee", Amount: 3, Currency: "USD", Category: "Restaurants", Date: core.NewDate(2024, 6, 1)},
		{ID: "t2", Item: "Bus", Amount: 2, Currency: "USD", Category: "Transportation", Date: core.NewDate(2024, 6, 2)},
	}
}

func TestClient_Insights(t *testing.T) {
	gen := &fakeGenerator{replies: map[string]string{
		"m1": `{"insights":[{"type":"budget_warning","message":"Coffee is adding up","category":"Restaurants","percentage":80}]}`,
	}}
	got := newTestClient(gen).Insights(context.Background(), transactions())
	require.Len(t, got, 1)
	assert.Equal(t, "budget_warning", got[0].Type)
	assert.Equal(t, 80.0, got[0].Percentage)
}

func TestClient_InsightsDegrade(t *testing.T) {
	assert.Empty(t, newTestClient(&fakeGenerator{err: errors.New("down")}).Insights(context.Background(), transactions()))
	assert.Empty(t, newTestClient(&fakeGenerator{}).Insights(context.Background(), nil))
}

func TestClient_Search(t *testing.T) {
	tests := []struct {
		name    string
		reply   string
		answer  string
		matches []string
	}{
		{"ids", `{"answer":"5 USD","filteredTransactions":["t1","t2","t1"]}`, "5 USD", []string{"t1", "t2"}},
		{"indices", `{"answer":"bus","filteredTransactions":[1, 7]}`, "bus", []string{"t2"}},
		{"no json", `I don't know`, searchUnavailable, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &fakeGenerator{replies: map[string]string{"m1": tt.reply}}
			got := newTestClient(gen).Search(context.Background(), "how much?", transactions())
			assert.Equal(t, tt.answer, got.Answer)
			assert.Equal(t, tt.matches, got.Matches)
		})
	}

	got := newTestClient(&fakeGenerator{err: errors.New("down")}).Search(context.Background(), "q", transactions())
	assert.Equal(t, searchFailed, got.Answer)
}

func TestClassifyError(t *testing.T) {
	assert.ErrorIs(t, classifyError(errors.New("Error 429, RESOURCE_EXHAUSTED")), ErrRateLimited)
	assert.ErrorIs(t, classifyError(errors.New("Error 403 PERMISSION_DENIED")), ErrUnauthorized)
	assert.ErrorIs(t, classifyError(errors.New("Error 400 INVALID_ARGUMENT")), ErrUnsupported)
	err := errors.New("connection reset")
	assert.ErrorIs(t, classifyError(err), err)
}

func TestCleanModelJSON(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"```json\n{\"a\":1}\n```", `{"a":1}`, true},
		{"prefix {\"a\":{\"b\":2}} suffix", `{"a":{"b":2}}`, true},
		{"no json here", "", false},
	}
	for _, tt := range tests {
		got, ok := cleanModelJSON(tt.in, "{", "}")
		assert.Equal(t, tt.ok, ok)
		assert.Equal(t, tt.want, got)
	}
}
