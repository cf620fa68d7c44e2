package correlation

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rishabhrocktheparty-ai/Blackgpt/connectors"
	"github.com/rishabhrocktheparty-ai/Blackgpt/logging"
	"github.com/rishabhrocktheparty-ai/Blackgpt/models"
	"github.com/rishabhrocktheparty-ai/Blackgpt/summarizer"
)

type stubConnector struct {
	name  string
	query func(ctx context.Context, keywords []string) connectors.Result
	calls atomic.Int32
}

func (s *stubConnector) Name() string { return s.name }

func (s *stubConnector) Query(ctx context.Context, keywords []string) connectors.Result {
	s.calls.Add(1)
	return s.query(ctx, keywords)
}

func fixed(name string, conf float64, items int) *stubConnector {
	return &stubConnector{name: name, query: func(context.Context, []string) connectors.Result {
		r := connectors.Result{Source: name, Confidence: conf, Mode: connectors.ModeDemo, Items: []connectors.Item{}}
		for i := 0; i < items; i++ {
			r.Items = append(r.Items, connectors.Item{Title: name + " item"})
		}
		return r
	}}
}

type stubSummarizer struct {
	summary    *summarizer.Summary
	summaryErr error
	assessment *summarizer.ContradictionAssessment
	assessErr  error
	evidence   int
}

func (s *stubSummarizer) Summarize(_ context.Context, in summarizer.SummaryInput) (*summarizer.Summary, error) {
	s.evidence = len(in.Evidence)
	return s.summary, s.summaryErr
}

func (s *stubSummarizer) DetectContradiction(context.Context, summarizer.ContradictionInput) (*summarizer.ContradictionAssessment, error) {
	return s.assessment, s.assessErr
}

func testSignal() models.Signal {
	return models.Signal{ID: "sig-1", ScriptName: "BTC Test", GistText: "Trading volume increased on major exchanges"}
}

func TestCorrelate_MeanConfidence(t *testing.T) {
	agg := NewAggregator([]Connector{
		fixed("NewsAPI", 0.8, 2),
		fixed("Reddit", 0.2, 0),
		fixed("CoinGecko", 0.6, 1),
	}, logging.Discard())

	out, err := agg.Correlate(context.Background(), testSignal())
	require.NoError(t, err)

	assert.InDelta(t, 0.5333, out.Confidence, 0.001)
	assert.Equal(t, []string{"NewsAPI", "Reddit", "CoinGecko"}, out.SourcesQueried)
	assert.Len(t, out.Sources, 3)
	assert.Equal(t, []string{"trading", "volume", "increased", "major", "exchanges"}, out.Keywords)
	assert.Contains(t, out.ResultGist, "NewsAPI: Found 2 related items (confidence: 80%)")
	assert.Contains(t, out.ResultGist, "CoinGecko: Found 1 related items (confidence: 60%)")
	assert.NotContains(t, out.ResultGist, "Reddit:")
	assert.False(t, out.Contradiction.RequiresReview)
	assert.Nil(t, out.Summary)
}

func TestCorrelate_FailureIsolation(t *testing.T) {
	failing := &stubConnector{name: "Reddit", query: func(context.Context, []string) connectors.Result {
		return connectors.Result{Source: "Reddit", Error: "503 service unavailable"}
	}}
	panicking := &stubConnector{name: "CoinGecko", query: func(context.Context, []string) connectors.Result {
		panic("boom")
	}}
	agg := NewAggregator([]Connector{fixed("NewsAPI", 0.9, 1), failing, panicking}, logging.Discard())

	out, err := agg.Correlate(context.Background(), testSignal())
	require.NoError(t, err)

	assert.InDelta(t, 0.3, out.Confidence, 1e-9)
	assert.Equal(t, "503 service unavailable", out.Sources[1].Error)
	assert.NotNil(t, out.Sources[1].Items)
	assert.Contains(t, out.Sources[2].Error, "panic")
	assert.Equal(t, "CoinGecko", out.Sources[2].Source)
}

func TestCorrelate_ConnectorTimeout(t *testing.T) {
	stuck := &stubConnector{name: "Stuck", query: func(context.Context, []string) connectors.Result {
		time.Sleep(time.Second)
		return connectors.Result{Source: "Stuck", Confidence: 1}
	}}
	agg := NewAggregator([]Connector{fixed("NewsAPI", 0.8, 1), stuck}, logging.Discard(),
		WithConnectorTimeout(30*time.Millisecond))

	start := time.Now()
	out, err := agg.Correlate(context.Background(), testSignal())
	require.NoError(t, err)

	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.InDelta(t, 0.4, out.Confidence, 1e-9)
	assert.NotEmpty(t, out.Sources[1].Error)
}

func TestCorrelate_QueriesConcurrently(t *testing.T) {
	slow := func(name string) *stubConnector {
		return &stubConnector{name: name, query: func(context.Context, []string) connectors.Result {
			time.Sleep(100 * time.Millisecond)
			return connectors.Result{Source: name, Confidence: 0.5}
		}}
	}
	agg := NewAggregator([]Connector{slow("a"), slow("b"), slow("c")}, logging.Discard())

	start := time.Now()
	_, err := agg.Correlate(context.Background(), testSignal())
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 250*time.Millisecond)
}

func TestCorrelate_NoConnectors(t *testing.T) {
	_, err := NewAggregator(nil, logging.Discard()).Correlate(context.Background(), testSignal())
	assert.ErrorIs(t, err, ErrNoConnectors)
}

func TestCorrelate_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewAggregator([]Connector{fixed("NewsAPI", 0.8, 1)}, logging.Discard()).Correlate(ctx, testSignal())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCorrelate_SummarizerRefines(t *testing.T) {
	sum := &stubSummarizer{
		summary:    &summarizer.Summary{Gist: "Volume spike confirmed by two sources.", Confidence: 0.7, Model: "m"},
		assessment: &summarizer.ContradictionAssessment{HasContradiction: true, Confidence: 0.55, CounterEvidence: "CoinGecko shows falling volume"},
	}
	agg := NewAggregator([]Connector{fixed("NewsAPI", 0.8, 2), fixed("CoinGecko", 0.4, 1)}, logging.Discard(),
		WithSummarizer(sum))

	out, err := agg.Correlate(context.Background(), testSignal())
	require.NoError(t, err)

	assert.Equal(t, "Volume spike confirmed by two sources.", out.ResultGist)
	assert.Equal(t, 3, sum.evidence)
	require.NotNil(t, out.Summary)
	// the model's own score is reported but never replaces the source mean
	assert.InDelta(t, 0.6, out.Confidence, 1e-9)
	assert.True(t, out.Contradiction.Flag)
	assert.True(t, out.Contradiction.RequiresReview)
	assert.Equal(t, "CoinGecko shows falling volume", out.Contradiction.Note)
}

func TestCorrelate_ContradictionAtThresholdDoesNotRequireReview(t *testing.T) {
	sum := &stubSummarizer{
		summary:    &summarizer.Summary{Gist: "ok"},
		assessment: &summarizer.ContradictionAssessment{HasContradiction: true, Confidence: 0.40},
	}
	agg := NewAggregator([]Connector{fixed("NewsAPI", 0.8, 1)}, logging.Discard(), WithSummarizer(sum))

	out, err := agg.Correlate(context.Background(), testSignal())
	require.NoError(t, err)
	assert.True(t, out.Contradiction.Flag)
	assert.False(t, out.Contradiction.RequiresReview)
}

func TestCorrelate_SummarizerFailureFallsBack(t *testing.T) {
	sum := &stubSummarizer{summaryErr: errors.New("429"), assessErr: errors.New("429")}
	agg := NewAggregator([]Connector{fixed("NewsAPI", 0.8, 1)}, logging.Discard(), WithSummarizer(sum))

	out, err := agg.Correlate(context.Background(), testSignal())
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out.ResultGist, "Correlation analysis:"))
	assert.Nil(t, out.Summary)
	assert.Equal(t, Contradiction{}, out.Contradiction)
}

func TestGenerateGist(t *testing.T) {
	assert.Equal(t, noCorrelationGist, GenerateGist([]connectors.Result{{Source: "Reddit"}}))

	one := GenerateGist([]connectors.Result{{Source: "Reddit", Confidence: 0.6, Items: []connectors.Item{{}}}})
	assert.Contains(t, one, "appears moderate")

	two := GenerateGist([]connectors.Result{
		{Source: "Reddit", Confidence: 0.6, Items: []connectors.Item{{}}},
		{Source: "NewsAPI", Confidence: 0.7, Items: []connectors.Item{{}, {}}},
	})
	assert.Contains(t, two, "appears high")
	assert.Contains(t, two, "NewsAPI: Found 2 related items (confidence: 70%)")
}
