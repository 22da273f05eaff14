package stage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dkarpov/annotext/internal/annotation"
	"github.com/dkarpov/annotext/internal/cache"
	"github.com/dkarpov/annotext/internal/worker"
)

// Config describes one remote analysis service.
type Config struct {
	Name     string
	Kind     annotation.Kind // sentiment, hate or fact_check
	Endpoint string
	Scale    int // parallel request fan-out within this stage
	Timeout  time.Duration

	// Params are merged into the request payload verbatim. Recognized keys
	// are stage-specific; the service ignores the rest.
	Params map[string]string
}

// Options carries the shared plumbing a remote stage uses.
type Options struct {
	Limiter  *worker.Limiter
	Cache    cache.Cache
	CacheTTL time.Duration
	Logf     func(format string, args ...any)
}

// Remote implements Stage against one HTTP analysis service.
type Remote struct {
	name     string
	kind     annotation.Kind
	endpoint string
	scale    int
	params   map[string]string

	client   *http.Client
	limiter  *worker.Limiter
	cache    cache.Cache
	cacheTTL time.Duration
	logf     func(format string, args ...any)
}

// NewRemote creates a stage client for the given service.
func NewRemote(cfg Config, opts Options) (*Remote, error) {
	switch cfg.Kind {
	case annotation.KindSentiment, annotation.KindHate, annotation.KindFactCheck:
	default:
		return nil, fmt.Errorf("stage %q: unsupported kind %q", cfg.Name, cfg.Kind)
	}
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("stage %q: endpoint is required", cfg.Name)
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = time.Minute
	}
	scale := cfg.Scale
	if scale < 1 {
		scale = 1
	}
	logf := opts.Logf
	if logf == nil {
		logf = func(string, ...any) {}
	}

	return &Remote{
		name:     cfg.Name,
		kind:     cfg.Kind,
		endpoint: strings.TrimSuffix(cfg.Endpoint, "/"),
		scale:    scale,
		params:   cfg.Params,
		client:   &http.Client{Timeout: timeout},
		limiter:  opts.Limiter,
		cache:    opts.Cache,
		cacheTTL: opts.CacheTTL,
		logf:     logf,
	}, nil
}

// Name returns the stage name.
func (r *Remote) Name() string { return r.name }

// Healthy probes the service's typesystem endpoint.
func (r *Remote) Healthy(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.endpoint+"/v1/typesystem", nil)
	if err != nil {
		return fmt.Errorf("stage %q: create probe: %w", r.name, err)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("stage %q: %v: %w", r.name, err, ErrStageUnavailable)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("stage %q: probe HTTP %d: %w", r.name, resp.StatusCode, ErrStageUnavailable)
	}
	return nil
}

// Process sends the document to the service and translates the response
// into annotation variants. The store is only read, never written.
func (r *Remote) Process(ctx context.Context, doc *annotation.Document) ([]annotation.Annotation, error) {
	switch r.kind {
	case annotation.KindFactCheck:
		return r.processFactCheck(ctx, doc)
	default:
		return r.processSelections(ctx, doc)
	}
}

// processSelections drives the sentiment and hate services. With scale 1
// the whole document goes out as a single selection; above that, sentence
// spans are fanned out across parallel requests that all join before the
// stage returns.
func (r *Remote) processSelections(ctx context.Context, doc *annotation.Document) ([]annotation.Annotation, error) {
	batches := r.selectionBatches(doc)

	type reply struct {
		sentences []wireSentence
		body      []byte
		err       error
	}
	replies := make([]reply, len(batches))

	var wg sync.WaitGroup
	sem := make(chan struct{}, r.scale)
	for i, sentences := range batches {
		wg.Add(1)
		go func(idx int, sentences []wireSentence) {
			defer wg.Done()
			select {
			case <-ctx.Done():
				replies[idx] = reply{err: classify(fmt.Errorf("stage %q: %w", r.name, ctx.Err()))}
				return
			case sem <- struct{}{}:
			}
			defer func() { <-sem }()

			body, err := r.post(ctx, r.selectionPayload(doc, sentences))
			replies[idx] = reply{sentences: sentences, body: body, err: err}
		}(i, sentences)
	}
	wg.Wait()

	var out []annotation.Annotation
	for _, rep := range replies {
		if rep.err != nil {
			return nil, rep.err
		}
		decoded, err := r.decodeSelections(rep.sentences, rep.body)
		if err != nil {
			return nil, err
		}
		out = append(out, decoded...)
	}
	return out, nil
}

func (r *Remote) selectionBatches(doc *annotation.Document) [][]wireSentence {
	whole := []wireSentence{{Text: doc.Text, Begin: 0, End: len(doc.Text)}}
	if r.scale == 1 {
		return [][]wireSentence{whole}
	}

	spans := annotation.SentenceSpans(doc.Text)
	if len(spans) == 0 {
		return [][]wireSentence{whole}
	}
	per := (len(spans) + r.scale - 1) / r.scale
	var batches [][]wireSentence
	for start := 0; start < len(spans); start += per {
		end := start + per
		if end > len(spans) {
			end = len(spans)
		}
		batch := make([]wireSentence, 0, end-start)
		for _, s := range spans[start:end] {
			batch = append(batch, wireSentence{Text: doc.Text[s.Begin:s.End], Begin: s.Begin, End: s.End})
		}
		batches = append(batches, batch)
	}
	return batches
}

func (r *Remote) selectionPayload(doc *annotation.Document, sentences []wireSentence) map[string]any {
	payload := map[string]any{
		"selections": []wireSelection{{Selection: r.selectionName(), Sentences: sentences}},
		"lang":       doc.Language,
		"doc_len":    len(doc.Text),
	}
	for k, v := range r.params {
		if k == "selection" {
			continue
		}
		if _, taken := payload[k]; !taken {
			payload[k] = v
		}
	}
	return payload
}

func (r *Remote) selectionName() string {
	if sel, ok := r.params["selection"]; ok {
		return sel
	}
	return "text"
}

func (r *Remote) decodeSelections(requested []wireSentence, body []byte) ([]annotation.Annotation, error) {
	var resp selectionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("stage %q: decode: %v: %w", r.name, err, ErrStageResponse)
	}

	if r.kind == annotation.KindHate {
		return r.decodeHate(requested, resp)
	}
	return r.decodeSentiment(resp)
}

func (r *Remote) decodeSentiment(resp selectionResponse) ([]annotation.Annotation, error) {
	var out []annotation.Annotation
	for _, sel := range resp.Selections {
		for _, s := range sel.Sentences {
			span := annotation.Span{Begin: s.Begin, End: s.End}
			switch {
			case s.Pos != nil && s.Neu != nil && s.Neg != nil:
				label, score := dominant(*s.Pos, *s.Neu, *s.Neg)
				out = append(out, annotation.Sentiment{Span: span, Label: label, Score: score})
			case s.Sentiment != nil:
				// Opaque scalar shape; carried verbatim.
				out = append(out, annotation.Sentiment{Span: span, Score: *s.Sentiment})
			}
		}
	}
	return out, nil
}

func dominant(pos, neu, neg float64) (string, float64) {
	label, score := "positive", pos
	if neu > score {
		label, score = "neutral", neu
	}
	if neg > score {
		label, score = "negative", neg
	}
	return label, score
}

func (r *Remote) decodeHate(requested []wireSentence, resp selectionResponse) ([]annotation.Annotation, error) {
	if len(resp.Hate) > len(requested) {
		return nil, fmt.Errorf("stage %q: %d hate scores for %d sentences: %w", r.name, len(resp.Hate), len(requested), ErrStageResponse)
	}
	var out []annotation.Annotation
	for i, h := range resp.Hate {
		var nonHate float64
		if i < len(resp.NonHate) {
			nonHate = resp.NonHate[i]
		}
		out = append(out, annotation.Hate{
			Span:    annotation.Span{Begin: requested[i].Begin, End: requested[i].End},
			Hate:    h,
			NonHate: nonHate,
		})
	}
	return out, nil
}

// processFactCheck sends every linked claim/fact pair and maps the returned
// consistency scores back onto the pairs by position.
func (r *Remote) processFactCheck(ctx context.Context, doc *annotation.Document) ([]annotation.Annotation, error) {
	pairs := doc.Store().Pairs()
	if len(pairs) == 0 {
		r.logf("stage %q: no claim/fact pairs to check", r.name)
		return nil, nil
	}

	req := factCheckRequest{Text: doc.Text, Lang: doc.Language}
	for _, p := range pairs {
		claim := p.Claim.Annotation.(annotation.Claim)
		fact := p.Fact.Annotation.(annotation.Fact)
		wc := wireClaim{Begin: claim.Span.Begin, End: claim.Span.End, Text: claim.Value}
		wf := wireFact{Begin: fact.Span.Begin, End: fact.Span.End, Text: fact.Value}
		wc.Facts = []wireFact{wf}
		wf.Claims = []wireClaim{{Begin: wc.Begin, End: wc.End, Text: wc.Text}}
		req.ClaimsAll = append(req.ClaimsAll, wc)
		req.FactsAll = append(req.FactsAll, wf)
	}

	body, err := r.post(ctx, req)
	if err != nil {
		return nil, err
	}

	var resp factCheckResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("stage %q: decode: %v: %w", r.name, err, ErrStageResponse)
	}
	if len(resp.Consistency) != len(pairs) {
		return nil, fmt.Errorf("stage %q: %d scores for %d pairs: %w", r.name, len(resp.Consistency), len(pairs), ErrStageResponse)
	}

	out := make([]annotation.Annotation, 0, len(pairs))
	for i, score := range resp.Consistency {
		if score < 0 || score > 1 {
			return nil, fmt.Errorf("stage %q: consistency %g outside [0,1]: %w", r.name, score, ErrStageResponse)
		}
		out = append(out, annotation.FactCheck{
			Span:        pairs[i].Claim.Bounds(),
			ClaimID:     pairs[i].Claim.ID,
			FactID:      pairs[i].Fact.ID,
			Consistency: score,
		})
	}
	return out, nil
}

// post sends one process request, consulting the response cache first so a
// retried stage is idempotent against the service.
func (r *Remote) post(ctx context.Context, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("stage %q: marshal request: %w", r.name, err)
	}

	var key string
	if r.cache != nil {
		key = cache.Key(r.endpoint, body)
		if cached, ok := r.cache.Get(key); ok {
			r.logf("stage %q: response served from cache", r.name)
			return cached, nil
		}
	}

	if r.limiter != nil {
		if err := r.limiter.Wait(ctx, r.endpoint); err != nil {
			return nil, classify(fmt.Errorf("stage %q: rate limit: %w", r.name, err))
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint+"/v1/process", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("stage %q: create request: %w", r.name, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, classify(fmt.Errorf("stage %q: %w", r.name, err))
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classify(fmt.Errorf("stage %q: read response: %w", r.name, err))
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr wireError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error != "" {
			return nil, fmt.Errorf("stage %q: HTTP %d: %s: %w", r.name, resp.StatusCode, apiErr.Error, ErrStageUnavailable)
		}
		return nil, fmt.Errorf("stage %q: HTTP %d: %w", r.name, resp.StatusCode, ErrStageUnavailable)
	}

	if r.cache != nil {
		_ = r.cache.Set(key, respBody, r.cacheTTL)
	}
	return respBody, nil
}

// classify maps transport failures onto the stage error taxonomy.
func classify(err error) error {
	if errors.Is(err, ErrStageTimeout) || errors.Is(err, ErrStageUnavailable) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%v: %w", err, ErrStageTimeout)
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return fmt.Errorf("%v: %w", err, ErrStageTimeout)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%v: %w", err, ErrStageUnavailable)
}
