package lighthouse

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/disintegration/imaging"
)

// DefaultMinConfidence is the relevance probability below which the
// orchestrator rejects an image as off-prompt. The scorer itself never
// applies it; it only reports the distribution.
const DefaultMinConfidence = 0.30

// RelevanceVerdict is the best-matching prompt and its probability under
// the scorer's distribution over the candidate prompt set.
type RelevanceVerdict struct {
	MatchedLabel string
	Confidence   float64
}

// Scorer scores a decoded image against a fixed prompt set.
type Scorer interface {
	Score(ctx context.Context, img *DecodedImage) (RelevanceVerdict, error)
}

// ScoringError reports that the relevance model could not process an image.
// Unlike geo lookups this is never swallowed: a corrupt image must not pass
// as relevant.
type ScoringError struct {
	Err error
}

func (e *ScoringError) Error() string { return fmt.Sprintf("relevance scoring: %v", e.Err) }

func (e *ScoringError) Unwrap() error { return e.Err }

const (
	// inferenceEdge is the longest side an image is scaled to before it is
	// shipped to the embedding service. CLIP-family models downsample to
	// 224px internally; sending more is wasted bandwidth.
	inferenceEdge = 336

	defaultScoreTimeout = 15 * time.Second

	// logitScale matches the frozen temperature the model was trained with.
	logitScale = 100.0
)

// ClipScorer scores images against text prompts using a frozen multimodal
// embedding model served over HTTP. The prompt embeddings are fetched once
// per process on first use and shared read-only across concurrent callers;
// per-call state is confined to the stack.
type ClipScorer struct {
	baseURL string
	apiKey  string
	model   string
	prompts []string
	http    *http.Client

	mu         sync.Mutex
	promptVecs [][]float64
}

// ClipScorerOptions configures a ClipScorer.
type ClipScorerOptions struct {
	BaseURL string   // embedding service, e.g. "http://clip:8000"
	APIKey  string   // optional bearer token
	Model   string   // model identifier sent with every request
	Prompts []string // fixed, ordered candidate prompt set
	Client  *http.Client
	Timeout time.Duration
}

func NewClipScorer(opts ClipScorerOptions) (*ClipScorer, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("clip scorer: base URL required")
	}
	if len(opts.Prompts) == 0 {
		return nil, fmt.Errorf("clip scorer: at least one prompt required")
	}
	client := opts.Client
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultScoreTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	return &ClipScorer{
		baseURL: opts.BaseURL,
		apiKey:  opts.APIKey,
		model:   opts.Model,
		prompts: append([]string(nil), opts.Prompts...),
		http:    client,
	}, nil
}

// Prompts returns the candidate prompt set in scoring order.
func (s *ClipScorer) Prompts() []string { return append([]string(nil), s.prompts...) }

// Score embeds img, compares it against the cached prompt embeddings and
// returns the highest-probability prompt with its softmax probability.
// The first call pays the one-time cost of embedding the prompt set.
func (s *ClipScorer) Score(ctx context.Context, img *DecodedImage) (RelevanceVerdict, error) {
	promptVecs, err := s.promptEmbeddings(ctx)
	if err != nil {
		return RelevanceVerdict{}, &ScoringError{Err: err}
	}

	vec, err := s.embedImage(ctx, img)
	if err != nil {
		return RelevanceVerdict{}, &ScoringError{Err: err}
	}

	sims := make([]float64, len(promptVecs))
	for i, pv := range promptVecs {
		sims[i] = cosineSimilarity(vec, pv)
	}
	probs := softmax(sims, logitScale)

	best := 0
	for i := 1; i < len(probs); i++ {
		if probs[i] > probs[best] {
			best = i
		}
	}
	return RelevanceVerdict{MatchedLabel: s.prompts[best], Confidence: probs[best]}, nil
}

// promptEmbeddings returns the cached prompt embeddings, fetching them on
// first use. A failed fetch is not latched: the next call retries, so a
// transient startup outage of the embedding service heals itself.
func (s *ClipScorer) promptEmbeddings(ctx context.Context) ([][]float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.promptVecs != nil {
		return s.promptVecs, nil
	}
	vecs, err := s.embedPrompts(ctx)
	if err != nil {
		return nil, err
	}
	s.promptVecs = vecs
	return vecs, nil
}

func (s *ClipScorer) embedPrompts(ctx context.Context) ([][]float64, error) {
	payload := map[string]any{
		"model": s.model,
		"texts": s.prompts,
	}
	var resp struct {
		Embeddings [][]float64 `json:"embeddings"`
	}
	if err := s.post(ctx, "/embed/text", payload, &resp); err != nil {
		return nil, err
	}
	if len(resp.Embeddings) != len(s.prompts) {
		return nil, fmt.Errorf("embedding count %d does not match prompt count %d",
			len(resp.Embeddings), len(s.prompts))
	}
	return resp.Embeddings, nil
}

func (s *ClipScorer) embedImage(ctx context.Context, img *DecodedImage) ([]float64, error) {
	preview, err := encodeInferencePreview(img)
	if err != nil {
		return nil, err
	}

	payload := map[string]any{
		"model":     s.model,
		"image":     EncodeBase64(preview),
		"mime_type": "image/jpeg",
	}
	var resp struct {
		Embedding []float64 `json:"embedding"`
	}
	if err := s.post(ctx, "/embed/image", payload, &resp); err != nil {
		return nil, err
	}
	if len(resp.Embedding) == 0 {
		return nil, fmt.Errorf("empty image embedding")
	}
	return resp.Embedding, nil
}

func (s *ClipScorer) post(ctx context.Context, path string, payload, v any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// encodeInferencePreview downscales the image to the inference edge and
// re-encodes it as JPEG for transport.
func encodeInferencePreview(img *DecodedImage) ([]byte, error) {
	scaled := imaging.Fit(img.Image, inferenceEdge, inferenceEdge, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, scaled, imaging.JPEG); err != nil {
		return nil, fmt.Errorf("encode preview: %w", err)
	}
	return buf.Bytes(), nil
}

func cosineSimilarity(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// softmax turns similarity scores into a probability distribution using the
// model's logit scale. Shifting by the max keeps the exponentials finite.
func softmax(sims []float64, scale float64) []float64 {
	maxSim := sims[0]
	for _, v := range sims[1:] {
		if v > maxSim {
			maxSim = v
		}
	}
	out := make([]float64, len(sims))
	var total float64
	for i, v := range sims {
		out[i] = math.Exp(scale * (v - maxSim))
		total += out[i]
	}
	for i := range out {
		out[i] /= total
	}
	return out
}
