package lighthouse

import (
	"context"
	"errors"
	"log/slog"
	"math"

	"github.com/google/uuid"
)

// Rejection reasons exposed to callers. These are API surface: the
// dashboard and downstream consumers match on them verbatim.
const (
	ReasonDownloadFailed = "Could not download image"
	ReasonNotRelevant    = "Not relevant to prompt"
	ReasonBlurry         = "Image is blurry"
	ReasonUnprocessable  = "Could not process image"
)

// ValidationRequest describes one inbound submission. Immutable, one per
// pipeline run.
type ValidationRequest struct {
	MediaURL      string
	RespondentID  string
	ClientAddress string
}

// ValidationResult is the sole externally visible output of a pipeline run.
// Valid is true iff Reasons is empty.
type ValidationResult struct {
	Valid         bool     `json:"valid"`
	Reasons       []string `json:"reasons"`
	Score         float64  `json:"score"`
	MatchedPrompt string   `json:"matched_prompt"`
	Geo           GeoInfo  `json:"geo"`
	Error         string   `json:"error,omitempty"`
}

// DecisionRecorder is the persistence seam for the pipeline; *Store is the
// production implementation.
type DecisionRecorder interface {
	Append(ctx context.Context, rec *DecisionLog) error
}

// Pipeline sequences fetch, quality inspection, relevance scoring,
// fingerprinting, geo enrichment and recording into a single verdict.
// It is the only place a ValidationResult is constructed. Safe for
// concurrent use: runs share only the scorer's read-only model state.
type Pipeline struct {
	fetcher       *Fetcher
	inspector     *Inspector
	scorer        Scorer
	geo           *GeoEnricher
	store         DecisionRecorder
	minConfidence float64
	log           *slog.Logger
}

// PipelineOptions wires the pipeline's components. Fetcher, Scorer and
// Store are required; the rest default.
type PipelineOptions struct {
	Fetcher       *Fetcher
	Inspector     *Inspector
	Scorer        Scorer
	Geo           *GeoEnricher
	Store         DecisionRecorder
	MinConfidence float64 // default 0.30
	Logger        *slog.Logger
}

func NewPipeline(opts PipelineOptions) (*Pipeline, error) {
	if opts.Fetcher == nil {
		return nil, errors.New("pipeline: fetcher required")
	}
	if opts.Scorer == nil {
		return nil, errors.New("pipeline: scorer required")
	}
	if opts.Store == nil {
		return nil, errors.New("pipeline: store required")
	}
	p := &Pipeline{
		fetcher:       opts.Fetcher,
		inspector:     opts.Inspector,
		scorer:        opts.Scorer,
		geo:           opts.Geo,
		store:         opts.Store,
		minConfidence: opts.MinConfidence,
		log:           opts.Logger,
	}
	if p.inspector == nil {
		p.inspector = NewInspector(0)
	}
	if p.geo == nil {
		p.geo = NewGeoEnricher(GeoEnricherOptions{})
	}
	if p.minConfidence <= 0 {
		p.minConfidence = DefaultMinConfidence
	}
	if p.log == nil {
		p.log = slog.Default()
	}
	return p, nil
}

// Validate runs the full pipeline for one request and returns the verdict.
// Every attempt is recorded, fetch failures included (those get a degraded
// row). A store failure is logged but the computed verdict is still
// returned to the caller.
func (p *Pipeline) Validate(ctx context.Context, req ValidationRequest) ValidationResult {
	attemptID := uuid.NewString()
	log := p.log.With("attempt_id", attemptID, "respondent", req.RespondentID)

	rec := &DecisionLog{
		AttemptID:  attemptID,
		Respondent: req.RespondentID,
		IP:         req.ClientAddress,
	}

	img, err := p.fetcher.Fetch(ctx, req.MediaURL)
	if err != nil {
		log.Warn("media fetch failed", "url", req.MediaURL, "error", err)
		result := ValidationResult{
			Valid:   false,
			Reasons: []string{ReasonDownloadFailed},
			Error:   err.Error(),
		}
		// Degraded record: the audit trail covers failed downloads too.
		result.Geo = p.geo.Lookup(ctx, req.ClientAddress)
		p.record(ctx, log, rec, result, "")
		return result
	}

	reasons := make([]string, 0, 2)

	verdict, scoreErr := p.scorer.Score(ctx, img)
	if scoreErr != nil {
		log.Warn("relevance scoring failed", "url", req.MediaURL, "error", scoreErr)
		reasons = append(reasons, ReasonUnprocessable)
	} else if verdict.Confidence < p.minConfidence {
		reasons = append(reasons, ReasonNotRelevant)
	}

	quality := p.inspector.Inspect(img.Image)
	if quality.IsBlurry {
		reasons = append(reasons, ReasonBlurry)
	}

	fp := ExtractFingerprint(img.Image)

	result := ValidationResult{
		Valid:         len(reasons) == 0,
		Reasons:       reasons,
		Score:         roundScore(verdict.Confidence),
		MatchedPrompt: verdict.MatchedLabel,
		Geo:           p.geo.Lookup(ctx, req.ClientAddress),
	}

	if meta := ExtractImageMetadata(img.Raw); meta != nil {
		rec.Artist = meta.Artist
		rec.Copyright = meta.Copyright
	}

	log.Info("validation complete",
		"valid", result.Valid,
		"score", result.Score,
		"matched_prompt", result.MatchedPrompt,
		"sharpness", quality.SharpnessScore,
		"reasons", reasons)

	p.record(ctx, log, rec, result, fp)
	return result
}

// record fills the decision row from the result and appends it. Store
// failures are surfaced in the log, never to the submitting caller.
func (p *Pipeline) record(ctx context.Context, log *slog.Logger, rec *DecisionLog, result ValidationResult, fp Fingerprint) {
	rec.Country = result.Geo.Country
	rec.Region = result.Geo.Region
	rec.Valid = result.Valid
	rec.ClipScore = result.Score
	rec.MatchedPrompt = result.MatchedPrompt
	rec.PHash = string(fp)
	rec.Reasons = joinReasons(result.Reasons)
	rec.Error = result.Error

	if err := p.store.Append(ctx, rec); err != nil {
		log.Error("decision record append failed", "error", err)
	}
}

func roundScore(v float64) float64 {
	return math.Round(v*100) / 100
}
