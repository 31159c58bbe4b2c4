package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	genai "google.golang.org/genai"

	"specforge/internal/types"
)

// ErrInvalidResponse marks a model reply that was not the requested JSON.
var ErrInvalidResponse = errors.New("analysis: model returned no usable JSON")

const analysisPrompt = `You are reviewing an OpenAPI specification for an API that was
reverse-engineered from source code.

Return STRICT JSON ONLY:
{
  "findings": [
    {"category":"security|performance","severity":"low|medium|high","target":"METHOD /path","summary":"string"}
  ]
}

Constraints:
- Flag unauthenticated mutating endpoints, missing rate limits, and
  unbounded collection responses.
- Keep findings under 20 items; one sentence each.
- JSON only; no comments or trailing commas.`

// GeminiAnalyzer is a thin wrapper around the official genai client. It only
// focuses on the API call itself; callers decide retries and timeouts.
type GeminiAnalyzer struct {
	cli   *genai.Client
	model string
}

// NewGeminiAnalyzer builds an analyzer for the given model id. The client
// reads its API key from the environment.
func NewGeminiAnalyzer(ctx context.Context, model string) (*GeminiAnalyzer, error) {
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, err
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}
	return &GeminiAnalyzer{cli: cli, model: model}, nil
}

// Analyze sends the spec to the model and decodes its findings.
func (g *GeminiAnalyzer) Analyze(ctx context.Context, spec types.SpecDoc) ([]types.Finding, error) {
	in, _ := json.MarshalIndent(spec, "", "  ")
	full := analysisPrompt + "\n\n[INPUT JSON]\n" + string(in)

	resp, err := g.cli.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: full}}}},
		&genai.GenerateContentConfig{ResponseMIMEType: "application/json"},
	)
	if err != nil {
		return nil, err
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, ErrInvalidResponse
	}
	var out struct {
		Findings []types.Finding `json:"findings"`
	}
	raw := resp.Candidates[0].Content.Parts[0].Text
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return out.Findings, nil
}
