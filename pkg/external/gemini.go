package external

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"

	"github.com/pharmguard-server/internal/domain"
)

const (
	defaultGeminiModel     = "gemini-1.5-flash"
	defaultTemperature     = 0.3
	defaultTopP            = 0.95
	defaultMaxOutputTokens = 1000
)

// GeminiExplainer generates explanations with Google's Gemini API. Responses
// are requested as strict JSON and decoded into the explanation model; any
// field the model leaves blank is filled from the static provider so reports
// never carry half-empty narrative sections.
type GeminiExplainer struct {
	client *genai.Client
	model  *genai.GenerativeModel
	static *StaticExplainer
	logger *logrus.Logger
}

// NewGeminiExplainer creates a Gemini-backed explanation provider.
func NewGeminiExplainer(ctx context.Context, config domain.ExplainerConfig, logger *logrus.Logger) (*GeminiExplainer, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("gemini explainer requires an API key")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(config.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	modelName := config.Model
	if modelName == "" {
		modelName = defaultGeminiModel
	}

	model := client.GenerativeModel(modelName)
	temperature := config.Temperature
	if temperature == 0 {
		temperature = defaultTemperature
	}
	topP := config.TopP
	if topP == 0 {
		topP = defaultTopP
	}
	maxTokens := config.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxOutputTokens
	}
	model.SetTemperature(temperature)
	model.SetTopP(topP)
	model.SetMaxOutputTokens(maxTokens)

	logger.WithFields(logrus.Fields{
		"provider": ProviderGemini,
		"model":    modelName,
	}).Info("Gemini explainer initialized")

	return &GeminiExplainer{
		client: client,
		model:  model,
		static: NewStaticExplainer(),
		logger: logger,
	}, nil
}

// Name identifies the provider in logs and health reports.
func (g *GeminiExplainer) Name() string {
	return ProviderGemini
}

// Explain asks Gemini for a structured explanation of the drug-gene profile.
func (g *GeminiExplainer) Explain(ctx context.Context, req *domain.ExplanationRequest) (*domain.Explanation, error) {
	if req == nil {
		return nil, fmt.Errorf("explanation request cannot be nil")
	}

	resp, err := g.model.GenerateContent(ctx, genai.Text(buildExplanationPrompt(req)))
	if err != nil {
		return nil, fmt.Errorf("failed to generate explanation: %w", err)
	}

	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("gemini returned no candidates for %s", req.Drug)
	}

	raw := fmt.Sprintf("%v", resp.Candidates[0].Content.Parts[0])
	explanation, err := decodeExplanationJSON(raw)
	if err != nil {
		g.logger.WithFields(logrus.Fields{
			"provider": ProviderGemini,
			"drug":     req.Drug,
			"error":    err.Error(),
		}).Warn("Gemini response was not valid explanation JSON")
		return nil, fmt.Errorf("failed to decode gemini response: %w", err)
	}

	g.static.FillMissing(explanation, req)

	g.logger.WithFields(logrus.Fields{
		"provider": ProviderGemini,
		"drug":     req.Drug,
		"gene":     req.Gene,
	}).Debug("Generated explanation")

	return explanation, nil
}

// Close releases the underlying API client.
func (g *GeminiExplainer) Close() error {
	return g.client.Close()
}

// buildExplanationPrompt renders the profile into a generation prompt that
// constrains the model to a fixed JSON shape.
func buildExplanationPrompt(req *domain.ExplanationRequest) string {
	var sb strings.Builder
	sb.WriteString("You are a clinical pharmacogenomics specialist writing for a physician audience.\n\n")

	sb.WriteString("### PATIENT PROFILE ###\n")
	fmt.Fprintf(&sb, "Drug: %s\n", req.Drug)
	fmt.Fprintf(&sb, "Gene: %s\n", req.Gene)
	fmt.Fprintf(&sb, "Diplotype: %s\n", req.Diplotype)
	fmt.Fprintf(&sb, "Phenotype: %s (%s)\n", req.Phenotype, req.Phenotype.Definition())
	fmt.Fprintf(&sb, "Risk assessment: %s, severity %s\n", req.RiskLabel, req.Severity)
	if req.ActivityScore != nil {
		fmt.Fprintf(&sb, "Activity score: %.1f\n", *req.ActivityScore)
	}
	if req.Variants != "" {
		fmt.Fprintf(&sb, "Detected variants: %s\n", req.Variants)
	}
	if req.Action != "" {
		fmt.Fprintf(&sb, "Guideline action: %s\n", req.Action)
	}

	sb.WriteString("\n### INSTRUCTIONS ###\n")
	sb.WriteString("1. Explain what this genotype means for the prescribed drug in plain clinical language.\n")
	sb.WriteString("2. Describe the pharmacokinetic or pharmacodynamic mechanism in one short paragraph.\n")
	sb.WriteString("3. State the clinical consequence and what the prescriber should consider.\n")
	sb.WriteString("4. Cite the relevant CPIC guideline and at most two further references.\n")
	sb.WriteString("5. Do not invent variants, diplotypes, or guideline content beyond the profile above.\n")

	sb.WriteString("\n### OUTPUT FORMAT ###\n")
	sb.WriteString("Respond with a single JSON object and nothing else, using exactly these keys:\n")
	sb.WriteString(`{"summary": "...", "mechanism": "...", "clinical_context": "...", "references": ["..."]}`)

	return sb.String()
}

// decodeExplanationJSON strips markdown fences the model sometimes wraps
// around its output and decodes the JSON payload.
func decodeExplanationJSON(raw string) (*domain.Explanation, error) {
	text := strings.TrimSpace(raw)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
		text = strings.TrimSpace(text)
	}

	var explanation domain.Explanation
	if err := json.Unmarshal([]byte(text), &explanation); err != nil {
		return nil, err
	}

	return &explanation, nil
}
