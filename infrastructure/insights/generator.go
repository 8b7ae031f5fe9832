package insights

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/ahrav/go-merit/internal/domain"
	"github.com/ahrav/go-merit/internal/ports"
)

var validate = validator.New()

const generatorSystemPrompt = `You are an HR analyst at a school. You review ` +
	`aggregated multi-rater performance evaluations and produce short, ` +
	`constructive summaries for staff development conversations. Respond ` +
	`only with a JSON object containing the keys "summary", "strengths", ` +
	`"growth_areas", and "recommendation". Keep each value under 80 words.`

// GeneratorConfig controls how result narratives are requested from the
// language model.
type GeneratorConfig struct {
	// Temperature controls generation randomness. Lower values keep the
	// analysis consistent across regenerations.
	Temperature float64 `validate:"min=0,max=2"`

	// MaxTokens caps the length of the generated analysis.
	MaxTokens int `validate:"min=1,max=8192"`
}

// DefaultGeneratorConfig returns settings tuned for short, repeatable
// analysis payloads.
func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		Temperature: 0.3,
		MaxTokens:   1024,
	}
}

// Generator produces narrative analysis for aggregated evaluation results.
// It implements the InsightsGenerator port and is invoked by the
// coordinator after aggregation completes, never inside it.
type Generator struct {
	client *Client
	config GeneratorConfig
}

// NewGenerator creates a Generator backed by the given provider client.
func NewGenerator(client *Client, config GeneratorConfig) (*Generator, error) {
	if client == nil {
		return nil, fmt.Errorf("client is required")
	}
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("invalid generator config: %w", err)
	}
	return &Generator{client: client, config: config}, nil
}

// GenerateInsights builds an analysis prompt from the aggregated result and
// returns the model's structured response. When the model does not return
// valid JSON, the raw text is preserved under the "narrative" key rather
// than discarded.
func (g *Generator) GenerateInsights(ctx context.Context, result domain.EvaluationResult) (map[string]any, error) {
	tracer := otel.Tracer("insights")
	ctx, span := tracer.Start(ctx, "generator.generate_insights")
	defer span.End()

	span.SetAttributes(
		attribute.String("evaluee.id", result.EvalueeID.String()),
		attribute.String("cycle.id", result.CycleID.String()),
	)

	prompt := buildResultPrompt(result)

	response, tokensIn, tokensOut, err := g.client.CompleteWithUsage(ctx, prompt, map[string]any{
		"system":      generatorSystemPrompt,
		"temperature": g.config.Temperature,
		"max_tokens":  g.config.MaxTokens,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insight generation failed")
		return nil, fmt.Errorf("insight generation failed: %w", err)
	}

	span.SetAttributes(
		attribute.Int("tokens.in", tokensIn),
		attribute.Int("tokens.out", tokensOut),
	)

	return parseInsightsResponse(response), nil
}

// buildResultPrompt renders the aggregated result as a compact plain-text
// report for the model. Scores that were never submitted are reported as
// missing, not as zero.
func buildResultPrompt(result domain.EvaluationResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Staff member: %s (%s, %s staff)\n",
		result.EvalueeName, result.EvalueeDepartment, result.EvalueeStaffType)
	fmt.Fprintf(&b, "Evaluation completion: %.0f%% (%d of %d expected ratings)\n",
		result.CompletionPercentage, result.ReceivedRatings, result.TotalExpectedRatings)

	b.WriteString("\nScores on a 1-10 scale:\n")
	writeScoreLine(&b, "Final weighted score", result.FinalScore)
	writeScoreLine(&b, "Self assessment", result.SelfScore)
	writeScoreLine(&b, "Peer average", result.PeerScoresAvg)
	writeScoreLine(&b, "Supervisor", result.SupervisorScore)
	writeScoreLine(&b, "CEO", result.CEOScore)
	writeScoreLine(&b, "PC head", result.PCHeadScore)

	if result.ScoreVariance != nil {
		fmt.Fprintf(&b, "\nScore variance across raters: %.2f", *result.ScoreVariance)
		if result.HasHighVariance {
			b.WriteString(" (flagged as unusually high disagreement)")
		}
		b.WriteString("\n")
	}

	if result.AggregatedStrengths != "" {
		fmt.Fprintf(&b, "\nStrengths noted by raters:\n%s\n", result.AggregatedStrengths)
	}
	if result.AggregatedImprovements != "" {
		fmt.Fprintf(&b, "\nImprovement areas noted by raters:\n%s\n", result.AggregatedImprovements)
	}

	b.WriteString("\nWrite the analysis JSON for this staff member.")

	return b.String()
}

func writeScoreLine(b *strings.Builder, label string, score *float64) {
	if score == nil {
		fmt.Fprintf(b, "- %s: not submitted\n", label)
		return
	}
	fmt.Fprintf(b, "- %s: %.2f\n", label, *score)
}

// parseInsightsResponse decodes the model's JSON payload. Models sometimes
// wrap JSON in markdown fences, so those are stripped first. A response that
// still fails to decode is kept verbatim under "narrative".
func parseInsightsResponse(response string) map[string]any {
	cleaned := strings.TrimSpace(response)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var payload map[string]any
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil || len(payload) == 0 {
		return map[string]any{"narrative": strings.TrimSpace(response)}
	}

	return payload
}

// Compile-time verification that Generator implements InsightsGenerator.
var _ ports.InsightsGenerator = (*Generator)(nil)
