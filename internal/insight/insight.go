// Package insight turns session history into a short natural language
// summary using Gemini.
package insight

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/Thrusbalda/auto-work-log/internal/metrics"
	"github.com/Thrusbalda/auto-work-log/internal/model"
)

const DefaultModel = "gemini-3-flash-preview"

const (
	MessageNoSessions  = "No work sessions recorded yet."
	MessageEmpty       = "Could not generate insights."
	MessageUnavailable = "Unable to generate AI insights at this moment. Please check your connection."
)

// Summarizer produces a text insight for a session history.
type Summarizer interface {
	Summarize(ctx context.Context, sessions []model.WorkSession) string
}

// generator is the slice of the genai client the summarizer needs.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type GeminiSummarizer struct {
	models  generator
	model   string
	loc     *time.Location
	logger  *zap.Logger
	metrics metrics.Recorder
}

func NewGeminiSummarizer(ctx context.Context, apiKey, modelName string, loc *time.Location, logger *zap.Logger, rec metrics.Recorder) (*GeminiSummarizer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return newSummarizer(client.Models, modelName, loc, logger, rec), nil
}

func newSummarizer(models generator, modelName string, loc *time.Location, logger *zap.Logger, rec metrics.Recorder) *GeminiSummarizer {
	if modelName == "" {
		modelName = DefaultModel
	}
	if loc == nil {
		loc = time.UTC
	}
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &GeminiSummarizer{models: models, model: modelName, loc: loc, logger: logger, metrics: rec}
}

// Summarize never fails: problems with the remote call are reported as a
// fixed message and logged.
func (g *GeminiSummarizer) Summarize(ctx context.Context, sessions []model.WorkSession) string {
	if len(sessions) == 0 {
		g.metrics.RecordInsight("no_sessions")
		return MessageNoSessions
	}

	prompt, err := BuildPrompt(sessions, g.loc)
	if err != nil {
		g.logger.Error("build insight prompt", zap.Error(err))
		g.metrics.RecordInsight("error")
		return MessageUnavailable
	}

	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		g.logger.Error("gemini request failed", zap.String("model", g.model), zap.Error(err))
		g.metrics.RecordInsight("error")
		return MessageUnavailable
	}

	text := ""
	if resp != nil {
		text = strings.TrimSpace(resp.Text())
	}
	if text == "" {
		g.metrics.RecordInsight("empty")
		return MessageEmpty
	}

	g.metrics.RecordInsight("ok")
	return text
}

type SessionSummary struct {
	Date            string `json:"date"`
	Start           string `json:"start"`
	End             string `json:"end"`
	DurationMinutes int64  `json:"durationMinutes"`
}

// Summaries reduces closed sessions to the fields sent to the model.
func Summaries(sessions []model.WorkSession, loc *time.Location) []SessionSummary {
	out := make([]SessionSummary, 0, len(sessions))
	for _, s := range sessions {
		if s.Open() {
			continue
		}
		start := s.StartTime.In(loc)
		end := s.EndTime.In(loc)
		out = append(out, SessionSummary{
			Date:            start.Format("2006-01-02"),
			Start:           start.Format("15:04:05"),
			End:             end.Format("15:04:05"),
			DurationMinutes: int64(math.Round(end.Sub(start).Minutes())),
		})
	}
	return out
}

func BuildPrompt(sessions []model.WorkSession, loc *time.Location) (string, error) {
	data, err := json.Marshal(Summaries(sessions, loc))
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("Analyze the following work log data for this month.\n")
	fmt.Fprintf(&b, "Data: %s\n\n", data)
	b.WriteString("Provide a friendly, 2-paragraph summary.\n")
	b.WriteString("1. First paragraph: Total hours worked, average daily hours, and any patterns (e.g., late starts, long days).\n")
	b.WriteString("2. Second paragraph: A brief work-life balance tip based on the data.\n\n")
	b.WriteString("Keep the tone professional but encouraging.")
	return b.String(), nil
}
