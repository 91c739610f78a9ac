package advisor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/your-org/candle-trade-bot/internal/indicator"
)

// OpenAIOracle asks a chat model for a trading opinion. The model is
// instructed to answer with a strict JSON object; anything unparsable is an
// error, not a trade.
type OpenAIOracle struct {
	client *openai.Client
	model  string
}

// NewOpenAIOracle creates an oracle backed by the given API key.
func NewOpenAIOracle(apiKey, model string) *OpenAIOracle {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIOracle{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

// Recommend sends the market context to the model and parses its JSON reply.
func (o *OpenAIOracle) Recommend(ctx context.Context, mc MarketContext) (*Recommendation, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleSystem,
				Content: `You are a trading assistant. Reply with a single JSON object and nothing else: ` +
					`{"recommendation":"buy"|"sell"|"hold","confidence":<0-100>,"reasoning":"<one sentence>"}`,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: buildPrompt(mc),
			},
		},
		Temperature: 0.2,
	})
	if err != nil {
		return nil, fmt.Errorf("advisory call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("advisory call: empty response")
	}

	return parseRecommendation(resp.Choices[0].Message.Content)
}

func buildPrompt(mc MarketContext) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Symbol: %s (%s), current price %.4f\n", mc.Symbol, mc.Timeframe, mc.Price)
	if s := mc.Snapshot; s != nil {
		fmt.Fprintf(&sb, "Trend: %s\n", s.Trend)
		if indicator.Defined(s.RSI) {
			fmt.Fprintf(&sb, "RSI(14): %.2f\n", s.RSI)
		}
		if indicator.Defined(s.MACDHist) {
			fmt.Fprintf(&sb, "MACD histogram: %.6f\n", s.MACDHist)
		}
		if indicator.Defined(s.BBUpper) {
			fmt.Fprintf(&sb, "Bollinger bands: %.4f / %.4f / %.4f\n", s.BBUpper, s.BBMiddle, s.BBLower)
		}
		if indicator.Defined(s.StochK) {
			fmt.Fprintf(&sb, "Stochastic %%K/%%D: %.2f / %.2f\n", s.StochK, s.StochD)
		}
		fmt.Fprintf(&sb, "Support %.4f, resistance %.4f\n", s.Support, s.Resistance)
	}
	if len(mc.Patterns) > 0 {
		sb.WriteString("Candlestick patterns: ")
		for i, p := range mc.Patterns {
			if i > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "%s (%s)", p.Name, p.Type)
		}
		sb.WriteString("\n")
	}
	sb.WriteString("Should I buy, sell, or hold right now?")
	return sb.String()
}

func parseRecommendation(content string) (*Recommendation, error) {
	content = strings.TrimSpace(content)
	// Models occasionally wrap JSON in a code fence.
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var rec Recommendation
	if err := json.Unmarshal([]byte(content), &rec); err != nil {
		return nil, fmt.Errorf("parsing advisory reply: %w", err)
	}
	switch rec.Action {
	case ActionBuy, ActionSell, ActionHold:
	default:
		return nil, fmt.Errorf("parsing advisory reply: unknown recommendation %q", rec.Action)
	}
	if rec.Confidence < 0 {
		rec.Confidence = 0
	}
	if rec.Confidence > 100 {
		rec.Confidence = 100
	}
	return &rec, nil
}
