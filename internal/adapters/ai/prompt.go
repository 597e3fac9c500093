package ai

import "fmt"

const analysisPromptTemplate = `You are a cryptocurrency market analyst. Analyze the tweet below and respond with ONLY a JSON object, no explanation and no markdown.

The JSON object must contain exactly these keys:
- "significance": "High", "Medium" or "Low"
- "sentiment": "Positive", "Negative" or "Neutral"
- "summary": one neutral sentence under 200 characters

Significance guide:
- High: major regulation or bans, institutional adoption, price moves above 5%%, exchange hacks or failures, major protocol launches
- Medium: partnerships, analyst commentary, minor protocol updates
- Low: memes, generic market chatter, personal opinions

Tweet:
"%s"`

// buildAnalysisPrompt renders the tweet classification prompt
func buildAnalysisPrompt(text string) string {
	return fmt.Sprintf(analysisPromptTemplate, text)
}
