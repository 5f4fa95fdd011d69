package llm

import "unicode/utf8"

// Cost is a request price in US dollars.
type Cost struct {
	InputCost  float64 `json:"inputCost"`
	OutputCost float64 `json:"outputCost"`
	TotalCost  float64 `json:"totalCost"`
	IsFree     bool    `json:"isFree"`
}

// EstimateTokens approximates a token count as one token per four
// characters. It is a rough guide for display, not a billing figure.
func EstimateTokens(text string) int {
	n := utf8.RuneCountInString(text)
	return (n + 3) / 4
}

func costFor(rates Pricing, inputTokens, outputTokens int) Cost {
	in := float64(inputTokens) / 1e6 * rates.InputPerMillion
	out := float64(outputTokens) / 1e6 * rates.OutputPerMillion
	return Cost{
		InputCost:  in,
		OutputCost: out,
		TotalCost:  in + out,
		IsFree:     rates.FreeTokens > 0 && inputTokens < rates.FreeTokens,
	}
}
