package llm

// ModelInfo describes one selectable model.
type ModelInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Speed       string `json:"speed"`
	Recommended bool   `json:"recommended,omitempty"`
}

// Pricing holds per-million-token rates and their display strings.
// FreeTokens is the input volume under which usage is free; zero means the
// provider has no free tier.
type Pricing struct {
	Input            string  `json:"input"`
	Output           string  `json:"output"`
	Display          string  `json:"display"`
	InputPerMillion  float64 `json:"inputPerMillion"`
	OutputPerMillion float64 `json:"outputPerMillion"`
	FreeTokens       int     `json:"freeTokens,omitempty"`
}

// Info is static provider metadata for clients.
type Info struct {
	ID           ProviderID  `json:"id"`
	Name         string      `json:"name"`
	Description  string      `json:"description"`
	DefaultModel string      `json:"defaultModel"`
	Models       []ModelInfo `json:"models"`
	Pricing      Pricing     `json:"pricing"`
	FreeTier     string      `json:"freeTier,omitempty"`
	SignupURL    string      `json:"signupUrl"`
}

var catalog = []Info{
	{
		ID:           Gemini,
		Name:         "Google Gemini",
		Description:  "Fast, reliable, and free tier available",
		DefaultModel: "gemini-2.0-flash",
		Models: []ModelInfo{
			{ID: "gemini-2.0-flash", Name: "Gemini 2.0 Flash", Speed: "Very Fast", Recommended: true},
			{ID: "gemini-2.5-flash", Name: "Gemini 2.5 Flash", Speed: "Very Fast"},
			{ID: "gemini-2.5-pro", Name: "Gemini 2.5 Pro", Speed: "Fast"},
		},
		Pricing: Pricing{
			Input:            "$0.075 per 1M tokens",
			Output:           "$0.30 per 1M tokens",
			Display:          "Free tier: 15 req/min",
			InputPerMillion:  0.075,
			OutputPerMillion: 0.30,
			FreeTokens:       1_000_000,
		},
		FreeTier:  "15 requests/minute",
		SignupURL: "https://aistudio.google.com/app/apikey",
	},
	{
		ID:           Claude,
		Name:         "Anthropic Claude",
		Description:  "Best-in-class reasoning and analysis",
		DefaultModel: "claude-3-5-haiku-20241022",
		Models: []ModelInfo{
			{ID: "claude-3-5-haiku-20241022", Name: "Claude 3.5 Haiku", Speed: "Fast", Recommended: true},
			{ID: "claude-3-5-sonnet-20241022", Name: "Claude 3.5 Sonnet", Speed: "Medium"},
		},
		Pricing: Pricing{
			Input:            "$0.25 per 1M tokens",
			Output:           "$1.25 per 1M tokens",
			Display:          "Pay as you go",
			InputPerMillion:  0.25,
			OutputPerMillion: 1.25,
		},
		SignupURL: "https://console.anthropic.com/settings/keys",
	},
}

// Providers returns metadata for every supported provider.
func Providers() []Info {
	out := make([]Info, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup returns metadata for id.
func Lookup(id ProviderID) (Info, bool) {
	for _, info := range catalog {
		if info.ID == id {
			return info, true
		}
	}
	return Info{}, false
}

// Recommendation is a suggested provider and model.
type Recommendation struct {
	Provider ProviderID `json:"provider"`
	Model    string     `json:"model"`
	Reason   string     `json:"reason"`
}

// Recommend suggests a provider for a budget ("free" or anything else).
func Recommend(budget string) Recommendation {
	if budget == "" || budget == "free" {
		return Recommendation{Provider: Gemini, Model: "gemini-2.0-flash", Reason: "Free tier with 15 requests/minute"}
	}
	return Recommendation{Provider: Gemini, Model: "gemini-2.0-flash", Reason: "Best balance of speed, cost, and quality"}
}
