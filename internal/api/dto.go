package api

import (
	"github.com/starford/wunjo/internal/aggregator"
	"github.com/starford/wunjo/internal/analyzer"
	"github.com/starford/wunjo/internal/chat"
	"github.com/starford/wunjo/internal/llm"
)

// ChatRequest is the request body for POST /chat and POST /chat/estimate.
type ChatRequest struct {
	Message string `json:"message" example:"What did I finish this week?" validate:"required"`
}

// ChatResponse is one assistant turn.
type ChatResponse struct {
	Reply      string           `json:"reply" validate:"required"`
	Intent     analyzer.Intent  `json:"intent" example:"TASK_STATUS" validate:"required"`
	Confidence float64          `json:"confidence" example:"0.9"`
	DataUsed   *aggregator.Data `json:"dataUsed,omitempty"`
}

// HistoryResponse lists the stored conversation.
type HistoryResponse struct {
	Messages []chat.Turn `json:"messages" validate:"required"`
	Limit    int         `json:"limit" example:"20" validate:"required"`
}

// ConnectionResponse reports a provider connection test.
type ConnectionResponse struct {
	OK       bool           `json:"ok"`
	Provider llm.ProviderID `json:"provider" example:"gemini"`
	Model    string         `json:"model" example:"gemini-2.0-flash"`
}

// EstimateResponse is the price estimate for one turn.
type EstimateResponse struct {
	EstimatedTokens int `json:"estimatedTokens" example:"212"`
	llm.Cost
}

// ProvidersResponse lists supported providers and the recommended one.
type ProvidersResponse struct {
	Providers   []llm.Info         `json:"providers" validate:"required"`
	Recommended llm.Recommendation `json:"recommended" validate:"required"`
}

// SummaryResponse is aggregated workspace data without an assistant turn.
type SummaryResponse = aggregator.Data

// AnalyzeResponse is the classification of a query.
type AnalyzeResponse = analyzer.Result
