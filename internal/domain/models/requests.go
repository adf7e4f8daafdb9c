package models

// Requests for ops HTTP endpoints. Defined in domain for consistency and reuse.

type AnalyzeRequest struct {
	Signature string `query:"signature" json:"signature" validate:"required,min=64"`
	Exchange  string `query:"exchange" json:"exchange" default:"raydium" validate:"oneof=raydium pumpfun"`
}

type PollRequest struct {
	Exchange string `query:"exchange" json:"exchange" validate:"required,oneof=raydium pumpfun"`
	Limit    int    `query:"limit" json:"limit" default:"25" validate:"gte=1,lte=100"`
}
