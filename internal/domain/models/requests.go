package models

// Requests for the decision HTTP endpoints. Defined in domain for consistency and reuse.

type DecideRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
}

type DecisionsRequest struct {
	Symbol string `query:"symbol" json:"symbol"`
	Limit  int    `query:"limit" json:"limit" default:"100" validate:"gte=1,lte=1000"`
}

type VaRRequest struct {
	Symbol     string  `query:"symbol" json:"symbol" validate:"required"`
	Confidence float64 `query:"confidence" json:"confidence" default:"0.95" validate:"gt=0.5,lt=1"`
	Horizon    int     `query:"horizon" json:"horizon" default:"1" validate:"gte=1,lte=30"`
}

type EncodeRequest struct {
	Value float64 `query:"value" json:"value" validate:"required"`
	Unit  string  `query:"unit" json:"unit" default:"price" validate:"oneof=price rate volume percent"`
}
