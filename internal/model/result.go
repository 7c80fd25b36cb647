package model

// Claim represents a single factual assertion extracted from an article
type Claim struct {
	Text string `json:"text"`
}

// ScoredClaim pairs a claim with its truthfulness score. The score is a
// canonical percentage string like "87%"; the JSON field names match the
// explanation payload submitted on-chain.
type ScoredClaim struct {
	Claim string `json:"claim"`
	Score string `json:"score"`
}

// FactCheckResult is the full outcome of one pipeline run. OverallScore is
// the unweighted mean of the per-claim scores formatted as "X.XX%", and is
// also used verbatim as the on-chain verdict. The struct JSON-serializes
// directly into the explanation payload.
type FactCheckResult struct {
	Claims       []ScoredClaim `json:"claims"`
	OverallScore string        `json:"overallScore"`
	BiasScore    string        `json:"biasScore"`
}
