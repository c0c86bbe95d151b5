package models

// ConflictLevel grades how much the candidate answers disagree.
type ConflictLevel string

const (
	ConflictLevelLow    ConflictLevel = "low"
	ConflictLevelMedium ConflictLevel = "medium"
	ConflictLevelHigh   ConflictLevel = "high"
)

// Resolution methods. The LLM is instructed to pick from the first four;
// fallback_highest_confidence is engine-assigned when the LLM call fails.
// Accepted as free-form on parse — see DESIGN.md open-question decisions.
const (
	ResolutionConsensusVoting    = "consensus_voting"
	ResolutionRecencyPriority    = "recency_priority"
	ResolutionEvidenceQuality    = "evidence_quality"
	ResolutionCombination        = "combination"
	ResolutionFallbackConfidence = "fallback_highest_confidence"
)

// EvidenceFactors is the per-agent factor breakdown behind a ranking score.
type EvidenceFactors struct {
	Recency           float64 `json:"recency"`
	Consensus         float64 `json:"consensus"`
	Completeness      float64 `json:"completeness"`
	SourceReliability float64 `json:"source_reliability"`
}

// EvidenceRanking scores one agent's answer.
type EvidenceRanking struct {
	AgentName string          `json:"agent_name"`
	Score     float64         `json:"score"`
	Factors   EvidenceFactors `json:"factors"`
}

// EvidenceAnalysis is the engine-computed evidence bag for one response,
// supplied to the resolution LLM alongside the response itself.
type EvidenceAnalysis struct {
	TotalSources         int     `json:"total_sources"`
	ReliableSourcesCount int     `json:"reliable_sources_count"`
	ReliabilityScore     float64 `json:"reliability_score"`
	RecencyScore         float64 `json:"recency_score"`
	CompletenessScore    float64 `json:"completeness_score"`
}

// ConflictResolution is the reconciled outcome when two or more agents
// produced successful answers.
type ConflictResolution struct {
	FinalAnswer         string             `json:"final_answer"`
	WinningAgents       []string           `json:"winning_agents"`
	ConflictLevel       ConflictLevel      `json:"conflict_level"`
	ResolutionMethod    string             `json:"resolution_method"`
	EvidenceRanking     []EvidenceRanking  `json:"evidence_ranking,omitempty"`
	ResolutionReasoning string             `json:"resolution_reasoning,omitempty"`
	CombinedSources     []NormalizedSource `json:"combined_sources,omitempty"`
	ConfidenceScore     float64            `json:"confidence_score"`
}
