package model

// Bucket is the funnel stage assigned to a conversation.
type Bucket string

const (
	BucketNoContact    Bucket = "NO_CONTACT"
	BucketContactMade  Bucket = "CONTACT_MADE"
	BucketDisqualified Bucket = "DISQUALIFIED"
	BucketComplete     Bucket = "COMPLETE"
)

// Buckets lists every bucket in funnel order.
var Buckets = []Bucket{BucketNoContact, BucketContactMade, BucketDisqualified, BucketComplete}

// AnalysisSource tells where a conversation's analysis text came from.
type AnalysisSource string

const (
	AnalysisCached     AnalysisSource = "llm_cache"
	AnalysisBotDerived AnalysisSource = "agent_bot"
	AnalysisNone       AnalysisSource = "none"
)

// AnalysisSources lists every analysis source.
var AnalysisSources = []AnalysisSource{AnalysisCached, AnalysisBotDerived, AnalysisNone}

// DecisionFlags summarizes the signals behind a bucket.
type DecisionFlags struct {
	HasHumanMessage bool           `json:"has_human_message"`
	IsResolved      bool           `json:"is_resolved"`
	IsDisqualified  bool           `json:"is_disqualified"`
	HasAnalysis     bool           `json:"has_analysis"`
	AnalysisSource  AnalysisSource `json:"analysis_source"`
}

// Decision is the output of classifying one conversation.
type Decision struct {
	Bucket  Bucket        `json:"bucket"`
	Reasons []string      `json:"reasons"`
	Flags   DecisionFlags `json:"flags"`
}

// Analysis is the analysis text extracted from a conversation.
type Analysis struct {
	Text   *string        `json:"analysis"`
	Source AnalysisSource `json:"analysis_source"`
}

// Preview is the last substantive message of a conversation.
type Preview struct {
	Text      *string `json:"text"`
	Author    *string `json:"author"`
	CreatedAt *int64  `json:"created_at"`
}

// LeadCard is the UI-ready summary of a conversation.
type LeadCard struct {
	ConversationID int64          `json:"conversation_id"`
	UUID           string         `json:"uuid"`
	ContactName    *string        `json:"contact_name"`
	ContactPhone   *string        `json:"contact_phone"`
	AssigneeName   *string        `json:"assignee_name"`
	TeamID         *int64         `json:"team_id"`
	TeamName       *string        `json:"team_name"`
	Status         string         `json:"status"`
	UnreadCount    int            `json:"unread_count"`
	LastActivityAt int64          `json:"last_activity_at"`
	Preview        Preview        `json:"preview"`
	Analysis       *string        `json:"analysis"`
	AnalysisSource AnalysisSource `json:"analysis_source"`
	Bucket         Bucket         `json:"bucket,omitempty"`
}

// TeamStats accumulates per-team counters for a single run.
type TeamStats struct {
	TeamID          int64                  `json:"team_id" yaml:"team_id"`
	Total           int                    `json:"total" yaml:"total"`
	Buckets         map[Bucket]int         `json:"buckets" yaml:"buckets"`
	AnalysisAny     int                    `json:"analysis_any" yaml:"analysis_any"`
	AnalysisSources map[AnalysisSource]int `json:"analysis_sources" yaml:"analysis_sources"`
	Disqualified    int                    `json:"disqualified" yaml:"disqualified"`
	Resolved        int                    `json:"resolved" yaml:"resolved"`
}

// NewTeamStats returns zeroed stats with every histogram key present.
func NewTeamStats(teamID int64) *TeamStats {
	s := &TeamStats{
		TeamID:          teamID,
		Buckets:         make(map[Bucket]int, len(Buckets)),
		AnalysisSources: make(map[AnalysisSource]int, len(AnalysisSources)),
	}
	for _, b := range Buckets {
		s.Buckets[b] = 0
	}
	for _, src := range AnalysisSources {
		s.AnalysisSources[src] = 0
	}
	return s
}

// BucketSum returns the sum of the bucket histogram.
func (s *TeamStats) BucketSum() int {
	n := 0
	for _, v := range s.Buckets {
		n += v
	}
	return n
}

// Clone returns a deep copy.
func (s *TeamStats) Clone() *TeamStats {
	c := *s
	c.Buckets = make(map[Bucket]int, len(s.Buckets))
	for k, v := range s.Buckets {
		c.Buckets[k] = v
	}
	c.AnalysisSources = make(map[AnalysisSource]int, len(s.AnalysisSources))
	for k, v := range s.AnalysisSources {
		c.AnalysisSources[k] = v
	}
	return &c
}
