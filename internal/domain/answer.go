package domain

// Overrides are the per-request knobs a caller may set on /ask and /chat.
type Overrides struct {
	Top                      int     `json:"top,omitempty"`
	Temperature              float64 `json:"temperature,omitempty"`
	ExcludeCategory          string  `json:"exclude_category,omitempty"`
	SemanticRanker           bool    `json:"semantic_ranker,omitempty"`
	PromptTemplate           string  `json:"prompt_template,omitempty"`
	SuggestFollowupQuestions bool    `json:"suggest_followup_questions,omitempty"`
}

// Answer is the result of running an approach: the generated answer, the
// supporting citations and the reasoning transcript.
type Answer struct {
	Answer     string   `json:"answer"`
	Thoughts   string   `json:"thoughts"`
	DataPoints []string `json:"data_points"`
}

// ChatTurn is one exchange in a chat history. Bot is empty on the last
// turn, which carries the pending user question.
type ChatTurn struct {
	User string `json:"user"`
	Bot  string `json:"bot,omitempty"`
}
