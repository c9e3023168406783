package models

// Level is the exam level a question belongs to
type Level string

const (
	LevelCSP Level = "CSP"
	LevelCR  Level = "CR"
	LevelNAT Level = "NAT"
)

// Levels lists every known exam level in display order
var Levels = []Level{LevelCSP, LevelCR, LevelNAT}

// QuestionType distinguishes knowledge questions from situational ones
type QuestionType string

const (
	QuestionTypeKnowledge   QuestionType = "knowledge"
	QuestionTypeSituational QuestionType = "situational"
)

// LocalizedContent is the text of a question in one language.
// Options is nil when the key was absent from the stored document.
type LocalizedContent struct {
	Question    string   `json:"question" yaml:"question"`
	Options     []string `json:"options" yaml:"options"`
	Explanation string   `json:"explanation" yaml:"explanation"`
}

// QuestionContent maps a language code to its localized text
type QuestionContent map[string]LocalizedContent

// Question is a row of the questions table
type Question struct {
	ID            string          `json:"id"`
	Level         Level           `json:"level"`
	Theme         string          `json:"theme"`
	QuestionType  QuestionType    `json:"question_type"`
	Content       QuestionContent `json:"content"`
	CorrectAnswer int             `json:"correct_answer"`
	IsPremium     bool            `json:"is_premium"`
}

// QuestionView is a question resolved to a single language for a response
type QuestionView struct {
	ID            string       `json:"id"`
	Level         Level        `json:"level"`
	Theme         string       `json:"theme"`
	Type          QuestionType `json:"type"`
	Question      string       `json:"question,omitempty"`
	Options       []string     `json:"options,omitempty"`
	Explanation   string       `json:"explanation,omitempty"`
	CorrectAnswer int          `json:"correctAnswer"`
	IsPremium     bool         `json:"isPremium"`
}

// QuestionQuery holds the raw query parameters of a question request
type QuestionQuery struct {
	Level    string
	Theme    string
	Language string
	Limit    string
}

// QuestionFilters is the store-level filter set for listing questions
type QuestionFilters struct {
	Level          string
	Theme          string
	ExcludePremium bool
	Limit          int
}

// LevelBreakdown counts questions per exam level
type LevelBreakdown struct {
	Total  int           `json:"total_questions"`
	Counts map[Level]int `json:"breakdown"`
}
