package questions

import (
	"github.com/examprep/question-api/internal/models"
)

// DefaultFallbackLanguage is used when a row has no text in the requested language
const DefaultFallbackLanguage = "fr"

// Localizer resolves multi-language question content to a single language
type Localizer struct {
	Fallback string
}

// Shape converts rows to views in language using the default fallback
func Shape(rows []models.Question, lang string) []models.QuestionView {
	return Localizer{Fallback: DefaultFallbackLanguage}.Shape(rows, lang)
}

// Shape converts rows to views, one per row and in the same order.
// Rows are not modified.
func (l Localizer) Shape(rows []models.Question, lang string) []models.QuestionView {
	keys := l.candidates(lang)

	views := make([]models.QuestionView, len(rows))
	for i := range rows {
		views[i] = localize(rows[i], keys)
	}
	return views
}

// candidates lists content keys to try: the requested key exactly as sent,
// then the fallback. No other variant of the key is tried.
func (l Localizer) candidates(lang string) []string {
	fallback := l.Fallback
	if fallback == "" {
		fallback = DefaultFallbackLanguage
	}

	if lang == "" || lang == fallback {
		return []string{fallback}
	}
	return []string{lang, fallback}
}

// localize resolves each text field independently: a field falls back when
// it is missing in the preferred language even if sibling fields are present
func localize(q models.Question, keys []string) models.QuestionView {
	view := models.QuestionView{
		ID:            q.ID,
		Level:         q.Level,
		Theme:         q.Theme,
		Type:          q.QuestionType,
		CorrectAnswer: q.CorrectAnswer,
		IsPremium:     q.IsPremium,
	}

	for _, k := range keys {
		c, ok := q.Content[k]
		if !ok {
			continue
		}
		if view.Question == "" {
			view.Question = c.Question
		}
		if view.Options == nil && c.Options != nil {
			view.Options = make([]string, len(c.Options))
			copy(view.Options, c.Options)
		}
		if view.Explanation == "" {
			view.Explanation = c.Explanation
		}
	}

	return view
}
