// Package catalog loads question bank files (YAML) for seeding the content store.
package catalog

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/examprep/question-api/internal/models"
)

// questionNamespace seeds deterministic ids for questions without one,
// so re-importing the same file updates rows instead of duplicating them
var questionNamespace = uuid.MustParse("3d6f4c1e-8a0b-4f43-9a57-5b0c2f1e9d21")

// Loader reads question bank files and keeps the parsed questions by id
type Loader struct {
	mu               sync.RWMutex
	questions        map[string]models.Question
	requiredLanguage string
}

// NewLoader creates a loader. Every question must carry text in
// requiredLanguage, the language responses fall back to.
func NewLoader(requiredLanguage string) *Loader {
	if requiredLanguage == "" {
		requiredLanguage = "fr"
	}
	return &Loader{
		questions:        make(map[string]models.Question),
		requiredLanguage: requiredLanguage,
	}
}

// LoadFromDir loads every YAML file in dir and its direct subdirectories.
// Broken files are logged and skipped; the error is only for an unreadable dir.
func (l *Loader) LoadFromDir(dir string) error {
	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("failed to read question bank dir: %w", err)
	}

	var files []string
	for _, pattern := range []string{"*.yaml", "*.yml", filepath.Join("*", "*.yaml"), filepath.Join("*", "*.yml")} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			continue
		}
		files = append(files, matches...)
	}
	sort.Strings(files)

	loaded := 0
	for _, file := range files {
		n, err := l.LoadFromFile(file)
		if err != nil {
			slog.Warn("failed to load question bank file", "file", file, "error", err)
			continue
		}
		loaded += n
	}

	slog.Info("question bank loaded", "dir", dir, "files", len(files), "questions", loaded)
	return nil
}

// LoadFromFile parses one bank file and returns how many questions it added
func (l *Loader) LoadFromFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read file: %w", err)
	}

	var bf bankFile
	if err := yaml.Unmarshal(data, &bf); err != nil {
		return 0, fmt.Errorf("failed to parse YAML: %w", err)
	}

	questions, err := l.convert(bf)
	if err != nil {
		return 0, err
	}

	l.mu.Lock()
	for _, q := range questions {
		l.questions[q.ID] = q
	}
	l.mu.Unlock()

	return len(questions), nil
}

func (l *Loader) convert(bf bankFile) ([]models.Question, error) {
	level := models.Level(strings.ToUpper(strings.TrimSpace(bf.Level)))
	if !validLevel(level) {
		return nil, fmt.Errorf("unknown level %q", bf.Level)
	}
	if bf.Theme == "" {
		return nil, fmt.Errorf("theme is required")
	}

	questions := make([]models.Question, 0, len(bf.Questions))
	for i, entry := range bf.Questions {
		q, err := l.convertEntry(level, bf.Theme, bf.Premium, entry)
		if err != nil {
			return nil, fmt.Errorf("question %d: %w", i+1, err)
		}
		questions = append(questions, q)
	}
	return questions, nil
}

func (l *Loader) convertEntry(level models.Level, theme string, filePremium bool, e questionEntry) (models.Question, error) {
	qType := models.QuestionType(strings.ToLower(strings.TrimSpace(e.Type)))
	if qType == "" {
		qType = models.QuestionTypeKnowledge
	}
	if qType != models.QuestionTypeKnowledge && qType != models.QuestionTypeSituational {
		return models.Question{}, fmt.Errorf("unknown question type %q", e.Type)
	}

	base, ok := e.Content[l.requiredLanguage]
	if !ok || base.Question == "" {
		return models.Question{}, fmt.Errorf("missing %q text", l.requiredLanguage)
	}
	if e.CorrectAnswer < 0 || e.CorrectAnswer >= len(base.Options) {
		return models.Question{}, fmt.Errorf("correct_answer %d out of range for %d options", e.CorrectAnswer, len(base.Options))
	}
	for lang, c := range e.Content {
		if _, err := language.Parse(lang); err != nil {
			return models.Question{}, fmt.Errorf("invalid language key %q: %w", lang, err)
		}
		if c.Options != nil && len(c.Options) != len(base.Options) {
			return models.Question{}, fmt.Errorf("%q has %d options, %q has %d", lang, len(c.Options), l.requiredLanguage, len(base.Options))
		}
	}

	id := strings.TrimSpace(e.ID)
	if id == "" {
		id = uuid.NewSHA1(questionNamespace, []byte(string(level)+"/"+theme+"/"+base.Question)).String()
	} else if _, err := uuid.Parse(id); err != nil {
		return models.Question{}, fmt.Errorf("invalid id %q: %w", e.ID, err)
	}

	premium := filePremium
	if e.Premium != nil {
		premium = *e.Premium
	}

	return models.Question{
		ID:            id,
		Level:         level,
		Theme:         theme,
		QuestionType:  qType,
		Content:       e.Content,
		CorrectAnswer: e.CorrectAnswer,
		IsPremium:     premium,
	}, nil
}

// Questions returns loaded questions ordered by level, theme and id
func (l *Loader) Questions() []models.Question {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make([]models.Question, 0, len(l.questions))
	for _, q := range l.questions {
		result = append(result, q)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Level != result[j].Level {
			return result[i].Level < result[j].Level
		}
		if result[i].Theme != result[j].Theme {
			return result[i].Theme < result[j].Theme
		}
		return result[i].ID < result[j].ID
	})
	return result
}

// Get returns a loaded question by id
func (l *Loader) Get(id string) (models.Question, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	q, ok := l.questions[id]
	return q, ok
}

func validLevel(level models.Level) bool {
	for _, known := range models.Levels {
		if level == known {
			return true
		}
	}
	return false
}

// --- YAML file structs ---

// bankFile is one question bank file: a level/theme pair and its questions
type bankFile struct {
	Level     string          `yaml:"level"`
	Theme     string          `yaml:"theme"`
	Premium   bool            `yaml:"premium"`
	Questions []questionEntry `yaml:"questions"`
}

type questionEntry struct {
	ID            string                 `yaml:"id"`
	Type          string                 `yaml:"type"`
	CorrectAnswer int                    `yaml:"correct_answer"`
	Premium       *bool                  `yaml:"premium"`
	Content       models.QuestionContent `yaml:"content"`
}
