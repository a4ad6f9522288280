package eitheror

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed questions.yaml
var defaultQuestions []byte

// Question is a single binary-choice prompt.
type Question struct {
	Prompt  string `json:"question" yaml:"question"`
	OptionA string `json:"optionA" yaml:"optionA"`
	OptionB string `json:"optionB" yaml:"optionB"`
}

// Option returns the text for the given choice.
func (q Question) Option(c Choice) string {
	if c == ChoiceB {
		return q.OptionB
	}
	return q.OptionA
}

// QuestionPool is an immutable, ordered set of questions shared by every room.
type QuestionPool struct {
	questions []Question
}

func NewQuestionPool(questions []Question) (*QuestionPool, error) {
	if len(questions) == 0 {
		return nil, ErrNoQuestions
	}

	for i, q := range questions {
		if strings.TrimSpace(q.Prompt) == "" || strings.TrimSpace(q.OptionA) == "" || strings.TrimSpace(q.OptionB) == "" {
			return nil, fmt.Errorf("question %d: prompt and both options are required", i+1)
		}
	}

	return &QuestionPool{questions: append([]Question(nil), questions...)}, nil
}

// DefaultQuestionPool returns the built-in question set.
func DefaultQuestionPool() (*QuestionPool, error) {
	return ParseQuestions(defaultQuestions)
}

// ParseQuestions reads a YAML (or JSON) list of questions.
func ParseQuestions(data []byte) (*QuestionPool, error) {
	var questions []Question
	if err := yaml.Unmarshal(data, &questions); err != nil {
		return nil, fmt.Errorf("parsing questions: %w", err)
	}

	return NewQuestionPool(questions)
}

// LoadQuestions reads the question file at path, or the built-in set when
// path is empty.
func LoadQuestions(path string) (*QuestionPool, error) {
	if path == "" {
		return DefaultQuestionPool()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading questions: %w", err)
	}

	return ParseQuestions(data)
}

func (p *QuestionPool) Len() int {
	return len(p.questions)
}

// Next picks a question index not present in used, uniformly at random, and
// records it there. Once every question has been used the set is cleared and
// a new cycle begins.
func (p *QuestionPool) Next(used map[int]struct{}, intn func(int) int) (int, Question) {
	eligible := make([]int, 0, len(p.questions))
	for i := range p.questions {
		if _, ok := used[i]; !ok {
			eligible = append(eligible, i)
		}
	}

	if len(eligible) == 0 {
		clear(used)
		return p.Next(used, intn)
	}

	idx := eligible[intn(len(eligible))]
	used[idx] = struct{}{}

	return idx, p.questions[idx]
}
