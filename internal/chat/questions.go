package chat

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SuggestedQuestions holds the two question pools shown in the chat panel.
// Which pool applies depends on whether a document has been analyzed yet.
type SuggestedQuestions struct {
	Document   []string `yaml:"document"`
	NoDocument []string `yaml:"no_document"`
}

// DefaultSuggestedQuestions returns the built-in question pools.
func DefaultSuggestedQuestions() *SuggestedQuestions {
	return &SuggestedQuestions{
		Document: []string{
			"What is the company's current financial health?",
			"How has revenue grown over the recent periods?",
			"What are the main risk factors mentioned?",
			"What is the company's cash flow situation?",
			"How profitable is the company compared to industry peers?",
			"What are the key financial ratios and what do they indicate?",
			"What is the company's debt-to-equity ratio?",
			"Are there any upcoming challenges or opportunities?",
			"How strong is the company's market position?",
			"What guidance has the company provided for future periods?",
		},
		NoDocument: []string{
			"How do I upload a financial document?",
			"What types of financial documents can you analyze?",
			"What insights can you provide from financial reports?",
			"Can you explain different financial ratios?",
			"How do you analyze company performance?",
			"What should I look for in a financial statement?",
		},
	}
}

// LoadSuggestedQuestions reads a YAML questions file. A missing file is
// not an error: the defaults are returned so a fresh deployment works
// without any configuration.
func LoadSuggestedQuestions(path string) (*SuggestedQuestions, error) {
	if path == "" {
		return DefaultSuggestedQuestions(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultSuggestedQuestions(), nil
		}
		return nil, fmt.Errorf("failed to read questions file: %w", err)
	}
	return ParseSuggestedQuestions(data)
}

// ParseSuggestedQuestions parses YAML question pools. Pools left empty in
// the file fall back to the defaults.
func ParseSuggestedQuestions(data []byte) (*SuggestedQuestions, error) {
	var q SuggestedQuestions
	if err := yaml.Unmarshal(data, &q); err != nil {
		return nil, fmt.Errorf("failed to parse questions file: %w", err)
	}
	defaults := DefaultSuggestedQuestions()
	if len(q.Document) == 0 {
		q.Document = defaults.Document
	}
	if len(q.NoDocument) == 0 {
		q.NoDocument = defaults.NoDocument
	}
	return &q, nil
}

// For returns the pool matching the document state.
func (q *SuggestedQuestions) For(hasDocument bool) []string {
	if hasDocument {
		return q.Document
	}
	return q.NoDocument
}
