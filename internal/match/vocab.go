package match

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Vocabulary is the synonym set used for welcome/greeting style queries.
// The defaults cover the English and French field names seen in real GHL
// accounts; a deployment can override them with a YAML file.
type Vocabulary struct {
	WelcomeTerms []string `yaml:"welcome_terms"`
}

// DefaultVocabulary returns the built-in synonym set.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{WelcomeTerms: []string{
		"welcome_message",
		"welcome message",
		"intro_message",
		"intro message",
		"introduction_message",
		"introduction message",
		"greeting",
		"bienvenue",
		"message_accueil",
		"message accueil",
		"welcome",
		"accueil",
		"intro",
		"message",
	}}
}

// LoadVocabulary reads a vocabulary override from a YAML file. An empty
// welcome_terms list is rejected so a bad file cannot silently disable
// synonym matching.
func LoadVocabulary(path string) (Vocabulary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Vocabulary{}, fmt.Errorf("read vocabulary file %s: %w", path, err)
	}
	var v Vocabulary
	if err := yaml.Unmarshal(data, &v); err != nil {
		return Vocabulary{}, fmt.Errorf("parse vocabulary file %s: %w", path, err)
	}
	if len(v.WelcomeTerms) == 0 {
		return Vocabulary{}, fmt.Errorf("vocabulary file %s: welcome_terms is empty", path)
	}
	return v, nil
}
