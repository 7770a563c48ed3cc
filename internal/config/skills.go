package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SkillSettings overrides the input guards of one skill.
type SkillSettings struct {
	Disabled       bool     `yaml:"disabled"`
	AllowedFormats []string `yaml:"allowed_formats"`
	MaxSizeMB      float64  `yaml:"max_size_mb"`
	MaxLabels      int      `yaml:"max_labels"`
	MinConfidence  float64  `yaml:"min_confidence"`
}

// SkillsFile is the YAML document named by SKILLS_SKILLS_FILE:
//
//	skills:
//	  labels:
//	    allowed_formats: [jpg, jpeg, png]
//	    max_size_mb: 5
//	    max_labels: 50
//	    min_confidence: 80
type SkillsFile struct {
	Skills map[string]SkillSettings `yaml:"skills"`
}

// LoadSkillsFile reads and validates a skills file.
func LoadSkillsFile(path string) (*SkillsFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read skills file: %w", err)
	}

	var sf SkillsFile
	if err := yaml.Unmarshal(raw, &sf); err != nil {
		return nil, fmt.Errorf("parse skills file: %w", err)
	}

	for name, s := range sf.Skills {
		if s.MaxSizeMB < 0 {
			return nil, fmt.Errorf("skill %s: max_size_mb must not be negative", name)
		}
		if s.MaxLabels < 0 {
			return nil, fmt.Errorf("skill %s: max_labels must not be negative", name)
		}
		if s.MinConfidence < 0 || s.MinConfidence > 100 {
			return nil, fmt.Errorf("skill %s: min_confidence must be between 0 and 100", name)
		}
	}
	return &sf, nil
}
