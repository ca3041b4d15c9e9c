package service

import (
	_ "embed"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/set-night/mindchat/internal/config"
	"github.com/set-night/mindchat/internal/domain"
)

//go:embed breathing.yaml
var breathingCatalog []byte

type BreathingPhase struct {
	Name    string `yaml:"name"`
	Seconds int    `yaml:"seconds"`
}

type BreathingPattern struct {
	Key         string           `yaml:"key"`
	Name        string           `yaml:"name"`
	Description string           `yaml:"description"`
	Aliases     []string         `yaml:"aliases"`
	Phases      []BreathingPhase `yaml:"phases"`
}

// CycleDuration is the length of one pass through all phases.
func (p BreathingPattern) CycleDuration() time.Duration {
	var total int
	for _, ph := range p.Phases {
		total += ph.Seconds
	}
	return time.Duration(total) * time.Second
}

// BreathingStep is one prompt of a guided exercise. Offset is measured from
// the start of the exercise.
type BreathingStep struct {
	Cycle    int
	Phase    string
	Duration time.Duration
	Offset   time.Duration
}

type BreathingService struct {
	patterns []BreathingPattern
}

func NewBreathingService() (*BreathingService, error) {
	return parseBreathingCatalog(breathingCatalog)
}

func parseBreathingCatalog(data []byte) (*BreathingService, error) {
	var doc struct {
		Patterns []BreathingPattern `yaml:"patterns"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse breathing catalog: %w", err)
	}
	if len(doc.Patterns) == 0 {
		return nil, fmt.Errorf("parse breathing catalog: no patterns")
	}
	for _, p := range doc.Patterns {
		if p.Key == "" || len(p.Phases) == 0 {
			return nil, fmt.Errorf("parse breathing catalog: pattern %q has no key or phases", p.Name)
		}
		for _, ph := range p.Phases {
			if ph.Seconds <= 0 {
				return nil, fmt.Errorf("parse breathing catalog: pattern %q phase %q has no duration", p.Key, ph.Name)
			}
		}
	}
	return &BreathingService{patterns: doc.Patterns}, nil
}

func (s *BreathingService) List() []BreathingPattern {
	return s.patterns
}

// Get finds a pattern by key or alias. An empty ref selects the default.
func (s *BreathingService) Get(ref string) (BreathingPattern, error) {
	ref = strings.ToLower(strings.TrimSpace(ref))
	if ref == "" {
		ref = config.DefaultBreathingPattern
	}
	for _, p := range s.patterns {
		if p.Key == ref {
			return p, nil
		}
		for _, a := range p.Aliases {
			if strings.ToLower(a) == ref {
				return p, nil
			}
		}
	}
	return BreathingPattern{}, domain.ErrPatternNotFound
}

// Schedule lays out cycles passes through the pattern. cycles is clamped to
// [1, MaxBreathingCycles].
func (s *BreathingService) Schedule(p BreathingPattern, cycles int) []BreathingStep {
	if cycles < 1 {
		cycles = 1
	}
	if cycles > config.MaxBreathingCycles {
		cycles = config.MaxBreathingCycles
	}

	steps := make([]BreathingStep, 0, cycles*len(p.Phases))
	var offset time.Duration
	for c := 1; c <= cycles; c++ {
		for _, ph := range p.Phases {
			d := time.Duration(ph.Seconds) * time.Second
			steps = append(steps, BreathingStep{Cycle: c, Phase: ph.Name, Duration: d, Offset: offset})
			offset += d
		}
	}
	return steps
}
