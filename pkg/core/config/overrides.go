package config

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"ncsr_holdings/pkg/core/holdings"
)

//go:embed overrides.yaml
var defaultOverrides []byte

const dateLayout = "2006-01-02"

// Overrides is the table of per-filing exceptions to the generic rules.
type Overrides struct {
	Series            string   `yaml:"series"`
	FormType          string   `yaml:"form_type"`
	FirstModernDate   string   `yaml:"first_modern_date"`
	ForcedLegacyDates []string `yaml:"forced_legacy_dates"`
	SkipFiles         []string `yaml:"skip_files"`

	firstModern  time.Time
	forcedLegacy map[time.Time]bool
	skip         map[string]bool
}

// DefaultOverrides returns the embedded override table.
func DefaultOverrides() (*Overrides, error) {
	return ParseOverrides(defaultOverrides)
}

// LoadOverrides reads the override table at path, or the embedded default
// when path is empty.
func LoadOverrides(path string) (*Overrides, error) {
	if path == "" {
		return DefaultOverrides()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read overrides: %w", err)
	}
	return ParseOverrides(data)
}

// ParseOverrides decodes and validates an override table.
func ParseOverrides(data []byte) (*Overrides, error) {
	var o Overrides
	if err := yaml.Unmarshal(data, &o); err != nil {
		return nil, fmt.Errorf("failed to parse overrides: %w", err)
	}
	if o.Series == "" {
		return nil, fmt.Errorf("overrides: series is required")
	}
	if o.FormType == "" {
		o.FormType = "N-CSR"
	}

	first, err := time.Parse(dateLayout, o.FirstModernDate)
	if err != nil {
		return nil, fmt.Errorf("overrides: first_modern_date: %w", err)
	}
	o.firstModern = first

	o.forcedLegacy = make(map[time.Time]bool, len(o.ForcedLegacyDates))
	for _, s := range o.ForcedLegacyDates {
		d, err := time.Parse(dateLayout, s)
		if err != nil {
			return nil, fmt.Errorf("overrides: forced_legacy_dates: %w", err)
		}
		o.forcedLegacy[d] = true
	}

	o.skip = make(map[string]bool, len(o.SkipFiles))
	for _, f := range o.SkipFiles {
		o.skip[f] = true
	}
	return &o, nil
}

// Generation assigns the layout generation of a filing from its period of
// report.
func (o *Overrides) Generation(period time.Time) holdings.Generation {
	day := time.Date(period.Year(), period.Month(), period.Day(), 0, 0, 0, 0, time.UTC)
	if day.Before(o.firstModern) || o.forcedLegacy[day] {
		return holdings.GenerationLegacy
	}
	return holdings.GenerationModern
}

// Skip reports whether a raw file is on the skip list.
func (o *Overrides) Skip(filename string) bool {
	return o.skip[filename]
}
