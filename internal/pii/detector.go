package pii

import (
	"fmt"
	"sort"

	"go.uber.org/zap"
)

// Detector scans text for PII. It is safe for concurrent use: the rule
// table is immutable after construction and Detect never mutates state.
type Detector struct {
	rules   []Rule
	enabled map[Type]bool
	logger  *zap.Logger
}

// New creates a new PII detector instance
func New(cfg Config, logger *zap.Logger) (*Detector, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	detector := &Detector{
		rules:   DefaultRules(),
		enabled: make(map[Type]bool),
		logger:  logger,
	}

	// Configure enabled detectors
	if err := detector.configureDetectors(cfg.Detectors); err != nil {
		return nil, fmt.Errorf("failed to configure detectors: %w", err)
	}

	logger.Info("PII detector initialized",
		zap.Int("total_rules", len(detector.rules)),
		zap.Int("enabled_rules", detector.countEnabledRules()),
	)

	return detector, nil
}

// configureDetectors enables/disables detectors based on configuration
func (d *Detector) configureDetectors(detectors []string) error {
	// Disable all rules by default
	for _, rule := range d.rules {
		d.enabled[rule.Type] = false
	}

	if len(detectors) == 0 {
		detectors = []string{"all"}
	}

	for _, name := range detectors {
		if name == "all" {
			for _, rule := range d.rules {
				d.enabled[rule.Type] = true
			}
			continue
		}

		found := false
		for _, rule := range d.rules {
			if string(rule.Type) == name {
				d.enabled[rule.Type] = true
				found = true
				break
			}
		}

		if !found {
			return fmt.Errorf("unknown detector: %s", name)
		}
	}

	return nil
}

// Detect scans text with every enabled rule and returns the matches
// ordered by start offset (rule priority breaks ties). Overlapping
// matches are all reported; resolving overlaps is the caller's job.
// The result is deterministic: the same text always yields the same
// slice. An empty result is a valid outcome, not an error.
func (d *Detector) Detect(text string) []Match {
	if text == "" {
		return nil
	}

	var matches []Match
	for _, rule := range d.rules {
		if !d.enabled[rule.Type] {
			continue
		}

		locs := rule.Pattern.FindAllStringIndex(text, -1)
		for _, loc := range locs {
			span := text[loc[0]:loc[1]]
			if rule.Validate != nil && !rule.Validate(span) {
				continue
			}
			matches = append(matches, Match{
				Type:       rule.Type,
				Start:      loc[0],
				End:        loc[1],
				Confidence: rule.Confidence,
			})
		}
	}

	if len(matches) == 0 {
		return nil
	}

	// Rules run in priority order, so a stable sort on start offset
	// keeps higher-priority types first among equal offsets.
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Start != matches[j].Start {
			return matches[i].Start < matches[j].Start
		}
		return matches[i].End > matches[j].End
	})

	d.logger.Debug("PII detected",
		zap.Int("matches", len(matches)),
	)

	return matches
}

// Contains reports whether text holds at least one enabled match.
func (d *Detector) Contains(text string) bool {
	return len(d.Detect(text)) > 0
}

// countEnabledRules returns the number of enabled detection rules
func (d *Detector) countEnabledRules() int {
	count := 0
	for _, enabled := range d.enabled {
		if enabled {
			count++
		}
	}
	return count
}

// EnabledTypes returns the enabled detector names, sorted.
func (d *Detector) EnabledTypes() []string {
	var enabled []string
	for t, isEnabled := range d.enabled {
		if isEnabled {
			enabled = append(enabled, string(t))
		}
	}
	sort.Strings(enabled)
	return enabled
}
