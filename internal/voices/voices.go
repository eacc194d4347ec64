// Package voices loads the available voice catalog and persists the user's
// voice and blend preferences between sessions.
package voices

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// LoadList reads the newline-delimited voice catalog file. Blank lines and
// surrounding whitespace are ignored.
func LoadList(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading voices file: %w", err)
	}

	var voices []string
	for _, line := range strings.Split(string(data), "\n") {
		if v := strings.TrimSpace(line); v != "" {
			voices = append(voices, v)
		}
	}
	return voices, nil
}

// Prefs are the user's persisted voice selections.
type Prefs struct {
	Voice1 string `json:"voice1"`
	Voice2 string `json:"voice2"`
	Blend  int    `json:"blend"`
}

// DefaultPrefs picks sensible selections from the available catalog: the
// first two voices at an even blend.
func DefaultPrefs(available []string) Prefs {
	p := Prefs{Blend: 50}
	if len(available) > 0 {
		p.Voice1 = available[0]
	}
	if len(available) > 1 {
		p.Voice2 = available[1]
	}
	return p
}

// LoadPrefs reads preferences from the given JSON file. A missing or corrupt
// file falls back to defaults rather than failing: preferences are a
// convenience, never a startup blocker.
func LoadPrefs(path string, available []string) Prefs {
	data, err := os.ReadFile(path)
	if err != nil {
		return DefaultPrefs(available)
	}

	var p Prefs
	if err := json.Unmarshal(data, &p); err != nil {
		return DefaultPrefs(available)
	}
	if p.Blend < 0 || p.Blend > 100 {
		p.Blend = 50
	}
	return p
}

// SavePrefs rewrites the preference file.
func SavePrefs(path string, p Prefs) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling prefs: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing prefs file: %w", err)
	}
	return nil
}
