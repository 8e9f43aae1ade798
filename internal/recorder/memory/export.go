package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dcsturman/callisto-sub000/internal/recorder"
)

// SessionExport is the root JSON structure of an exported session.
type SessionExport struct {
	Session recorder.Session       `json:"session"`
	Rounds  []recorder.RoundRecord `json:"rounds"`
	Effects []EffectEntry          `json:"effects"`
	Plans   []PlanEntry            `json:"plans"`
}

// exportJSON writes the session history to a JSON file. Called with the
// lock held.
func (b *Backend) exportJSON() error {
	export := SessionExport{
		Session: *b.session,
		Rounds:  b.rounds,
		Effects: b.effects,
		Plans:   b.plans,
	}
	if export.Rounds == nil {
		export.Rounds = []recorder.RoundRecord{}
	}
	if export.Effects == nil {
		export.Effects = []EffectEntry{}
	}
	if export.Plans == nil {
		export.Plans = []PlanEntry{}
	}

	// Build filename
	scenario := strings.ReplaceAll(b.session.Scenario, " ", "_")
	scenario = strings.ReplaceAll(scenario, ":", "_")
	timestamp := b.session.StartedAt.Format("20060102_150405")

	var filename string
	if b.cfg.CompressOutput {
		filename = fmt.Sprintf("%s_%s.json.gz", scenario, timestamp)
	} else {
		filename = fmt.Sprintf("%s_%s.json", scenario, timestamp)
	}

	outputPath := filepath.Join(b.cfg.OutputDir, filename)

	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if b.cfg.CompressOutput {
		if err := writeGzipJSON(outputPath, export); err != nil {
			return err
		}
	} else {
		if err := writeJSON(outputPath, export); err != nil {
			return err
		}
	}

	b.lastExportPath = outputPath
	return nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode export: %w", err)
	}
	return nil
}

func writeGzipJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer f.Close()

	gz := gzip.NewWriter(f)
	enc := json.NewEncoder(gz)
	if err := enc.Encode(v); err != nil {
		gz.Close()
		return fmt.Errorf("failed to encode export: %w", err)
	}
	return gz.Close()
}
