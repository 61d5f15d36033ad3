package memory

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/OCAP2/artillery/internal/config"
	"github.com/OCAP2/artillery/internal/storage"
	"github.com/OCAP2/artillery/pkg/core"
	"github.com/pierrec/lz4/v4"
)

// ExportVersion is written into every export file.
const ExportVersion = 1

// Export is the on-disk layout of a recorded match.
type Export struct {
	Version     int                `json:"version"`
	Match       core.MatchInfo     `json:"match"`
	EndTime     *time.Time         `json:"endTime,omitempty"`
	Turns       []core.TurnEvent   `json:"turns"`
	Shots       []core.ShotEvent   `json:"shots"`
	Impacts     []core.ImpactEvent `json:"impacts"`
	MountEvents []core.MountEvent  `json:"mountEvents"`
}

func toExport(rec *storage.Record) Export {
	return Export{
		Version:     ExportVersion,
		Match:       rec.Info,
		EndTime:     rec.EndTime,
		Turns:       rec.Turns,
		Shots:       rec.Shots,
		Impacts:     rec.Impacts,
		MountEvents: rec.MountEvents,
	}
}

// FileName builds "<name>_<start>_<id>.json", with ".lz4" appended when compressed.
func FileName(info core.MatchInfo, compress bool) string {
	name := strings.ReplaceAll(info.Name, " ", "_")
	name = strings.ReplaceAll(name, ":", "_")
	if name == "" {
		name = "match"
	}
	filename := fmt.Sprintf("%s_%s_%d.json", name, info.StartTime.Format("20060102_150405"), info.ID)
	if compress {
		filename += ".lz4"
	}
	return filename
}

// exportJSON writes the record into cfg.OutputDir and returns the file path.
func exportJSON(cfg config.MemoryConfig, rec *storage.Record) (string, error) {
	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(cfg.OutputDir, FileName(rec.Info, cfg.CompressOutput))
	if err := WriteExport(path, rec, cfg.CompressOutput); err != nil {
		return "", err
	}
	return path, nil
}

// WriteExport writes rec to path, lz4-compressed when compress is set.
func WriteExport(path string, rec *storage.Record, compress bool) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	if compress {
		err = writeLZ4JSON(f, toExport(rec))
	} else {
		err = json.NewEncoder(f).Encode(toExport(rec))
	}
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func writeLZ4JSON(w io.Writer, data Export) error {
	zw := lz4.NewWriter(w)
	if err := json.NewEncoder(zw).Encode(data); err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}

// ReadExport loads an export file written by the memory backend. Files ending in
// ".lz4" are decompressed.
func ReadExport(path string) (*storage.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".lz4") {
		r = lz4.NewReader(f)
	}

	var data Export
	if err := json.NewDecoder(r).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	if data.Version != ExportVersion {
		return nil, fmt.Errorf("unsupported export version %d", data.Version)
	}
	return &storage.Record{
		Info:        data.Match,
		EndTime:     data.EndTime,
		Turns:       data.Turns,
		Shots:       data.Shots,
		Impacts:     data.Impacts,
		MountEvents: data.MountEvents,
	}, nil
}
