package main

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/OCAP2/artillery/internal/config"
	"github.com/OCAP2/artillery/internal/geo"
	"github.com/OCAP2/artillery/internal/match"
	"github.com/OCAP2/artillery/internal/storage"
	"github.com/OCAP2/artillery/internal/storage/memory"
	"github.com/OCAP2/artillery/internal/terrain"
	"github.com/spf13/pflag"
)

// errReplayMismatch is returned when a regenerated layout differs from the recording.
var errReplayMismatch = errors.New("regenerated terrain differs from recording")

type sourceFlags struct {
	id   uint
	file string
}

func addSourceFlags(fs *pflag.FlagSet) *sourceFlags {
	s := &sourceFlags{}
	fs.UintVar(&s.id, "id", 0, "match id in the configured database")
	fs.StringVarP(&s.file, "file", "f", "", "export file written by the memory backend")
	fs.String("storage", "memory", "database to read --id from: sqlite or postgres")
	return s
}

func parseSource(fs *pflag.FlagSet, args []string) error {
	if err := bind(fs, commonKeys); err != nil {
		return err
	}
	if err := bind(fs, map[string]string{"storage": "storage.type"}); err != nil {
		return err
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return err
		}
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	return nil
}

func replayCommand(args []string, stdout, stderr io.Writer) error {
	fs, common := newFlagSet("replay", stderr)
	src := addSourceFlags(fs)
	if err := parseSource(fs, args); err != nil {
		return err
	}

	a, err := setup(common.configDir)
	if err != nil {
		return err
	}
	defer a.Close()

	storageCfg, err := config.GetStorageConfig()
	if err != nil {
		return err
	}
	rec, err := loadRecord(storageCfg, src.id, src.file, a.DBLogger)
	if err != nil {
		return err
	}
	base, err := config.GetMatchConfig()
	if err != nil {
		return err
	}
	return replay(stdout, rec, base, a)
}

// replay rebuilds the match layout from the recorded seed and config snapshot and compares
// the region hash of every body with the one stored at match start.
func replay(out io.Writer, rec *storage.Record, base match.Config, a *app) error {
	cfg := match.FromSnapshot(base, rec.Info.Config)
	cfg.Seed = rec.Info.Seed

	m, err := match.New(cfg, match.Dependencies{Logger: a.Logger})
	if err != nil {
		return fmt.Errorf("rebuild match %d: %w", rec.Info.ID, err)
	}
	defer m.Close()

	got := m.TerrainHashes()
	want := hashes(rec.Info.Config["terrainHashes"])
	fmt.Fprintf(out, "match %d %q seed=%d planets=%d\n", rec.Info.ID, rec.Info.Name, cfg.Seed, len(got))
	fmt.Fprintf(out, "recorded: %d turns, %d shots, %d impacts, %d mount events\n",
		len(rec.Turns), len(rec.Shots), len(rec.Impacts), len(rec.MountEvents))

	if len(want) == 0 {
		fmt.Fprintln(out, "no terrain hashes recorded, nothing to verify")
		return nil
	}
	if !slices.Equal(got, want) {
		for i := range max(len(got), len(want)) {
			var g, w string
			if i < len(got) {
				g = got[i]
			}
			if i < len(want) {
				w = want[i]
			}
			if g != w {
				fmt.Fprintf(out, "  body %d: recorded %s, regenerated %s\n", i+1, w, g)
			}
		}
		return errReplayMismatch
	}
	fmt.Fprintln(out, "terrain verified")

	restored, err := restore(rec, m.Bodies(), cfg.Terrain)
	if err != nil {
		return err
	}
	for _, b := range m.Bodies() {
		r, ok := restored[b.ID]
		if !ok {
			continue
		}
		if r.Destroyed() {
			fmt.Fprintf(out, "  body %d: destroyed\n", b.ID)
			continue
		}
		fmt.Fprintf(out, "  body %d: %.0f%% of terrain remaining, %d regions\n",
			b.ID, 100*r.Regions().Area()/b.Regions().Area(), r.Regions().Len())
	}
	return nil
}

// restore rebuilds every struck body from the terrain stored with its last impact. Bodies
// without a recorded impact are left out.
func restore(rec *storage.Record, bodies []*terrain.Body, cfg terrain.Config) (map[int]*terrain.Body, error) {
	last := make(map[int][]byte)
	for _, e := range rec.Impacts {
		if e.BodyID != 0 && len(e.Terrain) > 0 {
			last[e.BodyID] = e.Terrain
		}
	}
	out := make(map[int]*terrain.Body, len(last))
	for _, b := range bodies {
		wkb, ok := last[b.ID]
		if !ok {
			continue
		}
		set, err := geo.RegionSetFromWKB(wkb)
		if err != nil {
			return nil, fmt.Errorf("restore body %d: %w", b.ID, err)
		}
		out[b.ID] = terrain.New(b.ID, b.Center, 0, b.Radius, cfg, terrain.WithRegions(set))
	}
	return out, nil
}

// hashes accepts the stored hash list as []string or, after a JSON round trip, []any.
func hashes(v any) []string {
	switch h := v.(type) {
	case []string:
		return h
	case []any:
		out := make([]string, 0, len(h))
		for _, s := range h {
			if str, ok := s.(string); ok {
				out = append(out, str)
			}
		}
		return out
	}
	return nil
}

func exportCommand(args []string, stdout, stderr io.Writer) error {
	fs, common := newFlagSet("export", stderr)
	src := addSourceFlags(fs)
	outPath := fs.StringP("out", "o", "", "output file; a .lz4 suffix compresses it")
	if err := parseSource(fs, args); err != nil {
		return err
	}
	if *outPath == "" {
		return fmt.Errorf("%w: --out is required", errUsage)
	}

	a, err := setup(common.configDir)
	if err != nil {
		return err
	}
	defer a.Close()

	storageCfg, err := config.GetStorageConfig()
	if err != nil {
		return err
	}
	rec, err := loadRecord(storageCfg, src.id, src.file, a.DBLogger)
	if err != nil {
		return err
	}
	if err := memory.WriteExport(*outPath, rec, strings.HasSuffix(*outPath, ".lz4")); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "exported match %d to %s\n", rec.Info.ID, *outPath)
	return nil
}
