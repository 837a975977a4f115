package pipeline

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/alfredjeanlab/storymap/internal/diagram"
	"github.com/alfredjeanlab/storymap/internal/merge"
	"github.com/alfredjeanlab/storymap/internal/storygraph"
)

// File name conventions.
const (
	DiagramExt      = ".drawio"
	ExtractedSuffix = "extracted"
	ReportSuffix    = "merge-report"
)

// DiagramPath returns the default diagram file for a story graph:
// "maps/shop.json" becomes "maps/shop.drawio".
func DiagramPath(graphPath string) string {
	return strings.TrimSuffix(graphPath, filepath.Ext(graphPath)) + DiagramExt
}

// ExtractedPath returns the default extraction target for a diagram:
// "maps/shop.drawio" becomes "maps/shop-extracted.json".
func ExtractedPath(diagramPath string) string {
	return storygraph.SidecarPath(diagramPath, ExtractedSuffix)
}

// ReportPath returns the merge report written beside an extracted graph.
func ReportPath(extractedPath string) string {
	return storygraph.SidecarPath(extractedPath, ReportSuffix)
}

// MapName derives the story map name from any of its files by dropping the
// directory, the extension and a trailing "-extracted".
func MapName(path string) string {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return strings.TrimSuffix(stem, "-"+ExtractedSuffix)
}

// output is one file of a multi-file write.
type output struct {
	path string
	data []byte
}

// renameFile is os.Rename, replaced in tests.
var renameFile = os.Rename

// writeAll writes every output or none of them. All temp files are written
// first; the targets are then swapped in one by one, each old file kept
// aside until the whole set is in place. A failed swap puts the old files
// back.
func writeAll(outs ...output) error {
	staged := make([]string, len(outs))
	discard := func() {
		for _, tmp := range staged {
			if tmp != "" {
				os.Remove(tmp)
			}
		}
	}
	for i, o := range outs {
		tmp, err := stageFile(o.path, o.data)
		if err != nil {
			discard()
			return err
		}
		staged[i] = tmp
	}

	type swap struct{ path, prev string }
	var done []swap
	undo := func() {
		for i := len(done) - 1; i >= 0; i-- {
			if done[i].prev == "" {
				os.Remove(done[i].path)
			} else {
				renameFile(done[i].prev, done[i].path)
			}
		}
		discard()
	}
	for i, o := range outs {
		prev := ""
		if fileExists(o.path) {
			prev = staged[i] + ".prev"
			if err := renameFile(o.path, prev); err != nil {
				undo()
				return fmt.Errorf("rename %s: %w", o.path, err)
			}
		}
		if err := renameFile(staged[i], o.path); err != nil {
			if prev != "" {
				renameFile(prev, o.path)
			}
			undo()
			return fmt.Errorf("rename %s: %w", o.path, err)
		}
		staged[i] = ""
		done = append(done, swap{path: o.path, prev: prev})
	}
	for _, sw := range done {
		if sw.prev != "" {
			os.Remove(sw.prev)
		}
	}
	return nil
}

// writeFileAtomic replaces path with data through a temp file in the same
// directory, fsynced before the rename.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := stageFile(path, data)
	if err != nil {
		return err
	}
	if err := renameFile(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}

// stageFile writes data to a synced temp file beside path and returns its
// name.
func stageFile(path string, data []byte) (string, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	tmp := f.Name()

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return "", fmt.Errorf("sync %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Chmod(tmp, 0o644); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("chmod %s: %w", path, err)
	}
	return tmp, nil
}

func readGraph(path string) (*storygraph.Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read story graph: %w", err)
	}
	defer f.Close()
	g, err := storygraph.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return g, nil
}

// readLayout returns nil without error when the sidecar does not exist.
func readLayout(path string) (storygraph.Layout, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read layout: %w", err)
	}
	defer f.Close()
	l, err := storygraph.DecodeLayout(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return l, nil
}

func readDiagram(path string) (*diagram.Diagram, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read diagram: %w", err)
	}
	defer f.Close()
	d, err := diagram.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

func readReport(path string) (*merge.Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read merge report: %w", err)
	}
	defer f.Close()
	r, err := merge.DecodeReport(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func encodeDiagram(d *diagram.Diagram) ([]byte, error) {
	var buf bytes.Buffer
	if err := diagram.Encode(&buf, d); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeGraph(g *storygraph.Graph) ([]byte, error) {
	var buf bytes.Buffer
	if err := storygraph.Encode(&buf, g); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeLayout(l storygraph.Layout) ([]byte, error) {
	var buf bytes.Buffer
	if err := storygraph.EncodeLayout(&buf, l); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeReport(r *merge.Report) ([]byte, error) {
	var buf bytes.Buffer
	if err := merge.EncodeReport(&buf, r); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func countStories(g *storygraph.Graph) int {
	n := 0
	g.WalkStories(func(*storygraph.Epic, *storygraph.Feature, *storygraph.Story) { n++ })
	return n
}
