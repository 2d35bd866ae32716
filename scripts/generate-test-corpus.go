//go:build ignore

// Package main generates a synthetic repository for indexing benchmarks.
// Usage: go run scripts/generate-test-corpus.go -files 500 -output testdata/bench
//
// Besides indexable sources it plants files the walker must skip
// (binary blobs, oversized files, sensitive names), so a build over the
// corpus exercises the exclusion paths too.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
)

var (
	numFiles  = flag.Int("files", 500, "Number of indexable files to generate")
	outputDir = flag.String("output", "testdata/bench", "Output directory")
	seed      = flag.Int64("seed", 42, "Random seed for reproducibility")
)

var goTemplate = `package %s

import (
	"context"
	"errors"
)

// %s resolves %s requests against the local index.
type %s struct {
	limit int
}

// New%s creates a %s with the given result limit.
func New%s(limit int) *%s {
	return &%s{limit: limit}
}

// %s runs one %s pass. A nil context is rejected.
func (r *%s) %s(ctx context.Context, input string) ([]string, error) {
	if ctx == nil {
		return nil, errors.New("nil context")
	}
	if input == "" {
		return nil, nil
	}
	out := make([]string, 0, r.limit)
	out = append(out, input)
	return out, nil
}
`

var pyTemplate = `"""%s helpers for %s."""

from typing import List


def %s_items(items: List[str], limit: int) -> List[str]:
    """Return at most limit items, preserving order."""
    if limit <= 0:
        return []
    return items[:limit]


class %sIndex:
    def __init__(self) -> None:
        self._entries: List[str] = []

    def add(self, entry: str) -> None:
        self._entries.append(entry)

    def size(self) -> int:
        return len(self._entries)
`

var mdTemplate = `# %s

Notes on the %s subsystem.

## Behavior

The %s pipeline reads its inputs in a stable order, so repeated runs
over unchanged content produce identical output.

## Configuration

| Setting | Default | Description |
|---------|---------|-------------|
| limit   | 8       | Maximum results returned |
| timeout | 60s     | Per-request deadline |
`

var (
	nouns = []string{
		"Retriever", "Indexer", "Splitter", "Ranker", "Resolver",
		"Walker", "Encoder", "Snapshot", "Catalog", "Ledger",
	}
	domains = []string{
		"indexing", "retrieval", "chunking", "embedding", "ranking",
		"caching", "scanning", "snapshotting", "scoring", "filtering",
	}
	verbs = []string{
		"Query", "Resolve", "Collect", "Rank", "Filter",
		"Scan", "Publish", "Score", "Merge", "Trim",
	}
)

func main() {
	flag.Parse()
	rng := rand.New(rand.NewSource(*seed))

	for _, sub := range []string{"internal", "lib", "docs"} {
		if err := os.MkdirAll(filepath.Join(*outputDir, sub), 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "create %s: %v\n", sub, err)
			os.Exit(1)
		}
	}

	goFiles := *numFiles * 50 / 100
	pyFiles := *numFiles * 30 / 100
	mdFiles := *numFiles - goFiles - pyFiles

	for i := 0; i < goFiles; i++ {
		if err := writeGoFile(rng, i); err != nil {
			fmt.Fprintf(os.Stderr, "go file %d: %v\n", i, err)
			os.Exit(1)
		}
	}
	for i := 0; i < pyFiles; i++ {
		if err := writePyFile(rng, i); err != nil {
			fmt.Fprintf(os.Stderr, "py file %d: %v\n", i, err)
			os.Exit(1)
		}
	}
	for i := 0; i < mdFiles; i++ {
		if err := writeMdFile(rng, i); err != nil {
			fmt.Fprintf(os.Stderr, "md file %d: %v\n", i, err)
			os.Exit(1)
		}
	}

	if err := writeExcluded(rng); err != nil {
		fmt.Fprintf(os.Stderr, "excluded files: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("generated %d indexable files plus excluded fixtures in %s\n",
		goFiles+pyFiles+mdFiles, *outputDir)
}

func pick(rng *rand.Rand, pool []string) string {
	return pool[rng.Intn(len(pool))]
}

func writeGoFile(rng *rand.Rand, index int) error {
	noun := pick(rng, nouns)
	verb := pick(rng, verbs)
	domain := pick(rng, domains)
	pkg := fmt.Sprintf("pkg%d", index)

	content := fmt.Sprintf(goTemplate,
		pkg,
		noun, domain, noun,
		noun, noun, noun, noun, noun,
		verb, domain, noun, verb,
	)
	name := fmt.Sprintf("%s_%d.go", domain, index)
	return os.WriteFile(filepath.Join(*outputDir, "internal", name), []byte(content), 0o644)
}

func writePyFile(rng *rand.Rand, index int) error {
	noun := pick(rng, nouns)
	domain := pick(rng, domains)

	content := fmt.Sprintf(pyTemplate, noun, domain, domain, noun)
	name := fmt.Sprintf("%s_%d.py", domain, index)
	return os.WriteFile(filepath.Join(*outputDir, "lib", name), []byte(content), 0o644)
}

func writeMdFile(rng *rand.Rand, index int) error {
	noun := pick(rng, nouns)
	domain := pick(rng, domains)

	content := fmt.Sprintf(mdTemplate, noun, domain, domain)
	name := fmt.Sprintf("%s_%d.md", domain, index)
	return os.WriteFile(filepath.Join(*outputDir, "docs", name), []byte(content), 0o644)
}

// writeExcluded plants files every build over the corpus must skip.
func writeExcluded(rng *rand.Rand) error {
	blob := make([]byte, 4096)
	rng.Read(blob)
	blob[0] = 0
	if err := os.WriteFile(filepath.Join(*outputDir, "asset.bin"), blob, 0o644); err != nil {
		return err
	}

	big := bytes.Repeat([]byte("x = 1\n"), 200_000)
	if err := os.WriteFile(filepath.Join(*outputDir, "oversized.py"), big, 0o644); err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(*outputDir, ".env"),
		[]byte("API_KEY=not-a-real-key\n"), 0o600)
}
