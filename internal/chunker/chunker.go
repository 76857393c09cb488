package chunker

import (
	"context"
	"fmt"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

const maxChunkBytes = 8192

// RawChunk is a chunk extracted from a source file before embedding.
type RawChunk struct {
	Name      string
	Kind      string
	StartLine int
	EndLine   int
	Content   string
}

// ASTChunker parses source files using tree-sitter and extracts semantic chunks.
type ASTChunker struct {
	registry *Registry
}

// NewASTChunker creates a chunker backed by the given registry.
func NewASTChunker(r *Registry) *ASTChunker {
	return &ASTChunker{registry: r}
}

// Chunk parses the source and returns semantic chunks. If no grammar is
// registered for the file, it returns nil (caller should use fallback).
func (c *ASTChunker) Chunk(path string, src []byte) ([]RawChunk, error) {
	spec, lang := c.registry.Lookup(path)
	if spec == nil {
		return nil, nil
	}

	parser := sitter.NewParser()
	parser.SetLanguage(spec.Language)
	tree, err := parser.ParseCtx(context.Background(), nil, src)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	defer tree.Close()

	q, err := sitter.NewQuery([]byte(spec.Query), spec.Language)
	if err != nil {
		return nil, fmt.Errorf("compile query for %s: %w", lang, err)
	}
	defer q.Close()

	qc := sitter.NewQueryCursor()
	defer qc.Close()
	qc.Exec(q, tree.RootNode())

	var captures []capture
	for {
		m, ok := qc.NextMatch()
		if !ok {
			break
		}
		var chunkNode *sitter.Node
		var nameStr string
		for _, cap := range m.Captures {
			capName := q.CaptureNameForId(cap.Index)
			switch capName {
			case "chunk":
				chunkNode = cap.Node
			case "name":
				nameStr = cap.Node.Content(src)
			}
		}
		if chunkNode == nil {
			continue
		}
		captures = append(captures, capture{
			name:      nameStr,
			kind:      chunkNode.Type(),
			startLine: int(chunkNode.StartPoint().Row) + 1,
			endLine:   int(chunkNode.EndPoint().Row) + 1,
			startByte: chunkNode.StartByte(),
			endByte:   chunkNode.EndByte(),
		})
	}

	// Deduplicate: when captures overlap, keep only the outer (larger) node.
	captures = dedup(captures)

	lines := strings.Split(string(src), "\n")
	pieces := fillGaps(captures, len(lines))
	pieces = coalesceSmall(pieces)

	var chunks []RawChunk
	for _, p := range pieces {
		content := enrichContent(path, lang, p.kind, p.name, lines, p.startLine, p.endLine)

		if len(content) > maxChunkBytes {
			splits := splitOversized(content, p.name, p.kind, p.startLine)
			chunks = append(chunks, splits...)
		} else {
			chunks = append(chunks, RawChunk{
				Name:      p.name,
				Kind:      p.kind,
				StartLine: p.startLine,
				EndLine:   p.endLine,
				Content:   content,
			})
		}
	}

	return chunks, nil
}

// smallNodeLines is the threshold (spec §4.2) below which an AST-extracted
// node is coalesced with its following sibling rather than kept standalone.
const smallNodeLines = 3

// fillGaps inserts a "gap" capture for every run of lines not covered by an
// AST capture — file-scope comments, imports, blank lines between
// definitions — so the emitted chunks cover every line of the file (the
// Open Question in spec §9 resolved in favor of full coverage). captures
// must already be deduplicated; fillGaps sorts by start line.
func fillGaps(captures []capture, totalLines int) []capture {
	sort.Slice(captures, func(i, j int) bool { return captures[i].startLine < captures[j].startLine })

	var out []capture
	cursor := 1
	for _, c := range captures {
		if c.startLine > cursor {
			out = append(out, capture{kind: "gap", startLine: cursor, endLine: c.startLine - 1})
		}
		out = append(out, c)
		if c.endLine+1 > cursor {
			cursor = c.endLine + 1
		}
	}
	if cursor <= totalLines {
		out = append(out, capture{kind: "gap", startLine: cursor, endLine: totalLines})
	}
	return out
}

// coalesceSmall merges any non-gap capture spanning smallNodeLines or fewer
// lines into the capture that follows it, so tiny accessors/getters don't each
// become their own chunk. The merged piece keeps the following sibling's
// name/kind (it is the "real" unit; the tiny one is treated as its lead-in).
func coalesceSmall(pieces []capture) []capture {
	var out []capture
	i := 0
	for i < len(pieces) {
		p := pieces[i]
		size := p.endLine - p.startLine + 1
		if p.kind != "gap" && size <= smallNodeLines && i+1 < len(pieces) {
			next := pieces[i+1]
			out = append(out, capture{
				name:      next.name,
				kind:      next.kind,
				startLine: p.startLine,
				endLine:   next.endLine,
				startByte: p.startByte,
				endByte:   next.endByte,
			})
			i += 2
			continue
		}
		out = append(out, p)
		i++
	}
	return out
}

// dedup removes captures that are fully contained within a larger capture.
func dedup(caps []capture) []capture {
	if len(caps) <= 1 {
		return caps
	}
	// Sort by start byte ascending, then by size descending (larger first).
	sort.Slice(caps, func(i, j int) bool {
		if caps[i].startByte != caps[j].startByte {
			return caps[i].startByte < caps[j].startByte
		}
		return (caps[i].endByte - caps[i].startByte) > (caps[j].endByte - caps[j].startByte)
	})

	var result []capture
	var lastEnd uint32
	for _, c := range caps {
		if c.startByte >= lastEnd || lastEnd == 0 {
			result = append(result, c)
			if c.endByte > lastEnd {
				lastEnd = c.endByte
			}
		}
		// Skip captures contained within the previous one.
	}
	return result
}

func enrichContent(path, lang, kind, name string, lines []string, startLine, endLine int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "// File: %s\n", path)
	fmt.Fprintf(&b, "// Language: %s\n", lang)
	if name != "" {
		fmt.Fprintf(&b, "// %s: %s\n", kind, name)
	}
	// Lines are 1-indexed.
	start := startLine - 1
	end := endLine
	if start < 0 {
		start = 0
	}
	if end > len(lines) {
		end = len(lines)
	}
	for i := start; i < end; i++ {
		b.WriteString(lines[i])
		if i < end-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// splitOversized splits a chunk that exceeds maxChunkBytes into smaller pieces
// at line boundaries with 10-line overlap.
func splitOversized(content, name, kind string, baseStartLine int) []RawChunk {
	lines := strings.Split(content, "\n")
	const windowSize = 40
	const overlap = 10

	var chunks []RawChunk
	for i := 0; i < len(lines); {
		end := i + windowSize
		if end > len(lines) {
			end = len(lines)
		}
		chunk := strings.Join(lines[i:end], "\n")
		chunks = append(chunks, RawChunk{
			Name:      name,
			Kind:      kind,
			StartLine: baseStartLine + i,
			EndLine:   baseStartLine + end - 1,
			Content:   chunk,
		})
		if end >= len(lines) {
			break
		}
		i += windowSize - overlap
	}
	return chunks
}

type capture struct {
	name      string
	kind      string
	startLine int
	endLine   int
	startByte uint32
	endByte   uint32
}
