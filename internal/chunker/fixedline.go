package chunker

import "strings"

// DefaultWindowLines is N in spec §4.2's fixed-lines strategy.
const DefaultWindowLines = 50

// FixedLines splits src into contiguous, non-overlapping windows of n lines
// (the final window may be shorter). Empty/whitespace-only windows are
// dropped. n <= 0 uses DefaultWindowLines.
func FixedLines(src string, n int) []RawChunk {
	if n <= 0 {
		n = DefaultWindowLines
	}
	lines := splitLines(src)
	var chunks []RawChunk
	for start := 0; start < len(lines); start += n {
		end := start + n
		if end > len(lines) {
			end = len(lines)
		}
		content := strings.Join(lines[start:end], "\n")
		if strings.TrimSpace(content) == "" {
			continue
		}
		chunks = append(chunks, RawChunk{
			Kind:      "window",
			StartLine: start + 1,
			EndLine:   end,
			Content:   content,
		})
	}
	return chunks
}

// SlidingWindow splits src into windows of w lines with stride w-o. o must
// satisfy 0 <= o < w; callers violating this get a KindConfigInvalid error
// from Options.Validate (this function assumes the caller already checked).
func SlidingWindow(src string, w, o int) []RawChunk {
	lines := splitLines(src)
	stride := w - o
	var chunks []RawChunk
	for start := 0; start < len(lines); start += stride {
		end := start + w
		if end > len(lines) {
			end = len(lines)
		}
		content := strings.Join(lines[start:end], "\n")
		if strings.TrimSpace(content) != "" {
			chunks = append(chunks, RawChunk{
				Kind:      "window",
				StartLine: start + 1,
				EndLine:   end,
				Content:   content,
			})
		}
		if end >= len(lines) {
			break
		}
	}
	return chunks
}

func splitLines(src string) []string {
	if src == "" {
		return nil
	}
	return strings.Split(src, "\n")
}
