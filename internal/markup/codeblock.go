package markup

import (
	"strings"
)

const (
	blockOpen  = "{{{"
	blockClose = "}}}"
	langMarker = "#!"
	fence      = "```"
	indent     = "    "
)

type blockState int

const (
	outsideBlock blockState = iota
	insideBlock
)

// blockScanner is the line-oriented state machine behind the code block rule.
// Lines inside a block accumulate in buf until the closing marker flushes
// them as one stashed fragment.
type blockScanner struct {
	state  blockState
	fenced bool
	lang   string
	cr     string // "\r" when the opening line ended in CRLF
	buf    []string
	out    []string
	stash  *stash
}

// extractCodeBlocks converts multi-line {{{ ... }}} blocks. A block whose
// first line is "#!<lang>" becomes a fenced block tagged with lang; any other
// block becomes an indented block. An unterminated block aborts the pass and
// the input is returned untouched.
func extractCodeBlocks(text string, st *stash) string {
	lines := strings.Split(text, "\n")
	sc := &blockScanner{stash: st}

	for i := 0; i < len(lines); i++ {
		line := lines[i]
		marker := strings.TrimSpace(line)

		switch sc.state {
		case outsideBlock:
			if marker != blockOpen {
				sc.out = append(sc.out, line)
				continue
			}
			var next string
			if i+1 < len(lines) {
				next = strings.TrimSpace(lines[i+1])
			}
			if tag, ok := strings.CutPrefix(next, langMarker); ok {
				sc.open(true, languageOf(tag), carriageReturn(line))
				i++
			} else {
				sc.open(false, "", carriageReturn(line))
			}
		case insideBlock:
			if marker == blockClose {
				sc.close(carriageReturn(line))
				continue
			}
			sc.buf = append(sc.buf, line)
		}
	}

	if sc.state == insideBlock {
		return text
	}
	return strings.Join(sc.out, "\n")
}

func (sc *blockScanner) open(fenced bool, lang, cr string) {
	sc.state = insideBlock
	sc.fenced = fenced
	sc.lang = lang
	sc.cr = cr
	sc.buf = sc.buf[:0]
}

// close flushes the block. closeCR is the line ending of the closing
// marker, carried onto the closing fence.
func (sc *blockScanner) close(closeCR string) {
	var fragment string
	if sc.fenced {
		parts := make([]string, 0, len(sc.buf)+2)
		parts = append(parts, fence+sc.lang+sc.cr)
		parts = append(parts, sc.buf...)
		parts = append(parts, fence+closeCR)
		fragment = strings.Join(parts, "\n")
	} else {
		indented := make([]string, len(sc.buf))
		for i, l := range sc.buf {
			if strings.TrimSpace(l) == "" {
				indented[i] = carriageReturn(l)
				continue
			}
			indented[i] = indent + l
		}
		fragment = strings.Join(indented, "\n")
		// Markdown only starts an indented block after a blank line.
		if n := len(sc.out); n > 0 && strings.TrimSpace(sc.out[n-1]) != "" {
			sc.out = append(sc.out, sc.cr)
		}
	}

	sc.out = append(sc.out, sc.stash.put(fragment))
	sc.state = outsideBlock
	sc.fenced = false
	sc.lang = ""
	sc.cr = ""
	sc.buf = sc.buf[:0]
}

// languageOf returns the processor name of a "#!name args" line.
func languageOf(tag string) string {
	fields := strings.Fields(tag)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func carriageReturn(line string) string {
	if strings.HasSuffix(line, "\r") {
		return "\r"
	}
	return ""
}
