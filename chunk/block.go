package chunk

import (
	"strings"

	"github.com/fwojciec/docchat"
)

// block is a paragraph or a fenced code block.
type block struct {
	code bool
	lang string
	text string
}

// splitBlocks splits a section body into paragraphs and code blocks. base is
// the body's offset in the document; spans maps code span starts to spans.
func splitBlocks(body string, base int, spans map[int]docchat.CodeSpan) []block {
	var blocks []block
	var para []string

	flushPara := func() {
		if text := strings.TrimSpace(strings.Join(para, "\n")); text != "" {
			blocks = append(blocks, block{text: text})
		}
		para = para[:0]
	}

	pos := 0
	for pos < len(body) {
		if span, ok := spans[base+pos]; ok {
			flushPara()
			end := min(span.End-base, len(body))
			blocks = append(blocks, block{
				code: true,
				lang: span.Language,
				text: strings.TrimRight(body[pos:end], "\n"),
			})
			pos = end
			continue
		}

		next := len(body)
		lineEnd := len(body)
		if nl := strings.IndexByte(body[pos:], '\n'); nl >= 0 {
			lineEnd = pos + nl
			next = lineEnd + 1
		}
		if line := body[pos:lineEnd]; strings.TrimSpace(line) == "" {
			flushPara()
		} else {
			para = append(para, line)
		}
		pos = next
	}
	flushPara()

	return blocks
}

// packer accumulates the paragraphs of one section into chunks.
type packer struct {
	chunker *Chunker
	header  string
	emit    func(kind docchat.ChunkKind, lang, content string)

	paras     []string
	continued bool
}

func (p *packer) add(b block) {
	if b.code {
		p.addCode(b)
		return
	}
	if len(p.paras) > 0 && len(p.render(append(p.paras[:len(p.paras):len(p.paras)], b.text))) > p.chunker.maxSize() {
		p.flush()
	}
	p.paras = append(p.paras, b.text)
}

// addCode emits a code block as its own chunk, taking the immediately
// preceding paragraph along when it is short.
func (p *packer) addCode(b block) {
	content := b.text
	if n := len(p.paras); n > 0 && len(p.paras[n-1]) <= p.chunker.mergeProseMax() {
		lead := p.paras[n-1]
		p.paras = p.paras[:n-1]
		p.flush()
		content = lead + "\n\n" + content
	} else {
		p.flush()
	}
	p.emit(docchat.ChunkCode, b.lang, content)
}

func (p *packer) flush() {
	if len(p.paras) == 0 {
		return
	}
	p.emit(docchat.ChunkProse, "", p.render(p.paras))
	p.paras = nil
	p.continued = true
}

// render joins paragraphs under the section header. Chunks after the first
// are marked as continuations.
func (p *packer) render(paras []string) string {
	body := strings.Join(paras, "\n\n")
	switch {
	case p.header == "":
		return body
	case p.continued:
		return p.header + " (continued)\n\n" + body
	default:
		return p.header + "\n\n" + body
	}
}

// closeUnterminated closes a fence that is never closed at the next blank
// line after it, so that the rest of the document is read as prose again.
func closeUnterminated(doc *docchat.Document) *docchat.Document {
	for {
		n := len(doc.CodeSpans)
		if n == 0 || !doc.CodeSpans[n-1].Unterminated {
			return doc
		}
		span := doc.CodeSpans[n-1]
		text := doc.Text

		lines := docchat.SplitLines(text[span.Start:])
		fence, _ := docchat.ParseFence(lines[0].Text)
		closing := fence.Closing() + "\n"

		at := len(text)
		for _, line := range lines[1:] {
			if strings.TrimSpace(line.Text) == "" {
				at = span.Start + line.Start
				break
			}
		}

		var sb strings.Builder
		sb.WriteString(text[:at])
		if at == len(text) && !strings.HasSuffix(text, "\n") {
			sb.WriteByte('\n')
		}
		sb.WriteString(closing)
		sb.WriteString(text[at:])

		doc = docchat.ParseDocument(doc.SourceURL, doc.Title, sb.String())
	}
}
