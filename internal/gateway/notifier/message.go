package notifier

import (
	"strings"
	"time"
	"unicode/utf8"
)

// maxMessageRunes 留出 Telegram 4096 字符上限的余量。
const maxMessageRunes = 3800

type Section struct {
	Title string
	Lines []string
}

// Message 是所有推送共用的格式：标题、等宽字体的分段明细、页脚与时间。
type Message struct {
	Icon     string
	Title    string
	Sections []Section
	Footer   string
	At       time.Time
}

// Markdown renders the message for parse_mode=Markdown, cut to
// maxMessageRunes on a rune boundary.
func (m Message) Markdown() string {
	var parts []string
	if header := strings.TrimSpace(m.Icon + " " + m.Title); header != "" {
		parts = append(parts, header)
	}
	if block := codeBlock(m.Sections); block != "" {
		parts = append(parts, block)
	}
	var tail []string
	if footer := strings.TrimSpace(m.Footer); footer != "" {
		tail = append(tail, escapeFence(footer))
	}
	if !m.At.IsZero() {
		tail = append(tail, "时间："+m.At.Format("2006-01-02 15:04:05 MST"))
	}
	if len(tail) > 0 {
		parts = append(parts, strings.Join(tail, "\n"))
	}
	body := strings.Join(parts, "\n\n")
	if utf8.RuneCountInString(body) > maxMessageRunes {
		body = string([]rune(body)[:maxMessageRunes]) + "..."
	}
	return body
}

// codeBlock 将非空分段放进一个 ``` 块，段与段之间空一行。
func codeBlock(secs []Section) string {
	var blocks []string
	for _, sec := range secs {
		var b strings.Builder
		if title := strings.TrimSpace(sec.Title); title != "" {
			b.WriteString("[" + escapeFence(title) + "]\n")
		}
		n := 0
		for _, line := range sec.Lines {
			if line = strings.TrimSpace(line); line == "" {
				continue
			}
			b.WriteString("- " + escapeFence(line) + "\n")
			n++
		}
		if n > 0 {
			blocks = append(blocks, strings.TrimSuffix(b.String(), "\n"))
		}
	}
	if len(blocks) == 0 {
		return ""
	}
	return "```\n" + strings.Join(blocks, "\n\n") + "\n```"
}

func escapeFence(s string) string {
	return strings.ReplaceAll(s, "```", "'''")
}
