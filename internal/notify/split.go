package notify

import (
	"strings"
	"unicode/utf8"
)

// DefaultMessageLimit is the largest message the chat transports accept.
const DefaultMessageLimit = 4096

// Split cuts an HTML message into ordered chunks of at most limit runes.
// A chunk ends after the last newline that fits; a line longer than limit
// is cut hard, but never inside a tag or an entity. Tags still open at a
// cut are closed at the end of the chunk and reopened at the start of the
// next one, so every chunk parses on its own. A message without markup
// comes back unchanged when the chunks are joined.
func Split(message string, limit int) []string {
	if limit <= 0 {
		limit = DefaultMessageLimit
	}
	runes := []rune(message)
	if len(runes) <= limit {
		return []string{message}
	}

	var (
		chunks []string
		open   []htmlTag
	)
	for len(runes) > 0 {
		reopen := openingTags(open)
		head := utf8.RuneCountInString(reopen)
		room := max(limit-head, 1)

		var (
			cut   int
			still []htmlTag
			tail  string
		)
		for {
			cut = len(runes)
			if cut > room {
				cut = cutPoint(runes[:room])
			}
			still = scanTags(open, runes[:cut])
			tail = ""
			if cut < len(runes) {
				tail = closingTags(still)
			}
			n := utf8.RuneCountInString(tail)
			if head+cut+n <= limit || room == 1 {
				break
			}
			room = max(room-max(n, 1), 1)
		}

		chunks = append(chunks, reopen+string(runes[:cut])+tail)
		runes = runes[cut:]
		open = still
	}
	return chunks
}

// cutPoint returns where to end a chunk taken from window.
func cutPoint(window []rune) int {
	for i := len(window) - 1; i >= 0; i-- {
		if window[i] == '\n' {
			return i + 1
		}
	}
	if p := markupStart(window); p > 0 {
		return p
	}
	return len(window)
}

// markupStart returns the index of a tag or entity left unterminated at the
// end of rs, or -1.
func markupStart(rs []rune) int {
	entity := true
	for i := len(rs) - 1; i >= 0; i-- {
		switch rs[i] {
		case '>':
			return -1
		case '<':
			return i
		case ';', ' ', '\t', '\n':
			entity = false
		case '&':
			if entity {
				return i
			}
		}
	}
	return -1
}

type htmlTag struct {
	name string
	raw  string
}

// scanTags returns the tags open after rs, given those open before it.
func scanTags(open []htmlTag, rs []rune) []htmlTag {
	stack := append([]htmlTag(nil), open...)
	for i := 0; i < len(rs); i++ {
		if rs[i] != '<' {
			continue
		}
		j := i + 1
		for j < len(rs) && rs[j] != '>' {
			j++
		}
		if j == len(rs) {
			break
		}
		body := string(rs[i+1 : j])
		i = j
		switch {
		case strings.HasPrefix(body, "/"):
			name := strings.ToLower(strings.TrimSpace(body[1:]))
			for k := len(stack) - 1; k >= 0; k-- {
				if stack[k].name == name {
					stack = stack[:k]
					break
				}
			}
		case strings.HasSuffix(body, "/"):
		default:
			fields := strings.Fields(body)
			if len(fields) == 0 {
				continue
			}
			stack = append(stack, htmlTag{name: strings.ToLower(fields[0]), raw: "<" + body + ">"})
		}
	}
	return stack
}

func openingTags(tags []htmlTag) string {
	var b strings.Builder
	for _, t := range tags {
		b.WriteString(t.raw)
	}
	return b.String()
}

func closingTags(tags []htmlTag) string {
	var b strings.Builder
	for i := len(tags) - 1; i >= 0; i-- {
		b.WriteString("</" + tags[i].name + ">")
	}
	return b.String()
}
