package annotation

// SentenceSpans splits text into sentence spans with a simple terminator
// heuristic. A sentence ends at '.', '!' or '?' followed by whitespace or
// end of text; surrounding whitespace is trimmed out of the span.
func SentenceSpans(text string) []Span {
	var spans []Span
	start := 0

	flush := func(end int) {
		b, e := trimBounds(text, start, end)
		if b < e {
			spans = append(spans, Span{Begin: b, End: e})
		}
		start = end
	}

	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '.', '!', '?':
			if i+1 >= len(text) || isSpace(text[i+1]) {
				flush(i + 1)
			}
		}
	}
	if start < len(text) {
		flush(len(text))
	}
	return spans
}

func trimBounds(text string, begin, end int) (int, int) {
	for begin < end && isSpace(text[begin]) {
		begin++
	}
	for end > begin && isSpace(text[end-1]) {
		end--
	}
	return begin, end
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
