package identify

import "strings"

// maxVariants bounds the candidate strings generated from one OCR read so
// fuzzy matching stays constant-cost per cycle.
const maxVariants = 4

// variants derives candidate name strings from raw OCR text. OCR on a card
// frame commonly picks up stray single characters from the mana cost or
// frame art at either end of the title line, so beyond the raw text itself
// the candidates drop a leading or trailing one-character token, and with
// three or more tokens the interior span with both ends removed.
func variants(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	out := make([]string, 0, maxVariants)
	seen := make(map[string]struct{}, maxVariants)
	add := func(candidate string) {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" {
			return
		}
		key := strings.ToLower(candidate)
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		out = append(out, candidate)
	}

	add(raw)

	tokens := strings.Fields(raw)
	if len(tokens) >= 2 {
		if len([]rune(tokens[0])) == 1 {
			add(strings.Join(tokens[1:], " "))
		}
		if len([]rune(tokens[len(tokens)-1])) == 1 {
			add(strings.Join(tokens[:len(tokens)-1], " "))
		}
	}
	if len(tokens) >= 3 {
		add(strings.Join(tokens[1:len(tokens)-1], " "))
	}
	return out
}
