package templates

import (
	"regexp"
	"sort"
	"strings"
)

// Suggestion is a scored template match for a topic.
type Suggestion struct {
	TemplateID string `json:"template_id"`
	Name       string `json:"name"`
	Score      int    `json:"score"` // Confidence score (0-100)
}

var tokenPattern = regexp.MustCompile(`[a-z0-9]+`)

// Suggest ranks templates against a topic. An industry narrows the
// candidate set when known; an empty or unknown industry searches the
// whole catalog. Scoring favors an exact content-type match, then
// keyword hits, then name-token overlap.
func (c *Catalog) Suggest(industry, contentType, topic string, limit int) []Suggestion {
	candidates, err := c.Templates(industry)
	if err != nil {
		candidates = c.All()
	}

	topicTokens := tokenize(topic)

	var out []Suggestion
	for _, tpl := range candidates {
		score := scoreTemplate(tpl, contentType, topicTokens)
		if score <= 0 {
			continue
		}
		out = append(out, Suggestion{TemplateID: tpl.ID, Name: tpl.Name, Score: score})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Name < out[j].Name
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func scoreTemplate(tpl Template, contentType string, topicTokens map[string]bool) int {
	score := 0

	if contentType != "" && tpl.ContentType == contentType {
		score += 40
	}

	for _, keyword := range tpl.Keywords {
		for token := range tokenize(keyword) {
			if topicTokens[token] {
				score += 15
				break
			}
		}
	}

	for token := range tokenize(tpl.Name) {
		if topicTokens[token] {
			score += 10
		}
	}

	if score > 100 {
		score = 100
	}
	return score
}

func tokenize(s string) map[string]bool {
	out := make(map[string]bool)
	for _, token := range tokenPattern.FindAllString(strings.ToLower(s), -1) {
		out[token] = true
	}
	return out
}
