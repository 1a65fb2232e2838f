// Package analysis turns raw model output and caption files into structured
// results: it parses the tagged-text response of the transcript analysis
// model and flattens json3 caption transcripts into plain text.
package analysis

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
)

// Topic is one structured insight extracted from an analysis response.
type Topic struct {
	Topic           string
	ProblemItSolves string
	HowItWorks      string
	WhenToUse       string
	WhenNotToUse    string
	Examples        []string
}

var (
	patternMu    sync.Mutex
	patternCache = map[string]*regexp.Regexp{}
)

// tagPattern matches <tag>...</tag> case-insensitively across newlines.
// Tags come from a fixed internal set, never from model output.
func tagPattern(tag string) *regexp.Regexp {
	patternMu.Lock()
	defer patternMu.Unlock()
	if re, ok := patternCache[tag]; ok {
		return re
	}
	re := regexp.MustCompile(`(?is)<` + tag + `>\s*(.*?)\s*</` + tag + `>`)
	patternCache[tag] = re
	return re
}

func extractOne(text, tag string) string {
	match := tagPattern(tag).FindStringSubmatch(text)
	if match == nil {
		return ""
	}
	return strings.TrimSpace(match[1])
}

func extractAll(text, tag string) []string {
	matches := tagPattern(tag).FindAllStringSubmatch(text, -1)
	values := make([]string, 0, len(matches))
	for _, match := range matches {
		if value := strings.TrimSpace(match[1]); value != "" {
			values = append(values, value)
		}
	}
	return values
}

// ParseTopics extracts every topic block from a model response. Blocks with
// no topic name are dropped; partially filled blocks are kept as-is.
func ParseTopics(text string) []Topic {
	blocks := extractAll(text, "topic_block")
	topics := make([]Topic, 0, len(blocks))
	for _, block := range blocks {
		topic := Topic{
			Topic:           extractOne(block, "topic"),
			ProblemItSolves: extractOne(block, "problem_it_solves"),
			HowItWorks:      extractOne(block, "how_it_works"),
			WhenToUse:       extractOne(block, "when_to_use"),
			WhenNotToUse:    extractOne(block, "when_not_to_use"),
			Examples:        extractAll(block, "example"),
		}
		if topic.Topic == "" {
			continue
		}
		topics = append(topics, topic)
	}
	return topics
}

// FormatDigest renders topics as a Slack-markdown digest.
func FormatDigest(topics []Topic) string {
	if len(topics) == 0 {
		return "No structured topics found in the analysis."
	}
	sections := make([]string, 0, len(topics))
	for i, topic := range topics {
		var b strings.Builder
		fmt.Fprintf(&b, "*%d. %s*", i+1, topic.Topic)
		appendField(&b, "Problem it solves", topic.ProblemItSolves)
		appendField(&b, "How it works", topic.HowItWorks)
		appendField(&b, "When to use", topic.WhenToUse)
		appendField(&b, "When not to use", topic.WhenNotToUse)
		if len(topic.Examples) > 0 {
			b.WriteString("\n_Examples:_")
			for _, example := range topic.Examples {
				b.WriteString("\n• ")
				b.WriteString(example)
			}
		}
		sections = append(sections, b.String())
	}
	return strings.Join(sections, "\n\n")
}

func appendField(b *strings.Builder, label, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(b, "\n_%s:_ %s", label, value)
}
