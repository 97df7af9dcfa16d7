// Package brief turns a queue item into the free-text brief and structured
// hints handed to the content pipeline. Building a brief touches no storage
// and no network.
package brief

import (
	"fmt"
	"strings"

	"loom/internal/queue"
)

const (
	pillarGuidance     = "comprehensive pillar page (3000-4500 words)"
	supportingGuidance = "focused supporting article (1800-2500 words)"

	audienceLine = "The article targets working professionals in the outsourcing industry."
	detailLine   = "Use specific local examples, real salary figures, and real company names."
)

// Hints carries the structured fields that accompany the free-text brief so
// downstream pipeline stages receive proper values instead of re-parsing text.
type Hints struct {
	Topic          string `json:"topic"`
	PrimaryKeyword string `json:"focusKeyword"`
	SiloTopic      string `json:"siloTopic"`
	SiloID         string `json:"siloId"`
	Slug           string `json:"slug"`
	Level          string `json:"level"`
}

// Brief is the complete pipeline input derived from one queue item.
type Brief struct {
	Text  string
	Hints Hints
}

// Build maps a queue item to its pipeline brief. The primary keyword is the
// first entry of the keyword list, falling back to the title when the list is
// empty.
func Build(item *queue.Item) Brief {
	level := item.Level
	if level == "" {
		level = queue.LevelSupporting
	}
	guidance := supportingGuidance
	if level == queue.LevelPillar {
		guidance = pillarGuidance
	}

	lines := []string{
		fmt.Sprintf("Write an article about: %s", item.Title),
		"",
		fmt.Sprintf("TARGET KEYWORDS: %s", strings.Join(item.TargetKeywords, ", ")),
		fmt.Sprintf("CONTENT SUMMARY: %s", item.ContentSummary),
		fmt.Sprintf("SILO: %s", item.SiloName),
		fmt.Sprintf("ARTICLE LEVEL: %s", strings.ToUpper(string(level))),
		fmt.Sprintf("SLUG: %s", item.Slug),
		"",
		fmt.Sprintf("This is a %s for the %s silo.", guidance, item.SiloName),
		"",
		audienceLine,
		detailLine,
	}
	if item.ClusterName != "" {
		lines = append(lines, fmt.Sprintf("KEYWORD CLUSTER: %s", item.ClusterName))
	}

	return Brief{
		Text: strings.Join(lines, "\n"),
		Hints: Hints{
			Topic:          item.Title,
			PrimaryKeyword: item.PrimaryKeyword(),
			SiloTopic:      item.SiloName,
			SiloID:         item.SiloID,
			Slug:           item.Slug,
			Level:          string(level),
		},
	}
}
