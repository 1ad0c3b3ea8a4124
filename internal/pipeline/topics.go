package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/nexusresearch/paper-recommendation-service/internal/domain"
	"github.com/nexusresearch/paper-recommendation-service/internal/llm"
)

const (
	// maxTopics caps how many research topics one extraction yields.
	maxTopics = 5

	// topicAbstractChars bounds per-paper abstract text in the extraction
	// prompt.
	topicAbstractChars = 500

	topicSystemPrompt = "You are a research interest analyzer. " +
		"You respond with valid JSON only, no markdown fences and no prose."
)

// TopicExtractor derives the research topics behind a user's read papers by
// asking the judge for a structured summary. Extraction is best-effort: a
// malformed response gets one repair attempt before the error is returned.
type TopicExtractor struct {
	judge llm.Client
}

// NewTopicExtractor creates a topic extractor backed by the given judge.
func NewTopicExtractor(judge llm.Client) *TopicExtractor {
	return &TopicExtractor{judge: judge}
}

// topicsResponse is the shape the extraction prompt requests.
type topicsResponse struct {
	Topics   []string `json:"topics"`
	Keywords []string `json:"keywords"`
}

// Extract returns up to maxTopics research topics describing the read
// papers, most prominent first. Blank topics are dropped; when no topic
// survives, the keywords array stands in for the topics. If the judge
// response cannot be decoded after one repair attempt, the decode error is
// returned wrapped as domain.ErrJudgeOutputInvalid.
func (e *TopicExtractor) Extract(ctx context.Context, read []*domain.Paper) ([]string, error) {
	if len(read) == 0 {
		return nil, nil
	}

	prompt := buildTopicPrompt(read)
	resp, err := e.judge.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: topicSystemPrompt},
			{Role: llm.RoleUser, Content: prompt},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("topic extraction: %w", err)
	}

	topics, decodeErr := decodeTopics(resp.Content)
	if decodeErr == nil {
		return topics, nil
	}

	// One repair round: re-ask with the broken output attached. Models
	// usually fix fencing or shape mistakes when shown them.
	repairResp, err := e.judge.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: topicSystemPrompt},
			{Role: llm.RoleUser, Content: prompt},
			{Role: llm.RoleAssistant, Content: resp.Content},
			{Role: llm.RoleUser, Content: "That was not the requested JSON. Respond again with only the JSON object described above."},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("topic extraction repair: %w", err)
	}

	topics, decodeErr = decodeTopics(repairResp.Content)
	if decodeErr != nil {
		return nil, decodeErr
	}
	return topics, nil
}

func decodeTopics(content string) ([]string, error) {
	var parsed topicsResponse
	if err := llm.DecodeJSON(content, &parsed); err != nil {
		return nil, err
	}

	topics := cleanTopics(parsed.Topics)
	if len(topics) == 0 {
		// Some judges put everything under keywords and leave topics
		// empty. Keywords are search-friendly phrases too, so query
		// with them rather than degrading the run.
		topics = cleanTopics(parsed.Keywords)
	}
	return topics, nil
}

// cleanTopics trims, drops blanks, and caps the list at maxTopics.
func cleanTopics(raw []string) []string {
	topics := make([]string, 0, maxTopics)
	for _, topic := range raw {
		topic = strings.TrimSpace(topic)
		if topic == "" {
			continue
		}
		topics = append(topics, topic)
		if len(topics) == maxTopics {
			break
		}
	}
	return topics
}

// buildTopicPrompt lists the read papers and requests a JSON object with
// topics and keywords. Abstracts are truncated so twenty papers stay well
// inside the judge's context window.
func buildTopicPrompt(read []*domain.Paper) string {
	var b strings.Builder
	b.WriteString("Based on these papers the user has read, identify their main research interests.\n\nPapers read:\n")
	for i, paper := range read {
		fmt.Fprintf(&b, "%d. %q", i+1, paper.Title)
		if summary := paper.Summary(topicAbstractChars); summary != "" {
			fmt.Fprintf(&b, " - %s", summary)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "\nRespond with a JSON object of the form "+
		`{"topics": ["topic1", "topic2"], "keywords": ["kw1", "kw2"]} `+
		"containing at most %d topics, most prominent first. "+
		"Topics should be search-friendly phrases of 2-4 words.", maxTopics)
	return b.String()
}
