package toxicity

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"
)

// Result is a toxicity verdict for a piece of text.
type Result struct {
	IsToxic bool    `json:"is_toxic"`
	Score   float64 `json:"score"`
}

// Classifier scores chat text before it is broadcast. Implementations must
// fail open: an unreachable classifier never blocks chat.
type Classifier interface {
	Classify(ctx context.Context, text string) Result
}

const defaultThreshold = 0.7

// PerspectiveClient calls a comments:analyze endpoint for TOXICITY scores.
type PerspectiveClient struct {
	apiKey    string
	url       string
	threshold float64
	client    *http.Client
}

// NewPerspectiveClient constructs a classifier with a bounded request timeout.
func NewPerspectiveClient(apiKey, url string, timeout time.Duration) *PerspectiveClient {
	return &PerspectiveClient{
		apiKey:    apiKey,
		url:       url,
		threshold: defaultThreshold,
		client:    &http.Client{Timeout: timeout},
	}
}

type analyzeRequest struct {
	Comment struct {
		Text string `json:"text"`
	} `json:"comment"`
	Languages           []string            `json:"languages"`
	RequestedAttributes map[string]struct{} `json:"requestedAttributes"`
}

type analyzeResponse struct {
	AttributeScores map[string]struct {
		SummaryScore struct {
			Value float64 `json:"value"`
		} `json:"summaryScore"`
	} `json:"attributeScores"`
}

// Classify scores the text. Any failure is logged and treated as not toxic.
func (p *PerspectiveClient) Classify(ctx context.Context, text string) Result {
	if text == "" || p.apiKey == "" {
		return Result{}
	}

	reqBody := analyzeRequest{
		Languages:           []string{"en"},
		RequestedAttributes: map[string]struct{}{"TOXICITY": {}},
	}
	reqBody.Comment.Text = text

	payload, err := json.Marshal(reqBody)
	if err != nil {
		log.Printf("toxicity: marshal request: %v", err)
		return Result{}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url+"?key="+p.apiKey, bytes.NewReader(payload))
	if err != nil {
		log.Printf("toxicity: build request: %v", err)
		return Result{}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		log.Printf("toxicity: classifier unreachable, failing open: %v", err)
		return Result{}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("toxicity: classifier status %d, failing open", resp.StatusCode)
		return Result{}
	}

	var parsed analyzeResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		log.Printf("toxicity: decode response: %v", err)
		return Result{}
	}

	score := parsed.AttributeScores["TOXICITY"].SummaryScore.Value
	return Result{IsToxic: score > p.threshold, Score: score}
}
