package classify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultCategory is used whenever classification is unavailable or the
// upstream call fails. Upstream failures are logged by callers and never
// block listing creation.
const DefaultCategory = "General"

// SportCategories are the candidate labels sent to the zero-shot
// classification endpoint.
var SportCategories = []string{
	"Personal Training",
	"Tennis Coaching",
	"Football Coaching",
	"Swimming Lessons",
	"Yoga Instruction",
	"Cricket Coaching",
	"Badminton Coaching",
	"Physiotherapy",
	"Nutrition Planning",
	"General",
}

type ClassifyService struct {
	Client  *http.Client
	BaseURL string
	APIKey  string
}

func NewClassifyService(baseURL, apiKey string) *ClassifyService {
	return &ClassifyService{
		Client:  &http.Client{Timeout: 15 * time.Second},
		BaseURL: baseURL,
		APIKey:  apiKey,
	}
}

type classifyRequest struct {
	Inputs     string `json:"inputs"`
	Parameters struct {
		CandidateLabels []string `json:"candidate_labels"`
	} `json:"parameters"`
}

type classifyResponse struct {
	Labels []string  `json:"labels"`
	Scores []float64 `json:"scores"`
}

// Categorize maps a listing title to a sport category via the external
// zero-shot classification API. Misconfiguration or any upstream error
// returns DefaultCategory with the error for the caller to log.
func (s *ClassifyService) Categorize(title string) (string, error) {
	if s.BaseURL == "" || s.APIKey == "" {
		return DefaultCategory, fmt.Errorf("classification api not configured")
	}

	reqBody := classifyRequest{Inputs: title}
	reqBody.Parameters.CandidateLabels = SportCategories

	jsonBody, _ := json.Marshal(reqBody)

	req, err := http.NewRequest("POST", s.BaseURL, bytes.NewBuffer(jsonBody))
	if err != nil {
		return DefaultCategory, err
	}

	req.Header.Set("Authorization", "Bearer "+s.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		return DefaultCategory, err
	}
	defer resp.Body.Close()

	bodyBytes, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return DefaultCategory, fmt.Errorf("classify error: status %d", resp.StatusCode)
	}

	var apiResp classifyResponse
	if err := json.Unmarshal(bodyBytes, &apiResp); err != nil {
		return DefaultCategory, fmt.Errorf("failed to parse response: %v", err)
	}

	if len(apiResp.Labels) == 0 {
		return DefaultCategory, fmt.Errorf("classify error: empty labels")
	}

	return apiResp.Labels[0], nil
}
