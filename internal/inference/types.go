package inference

import "encoding/json"

// ChatCompletionRequest is the OpenAI-compatible body sent to the endpoint.
type ChatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
	Stream      bool          `json:"stream"`
}

type ChatMessage struct {
	Role    string        `json:"role"`
	Content []ContentPart `json:"content"`
}

// ContentPart is either a text part or an image_url part.
type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

type ImageURL struct {
	URL string `json:"url"`
}

// ChatCompletionResponse keeps pointers so that missing fields can be told apart from empty ones.
type ChatCompletionResponse struct {
	ID      string    `json:"id,omitempty"`
	Model   string    `json:"model,omitempty"`
	Choices *[]Choice `json:"choices"`
	Usage   *Usage    `json:"usage,omitempty"`
}

type Choice struct {
	Index        int              `json:"index"`
	Message      *ResponseMessage `json:"message"`
	FinishReason string           `json:"finish_reason,omitempty"`
}

type ResponseMessage struct {
	Role    string  `json:"role"`
	Content *string `json:"content"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// errorEnvelope covers both {"error":"text"} and {"error":{"message":"text"}}.
type errorEnvelope struct {
	Error json.RawMessage `json:"error"`
}

type errorObject struct {
	Message string `json:"message"`
	Type    string `json:"type,omitempty"`
	Code    string `json:"code,omitempty"`
}

func newAnalysisRequest(model, instruction, dataURI string, maxTokens int, temperature float64) ChatCompletionRequest {
	return ChatCompletionRequest{
		Model: model,
		Messages: []ChatMessage{
			{
				Role: "user",
				Content: []ContentPart{
					{Type: "text", Text: instruction},
					{Type: "image_url", ImageURL: &ImageURL{URL: dataURI}},
				},
			},
		},
		MaxTokens:   maxTokens,
		Temperature: temperature,
		Stream:      false,
	}
}
