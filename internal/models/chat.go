package models

// Chat message directions as stored by the chat backend.
const (
	DirectionInbound  = 0 // user → support
	DirectionOutbound = 1 // support → user
)

// ChatMessage is one entry of a conversation history.
type ChatMessage struct {
	Direction int    `json:"Direction"`
	Sender    string `json:"Sender"`
	Body      string `json:"Body"`
	CreatedAt string `json:"CreatedAt"`
}

// StartChatRequest is the body of POST /api/chat/start.
type StartChatRequest struct {
	UserID         string `json:"userId"`
	ProjectName    string `json:"projectName"`
	ConversationID string `json:"conversationId,omitempty"`
}

// StartChatResponse is the response of POST /api/chat/start.
type StartChatResponse struct {
	ConversationID string `json:"conversationId"`
}

// SendChatRequest is the body of POST /api/chat/send.
type SendChatRequest struct {
	ConversationID string `json:"conversationId"`
	UserID         string `json:"userId"`
	Text           string `json:"text"`
}
