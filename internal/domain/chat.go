package domain

// Chat is a conversation about a book. A freshly created chat may not be
// readable for a short while after the write that created it.
type Chat struct {
	ID     string `json:"id"`
	BookID string `json:"book_id"`
	Title  string `json:"title"`
}

// MessageRequest is sent to the streaming completion endpoint.
type MessageRequest struct {
	Content  string `json:"content"`
	SenderID string `json:"sender_id"`
	ChatID   string `json:"chat_id"`
	BookID   string `json:"book_id,omitempty"`
}
