package models

import "time"

// Turn is one entry of a conversation, replayed verbatim as model context.
type Turn struct {
	Role    string `bson:"role" json:"role"`
	Content string `bson:"content" json:"content"`
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Conversation holds the running chat history of one authenticated user.
// One record per user; history order is significant.
type Conversation struct {
	ID        string    `bson:"_id" json:"id"`
	UserID    string    `bson:"user_id" json:"userId"`
	History   []Turn    `bson:"history" json:"history"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// CachedAnswer is one approximate-cache entry. The question is stored raw,
// exactly as the user typed it; similarity matching normalizes at read time.
type CachedAnswer struct {
	ID        string    `bson:"_id" json:"id"`
	Question  string    `bson:"question" json:"question"`
	Answer    string    `bson:"answer" json:"answer"`
	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
}

// TourSummary is the read-only projection of a storefront tour used to
// enrich assistant context.
type TourSummary struct {
	Title string  `bson:"title" json:"title"`
	Price float64 `bson:"price" json:"price"`
}
