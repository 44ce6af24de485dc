package aiservice

// Wire types for the upstream AI service. Field names follow the service's
// snake_case JSON contract.

// PreferenceProfile is the preference snapshot sent with every request.
type PreferenceProfile struct {
	FavoriteGhostTypes    []string `json:"favorite_ghost_types"`
	PreferredContentTypes []string `json:"preferred_content_types,omitempty"`
	CulturalInterests     []string `json:"cultural_interests"`
	SpookinessLevel       int      `json:"spookiness_level"`
}

// InteractionEvent is one historical user action.
type InteractionEvent struct {
	ContentID       string `json:"content_id"`
	ContentType     string `json:"content_type"`
	InteractionType string `json:"interaction_type"`
	Timestamp       string `json:"timestamp"`
}

// RecommendationRequest asks for scored content suggestions.
type RecommendationRequest struct {
	UserID             string             `json:"user_id"`
	PreferenceProfile  PreferenceProfile  `json:"preference_profile"`
	InteractionHistory []InteractionEvent `json:"interaction_history"`
	Limit              int                `json:"limit,omitempty"`
}

// ScoredContent is one recommendation returned by the engine.
type ScoredContent struct {
	ContentID   string  `json:"content_id"`
	ContentType string  `json:"content_type"`
	Score       float64 `json:"score"`
	Reasoning   string  `json:"reasoning"`
}

// RecommendationResponse is the engine's answer.
type RecommendationResponse struct {
	UserID          string          `json:"user_id"`
	Recommendations []ScoredContent `json:"recommendations"`
	Count           int             `json:"count"`
}

// ChatTurn is one prior message in the conversation context.
type ChatTurn struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

// RecentInteraction is a compact interaction summary for chat context.
type RecentInteraction struct {
	ContentType     string `json:"content_type"`
	InteractionType string `json:"interaction_type"`
}

// TwinContext bundles the personalization context for a chat message.
type TwinContext struct {
	UserPreferences    PreferenceProfile   `json:"user_preferences"`
	RecentMessages     []ChatTurn          `json:"recent_messages"`
	RecentInteractions []RecentInteraction `json:"recent_interactions"`
}

// TwinMessageRequest carries one conversational message.
type TwinMessageRequest struct {
	UserID  string      `json:"user_id"`
	Message string      `json:"message"`
	Context TwinContext `json:"context"`
}

// ContentReference points at a catalog item mentioned in a reply.
type ContentReference struct {
	ContentType string `json:"content_type"`
	ContentID   string `json:"content_id"`
}

// TwinMessageResponse is the digital twin's reply.
type TwinMessageResponse struct {
	UserID            string             `json:"user_id"`
	Response          string             `json:"response"`
	ContentReferences []ContentReference `json:"content_references"`
	ResponseTime      float64            `json:"response_time"`
	Error             string             `json:"error,omitempty"`
}
