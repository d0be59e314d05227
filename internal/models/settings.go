package models

import "time"

// FeatureFlags are the admin-controlled switches consulted on every interaction.
type FeatureFlags struct {
	ChatEnabled      bool `json:"chatEnabled"`
	PollsEnabled     bool `json:"pollsEnabled"`
	CommentsEnabled  bool `json:"commentsEnabled"`
	QuestionsEnabled bool `json:"questionsEnabled"`
	ChatModerated    bool `json:"chatModerated"`
	ChatGlobal       bool `json:"chatGlobal"`
}

// Settings is the current event configuration: flags plus the content deny-list.
type Settings struct {
	FeatureFlags
	DenyList  []string  `json:"denyList"`
	UpdatedAt time.Time `json:"updatedAt"`
}
