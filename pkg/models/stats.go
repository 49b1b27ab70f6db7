package models

// OverviewStats holds whole-store totals.
type OverviewStats struct {
	TotalChats     int64 `json:"total_chats" db:"total_chats"`
	TotalMessages  int64 `json:"total_messages" db:"total_messages"`
	TotalModels    int64 `json:"total_models" db:"total_models"`
	TotalFeedbacks int64 `json:"total_feedbacks" db:"total_feedbacks"`
}

// DailyStat is the activity of one KST calendar date.
type DailyStat struct {
	Date         string `json:"date" db:"date"`
	ChatCount    int64  `json:"chat_count" db:"chat_count"`
	MessageCount int64  `json:"message_count" db:"message_count"`
	UserCount    int64  `json:"user_count" db:"user_count"`
}

// ModelChatCount is the number of (chat, model) pairs for one model.
type ModelChatCount struct {
	Model     string `db:"model"`
	ChatCount int64  `db:"chat_count"`
}

// ModelResponseLength sums assistant message lengths for one model.
type ModelResponseLength struct {
	Model        string `db:"model"`
	TotalLength  int64  `db:"total_length"`
	MessageCount int64  `db:"message_count"`
}

// ModelStat is a row of the model usage report.
type ModelStat struct {
	Model             string `json:"model"`
	ChatCount         int64  `json:"chat_count"`
	AvgResponseLength int64  `json:"avg_response_length"`
}

// WorkspaceRanking is the activity rollup of one workspace.
type WorkspaceRanking struct {
	ID             string `json:"id" db:"id"`
	Name           string `json:"name" db:"name"`
	DeveloperEmail string `json:"developer_email" db:"developer_email"`
	UserCount      int64  `json:"user_count" db:"user_count"`
	ChatCount      int64  `json:"chat_count" db:"chat_count"`
	MessageCount   int64  `json:"message_count" db:"message_count"`
	Positive       int64  `json:"positive" db:"positive"`
	Negative       int64  `json:"negative" db:"negative"`
}

// DeveloperRanking is the rollup of every workspace owned by one user.
type DeveloperRanking struct {
	UserID         string `json:"user_id" db:"user_id"`
	UserName       string `json:"user_name" db:"user_name"`
	Email          string `json:"email" db:"email"`
	WorkspaceCount int64  `json:"workspace_count" db:"workspace_count"`
	TotalUsers     int64  `json:"total_users" db:"total_users"`
	TotalChats     int64  `json:"total_chats" db:"total_chats"`
	TotalMessages  int64  `json:"total_messages" db:"total_messages"`
	TotalPositive  int64  `json:"total_positive" db:"total_positive"`
	TotalNegative  int64  `json:"total_negative" db:"total_negative"`
}

// GroupAggregate carries the raw per-group totals. Both feedback
// conventions are computed so that either report variant can be built.
type GroupAggregate struct {
	GroupID        string `db:"group_id"`
	GroupName      string `db:"group_name"`
	MemberCount    int64  `db:"member_count"`
	TotalChats     int64  `db:"total_chats"`
	TotalMessages  int64  `db:"total_messages"`
	TotalPositive  int64  `db:"total_positive"`
	TotalNegative  int64  `db:"total_negative"`
	TotalFeedbacks int64  `db:"total_feedbacks"`
}

// GroupRanking is a row of the group report. Exactly one feedback
// convention is populated: TotalFeedbacks, or TotalPositive/TotalNegative.
type GroupRanking struct {
	GroupID           string   `json:"group_id"`
	GroupName         string   `json:"group_name"`
	MemberCount       int64    `json:"member_count"`
	TotalChats        int64    `json:"total_chats"`
	TotalMessages     int64    `json:"total_messages"`
	TotalFeedbacks    *int64   `json:"total_feedbacks,omitempty"`
	TotalPositive     *int64   `json:"total_positive,omitempty"`
	TotalNegative     *int64   `json:"total_negative,omitempty"`
	ChatsPerMember    *float64 `json:"chats_per_member"`
	MessagesPerMember *float64 `json:"messages_per_member"`
}
