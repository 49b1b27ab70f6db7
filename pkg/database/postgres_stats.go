package database

import (
	"context"
	"fmt"

	"webui-dashboard-api/pkg/models"

	"github.com/jmoiron/sqlx"
)

// SQL fragments shared by the aggregate queries. The chat and feedback
// documents are read through ::json so the queries work whether the column
// is json, jsonb or text. A value that is not an array counts as empty.
const (
	messagesArray = `CASE WHEN json_typeof(c.chat::json -> 'messages') = 'array'
		THEN c.chat::json -> 'messages' ELSE '[]'::json END`

	modelsArray = `CASE WHEN json_typeof(c.chat::json -> 'models') = 'array'
		THEN c.chat::json -> 'models' ELSE '[]'::json END`

	messageCount = `json_array_length(` + messagesArray + `)`

	feedbackRating = `CASE WHEN json_typeof(f.data::json -> 'rating') = 'number'
		THEN (f.data::json ->> 'rating')::numeric ELSE 0 END`

	feedbackModelID = `(f.data::json ->> 'model_id')`

	// chat_models explodes every chat into one row per referenced model;
	// workspace_usage and workspace_feedback roll those up per model id.
	// Feedback is keyed by its model_id alone, so a chat-attributed id
	// without a model row still collects its ratings.
	workspaceCTEs = `
chat_models AS (
	SELECT c.id AS chat_id, c.user_id, m.model_id, ` + messageCount + ` AS message_count
	FROM chat c
	CROSS JOIN LATERAL json_array_elements_text(` + modelsArray + `) AS m(model_id)
	WHERE m.model_id IS NOT NULL
),
workspace_usage AS (
	SELECT model_id,
		COUNT(DISTINCT user_id) AS user_count,
		COUNT(*) AS chat_count,
		COALESCE(SUM(message_count), 0) AS message_count
	FROM chat_models
	GROUP BY model_id
),
workspace_feedback AS (
	SELECT ` + feedbackModelID + ` AS model_id,
		COUNT(*) FILTER (WHERE ` + feedbackRating + ` > 0) AS positive,
		COUNT(*) FILTER (WHERE ` + feedbackRating + ` < 0) AS negative
	FROM feedback f
	WHERE ` + feedbackModelID + ` IS NOT NULL
	GROUP BY 1
)`
)

const overviewQuery = `
SELECT
	(SELECT COUNT(*) FROM chat) AS total_chats,
	(SELECT COALESCE(SUM(` + messageCount + `), 0) FROM chat c)::bigint AS total_messages,
	(SELECT COUNT(DISTINCT m.model_id)
		FROM chat c
		CROSS JOIN LATERAL json_array_elements_text(` + modelsArray + `) AS m(model_id)) AS total_models,
	(SELECT COUNT(*) FROM feedback) AS total_feedbacks`

// 32400 seconds shifts epoch values into UTC+9 before taking the date.
const dailyQuery = `
SELECT
	to_char(to_timestamp(c.created_at + 32400) AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS date,
	COUNT(*) AS chat_count,
	COALESCE(SUM(` + messageCount + `), 0)::bigint AS message_count,
	COUNT(DISTINCT c.user_id) AS user_count
FROM chat c
WHERE c.created_at >= $1 AND c.created_at < $2
GROUP BY 1
ORDER BY 1`

const modelChatCountsQuery = `
SELECT m.model_id AS model, COUNT(*) AS chat_count
FROM chat c
CROSS JOIN LATERAL json_array_elements_text(` + modelsArray + `) AS m(model_id)
WHERE m.model_id IS NOT NULL
GROUP BY m.model_id`

const modelResponseLengthsQuery = `
SELECT
	m.model_id AS model,
	COALESCE(SUM(LENGTH(msg.value ->> 'content')), 0)::bigint AS total_length,
	COUNT(msg.value ->> 'content') AS message_count
FROM chat c
CROSS JOIN LATERAL json_array_elements_text(` + modelsArray + `) AS m(model_id)
CROSS JOIN LATERAL json_array_elements(` + messagesArray + `) AS msg(value)
WHERE m.model_id IS NOT NULL
	AND json_typeof(msg.value) = 'object'
	AND msg.value ->> 'role' = 'assistant'
GROUP BY m.model_id`

const workspaceRankingQuery = `
WITH ` + workspaceCTEs + `
SELECT
	u.model_id AS id,
	COALESCE(w.name, u.model_id) AS name,
	COALESCE(o.email, '') AS developer_email,
	u.user_count,
	u.chat_count,
	u.message_count::bigint AS message_count,
	COALESCE(fb.positive, 0) AS positive,
	COALESCE(fb.negative, 0) AS negative
FROM workspace_usage u
LEFT JOIN model w ON w.id = u.model_id
LEFT JOIN "user" o ON o.id = w.user_id
LEFT JOIN workspace_feedback fb ON fb.model_id = u.model_id
ORDER BY u.chat_count DESC, u.model_id`

const developerRankingQuery = `
WITH ` + workspaceCTEs + `
SELECT
	o.id AS user_id,
	COALESCE(o.name, '') AS user_name,
	COALESCE(o.email, '') AS email,
	COUNT(w.id) AS workspace_count,
	COALESCE(SUM(u.user_count), 0)::bigint AS total_users,
	COALESCE(SUM(u.chat_count), 0)::bigint AS total_chats,
	COALESCE(SUM(u.message_count), 0)::bigint AS total_messages,
	COALESCE(SUM(fb.positive), 0)::bigint AS total_positive,
	COALESCE(SUM(fb.negative), 0)::bigint AS total_negative
FROM "user" o
JOIN model w ON w.user_id = o.id
LEFT JOIN workspace_usage u ON u.model_id = w.id
LEFT JOIN workspace_feedback fb ON fb.model_id = w.id
GROUP BY o.id, o.name, o.email
ORDER BY total_chats DESC, o.id`

// The member count is a window count over the membership rows so that
// joining per-user totals afterwards cannot inflate it.
const groupAggregatesQuery = `
WITH members AS (
	SELECT g.id AS group_id, g.name AS group_name, gm.user_id,
		COUNT(gm.user_id) OVER (PARTITION BY g.id) AS member_count
	FROM "group" g
	LEFT JOIN group_member gm ON gm.group_id = g.id
),
user_chats AS (
	SELECT c.user_id, COUNT(*) AS chats, COALESCE(SUM(` + messageCount + `), 0) AS messages
	FROM chat c
	GROUP BY c.user_id
),
user_feedback AS (
	SELECT f.user_id,
		COUNT(*) FILTER (WHERE ` + feedbackRating + ` > 0) AS positive,
		COUNT(*) FILTER (WHERE ` + feedbackRating + ` < 0) AS negative,
		COUNT(w.id) AS feedbacks
	FROM feedback f
	LEFT JOIN model w ON w.id = ` + feedbackModelID + `
	GROUP BY f.user_id
)
SELECT
	m.group_id,
	COALESCE(m.group_name, '') AS group_name,
	MAX(m.member_count) AS member_count,
	COALESCE(SUM(uc.chats), 0)::bigint AS total_chats,
	COALESCE(SUM(uc.messages), 0)::bigint AS total_messages,
	COALESCE(SUM(uf.positive), 0)::bigint AS total_positive,
	COALESCE(SUM(uf.negative), 0)::bigint AS total_negative,
	COALESCE(SUM(uf.feedbacks), 0)::bigint AS total_feedbacks
FROM members m
LEFT JOIN user_chats uc ON uc.user_id = m.user_id
LEFT JOIN user_feedback uf ON uf.user_id = m.user_id
GROUP BY m.group_id, m.group_name`

const feedbackTotalsQuery = `
SELECT
	COUNT(*) FILTER (WHERE ` + feedbackRating + ` > 0) AS positive,
	COUNT(*) FILTER (WHERE ` + feedbackRating + ` < 0) AS negative
FROM feedback f`

const recentFeedbacksQuery = `
SELECT
	f.id,
	COALESCE(` + feedbackModelID + `, '') AS model_id,
	ROUND(` + feedbackRating + `)::bigint AS rating,
	f.data::json ->> 'comment' AS comment,
	f.created_at
FROM feedback f
ORDER BY f.created_at DESC, f.id
LIMIT $1`

const recentChatsQuery = `
SELECT
	c.id,
	c.user_id,
	COALESCE(c.title, '') AS title,
	COALESCE(c.chat::text, '') AS chat,
	c.created_at,
	c.updated_at
FROM chat c
ORDER BY c.updated_at DESC, c.id
LIMIT $1`

func (db *PostgresDatabase) Overview(ctx context.Context) (*models.OverviewStats, error) {
	var stats models.OverviewStats
	err := db.withConn(ctx, func(conn *sqlx.Conn) error {
		return conn.GetContext(ctx, &stats, overviewQuery)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query overview: %w", err)
	}
	return &stats, nil
}

func (db *PostgresDatabase) DailyStats(ctx context.Context, start, end int64) ([]models.DailyStat, error) {
	var rows []models.DailyStat
	err := db.withConn(ctx, func(conn *sqlx.Conn) error {
		return conn.SelectContext(ctx, &rows, dailyQuery, start, end)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query daily stats: %w", err)
	}
	return rows, nil
}

func (db *PostgresDatabase) ModelUsage(ctx context.Context) ([]models.ModelChatCount, []models.ModelResponseLength, error) {
	var counts []models.ModelChatCount
	var lengths []models.ModelResponseLength
	err := db.withConn(ctx, func(conn *sqlx.Conn) error {
		if err := conn.SelectContext(ctx, &counts, modelChatCountsQuery); err != nil {
			return fmt.Errorf("chat counts: %w", err)
		}
		if err := conn.SelectContext(ctx, &lengths, modelResponseLengthsQuery); err != nil {
			return fmt.Errorf("response lengths: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query model usage: %w", err)
	}
	return counts, lengths, nil
}

func (db *PostgresDatabase) WorkspaceRanking(ctx context.Context) ([]models.WorkspaceRanking, error) {
	var rows []models.WorkspaceRanking
	err := db.withConn(ctx, func(conn *sqlx.Conn) error {
		return conn.SelectContext(ctx, &rows, workspaceRankingQuery)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query workspace ranking: %w", err)
	}
	return rows, nil
}

func (db *PostgresDatabase) DeveloperRanking(ctx context.Context) ([]models.DeveloperRanking, error) {
	var rows []models.DeveloperRanking
	err := db.withConn(ctx, func(conn *sqlx.Conn) error {
		return conn.SelectContext(ctx, &rows, developerRankingQuery)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query developer ranking: %w", err)
	}
	return rows, nil
}

func (db *PostgresDatabase) GroupAggregates(ctx context.Context) ([]models.GroupAggregate, error) {
	var rows []models.GroupAggregate
	err := db.withConn(ctx, func(conn *sqlx.Conn) error {
		return conn.SelectContext(ctx, &rows, groupAggregatesQuery)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query group ranking: %w", err)
	}
	return rows, nil
}

func (db *PostgresDatabase) FeedbackSummary(ctx context.Context, recentLimit int) (*models.FeedbackSummary, error) {
	var summary models.FeedbackSummary
	err := db.withConn(ctx, func(conn *sqlx.Conn) error {
		if err := conn.GetContext(ctx, &summary, feedbackTotalsQuery); err != nil {
			return fmt.Errorf("totals: %w", err)
		}
		if err := conn.SelectContext(ctx, &summary.Recent, recentFeedbacksQuery, recentLimit); err != nil {
			return fmt.Errorf("recent: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query feedback summary: %w", err)
	}
	return &summary, nil
}

func (db *PostgresDatabase) RecentChats(ctx context.Context, limit int) ([]models.ChatRow, error) {
	var rows []models.ChatRow
	err := db.withConn(ctx, func(conn *sqlx.Conn) error {
		return conn.SelectContext(ctx, &rows, recentChatsQuery, limit)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query recent chats: %w", err)
	}
	return rows, nil
}
