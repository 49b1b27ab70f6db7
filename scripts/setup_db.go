package main

import (
	"context"
	_ "embed"
	"encoding/json"
	"flag"
	"fmt"
	"net/url"
	"os"
	"time"

	"webui-dashboard-api/pkg/config"
	"webui-dashboard-api/pkg/database"
	"webui-dashboard-api/pkg/logger"
	"webui-dashboard-api/pkg/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

//go:embed init_db.sql
var initSQL string

func main() {
	cfg := config.LoadConfig()

	dsn := flag.String("dsn", cfg.PostgresDSN, "Postgres DSN of the Open WebUI database")
	fixture := flag.String("fixture", "", "write a demo dataset for USE_LOCAL_DB to this path and exit")
	flag.Parse()

	log, err := logger.New(cfg.Environment, true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if *fixture != "" {
		if err := writeFixture(*fixture, time.Now()); err != nil {
			log.Fatal("Failed to write fixture", "path", *fixture, "error", err)
		}
		log.Info("Demo dataset written", "path", *fixture)
		return
	}

	log.Info("Connecting to database", "dsn", maskPassword(*dsn))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := sqlx.ConnectContext(ctx, "postgres", *dsn)
	if err != nil {
		log.Fatal("Failed to connect to database", "error", err)
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, initSQL); err != nil {
		log.Fatal("Failed to execute SQL script", "error", err)
	}
	log.Info("Database initialization completed")

	// Verify the tables the dashboard reads are reachable.
	tables := []string{"required_packages", "chat", "feedback", "model", `"user"`, `"group"`, "group_member"}
	for _, table := range tables {
		var count int
		if err := db.GetContext(ctx, &count, fmt.Sprintf("SELECT COUNT(*) FROM %s", table)); err != nil {
			log.Warn("Failed to query table", "table", table, "error", err)
			continue
		}
		log.Info("Table ready", "table", table, "rows", count)
	}
}

// writeFixture generates a small but complete dataset: two developers with
// three workspaces, a handful of chats spread over the last days, feedback
// and two groups, one of them empty.
func writeFixture(path string, now time.Time) error {
	newID := func() string { return uuid.NewString() }

	alice := models.UserRow{ID: newID(), Name: "Alice Kim", Email: "alice.kim@samsung.com"}
	bob := models.UserRow{ID: newID(), Name: "Bob Lee", Email: "bob.lee@samsung.com"}
	carol := models.UserRow{ID: newID(), Name: "Carol Park", Email: "carol.park@samsung.com"}

	workspaces := []models.WorkspaceRow{
		{ID: "code-helper", UserID: alice.ID, Name: "Code Helper"},
		{ID: "doc-writer", UserID: alice.ID, Name: "Doc Writer"},
		{ID: "sql-tutor", UserID: bob.ID, Name: "SQL Tutor"},
	}

	chat := func(user models.UserRow, title string, daysAgo int, modelIDs []string, replies ...string) models.ChatRecord {
		messages := []map[string]string{{"role": "user", "content": title}}
		for _, reply := range replies {
			messages = append(messages,
				map[string]string{"role": "assistant", "content": reply},
				map[string]string{"role": "user", "content": "thanks"},
			)
		}
		doc, _ := json.Marshal(map[string]interface{}{"models": modelIDs, "messages": messages})
		ts := models.Timestamp(now.AddDate(0, 0, -daysAgo).Unix())
		return models.ChatRecord{ID: newID(), UserID: user.ID, Title: title, Chat: doc, CreatedAt: ts, UpdatedAt: ts}
	}

	chats := []models.ChatRecord{
		chat(alice, "Refactor handler", 0, []string{"code-helper"}, "Split the handler into two functions."),
		chat(bob, "Explain joins", 1, []string{"sql-tutor"}, "An inner join keeps matching rows only."),
		chat(carol, "Write release notes", 2, []string{"doc-writer", "gpt-4o"}, "Here is a draft.", "Shorter version."),
		chat(carol, "Index advice", 5, []string{"sql-tutor"}, "Add a btree index on created_at."),
		chat(bob, "General question", 9, []string{"gpt-4o"}, "Sure."),
	}

	feedback := func(user models.UserRow, modelID string, rating int, comment string, daysAgo int) models.FeedbackRow {
		doc, _ := json.Marshal(map[string]interface{}{"rating": rating, "model_id": modelID, "comment": comment})
		return models.FeedbackRow{ID: newID(), UserID: user.ID, Data: doc, CreatedAt: models.Timestamp(now.AddDate(0, 0, -daysAgo).Unix())}
	}

	engineering := models.GroupRow{ID: newID(), Name: "Engineering"}
	empty := models.GroupRow{ID: newID(), Name: "New Hires"}

	ds := database.Dataset{
		Chats: chats,
		Feedbacks: []models.FeedbackRow{
			feedback(bob, "sql-tutor", 1, "clear explanation", 1),
			feedback(carol, "sql-tutor", -1, "index was wrong", 5),
			feedback(carol, "doc-writer", 1, "", 2),
			feedback(bob, "gpt-4o", 1, "", 9),
		},
		Workspaces: workspaces,
		Users:      []models.UserRow{alice, bob, carol},
		Groups:     []models.GroupRow{engineering, empty},
		GroupMembers: []models.GroupMemberRow{
			{GroupID: engineering.ID, UserID: bob.ID},
			{GroupID: engineering.ID, UserID: carol.ID},
		},
	}

	data, err := json.MarshalIndent(ds, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode dataset: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// maskPassword 隐藏密码
func maskPassword(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.User == nil {
		return dsn
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "****")
	}
	return u.String()
}
