package database

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"webui-dashboard-api/pkg/models"
)

// Dataset is a snapshot of the tables the dashboard reads. It is the
// on-disk format of LOCAL_DB_PATH and the fixture format used in tests.
type Dataset struct {
	Chats        []models.ChatRecord     `json:"chats"`
	Feedbacks    []models.FeedbackRow    `json:"feedbacks"`
	Workspaces   []models.WorkspaceRow   `json:"models"`
	Users        []models.UserRow        `json:"users"`
	Groups       []models.GroupRow       `json:"groups"`
	GroupMembers []models.GroupMemberRow `json:"group_members"`
	Packages     []models.PackageRequest `json:"packages"`
}

// LocalDatabase is the in-memory store.
//
// It answers every aggregate with the same semantics as the Postgres
// queries, computed over decoded rows. Chat and feedback documents are
// decoded once when the dataset is loaded.
type LocalDatabase struct {
	mu sync.RWMutex

	chats      []localChat
	feedbacks  []localFeedback
	workspaces map[string]models.WorkspaceRow
	wsOrder    []string
	users      map[string]models.UserRow
	userOrder  []string
	groups     []models.GroupRow
	members    []models.GroupMemberRow

	packages []models.PackageRequest
	nextID   int64
	now      func() time.Time
}

var _ DatabaseInterface = (*LocalDatabase)(nil)

type localChat struct {
	row     models.ChatRow
	payload models.ChatPayload
}

type localFeedback struct {
	row     models.FeedbackRow
	payload models.FeedbackPayload
}

// NewLocalDatabase 创建本地数据库实例
func NewLocalDatabase(ds Dataset) *LocalDatabase {
	db := &LocalDatabase{
		workspaces: make(map[string]models.WorkspaceRow),
		users:      make(map[string]models.UserRow),
		groups:     append([]models.GroupRow(nil), ds.Groups...),
		members:    append([]models.GroupMemberRow(nil), ds.GroupMembers...),
		now:        time.Now,
	}
	for _, c := range ds.Chats {
		row := c.Row()
		db.chats = append(db.chats, localChat{row: row, payload: models.DecodeChatPayload([]byte(row.Payload))})
	}
	for _, f := range ds.Feedbacks {
		db.feedbacks = append(db.feedbacks, localFeedback{row: f, payload: models.DecodeFeedbackPayload(f.Data)})
	}
	for _, w := range ds.Workspaces {
		if _, ok := db.workspaces[w.ID]; !ok {
			db.wsOrder = append(db.wsOrder, w.ID)
		}
		db.workspaces[w.ID] = w
	}
	for _, u := range ds.Users {
		if _, ok := db.users[u.ID]; !ok {
			db.userOrder = append(db.userOrder, u.ID)
		}
		db.users[u.ID] = u
	}
	for _, p := range ds.Packages {
		db.packages = append(db.packages, p)
		if p.ID > db.nextID {
			db.nextID = p.ID
		}
	}
	return db
}

// LoadLocalDatabase reads a Dataset snapshot from a JSON file.
func LoadLocalDatabase(path string) (*LocalDatabase, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read local dataset: %w", err)
	}
	var ds Dataset
	if err := json.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("failed to parse local dataset %s: %w", path, err)
	}
	return NewLocalDatabase(ds), nil
}

// ================= Aggregates =================

func (db *LocalDatabase) Overview(ctx context.Context) (*models.OverviewStats, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	stats := &models.OverviewStats{
		TotalChats:     int64(len(db.chats)),
		TotalFeedbacks: int64(len(db.feedbacks)),
	}
	distinct := make(map[string]struct{})
	for _, c := range db.chats {
		stats.TotalMessages += c.payload.MessageCount()
		for _, m := range c.payload.Models {
			distinct[m] = struct{}{}
		}
	}
	stats.TotalModels = int64(len(distinct))
	return stats, nil
}

func (db *LocalDatabase) DailyStats(ctx context.Context, start, end int64) ([]models.DailyStat, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	byDate := make(map[string]*models.DailyStat)
	users := make(map[string]map[string]struct{})
	for _, c := range db.chats {
		ts := int64(c.row.CreatedAt)
		if ts < start || ts >= end {
			continue
		}
		date := c.row.CreatedAt.Time().Format(models.DateLayout)
		stat, ok := byDate[date]
		if !ok {
			stat = &models.DailyStat{Date: date}
			byDate[date] = stat
			users[date] = make(map[string]struct{})
		}
		stat.ChatCount++
		stat.MessageCount += c.payload.MessageCount()
		users[date][c.row.UserID] = struct{}{}
	}

	rows := make([]models.DailyStat, 0, len(byDate))
	for date, stat := range byDate {
		stat.UserCount = int64(len(users[date]))
		rows = append(rows, *stat)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Date < rows[j].Date })
	return rows, nil
}

func (db *LocalDatabase) ModelUsage(ctx context.Context) ([]models.ModelChatCount, []models.ModelResponseLength, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	counts := make(map[string]int64)
	lengths := make(map[string]*models.ModelResponseLength)
	var countOrder, lengthOrder []string
	for _, c := range db.chats {
		assistant := c.payload.AssistantContentLengths()
		for _, m := range c.payload.Models {
			if _, ok := counts[m]; !ok {
				countOrder = append(countOrder, m)
			}
			counts[m]++
			if len(assistant) == 0 {
				continue
			}
			l, ok := lengths[m]
			if !ok {
				l = &models.ModelResponseLength{Model: m}
				lengths[m] = l
				lengthOrder = append(lengthOrder, m)
			}
			for _, n := range assistant {
				l.TotalLength += n
				l.MessageCount++
			}
		}
	}

	chatCounts := make([]models.ModelChatCount, 0, len(countOrder))
	for _, m := range countOrder {
		chatCounts = append(chatCounts, models.ModelChatCount{Model: m, ChatCount: counts[m]})
	}
	responseLengths := make([]models.ModelResponseLength, 0, len(lengthOrder))
	for _, m := range lengthOrder {
		responseLengths = append(responseLengths, *lengths[m])
	}
	return chatCounts, responseLengths, nil
}

type workspaceActivity struct {
	users    map[string]struct{}
	chats    int64
	messages int64
}

type feedbackPolarity struct {
	positive int64
	negative int64
}

// workspaceUsage attributes every chat to each model it references.
// Callers must hold db.mu.
func (db *LocalDatabase) workspaceUsage() (map[string]*workspaceActivity, []string) {
	usage := make(map[string]*workspaceActivity)
	var order []string
	for _, c := range db.chats {
		for _, m := range c.payload.Models {
			a, ok := usage[m]
			if !ok {
				a = &workspaceActivity{users: make(map[string]struct{})}
				usage[m] = a
				order = append(order, m)
			}
			a.users[c.row.UserID] = struct{}{}
			a.chats++
			a.messages += c.payload.MessageCount()
		}
	}
	return usage, order
}

// workspaceFeedback counts feedback polarity per referenced model id,
// whether or not a workspace row exists for it. Callers must hold db.mu.
func (db *LocalDatabase) workspaceFeedback() map[string]feedbackPolarity {
	out := make(map[string]feedbackPolarity)
	for _, f := range db.feedbacks {
		if !f.payload.HasModelID {
			continue
		}
		p := out[f.payload.ModelID]
		if f.payload.Positive() {
			p.positive++
		}
		if f.payload.Negative() {
			p.negative++
		}
		out[f.payload.ModelID] = p
	}
	return out
}

func (db *LocalDatabase) WorkspaceRanking(ctx context.Context) ([]models.WorkspaceRanking, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	usage, order := db.workspaceUsage()
	feedback := db.workspaceFeedback()

	rows := make([]models.WorkspaceRanking, 0, len(order))
	for _, id := range order {
		a := usage[id]
		row := models.WorkspaceRanking{
			ID:           id,
			Name:         id,
			UserCount:    int64(len(a.users)),
			ChatCount:    a.chats,
			MessageCount: a.messages,
			Positive:     feedback[id].positive,
			Negative:     feedback[id].negative,
		}
		if ws, ok := db.workspaces[id]; ok {
			row.Name = ws.Name
			if owner, ok := db.users[ws.UserID]; ok {
				row.DeveloperEmail = owner.Email
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (db *LocalDatabase) DeveloperRanking(ctx context.Context) ([]models.DeveloperRanking, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	usage, _ := db.workspaceUsage()
	feedback := db.workspaceFeedback()

	byUser := make(map[string]*models.DeveloperRanking)
	for _, id := range db.wsOrder {
		ws := db.workspaces[id]
		owner, ok := db.users[ws.UserID]
		if !ok {
			continue
		}
		row, ok := byUser[owner.ID]
		if !ok {
			row = &models.DeveloperRanking{UserID: owner.ID, UserName: owner.Name, Email: owner.Email}
			byUser[owner.ID] = row
		}
		row.WorkspaceCount++
		if a, ok := usage[id]; ok {
			row.TotalUsers += int64(len(a.users))
			row.TotalChats += a.chats
			row.TotalMessages += a.messages
		}
		row.TotalPositive += feedback[id].positive
		row.TotalNegative += feedback[id].negative
	}

	rows := make([]models.DeveloperRanking, 0, len(byUser))
	for _, uid := range db.userOrder {
		if row, ok := byUser[uid]; ok {
			rows = append(rows, *row)
		}
	}
	return rows, nil
}

func (db *LocalDatabase) GroupAggregates(ctx context.Context) ([]models.GroupAggregate, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	type userTotals struct {
		chats, messages              int64
		positive, negative, feedback int64
	}
	perUser := make(map[string]*userTotals)
	get := func(uid string) *userTotals {
		t, ok := perUser[uid]
		if !ok {
			t = &userTotals{}
			perUser[uid] = t
		}
		return t
	}
	for _, c := range db.chats {
		t := get(c.row.UserID)
		t.chats++
		t.messages += c.payload.MessageCount()
	}
	for _, f := range db.feedbacks {
		t := get(f.row.UserID)
		if f.payload.Positive() {
			t.positive++
		}
		if f.payload.Negative() {
			t.negative++
		}
		if _, ok := db.workspaces[f.payload.ModelID]; ok && f.payload.HasModelID {
			t.feedback++
		}
	}

	rows := make([]models.GroupAggregate, 0, len(db.groups))
	for _, g := range db.groups {
		agg := models.GroupAggregate{GroupID: g.ID, GroupName: g.Name}
		for _, m := range db.members {
			if m.GroupID != g.ID {
				continue
			}
			agg.MemberCount++
			if t, ok := perUser[m.UserID]; ok {
				agg.TotalChats += t.chats
				agg.TotalMessages += t.messages
				agg.TotalPositive += t.positive
				agg.TotalNegative += t.negative
				agg.TotalFeedbacks += t.feedback
			}
		}
		rows = append(rows, agg)
	}
	return rows, nil
}

func (db *LocalDatabase) FeedbackSummary(ctx context.Context, recentLimit int) (*models.FeedbackSummary, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	summary := &models.FeedbackSummary{}
	for _, f := range db.feedbacks {
		if f.payload.Positive() {
			summary.Positive++
		}
		if f.payload.Negative() {
			summary.Negative++
		}
	}

	sorted := append([]localFeedback(nil), db.feedbacks...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].row.CreatedAt != sorted[j].row.CreatedAt {
			return sorted[i].row.CreatedAt > sorted[j].row.CreatedAt
		}
		return sorted[i].row.ID < sorted[j].row.ID
	})
	if len(sorted) > recentLimit {
		sorted = sorted[:recentLimit]
	}
	summary.Recent = make([]models.FeedbackItem, 0, len(sorted))
	for _, f := range sorted {
		summary.Recent = append(summary.Recent, models.FeedbackItem{
			ID:        f.row.ID,
			ModelID:   f.payload.ModelID,
			Rating:    f.payload.RoundedRating(),
			Comment:   f.payload.Comment,
			CreatedAt: f.row.CreatedAt,
		})
	}
	return summary, nil
}

func (db *LocalDatabase) RecentChats(ctx context.Context, limit int) ([]models.ChatRow, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	rows := make([]models.ChatRow, 0, len(db.chats))
	for _, c := range db.chats {
		rows = append(rows, c.row)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].UpdatedAt != rows[j].UpdatedAt {
			return rows[i].UpdatedAt > rows[j].UpdatedAt
		}
		return rows[i].ID < rows[j].ID
	})
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

// ================= Package requests =================

func (db *LocalDatabase) ListPackages(ctx context.Context) ([]models.PackageRequest, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	list := append([]models.PackageRequest(nil), db.packages...)
	sort.SliceStable(list, func(i, j int) bool {
		if !list[i].AddedAt.Equal(list[j].AddedAt) {
			return list[i].AddedAt.After(list[j].AddedAt)
		}
		return list[i].ID > list[j].ID
	})
	return list, nil
}

func (db *LocalDatabase) CreatePackage(ctx context.Context, pkg *models.PackageRequest) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, existing := range db.packages {
		if existing.PackageName == pkg.PackageName {
			return fmt.Errorf("package %q: %w", pkg.PackageName, ErrDuplicate)
		}
	}
	db.nextID++
	pkg.ID = db.nextID
	pkg.AddedAt = db.now().In(models.KST)
	if pkg.Status == "" {
		pkg.Status = models.PackagePending
	}
	db.packages = append(db.packages, *pkg)
	return nil
}

func (db *LocalDatabase) DeletePackage(ctx context.Context, id int64, authorize func(*models.PackageRequest) error) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	for i := range db.packages {
		if db.packages[i].ID != id {
			continue
		}
		if authorize != nil {
			pkg := db.packages[i]
			if err := authorize(&pkg); err != nil {
				return err
			}
		}
		db.packages = append(db.packages[:i], db.packages[i+1:]...)
		return nil
	}
	return fmt.Errorf("package %d: %w", id, ErrNotFound)
}

func (db *LocalDatabase) UpdatePackageStatus(ctx context.Context, id int64, update models.PackageStatusUpdate) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	for i := range db.packages {
		if db.packages[i].ID != id {
			continue
		}
		now := db.now().In(models.KST)
		by := update.UpdatedBy
		db.packages[i].Status = update.Status
		db.packages[i].StatusNote = update.Note
		db.packages[i].StatusUpdatedBy = &by
		db.packages[i].StatusUpdatedAt = &now
		return nil
	}
	return fmt.Errorf("package %d: %w", id, ErrNotFound)
}

func (db *LocalDatabase) HealthCheck(ctx context.Context) error {
	return ctx.Err()
}

func (db *LocalDatabase) Close() error {
	return nil
}
