package stats

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"webui-dashboard-api/pkg/database"
	"webui-dashboard-api/pkg/models"
)

// GroupVariant selects the feedback convention of the group report.
type GroupVariant string

const (
	// VariantTotal reports feedback aimed at an existing workspace.
	VariantTotal GroupVariant = "total"
	// VariantSplit reports positive and negative feedback by rating sign.
	VariantSplit GroupVariant = "split"
)

// ParseGroupVariant maps the ?variant= parameter; empty means VariantTotal.
func ParseGroupVariant(raw string) (GroupVariant, error) {
	switch GroupVariant(strings.ToLower(strings.TrimSpace(raw))) {
	case "", VariantTotal:
		return VariantTotal, nil
	case VariantSplit:
		return VariantSplit, nil
	default:
		return "", fmt.Errorf("%w: variant must be %q or %q, got %q", ErrInvalidParameter, VariantTotal, VariantSplit, raw)
	}
}

// Service shapes raw store aggregates into the dashboard reports.
type Service struct {
	db  database.DatabaseInterface
	now func() time.Time
}

// NewService creates a Service reading from db.
func NewService(db database.DatabaseInterface) *Service {
	return &Service{db: db, now: time.Now}
}

// WithClock replaces the clock used to resolve "today".
func (s *Service) WithClock(now func() time.Time) *Service {
	return &Service{db: s.db, now: now}
}

func (s *Service) Overview(ctx context.Context) (*models.OverviewStats, error) {
	return s.db.Overview(ctx)
}

// Daily returns per-date activity for the window described by from and to.
func (s *Service) Daily(ctx context.Context, from, to string) ([]models.DailyStat, error) {
	w, err := ParseWindow(from, to, s.now())
	if err != nil {
		return nil, err
	}
	if w.Empty() {
		return []models.DailyStat{}, nil
	}
	rows, err := s.db.DailyStats(ctx, w.Start, w.End)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Date < rows[j].Date })
	return nonNil(rows), nil
}

// Models merges per-model chat counts with average assistant response length.
func (s *Service) Models(ctx context.Context) ([]models.ModelStat, error) {
	counts, lengths, err := s.db.ModelUsage(ctx)
	if err != nil {
		return nil, err
	}

	avg := make(map[string]int64, len(lengths))
	for _, l := range lengths {
		avg[l.Model] = RoundedAverage(l.TotalLength, l.MessageCount)
	}

	out := make([]models.ModelStat, 0, len(counts))
	for _, c := range counts {
		out = append(out, models.ModelStat{
			Model:             c.Model,
			ChatCount:         c.ChatCount,
			AvgResponseLength: avg[c.Model],
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ChatCount != out[j].ChatCount {
			return out[i].ChatCount > out[j].ChatCount
		}
		return out[i].Model < out[j].Model
	})
	return out, nil
}

func (s *Service) WorkspaceRanking(ctx context.Context) ([]models.WorkspaceRanking, error) {
	rows, err := s.db.WorkspaceRanking(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].ChatCount != rows[j].ChatCount {
			return rows[i].ChatCount > rows[j].ChatCount
		}
		return rows[i].ID < rows[j].ID
	})
	return nonNil(rows), nil
}

func (s *Service) DeveloperRanking(ctx context.Context) ([]models.DeveloperRanking, error) {
	rows, err := s.db.DeveloperRanking(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].TotalChats != rows[j].TotalChats {
			return rows[i].TotalChats > rows[j].TotalChats
		}
		return rows[i].UserID < rows[j].UserID
	})
	return nonNil(rows), nil
}

// GroupRanking builds the group report with the requested feedback convention.
func (s *Service) GroupRanking(ctx context.Context, variant GroupVariant) ([]models.GroupRanking, error) {
	aggs, err := s.db.GroupAggregates(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]models.GroupRanking, 0, len(aggs))
	for _, a := range aggs {
		row := models.GroupRanking{
			GroupID:           a.GroupID,
			GroupName:         a.GroupName,
			MemberCount:       a.MemberCount,
			TotalChats:        a.TotalChats,
			TotalMessages:     a.TotalMessages,
			ChatsPerMember:    PerMember(a.TotalChats, a.MemberCount),
			MessagesPerMember: PerMember(a.TotalMessages, a.MemberCount),
		}
		switch variant {
		case VariantSplit:
			pos, neg := a.TotalPositive, a.TotalNegative
			row.TotalPositive = &pos
			row.TotalNegative = &neg
		default:
			total := a.TotalFeedbacks
			row.TotalFeedbacks = &total
		}
		out = append(out, row)
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].ChatsPerMember, out[j].ChatsPerMember
		switch {
		case a == nil && b == nil:
		case a == nil:
			return false
		case b == nil:
			return true
		case *a != *b:
			return *a > *b
		}
		return out[i].GroupID < out[j].GroupID
	})
	return out, nil
}

// FeedbackSummary returns polarity totals and the newest feedback rows.
func (s *Service) FeedbackSummary(ctx context.Context) (*models.FeedbackSummary, error) {
	summary, err := s.db.FeedbackSummary(ctx, RecentFeedbackLimit)
	if err != nil {
		return nil, err
	}
	if summary.Recent == nil {
		summary.Recent = []models.FeedbackItem{}
	}
	return summary, nil
}

// RecentChats lists the most recently updated chats.
func (s *Service) RecentChats(ctx context.Context, limit int) ([]models.RecentChat, error) {
	rows, err := s.db.RecentChats(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]models.RecentChat, 0, len(rows))
	for _, row := range rows {
		out = append(out, models.NewRecentChat(row))
	}
	return out, nil
}

// HealthCheck reports whether the store answers.
func (s *Service) HealthCheck(ctx context.Context) error {
	return s.db.HealthCheck(ctx)
}

func nonNil[T any](rows []T) []T {
	if rows == nil {
		return []T{}
	}
	return rows
}
