// AngelaMos | 2026
// service.go

package analytics

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/carterperez-dev/flashdeck/internal/core"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) span(ctx context.Context, name string, f Filter) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{attribute.String("analytics.timezone", f.Loc().String())}
	if f.Subject != nil {
		attrs = append(attrs, attribute.Bool("analytics.subject_filter", true))
	}
	return core.StartSpan(ctx, "analytics."+name, attrs...)
}

func (s *Service) Retention(ctx context.Context, userID string, f Filter) (RetentionCurve, error) {
	ctx, span := s.span(ctx, "retention", f)
	defer span.End()

	records, err := s.repo.Records(ctx, userID, f)
	if err != nil {
		core.SetSpanError(ctx, err)
		return RetentionCurve{}, err
	}

	return BuildRetentionCurve(records), nil
}

func (s *Service) SubjectProgress(ctx context.Context, userID string, f Filter) (SubjectProgress, error) {
	ctx, span := s.span(ctx, "subject_progress", f)
	defer span.End()

	records, err := s.repo.Records(ctx, userID, f)
	if err != nil {
		core.SetSpanError(ctx, err)
		return SubjectProgress{}, err
	}

	return BuildSubjectProgress(records, f.Loc()), nil
}

func (s *Service) Heatmap(ctx context.Context, userID string, f Filter) (Heatmap, error) {
	ctx, span := s.span(ctx, "heatmap", f)
	defer span.End()

	sessions, err := s.repo.Sessions(ctx, userID, f)
	if err != nil {
		core.SetSpanError(ctx, err)
		return Heatmap{}, err
	}

	return BuildHeatmap(sessions, f.Loc()), nil
}

func (s *Service) TimeSpent(ctx context.Context, userID string, f Filter) ([]TimeSpentEntry, error) {
	ctx, span := s.span(ctx, "time_spent", f)
	defer span.End()

	sessions, err := s.repo.SessionSummaries(ctx, userID, f)
	if err != nil {
		core.SetSpanError(ctx, err)
		return nil, err
	}

	return BuildTimeSpent(sessions, f.Loc()), nil
}

func (s *Service) ReviewIntervals(ctx context.Context, userID string, f Filter) ([]IntervalPoint, error) {
	ctx, span := s.span(ctx, "review_intervals", f)
	defer span.End()

	records, err := s.repo.Records(ctx, userID, f)
	if err != nil {
		core.SetSpanError(ctx, err)
		return nil, err
	}

	return BuildReviewIntervals(records), nil
}

// Report holds every aggregate for one filter.
type Report struct {
	Retention       RetentionCurve
	SubjectProgress SubjectProgress
	Heatmap         Heatmap
	TimeSpent       []TimeSpentEntry
	ReviewIntervals []IntervalPoint
}

func (s *Service) Report(ctx context.Context, userID string, f Filter) (*Report, error) {
	ctx, span := s.span(ctx, "report", f)
	defer span.End()

	records, err := s.repo.Records(ctx, userID, f)
	if err != nil {
		core.SetSpanError(ctx, err)
		return nil, err
	}

	sessions, err := s.repo.SessionSummaries(ctx, userID, f)
	if err != nil {
		core.SetSpanError(ctx, err)
		return nil, err
	}

	starts := make([]SessionRow, len(sessions))
	for i, sess := range sessions {
		starts[i] = SessionRow{ID: sess.ID, StartTime: sess.StartTime, EndTime: sess.EndTime}
	}

	return &Report{
		Retention:       BuildRetentionCurve(records),
		SubjectProgress: BuildSubjectProgress(records, f.Loc()),
		Heatmap:         BuildHeatmap(starts, f.Loc()),
		TimeSpent:       BuildTimeSpent(sessions, f.Loc()),
		ReviewIntervals: BuildReviewIntervals(records),
	}, nil
}
