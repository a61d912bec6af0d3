package service

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"Loopline.com/cmd/interaction/dal/db"
	"Loopline.com/cmd/interaction/infras/redis"
	"Loopline.com/cmd/model"
	"Loopline.com/pkg/constants"
)

// CounterVerifyService periodically audits the denormalized activity
// counters against the interaction rows and repairs drift with absolute
// writes. Drift accumulates from crashed transactions and manual data
// surgery; the sweep bounds how long it survives.
type CounterVerifyService struct {
	ctx      context.Context
	interval time.Duration
	limit    int
	autoFix  bool

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewCounterVerifyService(ctx context.Context, interval time.Duration, limit int, autoFix bool) *CounterVerifyService {
	if limit <= 0 {
		limit = constants.CounterVerifyDefaultLimit
	}
	return &CounterVerifyService{
		ctx:      ctx,
		interval: interval,
		limit:    limit,
		autoFix:  autoFix,
	}
}

// CountMismatch reports one stored counter that disagrees with the
// recomputed value.
type CountMismatch struct {
	TargetId int64  `json:"target_id"`
	Field    string `json:"field"`
	Expected int64  `json:"expected"`
	Actual   int64  `json:"actual"`
	Diff     int64  `json:"diff"`
}

type VerifyCountsRequest struct {
	Limit   int  `json:"limit"`
	AutoFix bool `json:"auto_fix"`
}

type VerifyCountsResult struct {
	Checked    int             `json:"checked"`
	Mismatches []CountMismatch `json:"mismatches"`
	Fixed      int             `json:"fixed"`
}

// VerifyActivityLikesCount recomputes like totals for the most recent
// activities and reports stored counters that drifted. Two queries total
// regardless of how many rows are checked.
func (s *CounterVerifyService) VerifyActivityLikesCount(ctx context.Context, limit int) ([]CountMismatch, error) {
	activities, err := s.recentActivities(ctx, limit)
	if err != nil {
		return nil, err
	}
	return s.auditLikes(ctx, activities)
}

// VerifyActivityCommentsCount is the comments_count counterpart. The
// recomputed total includes soft-deleted comments, matching how the
// counter is maintained on write.
func (s *CounterVerifyService) VerifyActivityCommentsCount(ctx context.Context, limit int) ([]CountMismatch, error) {
	activities, err := s.recentActivities(ctx, limit)
	if err != nil {
		return nil, err
	}
	return s.auditComments(ctx, activities)
}

func (s *CounterVerifyService) auditLikes(ctx context.Context, activities []model.Activity) ([]CountMismatch, error) {
	expected, err := db.GroupCountLikesByActivity(ctx, activityIds(activities))
	if err != nil {
		return nil, errors.WithMessage(err, "failed to aggregate like rows")
	}
	return collectMismatches(activities, "likes_count", expected, func(a model.Activity) int64 {
		return a.LikesCount
	}), nil
}

func (s *CounterVerifyService) auditComments(ctx context.Context, activities []model.Activity) ([]CountMismatch, error) {
	expected, err := db.GroupCountCommentsByActivity(ctx, activityIds(activities))
	if err != nil {
		return nil, errors.WithMessage(err, "failed to aggregate comment rows")
	}
	return collectMismatches(activities, "comments_count", expected, func(a model.Activity) int64 {
		return a.CommentsCount
	}), nil
}

// FixCountMismatches repairs reported drift with absolute counter writes
// in one transaction, then re-seeds the count cache so stale cached
// values do not outlive the repair.
func (s *CounterVerifyService) FixCountMismatches(ctx context.Context, mismatches []CountMismatch) (int, error) {
	if len(mismatches) == 0 {
		return 0, nil
	}
	fixes := make([]db.CounterFix, 0, len(mismatches))
	for _, m := range mismatches {
		fixes = append(fixes, db.CounterFix{
			ActivityId: m.TargetId,
			Field:      m.Field,
			Value:      m.Expected,
		})
	}
	if err := db.ApplyCounterFixes(ctx, fixes); err != nil {
		return 0, errors.WithMessage(err, "failed to apply counter fixes")
	}
	for _, m := range mismatches {
		var err error
		switch m.Field {
		case "likes_count":
			err = redis.SetLikeCount(ctx, constants.TargetTypeActivity, m.TargetId, m.Expected)
		case "comments_count":
			err = redis.SetCommentCount(ctx, constants.TargetTypeActivity, m.TargetId, m.Expected)
		}
		if err != nil {
			logrus.Warnf("failed to re-seed count cache for activity %d: %v", m.TargetId, err)
		}
	}
	return len(fixes), nil
}

// VerifyAndFixCounts runs both audits and optionally repairs what they
// found. This is also the body of each scheduled sweep.
func (s *CounterVerifyService) VerifyAndFixCounts(ctx context.Context, req *VerifyCountsRequest) (*VerifyCountsResult, error) {
	activities, err := s.recentActivities(ctx, req.Limit)
	if err != nil {
		return nil, err
	}
	likeMismatches, err := s.auditLikes(ctx, activities)
	if err != nil {
		return nil, err
	}
	commentMismatches, err := s.auditComments(ctx, activities)
	if err != nil {
		return nil, err
	}

	// Checked reports rows actually inspected, not the requested ceiling.
	result := &VerifyCountsResult{
		Checked:    len(activities),
		Mismatches: append(likeMismatches, commentMismatches...),
	}
	for _, m := range result.Mismatches {
		logrus.WithFields(logrus.Fields{
			"activity_id": m.TargetId,
			"field":       m.Field,
			"expected":    m.Expected,
			"actual":      m.Actual,
			"diff":        m.Diff,
		}).Warn("counter drift detected")
	}

	if req.AutoFix && len(result.Mismatches) > 0 {
		fixed, err := s.FixCountMismatches(ctx, result.Mismatches)
		if err != nil {
			return nil, err
		}
		result.Fixed = fixed
		logrus.Infof("counter verification repaired %d drifted counters", fixed)
	}
	return result, nil
}

// Start launches the periodic sweep. Calling Start on a running service
// is a no-op.
func (s *CounterVerifyService) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})

	go func() {
		defer close(s.doneCh)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		logrus.Infof("counter verification started, interval %s, limit %d, auto_fix %t",
			s.interval, s.limit, s.autoFix)
		for {
			select {
			case <-ticker.C:
				s.runSweep()
			case <-s.stopCh:
				return
			case <-s.ctx.Done():
				return
			}
		}
	}()
}

// Stop halts the sweep and waits for an in-flight run to finish.
func (s *CounterVerifyService) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopCh)
	done := s.doneCh
	s.mu.Unlock()
	<-done
	logrus.Info("counter verification stopped")
}

func (s *CounterVerifyService) runSweep() {
	ctx, cancel := context.WithTimeout(s.ctx, 2*time.Minute)
	defer cancel()
	result, err := s.VerifyAndFixCounts(ctx, &VerifyCountsRequest{Limit: s.limit, AutoFix: s.autoFix})
	if err != nil {
		logrus.Errorf("counter verification sweep failed: %v", err)
		return
	}
	if len(result.Mismatches) == 0 {
		logrus.Debugf("counter verification clean, %d activities checked", result.Checked)
	}
}

func (s *CounterVerifyService) recentActivities(ctx context.Context, limit int) ([]model.Activity, error) {
	if limit <= 0 {
		limit = s.limit
	}
	activities, err := db.ListRecentActivities(ctx, limit)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to list activities")
	}
	return activities, nil
}

func activityIds(activities []model.Activity) []int64 {
	ids := make([]int64, 0, len(activities))
	for _, activity := range activities {
		ids = append(ids, activity.ActivityId)
	}
	return ids
}

func collectMismatches(activities []model.Activity, field string, expected map[int64]int64, stored func(model.Activity) int64) []CountMismatch {
	mismatches := make([]CountMismatch, 0)
	for _, activity := range activities {
		want := expected[activity.ActivityId]
		got := stored(activity)
		if want == got {
			continue
		}
		mismatches = append(mismatches, CountMismatch{
			TargetId: activity.ActivityId,
			Field:    field,
			Expected: want,
			Actual:   got,
			Diff:     want - got,
		})
	}
	return mismatches
}
