package service

import (
	"context"
	"time"

	"todo_webapp/internal/domain"
	"todo_webapp/internal/logger"
)

// SampleTasks returns the demo tasks seeded for a user, due dates relative
// to now.
func SampleTasks(now time.Time) []TaskInput {
	inWeek := now.Add(7 * 24 * time.Hour)
	tomorrow := now.Add(24 * time.Hour)
	return []TaskInput{
		{
			Title:       "Estudar React",
			Description: "Revisar conceitos de hooks e componentes funcionais",
			Priority:    domain.PriorityHigh,
			Category:    domain.CategoryStudy,
			DueDate:     &inWeek,
			Notes:       "Focar em useState e useEffect",
		},
		{
			Title:       "Fazer exercícios físicos",
			Description: "Ir à academia e fazer treino de pernas",
			Priority:    domain.PriorityMedium,
			Category:    domain.CategoryHealth,
			DueDate:     &tomorrow,
			Notes:       "Lembrar de levar toalha",
		},
	}
}

// CreateSampleTasks seeds the sample tasks for userID when the user owns
// no tasks yet and returns how many were created.
func (s *TaskService) CreateSampleTasks(ctx context.Context, userID int64) (int, error) {
	if userID <= 0 {
		return 0, domain.ErrUnauthenticated
	}
	owned, err := s.store.Count(ctx, RecentFilter(userID))
	if err != nil {
		return 0, err
	}
	if owned > 0 {
		return 0, nil
	}
	return s.seed(ctx, userID)
}

// ResetSampleTasks removes every task of userID and seeds the samples again.
func (s *TaskService) ResetSampleTasks(ctx context.Context, userID int64) (int, error) {
	if userID <= 0 {
		return 0, domain.ErrUnauthenticated
	}
	removed, err := s.removeOwned(ctx, userID)
	if err != nil {
		return 0, err
	}
	logger.WithContext(ctx).Info("removed tasks before reseeding", "user_id", userID, "count", removed)
	return s.seed(ctx, userID)
}

func (s *TaskService) seed(ctx context.Context, userID int64) (int, error) {
	created := 0
	for _, in := range SampleTasks(time.Now()) {
		if _, err := s.Create(ctx, userID, in); err != nil {
			return created, err
		}
		created++
	}
	s.log(ctx, userID, domain.AuditActionTaskSeed, "", map[string]interface{}{"count": created})
	return created, nil
}
