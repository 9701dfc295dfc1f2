package services

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"heroQuestAPI/internal/completion"
	"heroQuestAPI/internal/store"
	"heroQuestAPI/internal/task"
)

type TaskService struct {
	rt Runtime
}

func NewTaskService(rt Runtime) *TaskService {
	return &TaskService{rt: rt.withDefaults()}
}

func (s *TaskService) Create(ctx context.Context, req *task.CreateTaskRequest) (*task.Task, error) {
	now, _ := s.rt.now()
	t, err := req.Build(now)
	if err != nil {
		return nil, err
	}

	err = s.rt.Store.WithTx(ctx, func(tx store.Tx) error {
		return tx.InsertTask(ctx, t)
	})
	if err != nil {
		return nil, err
	}

	s.rt.Logger.Info("task created",
		zap.String("task_id", t.ID.String()),
		zap.String("family_id", t.FamilyID.String()),
		zap.Int("xp_reward", t.XPReward),
	)
	return t, nil
}

func (s *TaskService) Get(ctx context.Context, taskID uuid.UUID) (*task.Task, error) {
	return s.rt.Store.GetTask(ctx, taskID)
}

func (s *TaskService) Update(ctx context.Context, taskID uuid.UUID, req *task.UpdateTaskRequest) (*task.Task, error) {
	now, _ := s.rt.now()

	var out *task.Task
	err := s.rt.Store.WithTx(ctx, func(tx store.Tx) error {
		t, err := tx.GetTask(ctx, taskID)
		if err != nil {
			return err
		}
		if err := req.Apply(t, now); err != nil {
			return err
		}
		if err := tx.UpdateTask(ctx, t); err != nil {
			return err
		}
		out = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Deactivate is the delete operation for tasks. The row stays so existing
// completions still resolve; deactivating twice is a no-op.
func (s *TaskService) Deactivate(ctx context.Context, taskID uuid.UUID) error {
	inactive := false
	t, err := s.Update(ctx, taskID, &task.UpdateTaskRequest{IsActive: &inactive})
	if err != nil {
		return err
	}

	s.rt.Logger.Info("task deactivated",
		zap.String("task_id", t.ID.String()),
		zap.String("family_id", t.FamilyID.String()),
	)
	return nil
}

func (s *TaskService) ListFamily(ctx context.Context, familyID uuid.UUID) ([]task.Task, error) {
	tasks, err := s.rt.Store.ListFamilyTasks(ctx, familyID)
	if err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []task.Task{}
	}
	return tasks, nil
}

// ForHero lists the active tasks of the hero's family together with what the
// hero completed of each since the start of the family's day.
func (s *TaskService) ForHero(ctx context.Context, heroID uuid.UUID) ([]task.WithStatus, error) {
	h, err := s.rt.Store.GetHero(ctx, heroID)
	if err != nil {
		return nil, err
	}
	tasks, err := s.rt.Store.ListFamilyTasks(ctx, h.FamilyID)
	if err != nil {
		return nil, err
	}
	today, err := s.rt.Store.ListCompletionsSince(ctx, heroID, s.rt.startOfDay())
	if err != nil {
		return nil, err
	}

	byTask := make(map[uuid.UUID][]completion.Completion)
	for _, c := range today {
		if c.SourceType == completion.SourceTask {
			byTask[c.SourceID] = append(byTask[c.SourceID], c)
		}
	}

	out := make([]task.WithStatus, 0, len(tasks))
	for _, t := range tasks {
		done := byTask[t.ID]
		if done == nil {
			done = []completion.Completion{}
		}
		out = append(out, task.WithStatus{
			Task:           t,
			Completions:    done,
			CompletedToday: len(done) > 0,
		})
	}
	return out, nil
}
