package view

import (
	"context"

	"zg-client/internal/client"
	"zg-client/internal/domain"
)

type Tasks struct {
	base
	tasks *Collection[domain.Task]
}

func NewTasks(deps Deps) *Tasks {
	t := &Tasks{base: newBase(deps)}
	t.tasks = NewCollection(t.life, "tasks", deps.Bus, func(ctx context.Context) ([]domain.Task, error) {
		var out struct {
			Tasks []domain.Task `json:"tasks"`
		}
		if err := deps.API.Get(ctx, "/task/all", &out); err != nil {
			return nil, err
		}
		return out.Tasks, nil
	})
	return t
}

func (t *Tasks) Load(ctx context.Context) error {
	return t.tasks.Load(ctx)
}

func (t *Tasks) Items() []domain.Task {
	return t.tasks.Items()
}

func (t *Tasks) Complete(ctx context.Context, id int64) error {
	task, ok := t.tasks.Find(func(x domain.Task) bool { return x.ID == id })
	if !ok {
		return client.ErrNotFound
	}
	if task.Completed {
		return client.ErrAlreadyCompleted
	}

	req := domain.TaskCompleteRequest{TaskID: id}
	if err := t.check(req); err != nil {
		return err
	}

	return t.tasks.Mutate(ctx, key("complete", id), func(ctx context.Context) error {
		return t.deps.API.Post(ctx, "/task/complete", req, nil)
	})
}
