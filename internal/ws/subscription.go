package ws

import (
	"errors"
	"strings"

	"todo_webapp/internal/domain"
	"todo_webapp/internal/service"
)

const maxSubscriptions = 16

// Subscription is a live query of one client. Filter already carries the
// visibility restriction of the subscriber.
type Subscription struct {
	ID     string
	Topic  string
	Filter domain.TaskFilter
	Sort   domain.Sort
	// Limit is the snapshot size; live messages are not windowed.
	Limit      int
	Projection domain.Projection
}

func newSubscription(userID int64, p SubscribePayload, pageSize int) (*Subscription, error) {
	id := strings.TrimSpace(p.ID)
	if id == "" {
		return nil, domain.NewValidationError("id", "is required")
	}

	sub := &Subscription{ID: id, Topic: p.Topic, Sort: domain.DefaultSort}
	var base domain.TaskFilter

	switch p.Topic {
	case TopicList:
		q, err := service.BuildListQuery(service.ListParams{
			Search:   p.Search,
			Category: p.Category,
			PageSize: p.PageSize,
		}, pageSize)
		if err != nil {
			return nil, err
		}
		base = q.Filter
		sub.Sort = q.Sort
		sub.Limit = q.Limit
		sub.Projection = domain.ProjectionList
	case TopicDetail:
		if strings.TrimSpace(p.TaskID) == "" {
			return nil, domain.NewValidationError("task_id", "is required")
		}
		base = domain.TaskFilter{ID: strings.TrimSpace(p.TaskID)}
		sub.Limit = 1
		sub.Projection = domain.ProjectionDetail
	case TopicRecent:
		base = service.RecentFilter(userID)
		sub.Limit = service.RecentLimit
		sub.Projection = domain.ProjectionRecent
	default:
		return nil, domain.NewValidationError("topic", "unknown topic")
	}

	filter, err := service.VisibilityFilter(base, userID)
	if err != nil {
		return nil, err
	}
	sub.Filter = filter
	return sub, nil
}

// change maps a committed mutation to the message this subscription sees.
// ok is false when the task is outside the subscription before and after.
func (s *Subscription) change(ev domain.TaskEvent) (msgType string, payload TaskChangePayload, ok bool) {
	before := ev.Before != nil && s.Filter.Matches(ev.Before)
	after := ev.After != nil && s.Filter.Matches(ev.After)

	payload = TaskChangePayload{Subscription: s.ID, TaskID: ev.TaskID()}
	switch {
	case !before && after:
		payload.Task = domain.Project(ev.After, s.Projection)
		return MsgAdded, payload, true
	case before && after:
		payload.Task = domain.Project(ev.After, s.Projection)
		return MsgChanged, payload, true
	case before && !after:
		return MsgRemoved, payload, true
	}
	return "", payload, false
}

var errTooManySubscriptions = errors.New("too many subscriptions")
