package service

import (
	"errors"

	"todo_webapp/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
)

var TaskOps = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "task_operations_total",
		Help: "Task service operations by outcome",
	},
	[]string{"operation", "outcome"},
)

func init() {
	prometheus.MustRegister(TaskOps)
}

func observe(op string, err error) {
	TaskOps.WithLabelValues(op, outcome(err)).Inc()
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrUnauthenticated):
		return "unauthenticated"
	case errors.Is(err, domain.ErrNotAuthorized):
		return "not_authorized"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrValidation):
		return "invalid"
	case errors.Is(err, domain.ErrConflict):
		return "conflict"
	default:
		return "error"
	}
}
