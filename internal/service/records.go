package service

import (
	"bizdesk/internal/model"
	"bizdesk/internal/repository"
)

// RecordQuery is the list filter shared by every tracked record kind
type RecordQuery struct {
	Status     string
	Priority   string
	AssigneeID string
	CustomerID string
	Search     string
	Page       int
	Limit      int
}

func (q RecordQuery) filter(kind model.EntityKind) (repository.RecordFilter, error) {
	assignee, err := parseOptionalID(q.AssigneeID, "assignee_id")
	if err != nil {
		return repository.RecordFilter{}, err
	}
	customer, err := parseOptionalID(q.CustomerID, "customer_id")
	if err != nil {
		return repository.RecordFilter{}, err
	}
	return repository.RecordFilter{
		Kind:           kind,
		Status:         q.Status,
		Priority:       q.Priority,
		AssignedUserID: assignee,
		CustomerID:     customer,
		Search:         q.Search,
	}, nil
}

// RecordPage is a page of records of one kind
type RecordPage[T any] struct {
	Items []T
	Total int64
	Page  int
	Limit int
}
