package service

import (
	"rewardpoints/internal/apperr"
	"rewardpoints/internal/auth"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}

func requireParent(actor auth.Identity) error {
	if !actor.IsParent() {
		return apperr.Authorization("only parents can do this")
	}
	return nil
}

func requireChild(actor auth.Identity) error {
	if !actor.IsChild() {
		return apperr.Authorization("only children can do this")
	}
	return nil
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
