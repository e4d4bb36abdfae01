package utils

import (
	"math"
	"net/url"
	"strconv"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// MaxPage - последняя страница, для которой (page-1)*limit еще помещается в BIGINT OFFSET.
func MaxPage(limit uint64) uint64 {
	if limit == 0 {
		limit = DefaultLimit
	}
	return math.MaxInt64/limit + 1
}

// ParsePaginationParams читает limit и page из query; offset считается по странице.
func ParsePaginationParams(values url.Values) (limit uint64, offset uint64, page uint64) {
	limit = DefaultLimit
	page = 1

	if l, err := strconv.ParseUint(values.Get("limit"), 10, 64); err == nil && l > 0 {
		limit = min(l, MaxLimit)
	}
	if p, err := strconv.ParseUint(values.Get("page"), 10, 64); err == nil && p > 0 {
		page = min(p, MaxPage(limit))
	}

	offset = (page - 1) * limit
	return
}
