package utils

import (
	"math"
	"net/url"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePaginationParams(t *testing.T) {
	cases := []struct {
		name                string
		query               url.Values
		limit, offset, page uint64
	}{
		{"по умолчанию", url.Values{}, DefaultLimit, 0, 1},
		{"третья страница", url.Values{"limit": {"20"}, "page": {"3"}}, 20, 40, 3},
		{"limit больше максимума", url.Values{"limit": {"1000"}}, MaxLimit, 0, 1},
		{"мусор", url.Values{"limit": {"abc"}, "page": {"-1"}}, DefaultLimit, 0, 1},
		{
			"огромная страница",
			url.Values{"page": {strconv.FormatUint(math.MaxUint64, 10)}},
			DefaultLimit, (MaxPage(DefaultLimit) - 1) * DefaultLimit, MaxPage(DefaultLimit),
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			limit, offset, page := ParsePaginationParams(tc.query)
			assert.Equal(t, tc.limit, limit)
			assert.Equal(t, tc.offset, offset)
			assert.Equal(t, tc.page, page)
			assert.LessOrEqual(t, offset, uint64(math.MaxInt64))
		})
	}
}
