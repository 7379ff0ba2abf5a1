package domain

// SortField selects which article field the feed is ordered by
type SortField string

// sort fields
const (
	SortByPublished SortField = "published"
	SortByRelevance SortField = "relevance"
)

// SortOrder is the direction of the feed sort
type SortOrder string

// sort orders
const (
	OrderAsc  SortOrder = "asc"
	OrderDesc SortOrder = "desc"
)

// DateRange bounds how old an article may be to stay in the feed
type DateRange string

// date ranges, thresholds are inclusive
const (
	RangeAll   DateRange = "all"
	RangeDay   DateRange = "day"
	RangeWeek  DateRange = "week"
	RangeMonth DateRange = "month"
)

// FilterState is the ephemeral view state of the feed, not persisted
type FilterState struct {
	SortBy    SortField `json:"sort_by"`
	SortOrder SortOrder `json:"sort_order"`
	DateRange DateRange `json:"date_range"`
}

// DefaultFilterState returns the initial feed view: newest first, no date bound
func DefaultFilterState() FilterState {
	return FilterState{SortBy: SortByPublished, SortOrder: OrderDesc, DateRange: RangeAll}
}
