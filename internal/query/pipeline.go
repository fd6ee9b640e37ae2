package query

import (
	"sort"
	"strings"

	"github.com/studentform/studentform/backend/go-services/internal/records"
)

// matches reports whether rec passes every supplied filter.
func matches(rec records.Record, p Params) bool {
	if p.Search != "" {
		hay := strings.ToLower(strings.Join([]string{rec.Name, rec.Father, rec.Mobile, rec.NationalID, rec.DOB}, " "))
		if !strings.Contains(hay, strings.ToLower(p.Search)) {
			return false
		}
	}
	start, end := p.timeBounds()
	if !start.IsZero() && rec.Timestamp.Before(start) {
		return false
	}
	if !end.IsZero() && rec.Timestamp.After(end) {
		return false
	}
	if p.Mobile != "" && !strings.Contains(rec.Mobile, p.Mobile) {
		return false
	}
	if p.NationalID != "" && !strings.Contains(rec.NationalID, p.NationalID) {
		return false
	}
	return true
}

func filter(recs []records.Record, p Params) []records.Record {
	out := make([]records.Record, 0, len(recs))
	for _, r := range recs {
		if matches(r, p) {
			out = append(out, r)
		}
	}
	return out
}

// less orders two records ascending by the sort key.
func less(a, b records.Record, sortBy string) bool {
	switch sortBy {
	case SortByName:
		return strings.ToLower(a.Name) < strings.ToLower(b.Name)
	case SortByDOB:
		// dob is stored as YYYY-MM-DD, so lexical order is chronological
		return a.DOB < b.DOB
	case SortByMobile:
		return a.Mobile < b.Mobile
	}
	return a.Timestamp.Before(b.Timestamp)
}

func sortRecords(recs []records.Record, p Params) {
	sort.SliceStable(recs, func(i, j int) bool {
		if p.SortOrder == SortAsc {
			return less(recs[i], recs[j], p.SortBy)
		}
		return less(recs[j], recs[i], p.SortBy)
	})
}

// Pagination describes the slice returned for a page.
type Pagination struct {
	Page        int  `json:"page"`
	Limit       int  `json:"limit"`
	Total       int  `json:"total"`
	TotalPages  int  `json:"totalPages"`
	HasNextPage bool `json:"hasNextPage"`
	HasPrevPage bool `json:"hasPrevPage"`
}

// paginate returns records [(page-1)*limit, page*limit) and the page metadata.
func paginate(recs []records.Record, page, limit int) ([]records.Record, Pagination) {
	total := len(recs)
	totalPages := (total + limit - 1) / limit
	meta := Pagination{
		Page:        page,
		Limit:       limit,
		Total:       total,
		TotalPages:  totalPages,
		HasNextPage: page < totalPages,
		HasPrevPage: page > 1,
	}
	// compare pages before multiplying so huge page numbers cannot overflow
	if page > totalPages {
		return []records.Record{}, meta
	}
	start := (page - 1) * limit
	end := start + limit
	if end > total {
		end = total
	}
	return recs[start:end], meta
}
