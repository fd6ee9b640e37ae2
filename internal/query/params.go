package query

import (
	"encoding/json"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/studentform/studentform/backend/go-services/internal/validation"
)

const (
	DefaultLimit = 50
	MaxLimit     = 100

	SortByTimestamp = "timestamp"
	SortByName      = "name"
	SortByDOB       = "dob"
	SortByMobile    = "mobile"

	SortAsc  = "asc"
	SortDesc = "desc"
)

// Params is the full set of list options. Field order is the canonical
// order used for cache keys.
type Params struct {
	Page       int    `json:"page"`
	Limit      int    `json:"limit"`
	SortBy     string `json:"sortBy"`
	SortOrder  string `json:"sortOrder"`
	Search     string `json:"search"`
	StartDate  string `json:"startDate"`
	EndDate    string `json:"endDate"`
	Mobile     string `json:"mobile"`
	NationalID string `json:"nationalId"`
}

// ParamsFromValues reads list options from URL query values. Unparseable
// numbers fall back to defaults during Normalize.
func ParamsFromValues(v url.Values) Params {
	page, _ := strconv.Atoi(v.Get("page"))
	limit, _ := strconv.Atoi(v.Get("limit"))
	nid := v.Get("nationalId")
	if nid == "" {
		nid = v.Get("aadhar")
	}
	return Params{
		Page:       page,
		Limit:      limit,
		SortBy:     v.Get("sortBy"),
		SortOrder:  v.Get("sortOrder"),
		Search:     v.Get("search"),
		StartDate:  v.Get("startDate"),
		EndDate:    v.Get("endDate"),
		Mobile:     v.Get("mobile"),
		NationalID: nid,
	}
}

// Normalize applies defaults and bounds: page >= 1, limit in [1, MaxLimit]
// defaulting to DefaultLimit, a known sortBy (default timestamp) and sortOrder
// asc|desc (default desc). Filters are trimmed; digit filters keep digits only.
func (p Params) Normalize() Params {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	switch p.SortBy {
	case SortByName, SortByDOB, SortByMobile, SortByTimestamp:
	default:
		p.SortBy = SortByTimestamp
	}
	if strings.ToLower(p.SortOrder) == SortAsc {
		p.SortOrder = SortAsc
	} else {
		p.SortOrder = SortDesc
	}
	p.Search = strings.TrimSpace(p.Search)
	p.StartDate = strings.TrimSpace(p.StartDate)
	p.EndDate = strings.TrimSpace(p.EndDate)
	p.Mobile = validation.DigitsOnly(p.Mobile)
	p.NationalID = validation.DigitsOnly(p.NationalID)
	return p
}

// CacheKey is the canonical serialization of normalized params.
func (p Params) CacheKey() string {
	b, _ := json.Marshal(p.Normalize())
	return "cache:responses:" + string(b)
}

// Filters echoes the active filters in responses.
type Filters struct {
	Search     string `json:"search"`
	StartDate  string `json:"startDate"`
	EndDate    string `json:"endDate"`
	Mobile     string `json:"mobile"`
	NationalID string `json:"nationalId"`
}

func (p Params) Filters() Filters {
	return Filters{Search: p.Search, StartDate: p.StartDate, EndDate: p.EndDate, Mobile: p.Mobile, NationalID: p.NationalID}
}

// timeBounds parses StartDate/EndDate. A date-only EndDate covers the whole
// day. Unparseable bounds are ignored.
func (p Params) timeBounds() (start, end time.Time) {
	if t, ok := parseBound(p.StartDate); ok {
		start = t
	}
	if t, ok := parseBound(p.EndDate); ok {
		end = t
		if len(p.EndDate) == len(validation.DateLayout) {
			end = t.Add(24*time.Hour - time.Nanosecond)
		}
	}
	return start, end
}

func parseBound(v string) (time.Time, bool) {
	if v == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t.UTC(), true
	}
	if t, err := time.Parse(validation.DateLayout, v); err == nil {
		return t, true
	}
	return time.Time{}, false
}
