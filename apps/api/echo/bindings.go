package echoapi

import (
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core"
)

const (
	orderingParam = "ordering"
	pageParam     = "page"
	pageSizeParam = "page_size"

	errInvalidParam = "invalid value"
)

type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	val := ctx.QueryParam(orderingParam)
	if val == "" {
		return
	}

	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if field == "" {
			continue
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

// Pagination binds `?page=&page_size=`. A request without a page gets the first page.
type Pagination struct {
	core.Pagination
}

func (p *Pagination) Bind(ctx echo.Context) error {
	page, err := queryInt(ctx, pageParam)
	if err != nil {
		return err
	}
	size, err := queryInt(ctx, pageSizeParam)
	if err != nil {
		return err
	}
	if page < 1 {
		page = 1
	}
	p.Page = page
	p.PageSize = size
	p.PageSize = p.Limit()
	return nil
}

// typed query getters

func queryInt(ctx echo.Context, name string) (int, error) {
	val := ctx.QueryParam(name)
	if val == "" {
		return 0, nil
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return 0, core.NewFieldError(name, errInvalidParam)
	}
	return i, nil
}

func queryBool(ctx echo.Context, name string) (*bool, error) {
	val := ctx.QueryParam(name)
	if val == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return nil, core.NewFieldError(name, errInvalidParam)
	}
	return &b, nil
}

func queryTime(ctx echo.Context, name string) (time.Time, error) {
	val := ctx.QueryParam(name)
	if val == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return time.Time{}, core.NewFieldError(name, errInvalidParam)
	}
	return t.UTC(), nil
}

func queryStrings(ctx echo.Context, name string) []string {
	var values []string
	for _, v := range ctx.QueryParams()[name] {
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				values = append(values, s)
			}
		}
	}
	return values
}
