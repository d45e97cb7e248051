package paginator

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

const MaxSize = 100

type Paginate struct {
	From, Size, Page int
}

// New reads page and page_size from the query string. Missing or invalid
// values fall back to page 1 and defaultSize; the size is capped at MaxSize.
func New(c *gin.Context, defaultSize int) Paginate {
	size, err := strconv.Atoi(c.Query("page_size"))
	if err != nil || size <= 0 {
		size = defaultSize
	}
	if size > MaxSize {
		size = MaxSize
	}

	page, err := strconv.Atoi(c.Query("page"))
	if err != nil || page <= 0 {
		page = 1
	}

	return Paginate{
		From: (page - 1) * size,
		Size: size,
		Page: page,
	}
}
