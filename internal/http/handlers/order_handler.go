package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tbourn/merch-order-bot/internal/domain"
	"github.com/tbourn/merch-order-bot/internal/repo"
	"github.com/tbourn/merch-order-bot/internal/services"
	"github.com/tbourn/merch-order-bot/internal/utils"
)

// OrderService is the read side of the order workflow consumed by the API.
// *services.OrderService satisfies it.
type OrderService interface {
	ListPage(ctx context.Context, status domain.Status, page, pageSize int) ([]domain.Order, int64, error)
	Details(ctx context.Context, orderID uint) (*domain.Order, error)
}

// Handlers serves /api/v1. db is optional: without it list responses carry
// no ETag and /stats is answered from an empty set.
type Handlers struct {
	orders OrderService
	db     *gorm.DB
}

// New binds the handlers to the order service and database.
func New(orders OrderService, db *gorm.DB) *Handlers {
	return &Handlers{orders: orders, db: db}
}

// OrderView is an order as returned by the API: the persisted row plus the
// derived category and the display label of its status.
type OrderView struct {
	domain.Order
	ProductCategory domain.Category `json:"category"`
	StatusLabel     string          `json:"status_label"`
}

func viewOf(o domain.Order) OrderView {
	return OrderView{Order: o, ProductCategory: o.Category(), StatusLabel: o.Status.Label()}
}

// Pagination carries page metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListOrdersResponse is one page of orders.
type ListOrdersResponse struct {
	Orders     []OrderView `json:"orders"`
	Pagination Pagination  `json:"pagination"`
}

// StatsResponse counts orders per status code. Every known status is
// present, zero included.
type StatsResponse struct {
	Total    int64                   `json:"total"`
	ByStatus map[domain.Status]int64 `json:"by_status"`
}

// clampPagination reads page and page_size, defaulting to 1 and 20 and
// capping page_size at 100.
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}

// ListOrders serves GET /orders?status=&page=&page_size=, newest first.
// A weak ETag derived from the filtered row count and latest update lets
// pollers get 304 when nothing changed.
//
// @ID          listOrders
// @Summary     List orders (paginated)
// @Tags        Orders
// @Produce     json
// @Security    BearerAuth
// @Param       If-None-Match  header  string  false  "Return 304 if ETag matches"
// @Param       status         query   string  false  "Status filter"
// @Param       page           query   int     false  "Page number"     minimum(1) default(1)
// @Param       page_size      query   int     false  "Items per page"  minimum(1) maximum(100) default(20)
// @Success     200  {object}  handlers.ListOrdersResponse
// @Success     304  {string}  string  "Not Modified"
// @Failure     400  {object}  handlers.ErrorResponse  "Unknown status"
// @Failure     401  {object}  handlers.ErrorResponse  "Missing or wrong token"
// @Failure     429  {object}  handlers.ErrorResponse  "Rate limited"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /orders [get]
func (h *Handlers) ListOrders(c *gin.Context) {
	ctx := c.Request.Context()
	status := domain.Status(strings.TrimSpace(c.Query("status")))
	if status != "" && !status.Valid() {
		fail(c, http.StatusBadRequest, ErrCodeInvalidStatus, fmt.Sprintf("unknown status %q", status))
		return
	}
	page, pageSize := clampPagination(c)

	if h.db != nil {
		count, maxTS, err := repo.OrdersStats(ctx, h.db, status)
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.UnixNano()
			}
			filter := string(status)
			if filter == "" {
				filter = "all"
			}
			etag := fmt.Sprintf(`W/"orders:%s:%d:%d:%d:%d"`, filter, count, ts, page, pageSize)
			c.Header("ETag", etag)
			if c.GetHeader("If-None-Match") == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	items, total, err := h.orders.ListPage(ctx, status, page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}

	views := make([]OrderView, 0, len(items))
	for _, o := range items {
		views = append(views, viewOf(o))
	}
	totalPages := utils.TotalPages(total, pageSize)
	ok(c, ListOrdersResponse{
		Orders: views,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}

// GetOrder serves GET /orders/:id.
//
// @ID          getOrder
// @Summary     Get an order
// @Tags        Orders
// @Produce     json
// @Security    BearerAuth
// @Param       id             path    int     true   "Order ID"  minimum(1)
// @Param       If-None-Match  header  string  false  "Return 304 if ETag matches"
// @Success     200  {object}  handlers.OrderView
// @Success     304  {string}  string  "Not Modified"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad order id"
// @Failure     404  {object}  handlers.ErrorResponse  "Order not found"
// @Router      /orders/{id} [get]
func (h *Handlers) GetOrder(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "order id must be a positive integer")
		return
	}

	o, err := h.orders.Details(c.Request.Context(), uint(id))
	switch {
	case errors.Is(err, services.ErrOrderNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "order not found")
		return
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}

	etag := fmt.Sprintf(`W/"order:%d:%d"`, o.ID, o.UpdatedAt.UnixNano())
	c.Header("ETag", etag)
	if c.GetHeader("If-None-Match") == etag {
		c.Status(http.StatusNotModified)
		return
	}
	ok(c, viewOf(*o))
}

// Stats serves GET /stats.
//
// @ID          orderStats
// @Summary     Order counts by status
// @Tags        Orders
// @Produce     json
// @Security    BearerAuth
// @Success     200  {object}  handlers.StatsResponse
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /stats [get]
func (h *Handlers) Stats(c *gin.Context) {
	resp := StatsResponse{ByStatus: make(map[domain.Status]int64, len(domain.AllStatuses))}
	for _, s := range domain.AllStatuses {
		resp.ByStatus[s] = 0
	}
	if h.db != nil {
		counts, err := repo.CountOrdersByStatus(c.Request.Context(), h.db)
		if err != nil {
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
			return
		}
		for s, n := range counts {
			resp.ByStatus[s] = n
			resp.Total += n
		}
	}
	ok(c, resp)
}
