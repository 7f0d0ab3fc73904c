package devstack

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/aisocialapp/appcore/internal/apperr"
	"github.com/aisocialapp/appcore/internal/platform"
)

// RestHandler serves the /rest/v1 surface over the registered tables.
type RestHandler struct {
	tables map[string]Table
	hub    *Hub
	log    *zap.Logger

	idemMu sync.Mutex
	idem   map[string]platform.Record
}

// NewRestHandler creates a handler over the given collection tables.
func NewRestHandler(tables map[string]Table, hub *Hub, log *zap.Logger) *RestHandler {
	return &RestHandler{
		tables: tables,
		hub:    hub,
		log:    log,
		idem:   make(map[string]platform.Record),
	}
}

// RegisterRestRoutes registers the collection routes.
func (h *RestHandler) RegisterRestRoutes(g *echo.Group) {
	g.GET("/:collection", h.Select)
	g.POST("/:collection", h.Insert)
	g.PATCH("/:collection", h.Update)
	g.DELETE("/:collection", h.Delete)
}

func (h *RestHandler) table(c echo.Context) (string, Table, error) {
	name := c.Param("collection")
	table, ok := h.tables[name]
	if !ok {
		return "", nil, echo.NewHTTPError(http.StatusNotFound, fmt.Sprintf("unknown collection %q", name))
	}
	return name, table, nil
}

// Select runs a filtered read and returns the matching rows.
func (h *RestHandler) Select(c echo.Context) error {
	name, table, err := h.table(c)
	if err != nil {
		return err
	}
	q, err := ParseQuery(name, c.QueryParams())
	if err != nil {
		err = apperr.Wrap(apperr.KindValidation, "bad query", err)
		return echo.NewHTTPError(apperr.StatusOf(err), err.Error())
	}
	records, err := table.Select(c.Request().Context(), q)
	if err != nil {
		h.log.Error("select failed", zap.String("collection", name), zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "Database error")
	}
	return c.JSON(http.StatusOK, records)
}

// Insert stores one row. A repeated Idempotency-Key returns the row the
// first attempt created instead of inserting again.
func (h *RestHandler) Insert(c echo.Context) error {
	name, table, err := h.table(c)
	if err != nil {
		return err
	}
	var rec platform.Record
	if err := c.Bind(&rec); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}

	idemKey := c.Request().Header.Get("Idempotency-Key")
	if idemKey != "" {
		if stored, ok := h.replay(name, idemKey); ok {
			return c.JSON(http.StatusCreated, []platform.Record{stored})
		}
	}

	stored, err := table.Insert(c.Request().Context(), rec)
	if err != nil {
		h.log.Error("insert failed", zap.String("collection", name), zap.Error(err))
		return echo.NewHTTPError(http.StatusConflict, "Insert rejected")
	}
	if idemKey != "" {
		h.remember(name, idemKey, stored)
	}
	h.hub.Broadcast(name, string(platform.ChangeInsert), stored)
	h.fanOutActivity(c, name, stored)
	return c.JSON(http.StatusCreated, []platform.Record{stored})
}

// Update applies the body's changes to every row the filter matches.
func (h *RestHandler) Update(c echo.Context) error {
	name, table, err := h.table(c)
	if err != nil {
		return err
	}
	filter, err := ParseFilter(c.QueryParams())
	if err != nil {
		err = apperr.Wrap(apperr.KindValidation, "bad filter", err)
		return echo.NewHTTPError(apperr.StatusOf(err), err.Error())
	}
	if filter == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "update requires a filter")
	}
	var changes platform.Record
	if err := c.Bind(&changes); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}

	updated, err := table.Update(c.Request().Context(), changes, filter)
	if err != nil {
		h.log.Error("update failed", zap.String("collection", name), zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "Database error")
	}
	for _, rec := range updated {
		h.hub.Broadcast(name, string(platform.ChangeUpdate), rec)
	}
	return c.JSON(http.StatusOK, updated)
}

// Delete removes every row the filter matches.
func (h *RestHandler) Delete(c echo.Context) error {
	name, table, err := h.table(c)
	if err != nil {
		return err
	}
	filter, err := ParseFilter(c.QueryParams())
	if err != nil {
		err = apperr.Wrap(apperr.KindValidation, "bad filter", err)
		return echo.NewHTTPError(apperr.StatusOf(err), err.Error())
	}
	if filter == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "delete requires a filter")
	}

	deleted, err := table.Delete(c.Request().Context(), filter)
	if err != nil {
		h.log.Error("delete failed", zap.String("collection", name), zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "Database error")
	}
	for _, rec := range deleted {
		h.hub.Broadcast(name, string(platform.ChangeDelete), rec)
	}
	return c.JSON(http.StatusOK, deleted)
}

func (h *RestHandler) replay(collection, key string) (platform.Record, bool) {
	h.idemMu.Lock()
	defer h.idemMu.Unlock()
	rec, ok := h.idem[collection+"/"+key]
	return rec, ok
}

func (h *RestHandler) remember(collection, key string, rec platform.Record) {
	h.idemMu.Lock()
	defer h.idemMu.Unlock()
	h.idem[collection+"/"+key] = rec
}
