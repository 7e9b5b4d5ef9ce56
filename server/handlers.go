package server

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/xhit/go-str2duration/v2"
)

type putRequest struct {
	Value any    `json:"value"`
	TTL   string `json:"ttl"`
}

type valueResponse struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

func (s *Server) getHealth(c echo.Context) error {
	summary := s.health.Run(c.Request().Context())
	return c.JSON(summary.Status.HTTPStatus(), summary)
}

func (s *Server) getStats(c echo.Context) error {
	return c.JSON(http.StatusOK, s.cache.Stats(c.Request().Context()))
}

func (s *Server) getKey(c echo.Context) error {
	key := c.Param("key")
	val, found := s.cache.Get(c.Request().Context(), key)
	if !found {
		return echo.NewHTTPError(http.StatusNotFound, "not_found")
	}
	return c.JSON(http.StatusOK, valueResponse{Key: key, Value: val})
}

func (s *Server) putKey(c echo.Context) error {
	var req putRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid_body")
	}
	var ttl time.Duration
	if req.TTL != "" {
		d, err := str2duration.ParseDuration(req.TTL)
		if err != nil || d <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid_ttl")
		}
		ttl = d
	}
	ok := s.cache.Set(c.Request().Context(), c.Param("key"), req.Value, ttl)
	return c.JSON(http.StatusOK, map[string]bool{"stored": ok})
}

func (s *Server) deleteKey(c echo.Context) error {
	existed := s.cache.Del(c.Request().Context(), c.Param("key"))
	return c.JSON(http.StatusOK, map[string]bool{"deleted": existed})
}

func (s *Server) incrKey(c echo.Context) error {
	key := c.Param("key")
	n := s.cache.Increment(c.Request().Context(), key)
	return c.JSON(http.StatusOK, valueResponse{Key: key, Value: n})
}
