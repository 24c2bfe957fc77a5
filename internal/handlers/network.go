package handlers

import (
	"strconv"
	"time"

	"fraudguard/internal/services/network"
	"fraudguard/internal/utils/response"
	"fraudguard/internal/utils/validation"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type NetworkHandler struct {
	service *network.Service
	logger  *zap.Logger
}

func NewNetworkHandler(service *network.Service, logger *zap.Logger) *NetworkHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NetworkHandler{service: service, logger: logger}
}

// GetGraph handles GET /api/admin/network-graph?since&until&limit. Times are
// RFC 3339.
func (h *NetworkHandler) GetGraph(c *fiber.Ctx) error {
	w, err := parseWindow(c)
	if err != nil {
		return writeError(c, h.logger, err)
	}

	g, err := h.service.BuildFromStore(c.UserContext(), w)
	if err != nil {
		return writeError(c, h.logger, err)
	}

	return response.Success(c, g)
}

func parseWindow(c *fiber.Ctx) (network.Window, error) {
	v := validation.New()
	var w network.Window

	if s := c.Query("since"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		v.Check(err == nil, "since", "must be an RFC 3339 timestamp")
		if err == nil {
			w.Since = &t
		}
	}
	if s := c.Query("until"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		v.Check(err == nil, "until", "must be an RFC 3339 timestamp")
		if err == nil {
			w.Until = &t
		}
	}
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		v.Check(err == nil && n > 0, "limit", "must be a positive integer")
		w.Limit = n
	}

	return w, v.Err()
}
