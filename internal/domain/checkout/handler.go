package checkout

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/vaxhub/vaxhub/internal/domain/appointment"
	"github.com/vaxhub/vaxhub/internal/domain/medd"
	"github.com/vaxhub/vaxhub/internal/domain/product"
	"github.com/vaxhub/vaxhub/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	role := auth.RequireRole(auth.RoleNurse, auth.RoleMedicalAssistant)

	api.POST("/evaluate", h.Evaluate, role)

	g := api.Group("/checkouts/:appointment_id", role)
	g.POST("", h.Start)
	g.GET("", h.Get)
	g.POST("/doses", h.Scan)
	g.DELETE("/doses/:id", h.Remove)
	g.POST("/doses/:id/restore", h.Restore)
	g.PUT("/doses/:id/route", h.SelectRoute)
	g.PUT("/doses/:id/payment", h.SetPaymentMode)
	g.PUT("/medd", h.ApplyMedD)
	g.POST("/refresh", h.Refresh)
	g.POST("/submit", h.Submit)
}

// itemView adds the banner a client shows for the dose.
type itemView struct {
	StagedCartItem
	Banner                  string `json:"banner,omitempty"`
	Blocking                bool   `json:"blocking"`
	IsSelfPayAndNonZeroRate bool   `json:"is_self_pay_and_non_zero_rate"`
}

func renderItem(it StagedCartItem) itemView {
	v := itemView{
		StagedCartItem:          it,
		Blocking:                it.Active() && it.Issues.Blocking(),
		IsSelfPayAndNonZeroRate: it.IsSelfPayAndNonZeroRate(),
	}
	if top, ok := it.Issues.Top(); ok {
		v.Banner = top.Describe()
	}
	return v
}

type cartView struct {
	AppointmentID uuid.UUID  `json:"appointment_id"`
	Closed        bool       `json:"closed"`
	Blocked       bool       `json:"blocked"`
	Items         []itemView `json:"items"`
}

func renderCart(v *View) cartView {
	out := cartView{
		AppointmentID: v.AppointmentID,
		Closed:        v.Closed,
		Blocked:       v.Blocked,
		Items:         make([]itemView, len(v.Items)),
	}
	for n, it := range v.Items {
		out.Items[n] = renderItem(it)
	}
	return out
}

func (h *Handler) Evaluate(c echo.Context) error {
	var req Request
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	result := h.svc.Evaluate(req)
	if result == nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, ErrNotEvaluable.Error())
	}
	return c.JSON(http.StatusOK, result)
}

func (h *Handler) Start(c echo.Context) error {
	id, err := appointmentID(c)
	if err != nil {
		return err
	}
	v, err := h.svc.Start(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, renderCart(v))
}

func (h *Handler) Get(c echo.Context) error {
	id, err := appointmentID(c)
	if err != nil {
		return err
	}
	v, err := h.svc.Get(id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, renderCart(v))
}

func (h *Handler) Scan(c echo.Context) error {
	id, err := appointmentID(c)
	if err != nil {
		return err
	}
	var req ScanRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	item, err := h.svc.Scan(c.Request().Context(), id, req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, renderItem(*item))
}

func (h *Handler) Remove(c echo.Context) error {
	id, itemID, err := doseIDs(c)
	if err != nil {
		return err
	}
	item, err := h.svc.Remove(c.Request().Context(), id, itemID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, renderItem(*item))
}

func (h *Handler) Restore(c echo.Context) error {
	id, itemID, err := doseIDs(c)
	if err != nil {
		return err
	}
	item, err := h.svc.Restore(c.Request().Context(), id, itemID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, renderItem(*item))
}

func (h *Handler) SelectRoute(c echo.Context) error {
	id, itemID, err := doseIDs(c)
	if err != nil {
		return err
	}
	var body struct {
		Route string `json:"route"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	item, err := h.svc.SelectRoute(c.Request().Context(), id, itemID, body.Route)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, renderItem(*item))
}

func (h *Handler) SetPaymentMode(c echo.Context) error {
	id, itemID, err := doseIDs(c)
	if err != nil {
		return err
	}
	var body struct {
		PaymentMode PaymentMode `json:"payment_mode"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	item, err := h.svc.SetPaymentMode(c.Request().Context(), id, itemID, body.PaymentMode)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, renderItem(*item))
}

func (h *Handler) ApplyMedD(c echo.Context) error {
	id, err := appointmentID(c)
	if err != nil {
		return err
	}
	var info medd.Info
	if err := c.Bind(&info); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	v, err := h.svc.ApplyMedD(c.Request().Context(), id, &info)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, renderCart(v))
}

func (h *Handler) Refresh(c echo.Context) error {
	id, err := appointmentID(c)
	if err != nil {
		return err
	}
	v, err := h.svc.Refresh(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, renderCart(v))
}

func (h *Handler) Submit(c echo.Context) error {
	id, err := appointmentID(c)
	if err != nil {
		return err
	}
	v, err := h.svc.Submit(c.Request().Context(), id)
	if errors.Is(err, ErrBlockingIssues) {
		// The client needs the blocked doses to show why submission failed.
		view, getErr := h.svc.Get(id)
		if getErr != nil {
			return httpError(err)
		}
		return c.JSON(http.StatusConflict, map[string]interface{}{
			"message":  err.Error(),
			"checkout": renderCart(view),
		})
	}
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, renderCart(v))
}

func appointmentID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("appointment_id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid appointment_id")
	}
	return id, nil
}

func doseIDs(c echo.Context) (uuid.UUID, uuid.UUID, error) {
	id, err := appointmentID(c)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	itemID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, itemID, nil
}

// httpError maps service errors onto status codes.
func httpError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrItemNotFound),
		errors.Is(err, appointment.ErrNotFound), errors.Is(err, product.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalidRequest), errors.Is(err, ErrInvalidPayment):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrCheckoutClosed), errors.Is(err, ErrBlockingIssues):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrNotEvaluable):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
