package billing

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinicore/clinicore/internal/domain/domainerr"
	"github.com/clinicore/clinicore/internal/platform/auth"
	"github.com/clinicore/clinicore/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	readGroup := api.Group("", auth.RequireRole("admin", "billing", "registrar"))
	readGroup.GET("/bills", h.ListBills)
	readGroup.GET("/bills/number/:billNumber", h.GetBillByNumber)
	readGroup.GET("/bills/:id", h.GetBill)
	readGroup.GET("/bills/:id/payments", h.ListPayments)
	readGroup.GET("/bills/:id/claims", h.ListClaims)

	writeGroup := api.Group("", auth.RequireRole("admin", "billing"))
	writeGroup.POST("/bills", h.CreateBill)
	writeGroup.POST("/bills/:id/items", h.AddItem)
	writeGroup.PUT("/bills/:id/items/:itemId", h.UpdateItem)
	writeGroup.DELETE("/bills/:id/items/:itemId", h.RemoveItem)
	writeGroup.PUT("/bills/:id/due-date", h.SetDueDate)
	writeGroup.PUT("/bills/:id/tax-rate", h.SetTaxRate)
	writeGroup.POST("/bills/:id/discount", h.ApplyDiscount)
	writeGroup.POST("/bills/:id/finalize", h.FinalizeBill)
	writeGroup.POST("/bills/:id/payments", h.AddPayment)
	writeGroup.POST("/payments/:id/process", h.ProcessPayment)
	writeGroup.POST("/bills/:id/overdue", h.MarkOverdue)
	writeGroup.POST("/bills/:id/cancel", h.CancelBill)
	writeGroup.POST("/bills/:id/claims", h.SubmitClaim)
	writeGroup.POST("/claims/:id/approve", h.ApproveClaim)
	writeGroup.POST("/claims/:id/deny", h.DenyClaim)
	writeGroup.POST("/claims/:id/partial-approve", h.PartialApproveClaim)

	adminGroup := api.Group("", auth.RequireRole("admin"))
	adminGroup.DELETE("/bills/:id", h.DeleteBill)
}

func httpError(err error) error {
	return echo.NewHTTPError(domainerr.HTTPStatus(err), err.Error())
}

func parseID(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}

type createBillRequest struct {
	PatientID     uuid.UUID  `json:"patient_id"`
	AppointmentID *uuid.UUID `json:"appointment_id,omitempty"`
	DueDate       *time.Time `json:"due_date,omitempty"`
	TaxRate       float64    `json:"tax_rate"`
}

func (h *Handler) CreateBill(c echo.Context) error {
	var req createBillRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	b, err := h.svc.CreateBill(c.Request().Context(), req.PatientID, req.AppointmentID, req.DueDate, req.TaxRate)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, b)
}

func (h *Handler) GetBill(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	b, err := h.svc.GetBill(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) GetBillByNumber(c echo.Context) error {
	b, err := h.svc.GetBillByNumber(c.Request().Context(), c.Param("billNumber"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) ListBills(c echo.Context) error {
	pg := pagination.FromContext(c)
	ctx := c.Request().Context()
	if pid := c.QueryParam("patient_id"); pid != "" {
		id, err := uuid.Parse(pid)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
		}
		items, total, err := h.svc.ListBillsByPatient(ctx, id, pg.Limit, pg.Offset)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
	}
	if status := c.QueryParam("status"); status != "" {
		items, total, err := h.svc.ListBillsByStatus(ctx, status, pg.Limit, pg.Offset)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
	}
	items, total, err := h.svc.ListBills(ctx, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

type addItemRequest struct {
	Description string  `json:"description"`
	ServiceCode *string `json:"service_code,omitempty"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
}

func (h *Handler) AddItem(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req addItemRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	it, err := h.svc.AddItem(c.Request().Context(), id, req.Description, req.ServiceCode, req.Quantity, req.UnitPrice)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, it)
}

type updateItemRequest struct {
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

func (h *Handler) UpdateItem(c echo.Context) error {
	billID, err := parseID(c, "id")
	if err != nil {
		return err
	}
	itemID, err := parseID(c, "itemId")
	if err != nil {
		return err
	}
	var req updateItemRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	it, err := h.svc.UpdateItem(c.Request().Context(), billID, itemID, req.Quantity, req.UnitPrice)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, it)
}

func (h *Handler) RemoveItem(c echo.Context) error {
	billID, err := parseID(c, "id")
	if err != nil {
		return err
	}
	itemID, err := parseID(c, "itemId")
	if err != nil {
		return err
	}
	b, err := h.svc.RemoveItem(c.Request().Context(), billID, itemID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, b)
}

type dueDateRequest struct {
	DueDate time.Time `json:"due_date"`
}

func (h *Handler) SetDueDate(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req dueDateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	b, err := h.svc.SetDueDate(c.Request().Context(), id, req.DueDate)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, b)
}

type taxRateRequest struct {
	TaxRate float64 `json:"tax_rate"`
}

func (h *Handler) SetTaxRate(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req taxRateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	b, err := h.svc.SetTaxRate(c.Request().Context(), id, req.TaxRate)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, b)
}

type discountRequest struct {
	Amount float64 `json:"amount"`
	Reason *string `json:"reason,omitempty"`
}

func (h *Handler) ApplyDiscount(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req discountRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	b, err := h.svc.ApplyDiscount(c.Request().Context(), id, req.Amount, req.Reason)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) FinalizeBill(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	b, err := h.svc.FinalizeBill(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, b)
}

type addPaymentRequest struct {
	Amount    float64 `json:"amount"`
	Method    string  `json:"method"`
	Reference *string `json:"reference,omitempty"`
}

func (h *Handler) AddPayment(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req addPaymentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p, err := h.svc.AddPayment(c.Request().Context(), id, req.Amount, req.Method, req.Reference)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) ProcessPayment(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	p, err := h.svc.ProcessPayment(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) ListPayments(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	payments, err := h.svc.ListPaymentsByBill(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, payments)
}

func (h *Handler) MarkOverdue(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	b, err := h.svc.MarkBillOverdue(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, b)
}

type cancelBillRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) CancelBill(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req cancelBillRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	b, err := h.svc.CancelBill(c.Request().Context(), id, req.Reason)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) DeleteBill(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.DeleteBill(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

type submitClaimRequest struct {
	PatientInsuranceID uuid.UUID `json:"patient_insurance_id"`
	ClaimAmount        float64   `json:"claim_amount"`
	Notes              *string   `json:"notes,omitempty"`
}

func (h *Handler) SubmitClaim(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req submitClaimRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	cl, err := h.svc.SubmitClaim(c.Request().Context(), id, req.PatientInsuranceID, req.ClaimAmount, req.Notes)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, cl)
}

type approveClaimRequest struct {
	ApprovedAmount float64 `json:"approved_amount"`
	PaidAmount     float64 `json:"paid_amount"`
}

func (h *Handler) ApproveClaim(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req approveClaimRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	cl, err := h.svc.ApproveClaim(c.Request().Context(), id, req.ApprovedAmount, req.PaidAmount)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, cl)
}

type denyClaimRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) DenyClaim(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req denyClaimRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	cl, err := h.svc.DenyClaim(c.Request().Context(), id, req.Reason)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, cl)
}

type partialApproveRequest struct {
	ApprovedAmount float64 `json:"approved_amount"`
	PaidAmount     float64 `json:"paid_amount"`
	Reason         string  `json:"reason"`
}

func (h *Handler) PartialApproveClaim(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req partialApproveRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	cl, err := h.svc.PartialApproveClaim(c.Request().Context(), id, req.ApprovedAmount, req.PaidAmount, req.Reason)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, cl)
}

func (h *Handler) ListClaims(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	claims, err := h.svc.ListClaimsByBill(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, claims)
}
