package handlers

import (
	"net/http"
	"strings"

	"evidencia-backend/models"
	"evidencia-backend/service"

	"github.com/gin-gonic/gin"
)

// VoucherHandler handles HTTP requests for vouchers
type VoucherHandler struct {
	voucherService *service.VoucherService
	resolver       *service.Resolver
	limits         service.Limits
}

// NewVoucherHandler creates a new voucher handler
func NewVoucherHandler(voucherService *service.VoucherService, resolver *service.Resolver, limits service.Limits) *VoucherHandler {
	return &VoucherHandler{
		voucherService: voucherService,
		resolver:       resolver,
		limits:         limits,
	}
}

// CreateVoucherForm represents the form fields of a voucher submission
type CreateVoucherForm struct {
	Nombre   string      `form:"nombre" json:"nombre"`
	Apellido string      `form:"apellido" json:"apellido"`
	DNI      string      `form:"dni" json:"dni"`
	Email    string      `form:"email" json:"email"`
	Ref4     string      `form:"ref4" json:"ref4"`
	Hab      string      `form:"hab" json:"hab"`
	Monto    decimalText `form:"monto" json:"monto"`
}

func (f *CreateVoucherForm) toVoucher() (*models.Voucher, error) {
	var errs problems
	errs.requireText(f.Nombre, "Nombre es requerido")
	errs.requireText(f.Apellido, "Apellido es requerido")
	errs.requireText(f.DNI, "DNI es requerido")
	errs.requireText(f.Hab, "Habitación es requerida")
	monto := errs.requireDecimal(f.Monto, "Monto es requerido", "Monto debe ser un número")
	if len(errs) > 0 {
		return nil, &service.ValidationError{Problems: errs}
	}

	return &models.Voucher{
		Nombre:   strings.TrimSpace(f.Nombre),
		Apellido: strings.TrimSpace(f.Apellido),
		DNI:      strings.TrimSpace(f.DNI),
		Email:    strings.TrimSpace(f.Email),
		Ref4:     strings.TrimSpace(f.Ref4),
		Hab:      strings.TrimSpace(f.Hab),
		Monto:    monto,
	}, nil
}

// CreateVoucher handles POST /api/vouchers
func (h *VoucherHandler) CreateVoucher(c *gin.Context) {
	var form CreateVoucherForm
	if err := c.ShouldBind(&form); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	voucher, err := form.toVoucher()
	if err != nil {
		respondServiceError(c, err, "")
		return
	}

	headers := formFiles(c, "files")
	parts := make([]filePart, len(headers))
	for i, fh := range headers {
		parts[i] = filePart{field: "files", header: fh}
	}
	uploads, err := checkedUploads(parts, h.limits)
	if err != nil {
		respondServiceError(c, err, "")
		return
	}

	result, err := h.voucherService.CreateVoucher(c.Request.Context(), service.CreateVoucherRequest{
		Voucher: voucher,
		Files:   uploads,
	})
	if err != nil {
		respondServiceError(c, err, "")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Voucher creado exitosamente",
		"data":    models.ProjectVoucher(*result.Voucher),
	})
}

// ListVouchers handles GET /api/vouchers
func (h *VoucherHandler) ListVouchers(c *gin.Context) {
	filter := models.VoucherFilter{
		DNI: c.Query("dni"),
		Hab: c.Query("hab"),
	}

	vouchers, err := h.voucherService.ListVouchers(c.Request.Context(), filter)
	if err != nil {
		respondServiceError(c, err, "")
		return
	}

	respondList(c, models.ProjectVouchers(vouchers))
}

// GetVoucher handles GET /api/vouchers/:id
func (h *VoucherHandler) GetVoucher(c *gin.Context) {
	voucher, err := h.voucherService.GetVoucher(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err, "Voucher not found")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    models.ProjectVoucher(*voucher),
	})
}

// GetVoucherImage handles GET /api/vouchers/:id/image/:filename
func (h *VoucherHandler) GetVoucherImage(c *gin.Context) {
	serveAsset(c, h.resolver, models.KindVoucher, c.Param("id"), c.Param("filename"))
}

// UpdateEstadoRequest represents the request body for changing a voucher state
type UpdateEstadoRequest struct {
	Estado string `json:"estado" binding:"required"`
}

// UpdateVoucherEstado handles PATCH /api/vouchers/:id/estado
func (h *VoucherHandler) UpdateVoucherEstado(c *gin.Context) {
	var req UpdateEstadoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	voucher, err := h.voucherService.UpdateEstado(c.Request.Context(), c.Param("id"), models.VoucherStatus(req.Estado))
	if err != nil {
		respondServiceError(c, err, "Voucher not found")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    models.ProjectVoucher(*voucher),
	})
}
