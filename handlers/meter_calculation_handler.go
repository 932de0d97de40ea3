package handlers

import (
	"net/http"
	"strings"

	"evidencia-backend/models"
	"evidencia-backend/service"

	"github.com/gin-gonic/gin"
)

// Multipart field names of the two calculation photos
const (
	fieldPhotoBefore = "fotoAnterior"
	fieldPhotoAfter  = "fotoActual"
)

// MeterCalculationHandler handles HTTP requests for meter calculations
type MeterCalculationHandler struct {
	calculationService *service.MeterCalculationService
	resolver           *service.Resolver
	limits             service.Limits
}

// NewMeterCalculationHandler creates a new meter calculation handler
func NewMeterCalculationHandler(calculationService *service.MeterCalculationService, resolver *service.Resolver, limits service.Limits) *MeterCalculationHandler {
	return &MeterCalculationHandler{
		calculationService: calculationService,
		resolver:           resolver,
		limits:             limits,
	}
}

// CreateMeterCalculationForm represents the form fields of a meter calculation submission
type CreateMeterCalculationForm struct {
	Nombre           string   `form:"nombre"`
	Apellido         string   `form:"apellido"`
	DNI              string   `form:"dni"`
	Habitacion       string   `form:"habitacion"`
	MedicionAnterior *float64 `form:"medicionAnterior"`
	MedicionActual   *float64 `form:"medicionActual"`
	ConsumoCalculado *float64 `form:"consumoCalculado"`
	MontoTotal       *float64 `form:"montoTotal"`
	PrecioKWH        *float64 `form:"precioKWH"`
	FechaRegistro    string   `form:"fechaRegistro"`
	Timestamp        int64    `form:"timestamp"`
}

func (f *CreateMeterCalculationForm) toCalculation() (*models.MeterCalculation, error) {
	var errs problems
	errs.requireText(f.Nombre, "Nombre es requerido")
	errs.requireText(f.Apellido, "Apellido es requerido")
	errs.requireText(f.DNI, "DNI es requerido")
	errs.requireText(f.Habitacion, "Habitación es requerida")
	errs.requireNumber(f.MedicionAnterior, "Medición anterior es requerida")
	errs.requireNumber(f.MedicionActual, "Medición actual es requerida")
	errs.requireNumber(f.ConsumoCalculado, "Consumo calculado es requerido")
	errs.requireNumber(f.MontoTotal, "Monto total es requerido")
	errs.requireNumber(f.PrecioKWH, "Precio por kWh es requerido")
	fecha, ok := parseDate(f.FechaRegistro)
	if !ok {
		errs = append(errs, "Fecha de registro debe ser una fecha válida")
	}
	if len(errs) > 0 {
		return nil, &service.ValidationError{Problems: errs}
	}
	if *f.MedicionActual <= *f.MedicionAnterior {
		return nil, &service.ValidationError{Problems: []string{"La medición actual debe ser mayor a la medición anterior"}}
	}

	return &models.MeterCalculation{
		Nombre:           strings.TrimSpace(f.Nombre),
		Apellido:         strings.TrimSpace(f.Apellido),
		DNI:              strings.TrimSpace(f.DNI),
		Habitacion:       strings.TrimSpace(f.Habitacion),
		MedicionAnterior: *f.MedicionAnterior,
		MedicionActual:   *f.MedicionActual,
		ConsumoCalculado: *f.ConsumoCalculado,
		MontoTotal:       *f.MontoTotal,
		PrecioKWH:        *f.PrecioKWH,
		FechaRegistro:    fecha,
		Timestamp:        f.Timestamp,
	}, nil
}

// CreateMeterCalculation handles POST /api/calculos-medidor
func (h *MeterCalculationHandler) CreateMeterCalculation(c *gin.Context) {
	var form CreateMeterCalculationForm
	if err := c.ShouldBind(&form); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	calculation, err := form.toCalculation()
	if err != nil {
		respondServiceError(c, err, "")
		return
	}

	parts, err := slotParts(c, fieldPhotoBefore, fieldPhotoAfter)
	if err != nil {
		respondServiceError(c, err, "")
		return
	}
	uploads, err := checkedUploads(parts, h.limits)
	if err != nil {
		respondServiceError(c, err, "")
		return
	}

	created, err := h.calculationService.CreateMeterCalculation(c.Request.Context(), service.CreateMeterCalculationRequest{
		Calculation: calculation,
		PhotoBefore: uploads[0],
		PhotoAfter:  uploads[1],
	})
	if err != nil {
		respondServiceError(c, err, "")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Cálculo de medidor registrado exitosamente",
		"data":    models.ProjectMeterCalculation(*created),
	})
}

// ListMeterCalculations handles GET /api/calculos-medidor
func (h *MeterCalculationHandler) ListMeterCalculations(c *gin.Context) {
	filter := models.MeterCalculationFilter{
		DNI:        c.Query("dni"),
		Habitacion: c.Query("habitacion"),
	}

	calculations, err := h.calculationService.ListMeterCalculations(c.Request.Context(), filter)
	if err != nil {
		respondServiceError(c, err, "")
		return
	}

	respondList(c, models.ProjectMeterCalculations(calculations))
}

// GetMeterCalculation handles GET /api/calculos-medidor/:id
func (h *MeterCalculationHandler) GetMeterCalculation(c *gin.Context) {
	calculation, err := h.calculationService.GetMeterCalculation(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err, "Cálculo no encontrado")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    models.ProjectMeterCalculation(*calculation),
	})
}

// GetPhoto returns the handler serving one photo slot of a calculation
func (h *MeterCalculationHandler) GetPhoto(slot string) gin.HandlerFunc {
	return func(c *gin.Context) {
		serveAsset(c, h.resolver, models.KindMeterCalculation, c.Param("id"), slot)
	}
}
