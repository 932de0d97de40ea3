package handlers

import (
	"net/http"
	"strings"

	"evidencia-backend/models"
	"evidencia-backend/service"

	"github.com/gin-gonic/gin"
)

// CounterReadingHandler handles HTTP requests for counter readings
type CounterReadingHandler struct {
	readingService *service.CounterReadingService
	resolver       *service.Resolver
	limits         service.Limits
}

// NewCounterReadingHandler creates a new counter reading handler
func NewCounterReadingHandler(readingService *service.CounterReadingService, resolver *service.Resolver, limits service.Limits) *CounterReadingHandler {
	return &CounterReadingHandler{
		readingService: readingService,
		resolver:       resolver,
		limits:         limits,
	}
}

// CreateCounterReadingForm represents the fields of a counter reading submission.
// It binds from multipart forms (with a fotoMedidor file) and from JSON bodies.
type CreateCounterReadingForm struct {
	DNI             string   `form:"dni" json:"dni"`
	Nombre          string   `form:"nombre" json:"nombre"`
	Apellidos       string   `form:"apellidos" json:"apellidos"`
	Habitacion      string   `form:"habitacion" json:"habitacion"`
	NumeroMedidor   string   `form:"numeroMedidor" json:"numeroMedidor"`
	LecturaActual   *float64 `form:"lecturaActual" json:"lecturaActual"`
	LecturaAnterior *float64 `form:"lecturaAnterior" json:"lecturaAnterior"`
	FechaLectura    string   `form:"fechaLectura" json:"fechaLectura"`
	Observaciones   string   `form:"observaciones" json:"observaciones"`
}

func (f *CreateCounterReadingForm) toReading() (*models.CounterReading, error) {
	var errs problems
	errs.requireText(f.DNI, "DNI es requerido")
	errs.requireText(f.Nombre, "Nombre es requerido")
	errs.requireText(f.Apellidos, "Apellidos es requerido")
	errs.requireText(f.Habitacion, "Habitación es requerida")
	errs.requireText(f.NumeroMedidor, "Número de medidor es requerido")
	errs.requireNumber(f.LecturaActual, "Lectura actual es requerida")
	errs.requireNumber(f.LecturaAnterior, "Lectura anterior es requerida")
	fecha, ok := parseDate(f.FechaLectura)
	if !ok {
		errs = append(errs, "Fecha de lectura debe ser una fecha válida")
	}
	if len(errs) > 0 {
		return nil, &service.ValidationError{Problems: errs}
	}

	return &models.CounterReading{
		DNI:             strings.TrimSpace(f.DNI),
		Nombre:          strings.TrimSpace(f.Nombre),
		Apellidos:       strings.TrimSpace(f.Apellidos),
		Habitacion:      strings.TrimSpace(f.Habitacion),
		NumeroMedidor:   strings.TrimSpace(f.NumeroMedidor),
		LecturaActual:   *f.LecturaActual,
		LecturaAnterior: *f.LecturaAnterior,
		FechaLectura:    fecha,
		Observaciones:   strings.TrimSpace(f.Observaciones),
	}, nil
}

// CreateCounterReading handles POST /api/contadores
func (h *CounterReadingHandler) CreateCounterReading(c *gin.Context) {
	var form CreateCounterReadingForm
	if err := c.ShouldBind(&form); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	reading, err := form.toReading()
	if err != nil {
		respondServiceError(c, err, "")
		return
	}

	parts, err := slotParts(c, models.SlotCounterPhoto)
	if err != nil {
		respondServiceError(c, err, "")
		return
	}
	uploads, err := checkedUploads(parts, h.limits)
	if err != nil {
		respondServiceError(c, err, "")
		return
	}

	created, err := h.readingService.CreateCounterReading(c.Request.Context(), service.CreateCounterReadingRequest{
		Reading: reading,
		Photo:   uploads[0],
	})
	if err != nil {
		respondServiceError(c, err, "")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Lectura registrada exitosamente",
		"data":    models.ProjectCounterReading(*created),
	})
}

// ListCounterReadings handles GET /api/contadores
func (h *CounterReadingHandler) ListCounterReadings(c *gin.Context) {
	filter := models.CounterReadingFilter{
		DNI:        c.Query("dni"),
		Habitacion: c.Query("habitacion"),
	}

	readings, err := h.readingService.ListCounterReadings(c.Request.Context(), filter)
	if err != nil {
		respondServiceError(c, err, "")
		return
	}

	respondList(c, models.ProjectCounterReadings(readings))
}

// GetCounterReading handles GET /api/contadores/:id
func (h *CounterReadingHandler) GetCounterReading(c *gin.Context) {
	reading, err := h.readingService.GetCounterReading(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err, "Lectura no encontrada")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    models.ProjectCounterReading(*reading),
	})
}

// GetCounterPhoto handles GET /api/contadores/:id/fotoMedidor
func (h *CounterReadingHandler) GetCounterPhoto(c *gin.Context) {
	serveAsset(c, h.resolver, models.KindCounterReading, c.Param("id"), models.SlotCounterPhoto)
}
