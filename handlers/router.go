package handlers

import (
	"log/slog"

	"evidencia-backend/models"

	"github.com/gin-gonic/gin"
)

// Router bundles the handlers mounted by NewRouter
type Router struct {
	Vouchers     *VoucherHandler
	Readings     *CounterReadingHandler
	Calculations *MeterCalculationHandler
	Health       *HealthHandler
	Logger       *slog.Logger
}

// NewRouter builds the gin engine with every route of the service
func NewRouter(rt Router) *gin.Engine {
	if rt.Logger == nil {
		rt.Logger = slog.Default()
	}

	r := gin.New()
	// Voucher filenames are path-escaped and may contain an encoded slash
	r.UseRawPath = true
	r.UnescapePathValues = true
	r.Use(gin.Recovery(), RequestLogger(rt.Logger))

	r.GET("/health", rt.Health.Health)

	api := r.Group(models.APIPrefix)
	{
		// Voucher endpoints
		api.POST("/vouchers", rt.Vouchers.CreateVoucher)
		api.GET("/vouchers", rt.Vouchers.ListVouchers)
		api.GET("/vouchers/:id", rt.Vouchers.GetVoucher)
		api.PATCH("/vouchers/:id/estado", rt.Vouchers.UpdateVoucherEstado)
		api.GET("/vouchers/:id/image/:filename", rt.Vouchers.GetVoucherImage)

		// Counter reading endpoints
		api.POST("/contadores", rt.Readings.CreateCounterReading)
		api.GET("/contadores", rt.Readings.ListCounterReadings)
		api.GET("/contadores/:id", rt.Readings.GetCounterReading)
		api.GET("/contadores/:id/"+models.SlotCounterPhoto, rt.Readings.GetCounterPhoto)

		// Meter calculation endpoints
		api.POST("/calculos-medidor", rt.Calculations.CreateMeterCalculation)
		api.GET("/calculos-medidor", rt.Calculations.ListMeterCalculations)
		api.GET("/calculos-medidor/:id", rt.Calculations.GetMeterCalculation)
		api.GET("/calculos-medidor/:id/"+models.SlotPhotoBefore, rt.Calculations.GetPhoto(models.SlotPhotoBefore))
		api.GET("/calculos-medidor/:id/"+models.SlotPhotoAfter, rt.Calculations.GetPhoto(models.SlotPhotoAfter))
	}

	return r
}
