package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"evidencia-backend/models"
	"evidencia-backend/repository"
	"evidencia-backend/service"
	"evidencia-backend/storage"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	router *gin.Engine
	store  storage.BlobStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	vouchers := repository.NewMemoryVoucherRepository()
	readings := repository.NewMemoryCounterReadingRepository()
	calculations := repository.NewMemoryMeterCalculationRepository()

	ingest := service.NewIngestService(service.IngestWithBlobStore(store))
	resolver := service.NewResolver(
		service.ResolverWithVoucherRepository(vouchers),
		service.ResolverWithCounterReadingRepository(readings),
		service.ResolverWithMeterCalculationRepository(calculations),
		service.ResolverWithBlobStore(store),
	)

	voucherLimits := service.Limits{MaxFiles: 3, MaxFileSize: 1 << 20}
	meterLimits := service.Limits{MaxFiles: 2, MaxFileSize: 1 << 20}

	router := NewRouter(Router{
		Vouchers: NewVoucherHandler(service.NewVoucherService(
			service.WithVoucherRepository(vouchers),
			service.VoucherWithIngestService(ingest),
			service.VoucherWithLimits(voucherLimits),
		), resolver, voucherLimits),
		Readings: NewCounterReadingHandler(service.NewCounterReadingService(
			service.WithCounterReadingRepository(readings),
			service.CounterWithIngestService(ingest),
		), resolver, service.Limits{MaxFiles: 1, MaxFileSize: 1 << 20}),
		Calculations: NewMeterCalculationHandler(service.NewMeterCalculationService(
			service.WithMeterCalculationRepository(calculations),
			service.CalculationWithIngestService(ingest),
		), resolver, meterLimits),
		Health: NewHealthHandler(nil, store),
	})

	return &testServer{router: router, store: store}
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

type multipartFile struct {
	field, name, mime string
	data              []byte
}

func multipartRequest(t *testing.T, path string, fields map[string]string, files []multipartFile) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+f.field+`"; filename="`+f.name+`"`)
		h.Set("Content-Type", f.mime)
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Total   int             `json:"total"`
	Error   struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

var voucherFields = map[string]string{
	"nombre":   "Ana",
	"apellido": "Quispe",
	"dni":      "44556677",
	"hab":      "12",
	"monto":    "150.50",
}

func TestVoucherLifecycle(t *testing.T) {
	s := newTestServer(t)

	w := s.do(multipartRequest(t, "/api/vouchers", voucherFields, []multipartFile{
		{field: "files", name: "pago 1.pdf", mime: "application/pdf", data: []byte("%PDF-1 first")},
		{field: "files", name: "pago2.pdf", mime: "application/pdf", data: []byte("%PDF-1 second")},
	}))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created models.Voucher
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &created))
	assert.Equal(t, models.VoucherPending, created.Estado)
	require.Len(t, created.Files, 2)
	assert.Empty(t, created.Images)

	w = s.do(httptest.NewRequest(http.MethodGet, "/api/vouchers?dni=44556677", nil))
	require.Equal(t, http.StatusOK, w.Code)
	env := decode(t, w)
	assert.Equal(t, 1, env.Total)
	assert.NotContains(t, string(env.Data), "imagenes")

	w = s.do(httptest.NewRequest(http.MethodGet, created.Files[0].URL, nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "%PDF-1 first", w.Body.String())
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, assetCacheControl, w.Header().Get("Cache-Control"))
	etag := w.Header().Get("ETag")
	require.NotEmpty(t, etag)

	req := httptest.NewRequest(http.MethodGet, created.Files[0].URL, nil)
	req.Header.Set("If-None-Match", etag)
	w = s.do(req)
	assert.Equal(t, http.StatusNotModified, w.Code)
	assert.Empty(t, w.Body.String())

	w = s.do(httptest.NewRequest(http.MethodGet, "/api/vouchers/"+created.ID.String()+"/image/otro.pdf", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", decode(t, w).Error.Code)

	w = s.do(httptest.NewRequest(http.MethodGet, "/api/vouchers/1b4e28ba-2fa1-11d2-883f-0016d3cca427/image/a.pdf", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	req = httptest.NewRequest(http.MethodPatch, "/api/vouchers/"+created.ID.String()+"/estado", strings.NewReader(`{"estado":"aprobado"}`))
	req.Header.Set("Content-Type", "application/json")
	w = s.do(req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated models.Voucher
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &updated))
	assert.Equal(t, models.VoucherApproved, updated.Estado)
	assert.Len(t, updated.Files, 2)
}

func TestCreateVoucherValidation(t *testing.T) {
	s := newTestServer(t)

	w := s.do(multipartRequest(t, "/api/vouchers", map[string]string{"nombre": "Ana"}, nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	env := decode(t, w)
	assert.False(t, env.Success)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	assert.Contains(t, env.Error.Message, "DNI es requerido")

	files := make([]multipartFile, 4)
	for i := range files {
		files[i] = multipartFile{field: "files", name: "x.pdf", mime: "application/pdf", data: []byte("x")}
	}
	w = s.do(multipartRequest(t, "/api/vouchers", voucherFields, files))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	objects, err := s.store.List(context.Background(), "vouchers")
	require.NoError(t, err)
	assert.Empty(t, objects)
}

func TestCreateVoucherAcceptsDecimalComma(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		monto string
		code  int
		want  float64
	}{
		{"150,5", http.StatusCreated, 150.5},
		{"99.90", http.StatusCreated, 99.9},
		{"ciento", http.StatusBadRequest, 0},
	}
	for _, tt := range tests {
		t.Run(tt.monto, func(t *testing.T) {
			fields := map[string]string{}
			for k, v := range voucherFields {
				fields[k] = v
			}
			fields["monto"] = tt.monto

			w := s.do(multipartRequest(t, "/api/vouchers", fields, nil))
			require.Equal(t, tt.code, w.Code, w.Body.String())
			if tt.code != http.StatusCreated {
				assert.Contains(t, decode(t, w).Error.Message, "Monto debe ser un número")
				return
			}
			var created models.Voucher
			require.NoError(t, json.Unmarshal(decode(t, w).Data, &created))
			assert.InDelta(t, tt.want, created.Monto, 1e-9)
		})
	}
}

func TestSlotFieldsRejectSeveralFiles(t *testing.T) {
	s := newTestServer(t)

	fields := map[string]string{
		"nombre":           "Rosa",
		"apellido":         "Flores",
		"dni":              "3",
		"habitacion":       "9",
		"medicionAnterior": "200",
		"medicionActual":   "260",
		"consumoCalculado": "60",
		"montoTotal":       "48",
		"precioKWH":        "0.8",
	}
	w := s.do(multipartRequest(t, "/api/calculos-medidor", fields, []multipartFile{
		{field: "fotoAnterior", name: "a.jpg", mime: "image/jpeg", data: []byte("one")},
		{field: "fotoAnterior", name: "b.jpg", mime: "image/jpeg", data: []byte("two")},
	}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	env := decode(t, w)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	assert.Contains(t, env.Error.Message, "fotoAnterior admite un solo archivo")

	objects, err := s.store.List(context.Background(), "calculos-medidor")
	require.NoError(t, err)
	assert.Empty(t, objects)
}

func TestCounterReadingEndpoints(t *testing.T) {
	s := newTestServer(t)

	fields := map[string]string{
		"dni":             "1",
		"nombre":          "Luis",
		"apellidos":       "Mamani",
		"habitacion":      "7",
		"numeroMedidor":   "M-100",
		"lecturaAnterior": "100",
		"lecturaActual":   "142.5",
		"fechaLectura":    "2025-02-01",
	}
	w := s.do(multipartRequest(t, "/api/contadores", fields, []multipartFile{
		{field: "fotoMedidor", name: "medidor.png", mime: "image/png", data: []byte("not really a png")},
	}))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created models.CounterReading
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &created))
	assert.InDelta(t, 42.5, created.Consumo, 0.0001)
	assert.Equal(t, "/api/contadores/"+created.ID.String()+"/fotoMedidor", created.PhotoURL)

	w = s.do(httptest.NewRequest(http.MethodGet, created.PhotoURL, nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "not really a png", w.Body.String())
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))

	body := `{"dni":"2","nombre":"Eva","apellidos":"Rojas","habitacion":"8","numeroMedidor":"M-2","lecturaAnterior":0,"lecturaActual":5}`
	req := httptest.NewRequest(http.MethodPost, "/api/contadores", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w = s.do(req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var withoutPhoto models.CounterReading
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &withoutPhoto))
	assert.Empty(t, withoutPhoto.PhotoURL)

	w = s.do(httptest.NewRequest(http.MethodGet, "/api/contadores/"+withoutPhoto.ID.String()+"/fotoMedidor", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(httptest.NewRequest(http.MethodGet, "/api/contadores", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, decode(t, w).Total)
}

func TestMeterCalculationEndpoints(t *testing.T) {
	s := newTestServer(t)

	fields := map[string]string{
		"nombre":           "Rosa",
		"apellido":         "Flores",
		"dni":              "3",
		"habitacion":       "9",
		"medicionAnterior": "200",
		"medicionActual":   "260",
		"consumoCalculado": "60",
		"montoTotal":       "48",
		"precioKWH":        "0.8",
	}
	w := s.do(multipartRequest(t, "/api/calculos-medidor", fields, []multipartFile{
		{field: "fotoAnterior", name: "antes.jpg", mime: "image/jpeg", data: []byte("before")},
		{field: "fotoActual", name: "despues.jpg", mime: "image/jpeg", data: []byte("after")},
	}))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created models.MeterCalculation
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &created))
	require.NotEmpty(t, created.PhotoBeforeURL)
	require.NotEmpty(t, created.PhotoAfterURL)

	w = s.do(httptest.NewRequest(http.MethodGet, created.PhotoBeforeURL, nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "before", w.Body.String())

	w = s.do(httptest.NewRequest(http.MethodGet, created.PhotoAfterURL, nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "after", w.Body.String())

	w = s.do(httptest.NewRequest(http.MethodGet, "/api/calculos-medidor/"+created.ID.String(), nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "fotoAnteriorData")

	fields["medicionActual"] = "150"
	w = s.do(multipartRequest(t, "/api/calculos-medidor", fields, nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w).Error.Message, "mayor a la medición anterior")
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	w := s.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"storage":"ok"`)
}

func TestETagMatches(t *testing.T) {
	assert.True(t, etagMatches(`"abc"`, `"abc"`))
	assert.True(t, etagMatches(`W/"abc"`, `"abc"`))
	assert.True(t, etagMatches(`"x", "abc"`, `"abc"`))
	assert.True(t, etagMatches(`*`, `"abc"`))
	assert.False(t, etagMatches(``, `"abc"`))
	assert.False(t, etagMatches(`"abd"`, `"abc"`))
}
