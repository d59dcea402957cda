package handler

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"math"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/sessions"
	"github.com/xuri/excelize/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/sales-insights/internal/domain/analysis/service"
	"github.com/FACorreiaa/sales-insights/pkg/observability"
	"github.com/FACorreiaa/sales-insights/pkg/scratch"
	"github.com/FACorreiaa/sales-insights/pkg/storage"
)

const salesCSV = "Mes;Categoría;Cantidad Vendida;Ingreso Total;ISV;Utilidad Bruta\n" +
	"Enero;Camisas;10;100;15;20\n" +
	"Febrero;Zapatos;20;200;30;70\n"

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Code        string              `json:"code"`
		Message     string              `json:"message"`
		Details     string              `json:"details"`
		Suggestions map[string][]string `json:"suggestions"`
	} `json:"error"`
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	return newTestServerAt(t, t.TempDir())
}

// newTestServerAt serves uploads stored under dir, so two servers on the same
// dir behave like one server across a restart.
func newTestServerAt(t *testing.T, dir string) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	uploads, err := storage.NewLocalStorage(dir)
	require.NoError(t, err)

	svc := service.NewAnalysisService(observability.NewMetrics(), logger).WithSample(48, 42)
	h := NewAnalysisHandler(
		svc,
		uploads,
		scratch.New(time.Hour),
		sessions.NewCookieStore([]byte("0123456789abcdef0123456789abcdef")),
		Defaults{K: 2, Components: 2},
		10<<20,
		logger,
	)

	mux := http.NewServeMux()
	h.Register(mux)
	srv := httptest.NewServer(Chain(Recovery(logger), RequestID())(mux))
	t.Cleanup(srv.Close)
	return srv
}

func newClient(t *testing.T) *http.Client {
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar}
}

func upload(t *testing.T, client *http.Client, base, name, content string) (*http.Response, envelope) {
	t.Helper()
	return uploadWith(t, client, base, name, content, nil)
}

func uploadWith(t *testing.T, client *http.Client, base, name, content string, fields map[string]string) (*http.Response, envelope) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	fw, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, _ = fw.Write([]byte(content))
	require.NoError(t, mw.Close())

	resp, err := client.Post(base+"/api/uploads", mw.FormDataContentType(), &body)
	require.NoError(t, err)
	return resp, decode(t, resp)
}

func decode(t *testing.T, resp *http.Response) envelope {
	t.Helper()
	defer resp.Body.Close()
	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return env
}

func uploadID(t *testing.T, env envelope) string {
	var data struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	return data.ID
}

func TestUploadDashboardRoundTrip(t *testing.T) {
	srv := newTestServer(t)
	client := newClient(t)

	resp, env := upload(t, client, srv.URL, "ventas.csv", salesCSV)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.True(t, env.Success)
	id := uploadID(t, env)

	resp, err := client.Get(srv.URL + "/api/uploads/" + id + "/dashboard")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	env = decode(t, resp)

	var dash struct {
		Metrics map[string]any `json:"metrics"`
		Series  struct {
			Ingresos []*float64 `json:"ingresos"`
		} `json:"series"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &dash))
	assert.Len(t, dash.Metrics, 6)
	assert.Equal(t, 300.0, dash.Metrics["total_ingresos"])
	require.Len(t, dash.Series.Ingresos, 12)
	assert.Nil(t, dash.Series.Ingresos[5], "absent months are null")
}

func TestDashboard_MissingColumn(t *testing.T) {
	srv := newTestServer(t)
	client := newClient(t)

	_, env := upload(t, client, srv.URL, "ventas.csv", "Mes,Categoria,Cantidad Vendida,Ingreso Total,ISV,Utilidad Bruta\nEnero,A,1,2,3,4\n")
	id := uploadID(t, env)

	resp, err := client.Get(srv.URL + "/api/uploads/" + id + "/dashboard")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	env = decode(t, resp)
	assert.False(t, env.Success)
	assert.Equal(t, "validation", env.Error.Code)
	assert.Equal(t, "Faltan columnas requeridas: Categoría", env.Error.Message)
	assert.Equal(t, []string{"Categoria"}, env.Error.Suggestions["Categoría"])
}

func TestDashboard_Errors(t *testing.T) {
	srv := newTestServer(t)
	client := newClient(t)

	tests := []struct {
		name   string
		path   string
		status int
	}{
		{"bad id", "/api/uploads/not-a-uuid/dashboard", http.StatusBadRequest},
		{"unknown upload", "/api/uploads/0b7e3f1c-0000-4000-8000-000000000000/dashboard", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := client.Get(srv.URL + tt.path)
			require.NoError(t, err)
			resp.Body.Close()
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}

	t.Run("other session cannot read upload", func(t *testing.T) {
		_, env := upload(t, client, srv.URL, "ventas.csv", salesCSV)
		id := uploadID(t, env)

		resp, err := newClient(t).Get(srv.URL + "/api/uploads/" + id + "/dashboard")
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestKMeans_NotEnoughRows(t *testing.T) {
	srv := newTestServer(t)
	client := newClient(t)
	_, env := upload(t, client, srv.URL, "ventas.csv", salesCSV)
	id := uploadID(t, env)

	resp, err := client.Get(srv.URL + "/api/uploads/" + id + "/kmeans?k=3&cols=Ingreso%20Total,ISV")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	env = decode(t, resp)
	assert.Equal(t, "processing", env.Error.Code)
	assert.Contains(t, env.Error.Message, "No hay suficientes datos (2) para 3 clusters")

	resp, err = client.Get(srv.URL + "/api/uploads/" + id + "/kmeans?k=abc")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestExportAndBundle(t *testing.T) {
	srv := newTestServer(t)
	client := newClient(t)
	_, env := upload(t, client, srv.URL, "ventas.csv", salesCSV)
	id := uploadID(t, env)

	resp, err := client.Get(srv.URL + "/api/uploads/" + id + "/export/categories.csv")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.HasPrefix(string(body), "Categoría,Cantidad Vendida"))

	resp, err = client.Get(srv.URL + "/api/uploads/" + id + "/export/report.yaml")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), "L300.00")

	resp, err = client.Post(srv.URL+"/api/scratch/notes.txt", "text/plain", strings.NewReader("hola"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, err = client.Get(srv.URL + "/api/scratch/bundle.zip")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	zr, err := zip.NewReader(bytes.NewReader(body), int64(len(body)))
	require.NoError(t, err)
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"categories.csv", "notes.txt", "report.yaml"}, names)

	resp, err = client.Get(srv.URL + "/api/uploads/" + id + "/export/unknown.bin")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestBundle_Empty(t *testing.T) {
	srv := newTestServer(t)
	resp, err := newClient(t).Get(srv.URL + "/api/scratch/bundle.zip")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetScratch(t *testing.T) {
	srv := newTestServer(t)
	client := newClient(t)

	resp, err := client.Post(srv.URL+"/api/scratch/notas.txt", "text/plain", strings.NewReader("hola"))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, err = client.Get(srv.URL + "/api/scratch/notas.txt")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "hola", string(body))
	assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "text/plain"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "notas.txt")

	resp, err = client.Get(srv.URL + "/api/scratch/otro.txt")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = newClient(t).Get(srv.URL + "/api/scratch/notas.txt")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "artifacts are per session")
}

func TestPutScratch_InvalidName(t *testing.T) {
	srv := newTestServer(t)
	resp, err := newClient(t).Post(srv.URL+"/api/scratch/.hidden", "text/plain", strings.NewReader("x"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUpload_Empty(t *testing.T) {
	srv := newTestServer(t)
	resp, env := upload(t, newClient(t), srv.URL, "empty.csv", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "file_io", env.Error.Code)
}

func TestParseDelimiter(t *testing.T) {
	tests := []struct {
		in      string
		want    rune
		wantErr bool
	}{
		{"", 0, false},
		{";", ';', false},
		{"tab", '\t', false},
		{"|", '|', false},
		{"::", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseDelimiter(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(1, 2)
	assert.True(t, rl.Allow("1.2.3.4"))
	assert.True(t, rl.Allow("1.2.3.4"))
	assert.False(t, rl.Allow("1.2.3.4"))
	assert.True(t, rl.Allow("5.6.7.8"))

	assert.Equal(t, 2, rl.Purge(time.Now().Add(2*time.Minute)))
}

func TestRateLimitMiddleware(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := RateLimit(NewRateLimiter(1, 1), logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	first := httptest.NewRecorder()
	h.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/", nil))
	second := httptest.NewRecorder()
	h.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusNoContent, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}

func TestCORS(t *testing.T) {
	h := CORS([]string{"http://app.test"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "http://app.test")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "http://app.test", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "http://evil.test")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestUpload_ReportsHeaderFingerprint(t *testing.T) {
	srv := newTestServer(t)
	client := newClient(t)

	content := "Reporte de ventas 2024\n\n" + salesCSV
	resp, env := upload(t, client, srv.URL, "ventas.csv", content)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var data struct {
		Headers     []string   `json:"headers"`
		Fingerprint string     `json:"fingerprint"`
		Preview     [][]string `json:"preview"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, []string{"Mes", "Categoría", "Cantidad Vendida", "Ingreso Total", "ISV", "Utilidad Bruta"}, data.Headers)
	assert.Len(t, data.Fingerprint, 64)
	require.Len(t, data.Preview, 2)
	assert.Equal(t, "Enero", data.Preview[0][0])

	_, again := upload(t, client, srv.URL, "otro.csv", salesCSV)
	var other struct {
		Fingerprint string `json:"fingerprint"`
	}
	require.NoError(t, json.Unmarshal(again.Data, &other))
	assert.Equal(t, data.Fingerprint, other.Fingerprint, "same header, same fingerprint")

	resp, err := client.Get(srv.URL + "/api/uploads")
	require.NoError(t, err)
	env = decode(t, resp)
	var files []storage.FileInfo
	require.NoError(t, json.Unmarshal(env.Data, &files))
	require.NotEmpty(t, files)
	assert.Equal(t, data.Fingerprint, files[0].Attributes["fingerprint"])
}

func TestUpload_HintsSurviveRestart(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetName("Sheet1", "Notas"))
	require.NoError(t, f.SetSheetRow("Notas", "A1", &[]any{"Nota", "Fecha"}))
	require.NoError(t, f.SetSheetRow("Notas", "A2", &[]any{"revisar", "2024-01-31"}))
	_, err := f.NewSheet("Ventas")
	require.NoError(t, err)
	for i, line := range strings.Split(strings.TrimSpace(salesCSV), "\n") {
		row := make([]any, 0, 6)
		for _, v := range strings.Split(line, ";") {
			row = append(row, v)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Ventas", cell, &row))
	}
	var book bytes.Buffer
	require.NoError(t, f.Write(&book))

	dir := t.TempDir()
	client := newClient(t)

	first := newTestServerAt(t, dir)
	resp, env := uploadWith(t, client, first.URL, "ventas.xlsx", book.String(), map[string]string{"sheet": "Ventas"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	id := uploadID(t, env)
	first.Close()

	second := newTestServerAt(t, dir)
	resp, err = client.Get(second.URL + "/api/uploads/" + id + "/dashboard")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode, "stored sheet hint is applied")
	env = decode(t, resp)
	var dash struct {
		Metrics map[string]any `json:"metrics"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &dash))
	assert.Equal(t, 300.0, dash.Metrics["total_ingresos"])

	resp, err = client.Get(second.URL + "/api/uploads/" + id + "/dashboard?sheet=Notas")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode, "query hint overrides the stored one")
	resp.Body.Close()
}

func TestWriteSuccess_EncodeFailure(t *testing.T) {
	rec := httptest.NewRecorder()
	writeSuccess(rec, http.StatusOK, map[string]float64{"x": math.NaN()})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.False(t, env.Success)
	assert.Equal(t, "internal", env.Error.Code)
}
