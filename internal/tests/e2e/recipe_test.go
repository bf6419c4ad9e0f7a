//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/recipeapp/apiserver/config"
	"github.com/recipeapp/apiserver/internal/db"
	"github.com/recipeapp/apiserver/internal/server"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	serverPort   = 18080
	postgresPort = "5432/tcp"
)

var baseURL = fmt.Sprintf("http://localhost:%d", serverPort)

func TestMain(m *testing.M) {
	os.Exit(run(m))
}

func run(m *testing.M) int {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	container, err := startPostgres(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start postgres: %v\n", err)
		return 1
	}
	defer func() {
		_ = container.Terminate(context.Background())
	}()

	cfg, err := testConfig(ctx, container)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build config: %v\n", err)
		return 1
	}
	defer os.RemoveAll(cfg.Storage.MediaRoot)

	if err := runMigrations(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "failed to run migrations: %v\n", err)
		return 1
	}

	srv, err := server.New(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start server: %v\n", err)
		return 1
	}
	go func() {
		if err := srv.Start(); err != nil {
			fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := waitForHealth(ctx, baseURL+"/readyz"); err != nil {
		fmt.Fprintf(os.Stderr, "server not healthy: %v\n", err)
		return 1
	}

	return m.Run()
}

func startPostgres(ctx context.Context) (testcontainers.Container, error) {
	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{postgresPort},
		Env: map[string]string{
			"POSTGRES_USER":     "recipe",
			"POSTGRES_PASSWORD": "recipe",
			"POSTGRES_DB":       "recipes",
		},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort(postgresPort),
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
		).WithStartupTimeout(90 * time.Second),
	}
	return testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
}

func testConfig(ctx context.Context, container testcontainers.Container) (config.Config, error) {
	host, err := container.Host(ctx)
	if err != nil {
		return config.Config{}, fmt.Errorf("get container host: %w", err)
	}
	port, err := container.MappedPort(ctx, postgresPort)
	if err != nil {
		return config.Config{}, fmt.Errorf("get mapped port: %w", err)
	}
	mediaRoot, err := os.MkdirTemp("", "recipeapi-media-*")
	if err != nil {
		return config.Config{}, err
	}

	return config.Config{
		ServerPort: serverPort,
		LogLevel:   "disabled",
		Auth:       config.AuthConfig{JWTSecret: "e2e-secret", TokenTTL: time.Hour},
		Database: config.DatabaseConfig{
			Host:     host,
			Port:     port.Int(),
			User:     "recipe",
			Password: "recipe",
			DBName:   "recipes",
		},
		Storage: config.StorageConfig{
			Backend:   "local",
			MediaRoot: mediaRoot,
			MediaURL:  "/media/",
		},
		HTTP: config.HTTPConfig{
			CORSAllowedOrigins: []string{"*"},
			RequestTimeout:     30 * time.Second,
		},
	}, nil
}

func runMigrations(cfg config.Config) error {
	migrator, err := db.NewMigrator(cfg.DatabaseURL())
	if err != nil {
		return err
	}
	defer migrator.Close()
	return migrator.Up()
}

func waitForHealth(ctx context.Context, url string) error {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for {
		resp, err := http.Get(url)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

type recipeResponse struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	TimeMinutes int    `json:"time_minutes"`
	Price       string `json:"price"`
	Link        string `json:"link"`
	Tags        []int  `json:"tags"`
	Ingredients []int  `json:"ingredients"`
}

type attributeResponse struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

func TestRecipeLifecycle(t *testing.T) {
	email := fmt.Sprintf("chef_%d@example.com", time.Now().UnixNano())
	password := "testpass123"

	status, _ := call(t, http.MethodPost, "/user/create/", "", map[string]string{
		"email":    email,
		"password": password,
		"name":     "Chef",
	}, nil)
	if status != http.StatusCreated {
		t.Fatalf("create user: unexpected status %d", status)
	}

	var tokenResp struct {
		Token string `json:"token"`
	}
	status, _ = call(t, http.MethodPost, "/user/token/", "", map[string]string{
		"email":    email,
		"password": password,
	}, &tokenResp)
	if status != http.StatusOK || tokenResp.Token == "" {
		t.Fatalf("token: unexpected status %d", status)
	}
	token := tokenResp.Token

	var vegan, tofu attributeResponse
	if status, _ := call(t, http.MethodPost, "/recipe/tags/", token, map[string]string{"name": "Vegan"}, &vegan); status != http.StatusCreated {
		t.Fatalf("create tag: unexpected status %d", status)
	}
	if status, _ := call(t, http.MethodPost, "/recipe/ingredients/", token, map[string]string{"name": "Tofu"}, &tofu); status != http.StatusCreated {
		t.Fatalf("create ingredient: unexpected status %d", status)
	}

	var created recipeResponse
	status, body := call(t, http.MethodPost, "/recipe/recipes/", token, map[string]any{
		"title":        "Mapo tofu",
		"time_minutes": 30,
		"price":        "12.50",
		"tags":         []int{vegan.ID},
		"ingredients":  []int{tofu.ID},
	}, &created)
	if status != http.StatusCreated {
		t.Fatalf("create recipe: unexpected status %d: %s", status, body)
	}
	if created.Price != "12.50" || len(created.Tags) != 1 || created.Tags[0] != vegan.ID {
		t.Fatalf("unexpected recipe: %+v", created)
	}

	var plain recipeResponse
	if status, _ := call(t, http.MethodPost, "/recipe/recipes/", token, map[string]any{
		"title":        "Plain rice",
		"time_minutes": 15,
		"price":        1,
	}, &plain); status != http.StatusCreated {
		t.Fatalf("create second recipe: unexpected status %d", status)
	}

	var filtered []recipeResponse
	status, _ = call(t, http.MethodGet, "/recipe/recipes/?tags="+strconv.Itoa(vegan.ID), token, nil, &filtered)
	if status != http.StatusOK || len(filtered) != 1 || filtered[0].ID != created.ID {
		t.Fatalf("filter by tag: status %d, got %+v", status, filtered)
	}

	var assigned []attributeResponse
	status, _ = call(t, http.MethodGet, "/recipe/tags/?assigned_only=1", token, nil, &assigned)
	if status != http.StatusOK || len(assigned) != 1 {
		t.Fatalf("assigned tags: status %d, got %+v", status, assigned)
	}

	var replaced recipeResponse
	status, _ = call(t, http.MethodPut, fmt.Sprintf("/recipe/recipes/%d/", created.ID), token, map[string]any{
		"title":        "Mapo tofu (mild)",
		"time_minutes": 25,
		"price":        "11.00",
	}, &replaced)
	if status != http.StatusOK || len(replaced.Tags) != 0 || len(replaced.Ingredients) != 0 {
		t.Fatalf("replace recipe: status %d, got %+v", status, replaced)
	}

	imageURL := uploadImage(t, token, created.ID)
	resp, err := http.Get(baseURL + imageURL)
	if err != nil {
		t.Fatalf("fetch image: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("fetch image: unexpected status %d", resp.StatusCode)
	}

	if status, _ := call(t, http.MethodDelete, fmt.Sprintf("/recipe/recipes/%d/", created.ID), token, nil, nil); status != http.StatusNoContent {
		t.Fatalf("delete recipe: unexpected status %d", status)
	}
	if status, _ := call(t, http.MethodGet, fmt.Sprintf("/recipe/recipes/%d/", created.ID), token, nil, nil); status != http.StatusNotFound {
		t.Fatalf("deleted recipe: unexpected status %d", status)
	}
}

func TestRequiresAuthentication(t *testing.T) {
	for _, path := range []string{"/user/me/", "/recipe/tags/", "/recipe/ingredients/", "/recipe/recipes/"} {
		status, _ := call(t, http.MethodGet, path, "", nil, nil)
		if status != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", path, status)
		}
	}
}

func call(t *testing.T, method, path, token string, body, dst any) (int, string) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encode body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, baseURL+path, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if dst != nil && len(data) > 0 && resp.StatusCode < 300 {
		if err := json.Unmarshal(data, dst); err != nil {
			t.Fatalf("decode body %q: %v", data, err)
		}
	}
	return resp.StatusCode, string(data)
}

func uploadImage(t *testing.T, token string, recipeID int) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	img.Set(4, 4, color.RGBA{R: 255, A: 255})
	var data bytes.Buffer
	if err := png.Encode(&data, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("image", "dish.png")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(data.Bytes()); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}

	req, err := http.NewRequest(http.MethodPost, fmt.Sprintf("%s/recipe/recipes/%d/upload-image/", baseURL, recipeID), &body)
	if err != nil {
		t.Fatalf("build upload request: %v", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("upload image: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		t.Fatalf("upload image: unexpected status %d: %s", resp.StatusCode, raw)
	}

	var out struct {
		ID    int    `json:"id"`
		Image string `json:"image"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode upload response: %v", err)
	}
	if !strings.HasPrefix(out.Image, "/media/uploads/recipe/") {
		t.Fatalf("unexpected image url %q", out.Image)
	}
	return out.Image
}
