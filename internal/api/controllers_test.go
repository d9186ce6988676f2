package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/motive-automation/motive-core/internal/controller/controllertest"
)

// ─── Controller CRUD Tests ─────────────────────────────────────────

func TestListControllers_Empty(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	req := authedRequest(t, router, http.MethodGet, "/api/v1/controllers", "")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if int(resp["count"].(float64)) != 0 {
		t.Errorf("count = %v, want 0", resp["count"])
	}
}

func TestLoadAndGetController(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	body := `{"name": "pid_left", "type": "` + controllertest.TypeName + `"}`
	req := authedRequest(t, router, http.MethodPost, "/api/v1/controllers", body)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("load status = %d, want %d; body: %s", w.Code, http.StatusCreated, w.Body.String())
	}

	var created controllerResponse
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("unmarshal created: %v", err)
	}

	if created.Name != "pid_left" {
		t.Errorf("name = %q, want pid_left", created.Name)
	}
	if created.State != "unconfigured" {
		t.Errorf("state = %q, want unconfigured", created.State)
	}

	// Get controller by name
	req = authedRequest(t, router, http.MethodGet, "/api/v1/controllers/pid_left", "")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d, want %d", w.Code, http.StatusOK)
	}

	var got controllerResponse
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal got: %v", err)
	}

	if got.Type != controllertest.TypeName {
		t.Errorf("type = %q, want %q", got.Type, controllertest.TypeName)
	}
}

func TestLoadController_WithConfigure(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	body := `{"name": "pid_left", "type": "` + controllertest.TypeName + `", "configure": true}`
	req := authedRequest(t, router, http.MethodPost, "/api/v1/controllers", body)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusCreated, w.Body.String())
	}

	var created controllerResponse
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if created.State != "inactive" {
		t.Errorf("state = %q, want inactive", created.State)
	}
}

func TestLoadController_Duplicate(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	body := `{"name": "pid_left", "type": "` + controllertest.TypeName + `"}`
	req := authedRequest(t, router, http.MethodPost, "/api/v1/controllers", body)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("first load status = %d, want %d", w.Code, http.StatusCreated)
	}

	req = authedRequest(t, router, http.MethodPost, "/api/v1/controllers", body)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Errorf("duplicate load status = %d, want %d", w.Code, http.StatusConflict)
	}
}

func TestLoadController_UnknownType(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	body := `{"name": "mystery", "type": "no/such_type"}`
	req := authedRequest(t, router, http.MethodPost, "/api/v1/controllers", body)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d; body: %s", w.Code, http.StatusBadRequest, w.Body.String())
	}
}

func TestLoadController_MissingName(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	body := `{"type": "` + controllertest.TypeName + `"}`
	req := authedRequest(t, router, http.MethodPost, "/api/v1/controllers", body)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestGetController_NotFound(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	req := authedRequest(t, router, http.MethodGet, "/api/v1/controllers/nonexistent", "")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestConfigureController(t *testing.T) {
	srv, m := testServer(t)
	router := srv.buildRouter()

	if err := m.LoadController(context.Background(), "pid_left", controllertest.TypeName, nil); err != nil {
		t.Fatalf("LoadController: %v", err)
	}

	req := authedRequest(t, router, http.MethodPost, "/api/v1/controllers/pid_left/configure", "")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var resp controllerResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if resp.State != "inactive" {
		t.Errorf("state = %q, want inactive", resp.State)
	}
}

func TestFinalizeController(t *testing.T) {
	srv, m := testServer(t)
	router := srv.buildRouter()

	if err := m.LoadController(context.Background(), "pid_left", controllertest.TypeName, nil); err != nil {
		t.Fatalf("LoadController: %v", err)
	}

	req := authedRequest(t, router, http.MethodPost, "/api/v1/controllers/pid_left/finalize", "")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("finalize status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp controllerResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.State != "finalized" {
		t.Errorf("state = %q, want finalized", resp.State)
	}

	// Configuring a finalized controller conflicts
	req = authedRequest(t, router, http.MethodPost, "/api/v1/controllers/pid_left/configure", "")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Errorf("configure after finalize status = %d, want %d", w.Code, http.StatusConflict)
	}
}

func TestUnloadController(t *testing.T) {
	srv, m := testServer(t)
	router := srv.buildRouter()

	if err := m.LoadController(context.Background(), "pid_left", controllertest.TypeName, nil); err != nil {
		t.Fatalf("LoadController: %v", err)
	}

	req := authedRequest(t, router, http.MethodDelete, "/api/v1/controllers/pid_left", "")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("unload status = %d, want %d", w.Code, http.StatusNoContent)
	}

	// Confirm gone
	req = authedRequest(t, router, http.MethodGet, "/api/v1/controllers/pid_left", "")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("get after unload status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

// ─── Switch Tests ──────────────────────────────────────────────────

func TestSwitch_ActivatesController(t *testing.T) {
	srv, m := testServer(t)
	router := srv.buildRouter()

	ctx := context.Background()
	if err := m.LoadController(ctx, "pid_left", controllertest.TypeName, nil); err != nil {
		t.Fatalf("LoadController: %v", err)
	}
	if err := m.ConfigureController(ctx, "pid_left"); err != nil {
		t.Fatalf("ConfigureController: %v", err)
	}
	if err := m.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(m.Stop)

	body := `{"start": ["pid_left"], "strictness": "strict", "timeout_ms": 2000}`
	req := authedRequest(t, router, http.MethodPost, "/api/v1/switch", body)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("switch status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}

	st, err := m.State("pid_left")
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	if st.String() != "active" {
		t.Errorf("state = %s, want active", st)
	}
}

func TestSwitch_StrictValidationFailure(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	body := `{"start": ["nonexistent"], "strictness": "strict"}`
	req := authedRequest(t, router, http.MethodPost, "/api/v1/switch", body)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d; body: %s", w.Code, http.StatusUnprocessableEntity, w.Body.String())
	}
}

func TestSwitch_UnknownStrictness(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	body := `{"start": ["pid_left"], "strictness": "casual"}`
	req := authedRequest(t, router, http.MethodPost, "/api/v1/switch", body)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestSwitch_BestEffortAllDropped(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	// Every entry is invalid under best-effort, so nothing reaches the
	// loop and the request succeeds immediately.
	body := `{"start": ["nonexistent"], "strictness": "best_effort"}`
	req := authedRequest(t, router, http.MethodPost, "/api/v1/switch", body)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}
}

func TestSwitch_TimeoutWhenLoopStopped(t *testing.T) {
	srv, m := testServer(t)
	router := srv.buildRouter()

	ctx := context.Background()
	if err := m.LoadController(ctx, "pid_left", controllertest.TypeName, nil); err != nil {
		t.Fatalf("LoadController: %v", err)
	}
	if err := m.ConfigureController(ctx, "pid_left"); err != nil {
		t.Fatalf("ConfigureController: %v", err)
	}

	// Loop not running: the plan is accepted but never applied.
	body := `{"start": ["pid_left"], "strictness": "strict", "timeout_ms": 50}`
	req := authedRequest(t, router, http.MethodPost, "/api/v1/switch", body)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusGatewayTimeout {
		t.Errorf("status = %d, want %d; body: %s", w.Code, http.StatusGatewayTimeout, w.Body.String())
	}
}

func TestUnloadController_ActiveConflicts(t *testing.T) {
	srv, m := testServer(t)
	router := srv.buildRouter()

	ctx := context.Background()
	if err := m.LoadController(ctx, "pid_left", controllertest.TypeName, nil); err != nil {
		t.Fatalf("LoadController: %v", err)
	}
	if err := m.ConfigureController(ctx, "pid_left"); err != nil {
		t.Fatalf("ConfigureController: %v", err)
	}
	if err := m.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(m.Stop)

	body := `{"start": ["pid_left"], "strictness": "strict", "timeout_ms": 2000}`
	req := authedRequest(t, router, http.MethodPost, "/api/v1/switch", body)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("switch status = %d, want %d", w.Code, http.StatusOK)
	}

	req = authedRequest(t, router, http.MethodDelete, "/api/v1/controllers/pid_left", "")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Errorf("unload active status = %d, want %d", w.Code, http.StatusConflict)
	}
}
