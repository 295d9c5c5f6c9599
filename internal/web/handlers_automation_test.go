//go:build !no_automation

package web

import (
	"net/http"
	"testing"
	"time"

	"zwave-go-home/internal/automation"
)

type automationResponse struct {
	ID      string                `json:"id"`
	Meta    automation.ScriptMeta `json:"meta"`
	LuaCode string                `json:"lua_code"`
	Running bool                  `json:"running"`
}

func TestAPIAutomationLifecycle(t *testing.T) {
	env := setupTestServer(t, "")

	w := env.do(t, "POST", "/api/automations", `{"name": "Hall Light", "enabled": true,
		"lua_code": "zwave.on(\"value_changed\", {node=3}, function(e) zwave.switch_on(2) end)"}`)
	expectStatus(t, w, http.StatusCreated)
	var created automationResponse
	decode(t, w, &created)
	if created.ID != "hall_light" {
		t.Errorf("id = %q, want hall_light", created.ID)
	}
	if !created.Running {
		t.Error("enabled script should be running")
	}

	w = env.do(t, "GET", "/api/automations", "")
	expectStatus(t, w, http.StatusOK)
	var list []automationResponse
	decode(t, w, &list)
	if len(list) != 1 || !list[0].Running {
		t.Fatalf("list = %+v", list)
	}

	w = env.do(t, "POST", "/api/automations/hall_light/toggle", "")
	expectStatus(t, w, http.StatusOK)
	var toggled automationResponse
	decode(t, w, &toggled)
	if toggled.Meta.Enabled || toggled.Running {
		t.Errorf("after toggle: enabled=%v running=%v", toggled.Meta.Enabled, toggled.Running)
	}

	w = env.do(t, "PUT", "/api/automations/hall_light", `{"name": "Hall Light", "enabled": true, "lua_code": "zwave.log(\"v2\")"}`)
	expectStatus(t, w, http.StatusOK)
	var updated automationResponse
	decode(t, w, &updated)
	if !updated.Running || updated.LuaCode != "zwave.log(\"v2\")\n" {
		t.Errorf("after update: %+v", updated)
	}

	w = env.do(t, "DELETE", "/api/automations/hall_light", "")
	expectStatus(t, w, http.StatusOK)
	if env.engine.IsRunning("hall_light") {
		t.Error("deleted script still running")
	}

	w = env.do(t, "GET", "/api/automations/hall_light", "")
	expectStatus(t, w, http.StatusNotFound)
	w = env.do(t, "DELETE", "/api/automations/hall_light", "")
	expectStatus(t, w, http.StatusNotFound)
}

func TestAPIAutomationValidation(t *testing.T) {
	env := setupTestServer(t, "")

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"missing name", "POST", "/api/automations", `{"lua_code": "zwave.log(\"x\")"}`, http.StatusBadRequest},
		{"syntax error", "POST", "/api/automations", `{"name": "Broken", "lua_code": "zwave.log("}`, http.StatusBadRequest},
		{"bad body", "POST", "/api/automations", `{`, http.StatusBadRequest},
		{"update missing", "PUT", "/api/automations/ghost", `{"name": "Ghost"}`, http.StatusNotFound},
		{"toggle missing", "POST", "/api/automations/ghost/toggle", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, tt.method, tt.path, tt.body)
			expectStatus(t, w, tt.want)
		})
	}
}

func TestAPIRunAutomationInline(t *testing.T) {
	env := setupTestServer(t, "")

	w := env.do(t, "POST", "/api/automations/_inline/run", `{"lua_code": "zwave.switch_on(\"Hall Switch\") zwave.log(\"done\")"}`)
	expectStatus(t, w, http.StatusOK)

	var res automation.RunResult
	decode(t, w, &res)
	if !res.OK {
		t.Fatalf("run failed: %s", res.Error)
	}
	if len(res.Logs) != 1 || res.Logs[0] != "done" {
		t.Errorf("logs = %v", res.Logs)
	}
	if on, _ := env.node(t, 2).Switch().IsOn(); !on {
		t.Error("switch not on after inline run")
	}
}

func TestAPIScriptReactsToAPIChange(t *testing.T) {
	env := setupTestServer(t, "")

	w := env.do(t, "POST", "/api/automations", `{"name": "Mirror", "enabled": true,
		"lua_code": "zwave.on(\"value_changed\", {node=2, label=\"Switch\"}, function(e) zwave.set_field(2, \"location\", e.value and \"On\" or \"Off\") end)"}`)
	expectStatus(t, w, http.StatusCreated)

	w = env.do(t, "PUT", "/api/nodes/2/values/1001", `{"data": true}`)
	expectStatus(t, w, http.StatusOK)

	hall := env.node(t, 2)
	deadline := time.Now().Add(2 * time.Second)
	for hall.Location() != "On" {
		if time.Now().After(deadline) {
			t.Fatalf("location = %q, want On", hall.Location())
		}
		time.Sleep(5 * time.Millisecond)
	}
}
