package config

import (
	"encoding/json"
	"net/http"

	"valuation_research/pkg/core/agent"
	coreConfig "valuation_research/pkg/core/config"
)

type Response struct {
	ActiveProvider string             `json:"active_provider"`
	Available      []string           `json:"available"`
	Settings       coreConfig.Summary `json:"settings"`
	Warnings       []string           `json:"warnings,omitempty"`
}

type SwitchRequest struct {
	Provider string `json:"provider"`
}

type SwitchResponse struct {
	Success        bool   `json:"success"`
	ActiveProvider string `json:"active_provider"`
}

// Handler holds dependencies for config endpoints
type Handler struct {
	AgentMgr *agent.Manager
	Config   coreConfig.Config
}

// NewHandler creates a new config handler
func NewHandler(agentMgr *agent.Manager, cfg coreConfig.Config) *Handler {
	return &Handler{
		AgentMgr: agentMgr,
		Config:   cfg,
	}
}

// HandleConfig reports the active provider and a secret-free settings summary.
func (h *Handler) HandleConfig(w http.ResponseWriter, r *http.Request) {
	// Add CORS headers for local dev
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	w.Header().Set("Content-Type", "application/json")

	resp := Response{
		ActiveProvider: h.AgentMgr.GetActiveProvider(),
		Available:      h.AgentMgr.Available(),
		Settings:       h.Config.Summary(),
		Warnings:       h.Config.Validate(),
	}
	json.NewEncoder(w).Encode(resp)
}

func (h *Handler) HandleSwitch(w http.ResponseWriter, r *http.Request) {
	// Add CORS headers
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req SwitchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.AgentMgr.SetGlobalProvider(req.Provider); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(SwitchResponse{Success: true, ActiveProvider: req.Provider})
}
