package handler

import (
	"encoding/json"
	"net/http"
)

// HealthHandler はGET /healthを処理する。プロセスが応答可能であれば200を返す。
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
