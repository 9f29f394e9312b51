package http

import "net/http"

func writeRouteNotFound(w http.ResponseWriter, _ *http.Request) {
	WriteError(w, KindNotFound, "Route not found")
}

func writeMethodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	_ = WriteJSON(w, http.StatusMethodNotAllowed, ErrorResponse{
		Error: "Method not allowed",
		Code:  "method_not_allowed",
	})
}
