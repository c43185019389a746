package http

import (
	"io"
	"net/http"
	"strings"

	"github.com/mind-engage/mindengage-quiz/internal/rbac"
	"github.com/mind-engage/mindengage-quiz/internal/users"
)

// GET /users?role=student
func ListUsersHandler(store *users.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		role := rbac.Role(strings.ToLower(strings.TrimSpace(r.URL.Query().Get("role"))))
		if role != "" && !role.Valid() {
			jsonError(w, http.StatusBadRequest, "invalid role")
			return
		}
		list, err := store.List(r.Context(), role)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// POST /users/import
// Accepts multipart file= (CSV or JSON) or a raw JSON array / CSV body.
func ImportUsersHandler(store *users.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var src io.Reader = r.Body
		if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
			f, _, err := r.FormFile("file")
			if err != nil {
				jsonError(w, http.StatusBadRequest, "file required")
				return
			}
			defer f.Close()
			src = f
		}
		rows, err := users.ParseImport(src)
		if err != nil {
			jsonError(w, http.StatusBadRequest, err.Error())
			return
		}
		ins, upd, err := store.Import(r.Context(), rows)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"inserted": ins, "updated": upd})
	}
}

// PUT /users/{userID}/role  { "role": "admin" }
func UpdateUserRoleHandler(store *users.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(w, r, "userID")
		if !ok {
			return
		}
		var req struct {
			Role string `json:"role"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		role := rbac.Role(strings.ToLower(strings.TrimSpace(req.Role)))
		if err := store.SetRole(r.Context(), id, role); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
