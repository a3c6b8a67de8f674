package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/dukerupert/coursecal/internal/model"
)

// DepartmentLister is the part of the catalog the department proxy reads.
type DepartmentLister interface {
	Departments(ctx context.Context) ([]model.Department, error)
}

type CatalogHandler struct {
	catalog DepartmentLister
	logger  *slog.Logger
}

func NewCatalogHandler(c DepartmentLister, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{catalog: c, logger: logger}
}

type departmentRef struct {
	DeptID string `json:"dept_id"`
}

// Departments proxies the catalog's department list.
func (h *CatalogHandler) Departments(w http.ResponseWriter, r *http.Request) {
	depts, err := h.catalog.Departments(r.Context())
	if err != nil {
		h.logger.Error("failed to fetch departments", "error", err)
		writeError(w, http.StatusBadGateway, "failed to fetch departments")
		return
	}

	refs := make([]departmentRef, 0, len(depts))
	for _, d := range depts {
		refs = append(refs, departmentRef{DeptID: d.ID})
	}
	writeJSON(w, http.StatusOK, map[string]any{"departments": refs})
}
