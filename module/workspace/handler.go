package workspace

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	mid "WProject/middleware"
	midsec "WProject/middleware/security"
	"WProject/service/store"
	"WProject/tools/errs"
	sec "WProject/tools/security"
)

// Handler serves the workspace + collaborator REST surface. The realtime path
// never consults these records; they authorize the management API only.
type Handler struct {
	workspaces    *store.WorkspaceStore
	collaborators *store.CollaboratorStore
}

func NewHandler(w *store.WorkspaceStore, c *store.CollaboratorStore) *Handler {
	return &Handler{workspaces: w, collaborators: c}
}

func (h *Handler) RegisterRoutes(r gin.IRoutes, auth sec.Options) {
	opt := mid.RouteOpt{IsAuth: true, Auth: auth}
	mid.POST(r, "/workspaces", h.create, opt)
	mid.GET(r, "/workspaces/:id", h.get, opt)
	mid.GET(r, "/projects/:projectId/workspaces", h.list, opt)
	mid.PATCH(r, "/workspaces/:id", h.update, opt)
	mid.DELETE(r, "/workspaces/:id", h.remove, opt)

	mid.POST(r, "/workspaces/:id/collaborators", h.invite, opt)
	mid.GET(r, "/workspaces/:id/collaborators", h.listCollaborators, opt)
	mid.PATCH(r, "/collaborators/:id", h.updateRole, opt)
	mid.DELETE(r, "/collaborators/:id", h.removeCollaborator, opt)
}

type createWorkspaceReq struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	ProjectID   string `json:"projectId" binding:"required,uuid"`
}

func (h *Handler) create(c *gin.Context) {
	var req createWorkspaceReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errs.ErrValidation.WithDetail(err.Error()))
		return
	}
	if !h.requireProjectOwner(c, req.ProjectID) {
		return
	}
	w, err := h.workspaces.Create(c.Request.Context(), req.Name, req.Description, req.ProjectID)
	if err != nil {
		writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusCreated, w)
}

func (h *Handler) get(c *gin.Context) {
	w, ok := h.loadWorkspace(c)
	if !ok {
		return
	}
	if !h.requireProjectOwner(c, w.ProjectID) {
		return
	}
	c.JSON(http.StatusOK, w)
}

func (h *Handler) list(c *gin.Context) {
	projectID := c.Param("projectId")
	if _, err := uuid.Parse(projectID); err != nil {
		c.JSON(http.StatusBadRequest, errs.ErrValidation.WithDetail("projectId must be a uuid"))
		return
	}
	if !h.requireProjectOwner(c, projectID) {
		return
	}
	list, err := h.workspaces.ListByProject(c.Request.Context(), projectID)
	if err != nil {
		writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

type updateWorkspaceReq struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	IsActive    *bool   `json:"isActive"`
}

func (h *Handler) update(c *gin.Context) {
	w, ok := h.loadWorkspace(c)
	if !ok {
		return
	}
	if !h.requireProjectOwner(c, w.ProjectID) {
		return
	}
	var req updateWorkspaceReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errs.ErrValidation.WithDetail(err.Error()))
		return
	}
	updated, err := h.workspaces.Update(c.Request.Context(), w.ID, req.Name, req.Description, req.IsActive)
	if err != nil {
		writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *Handler) remove(c *gin.Context) {
	w, ok := h.loadWorkspace(c)
	if !ok {
		return
	}
	if !h.requireProjectOwner(c, w.ProjectID) {
		return
	}
	if err := h.workspaces.Delete(c.Request.Context(), w.ID); err != nil {
		writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Workspace deleted successfully"})
}

type inviteReq struct {
	UserID string `json:"userId" binding:"required,uuid"`
	Role   string `json:"role" binding:"required"`
}

func (h *Handler) invite(c *gin.Context) {
	w, ok := h.loadWorkspace(c)
	if !ok {
		return
	}
	if !h.requireProjectOwner(c, w.ProjectID) {
		return
	}
	var req inviteReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errs.ErrValidation.WithDetail(err.Error()))
		return
	}
	if !store.ValidRole(req.Role) {
		c.JSON(http.StatusBadRequest, errs.ErrValidation.WithDetail("role must be viewer/editor/admin"))
		return
	}
	col, err := h.collaborators.Invite(c.Request.Context(), w.ID, req.UserID, req.Role)
	if err != nil {
		writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Collaborator invited successfully", "collaborator": col})
}

func (h *Handler) listCollaborators(c *gin.Context) {
	w, ok := h.loadWorkspace(c)
	if !ok {
		return
	}
	if !h.requireProjectOwner(c, w.ProjectID) {
		return
	}
	list, err := h.collaborators.ListByWorkspace(c.Request.Context(), w.ID)
	if err != nil {
		writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

type updateRoleReq struct {
	Role string `json:"role" binding:"required"`
}

func (h *Handler) updateRole(c *gin.Context) {
	var req updateRoleReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errs.ErrValidation.WithDetail(err.Error()))
		return
	}
	if !store.ValidRole(req.Role) {
		c.JSON(http.StatusBadRequest, errs.ErrValidation.WithDetail("role must be viewer/editor/admin"))
		return
	}
	col, err := h.collaborators.UpdateRole(c.Request.Context(), c.Param("id"), req.Role)
	if err != nil {
		writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, col)
}

func (h *Handler) removeCollaborator(c *gin.Context) {
	if err := h.collaborators.Remove(c.Request.Context(), c.Param("id")); err != nil {
		writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Collaborator removed successfully"})
}

func (h *Handler) loadWorkspace(c *gin.Context) (*store.Workspace, bool) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusBadRequest, errs.ErrValidation.WithDetail("workspace id must be a uuid"))
		return nil, false
	}
	w, err := h.workspaces.GetByID(c.Request.Context(), id)
	if err != nil {
		writeStoreError(c, err)
		return nil, false
	}
	return w, true
}

// requireProjectOwner enforces the same ownership rule the original CRUD
// surface had: only the project owner manages its workspaces.
func (h *Handler) requireProjectOwner(c *gin.Context, projectID string) bool {
	ownerID, err := h.workspaces.ProjectOwner(c.Request.Context(), projectID)
	if err != nil {
		writeStoreError(c, err)
		return false
	}
	if ownerID != midsec.UserID(c) {
		c.JSON(http.StatusForbidden, errs.ErrForbidden)
		return false
	}
	return true
}

func writeStoreError(c *gin.Context, err error) {
	switch {
	case errs.ErrRecordNotFound.Is(err):
		c.JSON(http.StatusNotFound, errs.ErrRecordNotFound)
	case errs.ErrRecordConflict.Is(err):
		c.JSON(http.StatusConflict, err)
	case errs.ErrValidation.Is(err):
		c.JSON(http.StatusBadRequest, err)
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"msg": "internal error"})
	}
}
