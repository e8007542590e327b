package http

import (
	"encoding/csv"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"helpdesk-service/internal/http/middleware"
	"helpdesk-service/internal/model"
	"helpdesk-service/internal/repository"
	"helpdesk-service/internal/service"
)

type Handler struct {
	ticketService   *service.TicketService
	reportService   *service.ReportService
	userService     *service.UserService
	categoryService *service.CategoryService
	log             zerolog.Logger
}

func NewHandler(
	ticketService *service.TicketService,
	reportService *service.ReportService,
	userService *service.UserService,
	categoryService *service.CategoryService,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		ticketService:   ticketService,
		reportService:   reportService,
		userService:     userService,
		categoryService: categoryService,
		log:             log,
	}
}

func (h *Handler) Register(r *gin.Engine, authMiddleware gin.HandlerFunc) {
	authGroup := r.Group("/auth")
	{
		authGroup.POST("/register", h.register)
		authGroup.POST("/login", h.login)
	}

	protected := r.Group("/")
	protected.Use(authMiddleware)

	tickets := protected.Group("/tickets")
	{
		tickets.GET("", h.listTickets)
		tickets.POST("", h.createTicket)
		tickets.GET("/:id", h.getTicketDetails)
		tickets.PUT("/:id", h.updateTicket)
		tickets.PUT("/:id/status", h.transitionStatus)
		tickets.PUT("/:id/assign", h.assignTicket)
		tickets.PUT("/:id/escalate", h.escalateTicket)
		tickets.PUT("/:id/reopen", h.reopenTicket)
		tickets.GET("/:id/comments", h.listComments)
		tickets.POST("/:id/comments", h.addComment)
		tickets.GET("/:id/notes", h.listInternalNotes)
		tickets.POST("/:id/notes", h.addInternalNote)
		tickets.POST("/:id/feedback", h.addFeedback)
		tickets.POST("/:id/attachments", h.addAttachment)
	}

	reports := protected.Group("/reports")
	{
		reports.GET("/overview", h.overview)
		reports.GET("/staff-dashboard", h.staffDashboard)
		reports.POST("/actions", h.dashboardAction)
		reports.POST("/bulk-actions", h.dashboardBulkAction)
		reports.GET("/student-dashboard", h.studentDashboard)
		reports.GET("/chart-data", h.chartData)
		reports.GET("/export.csv", h.exportCSV)
	}

	categories := protected.Group("/categories")
	{
		categories.GET("", h.listCategories)
		categories.POST("", h.createCategory)
	}
}

func (h *Handler) register(c *gin.Context) {
	var req struct {
		Username   string `json:"username" binding:"required"`
		Email      string `json:"email"`
		Password   string `json:"password" binding:"required"`
		FullName   string `json:"full_name"`
		Phone      string `json:"phone"`
		Department string `json:"department"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	// Self-registration: the role is always student.
	user, err := h.userService.Register(c.Request.Context(), service.RegisterInput{
		Username:   req.Username,
		Email:      req.Email,
		Password:   req.Password,
		FullName:   req.FullName,
		Phone:      req.Phone,
		Department: req.Department,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse(user))
}

func (h *Handler) login(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	token, user, err := h.userService.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(gin.H{
		"token": token,
		"user":  user,
	}))
}

func (h *Handler) createTicket(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	var req struct {
		Title       string `json:"title" binding:"required"`
		Description string `json:"description" binding:"required"`
		Priority    string `json:"priority"`
		CategoryID  string `json:"category_id"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	ticket, err := h.ticketService.Create(c.Request.Context(), principal, service.CreateTicketInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		CategoryID:  req.CategoryID,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	// Creation-time hint mirrored into the response so clients can show
	// it right away.
	response := gin.H{"ticket": ticket}
	if advice, found := service.SuggestedSolution(ticket.Description); found {
		response["suggestion"] = advice
	}

	c.JSON(http.StatusCreated, successResponse(response))
}

func (h *Handler) listTickets(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	filter := repository.TicketListFilter{}

	if status := strings.TrimSpace(c.Query("status")); status != "" {
		ts := model.TicketStatus(status)
		filter.Status = &ts
	}
	if priority := strings.TrimSpace(c.Query("priority")); priority != "" {
		tp := model.TicketPriority(priority)
		filter.Priority = &tp
	}
	if assignedTo := strings.TrimSpace(c.Query("assigned_to")); assignedTo != "" {
		id, err := uuid.Parse(assignedTo)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse("invalid assigned_to"))
			return
		}
		filter.AssignedToID = &id
	}
	filter.Query = strings.TrimSpace(c.Query("q"))

	tickets, err := h.ticketService.List(c.Request.Context(), principal, filter)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(tickets))
}

func (h *Handler) getTicketDetails(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, errorResponse("invalid ticket id"))
		return
	}

	details, err := h.ticketService.GetDetails(c.Request.Context(), principal, id)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(details))
}

func (h *Handler) updateTicket(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, errorResponse("invalid ticket id"))
		return
	}

	var req struct {
		Title       string `json:"title" binding:"required"`
		Description string `json:"description" binding:"required"`
		Priority    string `json:"priority"`
		CategoryID  string `json:"category_id"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	ticket, err := h.ticketService.Update(c.Request.Context(), principal, id, service.UpdateTicketInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		CategoryID:  req.CategoryID,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(ticket))
}

func (h *Handler) transitionStatus(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, errorResponse("invalid ticket id"))
		return
	}

	var req struct {
		Status string `json:"status" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	ticket, err := h.ticketService.TransitionStatus(c.Request.Context(), principal, id, model.TicketStatus(req.Status))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(ticket))
}

func (h *Handler) assignTicket(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, errorResponse("invalid ticket id"))
		return
	}

	var req struct {
		AssigneeID string `json:"assignee_id"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	// An empty assignee means "assign to me".
	assigneeID := principal.UserID
	if req.AssigneeID != "" {
		parsed, err := uuid.Parse(req.AssigneeID)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse("invalid assignee id"))
			return
		}
		assigneeID = parsed
	}

	ticket, err := h.ticketService.Assign(c.Request.Context(), principal, id, assigneeID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(ticket))
}

func (h *Handler) escalateTicket(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, errorResponse("invalid ticket id"))
		return
	}

	ticket, err := h.ticketService.Escalate(c.Request.Context(), principal, id)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(ticket))
}

func (h *Handler) reopenTicket(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, errorResponse("invalid ticket id"))
		return
	}

	ticket, err := h.ticketService.Reopen(c.Request.Context(), principal, id)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(ticket))
}

func (h *Handler) listComments(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	comments, err := h.ticketService.ListComments(c.Request.Context(), principal, strings.TrimSpace(c.Param("id")))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(comments))
}

func (h *Handler) addComment(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	var req struct {
		Text string `json:"text" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	comment, err := h.ticketService.AddComment(c.Request.Context(), principal, strings.TrimSpace(c.Param("id")), req.Text)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse(comment))
}

func (h *Handler) listInternalNotes(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	notes, err := h.ticketService.ListInternalNotes(c.Request.Context(), principal, strings.TrimSpace(c.Param("id")))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(notes))
}

func (h *Handler) addInternalNote(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	var req struct {
		Text string `json:"text" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	note, err := h.ticketService.AddInternalNote(c.Request.Context(), principal, strings.TrimSpace(c.Param("id")), req.Text)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse(note))
}

func (h *Handler) addFeedback(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	var req struct {
		Rating  int    `json:"rating" binding:"required"`
		Comment string `json:"comment"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	feedback, err := h.ticketService.AddFeedback(c.Request.Context(), principal, strings.TrimSpace(c.Param("id")), req.Rating, req.Comment)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse(feedback))
}

func (h *Handler) addAttachment(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	var req struct {
		FileName string `json:"file_name" binding:"required"`
		FilePath string `json:"file_path" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	attachment, err := h.ticketService.AddAttachment(c.Request.Context(), principal, strings.TrimSpace(c.Param("id")), req.FileName, req.FilePath)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse(attachment))
}

func (h *Handler) overview(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	overview, err := h.reportService.Overview(c.Request.Context(), principal)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(overview))
}

func (h *Handler) staffDashboard(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	dashboard, err := h.reportService.StaffDashboard(c.Request.Context(), principal, strings.TrimSpace(c.Query("q")))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(dashboard))
}

func (h *Handler) dashboardAction(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	var req struct {
		Action   string `json:"action" binding:"required"`
		TicketID string `json:"ticket_id" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	ticket, err := h.ticketService.ApplyAction(c.Request.Context(), principal, req.Action, req.TicketID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(ticket))
}

func (h *Handler) dashboardBulkAction(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	var req struct {
		Action    string   `json:"action" binding:"required"`
		TicketIDs []string `json:"ticket_ids" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	ids := make([]uuid.UUID, 0, len(req.TicketIDs))
	for _, raw := range req.TicketIDs {
		id, err := uuid.Parse(strings.TrimSpace(raw))
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse("invalid ticket id: "+raw))
			return
		}
		ids = append(ids, id)
	}

	if err := h.ticketService.ApplyBulkAction(c.Request.Context(), principal, req.Action, ids); err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(gin.H{"message": "bulk action applied"}))
}

func (h *Handler) studentDashboard(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	dashboard, err := h.reportService.StudentDashboard(c.Request.Context(), principal)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(dashboard))
}

func (h *Handler) chartData(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	data, err := h.reportService.ChartData(c.Request.Context(), principal)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(data))
}

func (h *Handler) exportCSV(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	records, err := h.reportService.ExportCSV(c.Request.Context(), principal)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", `attachment; filename="tickets_export.csv"`)
	c.Status(http.StatusOK)

	writer := csv.NewWriter(c.Writer)
	if err := writer.WriteAll(records); err != nil {
		h.log.Error().Err(err).Msg("csv export write failed")
	}
}

func (h *Handler) listCategories(c *gin.Context) {
	categories, err := h.categoryService.List(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(categories))
}

func (h *Handler) createCategory(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	var req struct {
		Name                string `json:"name" binding:"required"`
		Description         string `json:"description"`
		DefaultTechnicianID string `json:"default_technician_id"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	category, err := h.categoryService.Create(c.Request.Context(), principal, service.CreateCategoryInput{
		Name:                req.Name,
		Description:         req.Description,
		DefaultTechnicianID: req.DefaultTechnicianID,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse(category))
}

func (h *Handler) handleError(c *gin.Context, err error) {
	var validationErr *service.ValidationError
	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":  "validation failed",
			"fields": validationErr.Fields,
		})
	case errors.Is(err, service.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, errorResponse(err.Error()))
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, errorResponse(err.Error()))
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
	case errors.Is(err, service.ErrConflict):
		c.JSON(http.StatusConflict, errorResponse(err.Error()))
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, errorResponse(err.Error()))
	default:
		h.log.Error().Err(err).Msg("handler error")
		c.JSON(http.StatusInternalServerError, errorResponse("internal error"))
	}
}

func successResponse(data interface{}) gin.H {
	return gin.H{
		"data": data,
	}
}

func errorResponse(message string) gin.H {
	return gin.H{
		"error": message,
	}
}
