package table

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"table_admin/internal/audit"
	"table_admin/internal/auth"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type TableController struct {
	service     TableServiceInterface
	maxPageSize int
}

func NewTableController(service TableServiceInterface, maxPageSize int) *TableController {
	return &TableController{
		service:     service,
		maxPageSize: maxPageSize,
	}
}

type createTableRequest struct {
	TableName string `json:"tableName"`
	Columns   Fields `json:"columns"`
}

type legacyUpdateRequest struct {
	ID    json.Number     `json:"id"`
	Field string          `json:"field"`
	Value json.RawMessage `json:"value"`
}

// ListTables handles GET /api/tables
func (tc *TableController) ListTables(c *gin.Context) {
	tables, err := tc.service.ListTables(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tables)
}

// CreateTable handles POST /api/tables
func (tc *TableController) CreateTable(c *gin.Context) {
	var req createTableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindError(err))
		return
	}

	if err := tc.service.CreateTable(c.Request.Context(), actorFrom(c), req.TableName, req.Columns); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": fmt.Sprintf("Table %s created successfully", req.TableName)})
}

// DropTable handles DELETE /api/table/:name
func (tc *TableController) DropTable(c *gin.Context) {
	name := c.Param("name")

	if err := tc.service.DropTable(c.Request.Context(), actorFrom(c), name); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("Table %s deleted successfully", name)})
}

// ListRows handles GET /api/table/:name
func (tc *TableController) ListRows(c *gin.Context) {
	q, err := ParseListQuery(c.Request.URL.Query(), tc.maxPageSize)
	if err != nil {
		respondError(c, err)
		return
	}

	rows, err := tc.service.ListRows(c.Request.Context(), c.Param("name"), q)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, rows)
}

// InsertRow handles POST /api/table/:name/add
func (tc *TableController) InsertRow(c *gin.Context) {
	var row Fields
	if err := c.ShouldBindJSON(&row); err != nil {
		respondError(c, bindError(err))
		return
	}

	id, err := tc.service.InsertRow(c.Request.Context(), actorFrom(c), c.Param("name"), row)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Record added successfully",
		"id":      id,
	})
}

// UpdateRow handles PUT and POST /api/table/:name/update/:id
func (tc *TableController) UpdateRow(c *gin.Context) {
	id, err := parseRowID(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	var updates Fields
	if err := c.ShouldBindJSON(&updates); err != nil {
		respondError(c, bindError(err))
		return
	}

	tc.update(c, id, singleFieldUpdate(updates))
}

// LegacyUpdateRow handles POST /api/table/:name/update with {id, field, value}.
func (tc *TableController) LegacyUpdateRow(c *gin.Context) {
	var req legacyUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindError(err))
		return
	}

	id, err := parseRowID(req.ID.String())
	if err != nil {
		respondError(c, err)
		return
	}
	if req.Field == "" {
		respondError(c, fmt.Errorf("%w: field is required", ErrInvalidInput))
		return
	}

	value, err := decodeScalar(req.Value)
	if err != nil {
		respondError(c, err)
		return
	}

	tc.update(c, id, Fields{{Name: req.Field, Value: value}})
}

func (tc *TableController) update(c *gin.Context, id int64, updates Fields) {
	if err := tc.service.UpdateRow(c.Request.Context(), actorFrom(c), c.Param("name"), id, updates); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Record updated successfully"})
}

// DeleteRow handles DELETE /api/table/:name/delete/:id
func (tc *TableController) DeleteRow(c *gin.Context) {
	id, err := parseRowID(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	if err := tc.service.DeleteRow(c.Request.Context(), actorFrom(c), c.Param("name"), id); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Record deleted successfully"})
}

// singleFieldUpdate rewrites {"field": "name", "value": v} into {"name": v}.
func singleFieldUpdate(updates Fields) Fields {
	if len(updates) != 2 {
		return updates
	}
	field, hasField := updates.Lookup("field")
	value, hasValue := updates.Lookup("value")
	name, isString := field.(string)
	if !hasField || !hasValue || !isString {
		return updates
	}
	return Fields{{Name: name, Value: value}}
}

func parseRowID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: row id must be an integer", ErrInvalidInput)
	}
	return id, nil
}

func actorFrom(c *gin.Context) audit.Actor {
	claims, err := auth.GetClaimsFromContext(c)
	if err != nil {
		return audit.Actor{}
	}
	return audit.Actor{UserID: claims.UserID, Username: claims.Username}
}

// bindError marks a body decoding failure as a validation error.
func bindError(err error) error {
	if errors.Is(err, ErrInvalidInput) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrInvalidInput, err)
}

func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrConflict):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Table already exists"})
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrInvalidIdentifier):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Record not found"})
	case errors.Is(err, ErrSystemTable):
		c.JSON(http.StatusForbidden, gin.H{"error": "Table is managed by the system"})
	default:
		logrus.WithError(err).WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.FullPath(),
			"table":  c.Param("name"),
		}).Error("Table request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
