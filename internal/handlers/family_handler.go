package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "famledger/internal/errors"
	"famledger/internal/models"
	"famledger/internal/services"
)

// FamilyHandler handles families and memberships.
type FamilyHandler struct {
	familyService services.FamilyServicer
	auditService  services.AuditServicer
}

// NewFamilyHandler creates a new FamilyHandler.
func NewFamilyHandler(familyService services.FamilyServicer, auditService services.AuditServicer) *FamilyHandler {
	return &FamilyHandler{familyService: familyService, auditService: auditService}
}

// CreateFamilyRequest represents the request payload for creating a family.
type CreateFamilyRequest struct {
	Name        string `json:"name" binding:"required,min=1,max=100"`
	Description string `json:"description" binding:"max=255"`
}

// AddMemberRequest represents the request payload for adding a member.
type AddMemberRequest struct {
	Email    string            `json:"email" binding:"required,email"`
	Role     models.MemberRole `json:"role" binding:"omitempty,member_role"`
	Nickname string            `json:"nickname" binding:"max=50"`
}

// CreateFamily handles the creation of a new family.
// @Summary     Create a family
// @Description Create a family; the caller becomes its first admin
// @Tags        families
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateFamilyRequest true "Family details"
// @Success     201 {object} models.Family "Family created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /families [post]
func (h *FamilyHandler) CreateFamily(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateFamilyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	family, err := h.familyService.CreateFamily(userID, req.Name, req.Description)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"family": family})
}

// GetFamilies lists the caller's families.
// @Summary     List families
// @Tags        families
// @Produce     json
// @Security    BearerAuth
// @Success     200 {array}  models.Family "Families"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /families [get]
func (h *FamilyHandler) GetFamilies(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	families, err := h.familyService.GetUserFamilies(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"families": families})
}

// GetFamily returns one family with its active members.
// @Summary     Get family
// @Tags        families
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Family ID"
// @Success     200 {object} models.Family "Family"
// @Failure     403 {object} ErrorResponse "Not a member"
// @Router      /families/{id} [get]
func (h *FamilyHandler) GetFamily(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	familyID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	family, err := h.familyService.GetFamily(userID, familyID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"family": family})
}

// AddMember adds a registered user to the family.
// @Summary     Add family member
// @Description Admins add an existing user by email
// @Tags        families
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string           true "Family ID"
// @Param       request body AddMemberRequest true "Member details"
// @Success     201 {object} models.FamilyMember "Member added"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     403 {object} ErrorResponse "Not an admin"
// @Failure     404 {object} ErrorResponse "User not found"
// @Failure     409 {object} ErrorResponse "Already a member"
// @Router      /families/{id}/members [post]
func (h *FamilyHandler) AddMember(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	familyID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	member, err := h.familyService.AddMember(userID, familyID, req.Email, req.Role, req.Nickname)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, services.AuditAddMember, "family", familyID, c.ClientIP(),
		map[string]interface{}{"member_user_id": member.UserID, "role": member.Role})

	c.JSON(http.StatusCreated, gin.H{"member": member})
}

// LeaveFamily ends the caller's membership.
// @Summary     Leave family
// @Tags        families
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Family ID"
// @Success     200 {object} map[string]string "Left family"
// @Failure     403 {object} ErrorResponse "Not a member"
// @Failure     409 {object} ErrorResponse "Last admin"
// @Router      /families/{id}/leave [post]
func (h *FamilyHandler) LeaveFamily(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	familyID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.familyService.LeaveFamily(userID, familyID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, services.AuditLeaveFamily, "family", familyID, c.ClientIP(), nil)
	c.JSON(http.StatusOK, gin.H{"message": "Left family"})
}
