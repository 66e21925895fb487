package handlers

import (
	"net/http"
	"strings"

	"go-dokan-pos/internal/auth"
	"go-dokan-pos/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type LoginRequest struct {
	Username string `json:"username" binding:"required,max=80"`
	Password string `json:"password" binding:"required,min=6"`
}

func (h *Handler) Login(c *gin.Context) {
	var input LoginRequest
	if !bindAndValidate(c, &input) {
		return
	}

	var user models.User
	if err := h.DB.WithContext(c.Request.Context()).Where("username = ?", strings.TrimSpace(input.Username)).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}
	if !auth.CheckPassword(user.PasswordHash, input.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	token, err := h.Tokens.GenerateToken(user.ID, user.Username, user.Role)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":    token,
		"role":     user.Role,
		"username": user.Username,
	})
}

// Register creates an account. The first account becomes admin, later ones staff.
func (h *Handler) Register(c *gin.Context) {
	var input LoginRequest
	if !bindAndValidate(c, &input) {
		return
	}

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
		return
	}

	db := h.DB.WithContext(c.Request.Context())
	var users int64
	if err := db.Model(&models.User{}).Count(&users).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}
	role := auth.RoleStaff
	if users == 0 {
		role = auth.RoleAdmin
	}

	user := models.User{
		Username:     strings.TrimSpace(input.Username),
		PasswordHash: hash,
		Role:         role,
	}
	if err := db.Create(&user).Error; err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "User likely already exists"})
		return
	}

	log.Info().Str("username", user.Username).Str("role", role).Msg("user registered")
	c.JSON(http.StatusCreated, gin.H{"message": "User created successfully!", "role": role})
}
