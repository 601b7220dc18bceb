package handlers

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/waiyaki/maintraq/db"
	"github.com/waiyaki/maintraq/internal/models"
	"gorm.io/gorm"
)

type CreateFacilityRequest struct {
	Name string `json:"name" binding:"required,max=64"`
}

func ListFacilities(ctx *gin.Context) {
	var facilities []models.Facility

	if err := db.DB.Order("name").Find(&facilities).Error; err != nil {
		log.Printf("Failed to list facilities: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve facilities"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"facilities": facilities})
}

func CreateFacility(ctx *gin.Context) {
	var req CreateFacilityRequest

	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Facility name is required"})
		return
	}

	req.Name = strings.TrimSpace(req.Name)

	var existing models.Facility

	err := db.DB.Where("name = ?", req.Name).First(&existing).Error

	if err == nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "This Facility exists"})
		return
	}

	if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("Database error when checking facility: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	facility := models.Facility{Name: req.Name}

	if err := db.DB.Create(&facility).Error; err != nil {
		log.Printf("Failed to create facility: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create facility"})
		return
	}

	ctx.JSON(http.StatusCreated, facility)
}
