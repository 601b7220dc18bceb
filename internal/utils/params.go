package utils

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
)

func GetTaskID(ctx *gin.Context) (uint, error) {
	return getIDParam(ctx, "id", "Task")
}

func GetUserID(ctx *gin.Context) (uint, error) {
	return getIDParam(ctx, "id", "User")
}

func getIDParam(ctx *gin.Context, name, label string) (uint, error) {
	idStr := ctx.Param(name)

	if idStr == "" {
		return 0, errors.New(label + " ID not found")
	}

	id, err := strconv.ParseUint(idStr, 10, 32)

	if err != nil {
		return 0, errors.New("Invalid " + label + " ID")
	}

	return uint(id), nil
}
