package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Body is the uniform JSON envelope returned by every API handler.
type Body struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Success writes a 200 envelope.
func Success(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, Body{Code: 0, Message: message, Data: data})
}

// Created writes a 201 envelope.
func Created(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusCreated, Body{Code: 0, Message: message, Data: data})
}

// Fail writes a 400 envelope.
func Fail(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusBadRequest, Body{Code: 1, Message: message, Data: data})
}

// FailWithStatus writes an envelope with an explicit HTTP status.
func FailWithStatus(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, Body{Code: 1, Message: message, Data: data})
}
