package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/liblogin/internal/db"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var errBadCredentials = errors.New("invalid username or password")

type userAuthenticator interface {
	Authenticate(ctx context.Context, username, password string) (db.User, error)
}

type dbUsers struct {
	db *gorm.DB
}

func (u dbUsers) Authenticate(ctx context.Context, username, password string) (db.User, error) {
	var user db.User
	if err := u.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return user, errBadCredentials
		}
		return user, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return user, errBadCredentials
	}
	return user, nil
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login checks the credentials and starts an admin session.
func (a *API) Login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req, "username and password are required") {
		return
	}

	user, err := a.users.Authenticate(c.Request.Context(), strings.TrimSpace(req.Username), req.Password)
	if err != nil {
		if errors.Is(err, errBadCredentials) {
			a.log.Warn("admin login rejected", "username", req.Username, "client_ip", c.ClientIP())
			respondError(c, http.StatusUnauthorized, errBadCredentials.Error())
			return
		}
		a.log.Error("admin login failed", "error", err, "request_id", requestID(c))
		respondError(c, http.StatusInternalServerError, "internal server error")
		return
	}

	session := sessions.Default(c)
	session.Set("user_id", user.ID)
	session.Set("username", user.Username)
	if err := session.Save(); err != nil {
		a.log.Error("save session failed", "error", err, "request_id", requestID(c))
		respondError(c, http.StatusInternalServerError, "failed to save session")
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": user.ID, "username": user.Username})
}

// Logout clears the admin session.
func (a *API) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	if err := session.Save(); err != nil {
		a.log.Warn("clear session failed", "error", err)
	}
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// AuthRequired rejects requests without an admin session.
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		if session.Get("user_id") == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		c.Next()
	}
}

// currentUserID returns the session user, nil when anonymous.
func currentUserID(c *gin.Context) *uint {
	switch v := sessions.Default(c).Get("user_id").(type) {
	case uint:
		return &v
	case int:
		id := uint(v)
		return &id
	case int64:
		id := uint(v)
		return &id
	}
	return nil
}
