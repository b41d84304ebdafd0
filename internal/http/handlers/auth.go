package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"devpair-be/internal/apperr"
	"devpair-be/internal/http/middleware"
	"devpair-be/internal/models"
	"devpair-be/internal/store"
)

const sessionTTL = 7 * 24 * time.Hour

type AuthHandler struct {
	Store     *store.Store
	JWTSecret string
}

type registerReq struct {
	Username string `json:"username" binding:"required,alphanum,max=64"`
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req registerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		respondError(c, apperr.Wrap(apperr.KindStoreUnavailable, "could not hash password", err))
		return
	}

	u := models.User{
		Username:     strings.ToLower(req.Username),
		Name:         req.Name,
		Email:        strings.ToLower(req.Email),
		PasswordHash: string(hash),
	}
	if err := h.Store.CreateUser(c.Request.Context(), &u); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			respondError(c, apperr.New(apperr.KindAlreadyExists, "username or email already taken"))
			return
		}
		respondError(c, apperr.Store("create user", err))
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "user": u})
}

type loginReq struct {
	// Login is a username or an email address.
	Login    string `json:"login" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	ctx := c.Request.Context()
	login := strings.ToLower(strings.TrimSpace(req.Login))

	var (
		u   *models.User
		err error
	)
	if strings.Contains(login, "@") {
		u, err = h.Store.UserByEmail(ctx, login)
	} else {
		u, err = h.Store.UserByUsername(ctx, login)
	}
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		respondError(c, apperr.Store("load user", err))
		return
	}
	if u == nil || bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)) != nil {
		respondError(c, apperr.New(apperr.KindUnauthorized, "wrong username/password"))
		return
	}

	tokenStr, err := middleware.IssueToken(h.JWTSecret, u.ID, sessionTTL)
	if err != nil {
		respondError(c, apperr.Wrap(apperr.KindStoreUnavailable, "could not sign token", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"access_token": tokenStr,
		"user":         u,
	})
}
