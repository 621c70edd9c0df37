package handler

import (
	"strconv"

	"rewardpoints/internal/apperr"
	"rewardpoints/internal/auth"
	"rewardpoints/internal/config"
	"rewardpoints/internal/infrastructure/cache"
	"rewardpoints/internal/infrastructure/lock"
	"rewardpoints/internal/service"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const identityKey = "identity"

// Handler holds every service the HTTP API calls into.
type Handler struct {
	authService    *service.AuthService
	familyService  *service.FamilyService
	ledgerService  *service.LedgerService
	catalogService *service.CatalogService
	requestService *service.RequestService
}

func NewHandler(db *gorm.DB, locker lock.Locker, revocations cache.RevocationList, cfg *config.Config) *Handler {
	ledger := service.NewLedgerService(db, locker, cfg)
	return &Handler{
		authService:    service.NewAuthService(db, auth.NewTokenIssuer(&cfg.Auth), revocations, cfg),
		familyService:  service.NewFamilyService(db),
		ledgerService:  ledger,
		catalogService: service.NewCatalogService(db),
		requestService: service.NewRequestService(db, ledger, cfg),
	}
}

func (h *Handler) Catalog() *service.CatalogService {
	return h.catalogService
}

func (h *Handler) Requests() *service.RequestService {
	return h.requestService
}

func setIdentity(c *gin.Context, id auth.Identity) {
	c.Set(identityKey, id)
}

// currentIdentity returns the caller set by AuthMiddleware.
func currentIdentity(c *gin.Context) auth.Identity {
	v, _ := c.Get(identityKey)
	id, _ := v.(auth.Identity)
	return id
}

func pathID(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Validation(name + " must be a positive integer")
	}
	return id, nil
}

func queryInt(c *gin.Context, name string, def int) int {
	v, err := strconv.Atoi(c.DefaultQuery(name, strconv.Itoa(def)))
	if err != nil {
		return def
	}
	return v
}
