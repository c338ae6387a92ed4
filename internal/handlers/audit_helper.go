package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/morchidhub/guide-backend/internal/services"
	"github.com/morchidhub/guide-backend/internal/utils"
	"github.com/sirupsen/logrus"
)

// auditTrail records audit events without ever failing the request.
// A nil service disables auditing.
type auditTrail struct {
	service *services.AuditService
	logger  logrus.FieldLogger
}

// clientInfo is the caller's address and agent, as stored in audit rows
type clientInfo struct {
	ip        string
	userAgent string
}

func requestClient(c *gin.Context) clientInfo {
	return clientInfo{ip: utils.GetRealIP(c), userAgent: utils.GetUserAgent(c)}
}

func (a auditTrail) record(ctx context.Context, operation string, fn func(ctx context.Context, s *services.AuditService) error) {
	if a.service == nil {
		return
	}
	if err := fn(ctx, a.service); err != nil {
		a.logger.WithError(err).WithField("operation", operation).Warn("Audit log write failed")
	}
}
