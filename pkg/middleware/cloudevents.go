package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/wms-platform/allocation-service/pkg/logging"
)

// CloudEvents WMS extension context keys
const (
	ContextKeyWMSCorrelationID = "wmsCorrelationId"
	ContextKeyWMSWaveID        = "wmsWaveId"
	ContextKeyWMSDocumentID    = "wmsDocumentId"
)

// CloudEvents WMS extension HTTP header names
const (
	HeaderWMSCorrelationID = "X-WMS-Correlation-ID"
	HeaderWMSWaveID        = "X-WMS-Wave-ID"
	HeaderWMSDocumentID    = "X-WMS-Document-ID"
)

// CloudEvents middleware extracts WMS CloudEvents extensions from HTTP headers
// and adds them to the request context for downstream logging and propagation.
// These extensions follow the CloudEvents specification and are used for
// distributed tracing and correlation across WMS services.
func CloudEvents() gin.HandlerFunc {
	return func(c *gin.Context) {
		correlationID := c.GetHeader(HeaderWMSCorrelationID)
		waveID := c.GetHeader(HeaderWMSWaveID)
		documentID := c.GetHeader(HeaderWMSDocumentID)

		// Set in Gin context
		if correlationID != "" {
			c.Set(ContextKeyWMSCorrelationID, correlationID)
		}
		if waveID != "" {
			c.Set(ContextKeyWMSWaveID, waveID)
		}
		if documentID != "" {
			c.Set(ContextKeyWMSDocumentID, documentID)
		}

		// Set in Go context for logging package
		ctx := c.Request.Context()
		if correlationID != "" {
			ctx = logging.ContextWithCorrelationID(ctx, correlationID)
		}
		if waveID != "" {
			ctx = logging.ContextWithWaveID(ctx, waveID)
		}
		if documentID != "" {
			ctx = logging.ContextWithDocumentID(ctx, documentID)
		}
		c.Request = c.Request.WithContext(ctx)

		// Propagate headers in response (for tracing)
		if correlationID != "" {
			c.Header(HeaderWMSCorrelationID, correlationID)
		}
		if waveID != "" {
			c.Header(HeaderWMSWaveID, waveID)
		}
		if documentID != "" {
			c.Header(HeaderWMSDocumentID, documentID)
		}

		c.Next()
	}
}

// GetWMSCorrelationID extracts WMS correlation ID from Gin context
func GetWMSCorrelationID(c *gin.Context) string {
	return getStringFromContext(c, ContextKeyWMSCorrelationID)
}

// GetWMSWaveID extracts WMS wave ID from Gin context
func GetWMSWaveID(c *gin.Context) string {
	return getStringFromContext(c, ContextKeyWMSWaveID)
}

// GetWMSDocumentID extracts WMS document ID from Gin context
func GetWMSDocumentID(c *gin.Context) string {
	return getStringFromContext(c, ContextKeyWMSDocumentID)
}

func getStringFromContext(c *gin.Context, key string) string {
	if val, exists := c.Get(key); exists {
		if id, ok := val.(string); ok {
			return id
		}
	}
	return ""
}

// PropagationCloudEventHeaders returns CloudEvents WMS headers for propagation to downstream services
func PropagationCloudEventHeaders(c *gin.Context) map[string]string {
	headers := make(map[string]string)

	if id := GetWMSCorrelationID(c); id != "" {
		headers[HeaderWMSCorrelationID] = id
	}
	if id := GetWMSWaveID(c); id != "" {
		headers[HeaderWMSWaveID] = id
	}
	if id := GetWMSDocumentID(c); id != "" {
		headers[HeaderWMSDocumentID] = id
	}

	return headers
}
