package logger

import (
	"net/http"
	"os"

	"storefront/internal/auth"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New creates the storefront's structured logger
func New(env string) (*zap.Logger, error) {
	var config zap.Config

	if env == "production" {
		config = zap.NewProductionConfig()
		config.Encoding = "json"
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	// Always log to stdout for container compatibility
	config.OutputPaths = []string{"stdout"}
	config.ErrorOutputPaths = []string{"stderr"}
	config.InitialFields = map[string]interface{}{"service": "storefront"}

	logger, err := config.Build(
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	)
	if err != nil {
		return nil, err
	}

	return logger, nil
}

// NewWithDefaults creates a logger from SERVER_ENV, falling back to a production logger
func NewWithDefaults() *zap.Logger {
	env := os.Getenv("SERVER_ENV")
	if env == "" {
		env = "development"
	}

	logger, err := New(env)
	if err != nil {
		logger, _ = zap.NewProduction()
	}

	return logger
}

// ForRequest returns a child logger tagged with the request ID and, when logged in, the principal
func ForRequest(base *zap.Logger, r *http.Request) *zap.Logger {
	fields := make([]zap.Field, 0, 2)
	if requestID := middleware.GetReqID(r.Context()); requestID != "" {
		fields = append(fields, zap.String("request_id", requestID))
	}
	if principal, ok := auth.PrincipalFromContext(r.Context()); ok {
		fields = append(fields, zap.String("user_id", principal.UserID.String()))
	}
	return base.With(fields...)
}
