package audit

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/iamwavecut/reportbot/internal/db"
)

// FileSink appends one JSON line per reported message to a file.
type FileSink struct {
	file   *os.File
	logger *zap.Logger
}

func NewFileSink(path string) (*FileSink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
	if err != nil {
		return nil, fmt.Errorf("open audit file: %w", err)
	}
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "ts"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(f), zapcore.InfoLevel)
	return &FileSink{file: f, logger: zap.New(core)}, nil
}

func (s *FileSink) Write(_ context.Context, entry *db.AuditEntry) error {
	s.logger.Info(entry.Action,
		zap.String("id", entry.ID),
		zap.Time("decided_at", entry.CreatedAt),
		zap.String("command", entry.Command),
		zap.Int64("chat_id", entry.ChatID),
		zap.Int64("actor_id", entry.ActorID),
		zap.String("actor", entry.ActorName),
		zap.Int64("target_id", entry.TargetID),
		zap.String("target", entry.TargetName),
		zap.Int("duration_minutes", entry.DurationMinutes),
		zap.String("reason", entry.Reason),
		zap.String("text", entry.SourceText),
		zap.String("outcome", entry.Outcome),
		zap.String("detail", entry.Detail),
		zap.String("policy", entry.PolicyVersion),
	)
	return nil
}

func (s *FileSink) Close() error {
	err := s.logger.Sync()
	return errors.Join(err, s.file.Close())
}
