package claims

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"claimdesk/internal/bootstrap/logging"
	"claimdesk/internal/domain/claim"
	"claimdesk/internal/errs"
)

var errReporterRequired = errors.New("report generator is required")

// GenerateReport drafts an 8D report for c. The claim is not modified.
func (s *Service) GenerateReport(ctx context.Context, c claim.Claim) (string, error) {
	if ctx == nil {
		return "", errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return "", errs.Wrap(err, "check context")
	}
	if s.reporter == nil {
		return "", errs.WrapKind(errReporterRequired, errs.KindReportGenerationFailed, "generate report")
	}
	ctx = logging.WithAttrs(ctx, slog.String("component", "claims.report"), slog.String("claim_id", c.ID))

	started := time.Now()
	report, err := s.reporter.Generate(ctx, c)
	if err != nil {
		logging.Warn(ctx, "report generation failed", slog.Any("err", errs.Loggable(err)))
		return "", errs.WrapKind(err, errs.KindReportGenerationFailed, "generate report")
	}
	logging.Info(ctx, "report generated", slog.Int("chars", len(report)), slog.Duration("took", time.Since(started)))
	return report, nil
}
