// Package warn surfaces per-day, per-market, and per-transaction degrades.
package warn

import (
	"time"

	"go.uber.org/zap"

	"vaultScope/internal/model"
	"vaultScope/internal/storage"
)

// Reporter logs a warning and records it in a sink.
type Reporter struct {
	job    string
	sink   storage.WarningSink
	logger *zap.Logger
	now    func() time.Time
}

func NewReporter(job string, sink storage.WarningSink, logger *zap.Logger) *Reporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reporter{job: job, sink: sink, logger: logger, now: time.Now}
}

// Report records err against one scope key (a date, a market id, or a tx hash).
func (r *Reporter) Report(vault, scope, key string, err error) {
	if r == nil || err == nil {
		return
	}
	kind := ""
	if k := model.KindOf(err); k != nil {
		kind = k.Error()
	}

	r.logger.Warn(r.job+" skipped "+scope,
		zap.String("vault", vault),
		zap.String(scope, key),
		zap.String("kind", kind),
		zap.Error(err),
	)

	if r.sink == nil {
		return
	}
	w := model.Warning{
		Time:    r.now().UTC().Format(time.RFC3339),
		Job:     r.job,
		Vault:   vault,
		Scope:   scope,
		Key:     key,
		Kind:    kind,
		Message: err.Error(),
	}
	if serr := r.sink.PutWarning(w); serr != nil {
		r.logger.Error("record warning failed", zap.Error(serr))
	}
}
