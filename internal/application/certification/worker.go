package certification

import (
	"context"
	"encoding/json"

	"github.com/turtacn/AIComply/internal/domain/certificate"
	"github.com/turtacn/AIComply/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/AIComply/pkg/errors"
	"github.com/turtacn/AIComply/pkg/types/common"
)

// IssuedEventHandler archives and indexes certificates announced on the
// certificate.issued stream. Archive and index are independent; either may
// be nil.
type IssuedEventHandler struct {
	archive CertificateArchive
	index   RegistryIndexer
	logger  logging.Logger
}

// NewIssuedEventHandler returns a handler for certificate.issued messages.
func NewIssuedEventHandler(archive CertificateArchive, index RegistryIndexer, logger logging.Logger) *IssuedEventHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &IssuedEventHandler{archive: archive, index: index, logger: logger.Named("issued-handler")}
}

// Handle processes one message. Undecodable or tampered payloads fail with a
// non-retryable code so the consumer dead-letters them immediately.
func (h *IssuedEventHandler) Handle(ctx context.Context, msg *common.Message) error {
	var evt certificate.IssuedEvent
	if err := json.Unmarshal(msg.Value, &evt); err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode certificate.issued event")
	}
	if evt.Certificate == nil {
		return errors.Validation("certificate.issued event carries no certificate")
	}
	rec := evt.Certificate
	if !certificate.Verify(rec) {
		h.logger.Error("refusing to archive certificate with invalid hash",
			logging.String("certificate_number", rec.CertificateNumber),
			logging.String("event_id", evt.EventID))
		return errors.Validation("certificate hash does not verify")
	}

	if h.archive != nil {
		key, err := h.archive.Archive(ctx, rec)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeArchiveFailed, "failed to archive certificate")
		}
		h.logger.Info("certificate archived",
			logging.String("certificate_number", rec.CertificateNumber),
			logging.String("object_key", key))
	}
	if h.index != nil {
		if err := h.index.IndexCertificate(ctx, rec); err != nil {
			return err
		}
		h.logger.Debug("certificate indexed", logging.String("certificate_number", rec.CertificateNumber))
	}
	return nil
}
