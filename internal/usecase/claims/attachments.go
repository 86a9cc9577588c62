package claims

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"claimdesk/internal/bootstrap/logging"
	"claimdesk/internal/domain/claim"
	"claimdesk/internal/domain/permission"
	"claimdesk/internal/errs"
	"claimdesk/internal/ports"
)

const maxParallelUploads = 4

var errStorageRequired = errors.New("file storage is required")

// Section selects which attachment list of a claim an upload lands in.
type Section string

const (
	SectionGeneral   Section = "general"
	SectionRootCause Section = "rca"
)

func ParseSection(value string) (Section, error) {
	switch Section(strings.TrimSpace(value)) {
	case SectionGeneral, "":
		return SectionGeneral, nil
	case SectionRootCause:
		return SectionRootCause, nil
	}
	return "", errs.New(errs.KindInvalidInput, fmt.Sprintf("unknown attachment section %q", value), "section")
}

func (sec Section) field() claim.Field {
	if sec == SectionRootCause {
		return claim.FieldRootCauseAttachments
	}
	return claim.FieldAttachments
}

func (sec Section) folder(claimID string) string {
	if sec == SectionRootCause {
		return claimID + "-rca"
	}
	return claimID
}

func (sec Section) list(c claim.Claim) []claim.Attachment {
	if sec == SectionRootCause {
		return c.RootCause.Attachments
	}
	return c.Attachments
}

func (sec Section) set(c *claim.Claim, list []claim.Attachment) {
	if sec == SectionRootCause {
		c.RootCause.Attachments = list
		return
	}
	c.Attachments = list
}

// Upload is one file handed in by a caller. Size is checked before any byte is sent.
type Upload struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// AddAttachments uploads files concurrently and appends them to the section.
// Nothing is uploaded when any file exceeds the size limit; on a failed
// upload the files already stored are removed again.
func (s *Service) AddAttachments(ctx context.Context, c claim.Claim, section Section, files []Upload, actor claim.User) (claim.Claim, error) {
	if err := s.checkWrite(ctx); err != nil {
		return claim.Claim{}, err
	}
	if s.storage == nil {
		return claim.Claim{}, errStorageRequired
	}
	if err := requireActor(actor); err != nil {
		return claim.Claim{}, err
	}
	ctx = logging.WithAttrs(ctx,
		slog.String("component", "claims.attachments"),
		slog.String("claim_id", c.ID),
		slog.String("section", string(section)),
	)

	field := section.field()
	if !permission.CanEditGroup(actor, c, field.Group()) {
		return claim.Claim{}, errs.New(errs.KindPermissionDenied, "role "+string(actor.Role)+" may not attach files here", field.Name())
	}
	if len(files) == 0 {
		return c, nil
	}

	var oversized []string
	for _, file := range files {
		if file.Size > s.maxFileBytes {
			oversized = append(oversized, file.Name)
		}
	}
	if len(oversized) > 0 {
		return claim.Claim{}, errs.New(errs.KindFileTooLarge, fmt.Sprintf("files exceed %d bytes", s.maxFileBytes), oversized...)
	}

	urls := make([]string, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelUploads)
	for i, file := range files {
		g.Go(func() error {
			if file.Body == nil {
				return errs.New(errs.KindUploadFailed, "file has no body", file.Name)
			}
			url, err := s.storage.Upload(gctx, file.Name, file.Body, section.folder(c.ID))
			if err != nil {
				return errs.WrapKind(err, errs.KindUploadFailed, "upload file", file.Name)
			}
			urls[i] = url
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.discardUploads(ctx, urls)
		logging.Warn(ctx, "attachment upload failed", slog.Any("err", errs.Loggable(err)))
		return claim.Claim{}, err
	}

	added := make([]claim.Attachment, 0, len(files))
	for i, file := range files {
		added = append(added, claim.Attachment{
			Name: file.Name,
			URL:  urls[i],
			Kind: claim.KindForFile(file.Name, file.ContentType),
		})
	}

	next := c
	section.set(&next, append(append([]claim.Attachment{}, section.list(c)...), added...))
	if err := s.saveAttachments(ctx, next); err != nil {
		s.discardUploads(ctx, urls)
		return claim.Claim{}, err
	}

	logging.Info(ctx, "attachments added", slog.Int("count", len(added)))
	return next, nil
}

// RemoveAttachment drops the attachment with url from the section. The blob is
// deleted after the claim is saved; a failed delete leaves an orphan file only.
func (s *Service) RemoveAttachment(ctx context.Context, c claim.Claim, section Section, url string, actor claim.User) (claim.Claim, error) {
	if err := s.checkWrite(ctx); err != nil {
		return claim.Claim{}, err
	}
	if err := requireActor(actor); err != nil {
		return claim.Claim{}, err
	}
	ctx = logging.WithAttrs(ctx, slog.String("component", "claims.attachments"), slog.String("claim_id", c.ID))

	field := section.field()
	if !permission.CanEditGroup(actor, c, field.Group()) {
		return claim.Claim{}, errs.New(errs.KindPermissionDenied, "role "+string(actor.Role)+" may not remove files here", field.Name())
	}

	current := section.list(c)
	kept := make([]claim.Attachment, 0, len(current))
	for _, attachment := range current {
		if attachment.URL != url {
			kept = append(kept, attachment)
		}
	}
	if len(kept) == len(current) {
		return claim.Claim{}, errs.New(errs.KindNotFound, "attachment not found", url)
	}

	next := c
	section.set(&next, kept)
	if err := s.saveAttachments(ctx, next); err != nil {
		return claim.Claim{}, err
	}
	if s.storage != nil {
		s.discardUploads(ctx, []string{url})
	}
	return next, nil
}

func (s *Service) saveAttachments(ctx context.Context, next claim.Claim) error {
	if err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		return s.repo.UpdateClaim(txCtx, next)
	}); err != nil {
		if errors.Is(err, ports.ErrClaimNotFound) {
			return errs.WrapKind(err, errs.KindNotFound, "save attachments")
		}
		return persistenceError(err, "save attachments")
	}
	s.afterWrite(ctx, nil)
	return nil
}

func (s *Service) discardUploads(ctx context.Context, urls []string) {
	for _, url := range urls {
		if url == "" {
			continue
		}
		if err := s.storage.Delete(context.WithoutCancel(ctx), url); err != nil {
			logging.Warn(ctx, "delete uploaded file failed", slog.String("url", url), slog.Any("err", errs.Loggable(err)))
		}
	}
}
