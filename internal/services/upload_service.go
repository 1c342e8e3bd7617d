package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/auditportal/auditportal/internal/api"
	"github.com/auditportal/auditportal/internal/constants"
	"github.com/auditportal/auditportal/internal/events"
	"github.com/auditportal/auditportal/internal/logging"
	"github.com/auditportal/auditportal/internal/models"
	"github.com/auditportal/auditportal/internal/progress"
)

// ErrNoDestination marks a file skipped because it has neither categories
// nor a document name.
var ErrNoDestination = errors.New("no category selected")

// Uploader sends one multipart upload. *api.Client implements it.
type Uploader interface {
	UploadFile(ctx context.Context, up api.UploadRequest) (*models.UploadResponse, error)
}

// UploadService uploads batches of local files.
type UploadService struct {
	uploader      Uploader
	eventBus      *events.EventBus
	logger        *logging.Logger
	maxConcurrent int
}

// NewUploadService creates an upload service. maxConcurrent <= 0 selects
// the default.
func NewUploadService(uploader Uploader, eventBus *events.EventBus, logger *logging.Logger, maxConcurrent int) *UploadService {
	if logger == nil {
		logger = logging.Nop()
	}
	if maxConcurrent <= 0 {
		maxConcurrent = constants.DefaultMaxConcurrentUploads
	}
	return &UploadService{
		uploader:      uploader,
		eventBus:      eventBus,
		logger:        logger.Named("upload"),
		maxConcurrent: maxConcurrent,
	}
}

// Upload sends every item and returns one outcome per item in input order.
// Items without a destination are skipped, not sent. A failing item does
// not stop the others. ui may be nil.
func (s *UploadService) Upload(ctx context.Context, items []UploadItem, ui progress.ProgressUI) []UploadOutcome {
	outcomes := make([]UploadOutcome, len(items))

	var g errgroup.Group
	g.SetLimit(s.maxConcurrent)
	for i, item := range items {
		outcomes[i].Item = item
		if len(item.Destination()) == 0 {
			outcomes[i].Skipped = true
			outcomes[i].Err = ErrNoDestination
			s.logger.Warn().Str("file", item.Path).Msg("skipping file without category")
			s.eventBus.PublishTransfer(events.EventTransferSkipped, taskID(i), "upload",
				filepath.Base(item.Path), 0, 0, ErrNoDestination)
			continue
		}
		i, item := i, item
		g.Go(func() error {
			outcomes[i] = s.uploadOne(ctx, i, item, ui)
			return nil
		})
	}
	_ = g.Wait()
	if ui != nil {
		ui.Wait()
	}
	return outcomes
}

func (s *UploadService) uploadOne(ctx context.Context, index int, item UploadItem, ui progress.ProgressUI) UploadOutcome {
	out := UploadOutcome{Item: item}
	name := filepath.Base(item.Path)
	id := taskID(index)

	f, err := os.Open(item.Path)
	if err != nil {
		out.Err = fmt.Errorf("failed to open %s: %w", item.Path, err)
		s.eventBus.PublishTransfer(events.EventTransferFailed, id, "upload", name, 0, 0, out.Err)
		return out
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		out.Err = fmt.Errorf("failed to stat %s: %w", item.Path, err)
		s.eventBus.PublishTransfer(events.EventTransferFailed, id, "upload", name, 0, 0, out.Err)
		return out
	}
	out.Size = info.Size()

	var reporter progress.Reporter = progress.NewEventProgress(s.eventBus, id, "upload", name)
	var bar progress.FileBarHandle
	if ui != nil {
		bar = ui.AddFileBar(item.Path, item.Destination(), out.Size)
		reporter = multiReporter{reporter, bar}
	}
	reporter.Start(out.Size, name)

	resp, err := s.uploader.UploadFile(ctx, api.UploadRequest{
		Filename:     name,
		Content:      progress.NewProgressReader(f, out.Size, reporter),
		Categories:   item.Categories,
		DocumentName: item.DocumentName,
	})
	if err != nil {
		out.Err = err
		reporter.Error(err)
		s.logger.Error().Err(err).Str("file", item.Path).Msg("upload failed")
	} else {
		out.ID = resp.ID
		reporter.Finish()
		s.logger.Info().Str("file", item.Path).Strs("categories", item.Destination()).Msg("uploaded")
	}
	if bar != nil {
		bar.Complete(out.ID, out.Err)
	}
	return out
}

func taskID(index int) string {
	return fmt.Sprintf("upload-%d", index+1)
}

// multiReporter fans progress out to several reporters.
type multiReporter []progress.Reporter

func (m multiReporter) Start(total int64, description string) {
	for _, r := range m {
		r.Start(total, description)
	}
}

func (m multiReporter) Update(current int64) {
	for _, r := range m {
		r.Update(current)
	}
}

func (m multiReporter) Finish() {
	for _, r := range m {
		r.Finish()
	}
}

func (m multiReporter) Error(err error) {
	for _, r := range m {
		r.Error(err)
	}
}

func (m multiReporter) SetDescription(desc string) {
	for _, r := range m {
		r.SetDescription(desc)
	}
}
