// Package upload runs a lecture recording through the YouTube upload flow
// and keeps a record of each attempt.
package upload

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jun/coursecast/internal/markdown"
	"github.com/jun/coursecast/internal/media"
	"github.com/jun/coursecast/internal/model"
	"github.com/jun/coursecast/internal/youtube"
	"github.com/rs/zerolog/log"
)

const (
	DefaultCategoryID    = "27" // Education
	DefaultPrivacyStatus = "unlisted"

	// DescriptionMarkdown marks a description that must be flattened first.
	DescriptionMarkdown = "markdown"

	defaultNotifyTimeout = 10 * time.Second
)

// TokenProvider hands out the caller's YouTube token.
type TokenProvider interface {
	Token(ctx context.Context, userID string) (*model.AccessToken, error)
	SignOut(ctx context.Context, userID string) error
}

// VideoUploader is the YouTube client.
type VideoUploader interface {
	CreateSession(ctx context.Context, file youtube.FileInfo, meta model.VideoMetadata, tok model.AccessToken) (*model.UploadSession, error)
	Upload(ctx context.Context, sess *model.UploadSession, body io.Reader, onProgress youtube.ProgressFunc) (*model.RemoteVideo, error)
}

// Notifier records a finished upload against a content record.
type Notifier interface {
	NotifyBackend(ctx context.Context, contentRecordID string, video model.RemoteVideo) error
}

// Request describes one upload.
type Request struct {
	UploadID          string
	ContentRecordID   string
	SourceKey         string
	Metadata          model.VideoMetadata
	DescriptionFormat string
	OnProgress        youtube.ProgressFunc
}

// Service uploads recordings from a media.Source to YouTube.
type Service struct {
	tokens        TokenProvider
	youtube       VideoUploader
	source        media.Source
	jobs          *JobStore
	notifier      Notifier
	renderer      *markdown.Renderer
	notifyTimeout time.Duration

	running sync.WaitGroup
}

// NewService creates a new Service. notifier may be nil.
func NewService(tokens TokenProvider, yt VideoUploader, source media.Source, jobs *JobStore, notifier Notifier, renderer *markdown.Renderer) *Service {
	return &Service{
		tokens:        tokens,
		youtube:       yt,
		source:        source,
		jobs:          jobs,
		notifier:      notifier,
		renderer:      renderer,
		notifyTimeout: defaultNotifyTimeout,
	}
}

// Jobs returns the job store.
func (s *Service) Jobs() *JobStore {
	return s.jobs
}

// UploadVideo runs the whole flow for req: token lookup, session creation,
// transfer and backend notification. The returned job is completed; on error
// the job, if one was created, is recorded as failed.
func (s *Service) UploadVideo(ctx context.Context, userID string, req Request) (*model.UploadJob, error) {
	job, tok, err := s.begin(ctx, userID, req)
	if err != nil {
		return nil, err
	}
	return s.finish(ctx, userID, job, *tok, req)
}

// StartUpload checks the token and records a pending job, then runs the
// rest of the flow in the background. Progress and the outcome are read
// from the job store. The transfer is not bound to ctx's cancellation.
func (s *Service) StartUpload(ctx context.Context, userID string, req Request) (*model.UploadJob, error) {
	job, tok, err := s.begin(ctx, userID, req)
	if err != nil {
		return nil, err
	}
	started := *job

	bg := context.WithoutCancel(ctx)
	s.running.Add(1)
	go func() {
		defer s.running.Done()
		s.finish(bg, userID, job, *tok, req)
	}()
	return &started, nil
}

// Wait blocks until every upload started with StartUpload has finished.
func (s *Service) Wait() {
	s.running.Wait()
}

func (s *Service) begin(ctx context.Context, userID string, req Request) (*model.UploadJob, *model.AccessToken, error) {
	tok, err := s.tokens.Token(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	job := &model.UploadJob{
		ID:              req.UploadID,
		UserID:          userID,
		ContentRecordID: req.ContentRecordID,
		SourceKey:       req.SourceKey,
		Status:          model.JobPending,
	}
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, nil, fmt.Errorf("create upload job: %w", err)
	}
	return job, tok, nil
}

func (s *Service) finish(ctx context.Context, userID string, job *model.UploadJob, tok model.AccessToken, req Request) (*model.UploadJob, error) {
	logger := log.With().Str("user_id", userID).Str("upload_id", job.ID).Logger()

	video, err := s.run(ctx, userID, job.ID, tok, req)
	if err != nil {
		logger.Error().Err(err).Msg("Video upload failed")
		if ferr := s.jobs.Fail(context.WithoutCancel(ctx), job.ID, err.Error()); ferr != nil {
			logger.Warn().Err(ferr).Msg("Failed to record upload failure")
		}
		return nil, err
	}

	if err := s.jobs.Complete(ctx, job.ID, *video); err != nil {
		logger.Warn().Err(err).Msg("Failed to record completed upload")
	}
	job.Status = model.JobCompleted
	job.Progress = 100
	job.Video = video
	logger.Info().Str("video_id", video.VideoID).Msg("Video uploaded")

	if req.ContentRecordID != "" && s.notifier != nil {
		s.notify(ctx, req.ContentRecordID, *video)
	}
	return job, nil
}

func (s *Service) run(ctx context.Context, userID, jobID string, tok model.AccessToken, req Request) (*model.RemoteVideo, error) {
	info, err := s.source.Stat(ctx, req.SourceKey)
	if err != nil {
		return nil, err
	}

	meta := s.metadata(req, info.Name)
	file := youtube.FileInfo{Name: info.Name, ContentType: info.ContentType, Size: info.Size}

	sess, err := s.youtube.CreateSession(ctx, file, meta, tok)
	if err != nil {
		s.dropRejectedToken(ctx, userID, err)
		return nil, err
	}

	if err := s.jobs.UpdateProgress(ctx, jobID, model.JobUploading, 0); err != nil {
		log.Warn().Err(err).Str("upload_id", jobID).Msg("Failed to update upload progress")
	}

	body, err := s.source.Open(ctx, req.SourceKey)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	video, err := s.youtube.Upload(ctx, sess, body, func(percent int) {
		if err := s.jobs.UpdateProgress(ctx, jobID, model.JobUploading, percent); err != nil {
			log.Warn().Err(err).Str("upload_id", jobID).Msg("Failed to update upload progress")
		}
		if req.OnProgress != nil {
			req.OnProgress(percent)
		}
	})
	if err != nil {
		s.dropRejectedToken(ctx, userID, err)
		return nil, err
	}

	if video.Title == "" {
		video.Title = meta.Title
	}
	if video.Description == "" {
		video.Description = meta.Description
	}
	return video, nil
}

func (s *Service) metadata(req Request, fileName string) model.VideoMetadata {
	meta := req.Metadata
	if strings.TrimSpace(meta.Title) == "" {
		meta.Title = strings.TrimSuffix(fileName, path.Ext(fileName))
	}
	if meta.CategoryID == "" {
		meta.CategoryID = DefaultCategoryID
	}
	if meta.PrivacyStatus == "" {
		meta.PrivacyStatus = DefaultPrivacyStatus
	}
	if req.DescriptionFormat == DescriptionMarkdown && s.renderer != nil {
		meta.Description = s.renderer.PlainText([]byte(meta.Description))
	}
	return meta
}

// dropRejectedToken clears the stored token when YouTube answered 401.
func (s *Service) dropRejectedToken(ctx context.Context, userID string, err error) {
	if !youtube.IsUnauthorized(err) {
		return
	}
	if cerr := s.tokens.SignOut(ctx, userID); cerr != nil {
		log.Warn().Err(cerr).Str("user_id", userID).Msg("Failed to clear rejected token")
		return
	}
	log.Info().Str("user_id", userID).Msg("Cleared token rejected by YouTube")
}

// notify is best effort. The upload already succeeded, so errors are only logged.
func (s *Service) notify(ctx context.Context, contentRecordID string, video model.RemoteVideo) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.notifyTimeout)
	defer cancel()

	if err := s.notifier.NotifyBackend(ctx, contentRecordID, video); err != nil {
		log.Warn().Err(err).Str("content_record_id", contentRecordID).Str("video_id", video.VideoID).Msg("Failed to notify backend")
		return
	}
	log.Debug().Str("content_record_id", contentRecordID).Msg("Backend notified")
}
