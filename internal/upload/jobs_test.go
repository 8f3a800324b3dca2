package upload

import (
	"context"
	"errors"
	"testing"

	"github.com/jun/coursecast/internal/dynamotest"
	"github.com/jun/coursecast/internal/model"
)

func jobStores() map[string]*JobStore {
	return map[string]*JobStore{
		"memory":   NewJobStore(nil, "UploadJobs"),
		"dynamodb": NewJobStore(dynamotest.New("upload_id"), "UploadJobs"),
	}
}

func TestJobStore_Lifecycle(t *testing.T) {
	for name, s := range jobStores() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			job := &model.UploadJob{ID: "job1", UserID: "user1", SourceKey: "a.mp4", Status: model.JobPending}

			if err := s.Create(ctx, job); err != nil {
				t.Fatalf("Create failed: %v", err)
			}
			if job.CreatedAt.IsZero() || job.TTL == 0 {
				t.Error("Expected timestamps and TTL to be set")
			}

			if err := s.UpdateProgress(ctx, "job1", model.JobUploading, 40); err != nil {
				t.Fatalf("UpdateProgress failed: %v", err)
			}
			got, err := s.Get(ctx, "job1")
			if err != nil {
				t.Fatalf("Get failed: %v", err)
			}
			if got.Status != model.JobUploading || got.Progress != 40 || got.UserID != "user1" {
				t.Errorf("Unexpected job after progress: %+v", got)
			}

			video := model.RemoteVideo{VideoID: "abc123", VideoURL: "https://www.youtube.com/watch?v=abc123", Title: "T"}
			if err := s.Complete(ctx, "job1", video); err != nil {
				t.Fatalf("Complete failed: %v", err)
			}
			got, _ = s.Get(ctx, "job1")
			if got.Status != model.JobCompleted || got.Progress != 100 {
				t.Errorf("Expected completed job at 100, got %+v", got)
			}
			if got.Video == nil || *got.Video != video {
				t.Errorf("Expected video %+v, got %+v", video, got.Video)
			}
		})
	}
}

func TestJobStore_Fail(t *testing.T) {
	for name, s := range jobStores() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s.Create(ctx, &model.UploadJob{ID: "job1", UserID: "user1", Status: model.JobPending})

			if err := s.Fail(ctx, "job1", "boom"); err != nil {
				t.Fatalf("Fail failed: %v", err)
			}
			got, _ := s.Get(ctx, "job1")
			if got.Status != model.JobFailed || got.Error != "boom" {
				t.Errorf("Unexpected job: %+v", got)
			}
		})
	}
}

func TestJobStore_Errors(t *testing.T) {
	for name, s := range jobStores() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			if _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrJobNotFound) {
				t.Errorf("Expected ErrJobNotFound, got %v", err)
			}
			if err := s.UpdateProgress(ctx, "missing", model.JobUploading, 1); !errors.Is(err, ErrJobNotFound) {
				t.Errorf("Expected ErrJobNotFound on update, got %v", err)
			}

			s.Create(ctx, &model.UploadJob{ID: "dup"})
			if err := s.Create(ctx, &model.UploadJob{ID: "dup"}); !errors.Is(err, ErrJobExists) {
				t.Errorf("Expected ErrJobExists, got %v", err)
			}
		})
	}
}
