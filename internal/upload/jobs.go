package upload

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/jun/coursecast/internal/model"
)

// JobRetention is how long finished job records are kept.
const JobRetention = 30 * 24 * time.Hour

var (
	ErrJobNotFound = errors.New("upload job not found")
	ErrJobExists   = errors.New("upload job already exists")
)

// DynamoDBClient is the subset of *dynamodb.Client methods used by JobStore.
type DynamoDBClient interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

// JobStore records upload jobs in DynamoDB, keyed by upload_id.
type JobStore struct {
	dynamoClient DynamoDBClient
	tableName    string
	now          func() time.Time

	// In-memory fallback
	jobs map[string]model.UploadJob
	mu   sync.RWMutex
}

// NewJobStore creates a new JobStore. A nil client keeps jobs in memory.
func NewJobStore(dynamoClient DynamoDBClient, tableName string) *JobStore {
	return &JobStore{
		dynamoClient: dynamoClient,
		tableName:    tableName,
		now:          time.Now,
		jobs:         make(map[string]model.UploadJob),
	}
}

func jobKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"upload_id": &types.AttributeValueMemberS{Value: id},
	}
}

// Create stores a new job. It fails with ErrJobExists if the id is taken.
func (s *JobStore) Create(ctx context.Context, job *model.UploadJob) error {
	now := s.now().UTC()
	job.CreatedAt = now
	job.UpdatedAt = now
	job.TTL = now.Add(JobRetention).Unix()

	if s.dynamoClient == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.jobs[job.ID]; ok {
			return ErrJobExists
		}
		s.jobs[job.ID] = *job
		return nil
	}

	item, err := attributevalue.MarshalMap(job)
	if err != nil {
		return fmt.Errorf("failed to marshal upload job: %w", err)
	}
	_, err = s.dynamoClient.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(upload_id)"),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return ErrJobExists
		}
		return fmt.Errorf("failed to save upload job: %w", err)
	}
	return nil
}

// Get returns the job with the given id.
func (s *JobStore) Get(ctx context.Context, id string) (*model.UploadJob, error) {
	if s.dynamoClient == nil {
		s.mu.RLock()
		job, ok := s.jobs[id]
		s.mu.RUnlock()
		if !ok {
			return nil, ErrJobNotFound
		}
		return &job, nil
	}

	out, err := s.dynamoClient.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key:       jobKey(id),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get upload job: %w", err)
	}
	if out.Item == nil {
		return nil, ErrJobNotFound
	}

	var job model.UploadJob
	if err := attributevalue.UnmarshalMap(out.Item, &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal upload job: %w", err)
	}
	return &job, nil
}

// UpdateProgress sets the status and progress of a running job.
func (s *JobStore) UpdateProgress(ctx context.Context, id string, status model.JobStatus, progress int) error {
	return s.update(ctx, id, func(j *model.UploadJob) {
		j.Status = status
		j.Progress = progress
	}, map[string]types.AttributeValue{
		"status":   &types.AttributeValueMemberS{Value: string(status)},
		"progress": &types.AttributeValueMemberN{Value: strconv.Itoa(progress)},
	})
}

// Complete marks the job finished with the created video.
func (s *JobStore) Complete(ctx context.Context, id string, video model.RemoteVideo) error {
	av, err := attributevalue.Marshal(video)
	if err != nil {
		return fmt.Errorf("failed to marshal video: %w", err)
	}
	return s.update(ctx, id, func(j *model.UploadJob) {
		j.Status = model.JobCompleted
		j.Progress = 100
		j.Video = &video
	}, map[string]types.AttributeValue{
		"status":   &types.AttributeValueMemberS{Value: string(model.JobCompleted)},
		"progress": &types.AttributeValueMemberN{Value: "100"},
		"video":    av,
	})
}

// Fail marks the job failed with msg.
func (s *JobStore) Fail(ctx context.Context, id string, msg string) error {
	return s.update(ctx, id, func(j *model.UploadJob) {
		j.Status = model.JobFailed
		j.Error = msg
	}, map[string]types.AttributeValue{
		"status": &types.AttributeValueMemberS{Value: string(model.JobFailed)},
		"error":  &types.AttributeValueMemberS{Value: msg},
	})
}

// update applies apply in memory, or sets fields in DynamoDB. Attribute
// names are always aliased since several are reserved words.
func (s *JobStore) update(ctx context.Context, id string, apply func(*model.UploadJob), fields map[string]types.AttributeValue) error {
	now := s.now().UTC()

	if s.dynamoClient == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		job, ok := s.jobs[id]
		if !ok {
			return ErrJobNotFound
		}
		apply(&job)
		job.UpdatedAt = now
		s.jobs[id] = job
		return nil
	}

	updatedAt, err := attributevalue.Marshal(now)
	if err != nil {
		return err
	}
	fields["updated_at"] = updatedAt

	var sets []string
	names := make(map[string]string, len(fields))
	values := make(map[string]types.AttributeValue, len(fields))
	i := 0
	for name, v := range fields {
		n := "#f" + strconv.Itoa(i)
		names[n] = name
		values[":v"+strconv.Itoa(i)] = v
		sets = append(sets, n+" = :v"+strconv.Itoa(i))
		i++
	}

	_, err = s.dynamoClient.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.tableName),
		Key:                       jobKey(id),
		UpdateExpression:          aws.String("SET " + strings.Join(sets, ", ")),
		ConditionExpression:       aws.String("attribute_exists(upload_id)"),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return ErrJobNotFound
		}
		return fmt.Errorf("failed to update upload job: %w", err)
	}
	return nil
}
