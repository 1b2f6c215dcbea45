package resources

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sync"
	"time"

	"camp-companion/internal/cache"
	"camp-companion/internal/errs"
	"camp-companion/internal/models"
	"camp-companion/internal/remote"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Service handles camp resource sharing: files are uploaded to S3, then the
// resource record is registered with the remote store.
type Service struct {
	store    remote.Store
	cache    *cache.Cache
	s3Client *s3.Client
	s3Bucket string
	region   string

	mu        sync.Mutex
	resources []models.Resource
}

// NewService creates a resource service. accessKey/secretKey may be empty to
// fall back to the ambient AWS credential chain; endpoint overrides the S3
// endpoint for S3-compatible providers.
func NewService(store remote.Store, c *cache.Cache, region, bucket, accessKey, secretKey, endpoint string) (*Service, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
	}
	if accessKey != "" && secretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	s3Client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	return &Service{
		store:    store,
		cache:    c,
		s3Client: s3Client,
		s3Bucket: bucket,
		region:   region,
	}, nil
}

// Rehydrate pre-populates the resource list from the local cache
func (s *Service) Rehydrate() error {
	var resources []models.Resource
	if err := s.cache.Get(cache.StoreResources, &resources); err != nil {
		if errors.Is(err, cache.ErrMiss) {
			return nil
		}
		return fmt.Errorf("failed to rehydrate resources: %w", err)
	}
	s.mu.Lock()
	s.resources = resources
	s.mu.Unlock()
	return nil
}

// Resources returns a snapshot of the cached resource list
func (s *Service) Resources() []models.Resource {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Resource(nil), s.resources...)
}

// Refresh refetches the resource list from the remote store
func (s *Service) Refresh(ctx context.Context, category string) ([]models.Resource, error) {
	resources, err := s.store.ListResources(ctx, category)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if category == "" {
		s.resources = resources
	} else {
		merged := make([]models.Resource, 0, len(s.resources)+len(resources))
		for _, r := range s.resources {
			if r.Category != category {
				merged = append(merged, r)
			}
		}
		s.resources = append(merged, resources...)
	}
	snap := append([]models.Resource(nil), s.resources...)
	s.mu.Unlock()

	s.persist(snap)
	return snap, nil
}

// Upload puts the file body to S3 under a deterministic key and registers
// the resource with the remote store, then reconciles with a refetch.
func (s *Service) Upload(ctx context.Context, name, description, category, contentType, filename string, size int64, body io.Reader) (*models.Resource, error) {
	if name == "" {
		return nil, &errs.ValidationError{Field: "name", Reason: "must not be empty"}
	}

	key := fmt.Sprintf("%s/%s%s", categoryOrDefault(category), uuid.New().String(), path.Ext(filename))
	_, err := s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.s3Bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return nil, &errs.RemoteError{Op: "upload resource", Err: err}
	}

	uri := fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.s3Bucket, s.region, key)
	res := &models.Resource{
		Name:        name,
		Description: description,
		Type:        contentType,
		URI:         uri,
		Size:        size,
		DateAdded:   time.Now(),
		Category:    categoryOrDefault(category),
	}

	created, err := s.store.AddResource(ctx, res)
	if err != nil {
		return nil, err
	}

	if _, err := s.Refresh(ctx, ""); err != nil {
		log.Error().Err(err).Msg("resource refetch after upload failed")
	}

	log.Info().
		Str("resource_id", created.ID).
		Str("name", name).
		Str("category", created.Category).
		Int64("size", size).
		Msg("resource uploaded")
	return created, nil
}

// Delete removes a resource record and reconciles with a refetch
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteResource(ctx, id); err != nil {
		return err
	}
	if _, err := s.Refresh(ctx, ""); err != nil {
		log.Error().Err(err).Msg("resource refetch after delete failed")
	}
	log.Info().Str("resource_id", id).Msg("resource deleted")
	return nil
}

func (s *Service) persist(resources []models.Resource) {
	if resources == nil {
		resources = []models.Resource{}
	}
	if err := s.cache.Put(cache.StoreResources, resources); err != nil {
		log.Error().Err(err).Msg("failed to persist resources")
	}
}

func categoryOrDefault(category string) string {
	if category == "" {
		return "general"
	}
	return category
}
