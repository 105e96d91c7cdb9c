package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	sc "github.com/dmitrijs2005/homedash/internal/server/config"
)

func newUploadSvc() *UploadService {
	cfg := &sc.Config{
		S3Region:       "us-east-1",
		S3RootUser:     "minioadmin",
		S3RootPassword: "minioadmin",
		S3BaseEndpoint: "http://127.0.0.1:9000",
		S3Bucket:       "avatars",
	}
	return NewUploadService(cfg)
}

func stubPresignClient(t *testing.T) {
	t.Helper()

	origLoad := loadDefaultAWSConfig
	origNewS3 := newS3ClientFromConfig
	origNewPre := newS3PresignClient
	origPut := presignPutObject
	origGet := presignGetObject
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNewS3
		newS3PresignClient = origNewPre
		presignPutObject = origPut
		presignGetObject = origGet
	})

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			if err := fn(&lo); err != nil {
				t.Fatalf("load options fn error: %v", err)
			}
		}
		if lo.Region != "us-east-1" {
			t.Fatalf("region not applied: %q", lo.Region)
		}
		return aws.Config{}, nil
	}
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		var opts s3.Options
		for _, fn := range optFns {
			fn(&opts)
		}
		if opts.BaseEndpoint == nil || *opts.BaseEndpoint != "http://127.0.0.1:9000" {
			t.Fatalf("BaseEndpoint not applied: %v", opts.BaseEndpoint)
		}
		return &s3.Client{}
	}
	newS3PresignClient = func(c *s3.Client) *s3.PresignClient { return &s3.PresignClient{} }
}

func TestGetPresignedPutUrl(t *testing.T) {
	svc := newUploadSvc()
	stubPresignClient(t)

	var capturedBucket, capturedKey string
	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		capturedBucket = *in.Bucket
		capturedKey = *in.Key
		return &v4.PresignedHTTPRequest{URL: "http://signed.example/" + *in.Key}, nil
	}

	key, url, err := svc.GetPresignedPutUrl(context.Background())
	if err != nil {
		t.Fatalf("GetPresignedPutUrl error: %v", err)
	}
	if capturedBucket != "avatars" {
		t.Fatalf("bucket mismatch: %q", capturedBucket)
	}
	if key != capturedKey || !strings.HasPrefix(key, "avatars/") {
		t.Fatalf("unexpected key: %q", key)
	}
	if url != "http://signed.example/"+key {
		t.Fatalf("unexpected url: %q", url)
	}
}

func TestGetPresignedPutUrl_PresignError(t *testing.T) {
	svc := newUploadSvc()
	stubPresignClient(t)

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return nil, errors.New("presign-put-fail")
	}

	_, _, err := svc.GetPresignedPutUrl(context.Background())
	if err == nil || err.Error() != "presign-put-fail" {
		t.Fatalf("want presign-put-fail, got %v", err)
	}
}

func TestGetPresignedGetUrl(t *testing.T) {
	svc := newUploadSvc()
	stubPresignClient(t)

	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return &v4.PresignedHTTPRequest{URL: "http://signed.example/get/" + *in.Key}, nil
	}

	url, err := svc.GetPresignedGetUrl(context.Background(), "avatars/2025/1/1/abc")
	if err != nil || url != "http://signed.example/get/avatars/2025/1/1/abc" {
		t.Fatalf("GetPresignedGetUrl: got (%q, %v)", url, err)
	}
}

func TestGetPresignedUrls_ConfigLoadError(t *testing.T) {
	svc := newUploadSvc()
	stubPresignClient(t)

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("load-fail")
	}

	if _, _, err := svc.GetPresignedPutUrl(context.Background()); err == nil || err.Error() != "load-fail" {
		t.Fatalf("put: want load-fail, got %v", err)
	}
	if _, err := svc.GetPresignedGetUrl(context.Background(), "k"); err == nil || err.Error() != "load-fail" {
		t.Fatalf("get: want load-fail, got %v", err)
	}
}

func TestNewAvatarKey_Unique(t *testing.T) {
	a, b := NewAvatarKey(), NewAvatarKey()
	if a == b {
		t.Fatalf("keys must be unique: %q", a)
	}
	if !strings.HasPrefix(a, "avatars/") {
		t.Fatalf("unexpected key layout: %q", a)
	}
}
