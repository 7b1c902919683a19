package contentstore

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"testing"

	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	smithyhttp "github.com/aws/smithy-go/transport/http"

	"revsite/internal/config"
)

func TestNewContentStoreFromConfig(t *testing.T) {
	t.Setenv("AWS_CONFIG_FILE", filepath.Join(t.TempDir(), "config"))
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", filepath.Join(t.TempDir(), "credentials"))

	tests := []struct {
		name    string
		cfg     config.ContentStoreConfig
		wantErr bool
	}{
		{
			name: "memory store",
			cfg:  config.ContentStoreConfig{Type: "memory"},
		},
		{
			name: "filesystem store",
			cfg:  config.ContentStoreConfig{Type: "filesystem", CacheDir: filepath.Join(t.TempDir(), "cache")},
		},
		{
			name:    "filesystem store without cache_dir",
			cfg:     config.ContentStoreConfig{Type: "filesystem"},
			wantErr: true,
		},
		{
			name: "s3 store",
			cfg: config.ContentStoreConfig{
				Type:              "s3",
				S3Bucket:          "site-cache",
				S3Prefix:          "blobs",
				S3Region:          "us-east-1",
				S3Endpoint:        "http://127.0.0.1:9000",
				S3AccessKeyID:     "test",
				S3SecretAccessKey: "test",
			},
		},
		{
			name:    "s3 store without bucket",
			cfg:     config.ContentStoreConfig{Type: "s3", S3Region: "us-east-1"},
			wantErr: true,
		},
		{
			name:    "unknown store type",
			cfg:     config.ContentStoreConfig{Type: "ftp"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewContentStoreFromConfig(context.Background(), tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewContentStoreFromConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got == nil {
				t.Error("NewContentStoreFromConfig() returned nil")
			}
		})
	}
}

func TestS3Store_ObjectKey(t *testing.T) {
	withPrefix := &S3Store{prefix: "blobs/"}
	if got := withPrefix.objectKey("abc"); got != "blobs/abc" {
		t.Errorf("objectKey() = %q, want %q", got, "blobs/abc")
	}

	bare := &S3Store{}
	if got := bare.objectKey("abc"); got != "abc" {
		t.Errorf("objectKey() = %q, want %q", got, "abc")
	}
}

func TestIsNotFound(t *testing.T) {
	notFoundResp := &awshttp.ResponseError{
		ResponseError: &smithyhttp.ResponseError{
			Response: &smithyhttp.Response{Response: &http.Response{StatusCode: http.StatusNotFound}},
			Err:      errors.New("not found"),
		},
	}
	forbiddenResp := &awshttp.ResponseError{
		ResponseError: &smithyhttp.ResponseError{
			Response: &smithyhttp.Response{Response: &http.Response{StatusCode: http.StatusForbidden}},
			Err:      errors.New("forbidden"),
		},
	}

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"no such key", &types.NoSuchKey{}, true},
		{"not found", &types.NotFound{}, true},
		{"bare 404", notFoundResp, true},
		{"403", forbiddenResp, false},
		{"other", errors.New("connection reset"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isNotFound(tt.err); got != tt.want {
				t.Errorf("isNotFound(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
