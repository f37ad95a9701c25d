package resume

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/spigell/labconnect/internal/domain"
)

const s3Scheme = "s3://"

// S3Config describes the object storage used for s3:// references.
// An empty Endpoint means AWS itself; set it for Cloudflare R2 or MinIO.
type S3Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access-key-id"`
	SecretAccessKey string `mapstructure:"secret-access-key"`
}

type objectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Loader reads resumes from local paths or s3://bucket/key references.
type Loader struct {
	s3     objectGetter
	logger *zap.Logger
}

func NewLoader(logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{logger: logger}
}

// WithS3 enables s3:// references.
func (l *Loader) WithS3(ctx context.Context, cfg S3Config) (*Loader, error) {
	region := cfg.Region
	if region == "" {
		region = "auto"
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	l.s3 = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return l, nil
}

// Load reads ref and converts it with FromBytes.
func (l *Loader) Load(ctx context.Context, ref string, opts ...Option) (*domain.ResumeDocument, error) {
	var (
		data []byte
		err  error
	)

	if strings.HasPrefix(ref, s3Scheme) {
		data, err = l.download(ctx, ref)
	} else {
		data, err = os.ReadFile(ref)
	}
	if err != nil {
		return nil, err
	}

	l.logger.Debug("resume loaded",
		zap.String("ref", ref),
		zap.Int("bytes", len(data)),
	)

	return FromBytes(filepath.Base(ref), data, "", opts...)
}

func (l *Loader) download(ctx context.Context, ref string) ([]byte, error) {
	if l.s3 == nil {
		return nil, fmt.Errorf("s3 storage is not configured for %s", ref)
	}

	bucket, key, err := parseS3Ref(ref)
	if err != nil {
		return nil, err
	}

	out, err := l.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get object %s: %w", ref, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read object %s: %w", ref, err)
	}

	return data, nil
}

func parseS3Ref(ref string) (string, string, error) {
	bucket, key, ok := strings.Cut(strings.TrimPrefix(ref, s3Scheme), "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("invalid s3 reference %q, expected s3://bucket/key", ref)
	}
	return bucket, key, nil
}
