package services

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/njdifiore91/startup-metrics-hizlkn-sub004/internal/common"
	"github.com/njdifiore91/startup-metrics-hizlkn-sub004/internal/logging"
	"github.com/njdifiore91/startup-metrics-hizlkn-sub004/internal/netx"
	sc "github.com/njdifiore91/startup-metrics-hizlkn-sub004/internal/server/config"
	"github.com/njdifiore91/startup-metrics-hizlkn-sub004/internal/server/repositories/repomanager"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Seams for tests; production code never reassigns these.
var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}

	uploadToPresignedURL = netx.UploadToPresignedURL
)

// ReportService renders company metric exports as CSV, uploads them to
// object storage through presigned PUT URLs, and hands out presigned GET
// links for download.
type ReportService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	config      *sc.Config
	logger      logging.Logger
}

func NewReportService(db *sql.DB, m repomanager.RepositoryManager, config *sc.Config, logger logging.Logger) *ReportService {
	return &ReportService{db: db, repomanager: m, config: config, logger: logger}
}

func reportStorageKey(companyID, period string) string {
	d := time.Now()
	return fmt.Sprintf("reports/%d/%d/%d/%s-%s-%v.csv", d.Year(), d.Month(), d.Day(), companyID, period, uuid.New())
}

func (s *ReportService) getPresignClient() (*s3.PresignClient, error) {
	cfg, err := loadDefaultAWSConfig(context.Background(),
		config.WithRegion(s.config.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3RootUser,     // MINIO_ROOT_USER
			s.config.S3RootPassword, // MINIO_ROOT_PASSWORD
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
	})

	return newS3PresignClient(client), nil
}

// RenderMetricsCSV builds the CSV export of a company's metrics for a period.
func (s *ReportService) RenderMetricsCSV(ctx context.Context, companyID, period string) ([]byte, error) {
	if companyID == "" || period == "" {
		return nil, common.ErrMissingRequiredField
	}

	rows, err := s.repomanager.Metrics(s.db).GetCompanyMetrics(ctx, companyID, period)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"company_id", "metric_id", "period", "value", "updated_at"}); err != nil {
		return nil, err
	}
	for _, m := range rows {
		rec := []string{
			m.CompanyID,
			m.MetricID,
			m.Period,
			strconv.FormatFloat(m.Value, 'f', -1, 64),
			m.UpdatedAt.UTC().Format(time.RFC3339),
		}
		if err := w.Write(rec); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ExportMetricsReport renders the CSV, uploads it via a presigned PUT, and
// returns a presigned GET URL valid for 15 minutes.
func (s *ReportService) ExportMetricsReport(ctx context.Context, companyID, period string) (string, error) {
	data, err := s.RenderMetricsCSV(ctx, companyID, period)
	if err != nil {
		return "", err
	}

	presignClient, err := s.getPresignClient()
	if err != nil {
		return "", err
	}

	bucket := s.config.S3Bucket
	key := reportStorageKey(companyID, period)

	putReq, err := presignPutObject(presignClient, ctx, &s3.PutObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(15*time.Minute))
	if err != nil {
		return "", err
	}

	if err := uploadToPresignedURL(ctx, putReq.URL, data, "text/csv"); err != nil {
		return "", err
	}

	getReq, err := presignGetObject(presignClient, ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(15*time.Minute))
	if err != nil {
		return "", err
	}

	s.logger.Info(ctx, "metrics report exported", "company_id", companyID, "period", period, "key", key)
	return getReq.URL, nil
}
