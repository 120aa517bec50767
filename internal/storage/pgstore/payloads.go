package pgstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Options — параметры подключения к объектному хранилищу.
type S3Options struct {
	// Endpoint - адрес S3-совместимого хранилища.
	Endpoint string
	// Region - регион хранилища.
	Region string
	// AccessKey - идентификатор ключа доступа.
	AccessKey string
	// SecretKey - секретный ключ доступа.
	SecretKey string
	// Bucket - имя бакета с полезной нагрузкой.
	Bucket string
	// UsePathStyle - адресация бакета через путь (нужно для MinIO).
	UsePathStyle bool
}

// Payloads — S3-реализация ObjectStore.
// Бакет должен существовать заранее, клиент его не создаёт.
type Payloads struct {
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
}

// NewPayloads создаёт клиент объектного хранилища.
func NewPayloads(ctx context.Context, opts S3Options) (*Payloads, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(opts.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("конфигурация S3-клиента: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(opts.Endpoint)
		o.UsePathStyle = opts.UsePathStyle
	})

	return &Payloads{
		client:  client,
		presign: s3.NewPresignClient(client),
		bucket:  opts.Bucket,
	}, nil
}

// Put загружает объект и возвращает SHA-256 содержимого,
// вычисленный в процессе передачи.
func (p *Payloads) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error) {
	hash := sha256.New()

	_, err := p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(p.bucket),
		Key:           aws.String(key),
		Body:          io.TeeReader(body, hash),
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("запись объекта %s: %w", key, err)
	}

	return hex.EncodeToString(hash.Sum(nil)), nil
}

// Get открывает поток чтения объекта.
func (p *Payloads) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := p.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("чтение объекта %s: %w", key, err)
	}
	return out.Body, nil
}

// Delete удаляет объект из хранилища.
func (p *Payloads) Delete(ctx context.Context, key string) error {
	_, err := p.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("удаление объекта %s: %w", key, err)
	}
	return nil
}

// PresignGet выдаёт временную ссылку на скачивание объекта.
// Ссылка отдаёт файл вложением под исходным именем.
func (p *Payloads) PresignGet(ctx context.Context, key, filename string, ttl time.Duration) (string, error) {
	req, err := p.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket:                     aws.String(p.bucket),
		Key:                        aws.String(key),
		ResponseContentDisposition: aws.String(fmt.Sprintf("attachment; filename=%q", filename)),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("подпись ссылки на %s: %w", key, err)
	}

	return req.URL, nil
}
