package oss

import (
	"fmt"
	"io"
	"path"
	"time"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"

	"github.com/qs3c/reviewhub_go_server/config"
)

// Client 封装阿里云 OSS 操作
type Client struct {
	bucket *oss.Bucket
	cfg    *config.OSSConfig
}

func NewClient(cfg *config.OSSConfig) (*Client, error) {
	client, err := oss.New(cfg.Endpoint, cfg.AccessKeyID, cfg.AccessKeySecret)
	if err != nil {
		return nil, fmt.Errorf("failed to create oss client: %w", err)
	}

	bucket, err := client.Bucket(cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to get bucket %s: %w", cfg.BucketName, err)
	}

	return &Client{bucket: bucket, cfg: cfg}, nil
}

// UploadAvatar 上传用户头像，返回可访问的 URL
func (c *Client) UploadAvatar(userID int64, reader io.Reader, ext string) (string, error) {
	key := fmt.Sprintf("avatars/%d/%d%s", userID, time.Now().UnixNano(), ext)

	contentType := "image/jpeg"
	switch ext {
	case ".png":
		contentType = "image/png"
	case ".gif":
		contentType = "image/gif"
	case ".webp":
		contentType = "image/webp"
	}

	err := c.bucket.PutObject(key, reader, oss.ContentType(contentType))
	if err != nil {
		return "", fmt.Errorf("failed to upload avatar: %w", err)
	}

	return c.URL(key), nil
}

// UploadInvoicePDF 上传发票 PDF，返回对象 key
func (c *Client) UploadInvoicePDF(invoiceNumber string, reader io.Reader) (string, error) {
	key := path.Join("invoices", fmt.Sprintf("%s.pdf", invoiceNumber))

	err := c.bucket.PutObject(key, reader, oss.ContentType("application/pdf"))
	if err != nil {
		return "", fmt.Errorf("failed to upload invoice pdf: %w", err)
	}
	return key, nil
}

// SignedURL 生成带签名的临时下载链接
func (c *Client) SignedURL(key string, expires time.Duration) (string, error) {
	url, err := c.bucket.SignURL(key, oss.HTTPGet, int64(expires.Seconds()))
	if err != nil {
		return "", fmt.Errorf("failed to sign url for %s: %w", key, err)
	}
	return url, nil
}

// Delete 删除对象
func (c *Client) Delete(key string) error {
	return c.bucket.DeleteObject(key)
}

// URL 拼接对象的公开访问地址，优先使用 CDN 域名
func (c *Client) URL(key string) string {
	if c.cfg.CDNDomain != "" {
		return fmt.Sprintf("https://%s/%s", c.cfg.CDNDomain, key)
	}
	return fmt.Sprintf("https://%s.%s/%s", c.cfg.BucketName, c.cfg.Endpoint, key)
}
