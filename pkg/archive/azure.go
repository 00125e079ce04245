package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"
)

// AzureAuthType selects how the Azure variant authenticates.
type AzureAuthType string

const (
	AzureAuthSAS             AzureAuthType = "sas"
	AzureAuthAD              AzureAuthType = "azuread"
	AzureAuthManagedIdentity AzureAuthType = "managed_identity"
)

// AzureConfig configures the Azure Blob Storage variant, mirroring the
// teacher's azure_blob.Config shape.
type AzureConfig struct {
	StorageAccount string
	Container      string
	AuthType       AzureAuthType
	SASToken       string
	TenantID       string
	ClientID       string
	ClientSecret   string
}

// Azure implements Adapter over Azure Blob Storage block blobs.
type Azure struct {
	client          *azblob.Client
	containerClient *container.Client
	containerName   string
}

// NewAzure constructs an Azure adapter and ensures the target
// container exists.
func NewAzure(ctx context.Context, cfg AzureConfig) (*Azure, error) {
	if cfg.StorageAccount == "" || cfg.Container == "" {
		return nil, fmt.Errorf("archive: azure storageAccount and container are required")
	}

	var client *azblob.Client
	var err error

	switch cfg.AuthType {
	case AzureAuthSAS:
		accountURL := fmt.Sprintf("https://%s.blob.core.windows.net/?%s", cfg.StorageAccount, cfg.SASToken)
		client, err = azblob.NewClientWithNoCredential(accountURL, nil)
		if err != nil {
			return nil, fmt.Errorf("archive: azure sas client: %w", err)
		}

	case AzureAuthAD:
		cred, credErr := azidentity.NewClientSecretCredential(cfg.TenantID, cfg.ClientID, cfg.ClientSecret, nil)
		if credErr != nil {
			return nil, fmt.Errorf("archive: azure ad credential: %w", credErr)
		}
		accountURL := fmt.Sprintf("https://%s.blob.core.windows.net/", cfg.StorageAccount)
		client, err = azblob.NewClient(accountURL, cred, nil)
		if err != nil {
			return nil, fmt.Errorf("archive: azure client: %w", err)
		}

	case AzureAuthManagedIdentity:
		cred, credErr := azidentity.NewDefaultAzureCredential(nil)
		if credErr != nil {
			return nil, fmt.Errorf("archive: azure managed identity credential: %w", credErr)
		}
		accountURL := fmt.Sprintf("https://%s.blob.core.windows.net/", cfg.StorageAccount)
		client, err = azblob.NewClient(accountURL, cred, nil)
		if err != nil {
			return nil, fmt.Errorf("archive: azure client: %w", err)
		}

	default:
		return nil, fmt.Errorf("archive: unsupported azure auth type %q", cfg.AuthType)
	}

	containerClient := client.ServiceClient().NewContainerClient(cfg.Container)
	if _, err := containerClient.Create(ctx, nil); err != nil {
		var respErr *azcore.ResponseError
		if !errors.As(err, &respErr) || respErr.StatusCode != 409 {
			return nil, fmt.Errorf("archive: ensure container: %w", err)
		}
	}

	return &Azure{client: client, containerClient: containerClient, containerName: cfg.Container}, nil
}

func (a *Azure) Put(ctx context.Context, key string, body io.Reader, contentType string, metadata map[string]string) (PutResult, error) {
	meta := make(map[string]*string, len(metadata))
	for k, v := range metadata {
		val := v
		meta[k] = &val
	}
	blockBlobClient := a.containerClient.NewBlockBlobClient(key)
	data, err := io.ReadAll(body)
	if err != nil {
		return PutResult{}, fmt.Errorf("%w: read body: %v", ErrUnavailable, err)
	}
	ct := contentType
	resp, err := blockBlobClient.UploadBuffer(ctx, data, &azblob.UploadBufferOptions{
		Metadata:    meta,
		HTTPHeaders: &blob.HTTPHeaders{BlobContentType: &ct},
	})
	if err != nil {
		return PutResult{}, classifyAzureError(err)
	}
	etag := ""
	if resp.ETag != nil {
		etag = string(*resp.ETag)
	}
	return PutResult{Location: fmt.Sprintf("%s/%s/%s", a.client.URL(), a.containerName, key), ETag: etag}, nil
}

func (a *Azure) Get(ctx context.Context, key string) ([]byte, error) {
	blobClient := a.containerClient.NewBlobClient(key)
	resp, err := blobClient.DownloadStream(ctx, nil)
	if err != nil {
		return nil, classifyAzureError(err)
	}
	defer resp.Body.Close()
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, resp.Body); err != nil {
		return nil, classifyAzureError(err)
	}
	return buf.Bytes(), nil
}

func (a *Azure) List(ctx context.Context, prefix string, sinceTime time.Time) (Iterator, error) {
	var items []ObjectInfo
	pager := a.containerClient.NewListBlobsFlatPager(&container.ListBlobsFlatOptions{Prefix: &prefix})
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, classifyAzureError(err)
		}
		for _, item := range page.Segment.BlobItems {
			if item.Name == nil {
				continue
			}
			var lastModified time.Time
			if item.Properties != nil && item.Properties.LastModified != nil {
				lastModified = *item.Properties.LastModified
			}
			if !sinceTime.IsZero() && lastModified.Before(sinceTime) {
				continue
			}
			size := int64(0)
			if item.Properties != nil && item.Properties.ContentLength != nil {
				size = *item.Properties.ContentLength
			}
			items = append(items, ObjectInfo{Key: *item.Name, Size: size, LastModified: lastModified})
		}
	}
	return newSliceIterator(items), nil
}

func (a *Azure) Delete(ctx context.Context, keys ...string) ([]DeleteOutcome, error) {
	outcomes := make([]DeleteOutcome, 0, len(keys))
	for _, key := range keys {
		_, err := a.containerClient.NewBlobClient(key).Delete(ctx, nil)
		if err != nil {
			err = classifyAzureError(err)
		}
		outcomes = append(outcomes, DeleteOutcome{Key: key, Err: err})
	}
	return outcomes, nil
}

// SetLifecycle is a no-op for Azure: management-plane lifecycle
// policies require a storage-account-scoped management client beyond
// the data-plane blob client this adapter holds.
func (a *Azure) SetLifecycle(ctx context.Context, rules []LifecycleRule) error {
	return nil
}

func classifyAzureError(err error) error {
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		switch respErr.StatusCode {
		case 401, 403:
			return fmt.Errorf("%w: %v", ErrAuth, err)
		case 404:
			return fmt.Errorf("%w: %v", ErrNotFound, err)
		}
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

var _ Adapter = (*Azure)(nil)
