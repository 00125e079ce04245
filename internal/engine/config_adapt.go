package engine

import (
	"strings"

	"logbatcher/internal/config"
	"logbatcher/internal/retention"
	"logbatcher/pkg/archive"
	"logbatcher/pkg/masking"
	"logbatcher/pkg/pathbuilder"
)

// timestampFieldFrom resolves the single configured timestamp field
// (preferred over the legacy OR-fallback). An empty result tells
// the gateway to fall back to the documented legacy candidate list.
func timestampFieldFrom(cfg *config.Config) string {
	return cfg.APILogs.ExistingCollection.TimestampField
}

func dbNameFromURI(uri string) string {
	idx := strings.LastIndex(uri, "/")
	if idx < 0 || idx == len(uri)-1 {
		return "logbatcher"
	}
	name := uri[idx+1:]
	if q := strings.IndexByte(name, '?'); q >= 0 {
		name = name[:q]
	}
	if name == "" {
		return "logbatcher"
	}
	return name
}

func archiveConfigFrom(cfg *config.Config) archive.Config {
	return archive.Config{
		Provider: archive.Provider(cfg.UploadProvider),
		Local:    archive.LocalConfig{BaseDir: cfg.Local.BaseDir},
		S3: archive.S3Config{
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			ForcePathStyle:  cfg.S3.ForcePathStyle,
		},
		GCS: archive.GCSConfig{
			Bucket:          cfg.GCS.Bucket,
			CredentialsJSON: []byte(cfg.GCS.CredentialsJSON),
		},
		Azure: archive.AzureConfig{
			StorageAccount: cfg.Azure.StorageAccount,
			Container:      cfg.Azure.Container,
			AuthType:       archive.AzureAuthType(cfg.Azure.AuthType),
			SASToken:       cfg.Azure.SASToken,
			TenantID:       cfg.Azure.TenantID,
			ClientID:       cfg.Azure.ClientID,
			ClientSecret:   cfg.Azure.ClientSecret,
		},
	}
}

func maskingPolicyFrom(cfg *config.Config) masking.Policy {
	var maskingChar rune = '*'
	if r := []rune(cfg.DataMasking.MaskingChar); len(r) > 0 {
		maskingChar = r[0]
	}
	return masking.Policy{
		Enabled:               cfg.DataMasking.Enabled,
		MaskingChar:           maskingChar,
		PreserveLength:        cfg.DataMasking.PreserveLength,
		ShowLastChars:         cfg.DataMasking.ShowLastChars,
		MaskEmails:            cfg.DataMasking.MaskEmails,
		MaskIPs:               cfg.DataMasking.MaskIPs,
		MaskConnectionStrings: cfg.DataMasking.MaskConnectionStrings,
		CustomFields:          cfg.DataMasking.CustomFields,
		ExemptFields:          cfg.DataMasking.ExemptFields,
		CustomPatterns:        cfg.DataMasking.CustomPatterns,
	}
}

func pathPolicyFrom(cfg *config.Config) pathbuilder.Policy {
	return pathbuilder.Policy{
		Type:    pathbuilder.GranularityType(cfg.FolderStructure.Type),
		Pattern: cfg.FolderStructure.Pattern,
		SubFolders: pathbuilder.SubFolders{
			Enabled:  cfg.FolderStructure.SubFolders.Enabled,
			ByHour:   cfg.FolderStructure.SubFolders.ByHour,
			ByStatus: cfg.FolderStructure.SubFolders.ByStatus,
			Custom:   cfg.FolderStructure.SubFolders.Custom,
		},
		Naming: pathbuilder.Naming{
			Prefix: joinPrefix(cfg.OutputDirectory, cfg.FolderStructure.Naming.Prefix),
			Suffix: cfg.FolderStructure.Naming.Suffix,
		},
	}
}

// joinPrefix folds outputDirectory into the naming prefix: the Path
// Builder has no separate concept of a key prefix, so outputDirectory
// is carried as the leading prefix segment ahead of any configured
// naming.prefix.
func joinPrefix(outputDirectory, namingPrefix string) string {
	switch {
	case outputDirectory == "":
		return namingPrefix
	case namingPrefix == "":
		return outputDirectory
	default:
		return outputDirectory + "_" + namingPrefix
	}
}

func compressionPolicyFrom(cfg *config.Config) archive.CompressionPolicy {
	return archive.CompressionPolicy{
		Enabled:  cfg.Compression.Enabled,
		Format:   archive.CompressionFormat(cfg.Compression.Format),
		Level:    cfg.Compression.Level,
		FileSize: cfg.Compression.FileSize,
	}
}

func retentionConfigFrom(cfg *config.Config) retention.Config {
	return retention.Config{
		APILogsTTLDays:        cfg.Retention.Database.APILogs,
		JobsTTLDays:           cfg.Retention.Database.Jobs,
		LogsTTLDays:           cfg.Retention.Database.Logs,
		FilesTTLDays:          cfg.Retention.Storage.Files,
		APILogsTimestampField: timestampFieldFrom(cfg),
		ApplyS3Lifecycle:      cfg.UploadProvider == "s3",
		S3Lifecycle: archive.LifecycleRule{
			ID:                          "logbatcher-retention",
			TransitionToIADays:          cfg.Retention.Storage.S3Lifecycle.TransitionToIA,
			TransitionToGlacierDays:     cfg.Retention.Storage.S3Lifecycle.TransitionToGlacier,
			TransitionToDeepArchiveDays: cfg.Retention.Storage.S3Lifecycle.TransitionToDeepArchive,
			ExpirationDays:              cfg.Retention.Storage.S3Lifecycle.Expiration,
		},
	}
}
