package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// VaultConfig configures secret-reference resolution for config values
// prefixed "vault://", used for dbUri and archive credentials.
type VaultConfig struct {
	Enabled        bool
	Address        string
	Token          string
	TokenFile      string
	Namespace      string
	MountPath      string
	KVVersion      int
	CacheTTL       time.Duration
	RequestTimeout time.Duration
	TLSSkipVerify  bool
	TLS            struct {
		CAFile   string
		CertFile string
		KeyFile  string
	}
}

type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	ForcePathStyle  bool
}

type GCSConfig struct {
	Bucket          string
	CredentialsJSON string
}

type AzureConfig struct {
	StorageAccount string
	Container      string
	AuthType       string
	SASToken       string
	TenantID       string
	ClientID       string
	ClientSecret   string
}

type FolderStructureConfig struct {
	Type       string
	Pattern    string
	SubFolders struct {
		Enabled  bool
		ByHour   bool
		ByStatus bool
		Custom   []string
	}
	Naming struct {
		Prefix      string
		Suffix      string
		DateFormat  string
		IncludeTime bool
	}
}

type CompressionConfig struct {
	Enabled  bool
	Format   string // gzip|brotli|zip
	Level    int
	FileSize int
}

type DataMaskingConfig struct {
	Enabled               bool
	MaskingChar           string
	PreserveLength        bool
	ShowLastChars         int
	MaskEmails            bool
	MaskIPs               bool
	MaskConnectionStrings bool
	CustomFields          []string
	ExemptFields          []string
	CustomPatterns        map[string]string
}

type RetentionDatabaseConfig struct {
	APILogs     int
	Jobs        int
	Logs        int
	AutoCleanup bool
	CleanupCron string
}

type S3LifecycleConfig struct {
	TransitionToIA          int
	TransitionToGlacier     int
	TransitionToDeepArchive int
	Expiration              int
}

type RetentionStorageConfig struct {
	Files       int
	AutoCleanup bool
	CleanupCron string
	S3Lifecycle S3LifecycleConfig
}

type ExistingCollectionConfig struct {
	Name            string
	TimestampField  string
	RequiredFields  []string
}

type Config struct {
	DBURI           string
	UploadProvider  string // local|s3|gcs|azure
	FileFormat      string // json|csv
	OutputDirectory string
	DailyCron       string
	HourlyCron      string
	Timezone        string
	RetryAttempts   int

	Collections struct {
		JobsCollectionName    string
		LogsCollectionName    string
		APILogsCollectionName string
	}

	APILogs struct {
		ExistingCollection ExistingCollectionConfig
	}

	Local FolderLocalConfig
	S3    S3Config
	GCS   GCSConfig
	Azure AzureConfig

	FolderStructure FolderStructureConfig
	Compression     CompressionConfig
	DataMasking     DataMaskingConfig

	Retention struct {
		Database RetentionDatabaseConfig
		Storage  RetentionStorageConfig
	}

	Logging struct {
		Level         string
		Format        string // text|json
		EnableConsole bool
		EnableFile    bool
		LogFilePath   string
	}

	Vault VaultConfig
}

// FolderLocalConfig configures the local filesystem archive variant.
type FolderLocalConfig struct {
	BaseDir string
}

func Load() *Config {
	v := viper.New()
	v.SetConfigName("config")
	v.AddConfigPath(".")
	v.SetConfigType("yaml")

	// Environment variable support. Example: LOGBATCHER_UPLOAD_PROVIDER=s3
	v.SetEnvPrefix("LOGBATCHER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("db_uri", "mongodb://127.0.0.1:27017/logbatcher")
	v.SetDefault("upload_provider", "local")
	v.SetDefault("file_format", "json")
	v.SetDefault("output_directory", "logs")
	v.SetDefault("daily_cron", "0 0 * * *")
	v.SetDefault("hourly_cron", "0 * * * *")
	v.SetDefault("timezone", "UTC")
	v.SetDefault("retry_attempts", 3)

	v.SetDefault("collections.jobs_collection_name", "jobs")
	v.SetDefault("collections.logs_collection_name", "logs")
	v.SetDefault("collections.api_logs_collection_name", "apilogs")

	v.SetDefault("api_logs.existing_collection.name", "")
	v.SetDefault("api_logs.existing_collection.timestamp_field", "")
	v.SetDefault("api_logs.existing_collection.required_fields", []string{})

	v.SetDefault("local.base_dir", "./archive")

	v.SetDefault("s3.bucket", "")
	v.SetDefault("s3.region", "")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.access_key_id", "")
	v.SetDefault("s3.secret_access_key", "")
	v.SetDefault("s3.force_path_style", false)

	v.SetDefault("gcs.bucket", "")
	v.SetDefault("gcs.credentials_json", "")

	v.SetDefault("azure.storage_account", "")
	v.SetDefault("azure.container", "")
	v.SetDefault("azure.auth_type", "sas")
	v.SetDefault("azure.sas_token", "")
	v.SetDefault("azure.tenant_id", "")
	v.SetDefault("azure.client_id", "")
	v.SetDefault("azure.client_secret", "")

	v.SetDefault("folder_structure.type", "daily")
	v.SetDefault("folder_structure.pattern", "")
	v.SetDefault("folder_structure.sub_folders.enabled", false)
	v.SetDefault("folder_structure.sub_folders.by_hour", false)
	v.SetDefault("folder_structure.sub_folders.by_status", false)
	v.SetDefault("folder_structure.sub_folders.custom", []string{})
	v.SetDefault("folder_structure.naming.prefix", "")
	v.SetDefault("folder_structure.naming.suffix", "")
	v.SetDefault("folder_structure.naming.date_format", "")
	v.SetDefault("folder_structure.naming.include_time", false)

	v.SetDefault("compression.enabled", false)
	v.SetDefault("compression.format", "gzip")
	v.SetDefault("compression.level", 6)
	v.SetDefault("compression.file_size", 0)

	v.SetDefault("data_masking.enabled", true)
	v.SetDefault("data_masking.masking_char", "*")
	v.SetDefault("data_masking.preserve_length", true)
	v.SetDefault("data_masking.show_last_chars", 0)
	v.SetDefault("data_masking.mask_emails", false)
	v.SetDefault("data_masking.mask_ips", false)
	v.SetDefault("data_masking.mask_connection_strings", false)
	v.SetDefault("data_masking.custom_fields", []string{"password", "token", "secret"})
	v.SetDefault("data_masking.exempt_fields", []string{})
	v.SetDefault("data_masking.custom_patterns", map[string]any{})

	v.SetDefault("retention.database.api_logs", 90)
	v.SetDefault("retention.database.jobs", 180)
	v.SetDefault("retention.database.logs", 180)
	v.SetDefault("retention.database.auto_cleanup", true)
	v.SetDefault("retention.database.cleanup_cron", "0 3 * * *")

	v.SetDefault("retention.storage.files", 365)
	v.SetDefault("retention.storage.auto_cleanup", true)
	v.SetDefault("retention.storage.cleanup_cron", "0 2 * * *")
	v.SetDefault("retention.storage.s3_lifecycle.transition_to_ia", 30)
	v.SetDefault("retention.storage.s3_lifecycle.transition_to_glacier", 90)
	v.SetDefault("retention.storage.s3_lifecycle.transition_to_deep_archive", 180)
	v.SetDefault("retention.storage.s3_lifecycle.expiration", 0)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.enable_console", true)
	v.SetDefault("logging.enable_file", false)
	v.SetDefault("logging.log_file_path", "")

	v.SetDefault("vault.enabled", false)
	v.SetDefault("vault.address", "")
	v.SetDefault("vault.token", "")
	v.SetDefault("vault.token_file", "")
	v.SetDefault("vault.namespace", "")
	v.SetDefault("vault.mount_path", "secret")
	v.SetDefault("vault.kv_version", 2)
	v.SetDefault("vault.cache_ttl", "5m")
	v.SetDefault("vault.request_timeout", "10s")
	v.SetDefault("vault.tls_skip_verify", false)

	_ = v.ReadInConfig()

	cfg := &Config{}
	cfg.DBURI = v.GetString("db_uri")
	cfg.UploadProvider = v.GetString("upload_provider")
	cfg.FileFormat = v.GetString("file_format")
	cfg.OutputDirectory = v.GetString("output_directory")
	cfg.DailyCron = v.GetString("daily_cron")
	cfg.HourlyCron = v.GetString("hourly_cron")
	cfg.Timezone = v.GetString("timezone")
	cfg.RetryAttempts = v.GetInt("retry_attempts")

	cfg.Collections.JobsCollectionName = v.GetString("collections.jobs_collection_name")
	cfg.Collections.LogsCollectionName = v.GetString("collections.logs_collection_name")
	cfg.Collections.APILogsCollectionName = v.GetString("collections.api_logs_collection_name")

	cfg.APILogs.ExistingCollection.Name = v.GetString("api_logs.existing_collection.name")
	cfg.APILogs.ExistingCollection.TimestampField = v.GetString("api_logs.existing_collection.timestamp_field")
	cfg.APILogs.ExistingCollection.RequiredFields = readStringSlice(v.Get("api_logs.existing_collection.required_fields"))

	cfg.Local.BaseDir = v.GetString("local.base_dir")

	cfg.S3.Bucket = v.GetString("s3.bucket")
	cfg.S3.Region = v.GetString("s3.region")
	cfg.S3.Endpoint = v.GetString("s3.endpoint")
	cfg.S3.AccessKeyID = v.GetString("s3.access_key_id")
	cfg.S3.SecretAccessKey = v.GetString("s3.secret_access_key")
	cfg.S3.ForcePathStyle = v.GetBool("s3.force_path_style")

	cfg.GCS.Bucket = v.GetString("gcs.bucket")
	cfg.GCS.CredentialsJSON = v.GetString("gcs.credentials_json")

	cfg.Azure.StorageAccount = v.GetString("azure.storage_account")
	cfg.Azure.Container = v.GetString("azure.container")
	cfg.Azure.AuthType = v.GetString("azure.auth_type")
	cfg.Azure.SASToken = v.GetString("azure.sas_token")
	cfg.Azure.TenantID = v.GetString("azure.tenant_id")
	cfg.Azure.ClientID = v.GetString("azure.client_id")
	cfg.Azure.ClientSecret = v.GetString("azure.client_secret")

	cfg.FolderStructure.Type = v.GetString("folder_structure.type")
	cfg.FolderStructure.Pattern = v.GetString("folder_structure.pattern")
	cfg.FolderStructure.SubFolders.Enabled = v.GetBool("folder_structure.sub_folders.enabled")
	cfg.FolderStructure.SubFolders.ByHour = v.GetBool("folder_structure.sub_folders.by_hour")
	cfg.FolderStructure.SubFolders.ByStatus = v.GetBool("folder_structure.sub_folders.by_status")
	cfg.FolderStructure.SubFolders.Custom = readStringSlice(v.Get("folder_structure.sub_folders.custom"))
	cfg.FolderStructure.Naming.Prefix = v.GetString("folder_structure.naming.prefix")
	cfg.FolderStructure.Naming.Suffix = v.GetString("folder_structure.naming.suffix")
	cfg.FolderStructure.Naming.DateFormat = v.GetString("folder_structure.naming.date_format")
	cfg.FolderStructure.Naming.IncludeTime = v.GetBool("folder_structure.naming.include_time")

	cfg.Compression.Enabled = v.GetBool("compression.enabled")
	cfg.Compression.Format = v.GetString("compression.format")
	cfg.Compression.Level = v.GetInt("compression.level")
	cfg.Compression.FileSize = v.GetInt("compression.file_size")

	cfg.DataMasking.Enabled = v.GetBool("data_masking.enabled")
	cfg.DataMasking.MaskingChar = v.GetString("data_masking.masking_char")
	cfg.DataMasking.PreserveLength = v.GetBool("data_masking.preserve_length")
	cfg.DataMasking.ShowLastChars = v.GetInt("data_masking.show_last_chars")
	cfg.DataMasking.MaskEmails = v.GetBool("data_masking.mask_emails")
	cfg.DataMasking.MaskIPs = v.GetBool("data_masking.mask_ips")
	cfg.DataMasking.MaskConnectionStrings = v.GetBool("data_masking.mask_connection_strings")
	cfg.DataMasking.CustomFields = readStringSlice(v.Get("data_masking.custom_fields"))
	cfg.DataMasking.ExemptFields = readStringSlice(v.Get("data_masking.exempt_fields"))
	cfg.DataMasking.CustomPatterns = readStringMap(v.Get("data_masking.custom_patterns"))

	cfg.Retention.Database.APILogs = v.GetInt("retention.database.api_logs")
	cfg.Retention.Database.Jobs = v.GetInt("retention.database.jobs")
	cfg.Retention.Database.Logs = v.GetInt("retention.database.logs")
	cfg.Retention.Database.AutoCleanup = v.GetBool("retention.database.auto_cleanup")
	cfg.Retention.Database.CleanupCron = v.GetString("retention.database.cleanup_cron")

	cfg.Retention.Storage.Files = v.GetInt("retention.storage.files")
	cfg.Retention.Storage.AutoCleanup = v.GetBool("retention.storage.auto_cleanup")
	cfg.Retention.Storage.CleanupCron = v.GetString("retention.storage.cleanup_cron")
	cfg.Retention.Storage.S3Lifecycle.TransitionToIA = v.GetInt("retention.storage.s3_lifecycle.transition_to_ia")
	cfg.Retention.Storage.S3Lifecycle.TransitionToGlacier = v.GetInt("retention.storage.s3_lifecycle.transition_to_glacier")
	cfg.Retention.Storage.S3Lifecycle.TransitionToDeepArchive = v.GetInt("retention.storage.s3_lifecycle.transition_to_deep_archive")
	cfg.Retention.Storage.S3Lifecycle.Expiration = v.GetInt("retention.storage.s3_lifecycle.expiration")

	cfg.Logging.Level = v.GetString("logging.level")
	cfg.Logging.Format = v.GetString("logging.format")
	cfg.Logging.EnableConsole = v.GetBool("logging.enable_console")
	cfg.Logging.EnableFile = v.GetBool("logging.enable_file")
	cfg.Logging.LogFilePath = v.GetString("logging.log_file_path")

	cfg.Vault.Enabled = v.GetBool("vault.enabled")
	cfg.Vault.Address = v.GetString("vault.address")
	cfg.Vault.Token = v.GetString("vault.token")
	cfg.Vault.TokenFile = v.GetString("vault.token_file")
	cfg.Vault.Namespace = v.GetString("vault.namespace")
	cfg.Vault.MountPath = v.GetString("vault.mount_path")
	cfg.Vault.KVVersion = v.GetInt("vault.kv_version")
	cfg.Vault.CacheTTL = v.GetDuration("vault.cache_ttl")
	cfg.Vault.RequestTimeout = v.GetDuration("vault.request_timeout")
	cfg.Vault.TLSSkipVerify = v.GetBool("vault.tls_skip_verify")

	return cfg
}

// Validate performs static validation and returns errors and warnings; an
// error aborts init, a warning is logged and startup continues.
func (c *Config) Validate() (errs []string, warnings []string) {
	switch c.UploadProvider {
	case "local", "s3", "gcs", "azure":
	default:
		errs = append(errs, "upload_provider must be one of local|s3|gcs|azure")
	}
	switch c.FileFormat {
	case "json", "csv":
	default:
		errs = append(errs, "file_format must be json|csv")
	}
	if c.RetryAttempts < 0 {
		errs = append(errs, "retry_attempts must be >= 0")
	}
	if c.DBURI == "" {
		errs = append(errs, "db_uri is required")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Sprintf("timezone %q is not a valid IANA zone", c.Timezone))
	}

	switch c.UploadProvider {
	case "s3":
		if c.S3.Bucket == "" {
			errs = append(errs, "s3.bucket is required when upload_provider=s3")
		}
	case "gcs":
		if c.GCS.Bucket == "" {
			errs = append(errs, "gcs.bucket is required when upload_provider=gcs")
		}
	case "azure":
		if c.Azure.StorageAccount == "" || c.Azure.Container == "" {
			errs = append(errs, "azure.storage_account and azure.container are required when upload_provider=azure")
		}
		switch c.Azure.AuthType {
		case "sas", "azuread", "managed_identity":
		default:
			errs = append(errs, "azure.auth_type must be sas|azuread|managed_identity")
		}
	}

	switch c.FolderStructure.Type {
	case "daily", "monthly", "yearly", "":
	default:
		errs = append(errs, "folder_structure.type must be daily|monthly|yearly")
	}

	switch c.Compression.Format {
	case "gzip", "brotli", "zip", "":
	default:
		errs = append(errs, "compression.format must be gzip|brotli|zip")
	}
	if c.Compression.Level < 0 || c.Compression.Level > 9 {
		errs = append(errs, "compression.level must be 0-9")
	}

	if c.DataMasking.ShowLastChars < 0 {
		errs = append(errs, "data_masking.show_last_chars must be >= 0")
	}
	if len([]rune(c.DataMasking.MaskingChar)) > 1 {
		errs = append(errs, "data_masking.masking_char must be a single character")
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, "logging.level must be debug|info|warn|error")
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		errs = append(errs, "logging.format must be text|json")
	}

	if c.Retention.Database.APILogs <= 0 {
		warnings = append(warnings, "retention.database.api_logs <= 0 disables record retention")
	}
	if c.Retention.Storage.Files <= 0 {
		warnings = append(warnings, "retention.storage.files <= 0 disables archive retention")
	}
	if c.UploadProvider != "s3" && c.Retention.Storage.S3Lifecycle.TransitionToIA > 0 {
		warnings = append(warnings, "retention.storage.s3_lifecycle is only honored by upload_provider=s3")
	}

	return errs, warnings
}

func readStringSlice(value interface{}) []string {
	switch v := value.(type) {
	case []string:
		return copyStrings(v)
	case []any:
		var out []string
		for _, item := range v {
			if s, ok := item.(string); ok {
				s = strings.TrimSpace(s)
				if s != "" {
					out = append(out, s)
				}
			}
		}
		return out
	case string:
		if strings.TrimSpace(v) == "" {
			return nil
		}
		parts := strings.Split(v, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	default:
		return nil
	}
}

func readStringMap(value interface{}) map[string]string {
	m, ok := value.(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}

func copyStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
