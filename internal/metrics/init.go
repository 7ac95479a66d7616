package metrics

// InitializeMetrics pre-populates the expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	for _, status := range []string{"ingested", "duplicate", "failed"} {
		IngestTotal.WithLabelValues(status)
	}

	for _, stage := range []string{"fingerprint", "copy", "extract", "thumbnail", "insert", "total"} {
		IngestDuration.WithLabelValues(stage)
	}

	for _, backend := range []string{"imaging", "vips"} {
		ThumbnailDuration.WithLabelValues(backend)
	}

	for _, op := range []string{"create", "rename", "move", "delete", "tree"} {
		DirectoryOpsTotal.WithLabelValues(op, "success")
		DirectoryOpsTotal.WithLabelValues(op, "error")
	}

	for _, op := range []string{"create_media", "update_media", "get_media", "list_media",
		"find_fingerprint", "soft_delete_media", "hard_delete_media",
		"create_directory", "rename_directory", "get_directory",
		"list_directories", "initialize_schema", "vacuum"} {
		DBQueryTotal.WithLabelValues(op, "success")
		DBQueryTotal.WithLabelValues(op, "error")
		DBQueryDuration.WithLabelValues(op)
	}

	for _, outcome := range []string{"commit", "rollback"} {
		DBTransactionDuration.WithLabelValues(outcome)
	}

	for _, op := range []string{"stat", "open", "remove_all"} {
		FilesystemRetryAttempts.WithLabelValues(op)
		FilesystemRetrySuccess.WithLabelValues(op)
		FilesystemRetryFailures.WithLabelValues(op)
		FilesystemStaleErrors.WithLabelValues(op)
	}
}
